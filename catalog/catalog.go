/*package catalog turns displacement fields into particle catalogs and writes
them out as Gadget 2 binaries, CSV tables or YAML run metadata.
*/
package catalog

import (
	"fmt"

	"github.com/phil-mansfield/gomuscle/displace"
	"github.com/phil-mansfield/gomuscle/geom"
)

// Particle is a single tracer. Id is the index of the Lagrangian cell the
// particle started in.
type Particle struct {
	Xs, Vs geom.Vec
	Id     int64
}

// Header describes meta-information about a catalog and the run that made
// it.
type Header struct {
	Cells    int64   `yaml:"cells"`
	Count    int64   `yaml:"count"`
	BoxWidth float64 `yaml:"box_width"`
	Mass     float64 `yaml:"particle_mass"` // Mass of one particle

	Seed       uint64    `yaml:"seed"`
	Scheme     string    `yaml:"scheme"`
	Filter     string    `yaml:"filter"`
	Green      string    `yaml:"green"`
	Radii      []float64 `yaml:"radii"`
	Thresholds []float64 `yaml:"thresholds"`
	// CollapsedFraction[i] is the fraction of cells assigned at scale i.
	CollapsedFraction []float64 `yaml:"collapsed_fraction"`

	Velocities bool            `yaml:"velocities"`
	Cosmo      CosmologyHeader `yaml:"cosmology"`
}

// CosmologyHeader contains information describing the cosmological
// context of the catalog.
type CosmologyHeader struct {
	Z      float64 `yaml:"z"`
	OmegaM float64 `yaml:"omega_m"`
	OmegaL float64 `yaml:"omega_l"`
	H100   float64 `yaml:"h100"`
}

// Catalog is a header and its particles, ordered by Id.
type Catalog struct {
	Header    Header
	Particles []Particle
}

// Map places one particle at the center of every cell of g, moves it by
// psi, and wraps it back into the box. If velFactor is non-zero, velocities
// are set to velFactor * psi.
func Map(
	g *geom.Grid, psi *displace.Field, velFactor float64, workers int,
) ([]Particle, error) {
	return MapSecondOrder(g, psi, nil, velFactor, 0, workers)
}

// MapSecondOrder is Map for a displacement split into first- and
// second-order parts. Particles move by psi1 + psi2, and velocities are
// vel1 * psi1 + vel2 * psi2. psi2 may be nil.
func MapSecondOrder(
	g *geom.Grid, psi1, psi2 *displace.Field, vel1, vel2 float64, workers int,
) ([]Particle, error) {
	if !matches(g, psi1) || (psi2 != nil && !matches(g, psi2)) {
		return nil, fmt.Errorf(
			"%w: displacement field does not match a %d^3 grid",
			geom.ErrInvalidGridSize, g.Cells,
		)
	}

	ps := make([]Particle, g.Volume)
	geom.Parallel(workers, len(ps), func(_, low, high, jump int) {
		for idx := low; idx < high; idx += jump {
			p := &ps[idx]
			p.Id = int64(idx)
			q := g.CellCenter(idx)
			d1, d2 := psi1.At(idx), geom.Vec{}
			if psi2 != nil {
				d2 = psi2.At(idx)
			}
			for k := 0; k < 3; k++ {
				p.Xs[k] = g.Wrap(q[k] + d1[k] + d2[k])
				p.Vs[k] = vel1*d1[k] + vel2*d2[k]
			}
		}
	})
	return ps, nil
}

func matches(g *geom.Grid, psi *displace.Field) bool {
	return psi != nil && len(psi.X) == g.Volume &&
		len(psi.Y) == g.Volume && len(psi.Z) == g.Volume
}
