/*package displace turns a density contrast into a curl-free displacement
field by solving Poisson's equation spectrally and taking the gradient of the
resulting potential.
*/
package displace

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"github.com/phil-mansfield/gomuscle/fft"
	"github.com/phil-mansfield/gomuscle/geom"
)

// ErrSynthesis is returned when a displacement field would contain
// non-finite values.
var ErrSynthesis = errors.New("displacement synthesis failed")

// Green selects the Green's function of the Laplacian.
type Green int

const (
	// Continuous uses 1/k^2.
	Continuous Green = iota
	// Discrete uses the inverse of the 7-point lattice Laplacian.
	Discrete
	EndGreen
)

var greenNames = []string{"Continuous", "Discrete"}

func (g Green) String() string {
	if g < 0 || g >= EndGreen {
		return fmt.Sprintf("Green(%d)", int(g))
	}
	return greenNames[g]
}

// ParseGreen returns the Green with the given (case-insensitive) name.
func ParseGreen(name string) (Green, error) {
	for g := Green(0); g < EndGreen; g++ {
		if strings.EqualFold(g.String(), strings.TrimSpace(name)) {
			return g, nil
		}
	}
	return 0, fmt.Errorf(
		"Unrecognized Green's function '%s'. Must be one of [%s].",
		name, strings.Join(greenNames, " | "),
	)
}

// Field is a displacement field in box units, one component per axis.
type Field struct {
	Grid    *geom.Grid
	X, Y, Z []float64
}

// Components returns the three component slices in axis order.
func (f *Field) Components() [3][]float64 {
	return [3][]float64{f.X, f.Y, f.Z}
}

// At returns the displacement of cell idx.
func (f *Field) At(idx int) geom.Vec {
	return geom.Vec{f.X[idx], f.Y[idx], f.Z[idx]}
}

// MaxAbs returns the largest absolute component in the field.
func (f *Field) MaxAbs() float64 {
	max := 0.0
	for _, c := range f.Components() {
		for _, x := range c {
			if a := math.Abs(x); a > max {
				max = a
			}
		}
	}
	return max
}

// Synthesizer builds displacement fields on a single grid.
type Synthesizer struct {
	grid    *geom.Grid
	tr      fft.Transform
	green   Green
	workers int
}

// New returns a Synthesizer.
func New(g *geom.Grid, tr fft.Transform, green Green, workers int) (*Synthesizer, error) {
	if tr.Cells() != g.Cells {
		return nil, fmt.Errorf(
			"%w: transform built for %d cells, grid has %d",
			geom.ErrInvalidGridSize, tr.Cells(), g.Cells,
		)
	} else if green < 0 || green >= EndGreen {
		return nil, fmt.Errorf("Unrecognized Green's function %d.", int(green))
	}
	return &Synthesizer{grid: g, tr: tr, green: green, workers: workers}, nil
}

// Green returns the value of the Green's function at mode idx, such that
// phi_k = G delta_k solves lap(phi) = -delta. It is zero at k = 0.
func (s *Synthesizer) Green(idx int) float64 {
	k := s.grid.K(idx)
	switch s.green {
	case Continuous:
		k2 := k[0]*k[0] + k[1]*k[1] + k[2]*k[2]
		if k2 == 0 {
			return 0
		}
		return 1 / k2
	case Discrete:
		h := s.grid.CellWidth()
		sum := math.Cos(k[0]*h) + math.Cos(k[1]*h) + math.Cos(k[2]*h)
		lap := (2 / (h * h)) * (3 - sum)
		if lap == 0 {
			return 0
		}
		return 1 / lap
	}
	panic(fmt.Sprintf("Unrecognized Green's function %d.", int(s.green)))
}

// Displacement returns the displacement field whose divergence is -delta.
// delta is not modified.
func (s *Synthesizer) Displacement(delta []float64) (*Field, error) {
	if len(delta) != s.grid.Volume {
		return nil, fmt.Errorf(
			"%w: source of length %d does not match a %d^3 grid",
			geom.ErrInvalidGridSize, len(delta), s.grid.Cells,
		)
	}
	for idx, x := range delta {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf(
				"%w: source is %g at cell %d", ErrSynthesis, x, idx,
			)
		}
	}
	modes := make([]complex128, s.grid.Volume)
	s.tr.Forward(delta, modes)
	return s.FromModes(modes)
}

// FromModes returns the displacement field whose divergence is -delta, given
// the Fourier modes of delta. modes is not modified.
func (s *Synthesizer) FromModes(modes []complex128) (*Field, error) {
	g := s.grid
	if len(modes) != g.Volume {
		return nil, fmt.Errorf(
			"%w: %d modes do not match a %d^3 grid",
			geom.ErrInvalidGridSize, len(modes), g.Cells,
		)
	}

	var psi [3][]complex128
	for a := range psi {
		psi[a] = make([]complex128, g.Volume)
	}

	geom.Parallel(s.workers, g.Volume, func(_, low, high, jump int) {
		for idx := low; idx < high; idx += jump {
			phi := modes[idx] * complex(s.Green(idx), 0)
			k := g.DerivK(idx)
			for a := 0; a < 3; a++ {
				psi[a][idx] = complex(0, k[a]) * phi
			}
		}
	})

	for idx, m := range modes {
		if cmplx.IsNaN(m) || cmplx.IsInf(m) {
			return nil, fmt.Errorf("%w: mode %d is %v", ErrSynthesis, idx, m)
		}
	}

	f := &Field{Grid: g}
	out := [3]*[]float64{&f.X, &f.Y, &f.Z}
	for a := range psi {
		*out[a] = make([]float64, g.Volume)
		s.tr.Inverse(psi[a], *out[a])
	}

	if err := checkFinite(f); err != nil {
		return nil, err
	}
	return f, nil
}

func checkFinite(f *Field) error {
	for a, c := range f.Components() {
		for idx, x := range c {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return fmt.Errorf(
					"%w: component %d is %g at cell %d", ErrSynthesis, a, x, idx,
				)
			}
		}
	}
	return nil
}
