/*package muscle evolves a Gaussian random field into a particle catalog with
multiscale spherical collapse.

A run generates a linear density field, smooths it over a hierarchy of
scales from coarsest to finest, classifies every cell at every scale from its
deformation tensor, assigns each cell the state of the first scale at which
it collapses, and turns the blended field into displacements for one particle
per cell.
*/
package muscle

import (
	"fmt"
	"log"
	"runtime"

	"github.com/phil-mansfield/gomuscle/blend"
	"github.com/phil-mansfield/gomuscle/catalog"
	"github.com/phil-mansfield/gomuscle/collapse"
	"github.com/phil-mansfield/gomuscle/density"
	"github.com/phil-mansfield/gomuscle/displace"
	"github.com/phil-mansfield/gomuscle/fft"
	"github.com/phil-mansfield/gomuscle/geom"
	"github.com/phil-mansfield/gomuscle/smooth"
	"github.com/phil-mansfield/gomuscle/spectrum"
)

// Errors returned by a Pipeline. Check them with errors.Is.
var (
	ErrInvalidGridSize       = geom.ErrInvalidGridSize
	ErrInvalidScaleHierarchy = smooth.ErrInvalidScaleHierarchy
	ErrSpectrumDomain        = spectrum.ErrSpectrumDomain
	ErrSingularCollapse      = collapse.ErrSingularCollapse
	ErrSynthesis             = displace.ErrSynthesis
)

// rhoCrit is the critical density in units of 1e10 Msun/h / (Mpc/h)^3.
const rhoCrit = 27.7536627

// Pipeline runs a fully validated Config. A Pipeline keeps no results between
// runs, so Run may be called repeatedly and always returns the same catalog.
// Run is not safe for concurrent use.
type Pipeline struct {
	con        Config
	grid       *geom.Grid
	hierarchy  *smooth.Hierarchy
	thresholds []float64
	spectrum   spectrum.PowerSpectrum

	ms runtime.MemStats
}

// New validates con and p and returns a Pipeline. Every configuration error
// is reported here, before any field is generated.
func New(con Config, p spectrum.PowerSpectrum) (*Pipeline, error) {
	con = con.normalize()
	if err := con.check(); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: no power spectrum given", ErrSpectrumDomain)
	}

	pipe := &Pipeline{con: con, spectrum: p}

	var err error
	if pipe.grid, err = geom.NewGrid(con.Cells, con.BoxWidth); err != nil {
		return nil, err
	}

	if len(con.Radii) == 0 {
		pipe.hierarchy = smooth.DefaultHierarchy(pipe.grid)
		pipe.con.Radii = pipe.hierarchy.Radii()
	} else if pipe.hierarchy, err = smooth.NewHierarchy(con.Radii); err != nil {
		return nil, err
	}

	if pipe.thresholds, err = con.thresholds(pipe.hierarchy.Len()); err != nil {
		return nil, err
	}

	// Surface collapse and spectrum errors now rather than mid-run.
	if _, err = collapse.NewMapper(pipe.collapseOptions(), nil, 1); err != nil {
		return nil, err
	}
	if _, err = pipe.generator().Amplitudes(); err != nil {
		return nil, err
	}
	if pipe.con.Scheme == ALPT && !(con.ALPTRadius > 0) {
		return nil, fmt.Errorf(
			"ALPT radius must be positive, but is %g.", con.ALPTRadius,
		)
	}

	return pipe, nil
}

// Config returns the normalized configuration of the Pipeline.
func (pipe *Pipeline) Config() Config { return pipe.con.normalize() }

// Grid returns the Pipeline's grid.
func (pipe *Pipeline) Grid() *geom.Grid { return pipe.grid }

func (pipe *Pipeline) collapseOptions() collapse.Options {
	return collapse.Options{
		Family: pipe.con.Scheme.Family(),
		Floor:  pipe.con.Floor,
		Freeze: true,
	}
}

func (pipe *Pipeline) generator() *density.Generator {
	return &density.Generator{
		Grid: pipe.grid, Spectrum: pipe.spectrum,
		Seed: pipe.con.Seed, FixedAmplitude: pipe.con.FixedAmplitude,
	}
}

func (pipe *Pipeline) logf(format string, args ...interface{}) {
	if pipe.con.Log {
		log.Printf(format, args...)
	}
}

func (pipe *Pipeline) logMem() {
	if pipe.con.Log {
		runtime.ReadMemStats(&pipe.ms)
		log.Printf(
			"Alloc: %5d MB, Sys: %5d MB",
			pipe.ms.Alloc>>20, pipe.ms.Sys>>20,
		)
	}
}

// Run executes the pipeline and returns the particle catalog. No partial
// output is returned on error.
func (pipe *Pipeline) Run() (*catalog.Catalog, error) {
	con, g := &pipe.con, pipe.grid
	workers := geom.Workers(con.Workers)

	tr, err := fft.New(con.Backend, g.Cells, workers)
	if err != nil {
		return nil, err
	}

	pipe.logf("Generating %d^3 field with seed %d.", g.Cells, con.Seed)
	lin, err := pipe.generator().Generate(tr)
	if err != nil {
		return nil, err
	}
	lo, hi := lin.Range()
	pipe.logf("Linear field: sigma = %.4g, range = [%.4g, %.4g]", lin.StdDev(), lo, hi)
	pipe.logMem()

	// Zel'dovich displacements come straight from the linear field.
	var res *blend.Result
	if con.Scheme != Zeldovich {
		if res, err = pipe.blend(lin, tr, workers); err != nil {
			return nil, err
		}
	}

	psi, psi2, err := pipe.displacement(lin, res, tr, workers)
	if err != nil {
		return nil, err
	}
	pipe.logf("Max displacement: %.4g", psi.MaxAbs())
	if psi2 != nil {
		pipe.logf("Max second-order displacement: %.4g", psi2.MaxAbs())
	}

	ps, err := catalog.MapSecondOrder(
		g, psi, psi2, con.VelocityFactor, con.SecondOrderVelocityFactor, workers,
	)
	if err != nil {
		return nil, err
	}
	pipe.logMem()

	var frac []float64
	if res != nil {
		frac = res.CollapsedFraction
	}
	return &catalog.Catalog{
		Header: pipe.header(frac), Particles: ps,
	}, nil
}

// blend runs the smoothing hierarchy from coarsest to finest scale.
func (pipe *Pipeline) blend(
	lin *density.Field, tr fft.Transform, workers int,
) (*blend.Result, error) {
	mapper, err := collapse.NewMapper(pipe.collapseOptions(), tr, workers)
	if err != nil {
		return nil, err
	}

	s := smooth.NewSmoother(lin, pipe.hierarchy, pipe.con.Filter, tr)
	b := blend.New(pipe.grid, s.Len(), workers)
	for {
		i, f, ok, err := s.Next()
		if err != nil {
			return nil, err
		} else if !ok {
			break
		}

		states, err := mapper.Map(f, pipe.thresholds[i])
		if err != nil {
			return nil, err
		}
		if err := b.Add(i, states); err != nil {
			return nil, err
		}
		pipe.logf(
			"Scale %d/%d (R = %.4g): %d nonlinear cells",
			i+1, s.Len(), pipe.hierarchy.Radius(i), nonlinear(states),
		)
	}

	res, err := b.Finish()
	if err != nil {
		return nil, err
	}
	for i, frac := range res.CollapsedFraction {
		pipe.logf("Scale %d collapsed fraction: %.4f", i, frac)
	}
	return res, nil
}

func nonlinear(states []collapse.State) int {
	n := 0
	for i := range states {
		if states[i].Class != collapse.Linear {
			n++
		}
	}
	return n
}

// displacement assembles the source term for the configured scheme and
// synthesizes the displacement field. The second-order part is split out
// for 2LPT so that it can be given its own velocity factor. res is nil for
// Zel'dovich.
func (pipe *Pipeline) displacement(
	lin *density.Field, res *blend.Result, tr fft.Transform, workers int,
) (psi, psi2 *displace.Field, err error) {
	synth, err := displace.New(pipe.grid, tr, pipe.con.Green, workers)
	if err != nil {
		return nil, nil, err
	}

	switch pipe.con.Scheme {
	case Zeldovich:
		psi, err = synth.Displacement(lin.Real)
		return psi, nil, err

	case TwoLPT:
		mu2 := collapse.NewTensor(lin, tr, workers).SecondOrder(workers)
		first, second := perturbative(res, lin.Real, mu2)
		if psi, err = synth.Displacement(first); err != nil {
			return nil, nil, err
		}
		if psi2, err = synth.Displacement(second); err != nil {
			return nil, nil, err
		}
		return psi, psi2, nil
	}

	eff := make([]float64, len(res.Divergence))
	for i, d := range res.Divergence {
		eff[i] = -d
	}

	if pipe.con.Scheme != ALPT {
		psi, err = synth.Displacement(eff)
		return psi, nil, err
	}

	mu2 := collapse.NewTensor(lin, tr, workers).SecondOrder(workers)
	modes, err := synth.ALPTModes(lin.Real, mu2, eff, pipe.con.ALPTRadius)
	if err != nil {
		return nil, nil, err
	}
	psi, err = synth.FromModes(modes)
	return psi, nil, err
}

// perturbative returns the first- and second-order 2LPT sources. Cells that
// collapsed at some scale take the blended collapse estimate as their
// first-order source and no second-order term. All other cells take delta
// and 3/7 mu2, shifted so that each source sums to zero over the box.
func perturbative(res *blend.Result, lin, mu2 []float64) (first, second []float64) {
	first = make([]float64, len(lin))
	second = make([]float64, len(lin))

	sum1, sum2, unmarked := 0.0, 0.0, 0
	for idx := range lin {
		if res.Mask[idx] == blend.Unmarked {
			first[idx], second[idx] = lin[idx], 3.0/7*mu2[idx]
			unmarked++
		} else {
			first[idx] = -res.Divergence[idx]
		}
		sum1 += first[idx]
		sum2 += second[idx]
	}
	if unmarked == 0 {
		return first, second
	}

	mean1, mean2 := sum1/float64(unmarked), sum2/float64(unmarked)
	for idx := range lin {
		if res.Mask[idx] == blend.Unmarked {
			first[idx] -= mean1
			second[idx] -= mean2
		}
	}
	return first, second
}

func (pipe *Pipeline) header(frac []float64) catalog.Header {
	con, g := &pipe.con, pipe.grid
	h := catalog.Header{
		Cells:    int64(g.Cells),
		Count:    int64(g.Volume),
		BoxWidth: g.BoxWidth,

		Seed:       con.Seed,
		Scheme:     con.Scheme.String(),
		Filter:     con.Filter.String(),
		Green:      con.Green.String(),
		Radii:      pipe.hierarchy.Radii(),
		Thresholds: append([]float64(nil), pipe.thresholds...),

		CollapsedFraction: frac,
		Velocities:        con.VelocityFactor != 0,
	}

	if c := con.Cosmology; c != nil {
		h.Cosmo = catalog.CosmologyHeader{
			Z: con.Redshift, OmegaM: c.OmegaM(), OmegaL: c.OmegaL(), H100: c.H100,
		}
		h.Mass = rhoCrit * c.OmegaM() * g.BoxWidth * g.BoxWidth * g.BoxWidth /
			float64(g.Volume)
	}
	return h
}
