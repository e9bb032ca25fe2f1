package muscle

import (
	"fmt"
	"math"
	"strings"

	"github.com/phil-mansfield/gomuscle/collapse"
	"github.com/phil-mansfield/gomuscle/cosmo"
	"github.com/phil-mansfield/gomuscle/displace"
	"github.com/phil-mansfield/gomuscle/fft"
	"github.com/phil-mansfield/gomuscle/smooth"
)

const (
	// DefaultThreshold is the |delta| above which a cell is treated as
	// nonlinear when no thresholds are given.
	DefaultThreshold = 1.5
	// DefaultALPTRadius is the default ALPT interpolation scale in box
	// units.
	DefaultALPTRadius = 4.0
)

// Scheme selects how the displacement field is assembled.
type Scheme int

const (
	// Zeldovich displaces particles by the linear field alone. No scales
	// are smoothed or classified.
	Zeldovich Scheme = iota
	// TwoLPT uses second-order perturbation theory in cells that stay
	// linear at every scale and the per-axis ellipsoidal estimate in cells
	// that collapse.
	TwoLPT
	// ALPT interpolates between second-order perturbation theory on large
	// scales and the ellipsoidal estimate on small scales.
	ALPT
	// SphericalCollapse uses the spherical collapse estimate.
	SphericalCollapse
	EndScheme
)

var schemeNames = []string{"Zeldovich", "2LPT", "ALPT", "SphericalCollapse"}

func (s Scheme) String() string {
	if s < 0 || s >= EndScheme {
		return fmt.Sprintf("Scheme(%d)", int(s))
	}
	return schemeNames[s]
}

// ParseScheme returns the Scheme with the given (case-insensitive) name.
func ParseScheme(name string) (Scheme, error) {
	for s := Scheme(0); s < EndScheme; s++ {
		if strings.EqualFold(s.String(), strings.TrimSpace(name)) {
			return s, nil
		}
	}
	return 0, fmt.Errorf(
		"Unrecognized scheme '%s'. Must be one of [%s].",
		name, strings.Join(schemeNames, " | "),
	)
}

// Family returns the collapse family used by the scheme. Zeldovich never
// classifies cells and reports Trace.
func (s Scheme) Family() collapse.Family {
	switch s {
	case TwoLPT, ALPT:
		return collapse.Eigen
	}
	return collapse.Trace
}

// Config describes a single run. Zero values select defaults where noted.
type Config struct {
	Cells    int
	BoxWidth float64
	Seed     uint64

	// Radii are the smoothing radii, coarsest first. Defaults to
	// smooth.DefaultHierarchy.
	Radii []float64
	// Thresholds holds one |delta| threshold per scale, or a single value
	// used at every scale. Defaults to DefaultThreshold.
	Thresholds []float64

	Scheme Scheme
	Filter smooth.Filter
	// Floor is the collapse clamp. Defaults to collapse.DefaultFloor.
	Floor          float64
	FixedAmplitude bool
	Green          displace.Green
	// ALPTRadius defaults to DefaultALPTRadius.
	ALPTRadius float64
	// VelocityFactor scales displacements into velocities. Zero disables
	// velocities.
	VelocityFactor float64
	// SecondOrderVelocityFactor scales the second-order 2LPT displacement
	// into velocities. Defaults to twice VelocityFactor.
	SecondOrderVelocityFactor float64

	Backend fft.Backend
	// Workers defaults to the number of CPUs.
	Workers int
	Log     bool

	// Cosmology and Redshift are optional and only used for catalog
	// metadata and particle masses.
	Cosmology *cosmo.Cosmology
	Redshift  float64
}

// normalize returns a copy of con with defaults filled in and all slices
// copied, so later changes to the caller's slices have no effect.
func (con Config) normalize() Config {
	con.Radii = append([]float64(nil), con.Radii...)
	con.Thresholds = append([]float64(nil), con.Thresholds...)
	if len(con.Thresholds) == 0 {
		con.Thresholds = []float64{DefaultThreshold}
	}
	if con.Floor == 0 {
		con.Floor = collapse.DefaultFloor
	}
	if con.SecondOrderVelocityFactor == 0 {
		con.SecondOrderVelocityFactor = 2 * con.VelocityFactor
	}
	if con.ALPTRadius == 0 {
		con.ALPTRadius = DefaultALPTRadius
	}
	if con.Cosmology != nil {
		c := *con.Cosmology
		con.Cosmology = &c
	}
	return con
}

// thresholds expands the configured thresholds to one per scale.
func (con *Config) thresholds(scales int) ([]float64, error) {
	ts := con.Thresholds
	if len(ts) == 1 {
		ts = make([]float64, scales)
		for i := range ts {
			ts[i] = con.Thresholds[0]
		}
	} else if len(ts) != scales {
		return nil, fmt.Errorf(
			"%d thresholds given for %d smoothing scales.", len(ts), scales,
		)
	}

	for i, t := range ts {
		if !(t >= 0) || math.IsInf(t, 0) {
			return nil, fmt.Errorf(
				"Threshold %d is %g, but must be non-negative and finite.", i, t,
			)
		}
	}
	return ts, nil
}

func (con *Config) check() error {
	switch {
	case con.Scheme < 0 || con.Scheme >= EndScheme:
		return fmt.Errorf("Unrecognized scheme %d.", int(con.Scheme))
	case con.Filter < 0 || con.Filter >= smooth.EndFilter:
		return fmt.Errorf("Unrecognized filter %d.", int(con.Filter))
	case con.Green < 0 || con.Green >= displace.EndGreen:
		return fmt.Errorf("Unrecognized Green's function %d.", int(con.Green))
	case con.Backend < 0 || con.Backend >= fft.EndBackend:
		return fmt.Errorf("Unrecognized FFT backend %d.", int(con.Backend))
	case math.IsNaN(con.VelocityFactor) || math.IsInf(con.VelocityFactor, 0):
		return fmt.Errorf("Velocity factor must be finite, but is %g.", con.VelocityFactor)
	case math.IsNaN(con.SecondOrderVelocityFactor) ||
		math.IsInf(con.SecondOrderVelocityFactor, 0):
		return fmt.Errorf(
			"Second-order velocity factor must be finite, but is %g.",
			con.SecondOrderVelocityFactor,
		)
	case con.Workers < 0:
		return fmt.Errorf("Worker count must be non-negative, but is %d.", con.Workers)
	}
	if con.Cosmology != nil {
		if err := con.Cosmology.Check(); err != nil {
			return err
		}
	}
	return nil
}
