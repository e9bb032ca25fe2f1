/*package collapse maps a smoothed density field onto per-cell collapse
states. Each cell gets the eigenvalues of its deformation tensor, a
classification and a nonlinear density estimate from either the spherical
collapse model (which only looks at the trace) or a per-axis ellipsoidal
model.
*/
package collapse

import (
	"errors"
	"fmt"
	"math"

	"github.com/phil-mansfield/gomuscle/density"
	"github.com/phil-mansfield/gomuscle/fft"
	"github.com/phil-mansfield/gomuscle/geom"
)

// ErrSingularCollapse is returned when the collapse floor would allow a
// density estimate to be evaluated at its singularity.
var ErrSingularCollapse = errors.New("singular collapse")

// DefaultFloor is the default lower clamp on collapse bases. Collapsed cells
// are frozen at a divergence of 3(DefaultFloor - 1), close to -3.
const DefaultFloor = 0.01

// Family selects the density estimate.
type Family int

const (
	// Trace uses rho = (1 - delta/3)^-3.
	Trace Family = iota
	// Eigen uses rho = prod_j (1 - l_j)^-1.
	Eigen
	EndFamily
)

var familyNames = []string{"Trace", "Eigen"}

func (f Family) String() string {
	if f < 0 || f >= EndFamily {
		return fmt.Sprintf("Family(%d)", int(f))
	}
	return familyNames[f]
}

// Class is the collapse classification of a cell.
type Class uint8

const (
	Linear Class = iota
	Nonlinear
	PartiallyCollapsed
	FullyCollapsed
)

func (c Class) String() string {
	switch c {
	case Linear:
		return "Linear"
	case Nonlinear:
		return "Nonlinear"
	case PartiallyCollapsed:
		return "PartiallyCollapsed"
	case FullyCollapsed:
		return "FullyCollapsed"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// Collapsed returns true if any axis of the cell has hit the floor.
func (c Class) Collapsed() bool {
	return c == PartiallyCollapsed || c == FullyCollapsed
}

// State is the collapse state of a single cell at a single scale.
type State struct {
	Delta  float64
	Lambda [3]float64
	Class  Class
	// Density is the nonlinear density estimate, rho/rho_mean.
	Density float64
	// Divergence is the candidate divergence of the displacement field at
	// this cell, 3(rho^(-1/3) - 1) when frozen.
	Divergence float64
}

// Options configure a Mapper.
type Options struct {
	Family Family
	// Floor is the lower clamp on 1 - delta/3 or 1 - l_j. Must be in (0, 1).
	Floor float64
	// Freeze sets the divergence of every cell from its clamped density
	// estimate. Otherwise the divergence is -delta everywhere, which is the
	// Zel'dovich approximation.
	Freeze bool
}

// Mapper computes collapse states of fields.
type Mapper struct {
	opt     Options
	tr      fft.Transform
	workers int
}

// NewMapper checks opt and returns a new Mapper.
func NewMapper(opt Options, tr fft.Transform, workers int) (*Mapper, error) {
	if !(opt.Floor > 0 && opt.Floor < 1) {
		return nil, fmt.Errorf(
			"%w: collapse floor must be in (0, 1), but is %g",
			ErrSingularCollapse, opt.Floor,
		)
	} else if opt.Family < 0 || opt.Family >= EndFamily {
		return nil, fmt.Errorf("Unrecognized collapse family %d.", int(opt.Family))
	}
	return &Mapper{opt: opt, tr: tr, workers: workers}, nil
}

// Map computes the collapse state of every cell in f. Cells with
// |delta| < threshold are Linear.
func (m *Mapper) Map(f *density.Field, threshold float64) ([]State, error) {
	if !(threshold >= 0) || math.IsInf(threshold, 0) {
		return nil, fmt.Errorf("Collapse threshold must be non-negative, but is %g.", threshold)
	}
	t := NewTensor(f, m.tr, m.workers)
	states := make([]State, f.Grid.Volume)

	geom.Parallel(m.workers, len(states), func(_, low, high, jump int) {
		for idx := low; idx < high; idx += jump {
			tensor := t.At(idx)
			states[idx] = m.state(f.Real[idx], tensor.Eigenvalues(), threshold)
		}
	})

	for idx := range states {
		if s := &states[idx]; math.IsNaN(s.Divergence) || math.IsInf(s.Divergence, 0) {
			return nil, fmt.Errorf(
				"%w: non-finite divergence at cell %d (delta = %g)",
				ErrSingularCollapse, idx, s.Delta,
			)
		}
	}
	return states, nil
}

func (m *Mapper) state(delta float64, lambda [3]float64, threshold float64) State {
	s := State{Delta: delta, Lambda: lambda}

	var clamped int
	switch m.opt.Family {
	case Trace:
		var c bool
		s.Density, c = SphericalDensity(delta, m.opt.Floor)
		if c {
			clamped = 3
		}
	case Eigen:
		s.Density, clamped = EllipsoidalDensity(lambda, m.opt.Floor)
	}

	if m.opt.Freeze {
		s.Divergence = 3 * (math.Cbrt(1/s.Density) - 1)
	} else {
		s.Divergence = -delta
	}

	switch {
	case math.Abs(delta) < threshold:
		s.Class = Linear
	case clamped == 0:
		s.Class = Nonlinear
	case clamped == 3:
		s.Class = FullyCollapsed
	default:
		s.Class = PartiallyCollapsed
	}
	return s
}

// SphericalDensity returns the spherical-collapse density (1 - delta/3)^-3
// with the base clamped from below at floor. clamped reports whether the
// clamp was applied.
func SphericalDensity(delta, floor float64) (rho float64, clamped bool) {
	base := 1 - delta/3
	if base < floor {
		base, clamped = floor, true
	}
	return 1 / (base * base * base), clamped
}

// EllipsoidalDensity returns prod_j (1 - l_j)^-1 with each base clamped from
// below at floor, along with the number of clamped axes.
func EllipsoidalDensity(lambda [3]float64, floor float64) (rho float64, clamped int) {
	j := 1.0
	for _, l := range lambda {
		base := 1 - l
		if base < floor {
			base = floor
			clamped++
		}
		j *= base
	}
	return 1 / j, clamped
}
