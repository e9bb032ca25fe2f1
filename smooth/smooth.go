/*package smooth builds the hierarchy of low-pass filtered copies of a density
field that the collapse mapping examines, from the coarsest scale to the
finest.
*/
package smooth

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/phil-mansfield/gomuscle/cosmo"
	"github.com/phil-mansfield/gomuscle/density"
	"github.com/phil-mansfield/gomuscle/fft"
	"github.com/phil-mansfield/gomuscle/geom"
)

// ErrInvalidScaleHierarchy is returned for radii which are not positive and
// strictly decreasing.
var ErrInvalidScaleHierarchy = errors.New("invalid scale hierarchy")

// Filter is a low-pass window function.
type Filter int

const (
	Gaussian Filter = iota
	SharpK
	TopHat
	EndFilter
)

var filterNames = []string{"Gaussian", "SharpK", "TopHat"}

func (f Filter) String() string {
	if f < 0 || f >= EndFilter {
		return fmt.Sprintf("Filter(%d)", int(f))
	}
	return filterNames[f]
}

// ParseFilter returns the Filter with the given (case-insensitive) name.
func ParseFilter(name string) (Filter, error) {
	for f := Filter(0); f < EndFilter; f++ {
		if strings.EqualFold(f.String(), strings.TrimSpace(name)) {
			return f, nil
		}
	}
	return 0, fmt.Errorf(
		"Unrecognized filter '%s'. Must be one of [%s].",
		name, strings.Join(filterNames, " | "),
	)
}

// Window returns the Fourier-space value of the filter at k*R.
func (f Filter) Window(kr float64) float64 {
	switch f {
	case Gaussian:
		return math.Exp(-kr * kr / 2)
	case SharpK:
		if kr <= 1 {
			return 1
		}
		return 0
	case TopHat:
		return cosmo.TopHatWindow(kr)
	}
	panic(fmt.Sprintf("Unrecognized filter %d.", int(f)))
}

// Hierarchy is an ordered list of smoothing radii, coarsest first.
type Hierarchy struct {
	radii []float64
}

// NewHierarchy validates and copies a list of radii. Radii must be positive,
// finite and strictly decreasing.
func NewHierarchy(radii []float64) (*Hierarchy, error) {
	if len(radii) == 0 {
		return nil, fmt.Errorf("%w: no radii given", ErrInvalidScaleHierarchy)
	}
	for i, r := range radii {
		if !(r > 0) || math.IsInf(r, 0) {
			return nil, fmt.Errorf(
				"%w: radius %d is %g, but must be positive",
				ErrInvalidScaleHierarchy, i, r,
			)
		}
		if i > 0 && !(r < radii[i-1]) {
			return nil, fmt.Errorf(
				"%w: radius %d (%g) is not smaller than radius %d (%g)",
				ErrInvalidScaleHierarchy, i, r, i-1, radii[i-1],
			)
		}
	}
	return &Hierarchy{radii: append([]float64(nil), radii...)}, nil
}

// DefaultHierarchy returns dyadic radii L/4, L/8, ... down to one cell
// width.
func DefaultHierarchy(g *geom.Grid) *Hierarchy {
	dx := g.CellWidth()
	radii := []float64{}
	for r := g.BoxWidth / 4; r > dx*(1+1e-9); r /= 2 {
		radii = append(radii, r)
	}
	radii = append(radii, dx)
	return &Hierarchy{radii: radii}
}

// Len returns the number of scales.
func (h *Hierarchy) Len() int { return len(h.radii) }

// Radius returns the radius of scale i.
func (h *Hierarchy) Radius(i int) float64 { return h.radii[i] }

// Radii returns a copy of the radii.
func (h *Hierarchy) Radii() []float64 { return append([]float64(nil), h.radii...) }

// Smoother lazily produces smoothed copies of a field, one scale at a time,
// so that only one smoothed field needs to be alive at once.
type Smoother struct {
	field  *density.Field
	h      *Hierarchy
	filter Filter
	tr     fft.Transform
	next   int
}

// NewSmoother creates a Smoother over the given field.
func NewSmoother(
	f *density.Field, h *Hierarchy, filter Filter, tr fft.Transform,
) *Smoother {
	return &Smoother{field: f, h: h, filter: filter, tr: tr}
}

// Len returns the number of scales.
func (s *Smoother) Len() int { return s.h.Len() }

// At returns the field smoothed at scale i. It does not affect Next.
func (s *Smoother) At(i int) (*density.Field, error) {
	g := s.field.Grid
	r := s.h.Radius(i)

	modes := make([]complex128, g.Volume)
	for idx, m := range s.field.Modes {
		modes[idx] = m * complex(s.filter.Window(g.KMag(idx)*r), 0)
	}
	return density.FromModes(g, s.tr, modes)
}

// Next returns the next scale in coarse-to-fine order. ok is false once
// every scale has been produced.
func (s *Smoother) Next() (i int, f *density.Field, ok bool, err error) {
	if s.next >= s.h.Len() {
		return s.next, nil, false, nil
	}
	i = s.next
	f, err = s.At(i)
	if err != nil {
		return i, nil, false, err
	}
	s.next++
	return i, f, true, nil
}
