/*package density holds periodic density fields and generates Gaussian random
realizations of them from a power spectrum.
*/
package density

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/phil-mansfield/gomuscle/fft"
	"github.com/phil-mansfield/gomuscle/geom"
)

// Field is a real field on a periodic grid together with its Fourier modes.
// Real and Modes are always a consistent transform pair and the k = 0 mode
// is zero, so the field has zero mean.
//
// Fields are treated as immutable once built.
type Field struct {
	Grid  *geom.Grid
	Real  []float64
	Modes []complex128
}

// FromModes builds a Field from its Fourier modes. The k = 0 mode is
// zeroed and modes is owned by the returned Field.
func FromModes(g *geom.Grid, tr fft.Transform, modes []complex128) (*Field, error) {
	if err := checkSizes(g, tr, len(modes)); err != nil {
		return nil, err
	}

	modes[0] = 0
	f := &Field{Grid: g, Real: make([]float64, g.Volume), Modes: modes}
	tr.Inverse(f.Modes, f.Real)
	return f, nil
}

// FromReal builds a Field from real-space values. The mean is removed and
// xs is owned by the returned Field.
func FromReal(g *geom.Grid, tr fft.Transform, xs []float64) (*Field, error) {
	if err := checkSizes(g, tr, len(xs)); err != nil {
		return nil, err
	}

	mean := floats.Sum(xs) / float64(len(xs))
	floats.AddConst(-mean, xs)

	f := &Field{Grid: g, Real: xs, Modes: make([]complex128, g.Volume)}
	tr.Forward(f.Real, f.Modes)
	f.Modes[0] = 0
	return f, nil
}

// Zero returns a field which is zero everywhere.
func Zero(g *geom.Grid) *Field {
	return &Field{
		Grid: g, Real: make([]float64, g.Volume),
		Modes: make([]complex128, g.Volume),
	}
}

// StdDev returns the rms of the field.
func (f *Field) StdDev() float64 {
	return math.Sqrt(stat.PopVariance(f.Real, nil))
}

// Range returns the minimum and maximum values of the field.
func (f *Field) Range() (lo, hi float64) {
	return floats.Min(f.Real), floats.Max(f.Real)
}

func checkSizes(g *geom.Grid, tr fft.Transform, n int) error {
	if tr.Cells() != g.Cells {
		return fmt.Errorf(
			"%w: transform built for %d cells, grid has %d",
			geom.ErrInvalidGridSize, tr.Cells(), g.Cells,
		)
	} else if n != g.Volume {
		return fmt.Errorf(
			"%w: array of length %d does not match a %d^3 grid",
			geom.ErrInvalidGridSize, n, g.Cells,
		)
	}
	return nil
}
