/*package interpolate contains 1D interpolators over tabulated data. It is used
to turn tables of power spectrum values into callable functions.
*/
package interpolate

import (
	"fmt"
)

// Interpolator is a function defined by a table of points.
type Interpolator interface {
	Eval(x float64) float64
	// Range returns the interval on which Eval is valid.
	Range() (lo, hi float64)
}

var (
	_ Interpolator = &Spline{}
	_ Interpolator = &Linear{}
)

type splineCoeff struct {
	a, b, c, d float64
}

// Spline represents a 1D natural cubic spline which can be used to
// interpolate between points.
type Spline struct {
	xs, ys, y2s []float64
	coeffs      []splineCoeff

	incr bool

	// Usually the input data is uniform. This is our estimate of the point
	// spacing.
	dx float64
}

// NewSpline creates a spline based off a table of x and y values. The values
// must be strictly increasing or strictly decreasing in x. The table is
// copied.
func NewSpline(xs, ys []float64) (*Spline, error) {
	if err := checkTable(xs, ys); err != nil {
		return nil, err
	}

	sp := new(Spline)
	sp.incr = xs[0] < xs[1]

	sp.xs = make([]float64, len(xs))
	sp.ys = make([]float64, len(xs))
	sp.y2s = make([]float64, len(xs))
	sp.coeffs = make([]splineCoeff, len(xs)-1)

	sp.dx = (xs[len(xs)-1] - xs[0]) / float64(len(xs)-1)

	copy(sp.xs, xs)
	copy(sp.ys, ys)
	if err := sp.calcY2s(); err != nil {
		return nil, err
	}
	sp.calcCoeffs()
	return sp, nil
}

func checkTable(xs, ys []float64) error {
	if len(xs) != len(ys) {
		return fmt.Errorf(
			"Table has len(xs) = %d but len(ys) = %d.", len(xs), len(ys),
		)
	} else if len(xs) <= 1 {
		return fmt.Errorf("Table has length of %d.", len(xs))
	}

	incr := xs[0] < xs[1]
	for i := 0; i < len(xs)-1; i++ {
		if (xs[i+1] > xs[i]) != incr || xs[i+1] == xs[i] {
			return fmt.Errorf("Table not strictly sorted at x = %g.", xs[i+1])
		}
	}
	return nil
}

// Range returns the interval of x values covered by the spline.
func (sp *Spline) Range() (lo, hi float64) {
	return bounds(sp.xs)
}

// Eval computes the value of the spline at the given point. Points outside
// Range() are extrapolated with the polynomial of the nearest interval.
func (sp *Spline) Eval(x float64) float64 {
	i := sp.bsearch(x)
	dx := x - sp.xs[i]
	a, b, c, d := sp.coeffs[i].a, sp.coeffs[i].b, sp.coeffs[i].c, sp.coeffs[i].d
	return a*dx*dx*dx + b*dx*dx + c*dx + d
}

// Diff computes the derivative of spline at the given point to the
// specified order.
func (sp *Spline) Diff(x float64, order int) float64 {
	i := sp.bsearch(x)
	dx := x - sp.xs[i]
	a, b, c, d := sp.coeffs[i].a, sp.coeffs[i].b, sp.coeffs[i].c, sp.coeffs[i].d
	switch order {
	case 0:
		return a*dx*dx*dx + b*dx*dx + c*dx + d
	case 1:
		return 3*a*dx*dx + 2*b*dx + c
	case 2:
		return 6*a*dx + 2*b
	case 3:
		return 6 * a
	default:
		return 0
	}
}

// bsearch returns the the index of the interval containing x, clamped to
// the first and last intervals.
func (sp *Spline) bsearch(x float64) int {
	n := len(sp.xs)

	// Guess under the assumption of uniform spacing.
	guess := int((x - sp.xs[0]) / sp.dx)
	if guess >= 0 && guess < n-1 &&
		(sp.xs[guess] <= x == sp.incr) &&
		(sp.xs[guess+1] >= x == sp.incr) {

		return guess
	}

	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if sp.incr == (x >= sp.xs[mid]) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// calcY2s computes the second derivative at every point in the table with
// natural boundary conditions.
func (sp *Spline) calcY2s() error {
	n := len(sp.xs)
	sp.y2s[0], sp.y2s[n-1] = 0, 0
	if n == 2 {
		return nil
	}

	as, bs := make([]float64, n-2), make([]float64, n-2)
	cs, rs := make([]float64, n-2), make([]float64, n-2)

	xs, ys := sp.xs, sp.ys
	for i := range rs {
		// j indexes into xs and ys.
		j := i + 1

		as[i] = (xs[j] - xs[j-1]) / 6
		bs[i] = (xs[j+1] - xs[j-1]) / 3
		cs[i] = (xs[j+1] - xs[j]) / 6
		rs[i] = ((ys[j+1] - ys[j]) / (xs[j+1] - xs[j])) -
			((ys[j] - ys[j-1]) / (xs[j] - xs[j-1]))
	}

	return TriDiagAt(as, bs, cs, rs, sp.y2s[1:n-1])
}

func (sp *Spline) calcCoeffs() {
	coeffs, xs, ys, y2s := sp.coeffs, sp.xs, sp.ys, sp.y2s
	for i := range sp.coeffs {
		h := xs[i+1] - xs[i]
		coeffs[i].a = (y2s[i+1] - y2s[i]) / (6 * h)
		coeffs[i].b = y2s[i] / 2
		coeffs[i].c = (ys[i+1]-ys[i])/h - h*(2*y2s[i]+y2s[i+1])/6
		coeffs[i].d = ys[i]
	}
}

// TriDiagAt solves the system of equations
//
//	| b0 c0 ..    |   | out0 |   | r0 |
//	| a1 b1 c1 .. |   | out1 |   | r1 |
//	| ..          | * | ..   | = | .. |
//	| ..    an bn |   | outn |   | rn |
//
// for out0 .. outn in place in the given slice.
func TriDiagAt(as, bs, cs, rs, out []float64) error {
	if len(as) != len(bs) || len(as) != len(cs) ||
		len(as) != len(out) || len(as) != len(rs) {

		return fmt.Errorf("Length of arguments to TriDiagAt are unequal.")
	}

	tmp := make([]float64, len(as))

	beta := bs[0]
	if beta == 0 {
		return fmt.Errorf("TriDiagAt cannot solve given system.")
	}
	out[0] = rs[0] / beta

	for i := 1; i < len(out); i++ {
		tmp[i] = cs[i-1] / beta
		beta = bs[i] - as[i]*tmp[i]
		if beta == 0 {
			return fmt.Errorf("TriDiagAt cannot solve given system.")
		}
		out[i] = (rs[i] - as[i]*out[i-1]) / beta
	}

	for i := len(out) - 2; i >= 0; i-- {
		out[i] -= tmp[i+1] * out[i+1]
	}
	return nil
}

func bounds(xs []float64) (lo, hi float64) {
	lo, hi = xs[0], xs[len(xs)-1]
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}
