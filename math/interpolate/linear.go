package interpolate

// Linear is a piecewise linear interpolator.
type Linear struct {
	xs, vals []float64
	incr     bool
}

// NewLinear creates a linear interpolator for a sequence of strictly
// increasing or strictly decreasing points, xs, which take on the values
// given by vals. The table is copied.
//
// Lookups are O(log |xs|).
func NewLinear(xs, vals []float64) (*Linear, error) {
	if err := checkTable(xs, vals); err != nil {
		return nil, err
	}
	lin := &Linear{
		xs:   append([]float64(nil), xs...),
		vals: append([]float64(nil), vals...),
		incr: xs[0] < xs[1],
	}
	return lin, nil
}

// Range returns the interval of x values covered by the table.
func (lin *Linear) Range() (lo, hi float64) { return bounds(lin.xs) }

// Eval returns the interpolated value at x. Points outside Range() are
// extrapolated from the nearest interval.
func (lin *Linear) Eval(x float64) float64 {
	i1 := lin.search(x)
	i2 := i1 + 1
	x1, x2 := lin.xs[i1], lin.xs[i2]
	v1, v2 := lin.vals[i1], lin.vals[i2]

	return ((v2-v1)/(x2-x1))*(x-x1) + v1
}

func (lin *Linear) search(x float64) int {
	lo, hi := 0, len(lin.xs)-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if lin.incr == (x >= lin.xs[mid]) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}
