package interpolate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linspace(lo, hi float64, n int) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return xs
}

func BenchmarkSplineEval(b *testing.B) {
	xs := linspace(0, 10, 100)
	ys := make([]float64, len(xs))
	for i := range xs {
		ys[i] = math.Sin(xs[i])
	}
	sp, _ := NewSpline(xs, ys)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sp.Eval(float64(i%1000) / 100)
	}
}

func TestSplineLinearData(t *testing.T) {
	table := []struct {
		xs, ys []float64
	}{
		{[]float64{0, 1, 2, 3, 4}, []float64{2, 3, 4, 5, 6}},
		{[]float64{4, 3, 2, 1, 0}, []float64{6, 5, 4, 3, 2}},
		{[]float64{0, 0.5, 2, 3.5}, []float64{2, 2.5, 4, 5.5}},
		{[]float64{0, 1}, []float64{2, 3}},
	}

	for i, test := range table {
		sp, err := NewSpline(test.xs, test.ys)
		require.NoError(t, err, "%d)", i)
		for _, x := range linspace(0, 3.5, 15) {
			if got := sp.Eval(x); math.Abs(got-(x+2)) > 1e-12 {
				t.Errorf("%d) Expected spline(%g) = %g, got %g.", i, x, x+2, got)
			}
		}
		assert.InDelta(t, 1, sp.Diff(1.2, 1), 1e-12)
	}
}

func TestSplineSmooth(t *testing.T) {
	xs := linspace(0, math.Pi, 40)
	ys := make([]float64, len(xs))
	for i := range xs {
		ys[i] = math.Sin(xs[i])
	}
	sp, err := NewSpline(xs, ys)
	require.NoError(t, err)

	for _, x := range linspace(0.1, 3, 23) {
		assert.InDelta(t, math.Sin(x), sp.Eval(x), 1e-4, "x = %g", x)
	}
	for i := range xs {
		assert.InDelta(t, ys[i], sp.Eval(xs[i]), 1e-12)
	}
}

func TestSplineBadTables(t *testing.T) {
	_, err := NewSpline([]float64{0, 1, 2}, []float64{0, 1})
	assert.Error(t, err)
	_, err = NewSpline([]float64{0}, []float64{0})
	assert.Error(t, err)
	_, err = NewSpline([]float64{0, 2, 1}, []float64{0, 1, 2})
	assert.Error(t, err)
	_, err = NewSpline([]float64{0, 1, 1}, []float64{0, 1, 2})
	assert.Error(t, err)
}

func TestLinear(t *testing.T) {
	lin, err := NewLinear([]float64{0, 1, 3}, []float64{0, 2, 0})
	require.NoError(t, err)

	assert.InDelta(t, 1, lin.Eval(0.5), 1e-12)
	assert.InDelta(t, 1, lin.Eval(2), 1e-12)
	assert.InDelta(t, -1, lin.Eval(4), 1e-12)

	lo, hi := lin.Range()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 3.0, hi)
}

func TestTriDiag(t *testing.T) {
	// | 2 1 0 |   | 1 |   | 4 |
	// | 1 2 1 | * | 2 | = | 8 |
	// | 0 1 2 |   | 3 |   | 8 |
	out := make([]float64, 3)
	err := TriDiagAt(
		[]float64{0, 1, 1}, []float64{2, 2, 2}, []float64{1, 1, 0},
		[]float64{4, 8, 8}, out,
	)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2, 3}, out, 1e-12)
}
