package mat

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gmat "gonum.org/v1/gonum/mat"
)

func dense(m *Sym3) *gmat.SymDense {
	data := make([]float64, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			data[i*3+j] = m.At(i, j)
		}
	}
	return gmat.NewSymDense(3, data)
}

func TestEigenvaluesAgainstGonum(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for n := 0; n < 500; n++ {
		var m Sym3
		for i := range m {
			m[i] = 4*r.Float64() - 2
		}

		var es gmat.EigenSym
		require.True(t, es.Factorize(dense(&m), false))
		want := es.Values(nil)

		got := m.Eigenvalues()
		for i := 0; i < 3; i++ {
			if math.Abs(got[i]-want[2-i]) > 1e-9 {
				t.Fatalf("%d) Expected eigenvalues of %v to be %v, got %v.",
					n, m, want, got)
			}
		}
		assert.InDelta(t, m.Trace(), got[0]+got[1]+got[2], 1e-9)
		assert.InDelta(t, m.Determinant(), got[0]*got[1]*got[2], 1e-9)
		assert.InDelta(t, m.Minors(),
			got[0]*got[1]+got[0]*got[2]+got[1]*got[2], 1e-9)
	}
}

func TestEigenvaluesSpecial(t *testing.T) {
	table := []struct {
		m    Sym3
		vals [3]float64
	}{
		{Sym3{}, [3]float64{0, 0, 0}},
		{Sym3{1, 3, 2, 0, 0, 0}, [3]float64{3, 2, 1}},
		{Sym3{2, 2, 2, 0, 0, 0}, [3]float64{2, 2, 2}},
		{Sym3{1, 1, 0, 1, 0, 0}, [3]float64{2, 0, 0}},
		{Sym3{0, 0, 0, 1, 1, 1}, [3]float64{2, -1, -1}},
		{Sym3{1e-8, 1e-8, 1e-8, 1e-12, 0, 0}, [3]float64{1e-8 + 1e-12, 1e-8, 1e-8 - 1e-12}},
	}

	for i, test := range table {
		got := test.m.Eigenvalues()
		for j := range got {
			if math.Abs(got[j]-test.vals[j]) > 1e-12 {
				t.Errorf("%d) Expected %v, got %v.", i, test.vals, got)
				break
			}
		}
	}
}

// rotated returns Q diag(vals) Q^T for a rotation Q built from Euler
// angles a, b, c.
func rotated(vals [3]float64, a, b, c float64) Sym3 {
	rz := func(t float64) [3][3]float64 {
		return [3][3]float64{
			{math.Cos(t), -math.Sin(t), 0}, {math.Sin(t), math.Cos(t), 0}, {0, 0, 1},
		}
	}
	rx := func(t float64) [3][3]float64 {
		return [3][3]float64{
			{1, 0, 0}, {0, math.Cos(t), -math.Sin(t)}, {0, math.Sin(t), math.Cos(t)},
		}
	}
	mul := func(x, y [3][3]float64) (z [3][3]float64) {
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				for k := 0; k < 3; k++ {
					z[i][j] += x[i][k] * y[k][j]
				}
			}
		}
		return z
	}
	q := mul(mul(rz(a), rx(b)), rz(c))

	var full [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				full[i][j] += q[i][k] * vals[k] * q[j][k]
			}
		}
	}
	return Sym3{full[0][0], full[1][1], full[2][2], full[0][1], full[0][2], full[1][2]}
}

func TestEigenvaluesDegenerate(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	splits := []float64{0, 1e-10, 1e-6}
	for n := 0; n < 300; n++ {
		l, far := 2*r.Float64()-1, 2*r.Float64()-1
		vals := [3]float64{l, l + splits[n%len(splits)], far}
		if n%2 == 1 {
			vals[2] = l + 3
		}
		m := rotated(vals, 6*r.Float64(), 3*r.Float64(), 6*r.Float64())

		want := vals
		sort3(&want)
		got := m.Eigenvalues()
		for i := range got {
			if math.Abs(got[i]-want[i]) > 1e-12 {
				t.Fatalf("%d) Expected %v, got %v.", n, want, got)
			}
		}
	}
}

func TestAt(t *testing.T) {
	m := Sym3{1, 2, 3, 4, 5, 6}
	expected := [3][3]float64{{1, 4, 5}, {4, 2, 6}, {5, 6, 3}}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.Equal(t, expected[i][j], m.At(i, j))
		}
	}
}

func BenchmarkEigenvalues(b *testing.B) {
	m := Sym3{0.3, -0.2, 0.1, 0.05, -0.07, 0.02}
	for i := 0; i < b.N; i++ {
		m.Eigenvalues()
	}
}
