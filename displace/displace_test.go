package displace

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/gomuscle/density"
	"github.com/phil-mansfield/gomuscle/fft"
	"github.com/phil-mansfield/gomuscle/geom"
	"github.com/phil-mansfield/gomuscle/spectrum"
)

func setup(t testing.TB, cells int, width float64, green Green) (*geom.Grid, fft.Transform, *Synthesizer) {
	g, err := geom.NewGrid(cells, width)
	require.NoError(t, err)
	tr, err := fft.New(fft.Gonum, cells, 2)
	require.NoError(t, err)
	s, err := New(g, tr, green, 2)
	require.NoError(t, err)
	return g, tr, s
}

func random(t testing.TB, g *geom.Grid, tr fft.Transform) *density.Field {
	gen := &density.Generator{Grid: g, Spectrum: spectrum.PowerLaw(20, -1), Seed: 8}
	f, err := gen.Generate(tr)
	require.NoError(t, err)
	return f
}

func TestZero(t *testing.T) {
	g, _, s := setup(t, 6, 3, Continuous)
	f, err := s.Displacement(make([]float64, g.Volume))
	require.NoError(t, err)
	assert.Equal(t, 0.0, f.MaxAbs())
}

func TestPlaneWave(t *testing.T) {
	cells, width, amp := 8, 16.0, 0.3
	k := 2 * math.Pi / width
	h := width / float64(cells)

	table := []struct {
		green Green
		scale float64 // Psi_x = -amp * scale * sin(k x)
	}{
		{Continuous, 1 / k},
		{Discrete, k / ((2 / (h * h)) * (1 - math.Cos(k*h)))},
	}

	for i, test := range table {
		g, _, s := setup(t, cells, width, test.green)
		delta := make([]float64, g.Volume)
		for idx := range delta {
			x := g.CellCenter(idx)[0] - h/2
			delta[idx] = amp * math.Cos(k*x)
		}

		f, err := s.Displacement(delta)
		require.NoError(t, err)
		for idx := range delta {
			x := g.CellCenter(idx)[0] - h/2
			exp := -amp * test.scale * math.Sin(k*x)
			if math.Abs(f.X[idx]-exp) > 1e-10 {
				t.Fatalf("%d) Expected Psi_x(%g) = %g, got %g.", i, x, exp, f.X[idx])
			}
			assert.InDelta(t, 0, f.Y[idx], 1e-12)
			assert.InDelta(t, 0, f.Z[idx], 1e-12)
		}
	}
}

func TestCurlFree(t *testing.T) {
	for _, cells := range []int{7, 8} {
		for green := Green(0); green < EndGreen; green++ {
			g, tr, s := setup(t, cells, 10, green)
			delta := random(t, g, tr)
			f, err := s.Displacement(delta.Real)
			require.NoError(t, err)

			scale := f.MaxAbs()
			require.True(t, scale > 0)
			for a, c := range s.Curl(f) {
				for idx, x := range c {
					if math.Abs(x) > 1e-10*scale {
						t.Fatalf("cells = %d, %s: curl_%d = %g at %d.",
							cells, green, a, x, idx)
					}
				}
			}
		}
	}
}

func TestDivergence(t *testing.T) {
	// Odd grids have no Nyquist plane, so div(Psi) = -delta exactly.
	g, tr, s := setup(t, 7, 10, Continuous)
	delta := random(t, g, tr)
	f, err := s.Displacement(delta.Real)
	require.NoError(t, err)

	div := s.Divergence(f)
	for idx := range div {
		assert.InDelta(t, -delta.Real[idx], div[idx], 1e-10)
	}
}

func TestErrors(t *testing.T) {
	g, tr, s := setup(t, 4, 4, Continuous)

	_, err := s.Displacement(make([]float64, 7))
	assert.True(t, errors.Is(err, geom.ErrInvalidGridSize))

	for _, bad := range []float64{math.NaN(), math.Inf(-1)} {
		delta := make([]float64, g.Volume)
		delta[5] = bad
		_, err = s.Displacement(delta)
		assert.True(t, errors.Is(err, ErrSynthesis), "%v", err)

		modes := make([]complex128, g.Volume)
		modes[3] = complex(bad, 0)
		_, err = s.FromModes(modes)
		assert.True(t, errors.Is(err, ErrSynthesis), "%v", err)
	}

	other, err := geom.NewGrid(5, 4)
	require.NoError(t, err)
	_, err = New(other, tr, Continuous, 1)
	assert.True(t, errors.Is(err, geom.ErrInvalidGridSize))
	_, err = New(g, tr, EndGreen, 1)
	assert.Error(t, err)
}

func TestALPTModes(t *testing.T) {
	g, tr, s := setup(t, 6, 12, Continuous)
	lin := random(t, g, tr).Real
	mu2 := make([]float64, g.Volume)
	eff := make([]float64, g.Volume)
	for i := range mu2 {
		mu2[i] = lin[i] * lin[i]
		eff[i] = 2 * lin[i]
	}

	lpt := make([]float64, g.Volume)
	for i := range lpt {
		lpt[i] = lin[i] + 3.0/7*mu2[i]
	}
	lptModes := make([]complex128, g.Volume)
	effModes := make([]complex128, g.Volume)
	tr.Forward(lpt, lptModes)
	tr.Forward(eff, effModes)

	modes, err := s.ALPTModes(lin, mu2, eff, 0)
	require.NoError(t, err)
	for i := range modes {
		assert.InDelta(t, 0, cmplx.Abs(modes[i]-lptModes[i]), 1e-10)
	}

	modes, err = s.ALPTModes(lin, mu2, eff, 1e3)
	require.NoError(t, err)
	for i := 1; i < len(modes); i++ {
		assert.InDelta(t, 0, cmplx.Abs(modes[i]-effModes[i]), 1e-10)
	}

	_, err = s.ALPTModes(lin, mu2[:3], eff, 1)
	assert.True(t, errors.Is(err, geom.ErrInvalidGridSize))
	_, err = s.ALPTModes(lin, mu2, eff, -1)
	assert.True(t, errors.Is(err, ErrSynthesis))
}

func TestParseGreen(t *testing.T) {
	for green := Green(0); green < EndGreen; green++ {
		got, err := ParseGreen(green.String())
		assert.NoError(t, err)
		assert.Equal(t, green, got)
	}
	_, err := ParseGreen("spline")
	assert.Error(t, err)
}

func BenchmarkDisplacement32(b *testing.B) {
	g, tr, s := setup(b, 32, 100, Continuous)
	delta := random(b, g, tr)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Displacement(delta.Real)
	}
}
