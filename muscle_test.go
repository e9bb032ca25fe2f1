package muscle

import (
	"bytes"
	"errors"
	"log"
	"math"
	"os"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/gomuscle/blend"
	"github.com/phil-mansfield/gomuscle/catalog"
	"github.com/phil-mansfield/gomuscle/collapse"
	"github.com/phil-mansfield/gomuscle/cosmo"
	"github.com/phil-mansfield/gomuscle/density"
	"github.com/phil-mansfield/gomuscle/displace"
	"github.com/phil-mansfield/gomuscle/fft"
	"github.com/phil-mansfield/gomuscle/smooth"
	"github.com/phil-mansfield/gomuscle/spectrum"
)

func testConfig() Config {
	return Config{
		Cells: 8, BoxWidth: 16, Seed: 17,
		Radii: []float64{4, 2}, Thresholds: []float64{1},
		Scheme: SphericalCollapse, Workers: 2,
	}
}

func run(t *testing.T, con Config, p spectrum.PowerSpectrum) *catalog.Catalog {
	pipe, err := New(con, p)
	require.NoError(t, err)
	cat, err := pipe.Run()
	require.NoError(t, err)
	return cat
}

func TestZeroSpectrum(t *testing.T) {
	for s := Scheme(0); s < EndScheme; s++ {
		con := testConfig()
		con.Scheme = s
		con.VelocityFactor = 3
		cat := run(t, con, spectrum.Constant(0))

		pipe, err := New(con, spectrum.Constant(0))
		require.NoError(t, err)
		g := pipe.Grid()

		require.Len(t, cat.Particles, g.Volume)
		for idx, p := range cat.Particles {
			assert.Equal(t, int64(idx), p.Id)
			for k := 0; k < 3; k++ {
				assert.InDelta(t, g.CellCenter(idx)[k], p.Xs[k], 1e-12, "%s", s)
				assert.InDelta(t, 0, p.Vs[k], 1e-12, "%s", s)
			}
		}
	}
}

func TestSchemes(t *testing.T) {
	p := spectrum.PowerLaw(200, -1)
	for s := Scheme(0); s < EndScheme; s++ {
		for _, green := range []displace.Green{displace.Continuous, displace.Discrete} {
			con := testConfig()
			con.Scheme, con.Green = s, green
			con.VelocityFactor = 1
			cat := run(t, con, p)

			require.Len(t, cat.Particles, 512)
			moved := false
			for _, par := range cat.Particles {
				for k := 0; k < 3; k++ {
					x := par.Xs[k]
					if !(x >= 0 && x < con.BoxWidth) {
						t.Fatalf("%s: particle %d has x[%d] = %g.", s, par.Id, k, x)
					}
					if par.Vs[k] != 0 {
						moved = true
					}
				}
			}
			assert.True(t, moved, "%s", s)
			assert.Equal(t, s.String(), cat.Header.Scheme)
			if s == Zeldovich {
				assert.Empty(t, cat.Header.CollapsedFraction)
			} else {
				assert.Len(t, cat.Header.CollapsedFraction, 2)
			}
		}
	}
}

func TestDeterminism(t *testing.T) {
	p := spectrum.PowerLaw(200, -1)
	con := testConfig()
	con.Scheme = ALPT
	con.VelocityFactor = 2

	pipe, err := New(con, p)
	require.NoError(t, err)
	c1, err := pipe.Run()
	require.NoError(t, err)
	c2, err := pipe.Run()
	require.NoError(t, err)

	con.Workers = 1
	con.Backend = fft.DSP
	c3 := run(t, con, p)

	if diff := cmp.Diff(c1, c2); diff != "" {
		t.Errorf("Repeated runs differ (-first +second):\n%s", diff)
	}
	assert.Equal(t, c1.Header, c3.Header)
	for i := range c1.Particles {
		for k := 0; k < 3; k++ {
			d := math.Abs(c1.Particles[i].Xs[k] - c3.Particles[i].Xs[k])
			assert.True(t, d < 1e-8 || math.Abs(d-con.BoxWidth) < 1e-8)
		}
	}

	con.Seed++
	c4 := run(t, con, p)
	assert.False(t, cmp.Equal(c1.Particles, c4.Particles))
}

// reference regenerates the linear field of a pipeline along with a
// synthesizer on the same grid.
func reference(t *testing.T, pipe *Pipeline) (*density.Field, fft.Transform, *displace.Synthesizer) {
	tr, err := fft.New(pipe.con.Backend, pipe.grid.Cells, 1)
	require.NoError(t, err)
	lin, err := pipe.generator().Generate(tr)
	require.NoError(t, err)
	synth, err := displace.New(pipe.grid, tr, pipe.con.Green, 1)
	require.NoError(t, err)
	return lin, tr, synth
}

// sum returns a + b.
func sum(a, b *displace.Field) *displace.Field {
	out := &displace.Field{Grid: a.Grid}
	ac, bc := a.Components(), b.Components()
	oc := [3]*[]float64{&out.X, &out.Y, &out.Z}
	for k := 0; k < 3; k++ {
		*oc[k] = make([]float64, len(ac[k]))
		for i := range ac[k] {
			(*oc[k])[i] = ac[k][i] + bc[k][i]
		}
	}
	return out
}

func assertDisplaced(t *testing.T, pipe *Pipeline, cat *catalog.Catalog, psi *displace.Field) {
	g := pipe.Grid()
	for idx, p := range cat.Particles {
		q, d := g.CellCenter(idx), psi.At(idx)
		for k := 0; k < 3; k++ {
			x := g.Wrap(q[k] + d[k])
			diff := math.Abs(p.Xs[k] - x)
			if math.Min(diff, g.BoxWidth-diff) > 1e-9 {
				t.Fatalf("%d) Expected x[%d] = %g, got %g.", idx, k, x, p.Xs[k])
			}
		}
	}
}

func TestZeldovich(t *testing.T) {
	con := testConfig()
	con.Scheme = Zeldovich
	con.VelocityFactor = 2
	pipe, err := New(con, spectrum.PowerLaw(200, -1))
	require.NoError(t, err)
	cat, err := pipe.Run()
	require.NoError(t, err)

	lin, _, synth := reference(t, pipe)
	psi, err := synth.Displacement(lin.Real)
	require.NoError(t, err)
	assert.True(t, psi.MaxAbs() > 0.1)

	assertDisplaced(t, pipe, cat, psi)
	for idx, p := range cat.Particles {
		d := psi.At(idx)
		for k := 0; k < 3; k++ {
			assert.InDelta(t, 2*d[k], p.Vs[k], 1e-9)
		}
	}
	assert.Empty(t, cat.Header.CollapsedFraction)
}

func TestTwoLPTLinearLimit(t *testing.T) {
	// With thresholds nothing reaches, 2LPT is applied to the unsmoothed
	// linear field everywhere.
	con := testConfig()
	con.Scheme = TwoLPT
	con.Thresholds = []float64{100}
	con.VelocityFactor, con.SecondOrderVelocityFactor = 1, 3
	pipe, err := New(con, spectrum.PowerLaw(200, -1))
	require.NoError(t, err)
	cat, err := pipe.Run()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, cat.Header.CollapsedFraction)

	lin, tr, synth := reference(t, pipe)
	psi1, err := synth.Displacement(lin.Real)
	require.NoError(t, err)
	mu2 := collapse.NewTensor(lin, tr, 1).SecondOrder(1)
	for i := range mu2 {
		mu2[i] *= 3.0 / 7
	}
	psi2, err := synth.Displacement(mu2)
	require.NoError(t, err)
	assert.True(t, psi2.MaxAbs() > 1e-3)

	assertDisplaced(t, pipe, cat, sum(psi1, psi2))
	for idx, p := range cat.Particles {
		d1, d2 := psi1.At(idx), psi2.At(idx)
		for k := 0; k < 3; k++ {
			assert.InDelta(t, d1[k]+3*d2[k], p.Vs[k], 1e-9)
		}
	}
}

func TestTwoLPTDefaultVelocity(t *testing.T) {
	con := testConfig()
	con.VelocityFactor = 1.5
	pipe, err := New(con, spectrum.Constant(0))
	require.NoError(t, err)
	assert.Equal(t, 3.0, pipe.Config().SecondOrderVelocityFactor)
}

func TestSphericalLinearLimit(t *testing.T) {
	// With thresholds nothing reaches, every cell keeps its finest-scale
	// estimate, and spherical collapse reduces to Zel'dovich applied to the
	// finest smoothed field.
	con := testConfig()
	con.Thresholds = []float64{100}
	pipe, err := New(con, spectrum.Constant(0.08))
	require.NoError(t, err)
	cat, err := pipe.Run()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, cat.Header.CollapsedFraction)

	lin, tr, synth := reference(t, pipe)
	fine, err := smooth.NewSmoother(lin, pipe.hierarchy, con.Filter, tr).At(1)
	require.NoError(t, err)
	psi, err := synth.Displacement(fine.Real)
	require.NoError(t, err)
	assertDisplaced(t, pipe, cat, psi)
}

func TestTwoLPTCollapsedCells(t *testing.T) {
	// Cells that collapse get no second-order term, and both sources are
	// volume-conserving.
	con := testConfig()
	con.Scheme = TwoLPT
	con.Thresholds = []float64{100}
	pipe, err := New(con, spectrum.PowerLaw(200, -1))
	require.NoError(t, err)

	// Mark roughly half the cells at the finest scale.
	lin, tr, _ := reference(t, pipe)
	fine, err := smooth.NewSmoother(lin, pipe.hierarchy, con.Filter, tr).At(1)
	require.NoError(t, err)
	abs := make([]float64, len(fine.Real))
	for i, x := range fine.Real {
		abs[i] = math.Abs(x)
	}
	sort.Float64s(abs)
	con.Thresholds = []float64{100, abs[len(abs)/2]}
	pipe, err = New(con, spectrum.PowerLaw(200, -1))
	require.NoError(t, err)

	res, err := pipe.blend(lin, tr, 1)
	require.NoError(t, err)
	mu2 := collapse.NewTensor(lin, tr, 1).SecondOrder(1)
	first, second := perturbative(res, lin.Real, mu2)

	marked, sum1, sum2 := 0, 0.0, 0.0
	for idx := range first {
		if res.Mask[idx] != blend.Unmarked {
			marked++
			assert.Equal(t, 0.0, second[idx])
			assert.Equal(t, -res.Divergence[idx], first[idx])
		}
		sum1 += first[idx]
		sum2 += second[idx]
	}
	assert.True(t, marked > 0 && marked < len(first), "%d marked", marked)
	assert.InDelta(t, 0, sum1, 1e-9)
	assert.InDelta(t, 0, sum2, 1e-9)
}

func TestFirstScaleCollapse(t *testing.T) {
	// A zero threshold makes every cell nonlinear at the coarsest scale.
	con := testConfig()
	con.Thresholds = []float64{0, 0}
	cat := run(t, con, spectrum.PowerLaw(200, -1))
	assert.Equal(t, []float64{1, 0}, cat.Header.CollapsedFraction)
}

func TestHeader(t *testing.T) {
	con := testConfig()
	con.Radii = nil
	con.Thresholds = nil
	c := cosmo.Default()
	con.Cosmology = &c
	con.Redshift = 2

	cat := run(t, con, spectrum.Constant(0))
	h := cat.Header
	assert.Equal(t, int64(8), h.Cells)
	assert.Equal(t, int64(512), h.Count)
	assert.Equal(t, []float64{4, 2}, h.Radii)
	assert.Equal(t, []float64{DefaultThreshold, DefaultThreshold}, h.Thresholds)
	assert.Equal(t, "SphericalCollapse", h.Scheme)
	assert.Equal(t, "Gaussian", h.Filter)
	assert.False(t, h.Velocities)
	assert.Equal(t, 2.0, h.Cosmo.Z)
	assert.InDelta(t, rhoCrit*c.OmegaM()*8, h.Mass, 1e-9)
}

func TestConfigCopied(t *testing.T) {
	con := testConfig()
	pipe, err := New(con, spectrum.Constant(0))
	require.NoError(t, err)

	con.Radii[0] = 1
	con.Thresholds[0] = -5
	assert.Equal(t, []float64{4, 2}, pipe.Config().Radii)
	assert.Equal(t, []float64{1}, pipe.Config().Thresholds)
	assert.Equal(t, 0.01, pipe.Config().Floor)
}

func TestErrors(t *testing.T) {
	ok := spectrum.Constant(1)
	table := []struct {
		edit func(*Config)
		p    spectrum.PowerSpectrum
		err  error
	}{
		{func(c *Config) { c.Cells = 1 }, ok, ErrInvalidGridSize},
		{func(c *Config) { c.BoxWidth = -1 }, ok, ErrInvalidGridSize},
		{func(c *Config) { c.Radii = []float64{2, 4} }, ok, ErrInvalidScaleHierarchy},
		{func(c *Config) { c.Radii = []float64{2, 0} }, ok, ErrInvalidScaleHierarchy},
		{func(c *Config) {}, spectrum.Constant(-1), ErrSpectrumDomain},
		{func(c *Config) {}, nil, ErrSpectrumDomain},
		{func(c *Config) { c.Floor = 1 }, ok, ErrSingularCollapse},
		{func(c *Config) { c.Floor = -0.2 }, ok, ErrSingularCollapse},
		{func(c *Config) { c.Thresholds = []float64{1, 2, 3} }, ok, nil},
		{func(c *Config) { c.Thresholds = []float64{math.NaN()} }, ok, nil},
		{func(c *Config) { c.Scheme = EndScheme }, ok, nil},
		{func(c *Config) { c.Filter = smooth.EndFilter }, ok, nil},
		{func(c *Config) { c.Backend = fft.EndBackend }, ok, nil},
		{func(c *Config) { c.Green = displace.EndGreen }, ok, nil},
		{func(c *Config) { c.Scheme, c.ALPTRadius = ALPT, -1 }, ok, nil},
		{func(c *Config) { c.VelocityFactor = math.Inf(1) }, ok, nil},
		{func(c *Config) { c.SecondOrderVelocityFactor = math.NaN() }, ok, nil},
		{func(c *Config) { c.Workers = -1 }, ok, nil},
	}

	for i, test := range table {
		con := testConfig()
		test.edit(&con)
		pipe, err := New(con, test.p)
		if err == nil {
			t.Errorf("%d) Expected an error.", i)
			continue
		}
		assert.Nil(t, pipe)
		if test.err != nil && !errors.Is(err, test.err) {
			t.Errorf("%d) Expected %v, got %v.", i, test.err, err)
		}
	}
}

func TestLog(t *testing.T) {
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	defer log.SetOutput(os.Stderr)

	con := testConfig()
	run(t, con, spectrum.Constant(0))
	assert.Equal(t, 0, buf.Len())

	con.Log = true
	run(t, con, spectrum.Constant(0))
	assert.Contains(t, buf.String(), "Scale 2/2")
	assert.Contains(t, buf.String(), "Alloc:")
}

func TestParseScheme(t *testing.T) {
	for s := Scheme(0); s < EndScheme; s++ {
		got, err := ParseScheme(s.String())
		assert.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseScheme("3lpt")
	assert.Error(t, err)
}

func BenchmarkRun16(b *testing.B) {
	con := testConfig()
	con.Cells, con.Radii = 16, nil
	pipe, err := New(con, spectrum.PowerLaw(200, -1))
	if err != nil {
		b.Fatal(err)
	}
	for i := 0; i < b.N; i++ {
		pipe.Run()
	}
}
