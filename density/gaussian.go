package density

import (
	"math"
	"math/cmplx"
	"math/rand/v2"

	"github.com/phil-mansfield/gomuscle/fft"
	"github.com/phil-mansfield/gomuscle/geom"
	"github.com/phil-mansfield/gomuscle/spectrum"
)

// seedStream is the second PCG word. Changing it changes every realization.
const seedStream = 0x6d75736c

// Generator draws Gaussian random fields with a given power spectrum.
type Generator struct {
	Grid     *geom.Grid
	Spectrum spectrum.PowerSpectrum
	Seed     uint64
	// FixedAmplitude sets every mode's amplitude to its expected value so
	// that only the phases are random.
	FixedAmplitude bool
}

// Amplitudes returns the rms amplitude of every Fourier mode,
// Cells^3 sqrt(P(k) / BoxWidth^3). The spectrum is evaluated at every
// non-zero wavenumber on the grid, and an ErrSpectrumDomain error is
// returned if any value is invalid.
func (gen *Generator) Amplitudes() ([]float64, error) {
	g := gen.Grid
	norm := float64(g.Volume) / math.Pow(g.BoxWidth, 1.5)

	amps := make([]float64, g.Volume)
	for idx := 1; idx < g.Volume; idx++ {
		pk, err := gen.Spectrum.Eval(g.KMag(idx))
		if err != nil {
			return nil, err
		}
		amps[idx] = norm * math.Sqrt(pk)
	}
	return amps, nil
}

// Generate returns a new realization of the field. The spectrum is fully
// validated before any random numbers are drawn. Identical generators
// produce bit-identical fields.
func (gen *Generator) Generate(tr fft.Transform) (*Field, error) {
	g := gen.Grid
	if err := checkSizes(g, tr, g.Volume); err != nil {
		return nil, err
	}

	amps, err := gen.Amplitudes()
	if err != nil {
		return nil, err
	}

	r := rand.New(rand.NewPCG(gen.Seed, seedStream))
	modes := make([]complex128, g.Volume)

	// Modes are visited in index order and each pair (k, -k) is drawn once,
	// at the smaller index, so the sequence of draws depends only on the
	// grid size and the seed.
	for idx := 1; idx < g.Volume; idx++ {
		conj := g.Conjugate(idx)
		if conj < idx {
			continue
		}

		re, im := r.NormFloat64(), r.NormFloat64()
		theta := 2 * math.Pi * r.Float64()
		a := amps[idx]

		if conj == idx {
			// Self-conjugate modes (Nyquist corners and planes) must be real.
			if gen.FixedAmplitude {
				if math.Cos(theta) < 0 {
					a = -a
				}
				modes[idx] = complex(a, 0)
			} else {
				modes[idx] = complex(a*re, 0)
			}
			continue
		}

		var m complex128
		if gen.FixedAmplitude {
			m = complex(a, 0) * cmplx.Exp(complex(0, theta))
		} else {
			m = complex(a*re/math.Sqrt2, a*im/math.Sqrt2)
		}
		modes[idx] = m
		modes[conj] = cmplx.Conj(m)
	}

	return FromModes(g, tr, modes)
}
