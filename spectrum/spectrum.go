/*package spectrum defines the power spectrum contract used to generate
linear density fields, along with helpers for validating, rescaling and
tabulating spectra.

Wavenumbers are in h/Mpc and powers are in (Mpc/h)^3, matching box widths
given in Mpc/h.
*/
package spectrum

import (
	"errors"
	"fmt"
	"math"
)

// ErrSpectrumDomain is returned when a power spectrum is negative or
// undefined at a sampled wavenumber.
var ErrSpectrumDomain = errors.New("power spectrum domain error")

// PowerSpectrum maps a wavenumber k > 0 to a non-negative power P(k).
type PowerSpectrum func(k float64) float64

// Eval returns P(k) and an ErrSpectrumDomain error if the value is negative,
// NaN or infinite.
func (p PowerSpectrum) Eval(k float64) (float64, error) {
	pk := p(k)
	if math.IsNaN(pk) || math.IsInf(pk, 0) || pk < 0 {
		return 0, fmt.Errorf("%w: P(%g) = %g", ErrSpectrumDomain, k, pk)
	}
	return pk, nil
}

// Scaled returns the spectrum multiplied by a constant, e.g. the square of a
// growth factor.
func (p PowerSpectrum) Scaled(factor float64) PowerSpectrum {
	return func(k float64) float64 { return factor * p(k) }
}

// PowerLaw returns P(k) = amp * k^n.
func PowerLaw(amp, n float64) PowerSpectrum {
	return func(k float64) float64 { return amp * math.Pow(k, n) }
}

// Constant returns a white-noise spectrum.
func Constant(amp float64) PowerSpectrum {
	return func(k float64) float64 { return amp }
}
