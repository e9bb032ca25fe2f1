/*package cosmo computes background quantities and a fitting-formula linear
power spectrum for flat LambdaCDM cosmologies.
*/
package cosmo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"

	"github.com/phil-mansfield/gomuscle/spectrum"
)

const (
	// TCMB is the CMB temperature in Kelvin.
	TCMB = 2.7255
	// sigma8Radius is the top-hat radius used to normalize spectra, Mpc/h.
	sigma8Radius = 8.0

	lnKMin, lnKMax = -11.5, 6.9
	quadPoints     = 1000
)

// Cosmology describes a flat LambdaCDM universe.
type Cosmology struct {
	H100     float64 // H0 / (100 km/s/Mpc)
	OmegaBh2 float64 // physical baryon density
	OmegaCDM float64 // CDM density parameter
	Ns       float64 // scalar spectral index
	Sigma8   float64 // rms linear fluctuation in 8 Mpc/h spheres at z = 0
}

// Default returns the cosmology used by the example configuration.
func Default() Cosmology {
	return Cosmology{
		H100: 0.7, OmegaBh2: 0.0225, OmegaCDM: 0.25, Ns: 0.96, Sigma8: 0.8,
	}
}

// Check returns an error if any parameter is unphysical.
func (c *Cosmology) Check() error {
	switch {
	case !(c.H100 > 0):
		return fmt.Errorf("H100 must be positive, but is %g.", c.H100)
	case !(c.OmegaBh2 >= 0):
		return fmt.Errorf("OmegaBh2 must be non-negative, but is %g.", c.OmegaBh2)
	case !(c.OmegaCDM > 0):
		return fmt.Errorf("OmegaCDM must be positive, but is %g.", c.OmegaCDM)
	case !(c.Sigma8 > 0):
		return fmt.Errorf("Sigma8 must be positive, but is %g.", c.Sigma8)
	case c.OmegaM() >= 1:
		return fmt.Errorf("OmegaM = %g leaves no room for Lambda.", c.OmegaM())
	}
	return nil
}

// OmegaB returns the baryon density parameter.
func (c *Cosmology) OmegaB() float64 { return c.OmegaBh2 / (c.H100 * c.H100) }

// OmegaM returns the total matter density parameter.
func (c *Cosmology) OmegaM() float64 { return c.OmegaCDM + c.OmegaB() }

// OmegaL returns the cosmological constant density parameter.
func (c *Cosmology) OmegaL() float64 { return 1 - c.OmegaM() }

// E returns H(z) / H0.
func (c *Cosmology) E(z float64) float64 {
	a3 := (1 + z) * (1 + z) * (1 + z)
	return math.Sqrt(c.OmegaM()*a3 + c.OmegaL())
}

// OmegaMz returns the matter density parameter at redshift z.
func (c *Cosmology) OmegaMz(z float64) float64 {
	e := c.E(z)
	return c.OmegaM() * (1 + z) * (1 + z) * (1 + z) / (e * e)
}

// growth is the unnormalized Carroll, Press & Turner (1992) growth factor.
func (c *Cosmology) growth(z float64) float64 {
	om := c.OmegaMz(z)
	e := c.E(z)
	ol := c.OmegaL() / (e * e)
	g := 2.5 * om / (math.Pow(om, 4.0/7) - ol + (1+om/2)*(1+ol/70))
	return g / (1 + z)
}

// Growth returns the linear growth factor D(z), normalized to D(0) = 1.
func (c *Cosmology) Growth(z float64) float64 {
	return c.growth(z) / c.growth(0)
}

// GrowthRate returns f = dlnD/dlna ~ OmegaM(z)^(5/9).
func (c *Cosmology) GrowthRate(z float64) float64 {
	return math.Pow(c.OmegaMz(z), 5.0/9)
}

// VelocityFactor converts a Zel'dovich displacement in Mpc/h into a peculiar
// velocity in km/s at redshift z.
func (c *Cosmology) VelocityFactor(z float64) float64 {
	return c.GrowthRate(z) * c.E(z) * 100 / (1 + z)
}

// SecondOrderGrowthRate returns f2 = dlnD2/dlna ~ 2 OmegaM(z)^(6/11).
func (c *Cosmology) SecondOrderGrowthRate(z float64) float64 {
	return 2 * math.Pow(c.OmegaMz(z), 6.0/11)
}

// SecondOrderVelocityFactor converts a second-order displacement in Mpc/h
// into a peculiar velocity in km/s at redshift z.
func (c *Cosmology) SecondOrderVelocityFactor(z float64) float64 {
	return c.SecondOrderGrowthRate(z) * c.E(z) * 100 / (1 + z)
}

// Transfer returns the Eisenstein & Hu (1998) zero-baryon-wiggle transfer
// function at k in h/Mpc.
func (c *Cosmology) Transfer(k float64) float64 {
	h := c.H100
	om, ob := c.OmegaM(), c.OmegaB()
	omh2 := om * h * h
	fb := ob / om
	theta := TCMB / 2.7

	s := 44.5 * math.Log(9.83/omh2) / math.Sqrt(1+10*math.Pow(c.OmegaBh2, 0.75))
	alphaGamma := 1 - 0.328*math.Log(431*omh2)*fb + 0.38*math.Log(22.3*omh2)*fb*fb

	ks := k * h * s
	gammaEff := om * h * (alphaGamma + (1-alphaGamma)/(1+math.Pow(0.43*ks, 4)))

	q := k * theta * theta / gammaEff
	l0 := math.Log(2*math.E + 1.8*q)
	c0 := 14.2 + 731/(1+62.5*q)
	return l0 / (l0 + c0*q*q)
}

func (c *Cosmology) unnormalized(k float64) float64 {
	t := c.Transfer(k)
	return math.Pow(k, c.Ns) * t * t
}

// Sigma returns the rms of the linear field smoothed by a top-hat of radius r
// for the spectrum p.
func Sigma(p spectrum.PowerSpectrum, r float64) float64 {
	integrand := func(lnk float64) float64 {
		k := math.Exp(lnk)
		w := TopHatWindow(k * r)
		return k * k * k * p(k) * w * w
	}
	s2 := quad.Fixed(integrand, lnKMin, lnKMax, quadPoints, nil, 0) /
		(2 * math.Pi * math.Pi)
	return math.Sqrt(s2)
}

// TopHatWindow is the Fourier transform of a real-space spherical top-hat.
func TopHatWindow(x float64) float64 {
	if math.Abs(x) < 1e-2 {
		x2 := x * x
		return 1 - x2/10 + x2*x2/280
	}
	return 3 * (math.Sin(x) - x*math.Cos(x)) / (x * x * x)
}

// PowerSpectrum returns the linear power spectrum at redshift z normalized
// to Sigma8 at z = 0.
func (c *Cosmology) PowerSpectrum(z float64) (spectrum.PowerSpectrum, error) {
	if err := c.Check(); err != nil {
		return nil, err
	}

	p0 := spectrum.PowerSpectrum(c.unnormalized)
	s8 := Sigma(p0, sigma8Radius)
	d := c.Growth(z)
	amp := c.Sigma8 * c.Sigma8 / (s8 * s8) * d * d

	return func(k float64) float64 {
		if !(k > 0) {
			return math.NaN()
		}
		return amp * c.unnormalized(k)
	}, nil
}
