package displace

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/gomuscle/geom"
)

// ALPTModes returns the Fourier modes of the augmented-LPT source,
//
//     G(k) (delta_lin + 3/7 mu2)_k + (1 - G(k)) delta_eff_k,
//
// where G(k) = exp(-(k sigma)^2 / 2). Large scales follow second-order
// perturbation theory and small scales follow the blended collapse field.
func (s *Synthesizer) ALPTModes(lin, mu2, eff []float64, sigma float64) ([]complex128, error) {
	g := s.grid
	for _, xs := range [][]float64{lin, mu2, eff} {
		if len(xs) != g.Volume {
			return nil, fmt.Errorf(
				"%w: ALPT input of length %d does not match a %d^3 grid",
				geom.ErrInvalidGridSize, len(xs), g.Cells,
			)
		}
	}
	if !(sigma >= 0) || math.IsInf(sigma, 0) {
		return nil, fmt.Errorf(
			"%w: ALPT radius must be non-negative and finite, but is %g",
			ErrSynthesis, sigma,
		)
	}

	lpt := make([]float64, g.Volume)
	for i := range lpt {
		lpt[i] = lin[i] + 3.0/7*mu2[i]
	}

	lptModes := make([]complex128, g.Volume)
	effModes := make([]complex128, g.Volume)
	s.tr.Forward(lpt, lptModes)
	s.tr.Forward(eff, effModes)

	geom.Parallel(s.workers, g.Volume, func(_, low, high, jump int) {
		for idx := low; idx < high; idx += jump {
			ks := g.KMag(idx) * sigma
			w := math.Exp(-ks * ks / 2)
			lptModes[idx] = complex(w, 0)*lptModes[idx] +
				complex(1-w, 0)*effModes[idx]
		}
	})
	return lptModes, nil
}

// Divergence returns div(Psi), computed spectrally with the same derivative
// operator used to build displacement fields.
func (s *Synthesizer) Divergence(f *Field) []float64 {
	g := s.grid
	modes := s.componentModes(f)
	div := make([]complex128, g.Volume)
	for idx := range div {
		k := g.DerivK(idx)
		for a := 0; a < 3; a++ {
			div[idx] += complex(0, k[a]) * modes[a][idx]
		}
	}
	out := make([]float64, g.Volume)
	s.tr.Inverse(div, out)
	return out
}

// Curl returns the three components of curl(Psi), computed spectrally.
func (s *Synthesizer) Curl(f *Field) [3][]float64 {
	g := s.grid
	modes := s.componentModes(f)

	var curl [3][]complex128
	for a := range curl {
		curl[a] = make([]complex128, g.Volume)
	}
	for idx := 0; idx < g.Volume; idx++ {
		k := g.DerivK(idx)
		for a := 0; a < 3; a++ {
			b, c := (a+1)%3, (a+2)%3
			curl[a][idx] = complex(0, k[b])*modes[c][idx] -
				complex(0, k[c])*modes[b][idx]
		}
	}

	var out [3][]float64
	for a := range out {
		out[a] = make([]float64, g.Volume)
		s.tr.Inverse(curl[a], out[a])
	}
	return out
}

func (s *Synthesizer) componentModes(f *Field) [3][]complex128 {
	var modes [3][]complex128
	for a, c := range f.Components() {
		modes[a] = make([]complex128, s.grid.Volume)
		s.tr.Forward(c, modes[a])
	}
	return modes
}
