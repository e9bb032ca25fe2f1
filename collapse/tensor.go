package collapse

import (
	"github.com/phil-mansfield/gomuscle/density"
	"github.com/phil-mansfield/gomuscle/fft"
	"github.com/phil-mansfield/gomuscle/geom"
	"github.com/phil-mansfield/gomuscle/math/mat"
)

// Tensor is the deformation tensor T_ab = -d_a d_b phi of a field, where
// lap(phi) = -delta, so that tr T = delta. Components are stored as six
// real-space grids in mat.Sym3 order.
type Tensor struct {
	Grid       *geom.Grid
	Components [6][]float64
}

var axes = [6][2]int{
	mat.XX: {0, 0}, mat.YY: {1, 1}, mat.ZZ: {2, 2},
	mat.XY: {0, 1}, mat.XZ: {0, 2}, mat.YZ: {1, 2},
}

// NewTensor computes the deformation tensor of f. Off-diagonal components
// use the Nyquist-zeroed derivative wavevector so that they stay real.
func NewTensor(f *density.Field, tr fft.Transform, workers int) *Tensor {
	g := f.Grid
	t := &Tensor{Grid: g}
	modes := make([]complex128, g.Volume)

	for c, ax := range axes {
		a, b := ax[0], ax[1]
		geom.Parallel(workers, g.Volume, func(_, low, high, jump int) {
			for idx := low; idx < high; idx += jump {
				k := g.K(idx)
				k2 := k[0]*k[0] + k[1]*k[1] + k[2]*k[2]
				if k2 == 0 {
					modes[idx] = 0
					continue
				}
				if a != b {
					k = g.DerivK(idx)
				}
				modes[idx] = f.Modes[idx] * complex(k[a]*k[b]/k2, 0)
			}
		})
		t.Components[c] = make([]float64, g.Volume)
		tr.Inverse(modes, t.Components[c])
	}

	return t
}

// At returns the tensor at cell idx.
func (t *Tensor) At(idx int) mat.Sym3 {
	var m mat.Sym3
	for c := range m {
		m[c] = t.Components[c][idx]
	}
	return m
}

// SecondOrder returns l1 l2 + l1 l3 + l2 l3 at every cell, the source term
// of the second-order Lagrangian displacement.
func (t *Tensor) SecondOrder(workers int) []float64 {
	out := make([]float64, t.Grid.Volume)
	geom.Parallel(workers, len(out), func(_, low, high, jump int) {
		for idx := low; idx < high; idx += jump {
			m := t.At(idx)
			out[idx] = m.Minors()
		}
	})
	return out
}
