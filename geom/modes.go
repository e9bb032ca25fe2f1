package geom

import (
	"math"
)

// Freq returns the signed integer frequency of the mode at lattice index i.
// Indices above Cells/2 alias to negative frequencies.
func (g *Grid) Freq(i int) int {
	if i > g.Cells/2 {
		return i - g.Cells
	}
	return i
}

// IsNyquist returns true if index i lies on the Nyquist plane of its axis.
// Only even grids have one.
func (g *Grid) IsNyquist(i int) bool {
	return g.Cells%2 == 0 && i == g.Cells/2
}

// FundamentalK returns the wavenumber of the longest non-trivial mode.
func (g *Grid) FundamentalK() float64 { return 2 * math.Pi / g.BoxWidth }

// K returns the wavevector of the mode stored at idx.
func (g *Grid) K(idx int) Vec {
	x, y, z := g.Coords(idx)
	kf := g.FundamentalK()
	return Vec{
		kf * float64(g.Freq(x)),
		kf * float64(g.Freq(y)),
		kf * float64(g.Freq(z)),
	}
}

// DerivK returns the wavevector used for first derivatives of the mode
// stored at idx. It is K(idx) with Nyquist components zeroed so that
// derivatives of real fields remain real.
func (g *Grid) DerivK(idx int) Vec {
	x, y, z := g.Coords(idx)
	k := g.K(idx)
	if g.IsNyquist(x) {
		k[0] = 0
	}
	if g.IsNyquist(y) {
		k[1] = 0
	}
	if g.IsNyquist(z) {
		k[2] = 0
	}
	return k
}

// KMag returns |k| for the mode stored at idx.
func (g *Grid) KMag(idx int) float64 {
	k := g.K(idx)
	return math.Sqrt(k[0]*k[0] + k[1]*k[1] + k[2]*k[2])
}

// Conjugate returns the index of the mode at -k. Hermitian fields satisfy
// f(Conjugate(idx)) = conj(f(idx)).
func (g *Grid) Conjugate(idx int) int {
	x, y, z := g.Coords(idx)
	return g.WrapIdx(-x, -y, -z)
}
