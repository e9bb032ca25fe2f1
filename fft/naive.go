package fft

import (
	"math"
	"math/cmplx"
)

// naiveDFT evaluates the DFT sum directly along each axis. It is O(n^4) and
// only meant as a reference for small grids.
type naiveDFT struct {
	n     int
	twid  []complex128
	buf   []complex128
	seq   [][]complex128
	accum []complex128
}

func newNaive(n int) *naiveDFT {
	t := &naiveDFT{
		n: n, twid: make([]complex128, n),
		buf: make([]complex128, n*n*n), seq: scratchLines(1, n),
		accum: make([]complex128, n),
	}
	for i := range t.twid {
		t.twid[i] = cmplx.Exp(complex(0, -2*math.Pi*float64(i)/float64(n)))
	}
	return t
}

func (t *naiveDFT) Cells() int { return t.n }

func (t *naiveDFT) dft(seq []complex128, inverse bool) {
	n := t.n
	for k := 0; k < n; k++ {
		sum := complex(0, 0)
		for j := 0; j < n; j++ {
			w := t.twid[(j*k)%n]
			if inverse {
				w = cmplx.Conj(w)
			}
			sum += seq[j] * w
		}
		t.accum[k] = sum
	}
	copy(seq, t.accum)
}

func (t *naiveDFT) Forward(src []float64, dst []complex128) {
	toComplex(src, dst)
	lines3D(dst, t.n, 1, func(_ int, seq []complex128) {
		t.dft(seq, false)
	}, t.seq)
}

func (t *naiveDFT) Inverse(src []complex128, dst []float64) {
	copy(t.buf, src)
	lines3D(t.buf, t.n, 1, func(_ int, seq []complex128) {
		t.dft(seq, true)
	}, t.seq)
	toReal(t.buf, dst, 1/float64(len(t.buf)))
}
