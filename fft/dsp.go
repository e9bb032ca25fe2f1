package fft

import (
	"github.com/mjibson/go-dsp/fft"
)

// dspFFT is a separable transform built from go-dsp's 1D FFT. go-dsp keeps
// shared factor caches, so lines are transformed on a single goroutine.
type dspFFT struct {
	n   int
	buf []complex128
	seq [][]complex128
}

func newDSP(n int) *dspFFT {
	return &dspFFT{n: n, buf: make([]complex128, n*n*n), seq: scratchLines(1, n)}
}

func (t *dspFFT) Cells() int { return t.n }

func (t *dspFFT) Forward(src []float64, dst []complex128) {
	toComplex(src, dst)
	lines3D(dst, t.n, 1, func(_ int, seq []complex128) {
		copy(seq, fft.FFT(seq))
	}, t.seq)
}

func (t *dspFFT) Inverse(src []complex128, dst []float64) {
	copy(t.buf, src)
	lines3D(t.buf, t.n, 1, func(_ int, seq []complex128) {
		// IFFT already divides by the line length.
		copy(seq, fft.IFFT(seq))
	}, t.seq)
	toReal(t.buf, dst, 1)
}
