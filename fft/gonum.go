package fft

import (
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/phil-mansfield/gomuscle/geom"
)

// gonumFFT is a separable transform built from gonum's 1D complex FFT. Each
// worker owns its own plan since plans carry internal work arrays.
type gonumFFT struct {
	n, workers int
	plans      []*fourier.CmplxFFT
	in, out    [][]complex128
	buf        []complex128
}

func newGonum(n, workers int) *gonumFFT {
	workers = geom.Workers(workers)
	t := &gonumFFT{
		n: n, workers: workers,
		plans: make([]*fourier.CmplxFFT, workers),
		in:    scratchLines(workers, n),
		out:   scratchLines(workers, n),
		buf:   make([]complex128, n*n*n),
	}
	for i := range t.plans {
		t.plans[i] = fourier.NewCmplxFFT(n)
	}
	return t
}

func (t *gonumFFT) Cells() int { return t.n }

func (t *gonumFFT) Forward(src []float64, dst []complex128) {
	toComplex(src, dst)
	lines3D(dst, t.n, t.workers, func(id int, seq []complex128) {
		t.plans[id].Coefficients(t.out[id], seq)
		copy(seq, t.out[id])
	}, t.in)
}

func (t *gonumFFT) Inverse(src []complex128, dst []float64) {
	copy(t.buf, src)
	lines3D(t.buf, t.n, t.workers, func(id int, seq []complex128) {
		// Sequence is unnormalized.
		t.plans[id].Sequence(t.out[id], seq)
		copy(seq, t.out[id])
	}, t.in)
	toReal(t.buf, dst, 1/float64(len(t.buf)))
}
