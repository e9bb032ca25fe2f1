/*package fft defines the minimal 3D spectral transform used by the pipeline
and provides several interchangeable backends.

All backends share the same conventions. Arrays hold Cells^3 values in the
x-major ordering of geom.Grid and complex arrays hold every mode (no
half-complex packing). Forward is the unnormalized DFT,

    F(k) = sum_x f(x) exp(-i k.x),

and Inverse applies the 1/Cells^3 normalization and keeps the real part, so
Inverse(Forward(f)) == f.
*/
package fft

import (
	"fmt"
	"strings"

	"github.com/phil-mansfield/gomuscle/geom"
)

// Transform is a 3D real <-> complex transform on a cubic periodic grid.
type Transform interface {
	// Forward writes the DFT of src to dst.
	Forward(src []float64, dst []complex128)
	// Inverse writes the real part of the normalized inverse DFT of src to
	// dst. src is not modified.
	Inverse(src []complex128, dst []float64)
	// Cells returns the number of cells on one side of the grid.
	Cells() int
}

// Backend names a Transform implementation.
type Backend int

const (
	Gonum Backend = iota
	DSP
	Naive
	EndBackend
)

var backendNames = []string{"Gonum", "DSP", "Naive"}

func (b Backend) String() string {
	if b < 0 || b >= EndBackend {
		return fmt.Sprintf("Backend(%d)", int(b))
	}
	return backendNames[b]
}

// ParseBackend returns the Backend with the given (case-insensitive) name.
func ParseBackend(name string) (Backend, error) {
	for b := Backend(0); b < EndBackend; b++ {
		if strings.EqualFold(b.String(), strings.TrimSpace(name)) {
			return b, nil
		}
	}
	return 0, fmt.Errorf(
		"Unrecognized FFT backend '%s'. Must be one of [%s].",
		name, strings.Join(backendNames, " | "),
	)
}

// New returns a Transform of the given backend for grids with n cells on a
// side. Backends which can run in parallel use the given number of workers
// (runtime.NumCPU() if workers <= 0).
func New(backend Backend, n, workers int) (Transform, error) {
	if n < 2 {
		return nil, fmt.Errorf(
			"%w: %s transform needs at least 2 cells, got %d",
			geom.ErrInvalidGridSize, backend, n,
		)
	}

	switch backend {
	case Gonum:
		return newGonum(n, workers), nil
	case DSP:
		return newDSP(n), nil
	case Naive:
		return newNaive(n), nil
	}
	return nil, fmt.Errorf("Unrecognized FFT backend %d.", int(backend))
}

// lines3D runs a 1D complex transform along every axis of a grid. line is
// called with a gathered line of length n and must transform it in place.
// Workers own disjoint sets of lines.
func lines3D(
	buf []complex128, n, workers int,
	line func(id int, seq []complex128),
	scratch [][]complex128,
) {
	area := n * n
	strides := [3]int{1, n, area}

	for axis := 0; axis < 3; axis++ {
		stride := strides[axis]
		geom.Parallel(workers, area, func(id, low, high, jump int) {
			seq := scratch[id]
			for l := low; l < high; l += jump {
				start := lineStart(l, axis, n)
				for i := 0; i < n; i++ {
					seq[i] = buf[start+i*stride]
				}
				line(id, seq)
				for i := 0; i < n; i++ {
					buf[start+i*stride] = seq[i]
				}
			}
		})
	}
}

// lineStart returns the index of the first element of the l-th line along
// axis.
func lineStart(l, axis, n int) int {
	a, b := l%n, l/n
	switch axis {
	case 0:
		return a*n + b*n*n
	case 1:
		return a + b*n*n
	default:
		return a + b*n
	}
}

func toComplex(src []float64, dst []complex128) {
	for i, x := range src {
		dst[i] = complex(x, 0)
	}
}

func toReal(src []complex128, dst []float64, norm float64) {
	for i, c := range src {
		dst[i] = real(c) * norm
	}
}

func scratchLines(workers, n int) [][]complex128 {
	out := make([][]complex128, geom.Workers(workers))
	for i := range out {
		out[i] = make([]complex128, n)
	}
	return out
}
