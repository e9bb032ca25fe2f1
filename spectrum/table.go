package spectrum

import (
	"fmt"
	"math"
	"strings"

	"github.com/phil-mansfield/table"

	"github.com/phil-mansfield/gomuscle/math/interpolate"
)

// Interpolation selects how a Tabulated spectrum is interpolated in log-log
// space.
type Interpolation int

const (
	Spline Interpolation = iota
	Linear
	EndInterpolation
)

var interpolationNames = []string{"Spline", "Linear"}

func (in Interpolation) String() string {
	if in < 0 || in >= EndInterpolation {
		return fmt.Sprintf("Interpolation(%d)", int(in))
	}
	return interpolationNames[in]
}

// ParseInterpolation returns the Interpolation with the given
// (case-insensitive) name.
func ParseInterpolation(name string) (Interpolation, error) {
	for in := Interpolation(0); in < EndInterpolation; in++ {
		if strings.EqualFold(in.String(), strings.TrimSpace(name)) {
			return in, nil
		}
	}
	return 0, fmt.Errorf(
		"Unrecognized interpolation '%s'. Must be one of [%s].",
		name, strings.Join(interpolationNames, " | "),
	)
}

// Tabulated interpolates a table of (k, P(k)) pairs in log-log space.
// Outside the table the interpolant is extrapolated as a power law from the
// nearest interval.
type Tabulated struct {
	intr       interpolate.Interpolator
	kMin, kMax float64
}

// NewTabulated creates a Tabulated spectrum from strictly increasing ks and
// strictly positive ps, interpolated with a cubic spline.
func NewTabulated(ks, ps []float64) (*Tabulated, error) {
	return NewTabulatedWith(ks, ps, Spline)
}

// NewTabulatedWith is identical to NewTabulated, but uses the given
// interpolation scheme.
func NewTabulatedWith(ks, ps []float64, in Interpolation) (*Tabulated, error) {
	if len(ks) != len(ps) {
		return nil, fmt.Errorf(
			"Power spectrum table has %d wavenumbers but %d powers.",
			len(ks), len(ps),
		)
	}

	lks, lps := make([]float64, len(ks)), make([]float64, len(ps))
	for i := range ks {
		if !(ks[i] > 0) || !(ps[i] > 0) ||
			math.IsInf(ks[i], 0) || math.IsInf(ps[i], 0) {
			return nil, fmt.Errorf(
				"%w: table row %d has k = %g, P = %g; both must be positive",
				ErrSpectrumDomain, i, ks[i], ps[i],
			)
		}
		lks[i], lps[i] = math.Log(ks[i]), math.Log(ps[i])
	}

	tab := &Tabulated{}
	var err error
	switch in {
	case Spline:
		tab.intr, err = interpolate.NewSpline(lks, lps)
	case Linear:
		tab.intr, err = interpolate.NewLinear(lks, lps)
	default:
		err = fmt.Errorf("Unrecognized interpolation %d.", int(in))
	}
	if err != nil {
		return nil, err
	}
	lo, hi := tab.intr.Range()
	tab.kMin, tab.kMax = math.Exp(lo), math.Exp(hi)
	return tab, nil
}

// ReadTabulated reads a whitespace-separated text table whose first two
// columns are k and P(k).
func ReadTabulated(fname string, in Interpolation) (*Tabulated, error) {
	cols, err := table.ReadTable(fname, []int{0, 1}, nil)
	if err != nil {
		return nil, err
	}
	return NewTabulatedWith(cols[0], cols[1], in)
}

// Range returns the range of wavenumbers covered by the table.
func (tab *Tabulated) Range() (kMin, kMax float64) { return tab.kMin, tab.kMax }

// Eval returns the interpolated power at k. It returns NaN for k <= 0.
func (tab *Tabulated) Eval(k float64) float64 {
	if !(k > 0) {
		return math.NaN()
	}
	return math.Exp(tab.intr.Eval(math.Log(k)))
}

// PowerSpectrum returns the table as a PowerSpectrum.
func (tab *Tabulated) PowerSpectrum() PowerSpectrum { return tab.Eval }
