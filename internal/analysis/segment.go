package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"
)

// DerivativeMode selects how the first derivative of a normalized curve is
// estimated.
type DerivativeMode int

const (
	// DerivativeSpline differentiates a cubic interpolating spline. Exact, but
	// follows every wiggle of a noisy curve.
	DerivativeSpline DerivativeMode = iota
	// DerivativeSavGol uses a first order Savitzky-Golay filter.
	DerivativeSavGol
)

// Normalize divides y by its largest absolute value. An all-zero curve is
// returned as zeros.
func Normalize(y []float64) []float64 {
	out := make([]float64, len(y))
	if len(y) == 0 {
		return out
	}
	maxAbs := 0.0
	for _, v := range y {
		if a := math.Abs(v); a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs == 0 || math.IsNaN(maxAbs) {
		return out
	}
	copy(out, y)
	floats.Scale(1/maxAbs, out)
	return out
}

// InverseSquare returns 1/y² element-wise, the usual transform for C-V curves.
func InverseSquare(y []float64) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = 1 / (v * v)
	}
	return out
}

// SavGolWindow is the odd filter window used for a curve of n samples.
func SavGolWindow(n int) int {
	return 2*(n/40+1) + 1
}

// Derivative returns the first derivative of y with respect to the sample
// index.
func Derivative(y []float64, mode DerivativeMode) ([]float64, error) {
	switch mode {
	case DerivativeSpline:
		return splineDerivative(y)
	case DerivativeSavGol:
		return savgolDerivative(y, SavGolWindow(len(y)))
	default:
		return nil, fmt.Errorf("unknown derivative mode %d", mode)
	}
}

type derivativePredictor interface {
	Fit(xs, ys []float64) error
	PredictDerivative(x float64) float64
}

func splineDerivative(y []float64) ([]float64, error) {
	xs := make([]float64, len(y))
	for i := range xs {
		xs[i] = float64(i)
	}

	d := make([]float64, len(y))
	switch len(y) {
	case 0, 1:
		return nil, fmt.Errorf("%w: spline needs at least 2 samples, got %d", ErrTooShort, len(y))
	case 2:
		// the interpolating spline through two knots is the line between them
		d[0] = y[1] - y[0]
		d[1] = d[0]
		return d, nil
	}

	// interp panics on fewer than 3 knots; a singular not-a-knot system
	// falls back to natural end conditions
	var spl derivativePredictor = &interp.NotAKnotCubic{}
	if err := spl.Fit(xs, y); err != nil {
		spl = &interp.NaturalCubic{}
		if err := spl.Fit(xs, y); err != nil {
			return nil, fmt.Errorf("%w: spline fit: %v", ErrDegenerateFit, err)
		}
	}

	for i, x := range xs {
		d[i] = spl.PredictDerivative(x)
	}
	return d, nil
}

// savgolDerivative evaluates the slope of a least-squares line over a sliding
// window. The first and last half-windows reuse the slope of the edge window.
func savgolDerivative(y []float64, window int) ([]float64, error) {
	n := len(y)
	if window%2 == 0 || window < 3 {
		return nil, fmt.Errorf("savgol window must be odd and >= 3, got %d", window)
	}
	if n < window {
		return nil, fmt.Errorf("%w: %d samples, savgol window %d", ErrTooShort, n, window)
	}

	offsets := make([]float64, window)
	for k := range offsets {
		offsets[k] = float64(k)
	}
	slope := func(start int) float64 {
		_, beta := stat.LinearRegression(offsets, y[start:start+window], nil, false)
		return beta
	}

	half := window / 2
	d := make([]float64, n)
	head, tail := slope(0), slope(n-window)
	for i := 0; i < n; i++ {
		switch {
		case i < half:
			d[i] = head
		case i >= n-half:
			d[i] = tail
		default:
			d[i] = slope(i - half)
		}
	}
	return d, nil
}

// Select returns the indices of deriv for which keep is true.
func Select(deriv []float64, keep func(i int, d float64) bool) []int {
	var idx []int
	for i, d := range deriv {
		if keep(i, d) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Rising returns the indices where |deriv| > cut.
func Rising(deriv []float64, cut float64) []int {
	return Select(deriv, func(_ int, d float64) bool { return math.Abs(d) > cut })
}

// Flat returns the indices where |deriv| < cut.
func Flat(deriv []float64, cut float64) []int {
	return Select(deriv, func(_ int, d float64) bool { return math.Abs(d) < cut })
}

// Span converts a sorted index list into the half-open slice bounds running
// from its (skipHead)th entry to its (skipTail)th-from-last entry inclusive.
func Span(idx []int, skipHead, skipTail int) (lo, hi int, err error) {
	last := len(idx) - 1 - skipTail
	if len(idx) == 0 || skipHead >= len(idx) || last < 0 {
		return 0, 0, fmt.Errorf("%w: %d candidate samples, skipping %d+%d", ErrEmptyRegion, len(idx), skipHead, skipTail)
	}
	lo, hi = idx[skipHead], idx[last]+1
	if hi <= lo {
		return 0, 0, fmt.Errorf("%w: span [%d, %d) is empty", ErrEmptyRegion, lo, hi)
	}
	return lo, hi, nil
}

func argmax(y []float64) int {
	if len(y) == 0 {
		return -1
	}
	return floats.MaxIdx(y)
}

func argmin(y []float64) int {
	if len(y) == 0 {
		return -1
	}
	return floats.MinIdx(y)
}

func absAll(y []float64) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = math.Abs(v)
	}
	return out
}

func checkCurve(x, y []float64) error {
	if len(x) != len(y) {
		return fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(x), len(y))
	}
	if len(x) == 0 {
		return fmt.Errorf("%w: no samples", ErrTooShort)
	}
	return nil
}
