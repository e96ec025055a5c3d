package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// FitResult is the outcome of LineFitWithCut. On failure Slope and Intercept
// hold Sentinel and XFit is nil; Status is authoritative either way.
type FitResult struct {
	Slope      float64
	Intercept  float64
	XFit       []float64 // x values used by the fit
	Derivative []float64 // derivative of the normalized y curve
	Status     Status
	Err        error
}

// Passed reports whether the fit succeeded.
func (r FitResult) Passed() bool { return r.Status == StatusPassed }

// fitLine performs an ordinary least-squares fit y = slope*x + intercept.
func fitLine(x, y []float64) (slope, intercept float64, err error) {
	if len(x) != len(y) {
		return Sentinel, Sentinel, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(x), len(y))
	}
	if len(x) == 0 {
		return Sentinel, Sentinel, ErrEmptyRegion
	}
	if len(x) < minFitPoints {
		return Sentinel, Sentinel, fmt.Errorf("%w: got %d, need %d", ErrTooFewPoints, len(x), minFitPoints)
	}
	if stat.Variance(x, nil) == 0 {
		return Sentinel, Sentinel, fmt.Errorf("%w: x values are all equal", ErrDegenerateFit)
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) || math.IsInf(alpha, 0) || math.IsInf(beta, 0) {
		return Sentinel, Sentinel, fmt.Errorf("%w: non-finite coefficients", ErrDegenerateFit)
	}
	return beta, alpha, nil
}

// LineFitWithCut fits a line to the part of (x, y) where the normalized y
// curve is rising: the contiguous span from the first to the last sample
// whose spline derivative magnitude exceeds cut.
func LineFitWithCut(x, y []float64, cut float64) FitResult {
	res := FitResult{Slope: Sentinel, Intercept: Sentinel, Status: StatusNone}
	fail := func(err error) FitResult {
		res.Status = StatusFailed
		res.Err = err
		return res
	}

	if err := checkCurve(x, y); err != nil {
		return fail(err)
	}
	deriv, err := Derivative(Normalize(y), DerivativeSpline)
	if err != nil {
		return fail(err)
	}
	res.Derivative = deriv

	lo, hi, err := Span(Rising(deriv, cut), 0, 0)
	if err != nil {
		return fail(err)
	}
	slope, intercept, err := fitLine(x[lo:hi], y[lo:hi])
	if err != nil {
		return fail(err)
	}

	res.Slope, res.Intercept = slope, intercept
	res.XFit = x[lo:hi]
	res.Status = StatusPassed
	return res
}

func mean(y []float64) float64 {
	if len(y) == 0 {
		return math.NaN()
	}
	return stat.Mean(y, nil)
}

func head(y []float64, n int) []float64 {
	if n > len(y) {
		n = len(y)
	}
	return y[:n]
}

func tail(y []float64, n int) []float64 {
	if n > len(y) {
		n = len(y)
	}
	return y[len(y)-n:]
}
