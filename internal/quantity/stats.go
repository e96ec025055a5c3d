package quantity

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Status is the classification of one sample value.
type Status int

const (
	StatusNone Status = iota
	StatusOK
	StatusTooLow
	StatusTooHigh
	StatusNaN // extraction failed
	StatusInf // measurement missing
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTooLow:
		return "too low"
	case StatusTooHigh:
		return "too high"
	case StatusNaN:
		return "failed"
	case StatusInf:
		return "missing"
	default:
		return "none"
	}
}

// Failed reports whether the status marks a value without a number.
func (s Status) Failed() bool { return s == StatusNaN || s == StatusInf }

// Summary slots addressed by GetValue past the last sample.
const (
	slotMedian = iota
	slotMean
	slotStd
	slotSelected
	slotYield
)

var statsLabels = []string{"Median", "Average", "Std dev.", "OK/Tot.", "OK (rel)"}

// StatsLabels returns the table labels of the summary slots, in slot order.
func StatsLabels() []string {
	return append([]string(nil), statsLabels...)
}

// Stats summarizes a quantity over the batch. All values are in display
// units. Tot* are over every finite value, Sel* over the values inside the
// acceptance interval.
type Stats struct {
	Values   []float64 // selected values
	NTot     int       // samples with a measurement (non-Inf)
	NNan     int
	NTooHigh int
	NTooLow  int
	TotAvg   float64
	TotStd   float64 // population standard deviation
	TotMed   float64
	SelAvg   float64
	SelStd   float64
	SelMed   float64
}

// Selected returns the number of values inside the acceptance interval.
func (s Stats) Selected() int { return len(s.Values) }

// Yield returns the fraction of measured samples inside the acceptance interval.
func (s Stats) Yield() float64 {
	if s.NTot == 0 {
		return math.NaN()
	}
	return float64(len(s.Values)) / float64(s.NTot)
}

// degenerateStats is returned when fewer than two finite values exist.
func degenerateStats() Stats {
	return Stats{Values: []float64{0}, NTot: 1, NNan: 1}
}

// GetStats computes the batch statistics against the quantity's own bounds.
func (q *Quantity) GetStats() Stats {
	return q.GetStatsWithin(q.MinAllowed(), q.MaxAllowed())
}

// GetStatsWithin computes the batch statistics with the given acceptance
// bounds. Values at or above maxAllowed are removed first and counted as too
// high, then values at or below minAllowed among the rest as too low.
func (q *Quantity) GetStatsWithin(minAllowed, maxAllowed float64) Stats {
	nTot := 0
	var finite []float64
	for _, v := range q.values {
		if math.IsInf(v, 0) {
			continue
		}
		nTot++
		if !math.IsNaN(v) {
			finite = append(finite, v*q.Multiplier)
		}
	}
	if len(finite) < 2 {
		return degenerateStats()
	}

	st := Stats{NTot: nTot, NNan: nTot - len(finite)}
	st.TotAvg, st.TotStd = stat.PopMeanStdDev(finite, nil)
	st.TotMed = median(finite)

	belowMax := make([]float64, 0, len(finite))
	for _, v := range finite {
		if v < maxAllowed {
			belowMax = append(belowMax, v)
		}
	}
	st.NTooHigh = len(finite) - len(belowMax)

	sel := make([]float64, 0, len(belowMax))
	for _, v := range belowMax {
		if v > minAllowed {
			sel = append(sel, v)
		}
	}
	st.NTooLow = len(belowMax) - len(sel)
	st.Values = sel

	if len(sel) == 0 {
		st.SelAvg, st.SelStd, st.SelMed = math.NaN(), math.NaN(), math.NaN()
		return st
	}
	st.SelAvg, st.SelStd = stat.PopMeanStdDev(sel, nil)
	st.SelMed = median(sel)
	return st
}

// median averages the two middle values of an even-length sample.
func median(x []float64) float64 {
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// FormatNumber renders num with two decimals when base is below 10 and one
// decimal otherwise, so all values of a quantity share the precision of its
// expected value.
func FormatNumber(num, base float64) string {
	if base < 10 {
		return fmt.Sprintf("%4.2f", num)
	}
	return fmt.Sprintf("%4.1f", num)
}
