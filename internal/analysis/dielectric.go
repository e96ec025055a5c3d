package analysis

import (
	"fmt"
	"sort"
)

// AnalyseBreakdown returns the oxide breakdown voltage: the voltage of the
// sample with the largest current magnitude.
func AnalyseBreakdown(v, i []float64) BreakdownResult {
	if err := checkCurve(v, i); err != nil {
		return BreakdownResult{VBd: Sentinel, Status: StatusFailed, Err: err}
	}
	return BreakdownResult{VBd: v[argmax(absAll(i))], Status: StatusPassed}
}

// AnalyseCapacitor returns mean and median capacitance of a test capacitor and
// the dielectric thickness derived from the median.
func AnalyseCapacitor(v, c []float64) CapacitorResult {
	res := CapacitorResult{CMean: Sentinel, CMedian: Sentinel, D: Sentinel}
	if err := checkCurve(v, c); err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}

	res.CMean = mean(c)
	res.CMedian = median(c)
	if res.CMedian == 0 {
		res.Status, res.Err = StatusFailed, fmt.Errorf("%w: median capacitance is zero", ErrDegenerateFit)
		return res
	}
	res.D = RelPermittivitySiO2 * VacuumPermittivity * CapacitorArea / res.CMedian
	res.Status = StatusPassed
	return res
}

func median(y []float64) float64 {
	s := append([]float64(nil), y...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
