package analysis

import (
	"fmt"
	"math"
)

// vdpFactor converts the V/I slope of a Van der Pauw measurement into a sheet
// resistance.
var vdpFactor = math.Pi / math.Ln2

// AnalyseVanDerPauw extracts the sheet resistance of a Van der Pauw structure
// from an (i, v) sweep.
func AnalyseVanDerPauw(i, v []float64, cut float64) SheetResult {
	res := SheetResult{RSheet: Sentinel, FitResult: LineFitWithCut(i, v, cut)}
	if res.Passed() {
		res.RSheet = vdpFactor * res.Slope
	}
	return res
}

// AnalyseCross extracts the sheet resistance of a cross structure. The
// evaluation is identical to Van der Pauw.
func AnalyseCross(i, v []float64, cut float64) SheetResult {
	return AnalyseVanDerPauw(i, v, cut)
}

// AnalyseLinewidth extracts the linewidth in um from an (i, v) sweep and the
// sheet resistance of the same layer. An invalid sheet resistance makes the
// linewidth invalid without looking at the fit.
func AnalyseLinewidth(i, v []float64, rSheet, cut float64) LinewidthResult {
	res := LinewidthResult{TLine: Sentinel, FitResult: LineFitWithCut(i, v, cut)}
	if !IsValid(rSheet) {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("%w: %g", ErrInvalidSheetResistance, rSheet)
		return res
	}
	if res.Passed() {
		res.TLine = rSheet * LinewidthLength / res.Slope
	}
	return res
}

// AnalyseCBKR extracts the contact resistance of a cross bridge Kelvin
// structure, correcting the measured slope for the current spreading in the
// diffusion around the contact.
func AnalyseCBKR(i, v []float64, rSheet, cut float64) ContactResult {
	res := ContactResult{RContact: Sentinel, FitResult: LineFitWithCut(i, v, cut)}
	if !IsValid(rSheet) {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("%w: %g", ErrInvalidSheetResistance, rSheet)
		return res
	}
	if res.Passed() {
		d, w := CBKRContactSize, CBKRDiffWidth
		res.RContact = res.Slope - (4*rSheet*d*d)/(3*w*w)*(1+d/(2*w-2*d))
	}
	return res
}

// AnalyseContact extracts the resistance of a contact chain.
func AnalyseContact(i, v []float64, cut float64) ContactResult {
	res := ContactResult{RContact: Sentinel, FitResult: LineFitWithCut(i, v, cut)}
	if res.Passed() {
		res.RContact = res.Slope
	}
	return res
}

// AnalyseMeander extracts the specific resistance per square of a meander.
func AnalyseMeander(i, v []float64, kind MeanderKind) MeanderResult {
	res := MeanderResult{RhoSq: Sentinel, FitResult: LineFitWithCut(i, v, DefaultLinearCut)}
	if res.Passed() {
		width, squares := kind.Geometry()
		res.RhoSq = res.Slope * width * squares
	}
	return res
}
