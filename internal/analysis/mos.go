package analysis

import (
	"fmt"
	"math"
)

// mosDepletionHalfWidth is the voltage window around the derivative peak
// used as the depletion region of a MOS capacitor.
const mosDepletionHalfWidth = 0.25

// GCD region thresholds on the normalized current derivative.
const (
	gcdAccCut      = 0.05
	gcdTransMin    = 0.008
	gcdRegionCut   = 0.3
	gcdFallbackLen = 5
	gcdDepFitLen   = 10
	gcdInvFitLen   = 5
	gcdMeanLen     = 10
)

// AnalyseMOS extracts flatband voltage, oxide thickness and oxide charge from
// a MOS capacitor CV curve.
func AnalyseMOS(v, c []float64, cut float64) MOSResult {
	res := MOSResult{
		VFb1: Sentinel, VFb2: Sentinel, TOx: Sentinel, NOx: Sentinel, QOx: Sentinel,
		CAcc: Sentinel, CInv: Sentinel,
		AAcc: Sentinel, BAcc: Sentinel, ADep: Sentinel, BDep: Sentinel, AInv: Sentinel, BInv: Sentinel,
	}
	fail := func(err error) MOSResult {
		res.Status, res.Err = StatusFailed, err
		return res
	}

	if err := checkCurve(v, c); err != nil {
		return fail(err)
	}
	res.CAcc = mean(tail(c, 5))
	res.CInv = mean(head(c, 5))

	deriv, err := Derivative(Normalize(c), DerivativeSpline)
	if err != nil {
		return fail(err)
	}
	res.Derivative = deriv

	vPeak := v[argmax(deriv)]
	vTrough := v[argmin(deriv)]
	idxAcc := Select(deriv, func(k int, d float64) bool { return math.Abs(d) < cut && v[k] > vPeak })
	idxDep := Select(deriv, func(k int, _ float64) bool {
		return v[k] > vPeak-mosDepletionHalfWidth && v[k] < vPeak+mosDepletionHalfWidth
	})
	idxInv := Select(deriv, func(k int, d float64) bool { return math.Abs(d) < cut && v[k] < vTrough })

	vAcc, cAcc, err := region(v, c, idxAcc)
	if err != nil {
		return fail(fmt.Errorf("accumulation region: %w", err))
	}
	vDep, cDep, err := region(v, c, idxDep)
	if err != nil {
		return fail(fmt.Errorf("depletion region: %w", err))
	}
	vInv, cInv, err := region(v, c, idxInv)
	if err != nil {
		return fail(fmt.Errorf("inversion region: %w", err))
	}
	res.VAcc, res.VDep, res.VInv = vAcc, vDep, vInv

	if res.AAcc, res.BAcc, err = fitLine(vAcc, cAcc); err != nil {
		return fail(fmt.Errorf("accumulation region: %w", err))
	}
	if res.ADep, res.BDep, err = fitLine(vDep, cDep); err != nil {
		return fail(fmt.Errorf("depletion region: %w", err))
	}
	if res.AInv, res.BInv, err = fitLine(vInv, cInv); err != nil {
		return fail(fmt.Errorf("inversion region: %w", err))
	}
	if res.ADep == res.AAcc {
		return fail(fmt.Errorf("%w: accumulation and depletion lines are parallel", ErrDegenerateFit))
	}

	res.VFb1 = vPeak
	res.VFb2 = (res.BAcc - res.BDep) / (res.ADep - res.AAcc)

	res.CAcc = mean(cAcc)
	res.CInv = mean(cInv)
	gateAreaCm2 := MOSGateSideCm * MOSGateSideCm
	res.NOx = res.CAcc / (ElementaryCharge * gateAreaCm2) * (WorkFunctionDiff + res.VFb2)
	res.TOx = RelPermittivitySiO2 * VacuumPermittivity * MOSGateSide * MOSGateSide / res.CAcc
	res.QOx = ElementaryCharge * res.NOx * gateAreaCm2
	res.Status = StatusPassed
	return res
}

// AnalyseGCD extracts surface and bulk generation currents from a gate
// controlled diode IV sweep. The accumulation, transition, depletion and
// inversion regions are located from the Savitzky-Golay derivative of |I|
// together with their position relative to the current minimum. Empty
// accumulation, depletion or inversion regions fall back to five samples at
// the start, at the current minimum or at the end of the sweep.
func AnalyseGCD(v, i []float64) GCDResult {
	res := GCDResult{
		ISurf: Sentinel, IBulk: Sentinel, S0: Sentinel,
		AAcc: Sentinel, BAcc: Sentinel, ADep: Sentinel, BDep: Sentinel, AInv: Sentinel, BInv: Sentinel,
		VFb2: Sentinel, VFb3: Sentinel, IAccMean: Sentinel, IDepMean: Sentinel, IInvMean: Sentinel,
	}
	fail := func(err error) GCDResult {
		res.Status, res.Err = StatusFailed, err
		return res
	}

	if err := checkCurve(v, i); err != nil {
		return fail(err)
	}
	deriv, err := Derivative(Normalize(absAll(i)), DerivativeSavGol)
	if err != nil {
		return fail(err)
	}
	res.Derivative = deriv

	seg, err := gcdRegions(v, i, deriv)
	if err != nil {
		return fail(err)
	}
	res.VAcc, res.VTrans, res.VDep, res.VInv = seg.vAcc, seg.vTrans, seg.vDep, seg.vInv
	res.IAcc, res.IDep, res.IInv = seg.iAcc, seg.iDep, seg.iInv

	if err := fitGCD(&res, seg); err != nil {
		return fail(err)
	}
	res.Status = StatusPassed
	return res
}

// gcdSegments holds the GCD regions as voltage and current slices.
type gcdSegments struct {
	vAcc, iAcc     []float64
	vTrans, iTrans []float64
	vDep, iDep     []float64
	vInv, iInv     []float64
}

// gcdRegions locates the GCD regions on deriv. Only an empty transition
// region is an error.
func gcdRegions(v, i, deriv []float64) (gcdSegments, error) {
	var seg gcdSegments
	kPeak := argmax(deriv)
	vPeak := v[kPeak]
	vBeforePeak := v[max(kPeak-1, 0)]
	vTrough := v[argmin(deriv)]
	kMinI := argmin(i)
	vMinI := v[kMinI]

	idxAcc := Select(deriv, func(k int, d float64) bool { return math.Abs(d) < gcdAccCut && v[k] < vPeak })
	idxTrans := Select(deriv, func(k int, d float64) bool {
		a := math.Abs(d)
		return a > gcdTransMin && a < gcdRegionCut && v[k] >= vBeforePeak && v[k] < vMinI
	})
	idxDep := Select(deriv, func(k int, d float64) bool {
		return math.Abs(d) < gcdRegionCut && v[k] >= vMinI && v[k] < vTrough
	})
	idxInv := Select(deriv, func(k int, d float64) bool { return math.Abs(d) < gcdRegionCut && v[k] >= vTrough })

	var err error
	if seg.vTrans, seg.iTrans, err = region(v, i, idxTrans); err != nil {
		return seg, fmt.Errorf("transition region: %w", err)
	}
	if seg.vAcc, seg.iAcc, err = region(v, i, idxAcc); err != nil {
		seg.vAcc, seg.iAcc = head(v, gcdFallbackLen), head(i, gcdFallbackLen)
	}
	if seg.vDep, seg.iDep, err = region(v, i, idxDep); err != nil {
		end := min(kMinI+gcdFallbackLen, len(v))
		seg.vDep, seg.iDep = v[kMinI:end], i[kMinI:end]
	}
	if seg.vInv, seg.iInv, err = region(v, i, idxInv); err != nil {
		seg.vInv, seg.iInv = tail(v, gcdFallbackLen), tail(i, gcdFallbackLen)
	}
	return seg, nil
}

// fitGCD fits the transition, depletion and inversion lines of seg and fills
// the derived quantities of res. The generation currents do not depend on
// the line intersections.
func fitGCD(res *GCDResult, seg gcdSegments) error {
	var err error
	if res.AAcc, res.BAcc, err = fitLine(seg.vTrans, seg.iTrans); err != nil {
		return fmt.Errorf("transition region: %w", err)
	}
	if res.ADep, res.BDep, err = fitLine(head(seg.vDep, gcdDepFitLen), head(seg.iDep, gcdDepFitLen)); err != nil {
		return fmt.Errorf("depletion region: %w", err)
	}
	if res.AInv, res.BInv, err = fitLine(head(seg.vInv, gcdInvFitLen), head(seg.iInv, gcdInvFitLen)); err != nil {
		return fmt.Errorf("inversion region: %w", err)
	}
	// parallel lines have no intersection; the flatband stays Sentinel
	if res.ADep != res.AAcc {
		res.VFb2 = (res.BAcc - res.BDep) / (res.ADep - res.AAcc)
	}
	if res.ADep != res.AInv {
		res.VFb3 = (res.BInv - res.BDep) / (res.ADep - res.AInv)
	}

	res.ISurf = mean(head(seg.iDep, gcdMeanLen)) - mean(tail(seg.iInv, gcdMeanLen))
	res.IBulk = mean(seg.iInv) - mean(seg.iAcc)
	res.S0 = res.ISurf / (ElementaryCharge * IntrinsicCarrierDensity * GCDGateArea)
	res.IAccMean, res.IDepMean, res.IInvMean = mean(seg.iAcc), mean(seg.iDep), mean(seg.iInv)
	return nil
}

// AnalyseFET extracts the threshold voltage of a field effect transistor from
// the root of the tangent at the point of maximum derivative. The tangent
// slope is the finite difference to the preceding sample.
func AnalyseFET(v, i []float64) FETResult {
	res := FETResult{VTh: Sentinel, A: Sentinel, B: Sentinel}
	fail := func(err error) FETResult {
		res.Status, res.Err = StatusFailed, err
		return res
	}

	if err := checkCurve(v, i); err != nil {
		return fail(err)
	}
	if len(v) < 2 {
		return fail(fmt.Errorf("%w: need two samples for a tangent", ErrTooShort))
	}
	deriv, err := Derivative(Normalize(i), DerivativeSpline)
	if err != nil {
		return fail(err)
	}
	res.Derivative = deriv

	k := argmax(deriv)
	prev := k - 1
	if prev < 0 {
		prev = k + 1
	}
	a := (i[k] - i[prev]) / (v[k] - v[prev])
	if a == 0 || math.IsNaN(a) || math.IsInf(a, 0) {
		return fail(fmt.Errorf("%w: tangent slope %g", ErrDegenerateFit, a))
	}
	res.A = a
	res.B = i[k] - a*v[k]
	res.VTh = -res.B / res.A
	res.Status = StatusPassed
	return res
}

// region slices v and y to the contiguous span covered by idx.
func region(v, y []float64, idx []int) ([]float64, []float64, error) {
	lo, hi, err := Span(idx, 0, 0)
	if err != nil {
		return nil, nil, err
	}
	return v[lo:hi], y[lo:hi], nil
}
