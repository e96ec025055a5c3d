package analysis

import (
	"fmt"
	"math"
)

// Target voltages for the diode IV standard currents.
const (
	iv800 = 800.0
	iv600 = 600.0
)

// Boundary samples dropped from the CV regions to stay clear of edge
// artifacts of the filter and the kink at full depletion.
const (
	cvRiseSkipHead  = 30
	cvRiseSkipTail  = 5
	cvConstSkipHead = 5
	cvConstSkipTail = 9
)

// AnalyseIV extracts the current in standard situation from a diode IV curve.
// Currents at 800 V and 600 V are taken only from a sample measured exactly
// at that voltage, never interpolated.
func AnalyseIV(v, i []float64) IVResult {
	res := IVResult{VMax: Sentinel, IMax: Sentinel, I800: Sentinel, I600: Sentinel}
	if err := checkCurve(v, i); err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}

	k := argmax(absAll(v))
	res.VMax, res.IMax = v[k], i[k]
	res.I800 = currentAt(v, i, iv800)
	res.I600 = currentAt(v, i, iv600)
	res.Status = StatusPassed
	return res
}

func currentAt(v, i []float64, target float64) float64 {
	found := Sentinel
	n := 0
	for k := range v {
		if math.Abs(v[k]) == target {
			found = i[k]
			n++
		}
	}
	if n != 1 {
		return Sentinel
	}
	return found
}

// CVOptions are the structure constants of a diode CV measurement.
type CVOptions struct {
	Area    float64 // implant area, m^2
	Carrier Carrier
	Cut     float64 // cut on the normalized derivative of 1/C²
}

// DefaultCVOptions returns the constants of the standard PQC diode.
func DefaultCVOptions() CVOptions {
	return CVOptions{Area: DefaultDiodeArea, Carrier: CarrierElectrons, Cut: DefaultCVCut}
}

func mobility(c Carrier) (float64, error) {
	switch c {
	case CarrierHoles:
		return MobilityHoles, nil
	case CarrierElectrons:
		return MobilityElectrons, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidCarrier, c)
	}
}

// AnalyseCV extracts the full depletion voltage, resistivity and doping
// concentration from a diode CV curve. The curve is transformed to 1/C², the
// rising and flat regions are located on its Savitzky-Golay derivative and a
// line is fitted to each.
func AnalyseCV(v, c []float64, opts CVOptions) CVResult {
	res := CVResult{
		VDep1: Sentinel, VDep2: Sentinel, Rho: Sentinel, Conc: Sentinel,
		ARise: Sentinel, BRise: Sentinel, AConst: Sentinel, BConst: Sentinel,
	}
	fail := func(err error) CVResult {
		res.Status, res.Err = StatusFailed, err
		return res
	}

	if err := checkCurve(v, c); err != nil {
		return fail(err)
	}
	c2 := InverseSquare(c)
	deriv, err := Derivative(Normalize(c2), DerivativeSavGol)
	if err != nil {
		return fail(err)
	}
	res.Derivative = deriv

	loR, hiR, err := Span(Rising(deriv, opts.Cut), cvRiseSkipHead, cvRiseSkipTail)
	if err != nil {
		return fail(fmt.Errorf("rise region: %w", err))
	}
	loC, hiC, err := Span(Flat(deriv, opts.Cut), cvConstSkipHead, cvConstSkipTail)
	if err != nil {
		return fail(fmt.Errorf("plateau region: %w", err))
	}
	res.VRise, res.VConst = v[loR:hiR], v[loC:hiC]

	aRise, bRise, err := fitLine(res.VRise, c2[loR:hiR])
	if err != nil {
		return fail(fmt.Errorf("rise region: %w", err))
	}
	aConst, bConst, err := fitLine(res.VConst, c2[loC:hiC])
	if err != nil {
		return fail(fmt.Errorf("plateau region: %w", err))
	}
	res.ARise, res.BRise, res.AConst, res.BConst = aRise, bRise, aConst, bConst

	mu, err := mobility(opts.Carrier)
	if err != nil {
		return fail(err)
	}
	if aRise == aConst {
		return fail(fmt.Errorf("%w: rise and plateau lines are parallel", ErrDegenerateFit))
	}

	res.VDep1 = v[argmax(deriv)]
	res.VDep2 = (bConst - bRise) / (aRise - aConst)
	res.Conc = 2 / (ElementaryCharge * RelPermittivitySi * VacuumPermittivity * aRise * opts.Area * opts.Area)
	res.Rho = 1 / (ElementaryCharge * mu * res.Conc)
	res.Status = StatusPassed
	return res
}
