package analysis

import (
	"errors"
	"math"
)

// Status is the validity verdict attached to every extraction result.
type Status int

const (
	StatusNone Status = iota
	StatusPassed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	default:
		return "none"
	}
}

// Carrier is the majority charge carrier type of the diode bulk.
type Carrier string

const (
	CarrierElectrons Carrier = "electrons"
	CarrierHoles     Carrier = "holes"
)

// Sentinel is reported for every quantity that could not be computed.
const Sentinel = -1.0

// Physical constants (SI unless noted).
const (
	ElementaryCharge    = 1.602e-19 // C
	VacuumPermittivity  = 8.854e-12 // F/m
	RelPermittivitySi   = 11.9
	RelPermittivitySiO2 = 3.9

	MobilityElectrons = 1350e-4 // m^2/Vs
	MobilityHoles     = 450e-4  // m^2/Vs

	// MOS: -0.69 V work function difference for a 5e12 cm^-3 p-type bulk,
	// bias applied to the backplane so V_fb comes out positive.
	WorkFunctionDiff = 0.69
	MOSGateSide      = 1.290e-3 // m
	MOSGateSideCm    = 0.129

	// GCD surface generation velocity.
	IntrinsicCarrierDensity = 7.015e9 // cm^-3
	GCDGateArea             = 0.00505 // cm^2

	// Linewidth and CBKR geometry, um.
	LinewidthLength = 128.5
	CBKRContactSize = 13.0 // contact is 12.5 x 13.5 um
	CBKRDiffWidth   = 33.0

	CapacitorArea = 16900e-12 // m^2
)

// Default cut thresholds on the normalized first derivative.
const (
	DefaultLinearCut = 1e-5
	DefaultCVCut     = 0.005
	DefaultMOSCut    = 0.03
	DefaultDiodeArea = 1.56e-6 // m^2

	// minFitPoints is the smallest slice a line fit accepts.
	minFitPoints = 3
)

var (
	ErrEmptyRegion            = errors.New("region is empty after cut")
	ErrTooFewPoints           = errors.New("too few points for a line fit")
	ErrDegenerateFit          = errors.New("line fit is degenerate")
	ErrInvalidCarrier         = errors.New("not a valid type of majority carrier")
	ErrInvalidSheetResistance = errors.New("sheet resistance is invalid")
	ErrLengthMismatch         = errors.New("curve columns differ in length")
	ErrTooShort               = errors.New("curve is too short")
)

// IsValid reports whether v is a usable upstream value: finite and not the
// failure sentinel.
func IsValid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v != Sentinel
}
