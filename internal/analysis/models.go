package analysis

// IVResult holds the standard-situation currents of a diode IV curve.
type IVResult struct {
	VMax   float64 // voltage of largest magnitude
	IMax   float64 // current at VMax
	I800   float64 // current at |V| = 800 V, Sentinel unless exactly one sample matches
	I600   float64 // current at |V| = 600 V, same rule
	Status Status
	Err    error
}

// CVResult holds depletion voltage and bulk properties from a diode CV curve.
type CVResult struct {
	VDep1      float64 // full depletion via maximum of the derivative
	VDep2      float64 // full depletion via intersection of the rise and plateau lines
	Rho        float64 // bulk resistivity, Ohm m
	Conc       float64 // bulk doping concentration, m^-3
	ARise      float64
	BRise      float64
	VRise      []float64
	AConst     float64
	BConst     float64
	VConst     []float64
	Derivative []float64
	Status     Status
	Err        error
}

// MOSResult holds the flatband voltage and oxide properties of a MOS
// capacitor.
type MOSResult struct {
	VFb1       float64 // flatband via maximum of the derivative
	VFb2       float64 // flatband via accumulation/depletion intersection
	CAcc       float64 // mean accumulation capacitance
	CInv       float64 // mean inversion capacitance
	TOx        float64 // oxide thickness, m
	NOx        float64 // oxide charge density, cm^-2
	QOx        float64 // oxide charge, C
	AAcc       float64
	BAcc       float64
	VAcc       []float64
	ADep       float64
	BDep       float64
	VDep       []float64
	AInv       float64
	BInv       float64
	VInv       []float64
	Derivative []float64
	Status     Status
	Err        error
}

// GCDResult holds the generation currents of a gate controlled diode.
type GCDResult struct {
	ISurf      float64 // surface generation current
	IBulk      float64 // bulk generation current
	S0         float64 // surface generation velocity, cm/s
	IAcc       []float64
	IDep       []float64
	IInv       []float64
	VAcc       []float64
	VDep       []float64
	VInv       []float64
	VTrans     []float64
	AAcc       float64 // transition-region line
	BAcc       float64
	ADep       float64
	BDep       float64
	AInv       float64
	BInv       float64
	VFb2       float64 // transition/depletion intersection
	VFb3       float64 // inversion/depletion intersection
	IAccMean   float64
	IDepMean   float64
	IInvMean   float64
	Derivative []float64
	Status     Status
	Err        error
}

// FETResult holds the threshold voltage from the tangent at the steepest
// point of the transfer curve.
type FETResult struct {
	VTh        float64
	A          float64 // tangent slope
	B          float64 // tangent intercept
	Derivative []float64
	Status     Status
	Err        error
}

// SheetResult is returned for Van der Pauw and cross structures.
type SheetResult struct {
	RSheet float64 // Ohm/sq
	FitResult
}

// LinewidthResult holds the width of a resistor line.
type LinewidthResult struct {
	TLine float64 // um
	FitResult
}

// ContactResult holds a contact resistance from a CBKR or a contact chain.
type ContactResult struct {
	RContact float64 // Ohm
	FitResult
}

// MeanderResult holds the specific resistance per square of a meander.
type MeanderResult struct {
	RhoSq float64
	FitResult
}

// BreakdownResult holds the oxide breakdown voltage.
type BreakdownResult struct {
	VBd    float64
	Status Status
	Err    error
}

// CapacitorResult holds test capacitor values.
type CapacitorResult struct {
	CMean   float64
	CMedian float64
	D       float64 // dielectric thickness, m
	Status  Status
	Err     error
}

// MeanderKind selects the geometry of a meander structure.
type MeanderKind int

const (
	MeanderPolysilicon MeanderKind = iota
	MeanderMetal
)

// Geometry returns the strip width in metres and the number of squares.
func (k MeanderKind) Geometry() (width, squares float64) {
	switch k {
	case MeanderPolysilicon:
		return 5e-6, 476
	default:
		return 10e-6, 12853
	}
}

func (k MeanderKind) String() string {
	if k == MeanderPolysilicon {
		return "polysilicon"
	}
	return "metal"
}
