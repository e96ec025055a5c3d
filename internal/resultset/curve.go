package resultset

import (
	"errors"
	"fmt"
	"sort"

	"github.com/user/pqc_analyzer_go/internal/analysis"
	"github.com/user/pqc_analyzer_go/internal/parser"
)

// ErrUnknownStructure is returned by EvaluateCurve for a structure kind it
// does not know.
var ErrUnknownStructure = errors.New("unknown structure")

// Field is one named output of a single-curve extraction, in SI units.
type Field struct {
	Name  string
	Value float64
	Unit  string
}

// CurveResult is the outcome of EvaluateCurve.
type CurveResult struct {
	Structure string
	Fields    []Field
	Status    analysis.Status
	Err       error
}

type curveEval func(a *Analyzer, m *parser.Measurement, rSheet float64) (CurveResult, error)

var curveEvals = map[string]curveEval{
	"iv": func(a *Analyzer, m *parser.Measurement, _ float64) (CurveResult, error) {
		v, i, err := curve(m, voltageColumns, currentColumns)
		if err != nil {
			return CurveResult{}, err
		}
		r := analysis.AnalyseIV(v, i)
		return CurveResult{Status: r.Status, Err: r.Err, Fields: []Field{
			{"v_max", r.VMax, "V"}, {"i_max", r.IMax, "A"}, {"i800", r.I800, "A"}, {"i600", r.I600, "A"},
		}}, nil
	},
	"cv": func(a *Analyzer, m *parser.Measurement, _ float64) (CurveResult, error) {
		v, c, err := curve(m, voltageColumns, capacitanceColumns)
		if err != nil {
			return CurveResult{}, err
		}
		r := analysis.AnalyseCV(v, c, analysis.CVOptions{
			Area:    a.params.DiodeArea,
			Carrier: analysis.Carrier(a.params.Carrier),
			Cut:     a.params.CVCut,
		})
		return CurveResult{Status: r.Status, Err: r.Err, Fields: []Field{
			{"v_dep1", r.VDep1, "V"}, {"v_dep2", r.VDep2, "V"}, {"rho", r.Rho, "Ohm m"}, {"conc", r.Conc, "m^-3"},
		}}, nil
	},
	"mos": func(a *Analyzer, m *parser.Measurement, _ float64) (CurveResult, error) {
		v, c, err := curve(m, voltageColumns, capacitanceColumns)
		if err != nil {
			return CurveResult{}, err
		}
		r := analysis.AnalyseMOS(v, c, a.params.MOSCut)
		return CurveResult{Status: r.Status, Err: r.Err, Fields: []Field{
			{"v_fb1", r.VFb1, "V"}, {"v_fb2", r.VFb2, "V"}, {"c_acc", r.CAcc, "F"}, {"c_inv", r.CInv, "F"},
			{"t_ox", r.TOx, "m"}, {"n_ox", r.NOx, "cm^-2"}, {"q_ox", r.QOx, "C"},
		}}, nil
	},
	"gcd": func(_ *Analyzer, m *parser.Measurement, _ float64) (CurveResult, error) {
		v, i, err := curve(m, voltageColumns, currentColumns)
		if err != nil {
			return CurveResult{}, err
		}
		r := analysis.AnalyseGCD(v, i)
		return CurveResult{Status: r.Status, Err: r.Err, Fields: []Field{
			{"i_surf", r.ISurf, "A"}, {"i_bulk", r.IBulk, "A"}, {"s0", r.S0, "cm/s"},
			{"v_fb2", r.VFb2, "V"}, {"v_fb3", r.VFb3, "V"},
		}}, nil
	},
	"fet": func(_ *Analyzer, m *parser.Measurement, _ float64) (CurveResult, error) {
		v, i, err := curve(m, voltageColumns, currentColumns)
		if err != nil {
			return CurveResult{}, err
		}
		r := analysis.AnalyseFET(v, i)
		return CurveResult{Status: r.Status, Err: r.Err, Fields: []Field{{"v_th", r.VTh, "V"}}}, nil
	},
	"vdp": func(a *Analyzer, m *parser.Measurement, _ float64) (CurveResult, error) {
		i, v, err := curve(m, currentColumns, voltageColumns)
		if err != nil {
			return CurveResult{}, err
		}
		r := analysis.AnalyseVanDerPauw(i, v, a.params.VdpCut)
		return CurveResult{Status: r.Status, Err: r.Err, Fields: []Field{{"r_sheet", r.RSheet, "Ohm/sq"}}}, nil
	},
	"cross": func(a *Analyzer, m *parser.Measurement, _ float64) (CurveResult, error) {
		i, v, err := curve(m, currentColumns, voltageColumns)
		if err != nil {
			return CurveResult{}, err
		}
		r := analysis.AnalyseCross(i, v, a.params.VdpCut)
		return CurveResult{Status: r.Status, Err: r.Err, Fields: []Field{{"r_sheet", r.RSheet, "Ohm/sq"}}}, nil
	},
	"linewidth": func(a *Analyzer, m *parser.Measurement, rSheet float64) (CurveResult, error) {
		i, v, err := curve(m, currentColumns, voltageColumns)
		if err != nil {
			return CurveResult{}, err
		}
		r := analysis.AnalyseLinewidth(i, v, rSheet, a.params.VdpCut)
		return CurveResult{Status: r.Status, Err: r.Err, Fields: []Field{{"t_line", r.TLine, "um"}}}, nil
	},
	"cbkr": func(a *Analyzer, m *parser.Measurement, rSheet float64) (CurveResult, error) {
		i, v, err := curve(m, currentColumns, voltageColumns)
		if err != nil {
			return CurveResult{}, err
		}
		r := analysis.AnalyseCBKR(i, v, rSheet, a.params.VdpCut)
		return CurveResult{Status: r.Status, Err: r.Err, Fields: []Field{{"r_contact", r.RContact, "Ohm"}}}, nil
	},
	"contact_chain": func(a *Analyzer, m *parser.Measurement, _ float64) (CurveResult, error) {
		i, v, err := curve(m, currentColumns, voltageColumns)
		if err != nil {
			return CurveResult{}, err
		}
		r := analysis.AnalyseContact(i, v, a.params.VdpCut)
		return CurveResult{Status: r.Status, Err: r.Err, Fields: []Field{{"r_contact", r.RContact, "Ohm"}}}, nil
	},
	"meander_poly":  meanderEval(analysis.MeanderPolysilicon),
	"meander_metal": meanderEval(analysis.MeanderMetal),
	"breakdown": func(_ *Analyzer, m *parser.Measurement, _ float64) (CurveResult, error) {
		v, i, err := curve(m, voltageColumns, currentColumns)
		if err != nil {
			return CurveResult{}, err
		}
		r := analysis.AnalyseBreakdown(v, i)
		return CurveResult{Status: r.Status, Err: r.Err, Fields: []Field{{"v_bd", r.VBd, "V"}}}, nil
	},
	"capacitor": func(_ *Analyzer, m *parser.Measurement, _ float64) (CurveResult, error) {
		v, c, err := curve(m, voltageColumns, capacitanceColumns)
		if err != nil {
			return CurveResult{}, err
		}
		r := analysis.AnalyseCapacitor(v, c)
		return CurveResult{Status: r.Status, Err: r.Err, Fields: []Field{
			{"c_mean", r.CMean, "F"}, {"c_median", r.CMedian, "F"}, {"d", r.D, "m"},
		}}, nil
	},
}

func meanderEval(kind analysis.MeanderKind) curveEval {
	return func(_ *Analyzer, m *parser.Measurement, _ float64) (CurveResult, error) {
		i, v, err := curve(m, currentColumns, voltageColumns)
		if err != nil {
			return CurveResult{}, err
		}
		r := analysis.AnalyseMeander(i, v, kind)
		return CurveResult{Status: r.Status, Err: r.Err, Fields: []Field{{"rho_sq", r.RhoSq, "Ohm"}}}, nil
	}
}

// Structures returns the structure kinds accepted by EvaluateCurve, sorted.
func Structures() []string {
	kinds := make([]string, 0, len(curveEvals))
	for k := range curveEvals {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// EvaluateCurve runs the extraction of one structure kind on a single
// measurement. rSheet is the sheet resistance in Ohm/sq used by linewidth
// and cbkr. The returned error covers unknown kinds and missing columns;
// the extraction verdict is in the result.
func (a *Analyzer) EvaluateCurve(structure string, m *parser.Measurement, rSheet float64) (res CurveResult, err error) {
	eval, ok := curveEvals[structure]
	if !ok {
		return CurveResult{}, fmt.Errorf("%w: %s", ErrUnknownStructure, structure)
	}

	defer func() {
		if p := recover(); p != nil {
			a.log.Errorf("%s: %s panicked: %v", m.Path, structure, p)
			res = CurveResult{Structure: structure, Status: analysis.StatusFailed, Err: fmt.Errorf("%s panicked: %v", structure, p)}
			err = nil
		}
	}()

	r, err := eval(a, m, rSheet)
	if err != nil {
		return CurveResult{}, fmt.Errorf("%s: %w", structure, err)
	}
	r.Structure = structure
	return r, nil
}
