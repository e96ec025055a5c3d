package resultset

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/pqc_analyzer_go/internal/analysis"
	"github.com/user/pqc_analyzer_go/internal/config"
	"github.com/user/pqc_analyzer_go/internal/logger"
	"github.com/user/pqc_analyzer_go/internal/parser"
)

// Column spellings of the measurement software, in order of preference.
var (
	voltageColumns     = []string{"voltage_hvsrc", "voltage_vsrc", "voltage"}
	currentColumns     = []string{"current_elm", "current_hvsrc", "current_vsrc", "current"}
	capacitanceColumns = []string{"capacitance", "capacitance2"}
)

// errExtraction is reported for a failed result that carries no cause.
var errExtraction = errors.New("extraction failed")

// Analyzer runs the batch pass. It is safe for concurrent use.
type Analyzer struct {
	flute    string
	workers  int
	params   config.AnalysisConfig
	override map[string]config.QuantityOverride
	loader   *parser.Loader
	log      logger.Logger
}

// NewAnalyzer creates an analyzer from cfg. A nil log discards output.
func NewAnalyzer(cfg *config.Config, log logger.Logger) (*Analyzer, error) {
	loader, err := parser.NewLoader(cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Analyzer{
		flute:    cfg.Flute,
		workers:  workers,
		params:   cfg.Analysis,
		override: cfg.Quantities,
		loader:   loader,
		log:      log,
	}, nil
}

// Analyze evaluates every sample directory and returns the result set named
// batch, with samples in the order of dirs. Samples are evaluated in
// parallel; each sample's values are appended as one unit once all samples
// are done. Only cancellation of ctx fails the batch.
func (a *Analyzer) Analyze(ctx context.Context, batch string, dirs []string) (*ResultSet, error) {
	a.log.Infof("Analyzing %d samples of batch %s with %d workers", len(dirs), batch, a.workers)

	samples := make([]Sample, len(dirs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for k, dir := range dirs {
		if err := gctx.Err(); err != nil {
			break
		}
		k, dir := k, dir
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			samples[k] = a.AnalyzeSample(dir)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch %s cancelled: %w", batch, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch %s cancelled: %w", batch, err)
	}

	rs := New(batch, a.override)
	for _, s := range samples {
		rs.AppendSample(s)
	}
	a.log.Infof("Batch %s: %d samples analysed", batch, rs.Len())
	return rs, nil
}

// AnalyzeSample evaluates every structure of one sample directory. It never
// fails: missing measurements are +Inf and failed extractions NaN.
func (a *Analyzer) AnalyzeSample(dir string) Sample {
	s := Sample{
		Label:  filepath.Base(filepath.Clean(dir)),
		Flute:  a.flute,
		Values: make(map[string]float64, len(Catalogue)),
	}
	s.Timestamp = a.sampleTime(dir, s.Label)

	for _, st := range a.steps() {
		a.runStep(dir, &s, st)
	}
	return s
}

// sampleTime returns the start time of the last van der Pauw measurement of
// the sample, or the zero time.
func (a *Analyzer) sampleTime(dir, label string) time.Time {
	files, err := parser.FindFiles(dir, "van_der_pauw", nil, nil)
	if err != nil || len(files) == 0 {
		a.log.Warnf("%s: no van der Pauw measurement for the timestamp", label)
		return time.Time{}
	}
	m, err := a.loader.Load(files[len(files)-1])
	if err != nil {
		a.log.Warnf("%s: %v", label, err)
		return time.Time{}
	}
	ts, err := m.Timestamp()
	if err != nil {
		a.log.Warnf("%s: %v", label, err)
		return time.Time{}
	}
	return ts
}

// step evaluates one structure type and fills keys.
type step struct {
	kind      string
	whitelist []string
	blacklist []string
	latest    bool // several files may match, the last one is evaluated
	keys      []string

	// eval returns one value per key. values holds the results of the
	// steps before it.
	eval func(m *parser.Measurement, values map[string]float64) ([]float64, error)
}

func (a *Analyzer) runStep(dir string, s *Sample, st step) {
	fill := func(v float64) {
		for _, key := range st.keys {
			s.Values[key] = v
		}
	}
	name := strings.Join(st.keys, ",")

	defer func() {
		if r := recover(); r != nil {
			a.log.Errorf("%s: %s panicked: %v", s.Label, name, r)
			fill(math.NaN())
		}
	}()

	path, err := a.findFile(dir, st)
	if errors.Is(err, parser.ErrNoFile) {
		a.log.Debugf("%s: %s not measured", s.Label, name)
		fill(math.Inf(1))
		return
	}
	if err != nil {
		a.log.Warnf("%s: %s: %v", s.Label, name, err)
		fill(math.NaN())
		return
	}

	m, err := a.loader.Load(path)
	if err != nil {
		a.log.Warnf("%s: %s: %v", s.Label, name, err)
		fill(math.NaN())
		return
	}

	vals, err := st.eval(m, s.Values)
	if err != nil {
		a.log.Warnf("%s: %s failed on %s: %v", s.Label, name, filepath.Base(path), err)
		fill(math.NaN())
		return
	}
	for k, key := range st.keys {
		s.Values[key] = vals[k]
	}
}

func (a *Analyzer) findFile(dir string, st step) (string, error) {
	whitelist := append([]string{a.flute}, st.whitelist...)
	if !st.latest {
		return parser.FindFile(dir, st.kind, whitelist, st.blacklist)
	}
	files, err := parser.FindFiles(dir, st.kind, whitelist, st.blacklist)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w: %s in %s", parser.ErrNoFile, st.kind, dir)
	}
	return files[len(files)-1], nil
}

// outcome turns an extraction verdict into step values.
func outcome(status analysis.Status, err error, vals ...float64) ([]float64, error) {
	if status != analysis.StatusPassed {
		if err == nil {
			err = errExtraction
		}
		return nil, err
	}
	return vals, nil
}

// curve returns the two named columns of m.
func curve(m *parser.Measurement, xNames, yNames []string) (x, y []float64, err error) {
	if x, err = m.Column(xNames...); err != nil {
		return nil, nil, err
	}
	if y, err = m.Column(yNames...); err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

func (a *Analyzer) vdp(key string, whitelist ...string) step {
	return a.vdpStep(key, whitelist, []string{"reverse"})
}

func (a *Analyzer) vdpReverse(key string, whitelist ...string) step {
	return a.vdpStep(key, append(whitelist, "reverse"), nil)
}

func (a *Analyzer) vdpStep(key string, whitelist, blacklist []string) step {
	return step{
		kind: "van_der_pauw", whitelist: whitelist, blacklist: blacklist, latest: true,
		keys: []string{key},
		eval: func(m *parser.Measurement, _ map[string]float64) ([]float64, error) {
			i, v, err := curve(m, currentColumns, voltageColumns)
			if err != nil {
				return nil, err
			}
			r := analysis.AnalyseVanDerPauw(i, v, a.params.VdpCut)
			return outcome(r.Status, r.Err, r.RSheet)
		},
	}
}

func (a *Analyzer) linewidth(key, sheetKey string, whitelist ...string) step {
	return step{
		kind: "linewidth", whitelist: whitelist,
		keys: []string{key},
		eval: func(m *parser.Measurement, values map[string]float64) ([]float64, error) {
			i, v, err := curve(m, currentColumns, voltageColumns)
			if err != nil {
				return nil, err
			}
			r := analysis.AnalyseLinewidth(i, v, values[sheetKey], a.params.VdpCut)
			return outcome(r.Status, r.Err, r.TLine)
		},
	}
}

func (a *Analyzer) cbkr(key, sheetKey string, whitelist ...string) step {
	return step{
		kind: "cbkr", whitelist: whitelist,
		keys: []string{key},
		eval: func(m *parser.Measurement, values map[string]float64) ([]float64, error) {
			i, v, err := curve(m, currentColumns, voltageColumns)
			if err != nil {
				return nil, err
			}
			r := analysis.AnalyseCBKR(i, v, values[sheetKey], a.params.VdpCut)
			return outcome(r.Status, r.Err, r.RContact)
		},
	}
}

func (a *Analyzer) contactChain(key string, whitelist ...string) step {
	return step{
		kind: "contact_chain", whitelist: whitelist,
		keys: []string{key},
		eval: func(m *parser.Measurement, _ map[string]float64) ([]float64, error) {
			i, v, err := curve(m, currentColumns, voltageColumns)
			if err != nil {
				return nil, err
			}
			r := analysis.AnalyseContact(i, v, a.params.VdpCut)
			return outcome(r.Status, r.Err, r.RContact)
		},
	}
}

func (a *Analyzer) meander(key string, kind analysis.MeanderKind, whitelist ...string) step {
	return step{
		kind: "meander", whitelist: whitelist,
		keys: []string{key},
		eval: func(m *parser.Measurement, _ map[string]float64) ([]float64, error) {
			i, v, err := curve(m, currentColumns, voltageColumns)
			if err != nil {
				return nil, err
			}
			r := analysis.AnalyseMeander(i, v, kind)
			return outcome(r.Status, r.Err, r.RhoSq)
		},
	}
}

// gcd evaluates a gate controlled diode into its surface and optionally its
// bulk generation current.
func gcd(kind string, keys ...string) step {
	return step{
		kind: kind, keys: keys,
		eval: func(m *parser.Measurement, _ map[string]float64) ([]float64, error) {
			v, i, err := curve(m, voltageColumns, currentColumns)
			if err != nil {
				return nil, err
			}
			r := analysis.AnalyseGCD(v, i)
			return outcome(r.Status, r.Err, []float64{r.ISurf, r.IBulk}[:len(keys)]...)
		},
	}
}

// steps lists the structure evaluations of a sample. Sheet resistances come
// before the linewidth and CBKR steps that read them.
func (a *Analyzer) steps() []step {
	cvOpts := analysis.CVOptions{
		Area:    a.params.DiodeArea,
		Carrier: analysis.Carrier(a.params.Carrier),
		Cut:     a.params.CVCut,
	}

	return []step{
		a.vdp("vdp_poly_f", "Polysilicon", "cross"),
		a.vdpReverse("vdp_poly_r", "Polysilicon", "cross"),
		a.vdp("vdp_n_f", "n", "cross"),
		a.vdpReverse("vdp_n_r", "n", "cross"),
		a.vdp("vdp_pstop_f", "P_stop", "cross"),
		a.vdpReverse("vdp_pstop_r", "P_stop", "cross"),

		a.linewidth("t_line_n", "vdp_n_f", "n"),
		a.linewidth("t_line_pstop2", "vdp_pstop_f", "P_stop", "2_wire"),
		a.linewidth("t_line_pstop4", "vdp_pstop_f", "P_stop", "4_wire"),

		a.cbkr("r_contact_n", "vdp_n_f", "n"),
		a.cbkr("r_contact_poly", "vdp_poly_f", "Polysilicon"),

		{
			kind: "fet", keys: []string{"v_th"},
			eval: func(m *parser.Measurement, _ map[string]float64) ([]float64, error) {
				v, i, err := curve(m, voltageColumns, currentColumns)
				if err != nil {
					return nil, err
				}
				r := analysis.AnalyseFET(v, i)
				return outcome(r.Status, r.Err, r.VTh)
			},
		},

		a.vdp("vdp_metclo_f", "metal", "clover"),
		a.vdpReverse("vdp_metclo_r", "metal", "clover"),

		a.vdp("vdp_p_cross_bridge_f", "P", "cross_bridge"),
		a.vdpReverse("vdp_p_cross_bridge_r", "P", "cross_bridge"),
		a.linewidth("t_line_p_cross_bridge", "vdp_p_cross_bridge_f", "P", "cross_bridge"),

		{
			kind: "breakdown", keys: []string{"v_bd"},
			eval: func(m *parser.Measurement, _ map[string]float64) ([]float64, error) {
				v, i, err := curve(m, voltageColumns, currentColumns)
				if err != nil {
					return nil, err
				}
				r := analysis.AnalyseBreakdown(v, i)
				return outcome(r.Status, r.Err, r.VBd)
			},
		},

		// the diode of flute 3
		{
			kind: "iv", whitelist: []string{"3"}, keys: []string{"i600"},
			eval: func(m *parser.Measurement, _ map[string]float64) ([]float64, error) {
				v, i, err := curve(m, voltageColumns, currentColumns)
				if err != nil {
					return nil, err
				}
				r := analysis.AnalyseIV(v, i)
				if r.Status == analysis.StatusPassed && !analysis.IsValid(r.I600) {
					return nil, errors.New("no sample at 600 V")
				}
				return outcome(r.Status, r.Err, r.I600)
			},
		},
		{
			kind: "cv", whitelist: []string{"3"}, keys: []string{"v_fd", "rho", "conc"},
			eval: func(m *parser.Measurement, _ map[string]float64) ([]float64, error) {
				v, c, err := curve(m, voltageColumns, capacitanceColumns)
				if err != nil {
					return nil, err
				}
				r := analysis.AnalyseCV(v, c, cvOpts)
				return outcome(r.Status, r.Err, r.VDep2, r.Rho, r.Conc)
			},
		},
		{
			kind: "mos", keys: []string{"v_fb2", "t_ox", "n_ox", "c_acc_m"},
			eval: func(m *parser.Measurement, _ map[string]float64) ([]float64, error) {
				v, c, err := curve(m, voltageColumns, capacitanceColumns)
				if err != nil {
					return nil, err
				}
				r := analysis.AnalyseMOS(v, c, a.params.MOSCut)
				return outcome(r.Status, r.Err, r.VFb2, r.TOx, r.NOx, r.CAcc)
			},
		},

		// only the surface current of the standard GCD is meaningful
		gcd("gcd", "i_surf"),
		gcd("gcd05", "i_surf05", "i_bulk05"),

		a.vdp("nvdp_poly_f", "Polysilicon", "ncross"),
		a.vdpReverse("nvdp_poly_r", "Polysilicon", "ncross"),
		a.vdp("nvdp_n_f", "n", "ncross"),
		a.vdpReverse("nvdp_n_r", "n", "ncross"),
		a.vdp("nvdp_pstop_f", "P_stop", "ncross"),
		a.vdpReverse("nvdp_pstop_r", "P_stop", "ncross"),

		a.contactChain("r_chain_poly", "Polysilicon"),
		a.contactChain("r_chain_n", "n"),
		a.meander("rho_meander_poly", analysis.MeanderPolysilicon, "Polysilicon"),
		a.meander("rho_meander_metal", analysis.MeanderMetal, "metal"),
		{
			kind: "capacitor", keys: []string{"c_cap", "t_cap"},
			eval: func(m *parser.Measurement, _ map[string]float64) ([]float64, error) {
				v, c, err := curve(m, voltageColumns, capacitanceColumns)
				if err != nil {
					return nil, err
				}
				r := analysis.AnalyseCapacitor(v, c)
				return outcome(r.Status, r.Err, r.CMedian, r.D)
			},
		},
	}
}
