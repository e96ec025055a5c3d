package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/user/pqc_analyzer_go/internal/config"
	"github.com/user/pqc_analyzer_go/internal/logger"
	"github.com/user/pqc_analyzer_go/internal/quantity"
	"github.com/user/pqc_analyzer_go/internal/report"
	"github.com/user/pqc_analyzer_go/internal/resultset"
	"github.com/user/pqc_analyzer_go/internal/store"
)

// App runs a batch analysis end to end: extraction, summary, reports and
// persistence.
type App struct {
	cfg *config.Config
	log *logger.ConsoleLogger
	out io.Writer
}

// NewApp creates an App writing summaries to out.
func NewApp(cfg *config.Config, log *logger.ConsoleLogger, out io.Writer) *App {
	return &App{cfg: cfg, log: log, out: out}
}

// RunOptions select the outputs of GenerateReport.
type RunOptions struct {
	NoReport bool
	NoStore  bool
}

// RunResult is what GenerateReport produced.
type RunResult struct {
	ResultSet *resultset.ResultSet
	Reports   []*report.BatchReport
	RunID     string // empty when nothing was stored
}

func (a *App) sendStatus(format string, args ...any) {
	a.log.Infof(format, args...)
}

// GenerateReport analyses the sample directories as one batch, sorted by
// measurement time. Reports are written per chunk of cfg.ChunkSize samples;
// the whole batch is stored as one run. A panic is returned as an error.
func (a *App) GenerateReport(ctx context.Context, batch string, dirs []string, opts RunOptions) (res *RunResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic recovered: %v", r)
			a.sendStatus("%v", err)
		}
	}()

	if len(dirs) == 0 {
		return nil, fmt.Errorf("no sample directories given")
	}
	if batch == "" {
		batch = filepath.Base(filepath.Dir(filepath.Clean(dirs[0])))
	}
	a.sendStatus("Batch %s: %d samples", batch, len(dirs))

	analyzer, err := resultset.NewAnalyzer(a.cfg, a.log)
	if err != nil {
		return nil, err
	}
	rs, err := analyzer.Analyze(ctx, batch, dirs)
	if err != nil {
		return nil, err
	}
	if err := rs.SortByTime(); err != nil {
		return nil, fmt.Errorf("sort samples: %w", err)
	}
	res = &RunResult{ResultSet: rs}

	if err := a.printSummary(rs); err != nil {
		return nil, err
	}

	if !opts.NoReport {
		chunks := []*resultset.ResultSet{rs}
		if a.cfg.ChunkSize > 0 && rs.Len() > a.cfg.ChunkSize {
			if chunks, err = rs.Split(a.cfg.ChunkSize); err != nil {
				return nil, err
			}
		}
		for _, chunk := range chunks {
			a.sendStatus("Generating report for %s...", chunk.Batch)
			r, err := report.WriteBatchReport(filepath.Join(a.cfg.OutputDir, chunk.Batch), chunk, report.Options{
				RangeExtension: a.cfg.RangeExtension,
				Log:            a.log,
			})
			if err != nil {
				return nil, fmt.Errorf("report for %s: %w", chunk.Batch, err)
			}
			res.Reports = append(res.Reports, r)
			a.sendStatus("PDF report generated: %s", r.PDF)
		}
	}

	if !opts.NoStore && a.cfg.DBPath != "" {
		st, err := store.NewStore(a.cfg.DBPath)
		if err != nil {
			return nil, err
		}
		defer st.Close()
		if res.RunID, err = st.SaveResultSet(ctx, rs); err != nil {
			return nil, err
		}
		a.sendStatus("Stored batch %s as run %s in %s", batch, res.RunID, a.cfg.DBPath)
	}
	return res, nil
}

// printSummary writes one coloured line per quantity and pooled total.
func (a *App) printSummary(rs *resultset.ResultSet) error {
	var quantities []*quantity.Quantity
	for _, key := range rs.Keys() {
		q, err := rs.Quantity(key)
		if err != nil {
			return err
		}
		quantities = append(quantities, q)
	}
	totals, err := rs.Totals()
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\n%s: %d samples\n", rs.Batch, rs.Len())
	for _, q := range append(quantities, totals...) {
		fmt.Fprintln(a.out, a.summaryLine(q))
	}
	fmt.Fprintln(a.out)
	return nil
}

func (a *App) summaryLine(q *quantity.Quantity) string {
	st := q.GetStats()
	if st.NTot == 0 || (len(st.Values) == 1 && st.NTot == 1 && st.NNan == 1) {
		return a.log.Paint(logger.ToneMuted, fmt.Sprintf("  %-32s no data", q.Label))
	}
	line := fmt.Sprintf("  %-32s %3d/%-3d ok  median %s %s  (failed %d, high %d, low %d)",
		q.Label, st.Selected(), st.NTot, quantity.FormatNumber(st.TotMed, q.Expected), q.Unit,
		st.NNan, st.NTooHigh, st.NTooLow)

	tone := logger.ToneGood
	switch {
	case st.NNan > 0:
		tone = logger.ToneBad
	case st.NTooHigh+st.NTooLow > 0:
		tone = logger.ToneWarn
	}
	return a.log.Paint(tone, line)
}

// expandDirs replaces each argument that holds no files but subdirectories
// with those subdirectories, so a batch directory can be given instead of
// its samples.
func expandDirs(args []string) ([]string, error) {
	var dirs []string
	for _, arg := range args {
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read sample directory: %w", err)
		}
		var subdirs []string
		hasFiles := false
		for _, e := range entries {
			if e.IsDir() {
				subdirs = append(subdirs, filepath.Join(arg, e.Name()))
			} else if e.Type().IsRegular() {
				hasFiles = true
			}
		}
		if hasFiles || len(subdirs) == 0 {
			dirs = append(dirs, arg)
			continue
		}
		dirs = append(dirs, subdirs...)
	}
	return dirs, nil
}
