package report

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/user/pqc_analyzer_go/internal/filelock"
	"github.com/user/pqc_analyzer_go/internal/logger"
	"github.com/user/pqc_analyzer_go/internal/quantity"
	"github.com/user/pqc_analyzer_go/internal/resultset"
)

// Options control WriteBatchReport.
type Options struct {
	// RangeExtension scales the upper bound of the extended histograms of
	// the pooled van der Pauw totals. 0 disables them.
	RangeExtension float64
	Log            logger.Logger
}

// BatchReport lists what WriteBatchReport produced.
type BatchReport struct {
	Dir     string
	PDF     string
	Files   []string // every written file, PDF last
	Skipped []string // quantities without enough values to plot
}

// WriteBatchReport renders the plots and the PDF report of rs into dir,
// which is locked for the duration. Files are replaced atomically.
func WriteBatchReport(dir string, rs *resultset.ResultSet, opts Options) (*BatchReport, error) {
	log := opts.Log
	if log == nil {
		log = logger.Discard()
	}

	lock, err := filelock.LockDir(dir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warnf("%v", err)
		}
	}()

	out := &BatchReport{Dir: dir}
	write := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := filelock.AtomicWrite(path, data); err != nil {
			return err
		}
		out.Files = append(out.Files, path)
		return nil
	}

	var figures []Figure
	labels := rs.Labels()

	var quantities []*quantity.Quantity
	for _, key := range rs.Keys() {
		q, err := rs.Quantity(key)
		if err != nil {
			return nil, err
		}
		quantities = append(quantities, q)
	}

	if png, err := CreateStatusMap(rs.Batch, quantities, labels); err == nil {
		if err := write("status_map.png", png); err != nil {
			return nil, err
		}
		figures = append(figures, Figure{Name: "status_map", Caption: "Status of every sample and quantity", PNG: png, Aspect: 0.625})
	} else if !errors.Is(err, ErrNoValidResults) {
		return nil, err
	}

	histogram := func(q *quantity.Quantity, ext float64, suffix string) error {
		png, err := CreateHistogram(rs.Batch, q, ext)
		if errors.Is(err, ErrNoValidResults) {
			log.Debugf("skipping %s of %s: %v", suffix, q.Name, err)
			if ext == 0 {
				out.Skipped = append(out.Skipped, q.Name)
			}
			return nil
		}
		if err != nil {
			return err
		}
		name := q.Name + "_" + suffix
		if err := write(name+".png", png); err != nil {
			return err
		}
		figures = append(figures, Figure{Name: name, Caption: q.Label, PNG: png, Aspect: float64(histHeight / histWidth)})
		return nil
	}

	for _, q := range quantities {
		if err := histogram(q, 0, "hist"); err != nil {
			return nil, err
		}
		png, err := CreateTrendPlot(rs.Batch, q, labels)
		if errors.Is(err, ErrNoValidResults) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := write(q.Name+"_trend.png", png); err != nil {
			return nil, err
		}
	}

	totals, err := rs.Totals()
	if err != nil {
		return nil, err
	}
	for _, q := range totals {
		if err := histogram(q, 0, "hist"); err != nil {
			return nil, err
		}
		if opts.RangeExtension > 0 && strings.HasPrefix(q.Name, "vdp_") {
			if err := histogram(q, opts.RangeExtension, "erhist"); err != nil {
				return nil, err
			}
		}
	}

	out.PDF = filepath.Join(dir, rs.Batch+"_report.pdf")
	err = filelock.AtomicWriteFunc(out.PDF, func(w io.Writer) error {
		return BuildPDFReport(w, rs, figures)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write report for batch %s: %w", rs.Batch, err)
	}
	out.Files = append(out.Files, out.PDF)

	log.Infof("Batch %s: %d files written to %s, %d quantities skipped", rs.Batch, len(out.Files), dir, len(out.Skipped))
	return out, nil
}
