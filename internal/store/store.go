// Package store persists analysed batches and their summary statistics in
// SQLite so that runs can be compared later.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/user/pqc_analyzer_go/internal/quantity"
	"github.com/user/pqc_analyzer_go/internal/resultset"
)

//go:embed schema.sql
var schemaSQL string

// ErrNoRun is returned when a run id is unknown or the store is empty.
var ErrNoRun = errors.New("no such run")

// Run describes one stored batch analysis.
type Run struct {
	ID        string
	Batch     string
	NSamples  int
	CreatedAt time.Time
}

// Summary holds the stored statistics of one quantity of a run, in display
// units. Statistics that were not finite are NaN.
type Summary struct {
	RunID      string
	Key        string
	Name       string
	Label      string
	Unit       string
	MinAllowed float64
	MaxAllowed float64
	NTot       int
	NNan       int
	NTooHigh   int
	NTooLow    int
	NSelected  int
	TotAvg     float64
	TotStd     float64
	TotMed     float64
	SelAvg     float64
	SelStd     float64
	SelMed     float64
}

// Yield returns the fraction of samples within the acceptance bounds.
func (s Summary) Yield() float64 {
	if s.NTot == 0 {
		return math.NaN()
	}
	return float64(s.NSelected) / float64(s.NTot)
}

// Store manages the results database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens or creates the database at dbPath and initializes its
// schema. ":memory:" opens a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveResultSet stores the samples, raw values and summary statistics of rs,
// including the pooled totals, under a new run id which it returns.
func (s *Store) SaveResultSet(ctx context.Context, rs *resultset.ResultSet) (string, error) {
	runID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (id, batch, n_samples, created_at) VALUES (?, ?, ?, ?)`,
		runID, rs.Batch, rs.Len(), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	sampleStmt, err := tx.PrepareContext(ctx, `INSERT INTO samples (run_id, idx, label, flute, measured_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare sample insert: %w", err)
	}
	defer sampleStmt.Close()

	labels, flutes, timestamps := rs.Labels(), rs.Flutes(), rs.Timestamps()
	for k := range labels {
		var measured any
		if !timestamps[k].IsZero() {
			measured = timestamps[k].UTC()
		}
		if _, err := sampleStmt.ExecContext(ctx, runID, k, labels[k], flutes[k], measured); err != nil {
			return "", fmt.Errorf("insert sample %s: %w", labels[k], err)
		}
	}

	valueStmt, err := tx.PrepareContext(ctx, `INSERT INTO measurements (run_id, idx, quantity_key, value, status) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare measurement insert: %w", err)
	}
	defer valueStmt.Close()

	summaryStmt, err := tx.PrepareContext(ctx, `INSERT INTO summaries
		(run_id, quantity_key, name, label, unit, min_allowed, max_allowed, n_tot, n_nan, n_too_high, n_too_low, n_selected,
		 tot_avg, tot_std, tot_med, sel_avg, sel_std, sel_med, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare summary insert: %w", err)
	}
	defer summaryStmt.Close()

	position := 0
	saveSummary := func(key string, q *quantity.Quantity) error {
		st := q.GetStats()
		_, err := summaryStmt.ExecContext(ctx, runID, key, q.Name, q.Label, q.Unit,
			nullable(q.MinAllowed()), nullable(q.MaxAllowed()),
			st.NTot, st.NNan, st.NTooHigh, st.NTooLow, st.Selected(),
			nullable(st.TotAvg), nullable(st.TotStd), nullable(st.TotMed),
			nullable(st.SelAvg), nullable(st.SelStd), nullable(st.SelMed), position)
		position++
		if err != nil {
			return fmt.Errorf("insert summary %s: %w", key, err)
		}
		return nil
	}

	for _, key := range rs.Keys() {
		q, err := rs.Quantity(key)
		if err != nil {
			return "", err
		}
		for k, v := range q.Values() {
			if _, err := valueStmt.ExecContext(ctx, runID, k, key, nullable(v), q.GetStatus(k).String()); err != nil {
				return "", fmt.Errorf("insert %s of sample %d: %w", key, k, err)
			}
		}
		if err := saveSummary(key, q); err != nil {
			return "", err
		}
	}

	totals, err := rs.Totals()
	if err != nil {
		return "", err
	}
	for _, q := range totals {
		if err := saveSummary(q.Name, q); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}
	return runID, nil
}

// Runs returns the stored runs, most recent first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, batch, n_samples, created_at FROM runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Batch, &r.NSamples, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LoadSummaries returns the summaries of a run in report order. An empty
// runID selects the most recent run. runID may be an unambiguous prefix.
func (s *Store) LoadSummaries(ctx context.Context, runID string) ([]Summary, error) {
	id, err := s.resolveRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT quantity_key, name, label, unit, min_allowed, max_allowed,
		n_tot, n_nan, n_too_high, n_too_low, n_selected, tot_avg, tot_std, tot_med, sel_avg, sel_std, sel_med
		FROM summaries WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		sum := Summary{RunID: id}
		var minA, maxA, totAvg, totStd, totMed, selAvg, selStd, selMed sql.NullFloat64
		if err := rows.Scan(&sum.Key, &sum.Name, &sum.Label, &sum.Unit, &minA, &maxA,
			&sum.NTot, &sum.NNan, &sum.NTooHigh, &sum.NTooLow, &sum.NSelected,
			&totAvg, &totStd, &totMed, &selAvg, &selStd, &selMed); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		sum.MinAllowed, sum.MaxAllowed = orNaN(minA), orNaN(maxA)
		sum.TotAvg, sum.TotStd, sum.TotMed = orNaN(totAvg), orNaN(totStd), orNaN(totMed)
		sum.SelAvg, sum.SelStd, sum.SelMed = orNaN(selAvg), orNaN(selStd), orNaN(selMed)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// LoadValues returns the raw values of one quantity of a run in sample
// order. Missing or failed entries are NaN.
func (s *Store) LoadValues(ctx context.Context, runID, key string) ([]float64, error) {
	id, err := s.resolveRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT value FROM measurements WHERE run_id = ? AND quantity_key = ? ORDER BY idx`, id, key)
	if err != nil {
		return nil, fmt.Errorf("query values: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v sql.NullFloat64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan value: %w", err)
		}
		out = append(out, orNaN(v))
	}
	return out, rows.Err()
}

func (s *Store) resolveRun(ctx context.Context, runID string) (string, error) {
	if runID == "" {
		var id string
		err := s.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1`).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: the store is empty", ErrNoRun)
		}
		if err != nil {
			return "", fmt.Errorf("query latest run: %w", err)
		}
		return id, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE id LIKE ? LIMIT 2`, strings.ReplaceAll(runID, "%", "")+"%")
	if err != nil {
		return "", fmt.Errorf("query run %s: %w", runID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNoRun, runID)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("run id prefix %s is ambiguous", runID)
	}
}

// nullable maps non-finite values to NULL.
func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
