package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/pqc_analyzer_go/internal/resultset"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// batch returns three samples with v_bd values 200, 220 and failed.
func batch(name string) *resultset.ResultSet {
	rs := resultset.New(name, nil)
	base := time.Date(2021, 9, 29, 10, 0, 0, 0, time.UTC)
	for k, v := range []float64{200, 220, math.NaN()} {
		rs.AppendSample(resultset.Sample{
			Label:     []string{"a", "b", "c"}[k],
			Flute:     "PQCFlutesLeft",
			Timestamp: base.Add(time.Duration(k) * time.Hour),
			Values:    map[string]float64{"v_bd": v},
		})
	}
	return rs
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		name   string
		dbPath string
	}{
		{name: "in-memory database", dbPath: ":memory:"},
		{name: "creates parent directories", dbPath: filepath.Join(t.TempDir(), "nested", "dir", "pqc.db")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStore(tt.dbPath)
			require.NoError(t, err)
			defer s.Close()
			assert.Equal(t, tt.dbPath, s.dbPath)

			runs, err := s.Runs(context.Background())
			require.NoError(t, err)
			assert.Empty(t, runs)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	rs := batch("VPX28442")

	runID, err := s.SaveResultSet(ctx, rs)
	require.NoError(t, err)
	assert.Len(t, runID, 36)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "VPX28442", runs[0].Batch)
	assert.Equal(t, 3, runs[0].NSamples)

	sums, err := s.LoadSummaries(ctx, runID)
	require.NoError(t, err)
	require.Len(t, sums, len(resultset.Catalogue)+len(resultset.Pooled))
	assert.Equal(t, "vdp_poly_f", sums[0].Key)
	assert.Equal(t, "vdp_poly_tot", sums[len(resultset.Catalogue)].Key)

	var vbd Summary
	for _, sum := range sums {
		if sum.Key == "v_bd" {
			vbd = sum
		}
	}
	assert.Equal(t, "V", vbd.Unit)
	assert.Equal(t, 3, vbd.NTot)
	assert.Equal(t, 1, vbd.NNan)
	assert.Equal(t, 2, vbd.NSelected)
	assert.InDelta(t, 210, vbd.TotAvg, 1e-9)
	assert.InDelta(t, 10, vbd.SelStd, 1e-9)
	assert.InDelta(t, 107.5, vbd.MinAllowed, 1e-9)
	assert.InDelta(t, 2.0/3, vbd.Yield(), 1e-9)

	values, err := s.LoadValues(ctx, runID, "v_bd")
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, []float64{200, 220}, values[:2])
	assert.True(t, math.IsNaN(values[2]))

	var status string
	require.NoError(t, s.db.QueryRow(`SELECT status FROM measurements WHERE run_id = ? AND idx = 2 AND quantity_key = 'v_bd'`, runID).Scan(&status))
	assert.Equal(t, "failed", status)
	require.NoError(t, s.db.QueryRow(`SELECT status FROM measurements WHERE run_id = ? AND idx = 0 AND quantity_key = 'i600'`, runID).Scan(&status))
	assert.Equal(t, "missing", status)
}

func TestLoadSummariesSelectsRun(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.LoadSummaries(ctx, "")
	assert.ErrorIs(t, err, ErrNoRun)

	first, err := s.SaveResultSet(ctx, batch("first"))
	require.NoError(t, err)
	second, err := s.SaveResultSet(ctx, batch("second"))
	require.NoError(t, err)

	latest, err := s.LoadSummaries(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, second, latest[0].RunID)

	byPrefix, err := s.LoadSummaries(ctx, first[:8])
	require.NoError(t, err)
	assert.Equal(t, first, byPrefix[0].RunID)

	_, err = s.LoadSummaries(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrNoRun)
}
