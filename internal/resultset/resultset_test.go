package resultset

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/pqc_analyzer_go/internal/config"
	"github.com/user/pqc_analyzer_go/internal/parser"
	"github.com/user/pqc_analyzer_go/internal/quantity"
)

const vdpRSheet = 453236.0

func measurementText(ts string, header []string, rows [][]float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "sample_name: test\nstart_timestamp: %s\n\n", ts)
	b.WriteString(strings.Join(header, "\t") + "\n")
	for _, r := range rows {
		cells := make([]string, len(r))
		for k, v := range r {
			cells[k] = fmt.Sprintf("%g", v)
		}
		b.WriteString(strings.Join(cells, "\t") + "\n")
	}
	return b.String()
}

func vdpText(ts string) string {
	return measurementText(ts, []string{"current[A]", "voltage_vsrc[V]"}, [][]float64{
		{1e-6, 0.1}, {2e-6, 0.2}, {3e-6, 0.3}, {4e-6, 0.4}, {5e-6, 0.5},
	})
}

func breakdownText(ts string) string {
	return measurementText(ts, []string{"voltage[V]", "current[A]"}, [][]float64{
		{0, 1e-9}, {50, 2e-9}, {100, 5e-9}, {150, 9e-9}, {200, 3e-9},
	})
}

func writeSample(t *testing.T, root, label, ts string) string {
	t.Helper()
	dir := filepath.Join(root, label)
	files := map[string]string{
		"PQCFlutesLeft_van_der_pauw_Polysilicon_cross.txt": vdpText(ts),
		"PQCFlutesLeft_linewidth_n.txt":                    vdpText(ts),
		"PQCFlutesLeft_breakdown.txt":                      breakdownText(ts),
		// no sample at exactly 600 V
		"PQCFlutesLeft_iv_3.txt": measurementText(ts, []string{"voltage[V]", "current_elm[A]"}, [][]float64{
			{0, 1e-9}, {-100, 2e-9}, {-200, 3e-9},
		}),
	}
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Workers = 2
	a, err := NewAnalyzer(cfg, nil)
	require.NoError(t, err)
	return a
}

func value(t *testing.T, rs *ResultSet, key string, index int) float64 {
	t.Helper()
	q, err := rs.Quantity(key)
	require.NoError(t, err)
	require.Greater(t, q.Len(), index)
	return q.Values()[index]
}

func TestAnalyzeSample(t *testing.T) {
	dir := writeSample(t, t.TempDir(), "HPK_VPX28442_001", "2021-09-29T10:15:30")
	s := newAnalyzer(t).AnalyzeSample(dir)

	assert.Equal(t, "HPK_VPX28442_001", s.Label)
	assert.Equal(t, "PQCFlutesLeft", s.Flute)
	assert.Equal(t, time.Date(2021, 9, 29, 10, 15, 30, 0, time.UTC), s.Timestamp)
	assert.Len(t, s.Values, len(Catalogue))

	assert.InDelta(t, vdpRSheet, s.Values["vdp_poly_f"], 1)
	assert.InDelta(t, 150, s.Values["v_bd"], 1e-9)

	// not measured
	assert.True(t, math.IsInf(s.Values["vdp_poly_r"], 1))
	assert.True(t, math.IsInf(s.Values["vdp_n_f"], 1))
	assert.True(t, math.IsInf(s.Values["v_fd"], 1))
	assert.True(t, math.IsInf(s.Values["rho"], 1))

	// measured but not evaluable: no N+ sheet resistance, no 600 V sample
	assert.True(t, math.IsNaN(s.Values["t_line_n"]))
	assert.True(t, math.IsNaN(s.Values["i600"]))
}

func TestAnalyzeSampleOtherFlute(t *testing.T) {
	dir := writeSample(t, t.TempDir(), "sample", "2021-09-29T10:15:30")
	cfg := config.DefaultConfig()
	cfg.Flute = "PQCFlutesRight"
	a, err := NewAnalyzer(cfg, nil)
	require.NoError(t, err)

	s := a.AnalyzeSample(dir)
	assert.Equal(t, "PQCFlutesRight", s.Flute)
	assert.True(t, math.IsInf(s.Values["vdp_poly_f"], 1))
	assert.True(t, math.IsInf(s.Values["v_bd"], 1))
}

func TestRunStepRecoversPanic(t *testing.T) {
	dir := writeSample(t, t.TempDir(), "sample", "2021-09-29T10:15:30")
	a := newAnalyzer(t)
	s := Sample{Label: "sample", Values: map[string]float64{}}

	a.runStep(dir, &s, step{
		kind: "breakdown",
		keys: []string{"v_bd", "i600"},
		eval: func(*parser.Measurement, map[string]float64) ([]float64, error) {
			panic("boom")
		},
	})
	assert.True(t, math.IsNaN(s.Values["v_bd"]))
	assert.True(t, math.IsNaN(s.Values["i600"]))
}

func TestAnalyzeKeepsOrderAndSortsByTime(t *testing.T) {
	root := t.TempDir()
	dirs := []string{
		writeSample(t, root, "c", "2021-09-29T12:00:00"),
		writeSample(t, root, "a", "2021-09-29T10:00:00"),
		writeSample(t, root, "b", "2021-09-29T11:00:00"),
	}
	// b has no breakdown measurement
	require.NoError(t, os.Remove(filepath.Join(dirs[2], "PQCFlutesLeft_breakdown.txt")))

	rs, err := newAnalyzer(t).Analyze(context.Background(), "batch", dirs)
	require.NoError(t, err)
	assert.Equal(t, 3, rs.Len())
	assert.Equal(t, []string{"c", "a", "b"}, rs.Labels())
	assert.True(t, math.IsInf(value(t, rs, "v_bd", 2), 1))

	for _, key := range rs.Keys() {
		q, err := rs.Quantity(key)
		require.NoError(t, err)
		assert.Equal(t, rs.Len(), q.Len(), key)
	}

	require.NoError(t, rs.SortByTime())
	assert.Equal(t, []string{"a", "b", "c"}, rs.Labels())
	assert.True(t, math.IsInf(value(t, rs, "v_bd", 1), 1), "values move with their sample")
	assert.InDelta(t, 150, value(t, rs, "v_bd", 0), 1e-9)
	assert.InDelta(t, 150, value(t, rs, "v_bd", 2), 1e-9)

	ts := rs.Timestamps()
	assert.True(t, ts[0].Before(ts[1]) && ts[1].Before(ts[2]))
}

func TestAnalyzeCancelled(t *testing.T) {
	dir := writeSample(t, t.TempDir(), "sample", "2021-09-29T10:15:30")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newAnalyzer(t).Analyze(ctx, "batch", []string{dir})
	assert.ErrorIs(t, err, context.Canceled)
}

func sampleSet(n int) *ResultSet {
	rs := New("batch", nil)
	base := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	for k := 0; k < n; k++ {
		rs.AppendSample(Sample{
			Label:     fmt.Sprintf("s%d", k),
			Flute:     "PQCFlutesLeft",
			Timestamp: base.Add(time.Duration(n-k) * time.Hour),
			Values: map[string]float64{
				"vdp_poly_f": float64(k),
				"vdp_poly_r": float64(10 + k),
			},
		})
	}
	return rs
}

func TestAppendSampleMissingKeys(t *testing.T) {
	rs := sampleSet(1)
	rs.AppendSample(Sample{Label: "x", Values: map[string]float64{"bogus": 1}})

	assert.Equal(t, 2, rs.Len())
	assert.True(t, math.IsInf(value(t, rs, "vdp_poly_f", 1), 1))
	assert.True(t, math.IsInf(value(t, rs, "v_bd", 0), 1))

	_, err := rs.Quantity("bogus")
	assert.ErrorIs(t, err, ErrUnknownQuantity)
}

func TestRearrange(t *testing.T) {
	rs := sampleSet(3)

	require.NoError(t, rs.Rearrange([]int{2, 0, 1}))
	assert.Equal(t, []string{"s2", "s0", "s1"}, rs.Labels())
	q, _ := rs.Quantity("vdp_poly_f")
	assert.Equal(t, []float64{2, 0, 1}, q.Values())

	require.NoError(t, rs.Rearrange([]int{1, 2, 0}))
	assert.Equal(t, []string{"s0", "s1", "s2"}, rs.Labels())
	assert.Equal(t, []float64{0, 1, 2}, q.Values())

	for _, bad := range [][]int{{0, 1}, {0, 0, 1}, {0, 1, 3}, {-1, 0, 1}} {
		assert.ErrorIs(t, rs.Rearrange(bad), ErrBadPermutation)
	}
	assert.Equal(t, []string{"s0", "s1", "s2"}, rs.Labels(), "failed rearrange changes nothing")
	assert.Equal(t, []float64{0, 1, 2}, q.Values())
}

func TestSortByTime(t *testing.T) {
	rs := sampleSet(4)
	require.NoError(t, rs.SortByTime())
	assert.Equal(t, []string{"s3", "s2", "s1", "s0"}, rs.Labels())
	assert.Equal(t, []float64{13, 12, 11, 10}, mustValues(t, rs, "vdp_poly_r"))
}

func mustValues(t *testing.T, rs *ResultSet, key string) []float64 {
	t.Helper()
	q, err := rs.Quantity(key)
	require.NoError(t, err)
	return q.Values()
}

func TestSplit(t *testing.T) {
	rs := sampleSet(5)

	chunks, err := rs.Split(2)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "batch_1", chunks[0].Batch)
	assert.Equal(t, "batch_3", chunks[2].Batch)
	assert.Equal(t, []string{"s4"}, chunks[2].Labels())

	var labels []string
	var values []float64
	for _, c := range chunks {
		assert.Equal(t, c.Len(), len(mustValues(t, c, "v_bd")))
		labels = append(labels, c.Labels()...)
		values = append(values, mustValues(t, c, "vdp_poly_f")...)
	}
	assert.Equal(t, rs.Labels(), labels)
	assert.Equal(t, mustValues(t, rs, "vdp_poly_f"), values)

	_, err = rs.Split(0)
	assert.Error(t, err)
}

func TestTotals(t *testing.T) {
	rs := sampleSet(3)
	totals, err := rs.Totals()
	require.NoError(t, err)
	require.Len(t, totals, len(Pooled))

	poly := totals[0]
	assert.Equal(t, "vdp_poly_tot", poly.Name)
	assert.Equal(t, "kOhm/sq", poly.Unit)
	assert.Equal(t, []float64{0, 1, 2, 10, 11, 12}, poly.Values())
	assert.Equal(t, 6, totals[1].Len())
}

func TestTotalsKeepOverriddenBounds(t *testing.T) {
	lo, hi := 1.5, 2.5
	rs := New("batch", map[string]config.QuantityOverride{
		"vdp_poly_f": {Min: &lo, Max: &hi},
	})
	totals, err := rs.Totals()
	require.NoError(t, err)

	assert.Equal(t, "vdp_poly_tot", totals[0].Name)
	assert.Equal(t, 1.5, totals[0].MinAllowed())
	assert.Equal(t, 2.5, totals[0].MaxAllowed())
}

func TestNewAppliesOverrides(t *testing.T) {
	expected, lo := 300.0, 10.0
	rs := New("batch", map[string]config.QuantityOverride{
		"v_fd": {Expected: &expected, Min: &lo},
	})

	q, err := rs.Quantity("v_fd")
	require.NoError(t, err)
	assert.Equal(t, 300.0, q.Expected)
	assert.Equal(t, 10.0, q.MinAllowed())
	assert.InDelta(t, 399, q.MaxAllowed(), 1e-9)

	other, _ := rs.Quantity("v_bd")
	assert.Equal(t, 215.0, other.Expected)
	assert.Equal(t, quantity.DefaultStray, other.Stray)
}

func TestCatalogueKeysUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, e := range Catalogue {
		assert.False(t, seen[e.Key], e.Key)
		seen[e.Key] = true
	}
	for _, p := range Pooled {
		for _, key := range p.Keys {
			assert.True(t, seen[key], key)
		}
	}
}
