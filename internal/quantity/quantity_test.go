package quantity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQuantity(values ...float64) *Quantity {
	q := New(Definition{Name: "v_fd", Label: "Full depletion Voltage", Unit: "V", Expected: 100, Stray: 0.5})
	for _, v := range values {
		q.Append(v)
	}
	return q
}

func TestBoundsFromExpected(t *testing.T) {
	q := newTestQuantity()
	assert.Equal(t, 50.0, q.MinAllowed())
	assert.Equal(t, 150.0, q.MaxAllowed())
	assert.Equal(t, 1.0, q.Multiplier, "zero multiplier defaults to 1")

	q.SetMinAllowed(10)
	q.SetMaxAllowed(20)
	assert.Equal(t, 10.0, q.MinAllowed())
	assert.Equal(t, 20.0, q.MaxAllowed())

	q.ResetBounds()
	assert.Equal(t, 50.0, q.MinAllowed())
	assert.Equal(t, 150.0, q.MaxAllowed())
}

func TestClassify(t *testing.T) {
	q := newTestQuantity(50, 100, 200, math.NaN(), math.Inf(1), 150, 50.5)

	want := []Status{StatusTooLow, StatusOK, StatusTooHigh, StatusNaN, StatusInf, StatusTooHigh, StatusOK}
	for k, w := range want {
		assert.Equal(t, w, q.GetStatus(k), "index %d", k)
	}
	assert.Equal(t, StatusNone, q.GetStatus(len(want)))
	assert.Equal(t, StatusNone, q.GetStatus(-1))
}

func TestClassifyUsesMultiplier(t *testing.T) {
	q := New(Definition{Name: "i600", Unit: "uA", Expected: 100, Multiplier: 1e6, Stray: 1})
	assert.Equal(t, StatusOK, q.Classify(50e-6))
	assert.Equal(t, StatusTooHigh, q.Classify(250e-6))
	assert.Equal(t, StatusTooLow, q.Classify(-1e-6))

	neg := New(Definition{Name: "i_surf", Unit: "pA", Expected: 8, Multiplier: -1e12, Stray: 1})
	assert.Equal(t, StatusOK, neg.Classify(-8e-12))
	assert.Equal(t, StatusTooLow, neg.Classify(8e-12))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "failed", StatusNaN.String())
	assert.Equal(t, "missing", StatusInf.String())
	assert.True(t, StatusNaN.Failed())
	assert.True(t, StatusInf.Failed())
	assert.False(t, StatusTooHigh.Failed())
}

func TestGetStats(t *testing.T) {
	q := newTestQuantity(40, 80, 100, 120, 160, math.NaN(), math.Inf(1))
	st := q.GetStats()

	assert.Equal(t, 6, st.NTot, "Inf is not counted")
	assert.Equal(t, 1, st.NNan)
	assert.Equal(t, 1, st.NTooHigh)
	assert.Equal(t, 1, st.NTooLow)
	assert.Equal(t, []float64{80, 100, 120}, st.Values)

	assert.InDelta(t, 100, st.TotAvg, 1e-12)
	assert.InDelta(t, 100, st.TotMed, 1e-12)
	assert.InDelta(t, 40, st.TotStd, 1e-9)
	assert.InDelta(t, 100, st.SelAvg, 1e-12)
	assert.InDelta(t, math.Sqrt(800.0/3), st.SelStd, 1e-9)
	assert.InDelta(t, 100, st.SelMed, 1e-12)
}

func TestGetStatsCountsAddUp(t *testing.T) {
	inputs := [][]float64{
		{1, 2},
		{50, 100, 200, math.NaN()},
		{math.NaN(), math.NaN(), 149.9, 150, 50, 50.1, math.Inf(-1), 75},
		{300, 400, 500},
		{-10, 0, 10, 20, 30, math.Inf(1), math.Inf(1)},
	}
	for _, in := range inputs {
		st := newTestQuantity(in...).GetStats()
		assert.Equal(t, st.NTot, st.NNan+st.NTooHigh+st.NTooLow+st.Selected(), "input %v", in)
	}
}

func TestGetStatsEmptySelection(t *testing.T) {
	st := newTestQuantity(300, 400, 500).GetStats()

	assert.Equal(t, 3, st.NTooHigh)
	assert.Empty(t, st.Values)
	assert.True(t, math.IsNaN(st.SelAvg))
	assert.True(t, math.IsNaN(st.SelStd))
	assert.True(t, math.IsNaN(st.SelMed))
	assert.InDelta(t, 400, st.TotMed, 1e-12)
	assert.Equal(t, 0.0, st.Yield())
}

func TestGetStatsDegenerate(t *testing.T) {
	for _, in := range [][]float64{nil, {100}, {100, math.NaN(), math.Inf(1)}} {
		st := newTestQuantity(in...).GetStats()
		assert.Equal(t, []float64{0}, st.Values)
		assert.Equal(t, 1, st.NTot)
		assert.Equal(t, 1, st.NNan)
		assert.Zero(t, st.NTooHigh)
		assert.Zero(t, st.NTooLow)
		assert.Zero(t, st.TotAvg)
		assert.Zero(t, st.SelMed)
	}
}

func TestGetStatsWithin(t *testing.T) {
	q := newTestQuantity(40, 80, 100, 120, 160)

	st := q.GetStatsWithin(-50, 250)
	assert.Len(t, st.Values, 5)
	assert.Zero(t, st.NTooHigh)
	assert.Zero(t, st.NTooLow)

	// the quantity's own bounds are untouched
	assert.Len(t, q.GetStats().Values, 3)
}

func TestGetValue(t *testing.T) {
	q := New(Definition{Name: "i600", Unit: "uA", Expected: 100, Multiplier: 1e6, Stray: 1})
	for _, v := range []float64{50e-6, 100e-6, 150e-6, 250e-6} {
		q.Append(v)
	}

	v, err := q.GetValue(1)
	require.NoError(t, err)
	assert.InDelta(t, 100, v, 1e-9)

	want := []float64{125, 137.5, math.Sqrt(5468.75), 3, 0.75}
	for slot, w := range want {
		v, err := q.GetValue(q.Len() + slot)
		require.NoError(t, err)
		assert.InDelta(t, w, v, 1e-9, "slot %d", slot)
	}

	_, err = q.GetValue(q.Len() + 5)
	assert.ErrorIs(t, err, ErrNoSummarySlot)
	_, err = q.GetValue(-1)
	assert.ErrorIs(t, err, ErrBadIndex)
}

func TestGetValueString(t *testing.T) {
	q := newTestQuantity(80, math.NaN(), math.Inf(1), 120.04, 300)

	tests := []struct {
		index int
		want  string
	}{
		{index: 0, want: "80.0"},
		{index: 1, want: "failed"},
		{index: 2, want: "---"},
		{index: 3, want: "120.0"},
		{index: 5, want: "120.0"},
		{index: 8, want: "2/4"},
		{index: 9, want: "0.50"},
	}
	for _, tt := range tests {
		got, err := q.GetValueString(tt.index)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "index %d", tt.index)
	}

	_, err := q.GetValueString(10)
	assert.ErrorIs(t, err, ErrNoSummarySlot)
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "2.35", FormatNumber(2.345678, 2.4))
	assert.Equal(t, "35.1", FormatNumber(35.06, 35))
	assert.Equal(t, "0.00", FormatNumber(0, 0))
}

func TestStatsLabels(t *testing.T) {
	labels := StatsLabels()
	assert.Equal(t, []string{"Median", "Average", "Std dev.", "OK/Tot.", "OK (rel)"}, labels)

	labels[0] = "changed"
	assert.Equal(t, "Median", StatsLabels()[0])
}

func TestMerge(t *testing.T) {
	a := New(Definition{Name: "vdp_poly_f", Unit: "kOhm/sq", Expected: 2.4, Multiplier: 1e-3, Stray: 0.2})
	b := New(Definition{Name: "vdp_poly_r", Unit: "Ohm/sq", Expected: 7, Multiplier: 1, Stray: 0.9})
	a.Append(2400)
	a.Append(math.NaN())
	b.Append(2500)
	b.Append(math.Inf(1))
	b.Append(2600)

	m, err := Merge("vdp_poly_tot", "PolySi VdP both", a, b)
	require.NoError(t, err)

	assert.Equal(t, "vdp_poly_tot", m.Name)
	assert.Equal(t, "PolySi VdP both", m.Label)
	assert.Equal(t, "kOhm/sq", m.Unit)
	assert.Equal(t, 2.4, m.Expected)
	assert.Equal(t, 1e-3, m.Multiplier)
	assert.Equal(t, 0.2, m.Stray)

	got := m.Values()
	require.Len(t, got, 5)
	assert.Equal(t, 2400.0, got[0])
	assert.True(t, math.IsNaN(got[1]))
	assert.Equal(t, 2500.0, got[2])
	assert.True(t, math.IsInf(got[3], 1))
	assert.Equal(t, 2600.0, got[4])

	m.Append(1)
	assert.Equal(t, 2, a.Len(), "parents are not modified")

	_, err = Merge("x", "x")
	assert.ErrorIs(t, err, ErrNothingToMerge)
}

func TestSplit(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7}
	q := newTestQuantity(values...)
	q.SetMaxAllowed(6)

	for k := 1; k <= 8; k++ {
		chunks, err := q.Split(k)
		require.NoError(t, err)

		var joined []float64
		for c, chunk := range chunks {
			assert.Equal(t, q.Definition, chunk.Definition)
			assert.Equal(t, 6.0, chunk.MaxAllowed())
			if c < len(chunks)-1 {
				assert.Equal(t, k, chunk.Len())
			}
			joined = append(joined, chunk.Values()...)
		}
		assert.Equal(t, values, joined, "chunk size %d", k)
	}

	_, err := q.Split(0)
	assert.Error(t, err)
}

func TestRearrange(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50}
	q := newTestQuantity(values...)
	perm := []int{3, 0, 4, 1, 2}

	require.NoError(t, q.Rearrange(perm))
	assert.Equal(t, []float64{40, 10, 50, 20, 30}, q.Values())

	inverse := make([]int, len(perm))
	for k, p := range perm {
		inverse[p] = k
	}
	require.NoError(t, q.Rearrange(inverse))
	assert.Equal(t, values, q.Values())

	err := q.Rearrange([]int{0, 7})
	assert.ErrorIs(t, err, ErrBadIndex)
	assert.Equal(t, values, q.Values(), "failed rearrange leaves values alone")
}

func TestString(t *testing.T) {
	q := New(Definition{Name: "v_bd", Unit: "V", Multiplier: 2})
	q.Append(0.5)
	q.Append(107.5)
	assert.Equal(t, "v_bd[1 215]V", q.String())
}

func TestMergeKeepsExplicitBounds(t *testing.T) {
	a := New(Definition{Name: "vdp_poly_f", Unit: "Ohm/sq", Expected: 100, Stray: 0.5})
	a.SetMinAllowed(90)
	a.SetMaxAllowed(110)
	b := New(Definition{Name: "vdp_poly_r", Unit: "Ohm/sq", Expected: 100, Stray: 0.5})
	a.Append(130)
	b.Append(100)

	m, err := Merge("vdp_poly_tot", "PolySi VdP both", a, b)
	require.NoError(t, err)

	assert.Equal(t, 90.0, m.MinAllowed())
	assert.Equal(t, 110.0, m.MaxAllowed())
	assert.Equal(t, StatusTooHigh, a.GetStatus(0))
	assert.Equal(t, StatusTooHigh, m.GetStatus(0))
	assert.Equal(t, StatusOK, m.GetStatus(1))

	m.SetMaxAllowed(200)
	assert.Equal(t, 110.0, a.MaxAllowed(), "bounds are copied, not shared")
}
