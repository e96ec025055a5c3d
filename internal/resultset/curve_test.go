package resultset

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/pqc_analyzer_go/internal/analysis"
	"github.com/user/pqc_analyzer_go/internal/parser"
)

func parseText(t *testing.T, text string) *parser.Measurement {
	t.Helper()
	m, err := parser.ParseText("test.txt", strings.NewReader(text))
	require.NoError(t, err)
	return m
}

func TestEvaluateCurve(t *testing.T) {
	a := newAnalyzer(t)
	ts := "2021-09-29T10:00:00"

	tests := []struct {
		name      string
		structure string
		text      string
		field     string
		want      float64
		delta     float64
	}{
		{name: "van der pauw", structure: "vdp", text: vdpText(ts), field: "r_sheet", want: vdpRSheet, delta: 1},
		{name: "breakdown", structure: "breakdown", text: breakdownText(ts), field: "v_bd", want: 150, delta: 1e-9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := a.EvaluateCurve(tt.structure, parseText(t, tt.text), 0)
			require.NoError(t, err)
			assert.Equal(t, tt.structure, r.Structure)
			assert.Equal(t, analysis.StatusPassed, r.Status)
			require.NotEmpty(t, r.Fields)
			assert.Equal(t, tt.field, r.Fields[0].Name)
			assert.InDelta(t, tt.want, r.Fields[0].Value, tt.delta)
		})
	}
}

func TestEvaluateCurveErrors(t *testing.T) {
	a := newAnalyzer(t)
	m := parseText(t, breakdownText("2021-09-29T10:00:00"))

	_, err := a.EvaluateCurve("nope", m, 0)
	assert.ErrorIs(t, err, ErrUnknownStructure)

	// breakdown files carry no capacitance column
	_, err = a.EvaluateCurve("capacitor", m, 0)
	assert.ErrorIs(t, err, parser.ErrNoColumn)

	r, err := a.EvaluateCurve("linewidth", parseText(t, vdpText("2021-09-29T10:00:00")), math.NaN())
	require.NoError(t, err)
	assert.Equal(t, analysis.StatusFailed, r.Status)
	assert.ErrorIs(t, r.Err, analysis.ErrInvalidSheetResistance)
}

func TestStructures(t *testing.T) {
	kinds := Structures()
	assert.Len(t, kinds, len(curveEvals))
	assert.IsIncreasing(t, kinds)
	assert.Contains(t, kinds, "meander_poly")
}

func TestEvaluateCurveShortFile(t *testing.T) {
	a := newAnalyzer(t)
	ts := "2021-09-29T10:00:00"
	rows := map[string][][]float64{
		"single row": {{1e-6, 0.1}},
		"two rows":   {{1e-6, 0.1}, {2e-6, 0.2}},
	}
	for name, data := range rows {
		t.Run(name, func(t *testing.T) {
			m := parseText(t, measurementText(ts, []string{"current[A]", "voltage_vsrc[V]"}, data))
			var (
				r   CurveResult
				err error
			)
			require.NotPanics(t, func() { r, err = a.EvaluateCurve("vdp", m, 0) })
			require.NoError(t, err)
			assert.Equal(t, analysis.StatusFailed, r.Status)
			assert.Error(t, r.Err)
		})
	}
}
