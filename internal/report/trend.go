package report

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/user/pqc_analyzer_go/internal/quantity"
)

const maxSampleTicks = 25

// CreateTrendPlot plots the values of q in sample order with the acceptance
// bounds as dashed lines. labels name the samples on the X axis.
func CreateTrendPlot(batch string, q *quantity.Quantity, labels []string) ([]byte, error) {
	n := q.Len()
	if n == 0 {
		return nil, fmt.Errorf("%s: %w", q.Name, ErrNoValidResults)
	}

	byStatus := map[quantity.Status]plotter.XYs{}
	finite := 0
	for k, v := range q.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		finite++
		s := q.GetStatus(k)
		byStatus[s] = append(byStatus[s], plotter.XY{X: float64(k), Y: v * q.Multiplier})
	}
	if finite == 0 {
		return nil, fmt.Errorf("%s: %w", q.Name, ErrNoValidResults)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %s", batch, q.Label)
	p.X.Label.Text = "Sample"
	p.Y.Label.Text = fmt.Sprintf("%s [%s]", q.Label, q.Unit)
	p.X.Min = -0.5
	p.X.Max = float64(n) - 0.5
	p.X.Tick.Marker = plot.ConstantTicks(sampleTicks(labels, n, maxSampleTicks))
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	p.Add(plotter.NewGrid())

	for _, bound := range []struct {
		y     float64
		label string
	}{
		{q.MaxAllowed(), "Max"},
		{q.MinAllowed(), "Min"},
	} {
		l, err := plotter.NewLine(plotter.XYs{{X: p.X.Min, Y: bound.y}, {X: p.X.Max, Y: bound.y}})
		if err != nil {
			return nil, fmt.Errorf("failed to create %s line: %w", bound.label, err)
		}
		l.Color = color.RGBA{R: 255, A: 255}
		l.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("%s: %s", bound.label, quantity.FormatNumber(bound.y, q.Expected)), l)
	}

	expected, err := plotter.NewLine(plotter.XYs{{X: p.X.Min, Y: q.Expected}, {X: p.X.Max, Y: q.Expected}})
	if err != nil {
		return nil, fmt.Errorf("failed to create expected line: %w", err)
	}
	expected.Color = color.Gray{Y: 128}
	expected.LineStyle.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	p.Add(expected)
	p.Legend.Add("Expected", expected)

	for _, s := range []quantity.Status{quantity.StatusOK, quantity.StatusTooLow, quantity.StatusTooHigh} {
		pts, ok := byStatus[s]
		if !ok {
			continue
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s points: %w", s, err)
		}
		sc.GlyphStyle.Color = StatusColor(s)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add(s.String(), sc)
	}

	p.Legend.Top = true
	p.Legend.XOffs = vg.Points(-10)

	writer, err := p.WriterTo(vg.Points(800), vg.Points(400), "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create plot writer: %w", err)
	}
	buf := new(bytes.Buffer)
	if _, err := writer.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write plot to buffer: %w", err)
	}
	return buf.Bytes(), nil
}

// sampleTicks labels at most maxTicks of n sample positions, evenly spaced.
// Positions without a label are numbered.
func sampleTicks(labels []string, n, maxTicks int) []plot.Tick {
	step := 1
	if n > maxTicks {
		step = (n + maxTicks - 1) / maxTicks
	}
	var ticks []plot.Tick
	for i := 0; i < n; i += step {
		label := fmt.Sprintf("%d", i+1)
		if i < len(labels) {
			label = labels[i]
		}
		ticks = append(ticks, plot.Tick{Value: float64(i), Label: label})
	}
	return ticks
}
