package report

import (
	"bytes"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/user/pqc_analyzer_go/internal/quantity"
)

// statusGrid lays out quantities as rows and samples as columns. Z is the
// status code of the cell.
type statusGrid struct {
	quantities []*quantity.Quantity
	samples    int
}

func (g statusGrid) Dims() (c, r int) { return g.samples, len(g.quantities) }
func (g statusGrid) X(c int) float64 { return float64(c) }
func (g statusGrid) Y(r int) float64 { return float64(r) }
func (g statusGrid) Z(c, r int) float64 { return float64(g.quantities[r].GetStatus(c)) }

// CreateStatusMap renders one coloured cell per sample and quantity, using
// the status colours of the tables.
func CreateStatusMap(batch string, quantities []*quantity.Quantity, labels []string) ([]byte, error) {
	if len(quantities) == 0 || len(labels) == 0 {
		return nil, fmt.Errorf("status map: %w", ErrNoValidResults)
	}
	grid := statusGrid{quantities: quantities, samples: len(labels)}
	numCols, numRows := grid.Dims()

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: status per sample (green ok, yellow too low, orange too high, red failed, grey missing)", batch)
	p.X.Label.Text = "Sample"

	yTicks := make([]plot.Tick, numRows)
	for i, q := range quantities {
		yTicks[i] = plot.Tick{Value: float64(i), Label: q.Label}
	}
	p.Y.Tick.Marker = plot.ConstantTicks(yTicks)
	p.Y.Min = -0.5
	p.Y.Max = float64(numRows) - 0.5

	p.X.Tick.Marker = plot.ConstantTicks(sampleTicks(labels, numCols, maxSampleTicks))
	p.X.Min = -0.5
	p.X.Max = float64(numCols) - 0.5

	hm := plotter.NewHeatMap(grid, newStatusPalette())
	hm.Min = float64(quantity.StatusNone)
	hm.Max = float64(quantity.StatusInf)
	p.Add(hm)

	width := max(vg.Points(800), vg.Points(20*float64(numCols)))
	height := max(vg.Points(500), vg.Points(14*float64(numRows)))
	writer, err := p.WriterTo(width, height, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create status map writer: %w", err)
	}
	buf := new(bytes.Buffer)
	if _, err := writer.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write status map to buffer: %w", err)
	}
	return buf.Bytes(), nil
}
