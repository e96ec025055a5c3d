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
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/user/pqc_analyzer_go/internal/quantity"
)

const (
	histBins         = 20
	extendedHistBins = 50

	histWidth  = vg.Length(800)
	histHeight = vg.Length(500)
	statusBarW = vg.Length(120)
)

// CreateHistogram renders the distribution of the accepted values of q
// next to a bar with the status fractions of the batch. With a positive
// rangeExtension the range becomes [0, max*rangeExtension] with finer bins.
// ErrNoValidResults is returned when q has fewer than two finite values.
func CreateHistogram(batch string, q *quantity.Quantity, rangeExtension float64) ([]byte, error) {
	lo, hi := q.MinAllowed(), q.MaxAllowed()
	bins := histBins
	title := fmt.Sprintf("%s: %s", batch, q.Label)
	st := q.GetStats()
	if rangeExtension > 0 {
		lo, hi = 0, hi*rangeExtension
		bins = extendedHistBins
		title += fmt.Sprintf(", range up to %.1E %s", hi, q.Unit)
		st = q.GetStatsWithin(lo, hi)
	}
	if degenerate(st) {
		return nil, fmt.Errorf("%s: %w", q.Name, ErrNoValidResults)
	}
	if !(hi > lo) {
		return nil, fmt.Errorf("%s: empty histogram range [%g, %g]", q.Name, lo, hi)
	}

	bars, err := statusBars(st)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = fmt.Sprintf("%s [%s]", q.Label, q.Unit)
	p.Y.Label.Text = "Number of samples"
	p.X.Min, p.X.Max = lo, hi
	p.Y.Min = 0
	p.Add(plotter.NewGrid())

	width := (hi - lo) / float64(bins)
	hist := &plotter.Histogram{
		Bins:      binValues(st.Values, lo, width, bins),
		Width:     width,
		FillColor: color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 255},
		LineStyle: plotter.DefaultLineStyle,
	}
	p.Add(hist)

	p.Legend.Top = true
	p.Legend.Add(fmt.Sprintf("Total: %d", st.NTot))
	p.Legend.Add(fmt.Sprintf("Shown: %d", st.Selected()), bars[0])
	p.Legend.Add(fmt.Sprintf("Failed: %d", st.NNan), bars[1])
	p.Legend.Add(fmt.Sprintf("Too high: %d", st.NTooHigh), bars[2])
	p.Legend.Add(fmt.Sprintf("Too low: %d", st.NTooLow), bars[3])
	if st.Selected() > 0 {
		f := statsFormat(st)
		p.Legend.Add("Median: " + fmt.Sprintf(f, st.SelMed))
		p.Legend.Add("Average: " + fmt.Sprintf(f, st.SelAvg))
		p.Legend.Add("Std dev.: " + fmt.Sprintf(f, st.SelStd))
	}

	sb := plot.New()
	sb.Title.Text = "Status"
	sb.Y.Min, sb.Y.Max = 0, 1
	sb.Y.Label.Text = "Fraction of samples"
	sb.HideX()
	for _, b := range bars {
		sb.Add(b)
	}

	c := vgimg.New(histWidth, histHeight)
	dc := draw.New(c)
	p.Draw(draw.Crop(dc, 0, -statusBarW, 0, 0))
	sb.Draw(draw.Crop(dc, histWidth-statusBarW, 0, 0, 0))

	buf := new(bytes.Buffer)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write histogram to buffer: %w", err)
	}
	return buf.Bytes(), nil
}

// degenerate matches the placeholder statistics of a quantity with fewer
// than two finite values.
func degenerate(st quantity.Stats) bool {
	return len(st.Values) == 1 && st.NTot == 1 && st.NNan == 1
}

// binValues counts values into n equal bins starting at lo. Values outside
// the range are dropped.
func binValues(values []float64, lo, width float64, n int) []plotter.HistogramBin {
	bins := make([]plotter.HistogramBin, n)
	for i := range bins {
		bins[i].Min = lo + float64(i)*width
		bins[i].Max = bins[i].Min + width
	}
	for _, v := range values {
		i := int(math.Floor((v - lo) / width))
		if i == n {
			i = n - 1
		}
		if i < 0 || i >= n {
			continue
		}
		bins[i].Weight++
	}
	return bins
}

// statusBars stacks the fractions of accepted, failed, too high and too low
// samples, in that order.
func statusBars(st quantity.Stats) ([]*plotter.BarChart, error) {
	parts := []struct {
		n int
		c color.Color
	}{
		{st.Selected(), colorOK},
		{st.NNan, colorFailed},
		{st.NTooHigh, colorTooHigh},
		{st.NTooLow, colorTooLow},
	}

	bars := make([]*plotter.BarChart, 0, len(parts))
	for _, part := range parts {
		b, err := plotter.NewBarChart(plotter.Values{float64(part.n) / float64(st.NTot)}, vg.Points(40))
		if err != nil {
			return nil, fmt.Errorf("failed to create status bar: %w", err)
		}
		b.Color = part.c
		b.LineStyle.Width = 0
		if len(bars) > 0 {
			b.StackOn(bars[len(bars)-1])
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// statsFormat picks one precision for all statistics of a histogram from
// the magnitude of the data.
func statsFormat(st quantity.Stats) string {
	switch {
	case math.Abs(st.SelMed) < 9.99:
		return "%4.2f"
	case math.Abs(st.TotAvg) < 1e6:
		return "%5.1f"
	default:
		return "%9.2E"
	}
}
