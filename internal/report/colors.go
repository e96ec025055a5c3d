// Package report renders batch results: histograms with a status bar, trend
// plots, a status map and a PDF summary.
package report

import (
	"errors"
	"image/color"

	"github.com/user/pqc_analyzer_go/internal/quantity"
)

// ErrNoValidResults is returned for a quantity without enough finite values
// to plot. Callers skip the plot.
var ErrNoValidResults = errors.New("no valid results")

var (
	colorOK      = color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 255} // green
	colorFailed  = color.RGBA{R: 0xaa, G: 0x00, B: 0x00, A: 255} // red
	colorTooHigh = color.RGBA{R: 0xff, G: 0x99, B: 0x00, A: 255} // orange
	colorTooLow  = color.RGBA{R: 0xff, G: 0xff, B: 0x00, A: 255} // yellow
	colorMissing = color.Gray{Y: 200}
	colorNone    = color.White
)

// StatusColor returns the colour used for a value status in plots and
// tables.
func StatusColor(s quantity.Status) color.Color {
	switch s {
	case quantity.StatusOK:
		return colorOK
	case quantity.StatusTooLow:
		return colorTooLow
	case quantity.StatusTooHigh:
		return colorTooHigh
	case quantity.StatusNaN:
		return colorFailed
	case quantity.StatusInf:
		return colorMissing
	default:
		return colorNone
	}
}

// statusPalette maps status codes 0..5 to their colours, in code order.
type statusPalette []color.Color

func (p statusPalette) Colors() []color.Color { return p }

func newStatusPalette() statusPalette {
	p := make(statusPalette, quantity.StatusInf+1)
	for s := quantity.StatusNone; s <= quantity.StatusInf; s++ {
		p[s] = StatusColor(s)
	}
	return p
}
