package logger

import (
	"strings"

	"github.com/fatih/color"
)

// Tone classifies a piece of output for colouring.
type Tone int

const (
	TonePlain Tone = iota
	ToneGood
	ToneWarn
	ToneBad
	ToneMuted
)

var toneColors = map[Tone]*color.Color{
	ToneGood:  color.New(color.FgGreen),
	ToneWarn:  color.New(color.FgYellow),
	ToneBad:   color.New(color.FgRed, color.Bold),
	ToneMuted: color.New(color.FgHiBlack),
}

// Paint colours text by tone when the logger writes to a terminal and
// returns it unchanged otherwise.
func (cl *ConsoleLogger) Paint(tone Tone, text string) string {
	if !cl.colorOutput {
		return text
	}
	c, ok := toneColors[tone]
	if !ok {
		return text
	}
	return c.Sprint(text)
}

func colorLevel(level string) string {
	switch strings.ToUpper(level) {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	default:
		return level
	}
}
