package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
)

type jsonMeasurement struct {
	Meta   map[string]any        `json:"meta"`
	Series map[string][]*float64 `json:"series"`
	Units  map[string]string     `json:"units,omitempty"`
}

// ParseJSONFile opens and parses a PQC JSON measurement file.
func ParseJSONFile(path string) (*Measurement, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open measurement file: %w", err)
	}
	defer file.Close()
	return ParseJSON(path, file)
}

// ParseJSON reads the JSON form of a measurement: {"meta": {...}, "series":
// {"voltage": [...], ...}}. Null samples become NaN. Columns are ordered by
// name since JSON objects carry no order.
func ParseJSON(path string, r io.Reader) (*Measurement, error) {
	var raw jsonMeasurement
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if len(raw.Series) == 0 {
		return nil, fmt.Errorf("%s: no series found", path)
	}

	m := NewMeasurement(path)
	for k, v := range raw.Meta {
		if s, ok := v.(string); ok {
			m.Meta[k] = s
		} else {
			m.Meta[k] = fmt.Sprint(v)
		}
	}

	names := make([]string, 0, len(raw.Series))
	for name := range raw.Series {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := -1
	for _, name := range names {
		m.addColumn(name, raw.Units[name])
		col := make([]float64, len(raw.Series[name]))
		for k, p := range raw.Series[name] {
			if p == nil {
				col[k] = math.NaN()
				continue
			}
			col[k] = *p
		}
		m.Columns[name] = col

		if rows >= 0 && len(col) != rows {
			return nil, fmt.Errorf("%s: series %q has %d samples, expected %d", path, name, len(col), rows)
		}
		rows = len(col)
	}
	return m, nil
}
