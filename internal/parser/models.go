package parser

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNoColumn is returned when none of the requested column names exist.
	ErrNoColumn = errors.New("column not found")
	// ErrNoFile is returned when discovery finds no matching measurement file.
	ErrNoFile = errors.New("no matching measurement file")
	// ErrMultipleFiles is returned when a single file was requested but
	// several match.
	ErrMultipleFiles = errors.New("multiple matching measurement files")
)

// Meta keys written by the PQC measurement software.
const (
	MetaSampleName      = "sample_name"
	MetaMeasurementName = "measurement_name"
	MetaMeasurementType = "measurement_type"
	MetaStartTimestamp  = "start_timestamp"
	MetaOperator        = "operator"
)

// Measurement holds one parsed measurement file: its meta block and its
// numeric columns, all of equal length.
type Measurement struct {
	Path        string
	Meta        map[string]string
	Columns     map[string][]float64
	Units       map[string]string
	ColumnOrder []string // to preserve the order of the header
	ParseErrors []string // non-fatal problems, e.g. unparsable cells set to NaN
}

// NewMeasurement initializes an empty measurement for path.
func NewMeasurement(path string) *Measurement {
	return &Measurement{
		Path:        path,
		Meta:        make(map[string]string),
		Columns:     make(map[string][]float64),
		Units:       make(map[string]string),
		ColumnOrder: make([]string, 0),
		ParseErrors: make([]string, 0),
	}
}

// Column returns the first of names present in the measurement. Several
// names cover the different spellings used by the measurement software,
// e.g. "current" and "current_elm".
func (m *Measurement) Column(names ...string) ([]float64, error) {
	for _, n := range names {
		if col, ok := m.Columns[n]; ok {
			return col, nil
		}
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrNoColumn, strings.Join(names, "|"), m.Path)
}

// Len returns the number of rows.
func (m *Measurement) Len() int {
	if len(m.ColumnOrder) == 0 {
		return 0
	}
	return len(m.Columns[m.ColumnOrder[0]])
}

// Timestamp returns the measurement start time from the meta block.
func (m *Measurement) Timestamp() (time.Time, error) {
	ts, ok := m.Meta[MetaStartTimestamp]
	if !ok {
		return time.Time{}, fmt.Errorf("%s has no %s", m.Path, MetaStartTimestamp)
	}
	return ParseTimestamp(ts)
}

func (m *Measurement) addColumn(name, unit string) {
	if _, exists := m.Columns[name]; exists {
		m.ParseErrors = append(m.ParseErrors, fmt.Sprintf("Warning: duplicate column '%s', keeping the first.", name))
		return
	}
	m.Columns[name] = make([]float64, 0)
	m.Units[name] = unit
	m.ColumnOrder = append(m.ColumnOrder, name)
}
