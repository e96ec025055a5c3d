package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
)

var (
	metaRegex   = regexp.MustCompile(`^([\w]+)\s*\:\s*(.*)$`)
	headerRegex = regexp.MustCompile(`^([\w]+)(?:\[([^\]]+)\])?$`)
)

// ParseTextFile opens and parses a PQC text measurement file.
func ParseTextFile(path string) (*Measurement, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open measurement file: %w", err)
	}
	defer file.Close()
	return ParseText(path, file)
}

// ParseText reads the PQC text format: a block of "key: value" meta lines,
// a tab separated header of "name[unit]" fields and tab separated numeric
// rows. Cells that do not parse as numbers become NaN and are reported in
// ParseErrors.
func ParseText(path string, r io.Reader) (*Measurement, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read measurement data: %w", err)
	}

	m := NewMeasurement(path)
	var columns []string // column name per field, "" for skipped fields

	for rowIdx, row := range allRows {
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		if columns == nil {
			if len(row) == 1 {
				if match := metaRegex.FindStringSubmatch(strings.TrimSpace(row[0])); match != nil {
					m.Meta[match[1]] = strings.TrimSpace(match[2])
					continue
				}
			}
			columns = parseHeader(m, row)
			continue
		}

		if len(row) != len(columns) {
			m.ParseErrors = append(m.ParseErrors, fmt.Sprintf("Warning: row %d has %d fields, expected %d. Missing cells set to NaN.", rowIdx+1, len(row), len(columns)))
		}
		for k, name := range columns {
			if name == "" {
				continue
			}
			val := math.NaN()
			if k < len(row) {
				cell := strings.TrimSpace(row[k])
				if v, err := strconv.ParseFloat(cell, 64); err != nil {
					m.ParseErrors = append(m.ParseErrors, fmt.Sprintf("Error converting value '%s' in column '%s', row %d. Using NaN. Error: %v", cell, name, rowIdx+1, err))
				} else {
					val = v
				}
			}
			m.Columns[name] = append(m.Columns[name], val)
		}
	}

	if columns == nil {
		return nil, fmt.Errorf("%s: no column header found", path)
	}
	return m, nil
}

func parseHeader(m *Measurement, row []string) []string {
	columns := make([]string, len(row))
	for k, field := range row {
		match := headerRegex.FindStringSubmatch(strings.TrimSpace(field))
		if match == nil {
			m.ParseErrors = append(m.ParseErrors, fmt.Sprintf("Warning: header field '%s' is not of the form name[unit], column skipped.", field))
			continue
		}
		if _, exists := m.Columns[match[1]]; exists {
			m.addColumn(match[1], match[2]) // records the duplicate
			continue
		}
		m.addColumn(match[1], match[2])
		columns[k] = match[1]
	}
	return columns
}
