package quantity

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrNoSummarySlot is returned by GetValue and GetValueString for an index
	// past the last summary slot.
	ErrNoSummarySlot = errors.New("no such summary slot")
	// ErrBadIndex is returned for negative or out-of-range sample indices.
	ErrBadIndex = errors.New("index out of range")
	// ErrNothingToMerge is returned by Merge without parents.
	ErrNothingToMerge = errors.New("nothing to merge")
)

// DefaultStray is the relative tolerance used when a definition leaves it unset.
const DefaultStray = 0.5

// Definition describes one quantity tracked across a batch.
type Definition struct {
	Name       string  // internal name, used as file stem in reports
	Label      string  // display label
	Unit       string  // display unit
	Expected   float64 // nominal value, in display units
	Multiplier float64 // converts raw SI values to display units
	Stray      float64 // relative tolerance around Expected
}

// Quantity holds the per-sample values of one physical quantity in sample
// order, together with its acceptance model. Values are raw (unscaled).
type Quantity struct {
	Definition

	values     []float64
	minAllowed *float64
	maxAllowed *float64
}

// New creates an empty quantity. A zero multiplier is treated as 1.
func New(def Definition) *Quantity {
	if def.Multiplier == 0 {
		def.Multiplier = 1
	}
	return &Quantity{Definition: def}
}

// Len returns the number of samples appended so far.
func (q *Quantity) Len() int { return len(q.values) }

// Values returns a copy of the raw values.
func (q *Quantity) Values() []float64 {
	return append([]float64(nil), q.values...)
}

// Append adds the value of the next sample.
func (q *Quantity) Append(v float64) { q.values = append(q.values, v) }

// MinAllowed returns the lower acceptance bound in display units: the explicit
// override if set, Expected*(1-Stray) otherwise.
func (q *Quantity) MinAllowed() float64 {
	if q.minAllowed != nil {
		return *q.minAllowed
	}
	return q.Expected * (1 - q.Stray)
}

// MaxAllowed returns the upper acceptance bound in display units.
func (q *Quantity) MaxAllowed() float64 {
	if q.maxAllowed != nil {
		return *q.maxAllowed
	}
	return q.Expected * (1 + q.Stray)
}

func (q *Quantity) SetMinAllowed(v float64) { q.minAllowed = &v }
func (q *Quantity) SetMaxAllowed(v float64) { q.maxAllowed = &v }

// ResetBounds drops explicit bounds so both derive from Expected and Stray again.
func (q *Quantity) ResetBounds() {
	q.minAllowed, q.maxAllowed = nil, nil
}

// Classify returns the status of a raw value. The acceptance interval is open:
// a value equal to a bound is out of range.
func (q *Quantity) Classify(raw float64) Status {
	v := raw * q.Multiplier
	switch {
	case math.IsInf(v, 0):
		return StatusInf
	case math.IsNaN(v):
		return StatusNaN
	case v >= q.MaxAllowed():
		return StatusTooHigh
	case v <= q.MinAllowed():
		return StatusTooLow
	}
	return StatusOK
}

// GetStatus classifies the value at index. Indices past the samples have no
// status.
func (q *Quantity) GetStatus(index int) Status {
	if index < 0 || index >= len(q.values) {
		return StatusNone
	}
	return q.Classify(q.values[index])
}

// GetValue returns the scaled value at index. Indices past the samples select
// a summary slot, see StatsLabels.
func (q *Quantity) GetValue(index int) (float64, error) {
	if index < 0 {
		return 0, fmt.Errorf("%w: %d", ErrBadIndex, index)
	}
	if index < len(q.values) {
		return q.values[index] * q.Multiplier, nil
	}

	st := q.GetStats()
	switch slot := index - len(q.values); slot {
	case slotMedian:
		return st.TotMed, nil
	case slotMean:
		return st.TotAvg, nil
	case slotStd:
		return st.TotStd, nil
	case slotSelected:
		return float64(st.Selected()), nil
	case slotYield:
		return st.Yield(), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrNoSummarySlot, slot)
	}
}

// GetValueString renders GetValue for tables: "failed" for NaN, "---" for a
// missing measurement, otherwise FormatNumber against the expected value.
func (q *Quantity) GetValueString(index int) (string, error) {
	if index < 0 {
		return "", fmt.Errorf("%w: %d", ErrBadIndex, index)
	}
	if index < len(q.values) {
		v := q.values[index]
		switch {
		case math.IsNaN(v):
			return "failed", nil
		case math.IsInf(v, 0):
			return "---", nil
		}
		return FormatNumber(v*q.Multiplier, q.Expected), nil
	}

	st := q.GetStats()
	switch slot := index - len(q.values); slot {
	case slotMedian:
		return FormatNumber(st.TotMed, q.Expected), nil
	case slotMean:
		return FormatNumber(st.TotAvg, q.Expected), nil
	case slotStd:
		return FormatNumber(st.TotStd, q.Expected), nil
	case slotSelected:
		return fmt.Sprintf("%d/%d", st.Selected(), st.NTot), nil
	case slotYield:
		return fmt.Sprintf("%3.2f", st.Yield()), nil
	default:
		return "", fmt.Errorf("%w: %d", ErrNoSummarySlot, slot)
	}
}

// Rearrange replaces the values with the values at the given indices, in that
// order. Nothing is changed if an index is out of range.
func (q *Quantity) Rearrange(indices []int) error {
	out := make([]float64, len(indices))
	for k, idx := range indices {
		if idx < 0 || idx >= len(q.values) {
			return fmt.Errorf("%w: %d of %d", ErrBadIndex, idx, len(q.values))
		}
		out[k] = q.values[idx]
	}
	q.values = out
	return nil
}

// Split partitions the values into consecutive chunks of chunkSize samples.
// The last chunk may be shorter. Chunks share the definition and bounds.
func (q *Quantity) Split(chunkSize int) ([]*Quantity, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	var chunks []*Quantity
	for lo := 0; lo < len(q.values); lo += chunkSize {
		hi := min(lo+chunkSize, len(q.values))
		c := q.withValues(q.values[lo:hi])
		chunks = append(chunks, c)
	}
	return chunks, nil
}

func (q *Quantity) withValues(values []float64) *Quantity {
	c := New(q.Definition)
	c.values = append([]float64(nil), values...)
	if q.minAllowed != nil {
		c.SetMinAllowed(*q.minAllowed)
	}
	if q.maxAllowed != nil {
		c.SetMaxAllowed(*q.maxAllowed)
	}
	return c
}

// Merge concatenates the values of parents into a new quantity named name.
// Unit, expected value, multiplier, stray and explicit acceptance bounds come
// from the first parent; no unit reconciliation is done.
func Merge(name, label string, parents ...*Quantity) (*Quantity, error) {
	if len(parents) == 0 {
		return nil, ErrNothingToMerge
	}
	var values []float64
	for _, p := range parents {
		values = append(values, p.values...)
	}

	m := parents[0].withValues(values)
	m.Name, m.Label = name, label
	return m, nil
}

func (q *Quantity) String() string {
	parts := make([]string, len(q.values))
	for k, v := range q.values {
		parts[k] = fmt.Sprintf("%g", v*q.Multiplier)
	}
	return fmt.Sprintf("%s[%s]%s", q.Name, strings.Join(parts, " "), q.Unit)
}
