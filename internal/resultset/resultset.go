// Package resultset runs the batch pass over a set of sample directories and
// keeps every quantity index-aligned with the per-sample metadata.
package resultset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/user/pqc_analyzer_go/internal/config"
	"github.com/user/pqc_analyzer_go/internal/quantity"
)

var (
	// ErrUnknownQuantity is returned for a key that is not in the catalogue.
	ErrUnknownQuantity = errors.New("unknown quantity")
	// ErrBadPermutation is returned by Rearrange for an index list that is
	// not a permutation of the samples.
	ErrBadPermutation = errors.New("not a permutation of the samples")
)

// Sample is the outcome of the batch pass for one sample directory. Values
// holds raw values by quantity key: +Inf marks a missing measurement, NaN a
// failed extraction.
type Sample struct {
	Label     string
	Flute     string
	Timestamp time.Time
	Values    map[string]float64
}

// ResultSet holds one Quantity per catalogue key plus the label, flute and
// timestamp of every sample. Index k of each of them refers to the same
// sample.
type ResultSet struct {
	Batch string

	labels     []string
	flutes     []string
	timestamps []time.Time
	keys       []string
	quantities map[string]*quantity.Quantity
}

// New creates an empty result set with every catalogue quantity. Acceptance
// overrides are applied by key.
func New(batch string, overrides map[string]config.QuantityOverride) *ResultSet {
	rs := &ResultSet{
		Batch:      batch,
		quantities: make(map[string]*quantity.Quantity, len(Catalogue)),
	}
	for _, e := range Catalogue {
		rs.keys = append(rs.keys, e.Key)
		rs.quantities[e.Key] = newQuantity(e, overrides)
	}
	return rs
}

// Len returns the number of samples.
func (rs *ResultSet) Len() int { return len(rs.labels) }

// Keys returns the quantity keys in catalogue order.
func (rs *ResultSet) Keys() []string { return append([]string(nil), rs.keys...) }

// Quantity returns the quantity stored under key.
func (rs *ResultSet) Quantity(key string) (*quantity.Quantity, error) {
	q, ok := rs.quantities[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuantity, key)
	}
	return q, nil
}

func (rs *ResultSet) Labels() []string        { return append([]string(nil), rs.labels...) }
func (rs *ResultSet) Flutes() []string        { return append([]string(nil), rs.flutes...) }
func (rs *ResultSet) Timestamps() []time.Time { return append([]time.Time(nil), rs.timestamps...) }

// AppendSample appends the metadata and one value per quantity. Keys absent
// from s.Values are recorded as missing (+Inf); keys not in the catalogue are
// ignored.
func (rs *ResultSet) AppendSample(s Sample) {
	rs.labels = append(rs.labels, s.Label)
	rs.flutes = append(rs.flutes, s.Flute)
	rs.timestamps = append(rs.timestamps, s.Timestamp)
	for _, key := range rs.keys {
		v, ok := s.Values[key]
		if !ok {
			v = math.Inf(1)
		}
		rs.quantities[key].Append(v)
	}
}

// Rearrange reorders every quantity and the metadata by order, where
// order[k] is the old index of the new k-th sample. order must be a
// permutation of 0..Len()-1; otherwise nothing is changed.
func (rs *ResultSet) Rearrange(order []int) error {
	n := rs.Len()
	if len(order) != n {
		return fmt.Errorf("%w: got %d indices for %d samples", ErrBadPermutation, len(order), n)
	}
	seen := make([]bool, n)
	for _, idx := range order {
		if idx < 0 || idx >= n || seen[idx] {
			return fmt.Errorf("%w: index %d", ErrBadPermutation, idx)
		}
		seen[idx] = true
	}

	for _, key := range rs.keys {
		// cannot fail, lengths are kept equal by AppendSample
		if err := rs.quantities[key].Rearrange(order); err != nil {
			panic(fmt.Sprintf("quantity %s is out of step with the samples: %v", key, err))
		}
	}
	rs.labels = permute(rs.labels, order)
	rs.flutes = permute(rs.flutes, order)
	rs.timestamps = permute(rs.timestamps, order)
	return nil
}

func permute[T any](s []T, order []int) []T {
	out := make([]T, len(order))
	for k, idx := range order {
		out[k] = s[idx]
	}
	return out
}

// SortByTime orders all samples by timestamp. Samples with equal timestamps
// keep their relative order.
func (rs *ResultSet) SortByTime() error {
	order := make([]int, rs.Len())
	for k := range order {
		order[k] = k
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rs.timestamps[order[a]].Before(rs.timestamps[order[b]])
	})
	return rs.Rearrange(order)
}

// Split partitions the result set into consecutive sub-batches of chunkSize
// samples. The last one may be shorter. Sub-batches are named
// "<batch>_<n>", counting from 1.
func (rs *ResultSet) Split(chunkSize int) ([]*ResultSet, error) {
	if chunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}

	var chunks []*ResultSet
	for lo := 0; lo < rs.Len(); lo += chunkSize {
		hi := min(lo+chunkSize, rs.Len())
		chunks = append(chunks, &ResultSet{
			Batch:      fmt.Sprintf("%s_%d", rs.Batch, len(chunks)+1),
			labels:     append([]string(nil), rs.labels[lo:hi]...),
			flutes:     append([]string(nil), rs.flutes[lo:hi]...),
			timestamps: append([]time.Time(nil), rs.timestamps[lo:hi]...),
			keys:       rs.keys,
			quantities: make(map[string]*quantity.Quantity, len(rs.keys)),
		})
	}
	for _, key := range rs.keys {
		parts, err := rs.quantities[key].Split(chunkSize)
		if err != nil {
			return nil, err
		}
		for k, part := range parts {
			chunks[k].quantities[key] = part
		}
	}
	return chunks, nil
}

// Totals returns the merged forward and reverse quantities of Pooled.
func (rs *ResultSet) Totals() ([]*quantity.Quantity, error) {
	totals := make([]*quantity.Quantity, 0, len(Pooled))
	for _, t := range Pooled {
		parents := make([]*quantity.Quantity, 0, len(t.Keys))
		for _, key := range t.Keys {
			q, err := rs.Quantity(key)
			if err != nil {
				return nil, err
			}
			parents = append(parents, q)
		}
		merged, err := quantity.Merge(t.Name, t.Label, parents...)
		if err != nil {
			return nil, err
		}
		totals = append(totals, merged)
	}
	return totals, nil
}
