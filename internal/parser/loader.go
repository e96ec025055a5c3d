package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of parsed files kept by a Loader.
const DefaultCacheSize = 256

// Load parses a measurement file, choosing the format by extension.
func Load(path string) (*Measurement, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseJSONFile(path)
	}
	return ParseTextFile(path)
}

// Loader parses measurement files and keeps recently parsed ones. The same
// van der Pauw file is read for a sheet resistance and again for the
// linewidth and CBKR evaluations that depend on it. Safe for concurrent use.
type Loader struct {
	cache *lru.Cache[string, *Measurement]
}

// NewLoader creates a loader caching up to size files.
func NewLoader(size int) (*Loader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *Measurement](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create measurement cache: %w", err)
	}
	return &Loader{cache: cache}, nil
}

// Load returns the parsed measurement at path. Callers must not modify it.
func (l *Loader) Load(path string) (*Measurement, error) {
	key := filepath.Clean(path)
	if m, ok := l.cache.Get(key); ok {
		return m, nil
	}
	m, err := Load(path)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, m)
	return m, nil
}

// Len returns the number of cached files.
func (l *Loader) Len() int { return l.cache.Len() }
