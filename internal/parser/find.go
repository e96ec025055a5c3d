package parser

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

var measurementExts = map[string]bool{".txt": true, ".json": true}

// FindFiles returns the measurement files below dir whose name contains the
// structure kind and every whitelist entry but no blacklist entry, sorted by
// path. Names are matched on whole "_"-separated words, so "cross" does not
// match "ncross" and multi-word entries like "cross_bridge" must appear in
// order.
func FindFiles(dir, kind string, whitelist, blacklist []string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !measurementExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if matchName(filepath.Base(path), kind, whitelist, blacklist) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", dir, err)
	}
	sort.Strings(found)
	return found, nil
}

// FindFile is FindFiles for a structure measured once per sample.
func FindFile(dir, kind string, whitelist, blacklist []string) (string, error) {
	found, err := FindFiles(dir, kind, whitelist, blacklist)
	if err != nil {
		return "", err
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w: %s in %s", ErrNoFile, kind, dir)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("%w: %d files for %s in %s", ErrMultipleFiles, len(found), kind, dir)
	}
}

func matchName(name, kind string, whitelist, blacklist []string) bool {
	words := strings.Split(strings.TrimSuffix(name, filepath.Ext(name)), "_")
	if !containsWords(words, kind) {
		return false
	}
	for _, w := range whitelist {
		if !containsWords(words, w) {
			return false
		}
	}
	for _, b := range blacklist {
		if containsWords(words, b) {
			return false
		}
	}
	return true
}

func containsWords(words []string, entry string) bool {
	want := strings.Split(entry, "_")
	for start := 0; start+len(want) <= len(words); start++ {
		ok := true
		for k, w := range want {
			if !strings.EqualFold(words[start+k], w) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
