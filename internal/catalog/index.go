package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxSearchResults caps every Search result.
const MaxSearchResults = 10

// Index maps lowercased names to the entries carrying them. It is built once
// per successful refresh and never mutated afterwards.
type Index struct {
	keys   []string
	byName map[string][]Entry
	size   int
}

// normalize lowercases and trims s. cases.Caser keeps state between calls,
// so callers must not share one across goroutines.
func normalize(c cases.Caser, s string) string {
	return strings.TrimSpace(c.String(s))
}

// BuildIndex groups entries by lowercased name. Entries with blank names are
// skipped; entries sharing a name are all kept in input order.
func BuildIndex(entries []Entry) *Index {
	lower := cases.Lower(language.Und)
	ix := &Index{byName: make(map[string][]Entry, len(entries))}

	for _, e := range entries {
		key := normalize(lower, e.Name)
		if key == "" {
			continue
		}
		if _, seen := ix.byName[key]; !seen {
			ix.keys = append(ix.keys, key)
		}
		ix.byName[key] = append(ix.byName[key], e)
		ix.size++
	}
	return ix
}

// Len is the number of indexed entries.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return ix.size
}

// Entries returns every indexed entry, grouped by name in first-seen order.
func (ix *Index) Entries() []Entry {
	if ix == nil {
		return nil
	}
	out := make([]Entry, 0, ix.size)
	for _, k := range ix.keys {
		out = append(out, ix.byName[k]...)
	}
	return out
}

// Search returns up to MaxSearchResults entries for term. Exact name matches
// come first, then names containing term in index key order. A blank term
// yields an empty result.
func (ix *Index) Search(term string) []Entry {
	out := make([]Entry, 0, MaxSearchResults)
	if ix == nil {
		return out
	}

	q := normalize(cases.Lower(language.Und), term)
	if q == "" {
		return out
	}

	for _, e := range ix.byName[q] {
		if len(out) == MaxSearchResults {
			return out
		}
		out = append(out, e)
	}

	for _, k := range ix.keys {
		if k == q || !strings.Contains(k, q) {
			continue
		}
		for _, e := range ix.byName[k] {
			if len(out) == MaxSearchResults {
				return out
			}
			out = append(out, e)
		}
	}
	return out
}
