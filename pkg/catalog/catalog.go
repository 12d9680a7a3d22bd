// Package catalog reads space tokens and the files reserved in them.
package catalog

import (
	"context"
	"iter"
	"sort"
	"strings"
)

// Token is a named storage reservation.
type Token struct {
	ID   int64
	Name string
}

// FileRecord is one file reserved in a token.
type FileRecord struct {
	// ID is the namespace identifier of the file (pnfsid)
	ID string
}

// Catalog is the read-only source of tokens and their files.
type Catalog interface {
	// ListTokens returns every token in one round trip, ordered by ID.
	ListTokens(ctx context.Context) ([]Token, error)

	// FilesForToken streams the files of a token.
	//
	// The sequence is forward-only and lazy: records are fetched while the
	// caller ranges over it and are never loaded in bulk. Records with a
	// blank identifier are skipped. Breaking out of the loop releases the
	// underlying cursor. An error is yielded at most once and ends the
	// sequence.
	FilesForToken(ctx context.Context, tokenID int64) iter.Seq2[FileRecord, error]

	// Close releases the catalog connection.
	Close() error
}

// ValidTokenName reports whether name can be used as a single path segment.
func ValidTokenName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsRune(name, '/')
}

// Selection is a set of token names to process. An empty selection selects
// every token.
type Selection map[string]struct{}

// ParseSelection builds a selection from comma separated values.
//
// Each value is split on commas, names are trimmed and empty names dropped,
// so ParseSelection("T1, T2", "", "T3,") selects T1, T2 and T3.
func ParseSelection(values ...string) Selection {
	sel := make(Selection)
	for _, value := range values {
		for _, name := range strings.Split(value, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				sel[name] = struct{}{}
			}
		}
	}
	return sel
}

// Selects reports whether the token named name is selected.
func (s Selection) Selects(name string) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[name]
	return ok
}

// Names returns the selected names in sorted order.
func (s Selection) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// String renders the selection for logs ("all" when empty).
func (s Selection) String() string {
	if len(s) == 0 {
		return "all"
	}
	return strings.Join(s.Names(), ",")
}
