// Package synonym holds the synonym record model and the formatter that turns
// raw records into the term map sent to a search backend.
package synonym

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is the type of a synonym record
type Kind string

const (
	// KindSynonym is a true synonym definition
	KindSynonym Kind = "synonym"

	// KindSpellingError maps a common misspelling to the correct term
	KindSpellingError Kind = "spelling_error"
)

// KindFilter selects which record kinds an export run includes
type KindFilter string

const (
	// FilterAll includes every record kind
	FilterAll KindFilter = "all"

	// FilterSynonym includes only KindSynonym records
	FilterSynonym KindFilter = "synonym"

	// FilterSpellingError includes only KindSpellingError records
	FilterSpellingError KindFilter = "spelling_error"
)

// ParseKind parses a record kind
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.TrimSpace(s)) {
	case KindSynonym:
		return KindSynonym, nil
	case KindSpellingError:
		return KindSpellingError, nil
	default:
		return "", fmt.Errorf("unknown synonym kind %q", s)
	}
}

// ParseKindFilter parses a kind filter. An empty string means FilterAll.
func ParseKindFilter(s string) (KindFilter, error) {
	switch KindFilter(strings.TrimSpace(s)) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterSynonym:
		return FilterSynonym, nil
	case FilterSpellingError:
		return FilterSpellingError, nil
	default:
		return "", fmt.Errorf("unknown kind filter %q: must be one of all, synonym, spelling_error", s)
	}
}

// Includes reports whether records of the given kind pass the filter
func (f KindFilter) Includes(k Kind) bool {
	switch f {
	case "", FilterAll:
		return true
	default:
		return string(f) == string(k)
	}
}

// WordFilter selects records by whether their word contains a space
type WordFilter string

const (
	// WordFilterNone includes every word
	WordFilterNone WordFilter = "none"

	// WordFilterNoSpace includes only single words
	WordFilterNoSpace WordFilter = "nospace"

	// WordFilterOnlySpace includes only words containing a space
	WordFilterOnlySpace WordFilter = "onlyspace"
)

// ParseWordFilter parses a word filter. An empty string means WordFilterNone.
func ParseWordFilter(s string) (WordFilter, error) {
	switch WordFilter(strings.TrimSpace(s)) {
	case "", WordFilterNone:
		return WordFilterNone, nil
	case WordFilterNoSpace:
		return WordFilterNoSpace, nil
	case WordFilterOnlySpace:
		return WordFilterOnlySpace, nil
	default:
		return "", fmt.Errorf("unknown word filter %q: must be one of none, nospace, onlyspace", s)
	}
}

// Includes reports whether word passes the filter. Surrounding whitespace is ignored.
func (f WordFilter) Includes(word string) bool {
	hasSpace := strings.Contains(strings.TrimSpace(word), " ")
	switch f {
	case WordFilterNoSpace:
		return !hasSpace
	case WordFilterOnlySpace:
		return hasSpace
	default:
		return true
	}
}

// Record is a single synonym definition as read from the local store.
// Synonyms is the raw comma-delimited field.
type Record struct {
	Word     string `json:"word" yaml:"word" toml:"word"`
	Synonyms string `json:"synonyms" yaml:"synonyms" toml:"synonyms"`
	Kind     Kind   `json:"type" yaml:"type" toml:"type"`
	Langcode string `json:"langcode,omitempty" yaml:"langcode,omitempty" toml:"langcode"`
	Active   bool   `json:"active" yaml:"active" toml:"active"`
}

// Map maps a term to its ordered list of synonyms
type Map map[string][]string

// Terms returns the keys of the map in sorted order
func (m Map) Terms() []string {
	terms := make([]string, 0, len(m))
	for term := range m {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// InvalidRecordError is returned for a record that cannot be formatted
type InvalidRecordError struct {
	Index  int
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid synonym record at index %d: %s", e.Index, e.Reason)
}
