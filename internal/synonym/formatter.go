package synonym

import (
	"errors"
	"strings"
)

// Formatter canonicalizes records into a Map
type Formatter struct {
	Filter KindFilter
}

// Format converts records into a term map. Records excluded by the filter are
// ignored. A later record with the same word replaces an earlier one.
//
// Invalid records are skipped; the returned error joins one *InvalidRecordError
// per skipped record and is nil when every record was usable. The map is always
// returned so callers can choose to log and continue.
func (f Formatter) Format(records []Record) (Map, error) {
	out := make(Map, len(records))
	var errs []error

	for i, rec := range records {
		if !f.Filter.Includes(rec.Kind) {
			continue
		}

		word := strings.TrimSpace(rec.Word)
		if word == "" {
			errs = append(errs, &InvalidRecordError{Index: i, Reason: "word is required"})
			continue
		}

		out[word] = SplitSynonyms(rec.Synonyms)
	}

	return out, errors.Join(errs...)
}

// SplitSynonyms splits a comma-delimited synonyms field into trimmed,
// non-empty entries, preserving order.
func SplitSynonyms(field string) []string {
	parts := strings.Split(field, ",")
	synonyms := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			synonyms = append(synonyms, s)
		}
	}
	return synonyms
}
