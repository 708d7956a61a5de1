package sources

import (
	"context"

	"github.com/stacklok/synonym-exporter/internal/synonym"
)

//go:generate mockgen -destination=mocks/mock_record_source.go -package=mocks -source=types.go RecordSource,RecordSourceFactory

// Query narrows the records a source returns. Inactive records are never returned.
type Query struct {
	Kind synonym.KindFilter

	// Langcode restricts records to one language when set
	Langcode string

	// Words selects records by whether the word contains a space
	Words synonym.WordFilter
}

// matches reports whether rec passes the query
func (q Query) matches(rec synonym.Record) bool {
	if !rec.Active {
		return false
	}
	if !q.Kind.Includes(rec.Kind) {
		return false
	}
	if q.Langcode != "" && q.Langcode != rec.Langcode {
		return false
	}
	return q.Words.Includes(rec.Word)
}

// RecordSource reads synonym records from the local store
type RecordSource interface {
	// ListSynonymRecords returns the active records matching query in store order
	ListSynonymRecords(ctx context.Context, query Query) ([]synonym.Record, error)

	// CurrentHash returns a digest of the whole record set for change detection
	CurrentHash(ctx context.Context) (string, error)
}

// RecordSourceFactory creates the record source named by the configuration.
// The returned release func frees resources held by the source and is never nil.
type RecordSourceFactory interface {
	CreateSource(ctx context.Context) (RecordSource, func(), error)
}
