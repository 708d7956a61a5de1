package export

import (
	"context"
	"sort"

	"github.com/stacklok/synonym-exporter/internal/synonym"
)

// RemoteReader reads the current state of a managed synonym resource
type RemoteReader interface {
	// ListTerms returns every term currently stored in the resource
	ListTerms(ctx context.Context, resource string) (synonym.Map, error)

	// TermExists reports whether a single term is stored in the resource
	TermExists(ctx context.Context, resource, term string) (bool, error)
}

// Plan is the set of remote mutations that brings a resource in line with the local map
type Plan struct {
	// TermsToDelete holds every remote term, sorted
	TermsToDelete []string

	// TermsToUpsert is the full local map
	TermsToUpsert synonym.Map
}

// BuildPlan computes a full-reset plan: every remote term is deleted and every
// local term is written back. Values are not compared.
func BuildPlan(ctx context.Context, local synonym.Map, reader RemoteReader, resource string) (*Plan, error) {
	remote, err := reader.ListTerms(ctx, resource)
	if err != nil {
		return nil, &RemoteListError{Resource: resource, Err: err}
	}

	toDelete := make([]string, 0, len(remote))
	for term := range remote {
		toDelete = append(toDelete, term)
	}
	sort.Strings(toDelete)

	toUpsert := make(synonym.Map, len(local))
	for term, syns := range local {
		toUpsert[term] = syns
	}

	return &Plan{
		TermsToDelete: toDelete,
		TermsToUpsert: toUpsert,
	}, nil
}
