package export_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stacklok/synonym-exporter/internal/export"
	"github.com/stacklok/synonym-exporter/internal/httpclient"
	"github.com/stacklok/synonym-exporter/internal/synonym"
)

// fakeRemote is an in-memory managed synonym resource that records every call
type fakeRemote struct {
	mu    sync.Mutex
	terms synonym.Map
	calls []string

	listErr   error
	deleteErr map[string]error
	upsertErr map[string]error
	reloadErr error

	// beforeCall runs before each recorded call, outside the lock
	beforeCall func(call string)

	// writeDelay holds every delete and upsert open to observe parallelism
	writeDelay  time.Duration
	inflight    int
	maxInflight int
}

func (f *fakeRemote) enter() func() {
	f.mu.Lock()
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	f.mu.Unlock()
	time.Sleep(f.writeDelay)
	return func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}
}

func newFakeRemote(terms synonym.Map) *fakeRemote {
	if terms == nil {
		terms = synonym.Map{}
	}
	return &fakeRemote{
		terms:     terms,
		deleteErr: map[string]error{},
		upsertErr: map[string]error{},
	}
}

func (f *fakeRemote) record(call string) {
	if f.beforeCall != nil {
		f.beforeCall(call)
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeRemote) ListTerms(_ context.Context, _ string) (synonym.Map, error) {
	f.record("list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(synonym.Map, len(f.terms))
	for k, v := range f.terms {
		out[k] = append([]string(nil), v...)
	}
	return out, nil
}

func (f *fakeRemote) TermExists(_ context.Context, _, term string) (bool, error) {
	f.record("exists:" + term)
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.terms[term]
	return ok, nil
}

func (f *fakeRemote) DeleteTerm(_ context.Context, _, term string) error {
	f.record("delete:" + term)
	defer f.enter()()
	if err := f.deleteErr[term]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.terms, term)
	return nil
}

func (f *fakeRemote) UpsertTerm(_ context.Context, _, term string, synonyms []string) error {
	f.record("upsert:" + term)
	defer f.enter()()
	if err := f.upsertErr[term]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terms[term] = append([]string(nil), synonyms...)
	return nil
}

func (f *fakeRemote) ReloadCore(_ context.Context) error {
	f.record("reload")
	return f.reloadErr
}

func (f *fakeRemote) callsWithPrefix(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

func (f *fakeRemote) snapshot() synonym.Map {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(synonym.Map, len(f.terms))
	for k, v := range f.terms {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// staticResolver resolves a fixed set of backends
type staticResolver struct {
	backends map[string]*fakeRemote
	calls    int
}

func (r *staticResolver) Resolve(id string) (*export.Backend, error) {
	r.calls++
	remote, ok := r.backends[id]
	if !ok {
		return nil, &export.ConfigError{Reason: fmt.Sprintf("unknown backend %q", id)}
	}
	return &export.Backend{Reader: remote, Writer: remote}, nil
}

func serverError(status int) error {
	return httpclient.NewHTTPError(status, "DELETE", "http://solr/term", "failure")
}
