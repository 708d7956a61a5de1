// Package helpers provides test fixtures for the integration suite.
package helpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// FakeSolr serves the managed synonym endpoints of one core.
// Resources must be created with AddResource before exporters target them.
type FakeSolr struct {
	Core string

	mu        sync.Mutex
	resources map[string]map[string][]string
	reloads   int
	server    *httptest.Server
}

// NewFakeSolr starts a fake Solr serving core
func NewFakeSolr(core string) *FakeSolr {
	f := &FakeSolr{
		Core:      core,
		resources: make(map[string]map[string][]string),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	return f
}

// URL is the base URL to configure as a backend ("<server>/solr")
func (f *FakeSolr) URL() string {
	return f.server.URL + "/solr"
}

// Close stops the server
func (f *FakeSolr) Close() {
	f.server.Close()
}

// AddResource creates or replaces a managed resource with terms
func (f *FakeSolr) AddResource(name string, terms map[string][]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := make(map[string][]string, len(terms))
	for k, v := range terms {
		copied[k] = v
	}
	f.resources[name] = copied
}

// Terms returns a copy of the terms of a resource
func (f *FakeSolr) Terms(name string) map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]string, len(f.resources[name]))
	for k, v := range f.resources[name] {
		out[k] = v
	}
	return out
}

// Reloads returns how many core reloads were requested
func (f *FakeSolr) Reloads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reloads
}

func (f *FakeSolr) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/solr/admin/cores" {
		if r.URL.Query().Get("action") != "RELOAD" || r.URL.Query().Get("core") != f.Core {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.reloads++
		writeJSON(w, map[string]any{"responseHeader": map[string]any{"status": 0}})
		return
	}

	prefix := "/solr/" + f.Core + "/schema/analysis/synonyms/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	resource, term, hasTerm := strings.Cut(strings.TrimPrefix(r.URL.Path, prefix), "/")
	terms, ok := f.resources[resource]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case !hasTerm && r.Method == http.MethodGet:
		writeJSON(w, map[string]any{
			"synonymMappings": map[string]any{"managedMap": terms},
		})
	case !hasTerm && r.Method == http.MethodPut:
		var body map[string][]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for k, v := range body {
			terms[k] = v
		}
		writeJSON(w, map[string]any{"responseHeader": map[string]any{"status": 0}})
	case hasTerm && (r.Method == http.MethodGet || r.Method == http.MethodDelete):
		syns, exists := terms[term]
		if !exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method == http.MethodDelete {
			delete(terms, term)
		}
		writeJSON(w, map[string]any{term: syns})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
