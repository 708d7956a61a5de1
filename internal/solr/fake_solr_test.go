package solr_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const resourcePrefix = "/solr/products/schema/analysis/synonyms/"

// fakeSolr serves the managed synonym endpoints of a single core
type fakeSolr struct {
	mu       sync.Mutex
	managed  map[string]map[string][]string
	reloads  []string
	requests []string
	authz    []string

	// failMethod makes every request with this method answer failStatus
	failMethod string
	failStatus int
}

func newFakeSolr(t *testing.T, english map[string][]string) (*fakeSolr, *httptest.Server) {
	t.Helper()
	f := &fakeSolr{managed: map[string]map[string][]string{"english": english}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeSolr) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.authz = append(f.authz, r.Header.Get("Authorization"))

	if f.failMethod == r.Method {
		w.WriteHeader(f.failStatus)
		return
	}

	if r.URL.Path == "/solr/admin/cores" {
		if r.URL.Query().Get("action") != "RELOAD" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.reloads = append(f.reloads, r.URL.Query().Get("core"))
		writeJSON(w, map[string]any{"responseHeader": map[string]any{"status": 0}})
		return
	}

	if !strings.HasPrefix(r.URL.Path, resourcePrefix) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, resourcePrefix)
	resource, term, hasTerm := strings.Cut(rest, "/")

	mapping, ok := f.managed[resource]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case !hasTerm && r.Method == http.MethodGet:
		writeJSON(w, map[string]any{
			"responseHeader": map[string]any{"status": 0},
			"synonymMappings": map[string]any{
				"initArgs":      map[string]any{"ignoreCase": false},
				"initializedOn": "2024-01-01T00:00:00Z",
				"managedMap":    mapping,
			},
		})
	case !hasTerm && r.Method == http.MethodPut:
		var body map[string][]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for k, v := range body {
			mapping[k] = v
		}
		writeJSON(w, map[string]any{"responseHeader": map[string]any{"status": 0}})
	case hasTerm && r.Method == http.MethodGet:
		syns, ok := mapping[term]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{term: syns})
	case hasTerm && r.Method == http.MethodDelete:
		if _, ok := mapping[term]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(mapping, term)
		writeJSON(w, map[string]any{"responseHeader": map[string]any{"status": 0}})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeSolr) english() map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string][]string{}
	for k, v := range f.managed["english"] {
		out[k] = v
	}
	return out
}

func (f *fakeSolr) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
