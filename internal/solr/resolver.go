package solr

import (
	"fmt"
	"sync"

	"github.com/stacklok/synonym-exporter/internal/config"
	"github.com/stacklok/synonym-exporter/internal/export"
	"github.com/stacklok/synonym-exporter/internal/httpclient"
)

// Resolver turns configured backend ids into Solr clients.
// Clients are cached so breaker and rate limiter state outlive a single run.
type Resolver struct {
	mu       sync.Mutex
	backends map[string]config.BackendConfig
	clients  map[string]*Client
	extra    []Option
}

// NewResolver creates a resolver for the configured backends.
// opts are applied to every client after the per-backend settings.
func NewResolver(backends []config.BackendConfig, opts ...Option) *Resolver {
	byID := make(map[string]config.BackendConfig, len(backends))
	for _, b := range backends {
		byID[b.ID] = b
	}
	return &Resolver{
		backends: byID,
		clients:  make(map[string]*Client),
		extra:    opts,
	}
}

// Resolve implements export.BackendResolver
func (r *Resolver) Resolve(backendID string) (*export.Backend, error) {
	client, err := r.Client(backendID)
	if err != nil {
		return nil, err
	}
	return &export.Backend{Reader: client, Writer: client}, nil
}

// Client returns the cached client for backendID, creating it on first use
func (r *Resolver) Client(backendID string) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[backendID]; ok {
		return client, nil
	}

	backend, ok := r.backends[backendID]
	if !ok {
		return nil, &export.ConfigError{Reason: fmt.Sprintf("unknown backend %q", backendID)}
	}

	var httpOpts []httpclient.Option
	if backend.Username != "" {
		password, err := backend.GetPassword()
		if err != nil {
			return nil, &export.ConfigError{Reason: fmt.Sprintf("backend %q credentials", backendID), Err: err}
		}
		httpOpts = append(httpOpts, httpclient.WithBasicAuth(backend.Username, password))
	}

	opts := []Option{
		WithName(backend.ID),
		WithHTTPClient(httpclient.NewDefaultClient(backend.GetTimeout(), httpOpts...)),
		WithRateLimit(backend.RequestsPerSecond),
	}
	opts = append(opts, r.extra...)

	client := NewClient(backend.URL, backend.Core, opts...)
	r.clients[backendID] = client
	return client, nil
}
