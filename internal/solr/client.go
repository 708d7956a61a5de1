// Package solr implements the export remote interfaces against the Solr
// managed resources REST API.
package solr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/stacklok/synonym-exporter/internal/httpclient"
	"github.com/stacklok/synonym-exporter/internal/synonym"
)

const (
	// DefaultBreakerFailures is the number of consecutive failures that opens the breaker
	DefaultBreakerFailures = 5

	// DefaultBreakerTimeout is how long an open breaker rejects calls before probing again
	DefaultBreakerTimeout = 30 * time.Second
)

// managedResourceResponse is the body of GET <core>/schema/analysis/synonyms/<resource>
type managedResourceResponse struct {
	SynonymMappings struct {
		InitArgs      map[string]any      `json:"initArgs"`
		InitializedOn string              `json:"initializedOn"`
		ManagedMap    map[string][]string `json:"managedMap"`
	} `json:"synonymMappings"`
}

// Client talks to the managed synonym resources of one Solr core
type Client struct {
	http    httpclient.Client
	baseURL string
	core    string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// Option configures a Client
type Option func(*clientConfig)

type clientConfig struct {
	http            httpclient.Client
	name            string
	requestsPerSec  float64
	breakerFailures uint32
	breakerTimeout  time.Duration
}

// WithHTTPClient sets the HTTP client used for every call
func WithHTTPClient(c httpclient.Client) Option {
	return func(cfg *clientConfig) { cfg.http = c }
}

// WithRateLimit caps the number of requests per second. 0 disables the limit.
func WithRateLimit(rps float64) Option {
	return func(cfg *clientConfig) { cfg.requestsPerSec = rps }
}

// WithBreaker configures the circuit breaker guarding the backend
func WithBreaker(consecutiveFailures uint32, openTimeout time.Duration) Option {
	return func(cfg *clientConfig) {
		cfg.breakerFailures = consecutiveFailures
		cfg.breakerTimeout = openTimeout
	}
}

// WithName names the client in breaker state change logs
func WithName(name string) Option {
	return func(cfg *clientConfig) { cfg.name = name }
}

// NewClient creates a client for core on the Solr server at baseURL
// (e.g. "http://localhost:8983/solr").
func NewClient(baseURL, core string, opts ...Option) *Client {
	cfg := &clientConfig{
		name:            core,
		breakerFailures: DefaultBreakerFailures,
		breakerTimeout:  DefaultBreakerTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.http == nil {
		cfg.http = httpclient.NewDefaultClient(0)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.requestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.requestsPerSec), 1)
	}

	failures := cfg.breakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.name,
		MaxRequests: 1,
		Timeout:     cfg.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: isBackendHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Solr circuit breaker changed state", "backend", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		http:    cfg.http,
		baseURL: strings.TrimRight(baseURL, "/"),
		core:    core,
		limiter: limiter,
		breaker: breaker,
	}
}

// Core returns the core the client is bound to
func (c *Client) Core() string {
	return c.core
}

// ListTerms returns the full managed map of the resource
func (c *Client) ListTerms(ctx context.Context, resource string) (synonym.Map, error) {
	body, err := c.call(ctx, &httpclient.Request{Method: http.MethodGet, URL: c.resourceURL(resource)})
	if err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}

	var resp managedResourceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("list terms: failed to decode managed resource: %w", err)
	}

	terms := make(synonym.Map, len(resp.SynonymMappings.ManagedMap))
	for term, syns := range resp.SynonymMappings.ManagedMap {
		terms[term] = syns
	}
	return terms, nil
}

// TermExists reports whether term is stored in the resource
func (c *Client) TermExists(ctx context.Context, resource, term string) (bool, error) {
	_, err := c.call(ctx, &httpclient.Request{Method: http.MethodGet, URL: c.termURL(resource, term)})
	if httpclient.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check term %q: %w", term, err)
	}
	return true, nil
}

// DeleteTerm removes term from the resource. A missing term is not an error.
func (c *Client) DeleteTerm(ctx context.Context, resource, term string) error {
	_, err := c.call(ctx, &httpclient.Request{Method: http.MethodDelete, URL: c.termURL(resource, term)})
	if httpclient.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete term %q: %w", term, err)
	}
	return nil
}

// UpsertTerm stores term with its synonyms, replacing any existing mapping
func (c *Client) UpsertTerm(ctx context.Context, resource, term string, synonyms []string) error {
	if synonyms == nil {
		synonyms = []string{}
	}
	_, err := c.call(ctx, &httpclient.Request{
		Method: http.MethodPut,
		URL:    c.resourceURL(resource),
		Body:   map[string][]string{term: synonyms},
	})
	if err != nil {
		return fmt.Errorf("upsert term %q: %w", term, err)
	}
	return nil
}

// ReloadCore asks Solr to reload the core so written terms take effect
func (c *Client) ReloadCore(ctx context.Context) error {
	_, err := c.call(ctx, &httpclient.Request{
		Method: http.MethodGet,
		URL:    c.baseURL + "/admin/cores",
		Query:  url.Values{"action": {"RELOAD"}, "core": {c.core}},
	})
	if err != nil {
		return fmt.Errorf("reload core %s: %w", c.core, err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, req *httpclient.Request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.http.Do(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	body, _ := out.([]byte)
	return body, nil
}

func (c *Client) resourceURL(resource string) string {
	return c.baseURL + "/" + url.PathEscape(c.core) + "/schema/analysis/synonyms/" + url.PathEscape(resource)
}

func (c *Client) termURL(resource, term string) string {
	return c.resourceURL(resource) + "/" + url.PathEscape(term)
}

// isBackendHealthy treats client errors other than 429 as a healthy backend
// so missing terms and bad input do not open the breaker.
func isBackendHealthy(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	status := httpclient.StatusCode(err)
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests
}
