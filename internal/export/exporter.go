package export

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/synonym-exporter/internal/synonym"
	"github.com/stacklok/synonym-exporter/internal/telemetry"
)

//go:generate mockgen -destination=mocks/mock_exporter.go -package=mocks -source=exporter.go Exporter

// Exporter pushes a set of synonym records to a remote search backend
type Exporter interface {
	Export(ctx context.Context, records []synonym.Record) (*Result, error)
}

// Option configures an exporter built by New
type Option func(*exporterConfig)

type exporterConfig struct {
	name          string
	resolver      BackendResolver
	filter        synonym.KindFilter
	concurrency   int
	strictRecords bool
	logger        *slog.Logger
	metrics       *telemetry.ExportMetrics
	tracer        trace.Tracer
}

// WithName sets the exporter name used in logs, metrics and results
func WithName(name string) Option {
	return func(c *exporterConfig) { c.name = name }
}

// WithResolver sets how backend ids are turned into remote clients
func WithResolver(r BackendResolver) Option {
	return func(c *exporterConfig) { c.resolver = r }
}

// WithKindFilter restricts the exported record kinds
func WithKindFilter(f synonym.KindFilter) Option {
	return func(c *exporterConfig) { c.filter = f }
}

// WithConcurrency bounds the parallel remote calls inside a phase
func WithConcurrency(n int) Option {
	return func(c *exporterConfig) { c.concurrency = n }
}

// WithStrictRecords aborts runs containing invalid records
func WithStrictRecords(strict bool) Option {
	return func(c *exporterConfig) { c.strictRecords = strict }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *exporterConfig) { c.logger = l }
}

// WithMetrics sets the export metrics
func WithMetrics(m *telemetry.ExportMetrics) Option {
	return func(c *exporterConfig) { c.metrics = m }
}

// WithTracer sets the tracer for export spans
func WithTracer(t trace.Tracer) Option {
	return func(c *exporterConfig) { c.tracer = t }
}

// New builds the exporter implementation for plugin.
// rawOptions is the "backendId,resourceName" string; it is parsed on every
// Export call so a bad value surfaces as a *ConfigError at run time.
func New(plugin, rawOptions string, opts ...Option) (Exporter, error) {
	cfg := &exporterConfig{filter: synonym.FilterAll}
	for _, opt := range opts {
		opt(cfg)
	}

	switch plugin {
	case PluginSolrAPI:
		return &SolrManagedSynonymExporter{
			rawOptions: rawOptions,
			filter:     cfg.filter,
			pipeline: &Pipeline{
				Name:          cfg.name,
				Resolver:      cfg.resolver,
				Concurrency:   cfg.concurrency,
				StrictRecords: cfg.strictRecords,
				Logger:        cfg.logger,
				Metrics:       cfg.metrics,
				Tracer:        cfg.tracer,
			},
		}, nil
	default:
		return nil, &ConfigError{Reason: fmt.Sprintf("unsupported exporter plugin %q", plugin)}
	}
}

// SolrManagedSynonymExporter exports records to a Solr managed synonym resource
type SolrManagedSynonymExporter struct {
	rawOptions string
	filter     synonym.KindFilter
	pipeline   *Pipeline
}

// Export replaces the remote resource content with records and reloads the core
func (s *SolrManagedSynonymExporter) Export(ctx context.Context, records []synonym.Record) (*Result, error) {
	opts, err := ParseOptions(s.rawOptions)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Run(ctx, opts, s.filter, records)
}
