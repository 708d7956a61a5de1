package export

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/synonym-exporter/internal/otel"
	"github.com/stacklok/synonym-exporter/internal/synonym"
	"github.com/stacklok/synonym-exporter/internal/telemetry"
)

// Backend is a reader and writer bound to one Solr core
type Backend struct {
	Reader RemoteReader
	Writer RemoteWriter
}

// BackendResolver looks up the backend an exporter's options refer to
type BackendResolver interface {
	// Resolve returns the backend for id, or a *ConfigError if it is unknown
	Resolve(backendID string) (*Backend, error)
}

// Pipeline runs one export: resolve backend, format records, plan, apply
type Pipeline struct {
	Name          string
	Resolver      BackendResolver
	Concurrency   int
	StrictRecords bool

	Logger  *slog.Logger
	Metrics *telemetry.ExportMetrics
	Tracer  trace.Tracer
}

// Run exports records to the resource named by opts.
//
// A *ConfigError or *RemoteListError is returned without a result and
// nothing remote has been mutated. Per-term failures are only recorded on
// the result. A failed reload returns the result together with its *ReloadError.
func (p *Pipeline) Run(
	ctx context.Context,
	opts Options,
	filter synonym.KindFilter,
	records []synonym.Record,
) (result *Result, err error) {
	runID := uuid.NewString()
	started := time.Now()
	logger := p.logger().With("exporter", p.Name, "run_id", runID, "resource", opts.ResourceName)

	ctx, span := otel.StartRun(ctx, p.Tracer, otel.Run{
		Exporter: p.Name,
		RunID:    runID,
		Backend:  opts.BackendID,
		Resource: opts.ResourceName,
		Records:  len(records),
	})
	defer func() {
		otel.End(span, err)
		p.Metrics.RecordExportDuration(context.WithoutCancel(ctx), p.Name, time.Since(started),
			err == nil && result != nil && result.Succeeded())
	}()

	if p.Resolver == nil {
		return nil, &ConfigError{Reason: "no backend resolver configured"}
	}
	backend, err := p.Resolver.Resolve(opts.BackendID)
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, &ConfigError{Reason: "cannot resolve backend " + opts.BackendID, Err: err}
	}

	local, invalid, err := p.format(filter, records, logger)
	if err != nil {
		return nil, err
	}

	planCtx, planSpan := otel.StartPhase(ctx, p.Tracer, "plan", len(local), otel.AttrResource.String(opts.ResourceName))
	plan, err := BuildPlan(planCtx, local, backend.Reader, opts.ResourceName)
	otel.End(planSpan, err)
	if err != nil {
		logger.Error("Failed to read remote terms, nothing was changed", "error", err)
		return nil, err
	}

	logger.Info("Starting export",
		"terms_to_delete", len(plan.TermsToDelete),
		"terms_to_upsert", len(plan.TermsToUpsert),
		"invalid_records", invalid)

	executor := &Executor{
		Reader:      backend.Reader,
		Writer:      backend.Writer,
		Concurrency: p.Concurrency,
		Name:        p.Name,
		Logger:      logger,
		Metrics:     p.Metrics,
		Tracer:      p.Tracer,
	}
	result = executor.Apply(ctx, plan, opts.ResourceName)
	result.RunID = runID
	result.Invalid = invalid
	result.StartedAt = started

	logger.Info("Export finished",
		"state", result.State.String(),
		"deleted", result.Deleted,
		"upserted", result.Upserted,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration", result.Duration().String())

	var reloadErr *ReloadError
	if errors.As(result.Err, &reloadErr) {
		return result, reloadErr
	}
	return result, nil
}

// format turns records into the term map, logging and counting invalid ones.
// With StrictRecords any invalid record aborts the run as a *ConfigError.
func (p *Pipeline) format(
	filter synonym.KindFilter,
	records []synonym.Record,
	logger *slog.Logger,
) (synonym.Map, int, error) {
	local, err := synonym.Formatter{Filter: filter}.Format(records)
	if err == nil {
		return local, 0, nil
	}

	if p.StrictRecords {
		return nil, 0, &ConfigError{Reason: "source contains invalid synonym records", Err: err}
	}

	invalid := 0
	for _, e := range unwrapAll(err) {
		var recErr *synonym.InvalidRecordError
		if errors.As(e, &recErr) {
			invalid++
			logger.Warn("Skipping invalid synonym record", "index", recErr.Index, "reason", recErr.Reason)
		}
	}
	return local, invalid, nil
}

func unwrapAll(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
