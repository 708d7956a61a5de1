package export

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/synonym-exporter/internal/httpclient"
	"github.com/stacklok/synonym-exporter/internal/otel"
	"github.com/stacklok/synonym-exporter/internal/telemetry"
)

// DefaultConcurrency bounds the parallel remote calls inside one phase
const DefaultConcurrency = 4

// Remote operations recorded on failures
const (
	OperationDelete = "delete"
	OperationUpsert = "upsert"
	OperationReload = "reload"

	operationExists = "exists"
)

// RemoteWriter mutates a managed synonym resource and reloads its core
type RemoteWriter interface {
	// DeleteTerm removes a term. A term that is already gone is not an error.
	DeleteTerm(ctx context.Context, resource, term string) error

	// UpsertTerm adds a term or replaces its synonym list
	UpsertTerm(ctx context.Context, resource, term string, synonyms []string) error

	// ReloadCore makes the search engine pick up the written terms
	ReloadCore(ctx context.Context) error
}

// Executor applies a plan to a remote resource: delete, then upsert, then reload.
// Each phase completes before the next starts.
type Executor struct {
	Reader      RemoteReader
	Writer      RemoteWriter
	Concurrency int

	// Name identifies the exporter in logs and metrics
	Name    string
	Logger  *slog.Logger
	Metrics *telemetry.ExportMetrics
	Tracer  trace.Tracer
}

// Apply runs the plan and returns the run summary. Per-term failures are
// recorded on the result and never stop the run; a failed reload or a
// cancelled context leaves the result in StateFailed with Err set.
func (e *Executor) Apply(ctx context.Context, plan *Plan, resource string) *Result {
	result := &Result{
		Exporter:  e.Name,
		Resource:  resource,
		State:     StateIdle,
		StartedAt: time.Now(),
	}
	defer func() {
		sort.SliceStable(result.Failures, func(i, j int) bool {
			if result.Failures[i].Operation != result.Failures[j].Operation {
				return result.Failures[i].Operation < result.Failures[j].Operation
			}
			return result.Failures[i].Term < result.Failures[j].Term
		})
		result.FinishedAt = time.Now()
		e.recordTermMetrics(ctx, result)
	}()

	ctx, span := otel.StartPhase(ctx, e.Tracer, "apply",
		len(plan.TermsToDelete)+len(plan.TermsToUpsert),
		otel.AttrExporterName.String(e.Name),
		otel.AttrResource.String(resource),
	)
	defer func() { otel.End(span, result.Err) }()

	steps := []struct {
		state State
		run   func(context.Context, *Result)
	}{
		{StateDeleting, func(ctx context.Context, r *Result) { e.deleteAll(ctx, plan.TermsToDelete, resource, r) }},
		{StateUpserting, func(ctx context.Context, r *Result) { e.upsertAll(ctx, plan, resource, r) }},
	}

	for _, step := range steps {
		if err := result.transition(step.state); err != nil {
			result.fail(err)
			return result
		}
		step.run(ctx, result)
		if err := ctx.Err(); err != nil {
			result.fail(fmt.Errorf("export interrupted during %s: %w", step.state, err))
			return result
		}
	}

	if err := result.transition(StateReloading); err != nil {
		result.fail(err)
		return result
	}
	if err := e.reload(ctx, resource); err != nil {
		e.logger().Error("Core reload failed",
			"resource", resource,
			"operation", OperationReload,
			"status", httpclient.StatusCode(err),
			"error", err)
		result.fail(&ReloadError{Err: err})
		return result
	}
	if err := result.transition(StateDone); err != nil {
		result.fail(err)
	}
	return result
}

func (e *Executor) deleteAll(ctx context.Context, terms []string, resource string, result *Result) {
	e.forEach(ctx, terms, resource, OperationDelete, result, func(ctx context.Context, term string) error {
		var exists bool
		err := e.traceCall(ctx, operationExists, resource, term, func(ctx context.Context) (err error) {
			exists, err = e.Reader.TermExists(ctx, resource, term)
			return err
		})
		if err != nil {
			return err
		}
		if !exists {
			result.count(&result.Skipped)
			return nil
		}
		err = e.traceCall(ctx, OperationDelete, resource, term, func(ctx context.Context) error {
			return e.Writer.DeleteTerm(ctx, resource, term)
		})
		if err != nil {
			return err
		}
		result.count(&result.Deleted)
		return nil
	})
}

func (e *Executor) upsertAll(ctx context.Context, plan *Plan, resource string, result *Result) {
	e.forEach(ctx, plan.TermsToUpsert.Terms(), resource, OperationUpsert, result, func(ctx context.Context, term string) error {
		err := e.traceCall(ctx, OperationUpsert, resource, term, func(ctx context.Context) error {
			return e.Writer.UpsertTerm(ctx, resource, term, plan.TermsToUpsert[term])
		})
		if err != nil {
			return err
		}
		result.count(&result.Upserted)
		return nil
	})
}

// forEach runs call for every term with bounded concurrency and returns once
// every call has finished. Once ctx is done no new calls are issued and the
// remaining terms are recorded as failed.
func (e *Executor) forEach(
	ctx context.Context,
	terms []string,
	resource, operation string,
	result *Result,
	call func(context.Context, string) error,
) {
	ctx, span := otel.StartPhase(ctx, e.Tracer, operation, len(terms), otel.AttrResource.String(resource))
	before := result.failureCount()
	defer func() { otel.EndPhase(span, result.failureCount()-before) }()

	var g errgroup.Group
	g.SetLimit(e.concurrency())

	for _, term := range terms {
		if err := ctx.Err(); err != nil {
			e.recordFailure(result, resource, operation, term, err)
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				e.recordFailure(result, resource, operation, term, err)
				return nil
			}
			if err := call(ctx, term); err != nil {
				e.recordFailure(result, resource, operation, term, err)
			}
			return nil
		})
	}

	_ = g.Wait()
}

func (e *Executor) recordFailure(result *Result, resource, operation, term string, err error) {
	writeErr := &RemoteWriteError{Operation: operation, Resource: resource, Term: term, Err: err}
	e.logger().Warn("Remote term operation failed",
		"resource", resource,
		"term", term,
		"operation", operation,
		"status", writeErr.StatusCode(),
		"error", err)
	result.addFailure(TermFailure{
		Term:       term,
		Operation:  operation,
		StatusCode: writeErr.StatusCode(),
		Message:    err.Error(),
		Err:        writeErr,
	})
}

func (e *Executor) reload(ctx context.Context, resource string) error {
	return e.traceCall(ctx, OperationReload, resource, "", e.Writer.ReloadCore)
}

// traceCall wraps one remote call in a client span carrying its HTTP status
func (e *Executor) traceCall(
	ctx context.Context, operation, resource, term string, call func(context.Context) error,
) error {
	ctx, span := otel.StartCall(ctx, e.Tracer, operation, resource, term)
	err := call(ctx)
	otel.EndCall(span, err, httpclient.StatusCode(err))
	return err
}

func (e *Executor) recordTermMetrics(ctx context.Context, result *Result) {
	if e.Metrics == nil {
		return
	}
	failed := map[string]int{}
	for _, f := range result.Failures {
		failed[f.Operation]++
	}
	ctx = context.WithoutCancel(ctx)
	e.Metrics.RecordTerms(ctx, e.Name, telemetry.OperationDelete, telemetry.OutcomeSuccess, result.Deleted)
	e.Metrics.RecordTerms(ctx, e.Name, telemetry.OperationDelete, telemetry.OutcomeFailure, failed[OperationDelete])
	e.Metrics.RecordTerms(ctx, e.Name, telemetry.OperationUpsert, telemetry.OutcomeSuccess, result.Upserted)
	e.Metrics.RecordTerms(ctx, e.Name, telemetry.OperationUpsert, telemetry.OutcomeFailure, failed[OperationUpsert])
	e.Metrics.RecordTerms(ctx, e.Name, telemetry.OperationSkip, telemetry.OutcomeSuccess, result.Skipped)
}

func (e *Executor) concurrency() int {
	if e.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return e.Concurrency
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}
