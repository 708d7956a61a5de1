// Package otel provides the spans an export run emits: one for the run, one per
// phase (plan, delete, upsert) and one per remote Solr call.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Attribute keys shared by every export span
const (
	AttrExporterName = attribute.Key("exporter.name")
	AttrRunID        = attribute.Key("export.run_id")
	AttrPhase        = attribute.Key("export.phase")
	AttrBackendID    = attribute.Key("backend.id")
	AttrResource     = attribute.Key("solr.resource")
	AttrTerm         = attribute.Key("solr.term")
	AttrOperation    = attribute.Key("solr.operation")
	AttrTermCount    = attribute.Key("term.count")
	AttrFailedCount  = attribute.Key("term.failed_count")
	AttrRecordCount  = attribute.Key("record.count")
	AttrHTTPStatus   = attribute.Key("http.response.status_code")
)

// TracerName is the instrumentation scope used for export spans
const TracerName = "github.com/stacklok/synonym-exporter/export"

// Run identifies one export run on its root span
type Run struct {
	Exporter string
	RunID    string
	Backend  string
	Resource string
	Records  int
}

// StartRun opens the root span of an export run
func StartRun(ctx context.Context, tracer trace.Tracer, run Run) (context.Context, trace.Span) {
	return start(ctx, tracer, "export.Run",
		AttrExporterName.String(run.Exporter),
		AttrRunID.String(run.RunID),
		AttrBackendID.String(run.Backend),
		AttrResource.String(run.Resource),
		AttrRecordCount.Int(run.Records),
	)
}

// StartPhase opens the span of one export phase covering terms terms
func StartPhase(
	ctx context.Context, tracer trace.Tracer, phase string, terms int, attrs ...attribute.KeyValue,
) (context.Context, trace.Span) {
	attrs = append(attrs, AttrPhase.String(phase), AttrTermCount.Int(terms))
	return start(ctx, tracer, "export."+phase, attrs...)
}

// StartCall opens a client span for one remote operation. term is empty for
// resource level calls such as the core reload.
func StartCall(ctx context.Context, tracer trace.Tracer, operation, resource, term string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		AttrOperation.String(operation),
		AttrResource.String(resource),
	}
	if term != "" {
		attrs = append(attrs, AttrTerm.String(term))
	}
	if tracer == nil {
		return ctx, noop.Span{}
	}
	return tracer.Start(ctx, "solr."+operation, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

// EndPhase records how many terms of the phase failed and ends the span.
// A phase with failures is marked as an error.
func EndPhase(span trace.Span, failed int) {
	span.SetAttributes(AttrFailedCount.Int(failed))
	if failed > 0 {
		span.SetStatus(codes.Error, "term operations failed")
	}
	span.End()
}

// EndCall records err and the HTTP status of a remote call, then ends the span.
// statusCode 0 means no response was received.
func EndCall(span trace.Span, err error, statusCode int) {
	if statusCode > 0 {
		span.SetAttributes(AttrHTTPStatus.Int(statusCode))
	}
	End(span, err)
}

// End records err on span, if any, and ends it.
// The status description stays generic, the error itself is kept as a span event.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
	span.End()
}

func start(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, noop.Span{}
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
