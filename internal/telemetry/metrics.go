package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ExportMetricsMeterName is the name used for the export metrics meter
const ExportMetricsMeterName = "github.com/stacklok/synonym-exporter/export"

// Term operations recorded by ExportMetrics
const (
	OperationDelete = "delete"
	OperationUpsert = "upsert"
	OperationSkip   = "skip"
)

// Term outcomes recorded by ExportMetrics
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// ExportMetrics holds the OpenTelemetry instruments for export runs
type ExportMetrics struct {
	exportDuration metric.Float64Histogram
	termsTotal     metric.Int64Counter
	checksTotal    metric.Int64Counter
}

// NewExportMetrics creates a new ExportMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewExportMetrics(provider metric.MeterProvider) (*ExportMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(ExportMetricsMeterName)

	exportDuration, err := meter.Float64Histogram(
		"synexp_export_duration_seconds",
		metric.WithDescription("Duration of export runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	termsTotal, err := meter.Int64Counter(
		"synexp_export_terms_total",
		metric.WithDescription("Number of remote term operations performed by export runs"),
		metric.WithUnit("{term}"),
	)
	if err != nil {
		return nil, err
	}

	checksTotal, err := meter.Int64Counter(
		"synexp_export_checks_total",
		metric.WithDescription("Number of scheduling decisions taken for exporters"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	return &ExportMetrics{
		exportDuration: exportDuration,
		termsTotal:     termsTotal,
		checksTotal:    checksTotal,
	}, nil
}

// RecordExportDuration records the duration of one export run
func (m *ExportMetrics) RecordExportDuration(ctx context.Context, exporter string, duration time.Duration, success bool) {
	if m == nil || m.exportDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("exporter", exporter),
		attribute.Bool("success", success),
	}

	m.exportDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordTerms adds count term operations with the given outcome. Zero counts are dropped.
func (m *ExportMetrics) RecordTerms(ctx context.Context, exporter, operation, outcome string, count int) {
	if m == nil || m.termsTotal == nil || count <= 0 {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("exporter", exporter),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	}

	m.termsTotal.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

// RecordCheck counts one scheduling decision and whether it started a run
func (m *ExportMetrics) RecordCheck(ctx context.Context, exporter, reason string, ran bool) {
	if m == nil || m.checksTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("exporter", exporter),
		attribute.String("reason", reason),
		attribute.Bool("ran", ran),
	}

	m.checksTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}
