package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNewExportMetrics(t *testing.T) {
	t.Parallel()

	t.Run("returns nil when provider is nil", func(t *testing.T) {
		t.Parallel()

		metrics, err := NewExportMetrics(nil)
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("creates metrics with SDK provider", func(t *testing.T) {
		t.Parallel()

		mp := sdkmetric.NewMeterProvider()
		defer func() { _ = mp.Shutdown(context.Background()) }()

		metrics, err := NewExportMetrics(mp)
		require.NoError(t, err)
		require.NotNil(t, metrics)
		assert.NotNil(t, metrics.exportDuration)
		assert.NotNil(t, metrics.termsTotal)
		assert.NotNil(t, metrics.checksTotal)
	})
}

func TestExportMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var metrics *ExportMetrics
	// Should not panic
	metrics.RecordExportDuration(context.Background(), "products-en", time.Second, true)
	metrics.RecordTerms(context.Background(), "products-en", OperationDelete, OutcomeSuccess, 3)
	metrics.RecordCheck(context.Background(), "products-en", "up-to-date-with-policy", false)
}

func TestExportMetrics_RecordExportDuration(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewExportMetrics(mp)
	require.NoError(t, err)

	metrics.RecordExportDuration(context.Background(), "products-en", 2*time.Second, true)
	metrics.RecordExportDuration(context.Background(), "products-en", 4*time.Second, false)

	got := collect(t, reader)
	m, ok := got["synexp_export_duration_seconds"]
	require.True(t, ok, "expected duration histogram")

	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 2)

	for _, dp := range hist.DataPoints {
		exporter, _ := dp.Attributes.Value(attribute.Key("exporter"))
		assert.Equal(t, "products-en", exporter.AsString())
		assert.Equal(t, uint64(1), dp.Count)

		success, _ := dp.Attributes.Value(attribute.Key("success"))
		if success.AsBool() {
			assert.InDelta(t, 2.0, dp.Sum, 0.001)
		} else {
			assert.InDelta(t, 4.0, dp.Sum, 0.001)
		}
	}
}

func TestExportMetrics_RecordTerms(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewExportMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordTerms(ctx, "products-en", OperationUpsert, OutcomeSuccess, 2)
	metrics.RecordTerms(ctx, "products-en", OperationUpsert, OutcomeSuccess, 3)
	metrics.RecordTerms(ctx, "products-en", OperationDelete, OutcomeFailure, 1)
	metrics.RecordTerms(ctx, "products-en", OperationDelete, OutcomeSuccess, 0)

	got := collect(t, reader)
	m, ok := got["synexp_export_terms_total"]
	require.True(t, ok, "expected terms counter")

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 2)

	for _, dp := range sum.DataPoints {
		op, _ := dp.Attributes.Value(attribute.Key("operation"))
		switch op.AsString() {
		case OperationUpsert:
			assert.Equal(t, int64(5), dp.Value)
		case OperationDelete:
			outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
			assert.Equal(t, OutcomeFailure, outcome.AsString())
			assert.Equal(t, int64(1), dp.Value)
		default:
			t.Fatalf("unexpected operation %q", op.AsString())
		}
	}
}

func TestExportMetrics_RecordCheck(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err := NewExportMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordCheck(ctx, "products-en", "exporter-not-ready", true)
	metrics.RecordCheck(ctx, "products-en", "up-to-date-with-policy", false)
	metrics.RecordCheck(ctx, "products-en", "up-to-date-with-policy", false)

	got := collect(t, reader)
	m, ok := got["synexp_export_checks_total"]
	require.True(t, ok, "expected checks counter")

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 2)

	for _, dp := range sum.DataPoints {
		reason, _ := dp.Attributes.Value(attribute.Key("reason"))
		ran, _ := dp.Attributes.Value(attribute.Key("ran"))
		switch reason.AsString() {
		case "exporter-not-ready":
			assert.True(t, ran.AsBool())
			assert.Equal(t, int64(1), dp.Value)
		case "up-to-date-with-policy":
			assert.False(t, ran.AsBool())
			assert.Equal(t, int64(2), dp.Value)
		default:
			t.Fatalf("unexpected reason %s", reason.AsString())
		}
	}
}
