package telemetry

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// APIMetricsMeterName is the name used for the export API meter
	APIMetricsMeterName = "github.com/stacklok/synonym-exporter/api"

	unknownRoute    = "unknown_route"
	unknownExporter = "unknown"
	noExporter      = ""
	triggerSuffix   = "/run"
)

// Outcomes of a manual export trigger
const (
	TriggerAccepted        = "accepted"
	TriggerUnknownExporter = "unknown_exporter"
	TriggerRejected        = "rejected"
)

// APIMetrics records requests to the export API. Requests addressing one
// exporter are labelled with its name, so an operator can tell which exporter
// is being polled or triggered.
type APIMetrics struct {
	requestDuration metric.Float64Histogram
	requestsTotal   metric.Int64Counter
	triggersTotal   metric.Int64Counter
}

// NewAPIMetrics creates the API instruments on provider.
// If provider is nil, it returns nil (no-op metrics).
func NewAPIMetrics(provider metric.MeterProvider) (*APIMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(APIMetricsMeterName)

	requestDuration, err := meter.Float64Histogram(
		"synexp_api_request_duration_seconds",
		metric.WithDescription("Duration of export API requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5),
	)
	if err != nil {
		return nil, err
	}

	requestsTotal, err := meter.Int64Counter(
		"synexp_api_requests_total",
		metric.WithDescription("Total number of export API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	triggersTotal, err := meter.Int64Counter(
		"synexp_api_export_triggers_total",
		metric.WithDescription("Manual export triggers by exporter and outcome"),
		metric.WithUnit("{trigger}"),
	)
	if err != nil {
		return nil, err
	}

	return &APIMetrics{
		requestDuration: requestDuration,
		requestsTotal:   requestsTotal,
		triggersTotal:   triggersTotal,
	}, nil
}

// Middleware records every request once the handler has answered.
// A nil *APIMetrics returns next unchanged.
func (m *APIMetrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Capture context at the start - it may be cancelled after ServeHTTP returns
		ctx := r.Context()
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		route := routePattern(r)
		exporter := exporterLabel(r, status)

		attrs := metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("route", route),
			attribute.String("status_code", strconv.Itoa(status)),
			attribute.String("exporter", exporter),
		)
		m.requestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
		m.requestsTotal.Add(ctx, 1, attrs)

		if r.Method == http.MethodPost && strings.HasSuffix(route, triggerSuffix) {
			m.triggersTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("exporter", exporter),
				attribute.String("outcome", triggerOutcome(status)),
			))
		}
	})
}

// routePattern returns "/v0/exports/{name}" rather than the concrete URL.
// Unmatched requests share one label.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return unknownRoute
}

// exporterLabel returns the {name} URL parameter. Names that resolved to no
// exporter are folded into one label so arbitrary URLs cannot grow the series.
func exporterLabel(r *http.Request, status int) string {
	name := chi.URLParam(r, "name")
	switch {
	case name == "":
		return noExporter
	case status == http.StatusNotFound || status == http.StatusBadRequest:
		return unknownExporter
	default:
		return name
	}
}

func triggerOutcome(status int) string {
	switch {
	case status == http.StatusAccepted:
		return TriggerAccepted
	case status == http.StatusNotFound:
		return TriggerUnknownExporter
	default:
		return TriggerRejected
	}
}

// MetricsMiddleware combines NewAPIMetrics and Middleware.
func MetricsMiddleware(provider metric.MeterProvider) (func(http.Handler) http.Handler, error) {
	metrics, err := NewAPIMetrics(provider)
	if err != nil {
		return nil, err
	}

	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return metrics.Middleware(next)
	}, nil
}
