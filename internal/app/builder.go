package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/synonym-exporter/internal/api"
	"github.com/stacklok/synonym-exporter/internal/config"
	"github.com/stacklok/synonym-exporter/internal/export"
	"github.com/stacklok/synonym-exporter/internal/otel"
	"github.com/stacklok/synonym-exporter/internal/service"
	"github.com/stacklok/synonym-exporter/internal/solr"
	"github.com/stacklok/synonym-exporter/internal/sources"
	"github.com/stacklok/synonym-exporter/internal/status"
	pkgsync "github.com/stacklok/synonym-exporter/internal/sync"
	"github.com/stacklok/synonym-exporter/internal/sync/coordinator"
	"github.com/stacklok/synonym-exporter/internal/sync/state"
	"github.com/stacklok/synonym-exporter/internal/telemetry"
)

const (
	defaultHTTPAddress    = ":8080"
	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second

	statusDirName = "status"
)

// ExporterAppOptions is a function that configures the exporter app builder
type ExporterAppOptions func(*exporterAppConfig) error

// exporterAppConfig collects builder inputs.
// Component overrides exist primarily for testing.
type exporterAppConfig struct {
	config *config.Config

	sourceFactory sources.RecordSourceFactory
	resolver      export.BackendResolver
	syncManager   pkgsync.Manager
	stateService  state.ExportStateService

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	dataDir string

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

func baseConfig(opts ...ExporterAppOptions) (*exporterAppConfig, error) {
	cfg := &exporterAppConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.dataDir == "" {
		cfg.dataDir = cfg.config.GetDataDir()
	}

	return cfg, nil
}

// NewExporterApp builds an ExporterApp from the given options
func NewExporterApp(
	ctx context.Context,
	opts ...ExporterAppOptions,
) (*ExporterApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	if err := os.MkdirAll(cfg.dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	syncCoordinator, err := buildSyncComponents(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build sync components: %w", err)
	}

	exportService := service.NewExportService(cfg.config, cfg.stateService, syncCoordinator)

	httpServer, err := buildHTTPServer(ctx, cfg, exportService)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)

	return &ExporterApp{
		config: cfg.config,
		components: &AppComponents{
			Coordinator:   syncCoordinator,
			ExportService: exportService,
			StateService:  cfg.stateService,
		},
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancel,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) ExporterAppOptions {
	return func(cfg *exporterAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) ExporterAppOptions {
	return func(cfg *exporterAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return fmt.Errorf("address is not a valid host:port: %w", err)
		}
		if port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		switch host {
		case "localhost":
			host = "127.0.0.1"
		case "":
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(net.JoinHostPort(host, port)); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares replaces the default HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ExporterAppOptions {
	return func(cfg *exporterAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithDataDirectory overrides the data directory from the configuration
func WithDataDirectory(dir string) ExporterAppOptions {
	return func(cfg *exporterAppConfig) error {
		if dir == "" {
			return fmt.Errorf("data directory cannot be empty")
		}
		cfg.dataDir = dir
		return nil
	}
}

// WithSourceFactory allows injecting a custom record source factory (for testing)
func WithSourceFactory(f sources.RecordSourceFactory) ExporterAppOptions {
	return func(cfg *exporterAppConfig) error {
		cfg.sourceFactory = f
		return nil
	}
}

// WithBackendResolver allows injecting a custom backend resolver (for testing)
func WithBackendResolver(r export.BackendResolver) ExporterAppOptions {
	return func(cfg *exporterAppConfig) error {
		cfg.resolver = r
		return nil
	}
}

// WithSyncManager allows injecting a custom sync manager (for testing)
func WithSyncManager(sm pkgsync.Manager) ExporterAppOptions {
	return func(cfg *exporterAppConfig) error {
		cfg.syncManager = sm
		return nil
	}
}

// WithStateService allows injecting a custom state service (for testing)
func WithStateService(s state.ExportStateService) ExporterAppOptions {
	return func(cfg *exporterAppConfig) error {
		cfg.stateService = s
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for export and HTTP metrics
func WithMeterProvider(mp metric.MeterProvider) ExporterAppOptions {
	return func(cfg *exporterAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider for export spans
func WithTracerProvider(tp trace.TracerProvider) ExporterAppOptions {
	return func(cfg *exporterAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler serves h at /metrics
func WithMetricsHandler(h http.Handler) ExporterAppOptions {
	return func(cfg *exporterAppConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// buildSyncComponents builds the sync manager, state service and coordinator
//
//nolint:unparam // we prefer having a similar interface
func buildSyncComponents(
	_ context.Context,
	b *exporterAppConfig,
) (coordinator.Coordinator, error) {
	slog.Info("Initializing sync components")

	if b.stateService == nil {
		b.stateService = state.NewFileStateService(
			status.NewFileStatusPersistence(filepath.Join(b.dataDir, statusDirName)),
		)
	}

	var exportMetrics *telemetry.ExportMetrics
	if b.meterProvider != nil {
		m, err := telemetry.NewExportMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create export metrics: %w", err)
		}
		exportMetrics = m
		slog.Info("Export metrics enabled")
	}

	if b.syncManager == nil {
		if b.sourceFactory == nil {
			b.sourceFactory = sources.NewRecordSourceFactory(&b.config.Source)
		}
		if b.resolver == nil {
			b.resolver = solr.NewResolver(b.config.Backends)
		}

		managerOpts := []pkgsync.ManagerOption{
			pkgsync.WithResolver(b.resolver),
			pkgsync.WithExportMetrics(exportMetrics),
		}
		if b.tracerProvider != nil {
			managerOpts = append(managerOpts, pkgsync.WithTracer(b.tracerProvider.Tracer(otel.TracerName)))
		}
		b.syncManager = pkgsync.NewDefaultSyncManager(b.sourceFactory, managerOpts...)
	}

	syncCoordinator := coordinator.New(b.syncManager, b.stateService, b.config,
		coordinator.WithDataDir(b.dataDir),
		coordinator.WithExportMetrics(exportMetrics),
	)
	slog.Info("Sync components initialized successfully", "exporters", len(b.config.Exporters))

	return syncCoordinator, nil
}

// buildHTTPServer builds the HTTP server with router and middleware
//
//nolint:unparam // we prefer having a similar interface
func buildHTTPServer(
	_ context.Context,
	b *exporterAppConfig,
	svc service.ExportService,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Metrics middleware goes first to capture every request
	if b.meterProvider != nil {
		metricsMiddleware, err := telemetry.MetricsMiddleware(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		if metricsMiddleware != nil {
			b.middlewares = append([]func(http.Handler) http.Handler{metricsMiddleware}, b.middlewares...)
			slog.Info("HTTP metrics middleware enabled")
		}
	}

	router := api.NewServer(svc,
		api.WithMiddlewares(b.middlewares...),
		api.WithMetricsHandler(b.metricsHandler),
	)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
