package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/synonym-exporter/internal/app"
	"github.com/stacklok/synonym-exporter/internal/telemetry"
)

const (
	defaultGracefulTimeout = 30 * time.Second
	telemetryFlushTimeout  = 5 * time.Second
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled exports and the status API",
		Long: `Start the export coordinator and the HTTP API.

Each configured exporter runs on its own interval, on manual triggers
(POST /v0/exports/{name}/run) and, when the file source has watch enabled,
whenever the synonym file changes.`,
		RunE: runServe,
	}

	cmd.Flags().String("address", ":8080", "Address to listen on")
	cmd.Flags().String("data-dir", "", "Directory for status and lock files (overrides dataDir in the config)")
	if err := viper.BindPFlag("address", cmd.Flags().Lookup("address")); err != nil {
		slog.Error("Error binding address flag", "error", err)
	}
	if err := viper.BindPFlag("data-dir", cmd.Flags().Lookup("data-dir")); err != nil {
		slog.Error("Error binding data-dir flag", "error", err)
	}
	return cmd
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer shutdownTelemetry(tel)

	opts := []app.ExporterAppOptions{
		app.WithConfig(cfg),
		app.WithAddress(viper.GetString("address")),
		app.WithMeterProvider(tel.MeterProvider()),
		app.WithTracerProvider(tel.TracerProvider()),
		app.WithMetricsHandler(tel.PrometheusHandler()),
	}
	if dir := viper.GetString("data-dir"); dir != "" {
		opts = append(opts, app.WithDataDirectory(dir))
	}

	exporterApp, err := app.NewExporterApp(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- exporterApp.Start()
	}()

	select {
	case err := <-errCh:
		_ = exporterApp.Stop(defaultGracefulTimeout)
		return err
	case <-ctx.Done():
		return exporterApp.Stop(defaultGracefulTimeout)
	}
}

func shutdownTelemetry(tel *telemetry.Telemetry) {
	ctx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
	defer cancel()
	if err := tel.Shutdown(ctx); err != nil {
		slog.Error("Failed to shut down telemetry", "error", err)
	}
}
