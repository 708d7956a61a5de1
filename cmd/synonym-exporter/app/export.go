package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stacklok/synonym-exporter/internal/app"
	"github.com/stacklok/synonym-exporter/internal/export"
	pkgsync "github.com/stacklok/synonym-exporter/internal/sync"
	"github.com/stacklok/synonym-exporter/internal/telemetry"
)

// ErrExportFailed is returned when the run finished in a failed state
var ErrExportFailed = errors.New("export failed")

// exportSummary is printed to stdout after a one-shot export
type exportSummary struct {
	*export.Result
	SourceHash string `json:"sourceHash,omitempty"`
	Records    int    `json:"records"`
	Error      string `json:"error,omitempty"`
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run one export and print its summary",
		Long: `Run a single export for the named exporter, ignoring its schedule,
and print a JSON summary on stdout.

The command exits non-zero when the run fails, when the reload fails, or when
another process is currently exporting to the same resource.`,
		RunE: runExport,
	}
	cmd.Flags().String("exporter", "", "Name of the exporter to run (required)")
	if err := cmd.MarkFlagRequired("exporter"); err != nil {
		panic(err)
	}
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	name, err := cmd.Flags().GetString("exporter")
	if err != nil {
		return fmt.Errorf("failed to get exporter flag: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, ok := cfg.Exporter(name); !ok {
		return fmt.Errorf("exporter %q is not configured", name)
	}

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer shutdownTelemetry(tel)

	exporterApp, err := app.NewExporterApp(ctx,
		app.WithConfig(cfg),
		app.WithMeterProvider(tel.MeterProvider()),
		app.WithTracerProvider(tel.TracerProvider()),
	)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	result, runErr := exporterApp.RunExport(ctx, name)
	if err := writeSummary(cmd, result, runErr); err != nil {
		slog.Error("Failed to write export summary", "error", err)
	}
	return exitError(result, runErr)
}

func writeSummary(cmd *cobra.Command, result *pkgsync.Result, runErr error) error {
	summary := exportSummary{}
	if result != nil {
		summary.Result = result.Export
		summary.SourceHash = result.Hash
		summary.Records = result.Records
	}
	if runErr != nil {
		summary.Error = runErr.Error()
	}
	if summary.Result == nil {
		summary.Result = &export.Result{State: export.StateFailed}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

// exitError decides the command outcome. Per-term failures alone do not fail the command.
func exitError(result *pkgsync.Result, runErr error) error {
	if runErr != nil {
		return runErr
	}
	if result == nil || result.Export == nil || !result.Export.Succeeded() {
		return ErrExportFailed
	}
	return nil
}
