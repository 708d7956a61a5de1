// Package app provides application lifecycle management for the synonym exporter.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stacklok/synonym-exporter/internal/config"
	pkgsync "github.com/stacklok/synonym-exporter/internal/sync"
)

// ExporterApp encapsulates all components needed to run the exporter service
type ExporterApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start starts the export coordinator in the background and serves HTTP.
// It blocks until the HTTP server stops or fails.
func (app *ExporterApp) Start() error {
	go func() {
		if err := app.components.Coordinator.Start(app.ctx); err != nil {
			slog.Error("Export coordinator failed", "error", err)
		}
	}()

	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop stops the coordinator and then shuts down the HTTP server within timeout
func (app *ExporterApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	if err := app.components.Coordinator.Stop(); err != nil {
		slog.Error("Failed to stop export coordinator", "error", err)
	}

	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server shutdown complete")
	return nil
}

// RunExport performs one forced export of the named exporter without starting
// the background loops. The target locks still apply, so a run started while
// another process is exporting to the same resource fails with
// coordinator.ErrRunInProgress.
func (app *ExporterApp) RunExport(ctx context.Context, exporterName string) (*pkgsync.Result, error) {
	return app.components.Coordinator.RunExporter(ctx, exporterName)
}

// GetConfig returns the application configuration
func (app *ExporterApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *ExporterApp) GetHTTPServer() *http.Server {
	return app.httpServer
}
