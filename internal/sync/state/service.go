// Package state holds the export status of every configured exporter.
package state

import (
	"context"
	"errors"

	"github.com/stacklok/synonym-exporter/internal/config"
	"github.com/stacklok/synonym-exporter/internal/status"
)

// ErrExporterNotFound is returned for exporters that were never initialized
var ErrExporterNotFound = errors.New("exporter not found")

// ExportStateService provides methods for inspecting and updating export status.
//
//go:generate mockgen -destination=mocks/mock_export_state_service.go -package=mocks github.com/stacklok/synonym-exporter/internal/sync/state ExportStateService
type ExportStateService interface {
	// Initialize loads or creates the status of every configured exporter.
	// Statuses left Running by an interrupted process are reset to Failed.
	Initialize(ctx context.Context, exporters []config.ExporterConfig) error
	// ListExportStatuses returns a copy of every status keyed by exporter name.
	ListExportStatuses(ctx context.Context) (map[string]*status.ExportStatus, error)
	// GetExportStatus returns a copy of the named exporter's status.
	GetExportStatus(ctx context.Context, exporterName string) (*status.ExportStatus, error)
	// UpdateExportStatus replaces the named exporter's status.
	UpdateExportStatus(ctx context.Context, exporterName string, exportStatus *status.ExportStatus) error
	// UpdateStatusAtomically applies testAndUpdateFn to the current status under
	// a lock and persists the result when the function reports a change.
	// The returned boolean is the value reported by testAndUpdateFn.
	UpdateStatusAtomically(
		ctx context.Context,
		exporterName string,
		testAndUpdateFn func(exportStatus *status.ExportStatus) bool,
	) (bool, error)
}
