package app

import (
	"github.com/stacklok/synonym-exporter/internal/service"
	"github.com/stacklok/synonym-exporter/internal/sync/coordinator"
	"github.com/stacklok/synonym-exporter/internal/sync/state"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	// Coordinator schedules and runs exports
	Coordinator coordinator.Coordinator

	// ExportService backs the HTTP API
	ExportService service.ExportService

	// StateService holds per-exporter status
	StateService state.ExportStateService
}
