package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stacklok/synonym-exporter/internal/config"
	"github.com/stacklok/synonym-exporter/internal/status"
)

const noPreviousExportMessage = "No previous export status found"

type fileStateService struct {
	statusPersistence status.StatusPersistence

	mu             sync.RWMutex
	cachedStatuses map[string]*status.ExportStatus
}

// NewFileStateService creates a state service that caches statuses in memory
// and writes every change through to statusPersistence
func NewFileStateService(statusPersistence status.StatusPersistence) ExportStateService {
	return &fileStateService{
		statusPersistence: statusPersistence,
		cachedStatuses:    make(map[string]*status.ExportStatus),
	}
}

func (f *fileStateService) Initialize(ctx context.Context, exporters []config.ExporterConfig) error {
	for i := range exporters {
		f.loadOrInitializeStatus(ctx, &exporters[i])
	}
	return nil
}

func (f *fileStateService) ListExportStatuses(_ context.Context) (map[string]*status.ExportStatus, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	result := make(map[string]*status.ExportStatus, len(f.cachedStatuses))
	for name, exportStatus := range f.cachedStatuses {
		if exportStatus != nil {
			statusCopy := *exportStatus
			result[name] = &statusCopy
		}
	}
	return result, nil
}

func (f *fileStateService) GetExportStatus(_ context.Context, exporterName string) (*status.ExportStatus, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	exportStatus, exists := f.cachedStatuses[exporterName]
	if !exists || exportStatus == nil {
		return nil, fmt.Errorf("%w: %s", ErrExporterNotFound, exporterName)
	}
	statusCopy := *exportStatus
	return &statusCopy, nil
}

func (f *fileStateService) UpdateStatusAtomically(
	ctx context.Context,
	exporterName string,
	testAndUpdateFn func(exportStatus *status.ExportStatus) bool,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current, exists := f.cachedStatuses[exporterName]
	if !exists || current == nil {
		return false, fmt.Errorf("%w: %s", ErrExporterNotFound, exporterName)
	}

	// Mutate a copy so a failed save leaves the cache untouched
	updated := *current
	if !testAndUpdateFn(&updated) {
		return false, nil
	}
	if err := f.statusPersistence.SaveStatus(ctx, exporterName, &updated); err != nil {
		return false, err
	}
	f.cachedStatuses[exporterName] = &updated
	return true, nil
}

func (f *fileStateService) UpdateExportStatus(
	ctx context.Context,
	exporterName string,
	exportStatus *status.ExportStatus,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.statusPersistence.SaveStatus(ctx, exporterName, exportStatus); err != nil {
		return err
	}
	statusCopy := *exportStatus
	f.cachedStatuses[exporterName] = &statusCopy
	return nil
}

// loadOrInitializeStatus assumes a single process owns the data directory
func (f *fileStateService) loadOrInitializeStatus(ctx context.Context, exp *config.ExporterConfig) {
	name := exp.Name
	schedule := exp.GetSyncInterval().String()

	exportStatus, err := f.statusPersistence.LoadStatus(ctx, name)
	if err != nil {
		slog.Warn("Failed to load export status, initializing with defaults", "exporter", name, "error", err)
		exportStatus = &status.ExportStatus{
			Phase:   status.ExportPhaseFailed,
			Message: noPreviousExportMessage,
		}
	}

	save := false
	switch {
	case exportStatus.Phase == "" && exportStatus.LastRunTime == nil:
		slog.Info("No previous export status found, initializing with defaults", "exporter", name)
		exportStatus.Phase = status.ExportPhaseFailed
		exportStatus.Message = noPreviousExportMessage
		save = true
	case exportStatus.Phase == status.ExportPhaseRunning:
		slog.Warn("Previous export was interrupted, resetting to Failed", "exporter", name)
		exportStatus.Phase = status.ExportPhaseFailed
		exportStatus.Message = "Previous export was interrupted"
		save = true
	}
	if exportStatus.SyncSchedule != schedule {
		exportStatus.SyncSchedule = schedule
		save = true
	}

	if save {
		if err := f.statusPersistence.SaveStatus(ctx, name, exportStatus); err != nil {
			slog.Warn("Failed to persist export status", "exporter", name, "error", err)
		}
	}

	if exportStatus.LastRunTime != nil {
		slog.Info("Loaded export status",
			"exporter", name,
			"phase", exportStatus.Phase,
			"last_run", exportStatus.LastRunTime.Format(time.RFC3339),
			"upserted", exportStatus.Upserted)
	} else {
		slog.Info("Loaded export status", "exporter", name, "phase", exportStatus.Phase)
	}

	f.mu.Lock()
	f.cachedStatuses[name] = exportStatus
	f.mu.Unlock()
}
