// Package status provides export status tracking and persistence.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

//go:generate mockgen -destination=mocks/mock_status_persistence.go -package=mocks -source=persistence.go StatusPersistence

const (
	// StatusFileName is the name of the status file
	StatusFileName = "status.json"
)

// StatusPersistence defines the interface for export status persistence
//
//nolint:revive // This name is fine
type StatusPersistence interface {
	// SaveStatus saves the status of one exporter
	SaveStatus(ctx context.Context, exporterName string, status *ExportStatus) error

	// LoadStatus loads the status of one exporter.
	// Returns an empty ExportStatus if none was saved yet (first run).
	LoadStatus(ctx context.Context, exporterName string) (*ExportStatus, error)

	// LoadAllStatus loads the status of every exporter found in storage
	LoadAllStatus(ctx context.Context) (map[string]*ExportStatus, error)
}

// fileStatusPersistence stores one <basePath>/<exporter>/status.json per exporter
type fileStatusPersistence struct {
	basePath string
}

// NewFileStatusPersistence creates a new file-based status persistence rooted at basePath
func NewFileStatusPersistence(basePath string) StatusPersistence {
	return &fileStatusPersistence{
		basePath: basePath,
	}
}

func (f *fileStatusPersistence) statusPath(exporterName string) string {
	return filepath.Join(f.basePath, exporterName, StatusFileName)
}

// SaveStatus writes the status to a temp file and renames it over the previous one
func (f *fileStatusPersistence) SaveStatus(_ context.Context, exporterName string, status *ExportStatus) error {
	filePath := f.statusPath(exporterName)
	if err := os.MkdirAll(filepath.Dir(filePath), 0750); err != nil {
		return fmt.Errorf("failed to create status directory for exporter '%s': %w", exporterName, err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status for exporter '%s': %w", exporterName, err)
	}

	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary status file for exporter '%s': %w", exporterName, err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename status file for exporter '%s': %w", exporterName, err)
	}

	return nil
}

// LoadStatus reads the status file of one exporter
func (f *fileStatusPersistence) LoadStatus(_ context.Context, exporterName string) (*ExportStatus, error) {
	// #nosec G304 -- exporter names are validated by the config loader
	data, err := os.ReadFile(f.statusPath(exporterName))
	if errors.Is(err, fs.ErrNotExist) {
		return &ExportStatus{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read status file for exporter '%s': %w", exporterName, err)
	}

	var status ExportStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status for exporter '%s': %w", exporterName, err)
	}
	return &status, nil
}

// LoadAllStatus loads the status of every exporter directory.
// Unreadable statuses are logged and skipped.
func (f *fileStatusPersistence) LoadAllStatus(ctx context.Context) (map[string]*ExportStatus, error) {
	result := make(map[string]*ExportStatus)

	entries, err := os.ReadDir(f.basePath)
	if errors.Is(err, fs.ErrNotExist) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read status directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		exporterName := entry.Name()
		status, err := f.LoadStatus(ctx, exporterName)
		if err != nil {
			slog.Warn("Skipping unreadable export status", "exporter", exporterName, "error", err)
			continue
		}
		result[exporterName] = status
	}

	return result, nil
}
