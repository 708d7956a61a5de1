// Package service provides the business logic behind the export API
package service

import (
	"context"
	"errors"

	"github.com/stacklok/synonym-exporter/internal/status"
)

var (
	// ErrExportNotFound is returned when no exporter has the requested name
	ErrExportNotFound = errors.New("export not found")
	// ErrNotReady is returned while export statuses are still being initialized
	ErrNotReady = errors.New("export statuses not initialized")
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go ExportService,Trigger

// ExportService defines the operations exposed over the API
type ExportService interface {
	// CheckReadiness reports whether every configured exporter has a status
	CheckReadiness(ctx context.Context) error

	// ListExports returns all configured exporters with their current status, sorted by name
	ListExports(ctx context.Context) ([]*ExportInfo, error)

	// GetExport returns a single exporter by name
	GetExport(ctx context.Context, name string) (*ExportInfo, error)

	// TriggerExport queues a manual export for the named exporter
	TriggerExport(ctx context.Context, name string) error
}

// Trigger queues manual export runs
type Trigger interface {
	Trigger(exporterName string) error
}

// ExportInfo describes a configured exporter and its last known status
type ExportInfo struct {
	Name       string               `json:"name"`
	Plugin     string               `json:"plugin"`
	Backend    string               `json:"backend"`
	Resource   string               `json:"resource"`
	Kind       string               `json:"kind"`
	Langcode   string               `json:"langcode,omitempty"`
	WordFilter string               `json:"wordFilter"`
	Interval   string               `json:"interval"`
	Status     *status.ExportStatus `json:"status,omitempty"`
}
