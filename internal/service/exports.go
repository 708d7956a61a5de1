package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/stacklok/synonym-exporter/internal/config"
	"github.com/stacklok/synonym-exporter/internal/sync/state"
)

type exportService struct {
	config    *config.Config
	statusSvc state.ExportStateService
	trigger   Trigger
}

// NewExportService creates an ExportService over the configured exporters
func NewExportService(cfg *config.Config, statusSvc state.ExportStateService, trigger Trigger) ExportService {
	return &exportService{
		config:    cfg,
		statusSvc: statusSvc,
		trigger:   trigger,
	}
}

func (s *exportService) CheckReadiness(ctx context.Context) error {
	statuses, err := s.statusSvc.ListExportStatuses(ctx)
	if err != nil {
		return fmt.Errorf("failed to list export statuses: %w", err)
	}
	for _, exp := range s.config.Exporters {
		if _, ok := statuses[exp.Name]; !ok {
			return fmt.Errorf("%w: %s", ErrNotReady, exp.Name)
		}
	}
	return nil
}

func (s *exportService) ListExports(ctx context.Context) ([]*ExportInfo, error) {
	statuses, err := s.statusSvc.ListExportStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list export statuses: %w", err)
	}

	exports := make([]*ExportInfo, 0, len(s.config.Exporters))
	for i := range s.config.Exporters {
		exp := &s.config.Exporters[i]
		info := newExportInfo(exp)
		info.Status = statuses[exp.Name]
		exports = append(exports, info)
	}
	sort.Slice(exports, func(i, j int) bool { return exports[i].Name < exports[j].Name })
	return exports, nil
}

func (s *exportService) GetExport(ctx context.Context, name string) (*ExportInfo, error) {
	exp, ok := s.config.Exporter(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExportNotFound, name)
	}

	info := newExportInfo(exp)
	exportStatus, err := s.statusSvc.GetExportStatus(ctx, name)
	switch {
	case err == nil:
		info.Status = exportStatus
	case errors.Is(err, state.ErrExporterNotFound):
		slog.Debug("Export has no status yet", "exporter", name)
	default:
		return nil, fmt.Errorf("failed to get export status: %w", err)
	}
	return info, nil
}

func (s *exportService) TriggerExport(_ context.Context, name string) error {
	if _, ok := s.config.Exporter(name); !ok {
		return fmt.Errorf("%w: %s", ErrExportNotFound, name)
	}
	if err := s.trigger.Trigger(name); err != nil {
		return fmt.Errorf("failed to trigger export %s: %w", name, err)
	}
	slog.Info("Manual export requested", "exporter", name)
	return nil
}

func newExportInfo(exp *config.ExporterConfig) *ExportInfo {
	info := &ExportInfo{
		Name:       exp.Name,
		Plugin:     exp.Plugin,
		Kind:       string(exp.KindFilter()),
		Langcode:   exp.Langcode,
		WordFilter: string(exp.Words()),
		Interval:   exp.GetSyncInterval().String(),
	}
	if opts, err := exp.ExportOptions(); err == nil {
		info.Backend = opts.BackendID
		info.Resource = opts.ResourceName
	}
	return info
}
