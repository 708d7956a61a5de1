package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/stacklok/synonym-exporter/internal/config"
	"github.com/stacklok/synonym-exporter/internal/sources"
	"github.com/stacklok/synonym-exporter/internal/status"
)

// defaultDataChangeDetector compares the source hash with the last exported one
type defaultDataChangeDetector struct {
	sourceFactory sources.RecordSourceFactory
}

// IsDataChanged reports true when no export succeeded yet or the source hash moved
func (d *defaultDataChangeDetector) IsDataChanged(ctx context.Context, exportStatus *status.ExportStatus) (bool, error) {
	var lastHash string
	if exportStatus != nil {
		lastHash = exportStatus.LastSourceHash
	}
	if lastHash == "" {
		return true, nil
	}

	source, release, err := d.sourceFactory.CreateSource(ctx)
	if err != nil {
		return true, fmt.Errorf("failed to create record source: %w", err)
	}
	defer release()

	currentHash, err := source.CurrentHash(ctx)
	if err != nil {
		return true, err
	}
	return currentHash != lastHash, nil
}

// defaultAutomaticSyncChecker implements AutomaticSyncChecker
type defaultAutomaticSyncChecker struct {
	now func() time.Time
}

// IsIntervalSyncNeeded checks the exporter's interval against the last attempt.
// The returned time is when the next export is due and is never in the past.
func (c *defaultAutomaticSyncChecker) IsIntervalSyncNeeded(
	exp *config.ExporterConfig, exportStatus *status.ExportStatus,
) (bool, time.Time, error) {
	interval := exp.GetSyncInterval()
	if exp.SyncPolicy != nil && exp.SyncPolicy.Interval != "" {
		parsed, err := time.ParseDuration(exp.SyncPolicy.Interval)
		if err != nil {
			return false, time.Time{}, fmt.Errorf("invalid sync interval %q: %w", exp.SyncPolicy.Interval, err)
		}
		if parsed > 0 {
			interval = parsed
		}
	}

	now := time.Now()
	if c.now != nil {
		now = c.now()
	}

	if exportStatus == nil || exportStatus.LastAttempt == nil {
		return true, now.Add(interval), nil
	}

	next := exportStatus.LastAttempt.Add(interval)
	if !now.Before(next) {
		return true, now.Add(interval), nil
	}
	return false, next, nil
}
