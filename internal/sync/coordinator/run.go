package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stacklok/synonym-exporter/internal/config"
	"github.com/stacklok/synonym-exporter/internal/status"
	pkgsync "github.com/stacklok/synonym-exporter/internal/sync"
)

// checkExport asks the manager whether exp should run and runs it if so
func (c *defaultCoordinator) checkExport(ctx context.Context, exp *config.ExporterConfig, manual bool, source string) {
	name := exp.Name

	exportStatus, err := c.statusSvc.GetExportStatus(ctx, name)
	if err != nil {
		slog.Error("Failed to read export status", "exporter", name, "error", err)
		return
	}

	reason := c.manager.ShouldSync(ctx, exp, exportStatus, manual)
	logLevel := slog.LevelDebug
	if reason.ShouldSync() || manual {
		logLevel = slog.LevelInfo
	}
	slog.Log(ctx, logLevel, "Export check",
		"exporter", name,
		"trigger", source,
		"should_sync", reason.ShouldSync(),
		"reason", reason.String())

	if !reason.ShouldSync() {
		c.metrics.RecordCheck(ctx, name, reason.String(), false)
		if manual {
			c.recordSkip(ctx, exp, reason.String())
		}
		return
	}

	if _, _, ran := c.performExport(ctx, exp); !ran {
		c.metrics.RecordCheck(ctx, name, pkgsync.ReasonAlreadyInProgress.String(), false)
		return
	}
	c.metrics.RecordCheck(ctx, name, reason.String(), true)
}

// performExport runs exp while holding its target locks and keeps the status
// current. ran is false when the target was busy and nothing happened.
func (c *defaultCoordinator) performExport(
	ctx context.Context, exp *config.ExporterConfig,
) (result *pkgsync.Result, syncErr *pkgsync.Error, ran bool) {
	name := exp.Name

	release, err := c.acquireTarget(exp)
	if err != nil {
		slog.Error("Failed to lock export target", "exporter", name, "error", err)
		return nil, &pkgsync.Error{Err: err, Message: err.Error()}, true
	}
	if release == nil {
		slog.Info("Export skipped, target is busy",
			"exporter", name,
			"target", targetKey(exp),
			"reason", pkgsync.ReasonAlreadyInProgress.String())
		return nil, nil, false
	}
	defer release()

	var attempt int
	claimed, err := c.statusSvc.UpdateStatusAtomically(ctx, name, func(s *status.ExportStatus) bool {
		if s.Phase == status.ExportPhaseRunning {
			return false
		}
		now := time.Now()
		s.Phase = status.ExportPhaseRunning
		s.Message = "Export in progress"
		s.LastAttempt = &now
		s.AttemptCount++
		attempt = s.AttemptCount
		return true
	})
	if err != nil {
		slog.Error("Failed to mark export as running", "exporter", name, "error", err)
		return nil, &pkgsync.Error{Err: err, Message: err.Error()}, true
	}
	if !claimed {
		return nil, nil, false
	}

	// Whatever happens below, the Running status must not outlive this call
	finalStatus := func(s *status.ExportStatus) bool {
		s.Phase = status.ExportPhaseFailed
		s.Message = fmt.Sprintf("Unexpected failure while exporting %s", name)
		return true
	}
	defer func() {
		if _, err := c.statusSvc.UpdateStatusAtomically(context.WithoutCancel(ctx), name, finalStatus); err != nil {
			slog.Error("Failed to update export status", "exporter", name, "error", err)
		}
	}()

	slog.Info("Starting export", "exporter", name, "attempt", attempt)
	result, syncErr = c.manager.PerformSync(ctx, exp)
	finalStatus = completedStatus(result, syncErr)

	if syncErr != nil {
		slog.Error("Export failed",
			"exporter", name,
			"condition", syncErr.ConditionType,
			"reason", syncErr.ConditionReason,
			"error", syncErr.Message)
	} else {
		slog.Info("Export completed",
			"exporter", name,
			"run_id", result.Export.RunID,
			"deleted", result.Export.Deleted,
			"upserted", result.Export.Upserted,
			"failed", result.Export.Failed,
			"records", result.Records)
	}
	return result, syncErr, true
}

// completedStatus returns the status update for a finished run
func completedStatus(result *pkgsync.Result, syncErr *pkgsync.Error) func(*status.ExportStatus) bool {
	return func(s *status.ExportStatus) bool {
		if result != nil && result.Export != nil {
			s.RunID = result.Export.RunID
			s.Deleted = result.Export.Deleted
			s.Upserted = result.Export.Upserted
			s.Failed = result.Export.Failed
		}

		if syncErr != nil {
			s.Phase = status.ExportPhaseFailed
			s.Message = syncErr.Message
			return true
		}

		now := time.Now()
		s.Phase = status.ExportPhaseComplete
		s.LastRunTime = &now
		s.AttemptCount = 0
		s.LastAppliedFilterHash = result.FilterHash
		if result.Export.Failed > 0 {
			// Keep the previous hash so the next change check exports again
			s.Message = fmt.Sprintf("Export completed with %d failed terms", result.Export.Failed)
		} else {
			s.Message = "Export completed successfully"
			s.LastSourceHash = result.Hash
		}
		return true
	}
}

// recordSkip notes a skipped manual run in the status message
func (c *defaultCoordinator) recordSkip(ctx context.Context, exp *config.ExporterConfig, reason string) {
	_, err := c.statusSvc.UpdateStatusAtomically(ctx, exp.Name, func(s *status.ExportStatus) bool {
		if s.Phase != status.ExportPhaseComplete {
			return false
		}
		s.Message = fmt.Sprintf("Export skipped: %s", reason)
		return true
	})
	if err != nil {
		slog.Warn("Failed to record skipped export", "exporter", exp.Name, "error", err)
	}
}
