// Package sync decides when exporters run and runs them.
//
// # Core Interfaces
//
//   - Manager: decides whether an exporter should run and performs the run
//   - DataChangeDetector: compares the source hash with the last exported one
//   - AutomaticSyncChecker: evaluates the per-exporter interval
//
// The sync/coordinator subpackage schedules runs, serializes them per target
// resource and persists their status.
//
// # Sync Reasons
//
// Manager.ShouldSync returns a Reason. Reason.ShouldSync reports whether the
// export should run and Reason.String returns the code stored in status messages.
//
// Reasons that run an export:
//   - ReasonExporterNotReady: first run or recovery from a failed run
//   - ReasonSourceDataChanged: interval elapsed and the source hash changed
//   - ReasonFilterChanged: kind, langcode, word filter or target changed since
//     the last successful export
//   - ReasonIntervalElapsed: interval elapsed and change detection is off
//   - ReasonErrorCheckingChanges: the hash could not be read, run anyway
//   - ReasonManualRequested, ReasonManualWithChanges: manual trigger
//
// Reasons that skip:
//   - ReasonAlreadyInProgress: an export is running
//   - ReasonManualNoChanges: manual trigger but the source is unchanged
//   - ReasonErrorCheckingSyncNeed: the interval could not be evaluated
//   - ReasonUpToDateWithPolicy: the interval has not elapsed
//   - ReasonUpToDateNoChanges: interval elapsed but the source is unchanged
//   - ReasonRetryBackoff: the last export failed and its retry delay is running;
//     the delay starts at 30s and doubles per failed attempt up to the interval
//
// # Errors
//
// PerformSync returns an *Error carrying a condition type and reason so
// callers can report which stage failed without inspecting error chains.
package sync
