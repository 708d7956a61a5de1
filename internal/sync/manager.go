package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/synonym-exporter/internal/config"
	"github.com/stacklok/synonym-exporter/internal/export"
	"github.com/stacklok/synonym-exporter/internal/sources"
	"github.com/stacklok/synonym-exporter/internal/status"
	"github.com/stacklok/synonym-exporter/internal/telemetry"
)

// Result contains the outcome of an export that reached the remote
type Result struct {
	// Hash is the source hash read before the records were listed
	Hash string
	// Records is the number of records read from the source
	Records int
	// FilterHash is the exporter filter fingerprint the records were selected with
	FilterHash string
	// Export is the summary of the run
	Export *export.Result
}

// retryBaseDelay is the wait after the first failed attempt. Each further
// failed attempt doubles it, up to the exporter's sync interval.
const retryBaseDelay = 30 * time.Second

// Condition types describing which part of an export failed
const (
	// ConditionSourceAvailable indicates whether the record source is readable
	ConditionSourceAvailable = "SourceAvailable"

	// ConditionConfigValid indicates whether the exporter configuration is usable
	ConditionConfigValid = "ConfigValid"

	// ConditionExportSuccessful indicates whether the last export succeeded
	ConditionExportSuccessful = "ExportSuccessful"
)

// Condition reasons
const (
	conditionReasonSourceCreationFailed = "SourceCreationFailed"
	conditionReasonFetchFailed          = "FetchFailed"
	conditionReasonConfigInvalid        = "ConfigurationInvalid"
	conditionReasonRemoteListFailed     = "RemoteListFailed"
	conditionReasonReloadFailed         = "ReloadFailed"
	conditionReasonInterrupted          = "ExportInterrupted"
	conditionReasonExportFailed         = "ExportFailed"
)

// Error is a structured export failure
type Error struct {
	Err             error
	Message         string
	ConditionType   string
	ConditionReason string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Manager decides when exporters run and runs them
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks github.com/stacklok/synonym-exporter/internal/sync Manager
type Manager interface {
	// ShouldSync determines whether the exporter should run now
	ShouldSync(
		ctx context.Context, exp *config.ExporterConfig, exportStatus *status.ExportStatus, manualSyncRequested bool,
	) Reason

	// PerformSync reads the source and runs the exporter once.
	// A run that reached the remote returns its Result even when it also returns an Error.
	PerformSync(ctx context.Context, exp *config.ExporterConfig) (*Result, *Error)
}

// DataChangeDetector detects changes in source data
type DataChangeDetector interface {
	// IsDataChanged compares the current source hash with the last exported one
	IsDataChanged(ctx context.Context, exportStatus *status.ExportStatus) (bool, error)
}

// AutomaticSyncChecker handles interval based scheduling
type AutomaticSyncChecker interface {
	// IsIntervalSyncNeeded returns (syncNeeded, nextSyncTime, error) where nextSyncTime is in the future
	IsIntervalSyncNeeded(exp *config.ExporterConfig, exportStatus *status.ExportStatus) (bool, time.Time, error)
}

// ManagerOption configures the default manager
type ManagerOption func(*defaultSyncManager)

// WithResolver sets how exporters reach their backends
func WithResolver(r export.BackendResolver) ManagerOption {
	return func(m *defaultSyncManager) { m.resolver = r }
}

// WithExportMetrics sets the metrics passed to every exporter
func WithExportMetrics(metrics *telemetry.ExportMetrics) ManagerOption {
	return func(m *defaultSyncManager) { m.metrics = metrics }
}

// WithTracer sets the tracer passed to every exporter
func WithTracer(tracer trace.Tracer) ManagerOption {
	return func(m *defaultSyncManager) { m.tracer = tracer }
}

// WithDataChangeDetector replaces the hash based change detector
func WithDataChangeDetector(d DataChangeDetector) ManagerOption {
	return func(m *defaultSyncManager) { m.dataChangeDetector = d }
}

// WithAutomaticSyncChecker replaces the interval checker
func WithAutomaticSyncChecker(c AutomaticSyncChecker) ManagerOption {
	return func(m *defaultSyncManager) { m.automaticSyncChecker = c }
}

type defaultSyncManager struct {
	sourceFactory        sources.RecordSourceFactory
	resolver             export.BackendResolver
	metrics              *telemetry.ExportMetrics
	tracer               trace.Tracer
	dataChangeDetector   DataChangeDetector
	automaticSyncChecker AutomaticSyncChecker
	now                  func() time.Time
}

// NewDefaultSyncManager creates a manager reading records from sourceFactory
func NewDefaultSyncManager(sourceFactory sources.RecordSourceFactory, opts ...ManagerOption) Manager {
	m := &defaultSyncManager{
		sourceFactory:        sourceFactory,
		dataChangeDetector:   &defaultDataChangeDetector{sourceFactory: sourceFactory},
		automaticSyncChecker: &defaultAutomaticSyncChecker{},
		now:                  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ShouldSync evaluates, in order: a running export, a manual request, a missing
// or failed previous export, a changed exporter filter, and the interval. Source
// hashes are only compared when the exporter has onlyIfChanged set.
func (s *defaultSyncManager) ShouldSync(
	ctx context.Context,
	exp *config.ExporterConfig,
	exportStatus *status.ExportStatus,
	manualSyncRequested bool,
) Reason {
	logger := slog.With("exporter", exp.Name)

	if exportStatus != nil && exportStatus.Phase == status.ExportPhaseRunning {
		return ReasonAlreadyInProgress
	}

	filterChanged := isFilterChanged(exp, exportStatus)

	if manualSyncRequested {
		if !exp.OnlyIfChanged {
			return ReasonManualRequested
		}
		if filterChanged {
			return ReasonManualWithChanges
		}
		changed, err := s.dataChangeDetector.IsDataChanged(ctx, exportStatus)
		if err != nil {
			logger.Warn("Failed to determine if source data changed", "error", err)
			return ReasonErrorCheckingChanges
		}
		if changed {
			return ReasonManualWithChanges
		}
		return ReasonManualNoChanges
	}

	if exportStatus == nil || exportStatus.Phase != status.ExportPhaseComplete {
		if wait := s.retryWait(exp, exportStatus); wait > 0 {
			logger.Debug("Waiting before retrying failed export",
				"attempts", exportStatus.AttemptCount,
				"retry_in", wait.String())
			return ReasonRetryBackoff
		}
		return ReasonExporterNotReady
	}

	if filterChanged {
		logger.Info("Exporter filter changed since the last export")
		return ReasonFilterChanged
	}

	elapsed, next, err := s.automaticSyncChecker.IsIntervalSyncNeeded(exp, exportStatus)
	if err != nil {
		logger.Error("Failed to determine if sync interval elapsed", "error", err)
		return ReasonErrorCheckingSyncNeed
	}
	if !elapsed {
		logger.Debug("Sync interval not elapsed", "next_sync", next.Format(time.RFC3339))
		return ReasonUpToDateWithPolicy
	}
	if !exp.OnlyIfChanged {
		return ReasonIntervalElapsed
	}

	changed, err := s.dataChangeDetector.IsDataChanged(ctx, exportStatus)
	if err != nil {
		logger.Warn("Failed to determine if source data changed", "error", err)
		return ReasonErrorCheckingChanges
	}
	if changed {
		return ReasonSourceDataChanged
	}
	return ReasonUpToDateNoChanges
}

// retryWait returns how long a failed exporter still has to wait before its
// next automatic attempt. It is zero when the exporter never ran or did not fail.
func (s *defaultSyncManager) retryWait(exp *config.ExporterConfig, exportStatus *status.ExportStatus) time.Duration {
	if exportStatus == nil || exportStatus.Phase != status.ExportPhaseFailed ||
		exportStatus.LastAttempt == nil || exportStatus.AttemptCount <= 0 {
		return 0
	}

	limit := exp.GetSyncInterval()
	delay := retryBaseDelay
	for i := 1; i < exportStatus.AttemptCount && delay < limit; i++ {
		delay *= 2
	}
	delay = min(delay, limit)

	return exportStatus.LastAttempt.Add(delay).Sub(s.now())
}

// isFilterChanged compares the exporter's filter fingerprint with the one of the
// last successful export. A status without a fingerprint counts as unchanged.
func isFilterChanged(exp *config.ExporterConfig, exportStatus *status.ExportStatus) bool {
	if exportStatus == nil || exportStatus.LastAppliedFilterHash == "" {
		return false
	}
	return exp.FilterHash() != exportStatus.LastAppliedFilterHash
}

// PerformSync reads the configured source and exports its records
func (s *defaultSyncManager) PerformSync(ctx context.Context, exp *config.ExporterConfig) (*Result, *Error) {
	logger := slog.With("exporter", exp.Name)

	source, release, err := s.sourceFactory.CreateSource(ctx)
	if err != nil {
		logger.Error("Failed to create record source", "error", err)
		return nil, &Error{
			Err:             err,
			Message:         fmt.Sprintf("Failed to create record source: %v", err),
			ConditionType:   ConditionSourceAvailable,
			ConditionReason: conditionReasonSourceCreationFailed,
		}
	}
	defer release()

	// Hash first so a change made while listing shows up on the next check
	hash, err := source.CurrentHash(ctx)
	if err != nil {
		logger.Error("Failed to hash record source", "error", err)
		return nil, &Error{
			Err:             err,
			Message:         fmt.Sprintf("Failed to read record source: %v", err),
			ConditionType:   ConditionSourceAvailable,
			ConditionReason: conditionReasonFetchFailed,
		}
	}

	records, err := source.ListSynonymRecords(ctx, sources.Query{Kind: exp.KindFilter(), Langcode: exp.Langcode, Words: exp.Words()})
	if err != nil {
		logger.Error("Failed to list synonym records", "error", err)
		return nil, &Error{
			Err:             err,
			Message:         fmt.Sprintf("Failed to read record source: %v", err),
			ConditionType:   ConditionSourceAvailable,
			ConditionReason: conditionReasonFetchFailed,
		}
	}
	logger.Info("Read synonym records from source", "records", len(records), "hash", shortHash(hash))

	exporter, err := export.New(exp.Plugin, exp.Options,
		export.WithName(exp.Name),
		export.WithResolver(s.resolver),
		export.WithKindFilter(exp.KindFilter()),
		export.WithConcurrency(exp.GetConcurrency()),
		export.WithStrictRecords(exp.StrictRecords),
		export.WithLogger(logger),
		export.WithMetrics(s.metrics),
		export.WithTracer(s.tracer),
	)
	if err != nil {
		return nil, exportError(err)
	}

	exportResult, err := exporter.Export(ctx, records)
	var result *Result
	if exportResult != nil {
		result = &Result{Hash: hash, Records: len(records), FilterHash: exp.FilterHash(), Export: exportResult}
	}
	if err != nil {
		return result, exportError(err)
	}
	if !exportResult.Succeeded() {
		return result, &Error{
			Err:             exportResult.Err,
			Message:         fmt.Sprintf("Export interrupted: %v", exportResult.Err),
			ConditionType:   ConditionExportSuccessful,
			ConditionReason: conditionReasonInterrupted,
		}
	}
	return result, nil
}

// exportError maps the export error taxonomy onto condition reasons
func exportError(err error) *Error {
	var (
		cfgErr    *export.ConfigError
		listErr   *export.RemoteListError
		reloadErr *export.ReloadError
	)
	switch {
	case errors.As(err, &cfgErr):
		return &Error{
			Err:             err,
			Message:         fmt.Sprintf("Invalid exporter configuration: %v", err),
			ConditionType:   ConditionConfigValid,
			ConditionReason: conditionReasonConfigInvalid,
		}
	case errors.As(err, &listErr):
		return &Error{
			Err:             err,
			Message:         fmt.Sprintf("Failed to list remote terms: %v", err),
			ConditionType:   ConditionExportSuccessful,
			ConditionReason: conditionReasonRemoteListFailed,
		}
	case errors.As(err, &reloadErr):
		return &Error{
			Err:             err,
			Message:         fmt.Sprintf("Core reload failed: %v", err),
			ConditionType:   ConditionExportSuccessful,
			ConditionReason: conditionReasonReloadFailed,
		}
	default:
		return &Error{
			Err:             err,
			Message:         fmt.Sprintf("Export failed: %v", err),
			ConditionType:   ConditionExportSuccessful,
			ConditionReason: conditionReasonExportFailed,
		}
	}
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
