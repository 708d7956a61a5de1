package sync

// Reason is the outcome of Manager.ShouldSync. It encodes both whether an
// export should run and why.
type Reason int

const (
	// ReasonAlreadyInProgress means an export of the exporter is running
	ReasonAlreadyInProgress Reason = iota
	// ReasonExporterNotReady means there is no successful export yet or the last one failed
	ReasonExporterNotReady
	// ReasonSourceDataChanged means the source hash differs from the last export
	ReasonSourceDataChanged
	// ReasonFilterChanged means the exporter's kind, langcode, word filter or
	// target differ from the ones of the last successful export
	ReasonFilterChanged
	// ReasonIntervalElapsed means the sync interval elapsed and change detection is off
	ReasonIntervalElapsed
	// ReasonErrorCheckingChanges means the source hash could not be read; the export runs anyway
	ReasonErrorCheckingChanges
	// ReasonManualRequested means a manual run was requested and change detection is off
	ReasonManualRequested
	// ReasonManualWithChanges means a manual run was requested and the source changed
	ReasonManualWithChanges
	// ReasonManualNoChanges means a manual run was requested but the source is unchanged
	ReasonManualNoChanges
	// ReasonErrorCheckingSyncNeed means the sync interval could not be evaluated
	ReasonErrorCheckingSyncNeed
	// ReasonUpToDateWithPolicy means the interval has not elapsed yet
	ReasonUpToDateWithPolicy
	// ReasonUpToDateNoChanges means the interval elapsed but the source is unchanged
	ReasonUpToDateNoChanges
	// ReasonRetryBackoff means the last export failed and its retry delay has not passed
	ReasonRetryBackoff
)

var reasonNames = map[Reason]string{
	ReasonAlreadyInProgress:     "sync-already-in-progress",
	ReasonExporterNotReady:      "exporter-not-ready",
	ReasonSourceDataChanged:     "source-data-changed",
	ReasonFilterChanged:         "filter-changed",
	ReasonIntervalElapsed:       "sync-interval-elapsed",
	ReasonErrorCheckingChanges:  "error-checking-data-changes",
	ReasonManualRequested:       "manual-sync-requested",
	ReasonManualWithChanges:     "manual-sync-with-data-changes",
	ReasonManualNoChanges:       "manual-sync-no-data-changes",
	ReasonErrorCheckingSyncNeed: "error-checking-sync-need",
	ReasonUpToDateWithPolicy:    "up-to-date-with-policy",
	ReasonUpToDateNoChanges:     "up-to-date-no-data-changes",
	ReasonRetryBackoff:          "waiting-for-retry-backoff",
}

// String returns the reason code logged and stored in status messages
func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return "unknown"
}

// ShouldSync reports whether the reason calls for an export
func (r Reason) ShouldSync() bool {
	switch r {
	case ReasonExporterNotReady,
		ReasonSourceDataChanged,
		ReasonFilterChanged,
		ReasonIntervalElapsed,
		ReasonErrorCheckingChanges,
		ReasonManualRequested,
		ReasonManualWithChanges:
		return true
	default:
		return false
	}
}

// IsManual reports whether the reason came from a manual trigger
func (r Reason) IsManual() bool {
	return r == ReasonManualRequested || r == ReasonManualWithChanges || r == ReasonManualNoChanges
}
