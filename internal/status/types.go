package status

import "time"

// ExportPhase represents the current phase of an exporter
type ExportPhase string

const (
	// ExportPhaseRunning means an export is currently in progress
	ExportPhaseRunning ExportPhase = "Running"

	// ExportPhaseComplete means the last export completed successfully
	ExportPhaseComplete ExportPhase = "Complete"

	// ExportPhaseFailed means the last export failed or none has run yet
	ExportPhaseFailed ExportPhase = "Failed"
)

// ExportStatus represents the current state of one exporter
type ExportStatus struct {
	// Phase represents the current export phase
	Phase ExportPhase `json:"phase"`

	// Message provides additional information about the status
	Message string `json:"message,omitempty"`

	// RunID identifies the most recent run
	RunID string `json:"runId,omitempty"`

	// LastAttempt is the timestamp of the last export attempt
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// AttemptCount is the number of attempts since the last success
	AttemptCount int `json:"attemptCount,omitempty"`

	// LastRunTime is the timestamp of the last successful export
	LastRunTime *time.Time `json:"lastRunTime,omitempty"`

	// LastSourceHash is the source hash exported by the last successful run.
	// Used to skip runs when the source is unchanged.
	LastSourceHash string `json:"lastSourceHash,omitempty"`

	// LastAppliedFilterHash is the exporter filter fingerprint of the last
	// successful run. A different fingerprint forces the next run.
	LastAppliedFilterHash string `json:"lastAppliedFilterHash,omitempty"`

	// Counters of the most recent run
	Deleted  int `json:"deleted"`
	Upserted int `json:"upserted"`
	Failed   int `json:"failed"`

	// SyncSchedule is the interval from configuration (e.g., "30m", "1h")
	SyncSchedule string `json:"syncSchedule,omitempty"`
}
