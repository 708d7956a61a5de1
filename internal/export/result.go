package export

import (
	"fmt"
	"sync"
	"time"
)

// State is the phase of an export run
type State int

const (
	// StateIdle is a run that has not touched the remote yet
	StateIdle State = iota
	// StateDeleting removes every remote term
	StateDeleting
	// StateUpserting writes every local term
	StateUpserting
	// StateReloading reloads the target core
	StateReloading
	// StateDone is a run whose reload succeeded. Individual terms may still have failed.
	StateDone
	// StateFailed is a run that stopped early or whose reload failed
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:      "Idle",
	StateDeleting:  "Deleting",
	StateUpserting: "Upserting",
	StateReloading: "Reloading",
	StateDone:      "Done",
	StateFailed:    "Failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText renders the state name in JSON summaries
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CanTransition reports whether a run may move from s to next
func (s State) CanTransition(next State) bool {
	switch s {
	case StateIdle:
		return next == StateDeleting || next == StateFailed
	case StateDeleting:
		return next == StateUpserting || next == StateFailed
	case StateUpserting:
		return next == StateReloading || next == StateFailed
	case StateReloading:
		return next == StateDone || next == StateFailed
	default:
		return false
	}
}

// TermFailure records one failed remote call
type TermFailure struct {
	Term       string `json:"term"`
	Operation  string `json:"operation"`
	StatusCode int    `json:"statusCode,omitempty"`
	Message    string `json:"error"`
	Err        error  `json:"-"`
}

// Result summarizes one export run
type Result struct {
	RunID      string        `json:"runId"`
	Exporter   string        `json:"exporter"`
	Resource   string        `json:"resource"`
	State      State         `json:"state"`
	Deleted    int           `json:"deleted"`
	Upserted   int           `json:"upserted"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Invalid    int           `json:"invalidRecords"`
	Failures   []TermFailure `json:"failures,omitempty"`
	Err        error         `json:"-"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`

	mu sync.Mutex
}

// Duration returns how long the run took
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the run reached StateDone
func (r *Result) Succeeded() bool {
	return r.State == StateDone
}

func (r *Result) transition(next State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.State.CanTransition(next) {
		return fmt.Errorf("illegal export state transition %s -> %s", r.State, next)
	}
	r.State = next
	return nil
}

func (r *Result) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.State != StateDone && r.State != StateFailed {
		r.State = StateFailed
	}
	if r.Err == nil {
		r.Err = err
	}
}

func (r *Result) addFailure(f TermFailure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed++
	r.Failures = append(r.Failures, f)
}

func (r *Result) count(field *int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*field++
}

func (r *Result) failureCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Failed
}
