package export

import (
	"fmt"

	"github.com/stacklok/synonym-exporter/internal/httpclient"
)

// ConfigError reports an invalid exporter configuration.
// It is always returned before any remote call is made.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid export configuration: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid export configuration: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// RemoteListError reports that the remote term set could not be read.
// Nothing on the remote has been mutated when it is returned.
type RemoteListError struct {
	Resource string
	Err      error
}

func (e *RemoteListError) Error() string {
	return fmt.Sprintf("failed to list remote terms of %s: %v", e.Resource, e.Err)
}

func (e *RemoteListError) Unwrap() error {
	return e.Err
}

// RemoteWriteError reports a failed delete or upsert of one term
type RemoteWriteError struct {
	Operation string
	Resource  string
	Term      string
	Err       error
}

func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("%s of term %q in %s failed: %v", e.Operation, e.Term, e.Resource, e.Err)
}

func (e *RemoteWriteError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status of the failed call, or 0 if there was none
func (e *RemoteWriteError) StatusCode() int {
	return httpclient.StatusCode(e.Err)
}

// ReloadError reports a failed core reload after the terms were written.
// The remote holds the new terms but the search engine has not picked them up.
type ReloadError struct {
	Err error
}

func (e *ReloadError) Error() string {
	return fmt.Sprintf("core reload failed: %v", e.Err)
}

func (e *ReloadError) Unwrap() error {
	return e.Err
}
