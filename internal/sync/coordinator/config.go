package coordinator

import (
	"crypto/sha256"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"regexp"
	"time"

	"github.com/stacklok/synonym-exporter/internal/config"
)

const (
	// maxPollingInterval bounds how long a due export waits for its loop to notice
	maxPollingInterval = 30 * time.Second
	minPollingInterval = 10 * time.Millisecond

	// pollingJitterFraction is the maximum offset applied to a polling interval,
	// as a fraction of it, so exporters started together do not poll in lockstep
	pollingJitterFraction = 0.2

	// lockDirName is the data dir subdirectory holding per-target lock files
	lockDirName = "locks"
)

// pollingInterval returns how often an exporter loop re-evaluates ShouldSync.
// Polling at half the interval keeps scheduled runs from drifting a full interval late.
func pollingInterval(exp *config.ExporterConfig) time.Duration {
	interval := exp.GetSyncInterval() / 2
	if interval > maxPollingInterval {
		return maxPollingInterval
	}
	if interval < minPollingInterval {
		return minPollingInterval
	}
	return interval
}

// withJitter offsets d by a random amount within ±pollingJitterFraction of d
func withJitter(d time.Duration) time.Duration {
	maxOffset := int64(float64(d) * pollingJitterFraction)
	if maxOffset <= 0 {
		return d
	}
	//nolint:gosec // G404: Non-cryptographic randomness is sufficient for polling jitter
	return d + time.Duration(rand.Int64N(2*maxOffset+1)-maxOffset)
}

var unsafeLockChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// targetKey identifies the remote resource an exporter writes to.
// Exporters with unparseable options get a key of their own.
func targetKey(exp *config.ExporterConfig) string {
	opts, err := exp.ExportOptions()
	if err != nil {
		return "exporter/" + exp.Name
	}
	return opts.String()
}

// lockFilePath maps a target key to its lock file under dataDir.
// The digest suffix keeps keys that sanitize to the same name apart.
func lockFilePath(dataDir, target string) string {
	sum := sha256.Sum256([]byte(target))
	name := fmt.Sprintf("%s-%x.lock", unsafeLockChars.ReplaceAllString(target, "_"), sum[:4])
	return filepath.Join(dataDir, lockDirName, name)
}
