package sources

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce coalesces the burst of events an editor save produces
const DefaultWatchDebounce = 500 * time.Millisecond

// FileWatcher reports changes to a single file.
// The parent directory is watched so atomic replace-by-rename saves are seen.
type FileWatcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// NewFileWatcher starts watching path. Call Close when done.
func NewFileWatcher(path string, debounce time.Duration) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &FileWatcher{path: abs, debounce: debounce, watcher: w}, nil
}

// Run calls onChange once per burst of changes until ctx is done or the watcher is closed
func (w *FileWatcher) Run(ctx context.Context, onChange func()) {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	relevant := fsnotify.Write | fsnotify.Create | fsnotify.Rename | fsnotify.Remove
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !event.Op.Has(relevant) {
				continue
			}
			slog.Debug("Synonym file changed", "path", w.path, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", "path", w.path, "error", err)
		case <-fire:
			fire = nil
			onChange()
		}
	}
}

// Close stops watching
func (w *FileWatcher) Close() error {
	return w.watcher.Close()
}
