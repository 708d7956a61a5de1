package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	gosync "sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/stacklok/synonym-exporter/internal/config"
	"github.com/stacklok/synonym-exporter/internal/sources"
	pkgsync "github.com/stacklok/synonym-exporter/internal/sync"
	"github.com/stacklok/synonym-exporter/internal/sync/state"
	"github.com/stacklok/synonym-exporter/internal/telemetry"
)

// ErrUnknownExporter is returned for exporter names missing from the configuration
var ErrUnknownExporter = errors.New("unknown exporter")

// ErrRunInProgress is returned by RunExporter when the target resource is busy
var ErrRunInProgress = errors.New(pkgsync.ReasonAlreadyInProgress.String())

// Coordinator schedules exports and serializes them per target resource
type Coordinator interface {
	// Start initializes export status and runs one loop per exporter.
	// Blocks until ctx is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop stops every exporter loop and waits for running exports to finish
	Stop() error

	// Trigger requests a manual export. It does not wait for the run.
	Trigger(exporterName string) error

	// RunExporter runs one export now, bypassing ShouldSync, and waits for it
	RunExporter(ctx context.Context, exporterName string) (*pkgsync.Result, error)
}

type trigger int

const (
	triggerManual trigger = iota
	triggerFileChange
)

func (t trigger) String() string {
	if t == triggerFileChange {
		return "file-change"
	}
	return "manual"
}

type defaultCoordinator struct {
	manager   pkgsync.Manager
	statusSvc state.ExportStateService
	config    *config.Config
	dataDir   string

	exporters map[string]*config.ExporterConfig
	triggers  map[string]chan trigger
	// targetLocks serializes exporters writing to the same backend resource
	targetLocks map[string]*gosync.Mutex

	metrics *telemetry.ExportMetrics

	mu         gosync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithExportMetrics sets the metrics recording scheduling decisions
func WithExportMetrics(metrics *telemetry.ExportMetrics) Option {
	return func(c *defaultCoordinator) {
		c.metrics = metrics
	}
}

// WithDataDir overrides the directory holding lock files
func WithDataDir(dir string) Option {
	return func(c *defaultCoordinator) {
		c.dataDir = dir
	}
}

// New creates a new coordinator with injected dependencies
func New(
	manager pkgsync.Manager,
	statusSvc state.ExportStateService,
	cfg *config.Config,
	opts ...Option,
) Coordinator {
	c := &defaultCoordinator{
		manager:     manager,
		statusSvc:   statusSvc,
		config:      cfg,
		dataDir:     cfg.GetDataDir(),
		exporters:   make(map[string]*config.ExporterConfig, len(cfg.Exporters)),
		triggers:    make(map[string]chan trigger, len(cfg.Exporters)),
		targetLocks: make(map[string]*gosync.Mutex),
	}

	for i := range cfg.Exporters {
		exp := &cfg.Exporters[i]
		c.exporters[exp.Name] = exp
		c.triggers[exp.Name] = make(chan trigger, 1)
		key := targetKey(exp)
		if _, ok := c.targetLocks[key]; !ok {
			c.targetLocks[key] = &gosync.Mutex{}
		}
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start begins background export coordination for all exporters
func (c *defaultCoordinator) Start(ctx context.Context) error {
	slog.Info("Starting export coordinator", "exporter_count", len(c.config.Exporters))

	if err := c.statusSvc.Initialize(ctx, c.config.Exporters); err != nil {
		return fmt.Errorf("failed to initialize export status: %w", err)
	}

	coordCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.mu.Lock()
	c.cancelFunc = cancel
	c.done = done
	c.mu.Unlock()
	defer func() {
		cancel()
		close(done)
		slog.Info("Export coordinator stopped")
	}()

	var wg gosync.WaitGroup
	for i := range c.config.Exporters {
		exp := &c.config.Exporters[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.exporterLoop(coordCtx, exp)
		}()
	}

	if watcher := c.startFileWatcher(coordCtx); watcher != nil {
		defer func() { _ = watcher.Close() }()
	}

	<-coordCtx.Done()
	wg.Wait()
	return nil
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	cancel, done := c.cancelFunc, c.done
	c.mu.Unlock()

	if cancel != nil {
		slog.Info("Stopping export coordinator")
		cancel()
		<-done
	}
	return nil
}

// Trigger queues a manual export. A trigger already queued absorbs the new one.
func (c *defaultCoordinator) Trigger(exporterName string) error {
	return c.enqueue(exporterName, triggerManual)
}

func (c *defaultCoordinator) enqueue(exporterName string, t trigger) error {
	ch, ok := c.triggers[exporterName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownExporter, exporterName)
	}
	select {
	case ch <- t:
	default:
	}
	return nil
}

// RunExporter runs one forced export and returns its result
func (c *defaultCoordinator) RunExporter(ctx context.Context, exporterName string) (*pkgsync.Result, error) {
	exp, ok := c.exporters[exporterName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, exporterName)
	}

	if _, err := c.statusSvc.GetExportStatus(ctx, exporterName); errors.Is(err, state.ErrExporterNotFound) {
		if err := c.statusSvc.Initialize(ctx, []config.ExporterConfig{*exp}); err != nil {
			return nil, fmt.Errorf("failed to initialize export status: %w", err)
		}
	}

	result, syncErr, ran := c.performExport(ctx, exp)
	if !ran {
		return nil, ErrRunInProgress
	}
	if syncErr != nil {
		return result, syncErr
	}
	return result, nil
}

// exporterLoop checks the exporter once at startup, then on every tick or trigger
func (c *defaultCoordinator) exporterLoop(ctx context.Context, exp *config.ExporterConfig) {
	base := pollingInterval(exp)
	interval := withJitter(base)
	slog.Info("Starting exporter loop",
		"exporter", exp.Name,
		"sync_interval", exp.GetSyncInterval().String(),
		"base_polling_interval", base.String(),
		"polling_interval", interval.String())

	c.checkExport(ctx, exp, false, "startup")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkExport(ctx, exp, false, "scheduled")
		case t := <-c.triggers[exp.Name]:
			c.checkExport(ctx, exp, true, t.String())
		}
	}
}

// startFileWatcher triggers every exporter when the source file changes
func (c *defaultCoordinator) startFileWatcher(ctx context.Context) *sources.FileWatcher {
	src := c.config.Source.File
	if src == nil || !src.Watch {
		return nil
	}

	watcher, err := sources.NewFileWatcher(src.Path, sources.DefaultWatchDebounce)
	if err != nil {
		slog.Warn("File watching disabled", "path", src.Path, "error", err)
		return nil
	}

	slog.Info("Watching synonym file for changes", "path", src.Path)
	go watcher.Run(ctx, func() {
		for name := range c.triggers {
			_ = c.enqueue(name, triggerFileChange)
		}
	})
	return watcher
}

// ensureLockDir creates the directory holding lock files
func (c *defaultCoordinator) ensureLockDir() error {
	return os.MkdirAll(filepath.Join(c.dataDir, lockDirName), 0750)
}

// acquireTarget takes the in-process and cross-process locks for exp's target.
// The returned release func is nil when either lock is held elsewhere.
func (c *defaultCoordinator) acquireTarget(exp *config.ExporterConfig) (func(), error) {
	key := targetKey(exp)
	mu := c.targetLocks[key]
	if mu == nil {
		return nil, fmt.Errorf("no lock registered for target %s", key)
	}
	if !mu.TryLock() {
		return nil, nil
	}

	if err := c.ensureLockDir(); err != nil {
		mu.Unlock()
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	fileLock := flock.New(lockFilePath(c.dataDir, key))
	locked, err := fileLock.TryLock()
	if err != nil {
		mu.Unlock()
		return nil, fmt.Errorf("failed to lock %s: %w", fileLock.Path(), err)
	}
	if !locked {
		mu.Unlock()
		return nil, nil
	}

	return func() {
		if err := fileLock.Unlock(); err != nil {
			slog.Warn("Failed to release target lock", "target", key, "error", err)
		}
		mu.Unlock()
	}, nil
}
