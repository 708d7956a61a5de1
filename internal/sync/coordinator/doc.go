// Package coordinator schedules and executes exports in the background.
//
// It sits on top of sync.Manager and handles:
//
//   - One loop per exporter, polling ShouldSync at a fraction of its interval
//   - An initial check on startup
//   - Manual triggers and file-change triggers
//   - Serializing runs that write to the same backend resource, in-process with
//     a mutex per target and across processes with a lock file in the data dir
//   - Status persistence through state.ExportStateService
//   - Graceful shutdown
//
// # Usage Example
//
//	syncManager := sync.NewDefaultSyncManager(sourceFactory, sync.WithResolver(resolver))
//	stateService := state.NewFileStateService(status.NewFileStatusPersistence(dir))
//	coord := coordinator.New(syncManager, stateService, cfg)
//
//	go func() { _ = coord.Start(ctx) }()
//	...
//	_ = coord.Stop()
//
// # Decision Flow
//
//  1. A tick, trigger or startup calls checkExport
//  2. checkExport calls Manager.ShouldSync
//  3. If needed, performExport takes the target locks and marks the status Running
//  4. Manager.PerformSync runs the export
//  5. The final status is written even if the run panics or the context is cancelled
//
// A run whose target is locked elsewhere is skipped with reason
// sync-already-in-progress; the next tick or trigger tries again.
package coordinator
