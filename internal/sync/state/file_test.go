package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/synonym-exporter/internal/config"
	"github.com/stacklok/synonym-exporter/internal/status"
	statusmocks "github.com/stacklok/synonym-exporter/internal/status/mocks"
)

func exporterCfg(name string) config.ExporterConfig {
	return config.ExporterConfig{
		Name:       name,
		Plugin:     "solr_api",
		Options:    "solr_main,english",
		SyncPolicy: &config.SyncPolicyConfig{Interval: "30m"},
	}
}

func TestFileStateService_Initialize(t *testing.T) {
	t.Parallel()

	lastRun := time.Now().Add(-time.Hour)

	tests := []struct {
		name       string
		setupMocks func(*statusmocks.MockStatusPersistence)
		wantPhase  status.ExportPhase
		wantMsg    string
	}{
		{
			name: "new exporter starts Failed and is persisted",
			setupMocks: func(m *statusmocks.MockStatusPersistence) {
				m.EXPECT().LoadStatus(gomock.Any(), "products").Return(&status.ExportStatus{}, nil)
				m.EXPECT().SaveStatus(gomock.Any(), "products", gomock.Any()).DoAndReturn(
					func(_ context.Context, _ string, s *status.ExportStatus) error {
						assert.Equal(t, status.ExportPhaseFailed, s.Phase)
						assert.Equal(t, "30m0s", s.SyncSchedule)
						return nil
					})
			},
			wantPhase: status.ExportPhaseFailed,
			wantMsg:   noPreviousExportMessage,
		},
		{
			name: "interrupted run is reset to Failed",
			setupMocks: func(m *statusmocks.MockStatusPersistence) {
				m.EXPECT().LoadStatus(gomock.Any(), "products").Return(&status.ExportStatus{
					Phase:        status.ExportPhaseRunning,
					LastRunTime:  &lastRun,
					SyncSchedule: "30m0s",
				}, nil)
				m.EXPECT().SaveStatus(gomock.Any(), "products", gomock.Any()).Return(nil)
			},
			wantPhase: status.ExportPhaseFailed,
			wantMsg:   "Previous export was interrupted",
		},
		{
			name: "completed status is kept without a write",
			setupMocks: func(m *statusmocks.MockStatusPersistence) {
				m.EXPECT().LoadStatus(gomock.Any(), "products").Return(&status.ExportStatus{
					Phase:        status.ExportPhaseComplete,
					Message:      "done",
					LastRunTime:  &lastRun,
					SyncSchedule: "30m0s",
				}, nil)
			},
			wantPhase: status.ExportPhaseComplete,
			wantMsg:   "done",
		},
		{
			name: "load error falls back to defaults",
			setupMocks: func(m *statusmocks.MockStatusPersistence) {
				m.EXPECT().LoadStatus(gomock.Any(), "products").Return(nil, errors.New("load error"))
				m.EXPECT().SaveStatus(gomock.Any(), "products", gomock.Any()).Return(errors.New("disk full"))
			},
			wantPhase: status.ExportPhaseFailed,
			wantMsg:   noPreviousExportMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockPersistence := statusmocks.NewMockStatusPersistence(ctrl)
			tt.setupMocks(mockPersistence)

			service := NewFileStateService(mockPersistence)
			ctx := context.Background()
			require.NoError(t, service.Initialize(ctx, []config.ExporterConfig{exporterCfg("products")}))

			got, err := service.GetExportStatus(ctx, "products")
			require.NoError(t, err)
			assert.Equal(t, tt.wantPhase, got.Phase)
			assert.Equal(t, tt.wantMsg, got.Message)
		})
	}
}

func TestFileStateService_GetExportStatus_Unknown(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	service := NewFileStateService(statusmocks.NewMockStatusPersistence(ctrl))

	_, err := service.GetExportStatus(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrExporterNotFound)
}

func TestFileStateService_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	service := NewFileStateService(statusmocks.NewMockStatusPersistence(ctrl)).(*fileStateService)
	service.cachedStatuses = map[string]*status.ExportStatus{
		"a": {Phase: status.ExportPhaseComplete, Upserted: 3},
		"b": nil,
	}
	ctx := context.Background()

	all, err := service.ListExportStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	all["a"].Phase = status.ExportPhaseFailed

	one, err := service.GetExportStatus(ctx, "a")
	require.NoError(t, err)
	one.Upserted = 99

	assert.Equal(t, status.ExportPhaseComplete, service.cachedStatuses["a"].Phase)
	assert.Equal(t, 3, service.cachedStatuses["a"].Upserted)
}

func TestFileStateService_UpdateExportStatus(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockPersistence := statusmocks.NewMockStatusPersistence(ctrl)
	service := NewFileStateService(mockPersistence)
	ctx := context.Background()

	mockPersistence.EXPECT().SaveStatus(gomock.Any(), "a", gomock.Any()).Return(nil)
	require.NoError(t, service.UpdateExportStatus(ctx, "a", &status.ExportStatus{Phase: status.ExportPhaseComplete}))

	got, err := service.GetExportStatus(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, status.ExportPhaseComplete, got.Phase)

	mockPersistence.EXPECT().SaveStatus(gomock.Any(), "a", gomock.Any()).Return(errors.New("disk full"))
	require.Error(t, service.UpdateExportStatus(ctx, "a", &status.ExportStatus{Phase: status.ExportPhaseFailed}))

	got, err = service.GetExportStatus(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, status.ExportPhaseComplete, got.Phase, "failed save must not update the cache")
}

func TestFileStateService_UpdateStatusAtomically(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		update      func(*status.ExportStatus) bool
		saveErr     error
		expectSave  bool
		wantChanged bool
		wantErr     bool
		wantPhase   status.ExportPhase
	}{
		{
			name: "applies and persists a change",
			update: func(s *status.ExportStatus) bool {
				s.Phase = status.ExportPhaseRunning
				return true
			},
			expectSave:  true,
			wantChanged: true,
			wantPhase:   status.ExportPhaseRunning,
		},
		{
			name: "no change skips persistence",
			update: func(s *status.ExportStatus) bool {
				return s.Phase != status.ExportPhaseFailed
			},
			wantPhase: status.ExportPhaseFailed,
		},
		{
			name: "save error keeps the previous status",
			update: func(s *status.ExportStatus) bool {
				s.Phase = status.ExportPhaseRunning
				return true
			},
			saveErr:    errors.New("disk full"),
			expectSave: true,
			wantErr:    true,
			wantPhase:  status.ExportPhaseFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockPersistence := statusmocks.NewMockStatusPersistence(ctrl)
			if tt.expectSave {
				mockPersistence.EXPECT().SaveStatus(gomock.Any(), "a", gomock.Any()).Return(tt.saveErr)
			}

			service := NewFileStateService(mockPersistence).(*fileStateService)
			service.cachedStatuses["a"] = &status.ExportStatus{Phase: status.ExportPhaseFailed}

			changed, err := service.UpdateStatusAtomically(context.Background(), "a", tt.update)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.wantPhase, service.cachedStatuses["a"].Phase)
		})
	}
}

func TestFileStateService_UpdateStatusAtomically_Unknown(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	service := NewFileStateService(statusmocks.NewMockStatusPersistence(ctrl))

	_, err := service.UpdateStatusAtomically(context.Background(), "missing", func(*status.ExportStatus) bool { return true })
	assert.ErrorIs(t, err, ErrExporterNotFound)
}

func TestFileStateService_OnlyOneClaimWins(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockPersistence := statusmocks.NewMockStatusPersistence(ctrl)
	mockPersistence.EXPECT().SaveStatus(gomock.Any(), "a", gomock.Any()).Return(nil).Times(1)

	service := NewFileStateService(mockPersistence).(*fileStateService)
	service.cachedStatuses["a"] = &status.ExportStatus{Phase: status.ExportPhaseComplete}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			changed, err := service.UpdateStatusAtomically(context.Background(), "a", func(s *status.ExportStatus) bool {
				if s.Phase == status.ExportPhaseRunning {
					return false
				}
				s.Phase = status.ExportPhaseRunning
				return true
			})
			assert.NoError(t, err)
			if changed {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestFileStateService_WithFilePersistence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	first := NewFileStateService(status.NewFileStatusPersistence(dir))
	require.NoError(t, first.Initialize(ctx, []config.ExporterConfig{exporterCfg("products")}))
	_, err := first.UpdateStatusAtomically(ctx, "products", func(s *status.ExportStatus) bool {
		s.Phase = status.ExportPhaseRunning
		s.RunID = "run-1"
		return true
	})
	require.NoError(t, err)

	// A restart after a crash mid-run sees the interrupted status
	second := NewFileStateService(status.NewFileStatusPersistence(dir))
	require.NoError(t, second.Initialize(ctx, []config.ExporterConfig{exporterCfg("products")}))

	got, err := second.GetExportStatus(ctx, "products")
	require.NoError(t, err)
	assert.Equal(t, status.ExportPhaseFailed, got.Phase)
	assert.Equal(t, "run-1", got.RunID)
}
