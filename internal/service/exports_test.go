package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/synonym-exporter/internal/config"
	"github.com/stacklok/synonym-exporter/internal/service"
	"github.com/stacklok/synonym-exporter/internal/service/mocks"
	"github.com/stacklok/synonym-exporter/internal/status"
	"github.com/stacklok/synonym-exporter/internal/sync/state"
	statemocks "github.com/stacklok/synonym-exporter/internal/sync/state/mocks"
)

func testConfig() *config.Config {
	return &config.Config{
		Exporters: []config.ExporterConfig{
			{
				Name:       "products-en",
				Plugin:     "solr_api",
				Options:    "solr_main,english",
				Kind:       "synonym",
				Langcode:   "en",
				WordFilter: "nospace",
			},
			{
				Name:       "catalog",
				Plugin:     "solr_api",
				Options:    "solr_main,catalog",
				SyncPolicy: &config.SyncPolicyConfig{Interval: "15m"},
			},
		},
	}
}

func TestExportService_CheckReadiness(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		statuses map[string]*status.ExportStatus
		listErr  error
		wantErr  error
	}{
		{
			name: "all exporters initialized",
			statuses: map[string]*status.ExportStatus{
				"products-en": {Phase: status.ExportPhaseComplete},
				"catalog":     {Phase: status.ExportPhaseFailed},
			},
		},
		{
			name: "missing status",
			statuses: map[string]*status.ExportStatus{
				"products-en": {Phase: status.ExportPhaseComplete},
			},
			wantErr: service.ErrNotReady,
		},
		{
			name:    "list error",
			listErr: errors.New("disk error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			statusSvc := statemocks.NewMockExportStateService(ctrl)
			statusSvc.EXPECT().ListExportStatuses(gomock.Any()).Return(tt.statuses, tt.listErr)

			svc := service.NewExportService(testConfig(), statusSvc, mocks.NewMockTrigger(ctrl))
			err := svc.CheckReadiness(context.Background())

			switch {
			case tt.listErr != nil:
				assert.ErrorIs(t, err, tt.listErr)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), "catalog")
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestExportService_ListExports(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	statusSvc := statemocks.NewMockExportStateService(ctrl)
	statusSvc.EXPECT().ListExportStatuses(gomock.Any()).Return(map[string]*status.ExportStatus{
		"products-en": {Phase: status.ExportPhaseComplete, Upserted: 12},
	}, nil)

	svc := service.NewExportService(testConfig(), statusSvc, mocks.NewMockTrigger(ctrl))
	exports, err := svc.ListExports(context.Background())
	require.NoError(t, err)
	require.Len(t, exports, 2)

	assert.Equal(t, "catalog", exports[0].Name)
	assert.Equal(t, "all", exports[0].Kind)
	assert.Equal(t, "none", exports[0].WordFilter)
	assert.Equal(t, "15m0s", exports[0].Interval)
	assert.Nil(t, exports[0].Status)

	assert.Equal(t, "products-en", exports[1].Name)
	assert.Equal(t, "solr_main", exports[1].Backend)
	assert.Equal(t, "english", exports[1].Resource)
	assert.Equal(t, "synonym", exports[1].Kind)
	assert.Equal(t, "en", exports[1].Langcode)
	assert.Equal(t, "nospace", exports[1].WordFilter)
	assert.Equal(t, "1h0m0s", exports[1].Interval)
	require.NotNil(t, exports[1].Status)
	assert.Equal(t, 12, exports[1].Status.Upserted)
}

func TestExportService_GetExport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		exporter   string
		setupMock  func(*statemocks.MockExportStateService)
		wantErr    error
		wantStatus bool
	}{
		{
			name:     "found with status",
			exporter: "products-en",
			setupMock: func(m *statemocks.MockExportStateService) {
				m.EXPECT().GetExportStatus(gomock.Any(), "products-en").
					Return(&status.ExportStatus{Phase: status.ExportPhaseComplete}, nil)
			},
			wantStatus: true,
		},
		{
			name:     "found without status",
			exporter: "catalog",
			setupMock: func(m *statemocks.MockExportStateService) {
				m.EXPECT().GetExportStatus(gomock.Any(), "catalog").
					Return(nil, state.ErrExporterNotFound)
			},
		},
		{
			name:      "unknown exporter",
			exporter:  "missing",
			setupMock: func(*statemocks.MockExportStateService) {},
			wantErr:   service.ErrExportNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			statusSvc := statemocks.NewMockExportStateService(ctrl)
			tt.setupMock(statusSvc)

			svc := service.NewExportService(testConfig(), statusSvc, mocks.NewMockTrigger(ctrl))
			info, err := svc.GetExport(context.Background(), tt.exporter)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.exporter, info.Name)
			assert.Equal(t, tt.wantStatus, info.Status != nil)
		})
	}
}

func TestExportService_TriggerExport(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	trigger := mocks.NewMockTrigger(ctrl)
	svc := service.NewExportService(testConfig(), statemocks.NewMockExportStateService(ctrl), trigger)
	ctx := context.Background()

	trigger.EXPECT().Trigger("catalog").Return(nil)
	require.NoError(t, svc.TriggerExport(ctx, "catalog"))

	trigger.EXPECT().Trigger("products-en").Return(errors.New("stopped"))
	assert.ErrorContains(t, svc.TriggerExport(ctx, "products-en"), "stopped")

	assert.ErrorIs(t, svc.TriggerExport(ctx, "missing"), service.ErrExportNotFound)
}
