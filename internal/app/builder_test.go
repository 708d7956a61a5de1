package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/synonym-exporter/internal/config"
	"github.com/stacklok/synonym-exporter/internal/export"
	syncmocks "github.com/stacklok/synonym-exporter/internal/sync/mocks"
)

// createTestConfig creates a minimal valid config for testing
func createTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DataDir: filepath.Join(dir, "data"),
		Backends: []config.BackendConfig{
			{ID: "solr_main", URL: "http://localhost:8983/solr", Core: "products"},
		},
		Source: config.SourceConfig{
			File: &config.FileConfig{Path: filepath.Join(dir, "synonyms.yaml")},
		},
		Exporters: []config.ExporterConfig{
			{
				Name:    "products-en",
				Plugin:  export.PluginSolrAPI,
				Options: "solr_main,english",
				SyncPolicy: &config.SyncPolicyConfig{
					Interval: "30m",
				},
			},
		},
	}
}

func TestWithAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{name: "port only", addr: ":8080"},
		{name: "localhost", addr: "localhost:9090"},
		{name: "ipv4", addr: "127.0.0.1:0"},
		{name: "ipv6", addr: "[::1]:8080"},
		{name: "empty", addr: "", wantErr: true},
		{name: "missing port", addr: "localhost", wantErr: true},
		{name: "empty port", addr: "localhost:", wantErr: true},
		{name: "bad port", addr: ":http-alt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &exporterAppConfig{}
			err := WithAddress(tt.addr)(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.addr, cfg.address)
		})
	}
}

func TestBaseConfig(t *testing.T) {
	t.Parallel()

	_, err := baseConfig()
	assert.ErrorContains(t, err, "config cannot be nil")

	appCfg := createTestConfig(t)
	cfg, err := baseConfig(WithConfig(appCfg))
	require.NoError(t, err)
	assert.Equal(t, defaultHTTPAddress, cfg.address)
	assert.Equal(t, appCfg.DataDir, cfg.dataDir)
	assert.Equal(t, defaultRequestTimeout, cfg.requestTimeout)

	cfg, err = baseConfig(WithConfig(appCfg), WithDataDirectory("/var/lib/synexp"))
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/synexp", cfg.dataDir)

	_, err = baseConfig(WithConfig(appCfg), WithDataDirectory(""))
	assert.Error(t, err)
}

func TestNewExporterApp(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	appCfg := createTestConfig(t)
	app, err := NewExporterApp(context.Background(),
		WithConfig(appCfg),
		WithAddress("127.0.0.1:0"),
		WithSyncManager(syncmocks.NewMockManager(ctrl)),
		WithMeterProvider(noop.NewMeterProvider()),
		WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})),
	)
	require.NoError(t, err)
	t.Cleanup(func() { app.cancelFunc() })

	assert.Same(t, appCfg, app.GetConfig())
	assert.Equal(t, "127.0.0.1:0", app.GetHTTPServer().Addr)
	require.NotNil(t, app.components.Coordinator)
	require.NotNil(t, app.components.ExportService)
	require.NotNil(t, app.components.StateService)

	info, err := os.Stat(appCfg.DataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	for _, path := range []string{"/health", "/metrics"} {
		rr := httptest.NewRecorder()
		app.GetHTTPServer().Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestNewExporterApp_DefaultComponents(t *testing.T) {
	t.Parallel()

	app, err := NewExporterApp(context.Background(), WithConfig(createTestConfig(t)))
	require.NoError(t, err)
	t.Cleanup(func() { app.cancelFunc() })

	// Readiness fails until the coordinator initializes statuses
	rr := httptest.NewRecorder()
	app.GetHTTPServer().Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readiness", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = httptest.NewRecorder()
	app.GetHTTPServer().Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
