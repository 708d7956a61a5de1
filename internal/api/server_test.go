package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/synonym-exporter/internal/api"
	"github.com/stacklok/synonym-exporter/internal/service"
	"github.com/stacklok/synonym-exporter/internal/service/mocks"
)

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	// Health check doesn't call the service
	server := api.NewServer(mocks.NewMockExportService(ctrl))

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var response map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
}

func TestReadinessEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		readinessErr   error
		expectedStatus int
		expectedKey    string
	}{
		{
			name:           "service ready",
			expectedStatus: http.StatusOK,
			expectedKey:    "status",
		},
		{
			name:           "service not ready",
			readinessErr:   fmt.Errorf("%w: products-en", service.ErrNotReady),
			expectedStatus: http.StatusServiceUnavailable,
			expectedKey:    "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			mockSvc := mocks.NewMockExportService(ctrl)
			mockSvc.EXPECT().CheckReadiness(gomock.Any()).Return(tt.readinessErr)

			rr := httptest.NewRecorder()
			api.NewServer(mockSvc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readiness", nil))

			assert.Equal(t, tt.expectedStatus, rr.Code)
			var response map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
			assert.Contains(t, response, tt.expectedKey)
		})
	}
}

func TestVersionEndpoint(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	server := api.NewServer(mocks.NewMockExportService(ctrl))

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/version", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	for _, key := range []string{"version", "commit", "build_date", "go_version", "platform"} {
		assert.Contains(t, response, key)
	}
}

func TestExportsMountedUnderV0(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockExportService(ctrl)
	mockSvc.EXPECT().ListExports(gomock.Any()).Return([]*service.ExportInfo{{Name: "catalog"}}, nil)

	rr := httptest.NewRecorder()
	api.NewServer(mockSvc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v0/exports", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"catalog"`)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	mockSvc := mocks.NewMockExportService(ctrl)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("synexp_export_checks_total 1\n"))
	})

	rr := httptest.NewRecorder()
	api.NewServer(mockSvc, api.WithMetricsHandler(metrics)).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "synexp_export_checks_total")

	rr = httptest.NewRecorder()
	api.NewServer(mockSvc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMiddlewaresApplied(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	var called bool
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			next.ServeHTTP(w, r)
		})
	}

	server := api.NewServer(mocks.NewMockExportService(ctrl), api.WithMiddlewares(mw, api.LoggingMiddleware))
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rr.Code)
}
