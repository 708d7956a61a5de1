// Package v0 provides the REST API handlers for export status and control.
package v0

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/synonym-exporter/internal/api/common"
	"github.com/stacklok/synonym-exporter/internal/service"
	"github.com/stacklok/synonym-exporter/internal/versions"
)

// ListExportsResponse is the body of GET /v0/exports
type ListExportsResponse struct {
	Exports []*service.ExportInfo `json:"exports"`
	Count   int                   `json:"count"`
}

// TriggerResponse is the body of an accepted manual export
type TriggerResponse struct {
	Exporter string `json:"exporter"`
	Status   string `json:"status"`
}

// Routes defines the export routes with dependency injection
type Routes struct {
	service service.ExportService
}

// NewRoutes creates a new Routes instance with the provided service
func NewRoutes(svc service.ExportService) *Routes {
	return &Routes{
		service: svc,
	}
}

// Router creates a new router for the export API
func Router(svc service.ExportService) http.Handler {
	routes := NewRoutes(svc)

	r := chi.NewRouter()
	r.Get("/exports", routes.listExports)
	r.Get("/exports/{name}", routes.getExport)
	r.Post("/exports/{name}/run", routes.runExport)

	return r
}

// listExports handles GET /v0/exports
func (rr *Routes) listExports(w http.ResponseWriter, r *http.Request) {
	exports, err := rr.service.ListExports(r.Context())
	if err != nil {
		slog.Error("Failed to list exports", "error", err)
		common.WriteErrorResponse(w, "Failed to list exports", http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, ListExportsResponse{Exports: exports, Count: len(exports)}, http.StatusOK)
}

// getExport handles GET /v0/exports/{name}
func (rr *Routes) getExport(w http.ResponseWriter, r *http.Request) {
	name, err := common.GetAndValidateURLParam(r, "name")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	info, err := rr.service.GetExport(r.Context(), name)
	if err != nil {
		rr.writeServiceError(w, name, err)
		return
	}

	common.WriteJSONResponse(w, info, http.StatusOK)
}

// runExport handles POST /v0/exports/{name}/run
func (rr *Routes) runExport(w http.ResponseWriter, r *http.Request) {
	name, err := common.GetAndValidateURLParam(r, "name")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := rr.service.TriggerExport(r.Context(), name); err != nil {
		rr.writeServiceError(w, name, err)
		return
	}

	common.WriteJSONResponse(w, TriggerResponse{Exporter: name, Status: "queued"}, http.StatusAccepted)
}

func (*Routes) writeServiceError(w http.ResponseWriter, name string, err error) {
	if errors.Is(err, service.ErrExportNotFound) {
		common.WriteErrorResponse(w, "Export not found: "+name, http.StatusNotFound)
		return
	}
	slog.Error("Export request failed", "exporter", name, "error", err)
	common.WriteErrorResponse(w, "Internal server error", http.StatusInternalServerError)
}

// HealthRouter creates a router for health check endpoints
func HealthRouter(svc service.ExportService) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(svc))
	r.Get("/version", versionHandler)

	return r
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, map[string]string{"status": "healthy"}, http.StatusOK)
}

// readinessHandler reports ready once every exporter has a status
func readinessHandler(svc service.ExportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CheckReadiness(r.Context()); err != nil {
			common.WriteErrorResponse(w, "ExportService not ready: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		common.WriteJSONResponse(w, map[string]string{"status": "ready"}, http.StatusOK)
	}
}

// versionHandler handles version information requests
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}
