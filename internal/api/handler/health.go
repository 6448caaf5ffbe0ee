package handler

import (
	"context"
	"net/http"

	"github.com/nexusdb/nexusdb/internal/api/middleware"
	"github.com/nexusdb/nexusdb/internal/api/response"
)

// DBPinger checks connectivity to the metadata store.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// RuntimePinger checks connectivity to the container runtime.
type RuntimePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	db      DBPinger
	runtime RuntimePinger
	version string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db DBPinger, rt RuntimePinger, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		runtime: rt,
		version: version,
	}
}

type healthData struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database bool   `json:"database"`
	Runtime  bool   `json:"runtime"`
}

// ServeHTTP handles the health check request.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	data := healthData{
		Status:   "healthy",
		Version:  h.version,
		Database: h.db.Ping(r.Context()) == nil,
		Runtime:  h.runtime.Ping(r.Context()) == nil,
	}
	if !data.Database || !data.Runtime {
		data.Status = "degraded"
	}

	response.Success(w, http.StatusOK, data, requestID)
}
