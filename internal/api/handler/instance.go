package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nexusdb/nexusdb/internal/api/middleware"
	"github.com/nexusdb/nexusdb/internal/api/response"
	"github.com/nexusdb/nexusdb/internal/api/validation"
	"github.com/nexusdb/nexusdb/internal/instance"
	"github.com/nexusdb/nexusdb/internal/orchestrator"
	"github.com/nexusdb/nexusdb/internal/provider"
)

// InstanceService is the orchestrator surface the handler depends on.
type InstanceService interface {
	CreateInstance(ctx context.Context, req orchestrator.CreateRequest) (*instance.Instance, error)
	StartInstance(ctx context.Context, ownerUserID int64) (*instance.Instance, error)
	StopInstance(ctx context.Context, ownerUserID int64) (*instance.Instance, error)
	DeleteInstance(ctx context.Context, ownerUserID int64) error
	GetInstance(ctx context.Context, ownerUserID int64) (*instance.Instance, error)
	ListInstances(ctx context.Context) ([]instance.Instance, error)
	ExecuteQuery(ctx context.Context, ownerUserID int64, statement string) *provider.QueryResult
}

// createInstanceRequest is the request body for POST /instances.
type createInstanceRequest struct {
	Name        string `json:"name"`
	Engine      string `json:"engine"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	OwnerUserID int64  `json:"ownerUserId"`
}

// queryRequest is the request body for the query endpoints.
type queryRequest struct {
	Statement string `json:"statement"`
}

// instanceResponse is the API representation of an instance record. The
// credential never appears here, not even encrypted.
type instanceResponse struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Engine        string `json:"engine"`
	Username      string `json:"username"`
	OwnerUserID   int64  `json:"ownerUserId"`
	ContainerName string `json:"containerName"`
	HostPort      int    `json:"hostPort,omitempty"`
	State         string `json:"state"`
	CreatedAt     string `json:"createdAt"`
	UpdatedAt     string `json:"updatedAt"`
}

func toInstanceResponse(inst *instance.Instance) instanceResponse {
	return instanceResponse{
		ID:            inst.ID,
		Name:          inst.Name,
		Engine:        inst.Engine,
		Username:      inst.Username,
		OwnerUserID:   inst.OwnerUserID,
		ContainerName: inst.ContainerName,
		HostPort:      inst.HostPort,
		State:         string(inst.State),
		CreatedAt:     inst.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt:     inst.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// InstanceHandler handles instance provisioning and query endpoints.
type InstanceHandler struct {
	svc InstanceService
}

// NewInstanceHandler creates a new InstanceHandler.
func NewInstanceHandler(svc InstanceService) *InstanceHandler {
	return &InstanceHandler{svc: svc}
}

// ownerIDParam parses the {ownerID} path parameter.
func ownerIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "ownerID"), 10, 64)
}

// Create handles POST /instances.
func (h *InstanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req createInstanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Engine = strings.ToLower(strings.TrimSpace(req.Engine))
	req.Username = strings.TrimSpace(req.Username)

	fieldErrors := validation.ValidateCreateInstance(validation.CreateInstanceRequest{
		Name:        req.Name,
		Engine:      req.Engine,
		Username:    req.Username,
		Password:    req.Password,
		OwnerUserID: req.OwnerUserID,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token is required", requestID)
		return
	}

	inst, err := h.svc.CreateInstance(r.Context(), orchestrator.CreateRequest{
		Name:            req.Name,
		Engine:          req.Engine,
		Username:        req.Username,
		Password:        req.Password,
		OwnerUserID:     req.OwnerUserID,
		CreatedByUserID: identity.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrCreatorNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Creating user not found", requestID)
		case errors.Is(err, orchestrator.ErrOwnerNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Owner user not found", requestID)
		case errors.Is(err, orchestrator.ErrOwnerAlreadyHasInstance):
			response.Err(w, http.StatusConflict, "OWNER_CONFLICT", "Owner already has an instance", requestID)
		case errors.Is(err, provider.ErrEngineNotSupported):
			response.Err(w, http.StatusBadRequest, "ENGINE_NOT_SUPPORTED", "Engine is not supported", requestID)
		case errors.Is(err, provider.ErrProvisioningTimeout):
			response.Err(w, http.StatusGatewayTimeout, "PROVISIONING_TIMEOUT", "Database did not become ready in time", requestID)
		default:
			slog.Error("failed to create instance", "error", err)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create instance", requestID)
		}
		return
	}

	response.Success(w, http.StatusCreated, toInstanceResponse(inst), requestID)
}

// List handles GET /instances.
func (h *InstanceHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	instances, err := h.svc.ListInstances(r.Context())
	if err != nil {
		slog.Error("failed to list instances", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list instances", requestID)
		return
	}

	out := make([]instanceResponse, 0, len(instances))
	for i := range instances {
		out = append(out, toInstanceResponse(&instances[i]))
	}
	response.Success(w, http.StatusOK, out, requestID)
}

// Get handles GET /instances/{ownerID}.
func (h *InstanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	ownerID, err := ownerIDParam(r)
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "Owner id must be an integer", requestID)
		return
	}

	inst, err := h.svc.GetInstance(r.Context(), ownerID)
	if err != nil {
		if errors.Is(err, orchestrator.ErrInstanceNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Instance not found", requestID)
			return
		}
		slog.Error("failed to get instance", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get instance", requestID)
		return
	}

	response.Success(w, http.StatusOK, toInstanceResponse(inst), requestID)
}

// Start handles POST /instances/{ownerID}/start.
func (h *InstanceHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.StartInstance, "start")
}

// Stop handles POST /instances/{ownerID}/stop.
func (h *InstanceHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.svc.StopInstance, "stop")
}

func (h *InstanceHandler) lifecycle(w http.ResponseWriter, r *http.Request, op func(context.Context, int64) (*instance.Instance, error), verb string) {
	requestID := middleware.GetRequestID(r.Context())

	ownerID, err := ownerIDParam(r)
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "Owner id must be an integer", requestID)
		return
	}

	inst, err := op(r.Context(), ownerID)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrInstanceNotFound):
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Instance not found", requestID)
		case errors.Is(err, instance.ErrInvalidTransition):
			response.Err(w, http.StatusConflict, "INVALID_STATE", "Instance cannot "+verb+" from its current state", requestID)
		default:
			slog.Error("instance lifecycle operation failed", "op", verb, "error", err)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+verb+" instance", requestID)
		}
		return
	}

	response.Success(w, http.StatusOK, toInstanceResponse(inst), requestID)
}

// Delete handles DELETE /instances/{ownerID}.
func (h *InstanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	ownerID, err := ownerIDParam(r)
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "Owner id must be an integer", requestID)
		return
	}

	if err := h.svc.DeleteInstance(r.Context(), ownerID); err != nil {
		if errors.Is(err, orchestrator.ErrInstanceNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Instance not found", requestID)
			return
		}
		slog.Error("failed to delete instance", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete instance", requestID)
		return
	}

	response.NoContent(w)
}

// Query handles POST /instances/{ownerID}/query.
func (h *InstanceHandler) Query(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerIDParam(r)
	if err != nil {
		requestID := middleware.GetRequestID(r.Context())
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "Owner id must be an integer", requestID)
		return
	}
	h.query(w, r, ownerID)
}

// QueryOwn handles POST /query, running against the caller's own instance.
func (h *InstanceHandler) QueryOwn(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token is required", requestID)
		return
	}
	h.query(w, r, identity.UserID)
}

// query decodes the statement and returns the provider result. Engine and
// statement failures arrive inside the result with success=false; the HTTP
// status stays 200 so clients handle one shape.
func (h *InstanceHandler) query(w http.ResponseWriter, r *http.Request, ownerID int64) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateQuery(validation.QueryRequest{Statement: req.Statement})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	result := h.svc.ExecuteQuery(r.Context(), ownerID, req.Statement)
	response.Success(w, http.StatusOK, result, requestID)
}
