// Package handlers contains the HTTP handler implementations for the
// BrineGuard API: project CRUD, review runs, climate presets, and
// calibration state.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"brineguard/internal/core"
	"brineguard/internal/types"
)

// ProjectStoreInterface is the persistence contract for the project
// handler. Matches db.ProjectRepository but is defined locally per the
// handler injection pattern.
type ProjectStoreInterface interface {
	Create(ctx context.Context, rec *types.ProjectRecord) error
	GetByID(ctx context.Context, id string) (*types.ProjectRecord, error)
	UpdateDesign(ctx context.Context, id string, design *types.SimulationProject) error
	SetStatus(ctx context.Context, id, status string) error
	List(ctx context.Context, limit, offset int) ([]*types.ProjectRecord, error)
	Delete(ctx context.Context, id string) error
}

// ProjectHandler maps HTTP requests to the project store.
type ProjectHandler struct {
	store     ProjectStoreInterface
	validator *core.Validator
	logger    *slog.Logger
}

// NewProjectHandler creates a project handler with the given dependencies.
func NewProjectHandler(store ProjectStoreInterface, val *core.Validator, logger *slog.Logger) *ProjectHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectHandler{
		store:     store,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the project endpoints onto the v1 router.
func (h *ProjectHandler) RegisterRoutes(r chi.Router) {
	r.Route("/projects", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{projectID}", h.HandleGet)
		r.Put("/{projectID}/design", h.HandleUpdateDesign)
		r.Put("/{projectID}/status", h.HandleSetStatus)
		r.Delete("/{projectID}", h.HandleDelete)
	})
}

// createProjectRequest is the POST /v1/projects payload.
type createProjectRequest struct {
	Name         string                   `json:"name" validate:"required,max=200"`
	LocationName string                   `json:"location_name" validate:"max=200"`
	Latitude     float64                  `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64                  `json:"longitude" validate:"gte=-180,lte=180"`
	Design       *types.SimulationProject `json:"design"`
}

// HandleCreate handles POST /v1/projects.
func (h *ProjectHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	rec := &types.ProjectRecord{
		Name:         req.Name,
		LocationName: req.LocationName,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Design:       req.Design,
	}
	if err := h.store.Create(r.Context(), rec); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "project created",
		"project_id", rec.ID,
		"name", rec.Name,
	)
	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: rec})
}

// HandleList handles GET /v1/projects. Supports limit and offset query
// parameters; listed records omit the design payload.
func (h *ProjectHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, offset := 0, 0
	if s := q.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			core.Error(w, r, types.NewAppError(types.ErrCodeValidationBadPayload, "limit must be an integer", nil))
			return
		}
		limit = v
	}
	if s := q.Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			core.Error(w, r, types.NewAppError(types.ErrCodeValidationBadPayload, "offset must be a non-negative integer", nil))
			return
		}
		offset = v
	}

	recs, err := h.store.List(r.Context(), limit, offset)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: recs})
}

// HandleGet handles GET /v1/projects/{projectID}.
func (h *ProjectHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.GetByID(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: rec})
}

// HandleUpdateDesign handles PUT /v1/projects/{projectID}/design. The body
// is the full neutral design model; partial updates are not supported.
func (h *ProjectHandler) HandleUpdateDesign(w http.ResponseWriter, r *http.Request) {
	var design types.SimulationProject
	if err := core.DecodeJSON(w, r, &design); err != nil {
		core.Error(w, r, err)
		return
	}

	id := chi.URLParam(r, "projectID")
	if err := h.store.UpdateDesign(r.Context(), id, &design); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "project design updated",
		"project_id", id,
		"road_segments", len(design.RoadSegments),
		"spray_devices", len(design.SprayDevices),
	)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]string{"id": id}})
}

// setStatusRequest is the PUT /v1/projects/{projectID}/status payload.
type setStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft completed"`
}

// HandleSetStatus handles PUT /v1/projects/{projectID}/status.
func (h *ProjectHandler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	id := chi.URLParam(r, "projectID")
	if err := h.store.SetStatus(r.Context(), id, req.Status); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: map[string]string{"id": id, "status": req.Status}})
}

// HandleDelete handles DELETE /v1/projects/{projectID}.
func (h *ProjectHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")
	if err := h.store.Delete(r.Context(), id); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "project deleted", "project_id", id)
	w.WriteHeader(http.StatusNoContent)
}
