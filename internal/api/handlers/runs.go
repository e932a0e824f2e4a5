package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"brineguard/internal/core"
	"brineguard/internal/reports"
	"brineguard/internal/simulation"
	"brineguard/internal/types"
)

// ReviewServiceInterface is the review pipeline contract for the run
// handler. Matches simulation.Service.
type ReviewServiceInterface interface {
	Review(ctx context.Context, req simulation.Request) (*types.SimulationRun, error)
	ReviewBatch(ctx context.Context, req simulation.BatchRequest) ([]simulation.BatchEntry, error)
}

// RunStoreInterface is the run read-side contract. Matches
// db.RunRepository.
type RunStoreInterface interface {
	GetByID(ctx context.Context, id string) (*types.SimulationRun, error)
	ListByProject(ctx context.Context, projectID string, limit int) ([]*types.SimulationRun, error)
	LatestCompleted(ctx context.Context, projectID string) (*types.SimulationRun, error)
}

// ArtifactGetterInterface fetches stored report artifacts. Matches
// reports.Store. Optional; a nil getter disables the artifact endpoint.
type ArtifactGetterInterface interface {
	Get(ctx context.Context, projectID, runID string) (*reports.Artifact, error)
}

// RunHandler maps HTTP requests to the review service and run store.
type RunHandler struct {
	service   ReviewServiceInterface
	runs      RunStoreInterface
	artifacts ArtifactGetterInterface
	logger    *slog.Logger
}

// NewRunHandler creates a run handler with the given dependencies.
func NewRunHandler(svc ReviewServiceInterface, runs RunStoreInterface, artifacts ArtifactGetterInterface, logger *slog.Logger) *RunHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunHandler{
		service:   svc,
		runs:      runs,
		artifacts: artifacts,
		logger:    logger,
	}
}

// RegisterRoutes mounts the run endpoints onto the v1 router.
func (h *RunHandler) RegisterRoutes(r chi.Router) {
	r.Route("/projects/{projectID}/runs", func(r chi.Router) {
		r.Post("/", h.HandleReview)
		r.Post("/batch", h.HandleReviewBatch)
		r.Get("/", h.HandleListByProject)
		r.Get("/latest", h.HandleLatestCompleted)
	})
	r.Route("/runs/{runID}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Get("/decision", h.HandleGetDecision)
		r.Get("/report", h.HandleGetReport)
		r.Get("/artifact", h.HandleGetArtifact)
	})
}

// reviewRequest is the POST /v1/projects/{projectID}/runs payload. The
// project ID comes from the URL, not the body.
type reviewRequest struct {
	SimulationType types.SimulationType `json:"simulation_type,omitempty"`
	ClimatePreset  string               `json:"climate_preset"`
	Seed           uint64               `json:"seed,omitempty"`
	MonteCarloN    int                  `json:"monte_carlo_n,omitempty"`
}

// HandleReview handles POST /v1/projects/{projectID}/runs. It executes a
// full review synchronously and returns the completed run.
func (h *RunHandler) HandleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	run, err := h.service.Review(r.Context(), simulation.Request{
		ProjectID:      chi.URLParam(r, "projectID"),
		SimulationType: req.SimulationType,
		ClimatePreset:  req.ClimatePreset,
		Seed:           req.Seed,
		MonteCarloN:    req.MonteCarloN,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: run})
}

// batchReviewRequest is the POST /v1/projects/{projectID}/runs/batch
// payload.
type batchReviewRequest struct {
	SimulationType types.SimulationType `json:"simulation_type,omitempty"`
	ClimatePresets []string             `json:"climate_presets"`
	Seed           uint64               `json:"seed,omitempty"`
	MonteCarloN    int                  `json:"monte_carlo_n,omitempty"`
}

// HandleReviewBatch handles POST /v1/projects/{projectID}/runs/batch,
// reviewing the project under each requested preset.
func (h *RunHandler) HandleReviewBatch(w http.ResponseWriter, r *http.Request) {
	var req batchReviewRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	entries, err := h.service.ReviewBatch(r.Context(), simulation.BatchRequest{
		ProjectID:      chi.URLParam(r, "projectID"),
		SimulationType: req.SimulationType,
		ClimatePresets: req.ClimatePresets,
		Seed:           req.Seed,
		MonteCarloN:    req.MonteCarloN,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: entries})
}

// HandleListByProject handles GET /v1/projects/{projectID}/runs.
func (h *RunHandler) HandleListByProject(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			core.Error(w, r, types.NewAppError(types.ErrCodeValidationBadPayload, "limit must be an integer", nil))
			return
		}
		limit = v
	}

	runs, err := h.runs.ListByProject(r.Context(), chi.URLParam(r, "projectID"), limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: runs})
}

// HandleLatestCompleted handles GET /v1/projects/{projectID}/runs/latest.
func (h *RunHandler) HandleLatestCompleted(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.LatestCompleted(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: run})
}

// HandleGet handles GET /v1/runs/{runID}.
func (h *RunHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.GetByID(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: run})
}

// HandleGetDecision handles GET /v1/runs/{runID}/decision, returning the
// Monte Carlo verdict of a physics run.
func (h *RunHandler) HandleGetDecision(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.GetByID(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if len(run.Decision) == 0 {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundRun, "run has no physics decision", nil))
		return
	}

	var dec types.DecisionResult
	if err := json.Unmarshal(run.Decision, &dec); err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeInternalUnexpected, "decoding stored decision", err))
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: dec})
}

// HandleGetReport handles GET /v1/runs/{runID}/report, serving the
// rendered review report as plain text.
func (h *RunHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.GetByID(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if run.ReportText == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundRun, "run has no report", nil))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(run.ReportText))
}

// HandleGetArtifact handles GET /v1/runs/{runID}/artifact, fetching the
// archived audit artifact from object storage.
func (h *RunHandler) HandleGetArtifact(w http.ResponseWriter, r *http.Request) {
	if h.artifacts == nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeInternalArtifact, "artifact storage is not configured", nil))
		return
	}

	run, err := h.runs.GetByID(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if run.ArtifactKey == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundRun, "run has no stored artifact", nil))
		return
	}

	artifact, err := h.artifacts.Get(r.Context(), run.ProjectID, run.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: artifact})
}
