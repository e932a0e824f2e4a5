package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"brineguard/internal/calibration"
	"brineguard/internal/core"
	"brineguard/internal/types"
)

// CalibrationServiceInterface is the drift and recalibration contract
// for the calibration handler. Matches calibration.Service.
type CalibrationServiceInterface interface {
	State(ctx context.Context, assetID string) (*types.CalibrationState, error)
	RecordDrift(ctx context.Context, assetID string, driftPct float64, at time.Time) (*types.CalibrationState, error)
	Trigger(ctx context.Context, assetID string) (*calibration.TriggerOutcome, error)
}

// CalibrationHandler maps HTTP requests to the calibration service.
type CalibrationHandler struct {
	service   CalibrationServiceInterface
	validator *core.Validator
	logger    *slog.Logger
}

// NewCalibrationHandler creates a calibration handler with the given
// dependencies.
func NewCalibrationHandler(svc CalibrationServiceInterface, val *core.Validator, logger *slog.Logger) *CalibrationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CalibrationHandler{
		service:   svc,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the calibration endpoints onto the v1 router.
func (h *CalibrationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/calibration/{assetID}", func(r chi.Router) {
		r.Get("/", h.HandleState)
		r.Post("/drift", h.HandleRecordDrift)
		r.Post("/trigger", h.HandleTrigger)
	})
}

// HandleState handles GET /v1/calibration/{assetID}.
func (h *CalibrationHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.State(r.Context(), chi.URLParam(r, "assetID"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: state})
}

// recordDriftRequest is the POST /v1/calibration/{assetID}/drift payload.
// A missing timestamp means now.
type recordDriftRequest struct {
	DriftPct float64    `json:"drift_pct" validate:"gte=0,lte=100"`
	At       *time.Time `json:"at,omitempty"`
}

// HandleRecordDrift handles POST /v1/calibration/{assetID}/drift,
// appending an observed drift sample to the asset history.
func (h *CalibrationHandler) HandleRecordDrift(w http.ResponseWriter, r *http.Request) {
	var req recordDriftRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	at := time.Now().UTC()
	if req.At != nil {
		at = *req.At
	}

	assetID := chi.URLParam(r, "assetID")
	state, err := h.service.RecordDrift(r.Context(), assetID, req.DriftPct, at)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "drift sample recorded",
		"asset_id", assetID,
		"drift_pct", req.DriftPct,
	)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: state})
}

// HandleTrigger handles POST /v1/calibration/{assetID}/trigger, running a
// drift check and recalibrating the asset if the threshold is crossed.
func (h *CalibrationHandler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "assetID")
	outcome, err := h.service.Trigger(r.Context(), assetID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "calibration trigger evaluated",
		"asset_id", assetID,
		"status", outcome.Status,
		"drift_pct", outcome.DriftPercentage,
	)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: outcome})
}
