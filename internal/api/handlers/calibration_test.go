package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"brineguard/internal/calibration"
	"brineguard/internal/core"
	"brineguard/internal/types"
)

// --- Mock Service ---

type mockCalibrationService struct {
	stateResult   *types.CalibrationState
	stateErr      error
	recordResult  *types.CalibrationState
	recordErr     error
	triggerResult *calibration.TriggerOutcome
	triggerErr    error

	lastAssetID  string
	lastDriftPct float64
	lastAt       time.Time
}

func (m *mockCalibrationService) State(_ context.Context, assetID string) (*types.CalibrationState, error) {
	m.lastAssetID = assetID
	return m.stateResult, m.stateErr
}

func (m *mockCalibrationService) RecordDrift(_ context.Context, assetID string, driftPct float64, at time.Time) (*types.CalibrationState, error) {
	m.lastAssetID = assetID
	m.lastDriftPct = driftPct
	m.lastAt = at
	return m.recordResult, m.recordErr
}

func (m *mockCalibrationService) Trigger(_ context.Context, assetID string) (*calibration.TriggerOutcome, error) {
	m.lastAssetID = assetID
	return m.triggerResult, m.triggerErr
}

// --- Helpers ---

func newTestCalibrationHandler(svc CalibrationServiceInterface) *CalibrationHandler {
	return NewCalibrationHandler(svc, core.NewValidator(), slog.Default())
}

func makeCalibrationRouter(h *CalibrationHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/v1", h.RegisterRoutes)
	return r
}

func testState() *types.CalibrationState {
	return &types.CalibrationState{
		AssetID:          "asset_42",
		CalibrationCount: 3,
	}
}

// --- HandleState Tests ---

func TestHandleCalibrationState_Success(t *testing.T) {
	svc := &mockCalibrationService{stateResult: testState()}
	router := makeCalibrationRouter(newTestCalibrationHandler(svc))

	req := httptest.NewRequest(http.MethodGet, "/v1/calibration/asset_42", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if svc.lastAssetID != "asset_42" {
		t.Errorf("asset ID not forwarded, got %q", svc.lastAssetID)
	}

	var resp struct {
		Data types.CalibrationState `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.CalibrationCount != 3 {
		t.Errorf("unexpected calibration count %d", resp.Data.CalibrationCount)
	}
}

func TestHandleCalibrationState_NotFound(t *testing.T) {
	svc := &mockCalibrationService{
		stateErr: types.NewAppError(types.ErrCodeNotFoundAsset, "asset not found", nil),
	}
	router := makeCalibrationRouter(newTestCalibrationHandler(svc))

	req := httptest.NewRequest(http.MethodGet, "/v1/calibration/missing", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

// --- HandleRecordDrift Tests ---

func TestHandleRecordDrift_Success(t *testing.T) {
	svc := &mockCalibrationService{recordResult: testState()}
	router := makeCalibrationRouter(newTestCalibrationHandler(svc))

	at := time.Date(2026, 1, 15, 6, 0, 0, 0, time.UTC)
	body := bytes.NewBufferString(`{"drift_pct":12.5,"at":"2026-01-15T06:00:00Z"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/calibration/asset_42/drift", body)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if svc.lastDriftPct != 12.5 {
		t.Errorf("drift pct not forwarded, got %f", svc.lastDriftPct)
	}
	if !svc.lastAt.Equal(at) {
		t.Errorf("timestamp not forwarded, got %v", svc.lastAt)
	}
}

func TestHandleRecordDrift_DefaultsTimestampToNow(t *testing.T) {
	svc := &mockCalibrationService{recordResult: testState()}
	router := makeCalibrationRouter(newTestCalibrationHandler(svc))

	before := time.Now().UTC()
	body := bytes.NewBufferString(`{"drift_pct":5.0}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/calibration/asset_42/drift", body)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if svc.lastAt.Before(before) || svc.lastAt.After(time.Now().UTC()) {
		t.Errorf("expected timestamp near now, got %v", svc.lastAt)
	}
}

func TestHandleRecordDrift_NegativeDrift(t *testing.T) {
	svc := &mockCalibrationService{}
	router := makeCalibrationRouter(newTestCalibrationHandler(svc))

	body := bytes.NewBufferString(`{"drift_pct":-1.0}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/calibration/asset_42/drift", body)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
	if svc.lastAssetID != "" {
		t.Error("service must not be called for an invalid payload")
	}
}

func TestHandleRecordDrift_MalformedBody(t *testing.T) {
	svc := &mockCalibrationService{}
	router := makeCalibrationRouter(newTestCalibrationHandler(svc))

	body := bytes.NewBufferString(`{"drift_pct":`)
	req := httptest.NewRequest(http.MethodPost, "/v1/calibration/asset_42/drift", body)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

// --- HandleTrigger Tests ---

func TestHandleTrigger_Recalibrated(t *testing.T) {
	svc := &mockCalibrationService{
		triggerResult: &calibration.TriggerOutcome{
			Status:          calibration.TriggerRecalibrated,
			DriftPercentage: 18.0,
			Corrections:     map[string]float64{"spray_efficiency": 0.95},
			State:           testState(),
		},
	}
	router := makeCalibrationRouter(newTestCalibrationHandler(svc))

	req := httptest.NewRequest(http.MethodPost, "/v1/calibration/asset_42/trigger", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var resp struct {
		Data calibration.TriggerOutcome `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.Status != calibration.TriggerRecalibrated {
		t.Errorf("unexpected status %q", resp.Data.Status)
	}
	if len(resp.Data.Corrections) != 1 {
		t.Errorf("expected corrections in response, got %v", resp.Data.Corrections)
	}
}

func TestHandleTrigger_ConflictWhileCalibrating(t *testing.T) {
	svc := &mockCalibrationService{
		triggerErr: types.NewAppError(types.ErrCodeConflictCalibration, "calibration already in progress", nil),
	}
	router := makeCalibrationRouter(newTestCalibrationHandler(svc))

	req := httptest.NewRequest(http.MethodPost, "/v1/calibration/asset_42/trigger", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d", rec.Code)
	}
}
