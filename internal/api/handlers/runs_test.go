package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"brineguard/internal/reports"
	"brineguard/internal/simulation"
	"brineguard/internal/types"
)

// --- Mock Service and Stores ---

type mockReviewService struct {
	reviewResult *types.SimulationRun
	reviewErr    error
	batchResult  []simulation.BatchEntry
	batchErr     error

	lastRequest      simulation.Request
	lastBatchRequest simulation.BatchRequest
}

func (m *mockReviewService) Review(_ context.Context, req simulation.Request) (*types.SimulationRun, error) {
	m.lastRequest = req
	return m.reviewResult, m.reviewErr
}

func (m *mockReviewService) ReviewBatch(_ context.Context, req simulation.BatchRequest) ([]simulation.BatchEntry, error) {
	m.lastBatchRequest = req
	return m.batchResult, m.batchErr
}

type mockRunStore struct {
	getResult    *types.SimulationRun
	getErr       error
	listResult   []*types.SimulationRun
	listErr      error
	latestResult *types.SimulationRun
	latestErr    error
}

func (m *mockRunStore) GetByID(_ context.Context, _ string) (*types.SimulationRun, error) {
	return m.getResult, m.getErr
}

func (m *mockRunStore) ListByProject(_ context.Context, _ string, _ int) ([]*types.SimulationRun, error) {
	return m.listResult, m.listErr
}

func (m *mockRunStore) LatestCompleted(_ context.Context, _ string) (*types.SimulationRun, error) {
	return m.latestResult, m.latestErr
}

type mockArtifactGetter struct {
	result *reports.Artifact
	err    error
}

func (m *mockArtifactGetter) Get(_ context.Context, _, _ string) (*reports.Artifact, error) {
	return m.result, m.err
}

// --- Helpers ---

func makeRunRouter(h *RunHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/v1", h.RegisterRoutes)
	return r
}

func completedRun() *types.SimulationRun {
	return &types.SimulationRun{
		ID:             "run_1",
		ProjectID:      "proj_1",
		SimulationType: types.SimulationSaltSpray,
		ClimatePreset:  "seoul_winter",
		Seed:           42,
		Status:         types.RunCompleted,
	}
}

// --- HandleReview Tests ---

func TestHandleReview_Success(t *testing.T) {
	svc := &mockReviewService{reviewResult: completedRun()}
	h := NewRunHandler(svc, &mockRunStore{}, nil, slog.Default())
	router := makeRunRouter(h)

	body := bytes.NewBufferString(`{"climate_preset":"seoul_winter","seed":42,"monte_carlo_n":500}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/projects/proj_1/runs", body)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}
	if svc.lastRequest.ProjectID != "proj_1" {
		t.Errorf("expected project ID from URL, got %q", svc.lastRequest.ProjectID)
	}
	if svc.lastRequest.ClimatePreset != "seoul_winter" {
		t.Errorf("unexpected preset %q", svc.lastRequest.ClimatePreset)
	}
	if svc.lastRequest.MonteCarloN != 500 {
		t.Errorf("unexpected sample count %d", svc.lastRequest.MonteCarloN)
	}
}

func TestHandleReview_ProjectNotFound(t *testing.T) {
	svc := &mockReviewService{
		reviewErr: types.NewAppError(types.ErrCodeNotFoundProject, "project not found", nil),
	}
	router := makeRunRouter(NewRunHandler(svc, &mockRunStore{}, nil, slog.Default()))

	body := bytes.NewBufferString(`{"climate_preset":"seoul_winter"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/projects/missing/runs", body)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestHandleReview_MalformedBody(t *testing.T) {
	svc := &mockReviewService{}
	router := makeRunRouter(NewRunHandler(svc, &mockRunStore{}, nil, slog.Default()))

	body := bytes.NewBufferString(`{"climate_preset":`)
	req := httptest.NewRequest(http.MethodPost, "/v1/projects/proj_1/runs", body)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

// --- HandleReviewBatch Tests ---

func TestHandleReviewBatch_Success(t *testing.T) {
	svc := &mockReviewService{
		batchResult: []simulation.BatchEntry{
			{ClimatePreset: "seoul_winter", Run: completedRun()},
			{ClimatePreset: "gangwon_winter_severe", Run: completedRun()},
		},
	}
	router := makeRunRouter(NewRunHandler(svc, &mockRunStore{}, nil, slog.Default()))

	body := bytes.NewBufferString(`{"climate_presets":["seoul_winter","gangwon_winter_severe"],"seed":7}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/projects/proj_1/runs/batch", body)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}
	if len(svc.lastBatchRequest.ClimatePresets) != 2 {
		t.Errorf("expected 2 presets forwarded, got %d", len(svc.lastBatchRequest.ClimatePresets))
	}
	if svc.lastBatchRequest.Seed != 7 {
		t.Errorf("unexpected seed %d", svc.lastBatchRequest.Seed)
	}
}

func TestHandleReviewBatch_ValidationError(t *testing.T) {
	svc := &mockReviewService{
		batchErr: types.NewAppError(types.ErrCodeValidationMissingField, "climate_presets is required", nil),
	}
	router := makeRunRouter(NewRunHandler(svc, &mockRunStore{}, nil, slog.Default()))

	body := bytes.NewBufferString(`{"climate_presets":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/projects/proj_1/runs/batch", body)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

// --- Listing Tests ---

func TestHandleListRuns_Success(t *testing.T) {
	runs := &mockRunStore{listResult: []*types.SimulationRun{completedRun()}}
	router := makeRunRouter(NewRunHandler(&mockReviewService{}, runs, nil, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/v1/projects/proj_1/runs?limit=5", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestHandleListRuns_BadLimit(t *testing.T) {
	router := makeRunRouter(NewRunHandler(&mockReviewService{}, &mockRunStore{}, nil, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/v1/projects/proj_1/runs?limit=many", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestHandleLatestCompleted_NotFound(t *testing.T) {
	runs := &mockRunStore{
		latestErr: types.NewAppError(types.ErrCodeNotFoundRun, "no completed runs", nil),
	}
	router := makeRunRouter(NewRunHandler(&mockReviewService{}, runs, nil, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/v1/projects/proj_1/runs/latest", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

// --- Decision Tests ---

func TestHandleGetDecision_Success(t *testing.T) {
	run := completedRun()
	run.Decision = json.RawMessage(`{"verdict":"PASS","failure_probability":0.002,"mean_safety_factor":2.1}`)
	runs := &mockRunStore{getResult: run}
	router := makeRunRouter(NewRunHandler(&mockReviewService{}, runs, nil, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/run_1/decision", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var resp struct {
		Data types.DecisionResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.Verdict != types.VerdictPass {
		t.Errorf("expected PASS verdict, got %q", resp.Data.Verdict)
	}
}

func TestHandleGetDecision_NoDecision(t *testing.T) {
	runs := &mockRunStore{getResult: completedRun()}
	router := makeRunRouter(NewRunHandler(&mockReviewService{}, runs, nil, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/run_1/decision", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

// --- Report Tests ---

func TestHandleGetReport_PlainText(t *testing.T) {
	run := completedRun()
	run.ReportText = "=== BrineGuard Review Report ===\nVerdict: PASS\n"
	runs := &mockRunStore{getResult: run}
	router := makeRunRouter(NewRunHandler(&mockReviewService{}, runs, nil, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/run_1/report", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("expected text/plain content type, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Verdict: PASS") {
		t.Errorf("report body missing verdict line: %q", rec.Body.String())
	}
}

func TestHandleGetReport_NoReport(t *testing.T) {
	runs := &mockRunStore{getResult: completedRun()}
	router := makeRunRouter(NewRunHandler(&mockReviewService{}, runs, nil, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/run_1/report", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

// --- Artifact Tests ---

func TestHandleGetArtifact_Success(t *testing.T) {
	run := completedRun()
	run.ArtifactKey = "proj_1/run_1.json.zst"
	runs := &mockRunStore{getResult: run}
	artifacts := &mockArtifactGetter{
		result: &reports.Artifact{RunID: "run_1", ProjectID: "proj_1", ReportText: "ok"},
	}
	router := makeRunRouter(NewRunHandler(&mockReviewService{}, runs, artifacts, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/run_1/artifact", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestHandleGetArtifact_StoreNotConfigured(t *testing.T) {
	runs := &mockRunStore{getResult: completedRun()}
	router := makeRunRouter(NewRunHandler(&mockReviewService{}, runs, nil, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/run_1/artifact", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
}

func TestHandleGetArtifact_NoKey(t *testing.T) {
	runs := &mockRunStore{getResult: completedRun()}
	artifacts := &mockArtifactGetter{}
	router := makeRunRouter(NewRunHandler(&mockReviewService{}, runs, artifacts, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/run_1/artifact", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}
