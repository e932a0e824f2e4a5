package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"brineguard/internal/climate"
	"brineguard/internal/types"
)

// --- Mock Weather Source ---

type mockWeatherSource struct {
	result *types.EnvironmentCondition
	err    error

	lastLat, lastLon float64
}

func (m *mockWeatherSource) CurrentConditions(_ context.Context, lat, lon float64) (*types.EnvironmentCondition, error) {
	m.lastLat, m.lastLon = lat, lon
	return m.result, m.err
}

// --- Helpers ---

func makePresetRouter(h *PresetHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/v1", h.RegisterRoutes)
	return r
}

// --- Listing Tests ---

func TestHandleListPresets_ReturnsAllRegionalPresets(t *testing.T) {
	router := makePresetRouter(NewPresetHandler(nil, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/v1/presets", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var resp struct {
		Data []presetEntry `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Data) != len(climate.PresetNames()) {
		t.Errorf("expected %d presets, got %d", len(climate.PresetNames()), len(resp.Data))
	}
	for i := 1; i < len(resp.Data); i++ {
		if resp.Data[i].Key < resp.Data[i-1].Key {
			t.Errorf("presets not sorted: %q before %q", resp.Data[i-1].Key, resp.Data[i].Key)
		}
	}
}

func TestHandleGetPreset_Known(t *testing.T) {
	router := makePresetRouter(NewPresetHandler(nil, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/v1/presets/"+climate.DefaultPresetKey, nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var resp struct {
		Data presetEntry `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.Key != climate.DefaultPresetKey {
		t.Errorf("unexpected key %q", resp.Data.Key)
	}
	if resp.Data.Preset.Conditions.Temperature >= 0 {
		t.Errorf("severe winter preset should be sub-zero, got %.1f", resp.Data.Preset.Conditions.Temperature)
	}
}

func TestHandleGetPreset_Unknown(t *testing.T) {
	router := makePresetRouter(NewPresetHandler(nil, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/v1/presets/mars_winter", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
}

func TestHandleListCities_IncludesRiskEstimate(t *testing.T) {
	router := makePresetRouter(NewPresetHandler(nil, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/v1/presets/cities", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var resp struct {
		Data []cityEntry `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Data) != len(climate.KoreaCityPresets) {
		t.Errorf("expected %d cities, got %d", len(climate.KoreaCityPresets), len(resp.Data))
	}
	for _, entry := range resp.Data {
		if entry.IceFormationRisk < 0 || entry.IceFormationRisk > 1 {
			t.Errorf("city %s risk out of [0,1]: %f", entry.Key, entry.IceFormationRisk)
		}
	}
}

// --- Live Observation Tests ---

func TestHandleLive_Success(t *testing.T) {
	src := &mockWeatherSource{
		result: &types.EnvironmentCondition{Temperature: -7.2, Humidity: 82, WindSpeed: 6.5},
	}
	router := makePresetRouter(NewPresetHandler(src, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/v1/presets/live?lat=37.68&lon=128.72", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if src.lastLat != 37.68 || src.lastLon != 128.72 {
		t.Errorf("coordinates not forwarded, got (%f, %f)", src.lastLat, src.lastLon)
	}

	var resp struct {
		Data types.EnvironmentCondition `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.Temperature != -7.2 {
		t.Errorf("unexpected temperature %f", resp.Data.Temperature)
	}
}

func TestHandleLive_MissingLat(t *testing.T) {
	router := makePresetRouter(NewPresetHandler(&mockWeatherSource{}, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/v1/presets/live?lon=128.72", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestHandleLive_LatOutOfRange(t *testing.T) {
	router := makePresetRouter(NewPresetHandler(&mockWeatherSource{}, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/v1/presets/live?lat=95&lon=128.72", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestHandleLive_UpstreamUnavailable(t *testing.T) {
	src := &mockWeatherSource{
		err: types.NewAppError(types.ErrCodeUpstreamWeather, "upstream request failed", nil),
	}
	router := makePresetRouter(NewPresetHandler(src, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/v1/presets/live?lat=37.68&lon=128.72", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", rec.Code)
	}
}

func TestHandleLive_NoSourceConfigured(t *testing.T) {
	router := makePresetRouter(NewPresetHandler(nil, slog.Default()))

	req := httptest.NewRequest(http.MethodGet, "/v1/presets/live?lat=37.68&lon=128.72", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", rec.Code)
	}
}
