package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"brineguard/internal/climate"
	"brineguard/internal/core"
	"brineguard/internal/types"
)

// WeatherSourceInterface fetches live observations for a coordinate.
// Matches external.WeatherClient. Optional; a nil source disables the
// live endpoint.
type WeatherSourceInterface interface {
	CurrentConditions(ctx context.Context, lat, lon float64) (*types.EnvironmentCondition, error)
}

// PresetHandler serves the climate preset registries and live
// observations.
type PresetHandler struct {
	weather WeatherSourceInterface
	logger  *slog.Logger
}

// NewPresetHandler creates a preset handler with the given dependencies.
func NewPresetHandler(weather WeatherSourceInterface, logger *slog.Logger) *PresetHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PresetHandler{weather: weather, logger: logger}
}

// RegisterRoutes mounts the preset endpoints onto the v1 router.
func (h *PresetHandler) RegisterRoutes(r chi.Router) {
	r.Route("/presets", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/cities", h.HandleListCities)
		r.Get("/live", h.HandleLive)
		r.Get("/{presetKey}", h.HandleGet)
	})
}

// presetEntry pairs a preset key with its definition for listing.
type presetEntry struct {
	Key    string              `json:"key"`
	Preset types.ClimatePreset `json:"preset"`
}

// HandleList handles GET /v1/presets, returning every regional preset
// sorted by key.
func (h *PresetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	names := climate.PresetNames()
	entries := make([]presetEntry, 0, len(names))
	for _, name := range names {
		preset, ok := climate.Preset(name)
		if !ok {
			continue
		}
		entries = append(entries, presetEntry{Key: name, Preset: preset})
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: entries})
}

// HandleGet handles GET /v1/presets/{presetKey}.
func (h *PresetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "presetKey")
	preset, ok := climate.Preset(key)
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundPreset, "unknown climate preset", nil))
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: presetEntry{Key: key, Preset: preset}})
}

// cityEntry pairs a city preset key with its typical winter night
// condition and derived risk estimates.
type cityEntry struct {
	Key              string            `json:"key"`
	Condition        climate.Condition `json:"condition"`
	IceFormationRisk float64           `json:"ice_formation_risk"`
}

// HandleListCities handles GET /v1/presets/cities, returning the Korea
// city condition table with a derived icing risk score per city.
func (h *PresetHandler) HandleListCities(w http.ResponseWriter, r *http.Request) {
	entries := make([]cityEntry, 0, len(climate.KoreaCityPresets))
	for key, cond := range climate.KoreaCityPresets {
		entries = append(entries, cityEntry{
			Key:              key,
			Condition:        cond,
			IceFormationRisk: climate.EstimateIceFormationRisk(cond),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: entries})
}

// HandleLive handles GET /v1/presets/live?lat=..&lon=.., fetching the
// current observed conditions from the weather upstream.
func (h *PresetHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	if h.weather == nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeUpstreamWeather, "weather upstream is not configured", nil))
		return
	}

	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationBadPayload, "lat must be a number in [-90, 90]", nil))
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationBadPayload, "lon must be a number in [-180, 180]", nil))
		return
	}

	env, err := h.weather.CurrentConditions(r.Context(), lat, lon)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: env})
}
