package external

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"brineguard/internal/config"
	"brineguard/internal/types"
)

const weatherUserAgent = "BrineGuard/1.0"

// maxObservationAge is how old an observation may be before it is rejected
// as stale. Road surface state changes fast around the freezing point, so
// feeding an hours-old reading into an icing review is worse than failing.
const maxObservationAge = 30 * time.Minute

// WeatherClient fetches live road weather observations from the upstream
// observation API. A flapping weather upstream must never take review
// traffic down with it, so all fetches ride the resilient observation
// transport.
type WeatherClient struct {
	transport *observationTransport
	baseURL   string
	now       func() time.Time
}

// observationResponse is the upstream wire format for a current-conditions
// observation.
type observationResponse struct {
	AirTemperatureC    float64  `json:"air_temperature_c"`
	HumidityPercent    float64  `json:"humidity_percent"`
	WindSpeedMS        float64  `json:"wind_speed_ms"`
	WindDirectionDeg   float64  `json:"wind_direction_deg"`
	PrecipitationMMH   float64  `json:"precipitation_mmh"`
	SolarRadiationWM2  float64  `json:"solar_radiation_wm2"`
	RoadSurfaceTempC   *float64 `json:"road_surface_temp_c"`
	StationID          string   `json:"station_id"`
	ObservedAtUnixSecs int64    `json:"observed_at"`
}

// NewWeatherClient creates a weather client from the weather configuration.
// The HTTP timeout comes from config; breaker and retry defaults match the
// rest of the external layer.
func NewWeatherClient(cfg config.WeatherConfig, opts ...Option) *WeatherClient {
	return &WeatherClient{
		transport: newObservationTransport(
			&http.Client{Timeout: cfg.Timeout},
			"weather-upstream",
			DefaultRetryPolicy(),
			weatherUserAgent,
			cfg.APIKey,
			opts...,
		),
		baseURL: cfg.BaseURL,
		now:     time.Now,
	}
}

// CurrentConditions fetches the latest observation nearest the given
// coordinates, rejects stale or physically implausible readings, and maps
// the rest to the neutral environment model.
func (c *WeatherClient) CurrentConditions(ctx context.Context, lat, lon float64) (*types.EnvironmentCondition, error) {
	endpoint := fmt.Sprintf("%s/v1/observations/current?%s", c.baseURL, url.Values{
		"lat": {fmt.Sprintf("%.5f", lat)},
		"lon": {fmt.Sprintf("%.5f", lon)},
	}.Encode())

	var obs observationResponse
	if err := c.transport.getJSON(ctx, endpoint, &obs); err != nil {
		return nil, err
	}
	if err := c.vet(obs); err != nil {
		return nil, err
	}

	return &types.EnvironmentCondition{
		Temperature:     obs.AirTemperatureC,
		Humidity:        obs.HumidityPercent,
		WindSpeed:       obs.WindSpeedMS,
		WindDirection:   obs.WindDirectionDeg,
		Precipitation:   obs.PrecipitationMMH,
		SolarRadiation:  obs.SolarRadiationWM2,
		RoadSurfaceTemp: obs.RoadSurfaceTempC,
	}, nil
}

// vet rejects observations that cannot be trusted: stale timestamps and
// readings outside physical sensor ranges. Stations that omit the
// observation timestamp are accepted as-is.
func (c *WeatherClient) vet(obs observationResponse) error {
	if obs.ObservedAtUnixSecs > 0 {
		age := c.now().Sub(time.Unix(obs.ObservedAtUnixSecs, 0))
		if age > maxObservationAge {
			return types.NewAppError(
				types.ErrCodeUpstreamWeather,
				fmt.Sprintf("observation from station %q is %s old", obs.StationID, age.Round(time.Minute)),
				nil,
			)
		}
	}
	if obs.HumidityPercent < 0 || obs.HumidityPercent > 100 {
		return types.NewAppError(
			types.ErrCodeUpstreamWeather,
			fmt.Sprintf("implausible humidity %.1f%% from station %q", obs.HumidityPercent, obs.StationID),
			nil,
		)
	}
	if obs.WindSpeedMS < 0 {
		return types.NewAppError(
			types.ErrCodeUpstreamWeather,
			fmt.Sprintf("implausible wind speed %.1f m/s from station %q", obs.WindSpeedMS, obs.StationID),
			nil,
		)
	}
	return nil
}
