package types

// EnvironmentCondition is the ambient weather state a simulation runs under.
// It is an immutable value type: the Monte Carlo engine creates a fresh copy
// per sample and the physics engines never mutate it.
type EnvironmentCondition struct {
	Temperature     float64  `json:"temperature"`                 // degC
	Humidity        float64  `json:"humidity"`                    // %, 0-100
	WindSpeed       float64  `json:"wind_speed"`                  // m/s
	WindDirection   float64  `json:"wind_direction"`              // degrees from North
	Precipitation   float64  `json:"precipitation"`               // mm/h
	SolarRadiation  float64  `json:"solar_radiation"`             // W/m^2
	RoadSurfaceTemp *float64 `json:"road_surface_temp,omitempty"` // degC, if measured
}

// DefaultEnvironment returns the baseline condition used when no preset or
// measured data is supplied: mild winter air, light wind, no precipitation.
func DefaultEnvironment() EnvironmentCondition {
	return EnvironmentCondition{
		Temperature:   0.0,
		Humidity:      70.0,
		WindSpeed:     3.0,
		WindDirection: 0.0,
	}
}

// ClimatePreset is a named, region-tagged environment bundle. Presets live in
// a process-wide read-only registry keyed by string identifier.
type ClimatePreset struct {
	Name       string               `json:"name"`
	Region     string               `json:"region"`
	Conditions EnvironmentCondition `json:"conditions"`
}
