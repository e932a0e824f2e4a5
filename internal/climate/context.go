package climate

import "math"

// Season is a Korean meteorological season.
type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonAutumn Season = "autumn"
	SeasonWinter Season = "winter"
)

// TimeOfDay buckets the hour of day for environment context.
type TimeOfDay string

const (
	TimeDawn      TimeOfDay = "dawn"      // 04-07
	TimeMorning   TimeOfDay = "morning"   // 07-12
	TimeAfternoon TimeOfDay = "afternoon" // 12-17
	TimeEvening   TimeOfDay = "evening"   // 17-21
	TimeNight     TimeOfDay = "night"     // 21-04
)

// TrafficLevel is the expected traffic intensity at the site.
type TrafficLevel string

const (
	TrafficLow       TrafficLevel = "low"
	TrafficModerate  TrafficLevel = "moderate"
	TrafficHigh      TrafficLevel = "high"
	TrafficCongested TrafficLevel = "congested"
)

// PrecipitationType classifies falling precipitation for icing-risk rules.
type PrecipitationType string

const (
	PrecipNone         PrecipitationType = "none"
	PrecipRain         PrecipitationType = "rain"
	PrecipSnow         PrecipitationType = "snow"
	PrecipSleet        PrecipitationType = "sleet"
	PrecipFreezingRain PrecipitationType = "freezing_rain"
)

// Condition is a point-in-time climate observation used by the deterministic
// coverage simulation and the rule engine. It is richer than
// types.EnvironmentCondition: it carries a measured road surface temperature,
// precipitation type, and cloud cover.
type Condition struct {
	AirTemperatureC         float64           `json:"air_temperature_c"`
	RoadSurfaceTemperatureC float64           `json:"road_surface_temperature_c"`
	HumidityPercent         float64           `json:"humidity_percent"`
	WindSpeedMS             float64           `json:"wind_speed_ms"`
	WindDirectionDeg        float64           `json:"wind_direction_deg"`
	PrecipitationType       PrecipitationType `json:"precipitation_type"`
	PrecipitationMMH        float64           `json:"precipitation_intensity_mmh"`
	SolarRadiationWM2       float64           `json:"solar_radiation_wm2"`
	CloudCoverPercent       float64           `json:"cloud_cover_percent"`
}

// Context is the full environment context for one simulation site.
type Context struct {
	LocationName  string       `json:"location_name"`
	Latitude      float64      `json:"latitude"`
	Longitude     float64      `json:"longitude"`
	ElevationM    float64      `json:"elevation_m"`
	Season        Season       `json:"season"`
	TimeOfDay     TimeOfDay    `json:"time_of_day"`
	Climate       Condition    `json:"climate"`
	TrafficLevel  TrafficLevel `json:"traffic_level"`
	IsShaded      bool         `json:"is_shaded"`       // under bridges etc.
	IsWindExposed bool         `json:"is_wind_exposed"`
}

// KoreaCityPresets is the fixed table of Korean city climate conditions used
// when no live observation is available. Values are part of the wire
// compatibility contract.
var KoreaCityPresets = map[string]Condition{
	"seoul_winter_night": {
		AirTemperatureC:         -8.0,
		RoadSurfaceTemperatureC: -10.0,
		HumidityPercent:         65.0,
		WindSpeedMS:             3.5,
		WindDirectionDeg:        315.0,
		PrecipitationType:       PrecipSnow,
		PrecipitationMMH:        2.0,
		SolarRadiationWM2:       0.0,
		CloudCoverPercent:       90.0,
	},
	"seoul_winter_dawn": {
		AirTemperatureC:         -12.0,
		RoadSurfaceTemperatureC: -15.0,
		HumidityPercent:         70.0,
		WindSpeedMS:             1.5,
		WindDirectionDeg:        0.0,
		PrecipitationType:       PrecipNone,
		PrecipitationMMH:        0.0,
		SolarRadiationWM2:       0.0,
		CloudCoverPercent:       30.0,
	},
	"gangwon_winter_night": {
		AirTemperatureC:         -15.0,
		RoadSurfaceTemperatureC: -18.0,
		HumidityPercent:         75.0,
		WindSpeedMS:             5.0,
		WindDirectionDeg:        270.0,
		PrecipitationType:       PrecipSnow,
		PrecipitationMMH:        5.0,
		SolarRadiationWM2:       0.0,
		CloudCoverPercent:       95.0,
	},
	"busan_winter_morning": {
		AirTemperatureC:         -2.0,
		RoadSurfaceTemperatureC: -3.0,
		HumidityPercent:         80.0,
		WindSpeedMS:             6.0,
		WindDirectionDeg:        180.0,
		PrecipitationType:       PrecipFreezingRain,
		PrecipitationMMH:        1.5,
		SolarRadiationWM2:       50.0,
		CloudCoverPercent:       80.0,
	},
	"daejeon_winter_dawn": {
		AirTemperatureC:         -6.0,
		RoadSurfaceTemperatureC: -9.0,
		HumidityPercent:         60.0,
		WindSpeedMS:             2.0,
		WindDirectionDeg:        0.0,
		PrecipitationType:       PrecipNone,
		PrecipitationMMH:        0.0,
		SolarRadiationWM2:       0.0,
		CloudCoverPercent:       20.0,
	},
}

// EstimateIceFormationRisk scores the icing risk of a climate condition on a
// 0.0-1.0 scale with a simple additive rule model.
func EstimateIceFormationRisk(c Condition) float64 {
	risk := 0.0

	if c.RoadSurfaceTemperatureC <= 0 {
		risk += 0.4
		risk += math.Min(0.3, math.Abs(c.RoadSurfaceTemperatureC)*0.02)
	}

	if c.HumidityPercent > 70 {
		risk += 0.1
	}

	switch c.PrecipitationType {
	case PrecipSnow, PrecipSleet, PrecipFreezingRain:
		risk += 0.2
	case PrecipRain:
		if c.RoadSurfaceTemperatureC <= 1 {
			risk += 0.15
		}
	}

	// Calm clear nights favour radiative cooling.
	if c.WindSpeedMS < 2.0 && c.CloudCoverPercent < 30 {
		risk += 0.1
	}

	return math.Min(1.0, risk)
}

// EstimateSprayDrift estimates the lateral drift (m) of a spray plume under
// wind. Empirical model: 5% of the spray range per 1 m/s of wind, linear in
// both factors.
func EstimateSprayDrift(windSpeedMS, sprayRangeM float64) float64 {
	const driftFactor = 0.05
	return windSpeedMS * sprayRangeM * driftFactor
}
