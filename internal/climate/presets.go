// Package climate provides the regional climate preset registries and
// location-based environment adjustments used by the review pipeline.
// All tables are process-wide constants, read-only after init, exposed
// through pure lookup functions.
package climate

import (
	"log/slog"
	"sort"

	"brineguard/internal/types"
)

// DefaultPresetKey is the preset substituted when an unknown key is
// requested. The lookup logs a warning instead of failing so that review
// runs with stale preset references still produce a verdict.
const DefaultPresetKey = "gangwon_winter_severe"

// presets is the fixed regional preset table. Values are part of the wire
// compatibility contract and must not be edited casually.
var presets = map[string]types.ClimatePreset{
	"gangwon_winter_severe": {
		Name:   "Gangwon Winter (Severe)",
		Region: "Gangwon-do",
		Conditions: types.EnvironmentCondition{
			Temperature:    -15.0,
			Humidity:       65.0,
			WindSpeed:      8.0,
			WindDirection:  315.0,
			Precipitation:  5.0,
			SolarRadiation: 50.0,
		},
	},
	"gangwon_winter_moderate": {
		Name:   "Gangwon Winter (Moderate)",
		Region: "Gangwon-do",
		Conditions: types.EnvironmentCondition{
			Temperature:    -5.0,
			Humidity:       70.0,
			WindSpeed:      4.0,
			WindDirection:  270.0,
			Precipitation:  2.0,
			SolarRadiation: 100.0,
		},
	},
	"seoul_winter": {
		Name:   "Seoul Winter",
		Region: "Seoul",
		Conditions: types.EnvironmentCondition{
			Temperature:    -8.0,
			Humidity:       55.0,
			WindSpeed:      5.0,
			WindDirection:  300.0,
			Precipitation:  1.0,
			SolarRadiation: 120.0,
		},
	},
	"gyeongbu_expressway_winter": {
		Name:   "Gyeongbu Expressway Winter",
		Region: "Chungcheong-do",
		Conditions: types.EnvironmentCondition{
			Temperature:    -3.0,
			Humidity:       75.0,
			WindSpeed:      6.0,
			WindDirection:  250.0,
			Precipitation:  3.0,
			SolarRadiation: 80.0,
		},
	},
	"yeongdong_expressway_winter": {
		Name:   "Yeongdong Expressway Winter",
		Region: "Gangwon-do",
		Conditions: types.EnvironmentCondition{
			Temperature:    -12.0,
			Humidity:       80.0,
			WindSpeed:      10.0,
			WindDirection:  0.0,
			Precipitation:  8.0,
			SolarRadiation: 30.0,
		},
	},
	"busan_winter": {
		Name:   "Busan Winter",
		Region: "Busan",
		Conditions: types.EnvironmentCondition{
			Temperature:    0.0,
			Humidity:       60.0,
			WindSpeed:      7.0,
			WindDirection:  180.0,
			Precipitation:  0.5,
			SolarRadiation: 150.0,
		},
	},
	"spring_transition": {
		Name:   "Spring Transition (March)",
		Region: "National",
		Conditions: types.EnvironmentCondition{
			Temperature:    5.0,
			Humidity:       50.0,
			WindSpeed:      3.0,
			WindDirection:  225.0,
			Precipitation:  0.0,
			SolarRadiation: 250.0,
		},
	},
	"night_clear_sky": {
		Name:   "Night Clear Sky (Max Radiative Cooling)",
		Region: "National",
		Conditions: types.EnvironmentCondition{
			Temperature:    -2.0,
			Humidity:       40.0,
			WindSpeed:      1.0,
			WindDirection:  0.0,
			Precipitation:  0.0,
			SolarRadiation: 0.0,
		},
	},
}

// Preset returns the named preset. Lookup is exact; ok reports whether the
// key was found.
func Preset(name string) (types.ClimatePreset, bool) {
	p, ok := presets[name]
	return p, ok
}

// PresetOrDefault returns the named preset, falling back to DefaultPresetKey
// for unknown names. The fallback is logged because a silent substitution
// can mask a misconfigured review request.
func PresetOrDefault(name string, logger *slog.Logger) types.ClimatePreset {
	if p, ok := presets[name]; ok {
		return p
	}
	if logger != nil {
		logger.Warn("unknown climate preset, using default",
			"requested", name, "default", DefaultPresetKey)
	}
	return presets[DefaultPresetKey]
}

// PresetNames lists all registered preset keys in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for k := range presets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
