package simulation

import (
	"log/slog"
	"time"

	"brineguard/internal/climate"
	"brineguard/internal/types"
)

// BuildContext assembles the full environment context for a review run. City
// presets carry a complete observation; the regional preset table carries
// only the base environment condition, so the remaining fields are derived.
func BuildContext(rec *types.ProjectRecord, presetKey string, now time.Time, logger *slog.Logger) climate.Context {
	cond, ok := climate.KoreaCityPresets[presetKey]
	if !ok {
		preset := climate.PresetOrDefault(presetKey, logger)
		cond = conditionFromEnvironment(preset.Conditions)
	}

	ctx := climate.Context{
		LocationName: rec.LocationName,
		Latitude:     rec.Latitude,
		Longitude:    rec.Longitude,
		Season:       climate.SeasonOf(now.Month()),
		TimeOfDay:    timeOfDayOf(now.Hour()),
		Climate:      cond,
		TrafficLevel: climate.TrafficLow,
	}

	if rec.Design != nil && len(rec.Design.RoadSegments) > 0 {
		first := rec.Design.RoadSegments[0]
		ctx.ElevationM = first.ElevationM
		switch first.RoadType {
		case types.RoadBridge, types.RoadOverpass:
			ctx.IsWindExposed = true
		case types.RoadUnderpass:
			ctx.IsShaded = true
		}
	}
	return ctx
}

// conditionFromEnvironment derives a full climate observation from a base
// environment condition. The road surface is assumed 2 degC colder than the
// air unless a measured value is present, and precipitation falling below
// freezing is treated as snow.
func conditionFromEnvironment(env types.EnvironmentCondition) climate.Condition {
	cond := climate.Condition{
		AirTemperatureC:         env.Temperature,
		RoadSurfaceTemperatureC: env.Temperature - 2.0,
		HumidityPercent:         env.Humidity,
		WindSpeedMS:             env.WindSpeed,
		WindDirectionDeg:        env.WindDirection,
		PrecipitationMMH:        env.Precipitation,
		SolarRadiationWM2:       env.SolarRadiation,
		PrecipitationType:       climate.PrecipNone,
		CloudCoverPercent:       40.0,
	}
	if env.RoadSurfaceTemp != nil {
		cond.RoadSurfaceTemperatureC = *env.RoadSurfaceTemp
	}
	if env.Precipitation > 0 {
		cond.CloudCoverPercent = 90.0
		if env.Temperature <= 0 {
			cond.PrecipitationType = climate.PrecipSnow
		} else {
			cond.PrecipitationType = climate.PrecipRain
		}
	}
	return cond
}

// baseEnvironment converts the run's climate context back to the flat
// environment condition the physics engines consume, with the elevation and
// wind height corrections applied.
func baseEnvironment(ctx climate.Context) types.EnvironmentCondition {
	surface := ctx.Climate.RoadSurfaceTemperatureC
	env := types.EnvironmentCondition{
		Temperature:     ctx.Climate.AirTemperatureC,
		Humidity:        ctx.Climate.HumidityPercent,
		WindSpeed:       ctx.Climate.WindSpeedMS,
		WindDirection:   ctx.Climate.WindDirectionDeg,
		Precipitation:   ctx.Climate.PrecipitationMMH,
		SolarRadiation:  ctx.Climate.SolarRadiationWM2,
		RoadSurfaceTemp: &surface,
	}
	return climate.ApplyLocationCorrections(env, ctx.ElevationM)
}

func timeOfDayOf(hour int) climate.TimeOfDay {
	switch {
	case hour >= 4 && hour < 7:
		return climate.TimeDawn
	case hour >= 7 && hour < 12:
		return climate.TimeMorning
	case hour >= 12 && hour < 17:
		return climate.TimeAfternoon
	case hour >= 17 && hour < 21:
		return climate.TimeEvening
	default:
		return climate.TimeNight
	}
}
