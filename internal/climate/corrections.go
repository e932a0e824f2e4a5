package climate

import (
	"math"
	"time"

	"brineguard/internal/types"
)

// TemperatureLapseRate adjusts an air temperature for elevation using the
// standard atmospheric lapse rate of -6.5 degC per 1000 m.
func TemperatureLapseRate(elevationM, baseTempC float64) float64 {
	return baseTempC - 6.5*(elevationM/1000.0)
}

// WindSpeedHeightCorrection converts a wind speed measured at one height to
// another using the power law v(z) = v(zRef) * (z/zRef)^alpha with
// alpha = 0.14 for open terrain. A non-positive measured height returns the
// speed unchanged.
func WindSpeedHeightCorrection(measuredSpeed, measuredHeightM, targetHeightM float64) float64 {
	const alpha = 0.14
	if measuredHeightM <= 0 {
		return measuredSpeed
	}
	return measuredSpeed * math.Pow(targetHeightM/measuredHeightM, alpha)
}

// Standard measurement and target heights for road-surface wind correction.
const (
	StandardAnemometerHeightM = 10.0
	RoadSurfaceHeightM        = 0.3
)

// SeasonOf maps a month to its Korean season.
func SeasonOf(month time.Month) Season {
	switch month {
	case time.December, time.January, time.February:
		return SeasonWinter
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	default:
		return SeasonAutumn
	}
}

// IsIcingSeason reports whether the month falls in the Korean icing season
// (November through March).
func IsIcingSeason(month time.Month) bool {
	switch month {
	case time.November, time.December, time.January, time.February, time.March:
		return true
	default:
		return false
	}
}

// ApplyLocationCorrections returns a copy of the environment with the
// temperature lapse-rate and wind height corrections applied. The remaining
// fields carry through unchanged.
func ApplyLocationCorrections(env types.EnvironmentCondition, elevationM float64) types.EnvironmentCondition {
	out := env
	out.Temperature = TemperatureLapseRate(elevationM, env.Temperature)
	out.WindSpeed = WindSpeedHeightCorrection(env.WindSpeed, StandardAnemometerHeightM, RoadSurfaceHeightM)
	return out
}
