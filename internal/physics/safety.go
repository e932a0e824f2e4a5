package physics

import "math"

// Standalone safety factor helpers. The engines call these internally; they
// are exported for callers that already hold a coverage ratio or surface
// temperature and do not need a full prediction.

// SpraySafetyFactor is SF = coverage / required. A zero or negative
// requirement means unbounded capacity and returns +Inf.
func SpraySafetyFactor(coverageRatio, required float64) float64 {
	if required <= 0 {
		return math.Inf(1)
	}
	return coverageRatio / required
}

// ThermalSafetyFactor is SF = (surface temp - freezing point) / reference
// margin, floored at zero.
func ThermalSafetyFactor(surfaceTempC, freezingPointC float64) float64 {
	margin := surfaceTempC - freezingPointC
	sf := margin / thermalReferenceMargin
	return math.Max(sf, 0.0)
}

// CombinedSafetyFactor blends spray and thermal safety factors with the
// standard 0.6/0.4 weighting.
func CombinedSafetyFactor(spraySF, thermalSF float64) float64 {
	return spraySF*0.6 + thermalSF*0.4
}
