package calibration

import (
	"math"

	"brineguard/internal/physics"
	"brineguard/internal/types"
)

// PhysicsImputer fills gaps in sensor time series. When a physics engine
// and site context are available it imputes the value the sensor should
// have read; otherwise it falls back to the mean of the valid readings.
type PhysicsImputer struct {
	engine physics.Engine
}

// NewPhysicsImputer creates an imputer. A nil engine is allowed and forces
// the mean fallback for every gap.
func NewPhysicsImputer(engine physics.Engine) *PhysicsImputer {
	return &PhysicsImputer{engine: engine}
}

// Impute replaces missing or NaN readings. Each output entry records
// whether it was imputed and by which method: "physics" when the engine
// produced a surface-temperature estimate, "fallback_mean" when the engine
// failed, "mean" when no engine or context was supplied. With no valid
// readings at all, gaps fill with zero.
func (im *PhysicsImputer) Impute(readings []types.SensorReading, env *types.EnvironmentCondition, assets []types.PhysicsAsset) []types.ImputedReading {
	if len(readings) == 0 {
		return nil
	}

	validSum := 0.0
	validCount := 0
	for _, r := range readings {
		if isValid(r.Value) {
			validSum += *r.Value
			validCount++
		}
	}
	meanValue := 0.0
	if validCount > 0 {
		meanValue = validSum / float64(validCount)
	}

	out := make([]types.ImputedReading, 0, len(readings))
	for _, r := range readings {
		if isValid(r.Value) {
			out = append(out, types.ImputedReading{Time: r.Time, Value: *r.Value})
			continue
		}
		out = append(out, im.imputeOne(meanValue, env, assets))
		out[len(out)-1].Time = r.Time
	}
	return out
}

func (im *PhysicsImputer) imputeOne(meanValue float64, env *types.EnvironmentCondition, assets []types.PhysicsAsset) types.ImputedReading {
	if im.engine == nil || env == nil || len(assets) == 0 {
		return types.ImputedReading{Value: meanValue, Imputed: true, Method: types.ImputeMean}
	}
	prediction, err := im.engine.Predict(assets, *env, nil)
	if err != nil {
		return types.ImputedReading{Value: meanValue, Imputed: true, Method: types.ImputeFallbackMean}
	}
	return types.ImputedReading{Value: prediction.SurfaceTemperature, Imputed: true, Method: types.ImputePhysics}
}

func isValid(v *float64) bool {
	return v != nil && !math.IsNaN(*v)
}
