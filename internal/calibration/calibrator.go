package calibration

import (
	"math"

	"brineguard/internal/physics"
	"brineguard/internal/types"
)

// Calibrator adjusts physics boundary parameters proportionally toward
// sensor measurements.
type Calibrator struct {
	learningRate float64
}

// NewCalibrator creates a calibrator. A non-positive learning rate falls
// back to the default of 0.1.
func NewCalibrator(learningRate float64) *Calibrator {
	if learningRate <= 0 {
		learningRate = physics.DefaultLearningRate
	}
	return &Calibrator{learningRate: learningRate}
}

// Calibrate runs one proportional-correction cycle:
//
//	correction = learningRate * (sensor - current) / |current|
//	new value  = current * (1 + correction)
//
// Parameters without a matching sensor reading, or with a current value of
// zero, pass through unchanged. The reported drift percentage is the mean
// absolute correction, scaled to percent.
func (c *Calibrator) Calibrate(currentParams, sensorData map[string]float64) *types.CalibrationResult {
	corrections := make(map[string]float64)
	newParams := make(map[string]float64, len(currentParams))
	for name, value := range currentParams {
		newParams[name] = value
	}

	readingsUsed := 0
	for name, current := range currentParams {
		sensor, ok := sensorData[name]
		if !ok || current == 0 {
			continue
		}
		relError := (sensor - current) / math.Abs(current)
		correction := c.learningRate * relError
		corrections[name] = correction
		newParams[name] = current * (1.0 + correction)
		readingsUsed++
	}

	driftPct := 0.0
	if len(corrections) > 0 {
		sum := 0.0
		for _, corr := range corrections {
			sum += math.Abs(corr)
		}
		driftPct = sum / float64(len(corrections)) * 100.0
	}

	status := types.CalibrationResultCalibrated
	if readingsUsed == 0 {
		status = types.CalibrationResultInsufficientData
	}

	return &types.CalibrationResult{
		DriftPercentage:    driftPct,
		CorrectionsApplied: corrections,
		NewPhysicsParams:   newParams,
		SensorReadingsUsed: readingsUsed,
		Status:             status,
	}
}
