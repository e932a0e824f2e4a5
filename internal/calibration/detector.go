// Package calibration tracks the divergence between physics predictions and
// sensor reality, and nudges physics parameters back toward measurements.
package calibration

import (
	"math"

	"brineguard/internal/physics"
	"brineguard/internal/types"
)

// DriftDetector monitors the gap between predicted parameter values and
// sensor readings.
type DriftDetector struct {
	thresholdPct     float64
	sustainedEntries int
}

// NewDriftDetector creates a detector with the default 5% threshold and
// 10-entry sustained window.
func NewDriftDetector() *DriftDetector {
	return &DriftDetector{
		thresholdPct:     physics.DriftThresholdPct,
		sustainedEntries: physics.DriftSustainedMinutes,
	}
}

// NewDriftDetectorWith creates a detector with explicit tuning. Non-positive
// values fall back to the defaults.
func NewDriftDetectorWith(thresholdPct float64, sustainedEntries int) *DriftDetector {
	d := NewDriftDetector()
	if thresholdPct > 0 {
		d.thresholdPct = thresholdPct
	}
	if sustainedEntries > 0 {
		d.sustainedEntries = sustainedEntries
	}
	return d
}

// ComputeDrift returns the mean absolute relative error (percent) between
// predicted parameter values and sensor readings, over the parameters
// present in both maps. Parameters with a zero predicted value are skipped
// to avoid division blowups. An empty overlap yields 0.
func (d *DriftDetector) ComputeDrift(physicsParams, sensorData map[string]float64) float64 {
	if len(physicsParams) == 0 || len(sensorData) == 0 {
		return 0.0
	}

	total := 0.0
	count := 0
	for name, predicted := range physicsParams {
		actual, ok := sensorData[name]
		if !ok || predicted == 0 {
			continue
		}
		total += math.Abs(actual-predicted) / math.Abs(predicted) * 100.0
		count++
	}
	if count == 0 {
		return 0.0
	}
	return total / float64(count)
}

// ShouldRecalibrate reports whether drift has stayed above the threshold for
// the full sustained window. A history shorter than the window never
// triggers.
func (d *DriftDetector) ShouldRecalibrate(history types.DriftHistory) bool {
	if len(history) < d.sustainedEntries {
		return false
	}
	recent := history[len(history)-d.sustainedEntries:]
	for _, entry := range recent {
		if entry.DriftPct <= d.thresholdPct {
			return false
		}
	}
	return true
}
