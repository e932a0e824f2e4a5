// Package judgment is the rule-based design review engine. It evaluates a
// neutral project model, its environment context, and the deterministic
// coverage simulation against a failure-first rule set, and issues a
// PASS / CONDITIONAL_PASS / FAIL verdict with evidence.
package judgment

import (
	"fmt"
	"math"
	"strings"

	"brineguard/internal/climate"
	"brineguard/internal/spraysim"
	"brineguard/internal/types"
)

// Review thresholds.
const (
	// MinCoverageRatio is the coverage fraction a design must reach.
	MinCoverageRatio = 0.80

	// criticalCoverageRatio is the floor below which coverage is an outright
	// failure rather than a warning.
	criticalCoverageRatio = 0.5

	// MaxUncoveredGapM is the longest permitted contiguous uncovered stretch.
	MaxUncoveredGapM = 10.0

	// MinUtilityClearanceMM is the required separation between a buried
	// device and any existing underground utility.
	MinUtilityClearanceMM = 300.0

	// minSupplyRuntimeHours is the shortest acceptable tank runtime at full
	// consumption.
	minSupplyRuntimeHours = 2.0

	// maxSlopePercent is the slope beyond which brine runoff bias is flagged.
	maxSlopePercent = 5.0

	// windDriftRangeFraction flags a device whose drift exceeds this fraction
	// of its effective range.
	windDriftRangeFraction = 0.3
)

// FrostDepthLimits maps region keywords (matched as substrings of the
// lowercased location name) to the design frost depth in millimetres.
var FrostDepthLimits = map[string]float64{
	"seoul":   600,
	"gangwon": 900,
	"busan":   300,
	"daejeon": 500,
}

// DefaultFrostDepthMM applies when no region keyword matches.
const DefaultFrostDepthMM = 600

// FrostDepthFor resolves the frost depth for a location name and returns
// the depth with the matched region key ("default" when nothing matched).
func FrostDepthFor(locationName string) (float64, string) {
	loc := strings.ToLower(locationName)
	for key, depth := range FrostDepthLimits {
		if strings.Contains(loc, key) {
			return depth, key
		}
	}
	return DefaultFrostDepthMM, "default"
}

// Evaluate runs the failure-first review: every rule collects its
// observations before any verdict is formed.
func Evaluate(project *types.SimulationProject, env climate.Context, sim *spraysim.SimulationResult) *types.JudgmentResult {
	var failures []types.FailureObservation

	failures = append(failures, checkCoverage(sim)...)
	failures = append(failures, checkUncoveredGaps(sim)...)
	failures = append(failures, checkWindDrift(sim, env)...)
	failures = append(failures, checkFrostRisk(project, env)...)
	failures = append(failures, checkUtilityConflict(project)...)
	failures = append(failures, checkSupplyCapacity(project, sim)...)
	failures = append(failures, checkSlopeEffectiveness(project)...)

	return makeVerdict(failures)
}

func checkCoverage(sim *spraysim.SimulationResult) []types.FailureObservation {
	switch {
	case sim.CoverageRatio < criticalCoverageRatio:
		return []types.FailureObservation{{
			RuleID:         "COV-001",
			Category:       "coverage",
			Severity:       types.SeverityCritical,
			Description:    "Spray coverage is critically insufficient.",
			Evidence:       fmt.Sprintf("Coverage ratio: %.1f%% (required: %.0f%% or more)", sim.CoverageRatio*100, MinCoverageRatio*100),
			Recommendation: "Increase the device count or reduce the spacing between devices.",
		}}
	case sim.CoverageRatio < MinCoverageRatio:
		return []types.FailureObservation{{
			RuleID:         "COV-002",
			Category:       "coverage",
			Severity:       types.SeverityWarning,
			Description:    "Spray coverage falls short of the requirement.",
			Evidence:       fmt.Sprintf("Coverage ratio: %.1f%% (required: %.0f%% or more)", sim.CoverageRatio*100, MinCoverageRatio*100),
			Recommendation: "Adjust device positions or widen the spray angles.",
		}}
	}
	return nil
}

func checkUncoveredGaps(sim *spraysim.SimulationResult) []types.FailureObservation {
	var obs []types.FailureObservation
	for _, zone := range sim.UncoveredZones {
		gap := zone.EndM - zone.StartM
		switch {
		case gap > MaxUncoveredGapM:
			obs = append(obs, types.FailureObservation{
				RuleID:         "GAP-001",
				Category:       "uncovered zone",
				Severity:       types.SeverityCritical,
				Description:    fmt.Sprintf("A contiguous uncovered stretch of %.1fm exceeds the allowed gap.", gap),
				Evidence:       fmt.Sprintf("Zone: %.1fm to %.1fm (allowed: %.0fm or less)", zone.StartM, zone.EndM, MaxUncoveredGapM),
				Recommendation: "Install an additional device in this zone.",
			})
		case gap > MaxUncoveredGapM*0.7:
			obs = append(obs, types.FailureObservation{
				RuleID:         "GAP-002",
				Category:       "uncovered zone",
				Severity:       types.SeverityWarning,
				Description:    fmt.Sprintf("A contiguous uncovered stretch of %.1fm needs attention.", gap),
				Evidence:       fmt.Sprintf("Zone: %.1fm to %.1fm", zone.StartM, zone.EndM),
				Recommendation: "Reconsider the device spacing.",
			})
		}
	}
	return obs
}

func checkWindDrift(sim *spraysim.SimulationResult, env climate.Context) []types.FailureObservation {
	var obs []types.FailureObservation
	for _, dr := range sim.DeviceResults {
		if math.Abs(dr.DriftOffsetM) > dr.EffectiveRangeM*windDriftRangeFraction {
			obs = append(obs, types.FailureObservation{
				RuleID:         "WIND-001",
				Category:       "wind effect",
				Severity:       types.SeverityWarning,
				Description:    fmt.Sprintf("Spray from device %s drifts heavily in the wind.", dr.DeviceID),
				Evidence:       fmt.Sprintf("Drift: %.2fm (wind speed: %gm/s)", dr.DriftOffsetM, env.Climate.WindSpeedMS),
				Recommendation: "Consider a wind shield or reorienting the spray direction.",
			})
		}
	}
	return obs
}

func checkFrostRisk(project *types.SimulationProject, env climate.Context) []types.FailureObservation {
	frostDepth, region := FrostDepthFor(env.LocationName)

	var obs []types.FailureObservation
	for _, device := range project.SprayDevices {
		if device.BurialDepthMM > 0 && device.BurialDepthMM < frostDepth {
			obs = append(obs, types.FailureObservation{
				RuleID:         "FROST-001",
				Category:       "frost risk",
				Severity:       types.SeverityCritical,
				Description:    fmt.Sprintf("Device %s is buried above the frost depth.", device.DeviceID),
				Evidence:       fmt.Sprintf("Burial: %gmm, frost depth: %gmm (%s)", device.BurialDepthMM, frostDepth, region),
				Recommendation: fmt.Sprintf("Bury the device below %gmm or add a heating system.", frostDepth),
			})
		}
	}

	if ss := project.SupplySystem; ss != nil {
		if ss.PipeBurialDepthMM < frostDepth && !ss.HasHeating {
			obs = append(obs, types.FailureObservation{
				RuleID:         "FROST-002",
				Category:       "frost risk",
				Severity:       types.SeverityCritical,
				Description:    "The supply piping sits above the frost depth without heating.",
				Evidence:       fmt.Sprintf("Pipe burial: %gmm, frost depth: %gmm", ss.PipeBurialDepthMM, frostDepth),
				Recommendation: "Add pipe heating or insulation, or bury the piping deeper.",
			})
		}
	}
	return obs
}

func checkUtilityConflict(project *types.SimulationProject) []types.FailureObservation {
	var obs []types.FailureObservation
	for _, device := range project.SprayDevices {
		if device.BurialDepthMM == 0 {
			continue
		}
		for _, util := range project.UndergroundUtilities {
			crossDist := math.Abs(device.PositionCrossM - util.PositionCrossM)
			depthDist := math.Abs(device.BurialDepthMM - util.DepthMM)
			clearance := math.Min(crossDist*1000.0, depthDist)

			if clearance < MinUtilityClearanceMM {
				obs = append(obs, types.FailureObservation{
					RuleID:         "UTIL-001",
					Category:       "underground utility conflict",
					Severity:       types.SeverityCritical,
					Description:    fmt.Sprintf("Device %s conflicts with a %s utility line.", device.DeviceID, util.UtilityType),
					Evidence:       fmt.Sprintf("Clearance: %.0fmm (minimum: %.0fmm)", clearance, MinUtilityClearanceMM),
					Recommendation: "Relocate the device or reroute the utility line.",
				})
			}
		}
	}
	return obs
}

func checkSupplyCapacity(project *types.SimulationProject, sim *spraysim.SimulationResult) []types.FailureObservation {
	if project.SupplySystem == nil {
		return []types.FailureObservation{{
			RuleID:         "SUP-001",
			Category:       "supply system",
			Severity:       types.SeverityWarning,
			Description:    "No supply system is defined.",
			Evidence:       "Tank capacity and pump pressure cannot be verified.",
			Recommendation: "Provide the supply system specification.",
		}}
	}

	tank := project.SupplySystem.TankCapacityL
	consumption := sim.TotalBrineConsumptionLPH
	if consumption > 0 {
		runtime := tank / consumption
		if runtime < minSupplyRuntimeHours {
			return []types.FailureObservation{{
				RuleID:         "SUP-002",
				Category:       "supply system",
				Severity:       types.SeverityWarning,
				Description:    fmt.Sprintf("Tank capacity sustains only %.1f hours of operation.", runtime),
				Evidence:       fmt.Sprintf("Tank: %gL, consumption: %.0fL/h", tank, consumption),
				Recommendation: "Increase the tank capacity or add an automatic refill system.",
			}}
		}
	}
	return nil
}

func checkSlopeEffectiveness(project *types.SimulationProject) []types.FailureObservation {
	var obs []types.FailureObservation
	for _, road := range project.RoadSegments {
		if math.Abs(road.SlopePercent) > maxSlopePercent {
			obs = append(obs, types.FailureObservation{
				RuleID:         "SLOPE-001",
				Category:       "slope effect",
				Severity:       types.SeverityWarning,
				Description:    fmt.Sprintf("Brine flow bias is expected on a %g%% slope.", road.SlopePercent),
				Evidence:       fmt.Sprintf("Segment %s: slope %g%%", road.SegmentID, road.SlopePercent),
				Recommendation: "Consider additional spray points on the downhill side.",
			})
		}
	}
	return obs
}

var baseLimitations = []string{
	"This verdict is the result of a rule-based screening simulation.",
	"No full physics simulation was performed for this verdict.",
	"Results may differ under actual site conditions.",
}

func makeVerdict(failures []types.FailureObservation) *types.JudgmentResult {
	var criticalCount, warningCount int
	for _, f := range failures {
		switch f.Severity {
		case types.SeverityCritical:
			criticalCount++
		case types.SeverityWarning:
			warningCount++
		}
	}

	limitations := append([]string{}, baseLimitations...)

	if criticalCount > 0 {
		return &types.JudgmentResult{
			Verdict:    types.JudgmentFail,
			Confidence: 0.9,
			Summary: fmt.Sprintf(
				"%d critical problem(s) found. The current design is likely to fail under real conditions.",
				criticalCount),
			Failures:    failures,
			Limitations: limitations,
		}
	}

	if warningCount > 0 {
		var conditions []string
		for _, f := range failures {
			if f.Severity == types.SeverityWarning && f.Recommendation != "" {
				conditions = append(conditions, f.Recommendation)
			}
		}
		return &types.JudgmentResult{
			Verdict:    types.JudgmentConditionalPass,
			Confidence: 0.7,
			Summary: fmt.Sprintf(
				"%d item(s) need attention. The design can operate once the listed conditions are met.",
				warningCount),
			Failures:    failures,
			Conditions:  conditions,
			Limitations: limitations,
		}
	}

	return &types.JudgmentResult{
		Verdict:     types.JudgmentPass,
		Confidence:  0.8,
		Summary:     "The current design operates effectively under the simulated environment conditions.",
		Failures:    failures,
		Limitations: append(limitations, "Extreme climate conditions require a separate simulation."),
	}
}
