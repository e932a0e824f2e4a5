// Package spraysim runs the deterministic coverage simulation over the
// neutral project model: per-device spray footprints on a 1 m road grid,
// wind drift, cold-weather efficiency derating, and uncovered-zone
// detection. Unlike the physics engines it takes the full installation
// design as input and produces the geometry the rule engine judges.
package spraysim

import (
	"math"
	"sort"

	"brineguard/internal/climate"
	"brineguard/internal/types"
)

// MinEffectiveBrineGM2 is the minimum brine deposition for a cell to count
// as covered.
const MinEffectiveBrineGM2 = 20.0

// DefaultResolutionM is the default simulation cell size.
const DefaultResolutionM = 1.0

// CoverageCell is one unit cell of the road surface.
type CoverageCell struct {
	X            float64 `json:"x"` // along the road
	Y            float64 `json:"y"` // across the road, from the centreline
	BrineAmountG float64 `json:"brine_amount_gm2"`
	IsCovered    bool    `json:"is_covered"`
}

// DeviceSimResult is the simulation outcome for one spray device.
type DeviceSimResult struct {
	DeviceID            string         `json:"device_id"`
	EffectiveRangeM     float64        `json:"effective_range_m"`
	DriftOffsetM        float64        `json:"drift_offset_m"`
	CoverageAreaM2      float64        `json:"coverage_area_m2"`
	BrineConsumptionLPM float64        `json:"brine_consumption_lpm"`
	CoverageCells       []CoverageCell `json:"coverage_cells,omitempty"`
}

// Zone is a contiguous uncovered stretch of road, in metres along the road.
type Zone struct {
	StartM float64 `json:"start_m"`
	EndM   float64 `json:"end_m"`
}

// SimulationResult is the aggregate outcome over all devices.
type SimulationResult struct {
	TotalRoadAreaM2          float64           `json:"total_road_area_m2"`
	CoveredAreaM2            float64           `json:"covered_area_m2"`
	CoverageRatio            float64           `json:"coverage_ratio"`
	UncoveredZones           []Zone            `json:"uncovered_zones"`
	DeviceResults            []DeviceSimResult `json:"device_results"`
	OverlapAreaM2            float64           `json:"overlap_area_m2"`
	TotalBrineConsumptionLPH float64           `json:"total_brine_consumption_lph"`
}

// temperatureEfficiency derates the spray range in cold air: pump and
// nozzle performance drops as the brine thickens.
func temperatureEfficiency(airTempC float64) float64 {
	switch {
	case airTempC < -10:
		return 0.7
	case airTempC < -5:
		return 0.85
	case airTempC < 0:
		return 0.95
	default:
		return 1.0
	}
}

// sprayHalfWidth is the half-width of the spray footprint across the road,
// by pattern: a narrow band for linear nozzles, the fan opening for fan
// nozzles, the full range for rotating heads.
func sprayHalfWidth(device types.BrineSprayDevice, effectiveRange float64) float64 {
	switch device.SprayPattern {
	case types.PatternLinear:
		return 0.5
	case types.PatternFan:
		halfAngle := device.SprayAngleDeg / 2.0 * math.Pi / 180.0
		return effectiveRange * math.Tan(halfAngle)
	default: // full circle
		return effectiveRange
	}
}

// CalculateDeviceCoverage simulates one device against one road segment.
func CalculateDeviceCoverage(device types.BrineSprayDevice, road types.RoadSegment, env climate.Context, resolutionM float64) DeviceSimResult {
	if resolutionM <= 0 {
		resolutionM = DefaultResolutionM
	}

	drift := climate.EstimateSprayDrift(env.Climate.WindSpeedMS, device.SprayRangeM)
	windCross := math.Sin(env.Climate.WindDirectionDeg * math.Pi / 180.0)
	driftOffset := drift * windCross

	effectiveRange := device.SprayRangeM * temperatureEfficiency(env.Climate.AirTemperatureC)
	halfWidth := sprayHalfWidth(device, effectiveRange)
	halfRoad := road.WidthM * float64(road.Lanes) / 2.0

	deviceX := device.PositionAlongRoadM
	deviceY := device.PositionCrossM + driftOffset

	var cells []CoverageCell
	coveredCount := 0

	for x := deviceX - effectiveRange; x < deviceX+effectiveRange; x += resolutionM {
		if x < 0 || x > road.LengthM {
			continue
		}
		for y := deviceY - halfWidth; y < deviceY+halfWidth; y += resolutionM {
			if math.Abs(y) > halfRoad {
				continue
			}
			dist := math.Hypot(x-deviceX, y-deviceY)
			if dist > effectiveRange || dist < 0.1 {
				continue
			}

			// Deposition falls off linearly with distance and decays with
			// d^1.2 as the plume spreads.
			intensity := 1.0 - dist/effectiveRange
			brine := intensity * device.FlowRateLPM * 10.0 / math.Max(1.0, math.Pow(dist, 1.2))
			brine = math.Max(0, brine)

			covered := brine >= MinEffectiveBrineGM2
			if covered {
				coveredCount++
			}
			cells = append(cells, CoverageCell{X: x, Y: y, BrineAmountG: brine, IsCovered: covered})
		}
	}

	return DeviceSimResult{
		DeviceID:            device.DeviceID,
		EffectiveRangeM:     effectiveRange,
		DriftOffsetM:        driftOffset,
		CoverageAreaM2:      float64(coveredCount) * resolutionM * resolutionM,
		BrineConsumptionLPM: device.FlowRateLPM,
		CoverageCells:       cells,
	}
}

type gridPos struct {
	x, y float64
}

func posOf(x, y float64) gridPos {
	return gridPos{math.Round(x*10) / 10, math.Round(y*10) / 10}
}

// Run simulates the whole project against the environment. Only the first
// road segment is simulated; multi-segment installations model each segment
// as its own project.
func Run(project *types.SimulationProject, env climate.Context, resolutionM float64) (*SimulationResult, error) {
	if len(project.RoadSegments) == 0 {
		return nil, types.NewAppError(types.ErrCodeValidationNoRoadSegments, "simulation requires at least one road segment", nil)
	}
	if len(project.SprayDevices) == 0 {
		return nil, types.NewAppError(types.ErrCodeValidationNoSprayDevices, "simulation requires at least one spray device", nil)
	}
	if resolutionM <= 0 {
		resolutionM = DefaultResolutionM
	}

	road := project.RoadSegments[0]
	totalArea := road.LengthM * road.WidthM * float64(road.Lanes)
	halfRoad := road.WidthM * float64(road.Lanes) / 2.0

	roadPositions := make(map[gridPos]struct{})
	for x := 0.0; x < road.LengthM; x += resolutionM {
		for y := -halfRoad; y < halfRoad; y += resolutionM {
			roadPositions[posOf(x, y)] = struct{}{}
		}
	}

	covered := make(map[gridPos]struct{})
	overlapCount := 0
	var deviceResults []DeviceSimResult

	for _, device := range project.SprayDevices {
		result := CalculateDeviceCoverage(device, road, env, resolutionM)
		deviceResults = append(deviceResults, result)

		for _, cell := range result.CoverageCells {
			if !cell.IsCovered {
				continue
			}
			pos := posOf(cell.X, cell.Y)
			if _, seen := covered[pos]; seen {
				overlapCount++
			}
			covered[pos] = struct{}{}
		}
	}

	coveredArea := float64(len(covered)) * resolutionM * resolutionM
	ratio := 0.0
	if totalArea > 0 {
		ratio = coveredArea / totalArea
	}

	uncovered := make(map[gridPos]struct{})
	for pos := range roadPositions {
		if _, ok := covered[pos]; !ok {
			uncovered[pos] = struct{}{}
		}
	}

	totalConsumption := 0.0
	for _, d := range deviceResults {
		totalConsumption += d.BrineConsumptionLPM
	}

	return &SimulationResult{
		TotalRoadAreaM2:          totalArea,
		CoveredAreaM2:            coveredArea,
		CoverageRatio:            ratio,
		UncoveredZones:           findUncoveredZones(uncovered, resolutionM),
		DeviceResults:            deviceResults,
		OverlapAreaM2:            float64(overlapCount) * resolutionM * resolutionM,
		TotalBrineConsumptionLPH: totalConsumption * 60.0,
	}, nil
}

// findUncoveredZones collapses uncovered cell positions into contiguous
// along-road intervals. A gap wider than 1.5 cells splits the zone.
func findUncoveredZones(uncovered map[gridPos]struct{}, resolutionM float64) []Zone {
	if len(uncovered) == 0 {
		return nil
	}

	seen := make(map[float64]struct{})
	var xs []float64
	for pos := range uncovered {
		if _, ok := seen[pos.x]; !ok {
			seen[pos.x] = struct{}{}
			xs = append(xs, pos.x)
		}
	}
	sort.Float64s(xs)

	var zones []Zone
	zoneStart := xs[0]
	prev := xs[0]
	for _, x := range xs[1:] {
		if x-prev > resolutionM*1.5 {
			zones = append(zones, Zone{StartM: zoneStart, EndM: prev})
			zoneStart = x
		}
		prev = x
	}
	zones = append(zones, Zone{StartM: zoneStart, EndM: prev})
	return zones
}
