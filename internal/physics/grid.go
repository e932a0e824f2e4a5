package physics

import (
	"math"

	"brineguard/internal/types"
)

// DefaultGridResolution is the default cell size (m) for grid coverage.
const DefaultGridResolution = 0.1

// splashRadiusM is the radius around a landing point marked as covered.
// Like the grid resolution, this is an empirically chosen calibration knob.
const splashRadiusM = 0.05

// GridCoverageEngine rasterizes the trajectory engine's landing points onto
// a boolean road grid and reports the covered-cell fraction. It shares the
// trajectory engine's droplet sampling, so reseeding the grid engine reseeds
// the inner trajectory engine.
type GridCoverageEngine struct {
	resolution float64
	trajectory *TrajectoryEngine
}

// NewGridCoverageEngine creates a grid engine with the given cell resolution
// in metres. Non-positive resolutions fall back to the default.
func NewGridCoverageEngine(resolution float64, seed uint64) *GridCoverageEngine {
	if resolution <= 0 {
		resolution = DefaultGridResolution
	}
	return &GridCoverageEngine{
		resolution: resolution,
		trajectory: NewTrajectoryEngine(seed),
	}
}

// Reseed resets the inner trajectory engine's droplet generator.
func (e *GridCoverageEngine) Reseed(seed uint64) {
	e.trajectory.Reseed(seed)
}

// Predict runs the trajectory engine and rasterizes its landing points into
// a road-footprint grid. The grid origin sits at the road centre; points
// outside the footprint fall off the grid and do not count.
func (e *GridCoverageEngine) Predict(assets []types.PhysicsAsset, env types.EnvironmentCondition, params map[string]float64) (*Prediction, error) {
	p, err := e.trajectory.Predict(assets, env, params)
	if err != nil {
		return nil, err
	}

	roads := types.AssetsOfType(assets, types.AssetRoadSegment)
	if len(roads) == 0 {
		return p, nil
	}

	totalLength := 0.0
	totalWidth := 0.0
	for _, road := range roads {
		rp := types.RoadSegmentParamsFrom(road.Properties)
		totalLength += rp.Length
		totalWidth = math.Max(totalWidth, rp.Width)
	}

	nx := int(totalLength / e.resolution)
	if nx < 1 {
		nx = 1
	}
	ny := int(totalWidth / e.resolution)
	if ny < 1 {
		ny = 1
	}
	grid := make([]bool, nx*ny)

	splashCells := int(splashRadiusM / e.resolution)
	if splashCells < 1 {
		splashCells = 1
	}

	for _, pt := range p.LandingPoints {
		ix := int((pt.X + totalLength/2) / e.resolution)
		iy := int((pt.Y + totalWidth/2) / e.resolution)
		for dx := -splashCells; dx <= splashCells; dx++ {
			for dy := -splashCells; dy <= splashCells; dy++ {
				gx, gy := ix+dx, iy+dy
				if gx >= 0 && gx < nx && gy >= 0 && gy < ny {
					grid[gx*ny+gy] = true
				}
			}
		}
	}

	covered := 0
	for _, c := range grid {
		if c {
			covered++
		}
	}

	total := nx * ny
	gridCoverage := 0.0
	if total > 0 {
		gridCoverage = float64(covered) / float64(total)
	}

	p.GridCoverage = gridCoverage
	p.GridNX, p.GridNY = nx, ny
	p.CoveredCells = covered
	p.TotalCells = total
	p.CoverageRatio = gridCoverage
	return p, nil
}

// SafetyFactor is grid coverage over the KDS minimum coverage.
func (e *GridCoverageEngine) SafetyFactor(p *Prediction, _ types.EnvironmentCondition) float64 {
	return coverageSafetyFactor(p.GridCoverage)
}
