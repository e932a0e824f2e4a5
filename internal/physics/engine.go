package physics

import (
	"fmt"
	"math/rand/v2"

	"brineguard/internal/types"
)

// LandingPoint is the ground contact position of one simulated droplet in
// the road coordinate frame.
type LandingPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Prediction is the bundle an engine produces from one Predict call. Fields
// are engine-specific; an engine fills only the fields it computes and its
// SafetyFactor method reads only those back.
type Prediction struct {
	// Spray-trajectory and grid-coverage fields.
	LandingPoints     []LandingPoint `json:"landing_points,omitempty"`
	CoverageRatio     float64        `json:"coverage_ratio"`
	CoverageArea      float64        `json:"total_coverage_area"`
	TotalRoadArea     float64        `json:"total_road_area"`
	SprayVelocity     float64        `json:"spray_velocity"`
	GridCoverage      float64        `json:"grid_coverage"`
	GridNX, GridNY    int            `json:"-"`
	CoveredCells      int            `json:"covered_cells,omitempty"`
	TotalCells        int            `json:"total_cells,omitempty"`

	// Thermal fields.
	SurfaceTemperature float64 `json:"surface_temperature"`
	AirTemperature     float64 `json:"air_temperature"`
	FreezingPoint      float64 `json:"freezing_point"`
	FreezingDepression float64 `json:"freezing_point_depression"`
	BrineConcentration float64 `json:"brine_concentration"`
	IsIcing            bool    `json:"is_icing"`
	IsWarning          bool    `json:"is_warning"`
	TemperatureMargin  float64 `json:"temperature_margin"`
	ConvectiveCoeff    float64 `json:"convective_coeff"`
}

// Engine is the contract every physics engine implements.
//
// Predict must be deterministic given identical inputs and generator state,
// must never fail because an optional asset property is absent (documented
// defaults are substituted), and must not mutate its inputs.
//
// SafetyFactor reduces a prediction to a capacity/demand ratio. It returns a
// non-negative value, or +Inf when the required demand is zero.
type Engine interface {
	Predict(assets []types.PhysicsAsset, env types.EnvironmentCondition, params map[string]float64) (*Prediction, error)
	SafetyFactor(p *Prediction, env types.EnvironmentCondition) float64
}

// Reseedable is implemented by engines that draw internal random samples
// (droplet diameters). Callers that need end-to-end reproducibility reseed
// the engine before a run; the Monte Carlo engine does this from its own
// seed so one seed fixes the entire run.
type Reseedable interface {
	Reseed(seed uint64)
}

// newPCG returns the fixed pseudo-random generator used across the pipeline.
// PCG plus NormFloat64 is the pinned sampling algorithm: changing either
// breaks cross-run reproducibility of recorded results.
func newPCG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// ForType returns a fresh engine for the requested simulation type, seeded
// with the given seed. Engine instances are cheap; callers create one per
// run and must not share instances across concurrent runs.
func ForType(t types.SimulationType, seed uint64) (Engine, error) {
	switch t {
	case types.SimulationFluid:
		return NewTrajectoryEngine(seed), nil
	case types.SimulationSaltSpray:
		return NewGridCoverageEngine(DefaultGridResolution, seed), nil
	case types.SimulationThermal:
		return NewThermalEngine(), nil
	default:
		return nil, types.NewAppError(types.ErrCodeValidationSimType,
			fmt.Sprintf("no physics engine for simulation type %q", t), nil)
	}
}
