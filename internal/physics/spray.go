package physics

import (
	"math"
	"math/rand/v2"

	"brineguard/internal/types"
)

// Trajectory integration parameters.
const (
	trajectoryStep     = 0.001 // s
	trajectoryMaxTime  = 5.0   // s
	dropletsPerDevice  = 50
	launchElevationDeg = 30.0

	// coverageFillFactor is the empirical fill ratio applied to the landing
	// bounding box. A calibration knob, not a physical constant.
	coverageFillFactor = 0.7
)

// TrajectoryEngine models brine spray as ballistic droplet trajectories with
// gravity, quadratic aerodynamic drag, and wind advection, integrated with
// fixed-step explicit Euler. Droplet diameters are sampled from a log-normal
// distribution around 30% of the nozzle diameter.
type TrajectoryEngine struct {
	rng *rand.Rand
}

// NewTrajectoryEngine creates a trajectory engine seeded with the given seed.
func NewTrajectoryEngine(seed uint64) *TrajectoryEngine {
	return &TrajectoryEngine{rng: newPCG(seed)}
}

// Reseed resets the droplet-size generator. Called by the Monte Carlo engine
// at the start of each run so one seed fixes the whole run.
func (e *TrajectoryEngine) Reseed(seed uint64) {
	e.rng = newPCG(seed)
}

// sprayVelocity computes nozzle exit velocity from pump pressure via the
// Bernoulli relation v = Cv*sqrt(2P/rho).
func sprayVelocity(pressure, density float64) float64 {
	return SprayVelocityCoeff * math.Sqrt(2.0*pressure/density)
}

// dropletLanding integrates a single droplet trajectory and returns the
// landing position as (distance along spray axis, lateral drift). The
// droplet launches at launchElevationDeg above horizontal from the mounting
// height and the integration stops at ground contact or the time cap.
func dropletLanding(v0, heightM, windSpeed, windAngleRad, dropletDiameter float64) (float64, float64) {
	angleRad := launchElevationDeg * math.Pi / 180.0

	vx := v0 * math.Cos(angleRad)
	vy := 0.0
	vz := v0 * math.Sin(angleRad)
	x, y, z := 0.0, 0.0, heightM

	mass := (math.Pi / 6.0) * dropletDiameter * dropletDiameter * dropletDiameter * BrineDensity23Pct
	area := (math.Pi / 4.0) * dropletDiameter * dropletDiameter

	wx := windSpeed * math.Cos(windAngleRad)
	wy := windSpeed * math.Sin(windAngleRad)

	for t := 0.0; t < trajectoryMaxTime && z > 0; t += trajectoryStep {
		relVX := vx - wx
		relVY := vy - wy
		relVZ := vz
		relSpeed := math.Sqrt(relVX*relVX + relVY*relVY + relVZ*relVZ)

		var ax, ay, az float64
		if relSpeed > 0 {
			drag := 0.5 * AirDensity * DropletDragCoeff * area * relSpeed
			ax = -drag * relVX / (mass * relSpeed)
			ay = -drag * relVY / (mass * relSpeed)
			az = -Gravity - drag*relVZ/(mass*relSpeed)
		} else {
			az = -Gravity
		}

		vx += ax * trajectoryStep
		vy += ay * trajectoryStep
		vz += az * trajectoryStep
		x += vx * trajectoryStep
		y += vy * trajectoryStep
		z += vz * trajectoryStep
	}

	return x, y
}

// Predict computes the spray coverage pattern for all spray devices in the
// asset list against the combined road area.
func (e *TrajectoryEngine) Predict(assets []types.PhysicsAsset, env types.EnvironmentCondition, params map[string]float64) (*Prediction, error) {
	devices := types.AssetsOfType(assets, types.AssetSprayDevice)
	roads := types.AssetsOfType(assets, types.AssetRoadSegment)

	if len(devices) == 0 {
		return &Prediction{}, nil
	}

	totalRoadArea := 0.0
	for _, road := range roads {
		rp := types.RoadSegmentParamsFrom(road.Properties)
		totalRoadArea += rp.Length * rp.Width
	}

	windAngleRad := env.WindDirection * math.Pi / 180.0
	var landings []LandingPoint
	var v0 float64

	for _, device := range devices {
		dp := types.SprayDeviceParamsFrom(device.Properties)

		v0 = sprayVelocity(dp.PumpPressure, BrineDensity23Pct)
		halfAngle := (dp.SprayAngle / 2.0) * math.Pi / 180.0
		orientationRad := dp.Orientation * math.Pi / 180.0

		// Log-normal droplet size distribution around 30% of the nozzle bore.
		logMean := math.Log(dp.NozzleDiameter * 0.3)
		const logSigma = 0.3

		for i := 0; i < dropletsPerDevice; i++ {
			diameter := math.Exp(logMean + logSigma*e.rng.NormFloat64())

			angleOffset := -halfAngle + 2*halfAngle*(float64(i)/float64(dropletsPerDevice-1))
			sprayAngle := orientationRad + angleOffset

			x, y := dropletLanding(v0, dp.MountingHeight, env.WindSpeed, windAngleRad, diameter)

			cosA, sinA := math.Cos(sprayAngle), math.Sin(sprayAngle)
			landings = append(landings, LandingPoint{
				X: x*cosA - y*sinA,
				Y: x*sinA + y*cosA,
			})
		}
	}

	// Bounding-box coverage estimate with the empirical fill factor.
	coverageArea := 0.0
	if len(landings) > 0 {
		minX, maxX := landings[0].X, landings[0].X
		minY, maxY := landings[0].Y, landings[0].Y
		for _, p := range landings[1:] {
			minX = math.Min(minX, p.X)
			maxX = math.Max(maxX, p.X)
			minY = math.Min(minY, p.Y)
			maxY = math.Max(maxY, p.Y)
		}
		coverageArea = (maxX - minX) * (maxY - minY) * coverageFillFactor
	}

	coverageRatio := 0.0
	if totalRoadArea > 0 {
		coverageRatio = math.Min(coverageArea/totalRoadArea, 1.0)
	}

	if corr, ok := params["coverage_correction"]; ok {
		coverageRatio *= 1.0 + corr
		coverageRatio = math.Min(math.Max(coverageRatio, 0.0), 1.0)
	}

	return &Prediction{
		LandingPoints: landings,
		CoverageRatio: coverageRatio,
		CoverageArea:  coverageArea,
		TotalRoadArea: totalRoadArea,
		SprayVelocity: v0,
	}, nil
}

// SafetyFactor is actual coverage over the KDS minimum coverage.
func (e *TrajectoryEngine) SafetyFactor(p *Prediction, _ types.EnvironmentCondition) float64 {
	return coverageSafetyFactor(p.CoverageRatio)
}

// coverageSafetyFactor is SF = coverage / required, shared by the trajectory
// and grid engines. A zero requirement is unbounded capacity.
func coverageSafetyFactor(coverage float64) float64 {
	const required = KDSMinBrineCoverage
	if required <= 0 {
		return math.Inf(1)
	}
	return coverage / required
}
