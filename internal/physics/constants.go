// Package physics implements the interchangeable physics engines behind the
// review pipeline: spray-trajectory, grid-coverage, and thermal. Each engine
// maps (assets, environment, calibrated params) to a prediction bundle and
// reduces that bundle to a safety factor.
package physics

// Physical constants.
const (
	Gravity           = 9.81    // m/s^2
	AirDensity        = 1.225   // kg/m^3 at 15 degC, sea level
	WaterDensity      = 1000.0  // kg/m^3
	BrineDensity23Pct = 1170.0  // kg/m^3, 23% NaCl solution
	StefanBoltzmann   = 5.67e-8 // W/(m^2*K^4)

	// NaCl brine properties.
	NaClEutecticTempC   = -21.1 // degC
	NaClEutecticConcPct = 23.3  // % weight

	// Drag coefficient for small spherical droplets.
	DropletDragCoeff = 0.44

	// SprayVelocityCoeff is the nozzle discharge coefficient Cv in the
	// Bernoulli relation v = Cv*sqrt(2P/rho).
	SprayVelocityCoeff = 0.95
)

// KDS (Korean Design Standards) thresholds, KDS 24 10 10.
const (
	KDSMinSafetyFactor  = 1.5
	KDSMinBrineCoverage = 0.85 // minimum coverage ratio
)

// Temperature thresholds.
const (
	FreezingPointWater = 0.0 // degC
	IceWarningTempC    = 3.0 // degC, warn when surface temp drops below
)

// Decision thresholds shared with the Judge.
const (
	DefaultMonteCarloN       = 1000
	FailProbabilityThreshold = 0.20 // Pf >= 20% is a FAIL
	FailSafetyFactor         = 1.0  // mean SF < 1.0 is a FAIL
	PassSafetyFactorTarget   = 1.5
)

// Calibration thresholds.
const (
	DriftThresholdPct     = 5.0 // recalibrate when drift exceeds 5%
	DriftSustainedMinutes = 10  // ... sustained for 10 consecutive entries
	DefaultLearningRate   = 0.1
)
