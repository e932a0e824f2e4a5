package types

// AssetType identifies the kind of physical asset a record describes.
type AssetType string

const (
	AssetRoadSegment  AssetType = "road_segment"
	AssetSprayDevice  AssetType = "spray_device"
	AssetSupplySystem AssetType = "supply_system"
	AssetBridgePier   AssetType = "bridge_pier"
	AssetJetFan       AssetType = "jet_fan"
	AssetCurb         AssetType = "curb"
)

// Verdict is the outcome of a Monte Carlo decision run.
type Verdict string

const (
	VerdictPass    Verdict = "PASS"
	VerdictWarning Verdict = "WARNING"
	VerdictFail    Verdict = "FAIL"
)

// JudgmentVerdict is the outcome of the rule-based judgment engine.
// It differs from Verdict in that the middle state is a conditional
// pass with attached conditions rather than a statistical warning.
type JudgmentVerdict string

const (
	JudgmentPass            JudgmentVerdict = "PASS"
	JudgmentFail            JudgmentVerdict = "FAIL"
	JudgmentConditionalPass JudgmentVerdict = "CONDITIONAL_PASS"
)

// Severity grades a failure observation from the rule engine.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// SimulationType selects which physics engine drives a review run.
type SimulationType string

const (
	SimulationSaltSpray  SimulationType = "salt_spray"
	SimulationThermal    SimulationType = "thermal"
	SimulationStructural SimulationType = "structural"
	SimulationFluid      SimulationType = "fluid"
)

// SensorType identifies the physical quantity a sensor stream reports.
type SensorType string

const (
	SensorTemperature   SensorType = "temperature"
	SensorHumidity      SensorType = "humidity"
	SensorWindSpeed     SensorType = "wind_speed"
	SensorWindDirection SensorType = "wind_direction"
	SensorStrain        SensorType = "strain"
	SensorDisplacement  SensorType = "displacement"
	SensorPressure      SensorType = "pressure"
	SensorFlowRate      SensorType = "flow_rate"
)

// CalibrationStatus is the lifecycle state of an asset's calibration.
type CalibrationStatus string

const (
	CalibrationUncalibrated  CalibrationStatus = "uncalibrated"
	CalibrationCalibrated    CalibrationStatus = "calibrated"
	CalibrationDrifting      CalibrationStatus = "drifting"
	CalibrationRecalibrating CalibrationStatus = "recalibrating"
)

// RunStatus tracks a simulation run record through its lifecycle.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RoadType classifies the geometry of a road segment.
type RoadType string

const (
	RoadStraight     RoadType = "straight"
	RoadCurve        RoadType = "curve"
	RoadBridge       RoadType = "bridge"
	RoadOverpass     RoadType = "overpass"
	RoadUnderpass    RoadType = "underpass"
	RoadRamp         RoadType = "ramp"
	RoadIntersection RoadType = "intersection"
)

// SurfaceMaterial is the road surface material.
type SurfaceMaterial string

const (
	SurfaceAsphalt   SurfaceMaterial = "asphalt"
	SurfaceConcrete  SurfaceMaterial = "concrete"
	SurfaceSteelDeck SurfaceMaterial = "steel_deck"
)

// SprayPattern is the nozzle spray geometry of a brine spray device.
type SprayPattern string

const (
	PatternLinear     SprayPattern = "linear"
	PatternFan        SprayPattern = "fan"
	PatternFullCircle SprayPattern = "full_circle"
)

// InstallationType describes how a spray device is mounted.
type InstallationType string

const (
	InstallSurfaceMounted InstallationType = "surface_mounted"
	InstallFlushMounted   InstallationType = "flush_mounted"
	InstallBuried         InstallationType = "buried"
)

// ImputationMethod records how a missing sensor value was filled.
type ImputationMethod string

const (
	ImputePhysics      ImputationMethod = "physics"
	ImputeFallbackMean ImputationMethod = "fallback_mean"
	ImputeMean         ImputationMethod = "mean"
)
