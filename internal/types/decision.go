package types

// SimulationInput is the request shape for one review run.
type SimulationInput struct {
	ProjectID          string               `json:"project_id"`
	SimulationType     SimulationType       `json:"simulation_type"`
	Assets             []PhysicsAsset       `json:"assets"`
	Environment        EnvironmentCondition `json:"environment"`
	SafetyFactorTarget float64              `json:"safety_factor_target"`
	MonteCarloN        int                  `json:"monte_carlo_n"`
	CalibrationParams  map[string]float64   `json:"calibration_params,omitempty"`
}

// DecisionDetails carries the Monte Carlo distribution statistics attached
// to a decision.
type DecisionDetails struct {
	StdSF        float64 `json:"std_sf"`
	MinSF        float64 `json:"min_sf"`
	MaxSF        float64 `json:"max_sf"`
	Percentile5  float64 `json:"percentile_5"`
	Percentile95 float64 `json:"percentile_95"`
}

// DecisionResult is the Judge's final decision. It is produced once per
// invocation and never mutated afterwards.
type DecisionResult struct {
	Verdict            Verdict         `json:"verdict"`
	FailureProbability float64         `json:"failure_probability"` // Pf, 0-1
	MeanSafetyFactor   float64         `json:"mean_safety_factor"`
	SafetyFactorTarget float64         `json:"safety_factor_target"`
	UCL95              float64         `json:"ucl_95"`
	MonteCarloN        int             `json:"monte_carlo_n"`
	Details            DecisionDetails `json:"details"`
	Reasoning          string          `json:"reasoning"`
}

// CalibrationResult reports the outcome of one calibration cycle.
type CalibrationResult struct {
	DriftPercentage    float64            `json:"drift_percentage"`
	CorrectionsApplied map[string]float64 `json:"corrections_applied"`
	NewPhysicsParams   map[string]float64 `json:"new_physics_params"`
	SensorReadingsUsed int                `json:"sensor_readings_used"`
	Status             string             `json:"status"` // "calibrated" or "insufficient_data"
}

// Calibration cycle status values.
const (
	CalibrationResultCalibrated       = "calibrated"
	CalibrationResultInsufficientData = "insufficient_data"
)

// FailureObservation is one finding from the rule-based judgment engine.
type FailureObservation struct {
	RuleID         string   `json:"rule_id"`
	Category       string   `json:"category"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	Evidence       string   `json:"evidence"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// JudgmentResult is the structured output of the rule-based judgment engine.
// Conditions is populated only for CONDITIONAL_PASS verdicts; Limitations
// always carries the fixed disclaimer strings.
type JudgmentResult struct {
	Verdict     JudgmentVerdict      `json:"verdict"`
	Confidence  float64              `json:"confidence"`
	Summary     string               `json:"summary"`
	Failures    []FailureObservation `json:"failures"`
	Conditions  []string             `json:"conditions"`
	Limitations []string             `json:"limitations"`
}
