// Package decision classifies Monte Carlo safety-factor distributions into
// PASS / WARNING / FAIL verdicts with a human-readable reasoning line.
package decision

import (
	"context"
	"fmt"

	"brineguard/internal/montecarlo"
	"brineguard/internal/physics"
	"brineguard/internal/types"
)

// Judge wraps a Monte Carlo engine and applies the verdict thresholds to
// its output.
type Judge struct {
	mc     *montecarlo.Engine
	target float64
}

// NewJudge creates a judge around the given Monte Carlo engine. A
// non-positive target falls back to the KDS design target of 1.5.
func NewJudge(mc *montecarlo.Engine, safetyFactorTarget float64) *Judge {
	if safetyFactorTarget <= 0 {
		safetyFactorTarget = physics.PassSafetyFactorTarget
	}
	return &Judge{mc: mc, target: safetyFactorTarget}
}

// Decide runs the Monte Carlo batch and classifies the result.
//
// FAIL when failure probability reaches 20% or the mean safety factor drops
// below 1.0. WARNING when the mean misses the target or the 95% upper
// confidence limit exceeds 1.5x the target, signalling tail risk. PASS
// otherwise.
func (j *Judge) Decide(ctx context.Context, assets []types.PhysicsAsset, env types.EnvironmentCondition, params map[string]float64, seed uint64) (*types.DecisionResult, error) {
	mcResult, err := j.mc.Run(ctx, assets, env, params, seed)
	if err != nil {
		return nil, err
	}
	return j.Classify(mcResult), nil
}

// Classify applies the verdict thresholds to an already-computed Monte
// Carlo result.
func (j *Judge) Classify(mc *montecarlo.Result) *types.DecisionResult {
	pf := mc.FailureProbability
	meanSF := mc.MeanSF
	ucl95 := mc.UCL95

	var verdict types.Verdict
	var reasoning string

	switch {
	case pf >= physics.FailProbabilityThreshold || meanSF < physics.FailSafetyFactor:
		verdict = types.VerdictFail
		reasoning = fmt.Sprintf(
			"FAIL: Failure probability %.1f%% (threshold: %.0f%%), Mean SF = %.2f (minimum: %.1f)",
			pf*100, physics.FailProbabilityThreshold*100, meanSF, physics.FailSafetyFactor,
		)
	case meanSF < j.target || ucl95 > j.target*1.5:
		verdict = types.VerdictWarning
		reasoning = fmt.Sprintf(
			"WARNING: Mean SF = %.2f is below target %.1f, or 95%% UCL = %.2f indicates tail risk. Conditional risk detected.",
			meanSF, j.target, ucl95,
		)
	default:
		verdict = types.VerdictPass
		reasoning = fmt.Sprintf(
			"PASS: Mean SF = %.2f >= target %.1f, Failure probability = %.1f%% < %.0f%%. All scenarios within safety limits.",
			meanSF, j.target, pf*100, physics.FailProbabilityThreshold*100,
		)
	}

	return &types.DecisionResult{
		Verdict:            verdict,
		FailureProbability: pf,
		MeanSafetyFactor:   meanSF,
		SafetyFactorTarget: j.target,
		UCL95:              ucl95,
		MonteCarloN:        mc.NSamples,
		Details: types.DecisionDetails{
			StdSF:        mc.StdSF,
			MinSF:        mc.MinSF,
			MaxSF:        mc.MaxSF,
			Percentile5:  mc.Percentile5,
			Percentile95: mc.Percentile95,
		},
		Reasoning: reasoning,
	}
}
