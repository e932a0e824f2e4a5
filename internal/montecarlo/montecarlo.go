// Package montecarlo propagates environmental uncertainty through a physics
// engine. It samples N perturbed environments from a base condition, runs
// the engine once per sample, and aggregates the safety-factor distribution
// into summary statistics.
package montecarlo

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"brineguard/internal/physics"
	"brineguard/internal/types"
)

// Perturbation standard deviations applied to the base environment. The
// measured road surface temperature, when present, is carried through
// unchanged.
const (
	sigmaTemperature   = 2.0
	sigmaHumidity      = 10.0
	sigmaWindSpeed     = 1.5
	sigmaWindDirection = 15.0
	sigmaPrecipitation = 0.5
	sigmaSolar         = 50.0
)

// DefaultSeed is the seed used when the caller does not supply one.
const DefaultSeed = 42

// Result holds the aggregated safety-factor distribution of one run.
type Result struct {
	SafetyFactors      []float64 `json:"safety_factors"`
	MeanSF             float64   `json:"mean_sf"`
	StdSF              float64   `json:"std_sf"`
	FailureProbability float64   `json:"failure_probability"`
	UCL95              float64   `json:"ucl_95"`
	NSamples           int       `json:"n_samples"`
	MinSF              float64   `json:"min_sf"`
	MaxSF              float64   `json:"max_sf"`
	Percentile5        float64   `json:"percentile_5"`
	Percentile95       float64   `json:"percentile_95"`
}

// Engine runs Monte Carlo batches against one physics engine. An Engine
// instance (and its physics engine) must not be shared across concurrent
// runs: each run reseeds and owns the generator state.
type Engine struct {
	physics  physics.Engine
	nSamples int
}

// New creates a Monte Carlo engine driving the given physics engine with
// nSamples samples per run. Non-positive sample counts fall back to the
// default of 1000.
func New(p physics.Engine, nSamples int) *Engine {
	if nSamples <= 0 {
		nSamples = physics.DefaultMonteCarloN
	}
	return &Engine{physics: p, nSamples: nSamples}
}

// NSamples returns the configured sample count.
func (e *Engine) NSamples() int { return e.nSamples }

// sampleEnvironments draws nSamples perturbed copies of the base condition
// from the given generator. Humidity is clipped to [0,100]; wind speed,
// precipitation, and solar radiation are floored at zero; wind direction
// wraps mod 360.
func (e *Engine) sampleEnvironments(base types.EnvironmentCondition, rng *rand.Rand) []types.EnvironmentCondition {
	samples := make([]types.EnvironmentCondition, e.nSamples)
	for i := range samples {
		wrapped := math.Mod(base.WindDirection+sigmaWindDirection*rng.NormFloat64(), 360.0)
		if wrapped < 0 {
			wrapped += 360.0
		}
		samples[i] = types.EnvironmentCondition{
			Temperature:     base.Temperature + sigmaTemperature*rng.NormFloat64(),
			Humidity:        clamp(base.Humidity+sigmaHumidity*rng.NormFloat64(), 0, 100),
			WindSpeed:       math.Max(0, base.WindSpeed+sigmaWindSpeed*rng.NormFloat64()),
			WindDirection:   wrapped,
			Precipitation:   math.Max(0, base.Precipitation+sigmaPrecipitation*rng.NormFloat64()),
			SolarRadiation:  math.Max(0, base.SolarRadiation+sigmaSolar*rng.NormFloat64()),
			RoadSurfaceTemp: base.RoadSurfaceTemp,
		}
	}
	return samples
}

// Run executes the Monte Carlo batch. The same seed with identical inputs
// reproduces bit-identical statistics: environment sampling and the physics
// engine's internal droplet sampling are both seeded from it.
//
// A physics engine failure in one sample records that sample's safety
// factor as 0.0 and the batch continues. Context cancellation (the caller's
// wall-clock budget) aborts the whole run with the context error.
func (e *Engine) Run(ctx context.Context, assets []types.PhysicsAsset, base types.EnvironmentCondition, params map[string]float64, seed uint64) (*Result, error) {
	rng := rand.New(rand.NewPCG(seed, seed))
	if r, ok := e.physics.(physics.Reseedable); ok {
		r.Reseed(seed)
	}

	envs := e.sampleEnvironments(base, rng)
	factors := make([]float64, 0, e.nSamples)

	for _, env := range envs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("monte carlo batch aborted after %d/%d samples: %w", len(factors), e.nSamples, err)
		}
		factors = append(factors, e.sampleSafetyFactor(assets, env, params))
	}

	return aggregate(factors), nil
}

// sampleSafetyFactor evaluates one sample, converting engine errors and
// panics into a zero safety factor (sample-local failure).
func (e *Engine) sampleSafetyFactor(assets []types.PhysicsAsset, env types.EnvironmentCondition, params map[string]float64) (sf float64) {
	defer func() {
		if recover() != nil {
			sf = 0.0
		}
	}()
	prediction, err := e.physics.Predict(assets, env, params)
	if err != nil {
		return 0.0
	}
	return e.physics.SafetyFactor(prediction, env)
}

// aggregate reduces the safety-factor samples to the summary statistics:
// mean, population standard deviation, extrema, linearly interpolated 5th
// and 95th percentiles, failure probability (fraction below SF 1.0), and
// the Gaussian 95% upper confidence limit mean + 1.96*std.
func aggregate(factors []float64) *Result {
	n := float64(len(factors))

	sum := 0.0
	failures := 0
	minSF, maxSF := math.Inf(1), math.Inf(-1)
	for _, sf := range factors {
		sum += sf
		if sf < 1.0 {
			failures++
		}
		minSF = math.Min(minSF, sf)
		maxSF = math.Max(maxSF, sf)
	}
	mean := sum / n

	variance := 0.0
	for _, sf := range factors {
		d := sf - mean
		variance += d * d
	}
	std := math.Sqrt(variance / n)

	sorted := make([]float64, len(factors))
	copy(sorted, factors)
	sort.Float64s(sorted)

	return &Result{
		SafetyFactors:      factors,
		MeanSF:             mean,
		StdSF:              std,
		FailureProbability: float64(failures) / n,
		UCL95:              mean + 1.96*std,
		NSamples:           len(factors),
		MinSF:              minSF,
		MaxSF:              maxSF,
		Percentile5:        percentile(sorted, 5),
		Percentile95:       percentile(sorted, 95),
	}
}

// percentile computes the q-th percentile of a sorted sample using linear
// interpolation between closest ranks.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := q / 100.0 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
