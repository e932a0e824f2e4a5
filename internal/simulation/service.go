// Package simulation orchestrates one design review run end to end: the
// deterministic coverage simulation, the rule-based judgment, the optional
// Monte Carlo physics decision, report rendering, and artifact persistence.
package simulation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"brineguard/internal/calibration"
	"brineguard/internal/climate"
	"brineguard/internal/decision"
	"brineguard/internal/judgment"
	"brineguard/internal/montecarlo"
	"brineguard/internal/physics"
	"brineguard/internal/reports"
	"brineguard/internal/spraysim"
	"brineguard/internal/types"
)

// ProjectStore is the project persistence surface the service needs.
// Implemented by db.ProjectRepository.
type ProjectStore interface {
	GetByID(ctx context.Context, id string) (*types.ProjectRecord, error)
}

// RunStore is the run lifecycle persistence surface. Implemented by
// db.RunRepository.
type RunStore interface {
	Create(ctx context.Context, run *types.SimulationRun) error
	MarkRunning(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, run *types.SimulationRun) error
	MarkFailed(ctx context.Context, id, message string) error
}

// ArtifactStore uploads the audit artifact for a completed run.
// Implemented by reports.Store.
type ArtifactStore interface {
	Put(ctx context.Context, artifact *reports.Artifact) (string, error)
}

// OutcomeRecorder publishes one datum per completed run with its verdict.
// Implemented by core.CloudWatchMetrics.
type OutcomeRecorder interface {
	RecordRunOutcome(ctx context.Context, verdict string)
}

// Request is one review run request.
type Request struct {
	ProjectID      string               `json:"project_id"`
	SimulationType types.SimulationType `json:"simulation_type,omitempty"`
	ClimatePreset  string               `json:"climate_preset"`
	Seed           uint64               `json:"seed,omitempty"`
	MonteCarloN    int                  `json:"monte_carlo_n,omitempty"`
}

// Config tunes the review pipeline. Zero values select the documented
// defaults.
type Config struct {
	ResolutionM        float64
	SafetyFactorTarget float64
	MaxMonteCarloN     int
}

// Service runs review pipelines against stored projects.
type Service struct {
	projects  ProjectStore
	runs      RunStore
	artifacts ArtifactStore
	states    calibration.StateRepository
	metrics   OutcomeRecorder
	cfg       Config
	logger    *slog.Logger
}

// NewService creates a review service. The artifact store and calibration
// state repository are optional; a nil artifact store skips artifact upload
// and a nil state repository runs physics with factory parameters.
func NewService(projects ProjectStore, runs RunStore, artifacts ArtifactStore, states calibration.StateRepository, logger *slog.Logger, cfg Config) *Service {
	if cfg.ResolutionM <= 0 {
		cfg.ResolutionM = spraysim.DefaultResolutionM
	}
	if cfg.SafetyFactorTarget <= 0 {
		cfg.SafetyFactorTarget = physics.PassSafetyFactorTarget
	}
	if cfg.MaxMonteCarloN <= 0 {
		cfg.MaxMonteCarloN = 100000
	}
	return &Service{
		projects:  projects,
		runs:      runs,
		artifacts: artifacts,
		states:    states,
		cfg:       cfg,
		logger:    logger,
	}
}

// SetMetrics attaches an outcome recorder. A nil recorder disables
// emission; the pipeline itself never depends on it.
func (s *Service) SetMetrics(m OutcomeRecorder) {
	s.metrics = m
}

func (s *Service) validate(req Request) error {
	if req.ProjectID == "" {
		return types.NewAppError(types.ErrCodeValidationMissingField, "project_id is required", nil)
	}
	if req.MonteCarloN < 0 || req.MonteCarloN > s.cfg.MaxMonteCarloN {
		return types.NewAppError(types.ErrCodeValidationSampleCount,
			fmt.Sprintf("monte_carlo_n must be between 0 and %d", s.cfg.MaxMonteCarloN), nil)
	}
	if req.SimulationType != "" {
		if _, err := physics.ForType(req.SimulationType, 0); err != nil {
			return err
		}
	}
	return nil
}

// Review runs one full review: validate, record the run, execute the
// pipeline, and persist the results. Design validation failures surface
// before any run record exists; pipeline failures are recorded on the run
// and returned.
func (s *Service) Review(ctx context.Context, req Request) (*types.SimulationRun, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	rec, err := s.projects.GetByID(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if rec.Design == nil {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "project has no design", nil)
	}
	if len(rec.Design.RoadSegments) == 0 {
		return nil, types.NewAppError(types.ErrCodeValidationNoRoadSegments, "design has no road segments", nil)
	}
	if len(rec.Design.SprayDevices) == 0 {
		return nil, types.NewAppError(types.ErrCodeValidationNoSprayDevices, "design has no spray devices", nil)
	}

	if req.Seed == 0 {
		req.Seed = montecarlo.DefaultSeed
	}

	run := &types.SimulationRun{
		ProjectID:      rec.ID,
		SimulationType: req.SimulationType,
		ClimatePreset:  req.ClimatePreset,
		Seed:           req.Seed,
		MonteCarloN:    req.MonteCarloN,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, err
	}
	if err := s.runs.MarkRunning(ctx, run.ID); err != nil {
		return nil, err
	}

	verdict, err := s.execute(ctx, run, rec)
	if err != nil {
		if markErr := s.runs.MarkFailed(ctx, run.ID, err.Error()); markErr != nil {
			s.logger.ErrorContext(ctx, "failed to record run failure",
				slog.String("run_id", run.ID), slog.Any("error", markErr))
		}
		return nil, err
	}

	if err := s.runs.MarkCompleted(ctx, run); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordRunOutcome(ctx, verdict)
	}

	s.logger.InfoContext(ctx, "review run completed",
		slog.String("run_id", run.ID),
		slog.String("project_id", rec.ID),
		slog.String("simulation_type", string(run.SimulationType)),
	)
	return run, nil
}

// execute runs the pipeline and fills the run record. It returns the
// verdict of the run, taken from the Monte Carlo decision when one was
// made and from the rule judgment otherwise.
func (s *Service) execute(ctx context.Context, run *types.SimulationRun, rec *types.ProjectRecord) (string, error) {
	env := BuildContext(rec, run.ClimatePreset, time.Now().UTC(), s.logger)

	sim, err := spraysim.Run(rec.Design, env, s.cfg.ResolutionM)
	if err != nil {
		return "", err
	}
	judg := judgment.Evaluate(rec.Design, env, sim)
	verdict := string(judg.Verdict)

	var dec *types.DecisionResult
	if run.SimulationType != "" {
		dec, err = s.decide(ctx, run, rec, env)
		if err != nil {
			return "", err
		}
		verdict = string(dec.Verdict)
	}

	report := reports.Generate(rec.Design, env, sim, judg, time.Now().UTC())

	if run.SimResult, err = json.Marshal(sim); err != nil {
		return "", types.NewAppError(types.ErrCodeInternalSimulation, "encoding simulation result", err)
	}
	if run.Judgment, err = json.Marshal(judg); err != nil {
		return "", types.NewAppError(types.ErrCodeInternalSimulation, "encoding judgment result", err)
	}
	if dec != nil {
		if run.Decision, err = json.Marshal(dec); err != nil {
			return "", types.NewAppError(types.ErrCodeInternalSimulation, "encoding decision result", err)
		}
	}
	run.ReportText = report

	if s.artifacts != nil {
		key, err := s.artifacts.Put(ctx, &reports.Artifact{
			RunID:       run.ID,
			ProjectID:   rec.ID,
			GeneratedAt: time.Now().UTC(),
			Environment: env,
			Simulation:  sim,
			Judgment:    judg,
			Decision:    dec,
			ReportText:  report,
		})
		if err != nil {
			// The verdict and report are already durable in the run
			// record; a missing audit copy is not worth failing the run.
			s.logger.WarnContext(ctx, "artifact upload failed",
				slog.String("run_id", run.ID), slog.Any("error", err))
		} else {
			run.ArtifactKey = key
		}
	}
	return verdict, nil
}

func (s *Service) decide(ctx context.Context, run *types.SimulationRun, rec *types.ProjectRecord, env climate.Context) (*types.DecisionResult, error) {
	engine, err := physics.ForType(run.SimulationType, run.Seed)
	if err != nil {
		return nil, err
	}

	var params map[string]float64
	if s.states != nil {
		state, err := s.states.Get(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		if state != nil {
			params = state.PhysicsParams
		}
	}

	mc := montecarlo.New(engine, run.MonteCarloN)
	judge := decision.NewJudge(mc, s.cfg.SafetyFactorTarget)
	return judge.Decide(ctx, rec.Design.PhysicsAssets(), baseEnvironment(env), params, run.Seed)
}
