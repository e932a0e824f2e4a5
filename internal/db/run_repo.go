package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"brineguard/internal/types"
)

// RunRepository provides data access for the simulation_runs table.
type RunRepository struct {
	db DBTX
}

// NewRunRepository creates a new RunRepository backed by the given database
// connection (pool or transaction).
func NewRunRepository(db DBTX) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `r.id, r.project_id, r.simulation_type, r.climate_preset, r.seed,
	r.monte_carlo_n, r.status, r.sim_result, r.judgment, r.decision, r.report_text,
	r.artifact_key, r.error_message, r.created_at, r.started_at, r.completed_at`

func scanRun(row pgx.Row) (*types.SimulationRun, error) {
	var run types.SimulationRun
	err := row.Scan(
		&run.ID,
		&run.ProjectID,
		&run.SimulationType,
		&run.ClimatePreset,
		&run.Seed,
		&run.MonteCarloN,
		&run.Status,
		&run.SimResult,
		&run.Judgment,
		&run.Decision,
		&run.ReportText,
		&run.ArtifactKey,
		&run.ErrorMessage,
		&run.CreatedAt,
		&run.StartedAt,
		&run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Create inserts a new run in the queued state. A missing ID is generated.
func (r *RunRepository) Create(ctx context.Context, run *types.SimulationRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	run.Status = types.RunQueued
	run.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(ctx, `
		INSERT INTO simulation_runs (id, project_id, simulation_type, climate_preset, seed, monte_carlo_n, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.ProjectID, run.SimulationType, run.ClimatePreset, run.Seed, run.MonteCarloN, run.Status, run.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "inserting run", err)
	}
	return nil
}

// MarkRunning transitions a queued run to running and stamps started_at.
func (r *RunRepository) MarkRunning(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE simulation_runs SET status = $2, started_at = $3 WHERE id = $1`,
		id, types.RunRunning, time.Now().UTC(),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "marking run running", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundRun, "run not found", nil)
	}
	return nil
}

// MarkCompleted stores the run's results and transitions it to completed.
func (r *RunRepository) MarkCompleted(ctx context.Context, run *types.SimulationRun) error {
	now := time.Now().UTC()
	tag, err := r.db.Exec(ctx, `
		UPDATE simulation_runs
		SET status = $2, sim_result = $3, judgment = $4, decision = $5,
			report_text = $6, artifact_key = $7, completed_at = $8
		WHERE id = $1`,
		run.ID, types.RunCompleted, run.SimResult, run.Judgment, run.Decision,
		run.ReportText, run.ArtifactKey, now,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "marking run completed", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundRun, "run not found", nil)
	}
	run.Status = types.RunCompleted
	run.CompletedAt = &now
	return nil
}

// MarkFailed records the failure message and transitions the run to failed.
func (r *RunRepository) MarkFailed(ctx context.Context, id, message string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE simulation_runs SET status = $2, error_message = $3, completed_at = $4 WHERE id = $1`,
		id, types.RunFailed, message, time.Now().UTC(),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "marking run failed", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeNotFoundRun, "run not found", nil)
	}
	return nil
}

// GetByID fetches one run with its stored results.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*types.SimulationRun, error) {
	row := r.db.QueryRow(ctx, `SELECT `+runColumns+` FROM simulation_runs r WHERE r.id = $1`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundRun, "run not found", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "fetching run", err)
	}
	return run, nil
}

// ListByProject returns a project's runs, newest first.
func (r *RunRepository) ListByProject(ctx context.Context, projectID string, limit int) ([]*types.SimulationRun, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+runColumns+`
		FROM simulation_runs r
		WHERE r.project_id = $1
		ORDER BY r.created_at DESC
		LIMIT $2`,
		projectID, limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "listing runs", err)
	}
	defer rows.Close()

	var out []*types.SimulationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "scanning run row", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "iterating run rows", err)
	}
	return out, nil
}

// LatestCompleted returns the most recent completed run for a project.
func (r *RunRepository) LatestCompleted(ctx context.Context, projectID string) (*types.SimulationRun, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+runColumns+`
		FROM simulation_runs r
		WHERE r.project_id = $1 AND r.status = $2
		ORDER BY r.completed_at DESC
		LIMIT 1`,
		projectID, types.RunCompleted,
	)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundRun, "no completed run for project", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "fetching latest run", err)
	}
	return run, nil
}
