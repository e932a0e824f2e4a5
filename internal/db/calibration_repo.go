package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"brineguard/internal/types"
)

// CalibrationStateRepository provides data access for the calibration_states
// table. It satisfies calibration.StateRepository.
type CalibrationStateRepository struct {
	db DBTX
}

// NewCalibrationStateRepository creates a new CalibrationStateRepository
// backed by the given database connection (pool or transaction).
func NewCalibrationStateRepository(db DBTX) *CalibrationStateRepository {
	return &CalibrationStateRepository{db: db}
}

// Get fetches the calibration state for an asset. A missing row returns
// (nil, nil); the calibration service synthesizes an uncalibrated record.
func (r *CalibrationStateRepository) Get(ctx context.Context, assetID string) (*types.CalibrationState, error) {
	row := r.db.QueryRow(ctx, `
		SELECT c.asset_id, c.physics_params, c.drift_history, c.last_calibrated_at, c.calibration_count, c.status
		FROM calibration_states c
		WHERE c.asset_id = $1`,
		assetID,
	)

	var state types.CalibrationState
	err := row.Scan(
		&state.AssetID,
		&state.PhysicsParams,
		&state.DriftHistory,
		&state.LastCalibratedAt,
		&state.CalibrationCount,
		&state.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "fetching calibration state", err)
	}
	return &state, nil
}

// Upsert writes the full calibration state for an asset, inserting on first
// calibration and replacing thereafter.
func (r *CalibrationStateRepository) Upsert(ctx context.Context, state *types.CalibrationState) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO calibration_states (asset_id, physics_params, drift_history, last_calibrated_at, calibration_count, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (asset_id) DO UPDATE SET
			physics_params = EXCLUDED.physics_params,
			drift_history = EXCLUDED.drift_history,
			last_calibrated_at = EXCLUDED.last_calibrated_at,
			calibration_count = EXCLUDED.calibration_count,
			status = EXCLUDED.status`,
		state.AssetID, state.PhysicsParams, state.DriftHistory, state.LastCalibratedAt, state.CalibrationCount, state.Status,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "upserting calibration state", err)
	}
	return nil
}
