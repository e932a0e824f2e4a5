package calibration

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"brineguard/internal/types"
)

// StateRepository is the persistence surface the service needs. Implemented
// by db.CalibrationStateRepository; kept narrow so tests can fake it.
type StateRepository interface {
	Get(ctx context.Context, assetID string) (*types.CalibrationState, error)
	Upsert(ctx context.Context, state *types.CalibrationState) error
}

// SensorSource supplies recent per-parameter sensor aggregates for an asset.
// Implemented by sensors.InfluxReader.
type SensorSource interface {
	LatestParams(ctx context.Context, assetID string) (map[string]float64, error)
}

// TriggerOutcome is the result of one calibration trigger.
type TriggerOutcome struct {
	Status          string                  `json:"status"` // "recalibrated" or "ok"
	Message         string                  `json:"message"`
	DriftPercentage float64                 `json:"drift_percentage"`
	Corrections     map[string]float64      `json:"corrections,omitempty"`
	State           *types.CalibrationState `json:"state"`
}

// Trigger status values.
const (
	TriggerRecalibrated = "recalibrated"
	TriggerOK           = "ok"
)

// Service owns per-asset calibration state: drift recording, status
// transitions, and recalibration cycles. Concurrent triggers for the same
// asset serialize on a per-asset mutex so the read-modify-write of the
// state record never interleaves.
type Service struct {
	repo       StateRepository
	sensors    SensorSource
	detector   *DriftDetector
	calibrator *Calibrator
	logger     *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a calibration service. The sensor source may be nil,
// in which case triggers run with an empty reading set and report
// insufficient data.
func NewService(repo StateRepository, sensors SensorSource, detector *DriftDetector, calibrator *Calibrator, logger *slog.Logger) *Service {
	if detector == nil {
		detector = NewDriftDetector()
	}
	if calibrator == nil {
		calibrator = NewCalibrator(0)
	}
	return &Service{
		repo:       repo,
		sensors:    sensors,
		detector:   detector,
		calibrator: calibrator,
		logger:     logger,
		locks:      make(map[string]*sync.Mutex),
	}
}

func (s *Service) assetLock(assetID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[assetID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[assetID] = lock
	}
	return lock
}

// State returns the calibration state for an asset. Assets never calibrated
// get a synthetic uncalibrated record rather than a not-found error.
func (s *Service) State(ctx context.Context, assetID string) (*types.CalibrationState, error) {
	state, err := s.repo.Get(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return &types.CalibrationState{
			AssetID: assetID,
			Status:  types.CalibrationUncalibrated,
		}, nil
	}
	return state, nil
}

// RecordDrift appends one drift measurement to the asset's history and
// updates the status: sustained drift marks the asset drifting, otherwise a
// previously drifting asset settles back to calibrated.
func (s *Service) RecordDrift(ctx context.Context, assetID string, driftPct float64, at time.Time) (*types.CalibrationState, error) {
	lock := s.assetLock(assetID)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.State(ctx, assetID)
	if err != nil {
		return nil, err
	}

	state.DriftHistory = state.DriftHistory.Append(types.DriftEntry{DriftPct: driftPct, At: at})
	if s.detector.ShouldRecalibrate(state.DriftHistory) {
		state.Status = types.CalibrationDrifting
	} else if state.Status == types.CalibrationDrifting {
		state.Status = types.CalibrationCalibrated
	}

	if err := s.repo.Upsert(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Trigger runs one calibration cycle for an asset: fetch the latest sensor
// aggregates, measure drift against the stored physics parameters, and
// recalibrate when drift exceeds the threshold.
func (s *Service) Trigger(ctx context.Context, assetID string) (*TriggerOutcome, error) {
	lock := s.assetLock(assetID)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.State(ctx, assetID)
	if err != nil {
		return nil, err
	}

	sensorData := map[string]float64{}
	if s.sensors != nil {
		sensorData, err = s.sensors.LatestParams(ctx, assetID)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeUpstreamSensors, "fetching sensor aggregates", err)
		}
	}

	driftPct := s.detector.ComputeDrift(state.PhysicsParams, sensorData)
	state.DriftHistory = state.DriftHistory.Append(types.DriftEntry{DriftPct: driftPct, At: time.Now().UTC()})

	if driftPct <= s.detector.thresholdPct {
		if state.Status == types.CalibrationDrifting {
			state.Status = types.CalibrationCalibrated
		}
		if err := s.repo.Upsert(ctx, state); err != nil {
			return nil, err
		}
		return &TriggerOutcome{
			Status:          TriggerOK,
			Message:         fmt.Sprintf("Drift %.1f%% is within threshold (%.0f%%)", driftPct, s.detector.thresholdPct),
			DriftPercentage: driftPct,
			State:           state,
		}, nil
	}

	state.Status = types.CalibrationRecalibrating
	result := s.calibrator.Calibrate(state.PhysicsParams, sensorData)

	state.PhysicsParams = result.NewPhysicsParams
	state.CalibrationCount++
	now := time.Now().UTC()
	state.LastCalibratedAt = &now
	state.Status = types.CalibrationCalibrated

	if err := s.repo.Upsert(ctx, state); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "asset recalibrated",
		slog.String("asset_id", assetID),
		slog.Float64("drift_pct", driftPct),
		slog.Int("readings_used", result.SensorReadingsUsed),
	)

	return &TriggerOutcome{
		Status:          TriggerRecalibrated,
		Message:         fmt.Sprintf("Drift %.1f%% detected, parameters recalibrated", driftPct),
		DriftPercentage: driftPct,
		Corrections:     result.CorrectionsApplied,
		State:           state,
	}, nil
}
