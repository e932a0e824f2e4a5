package simulation

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"brineguard/internal/montecarlo"
	"brineguard/internal/types"
)

// MaxBatchPresets bounds how many climate presets one batch may review.
const MaxBatchPresets = 8

// batchConcurrency caps parallel pipeline executions per batch so a single
// batch cannot monopolize the process.
const batchConcurrency = 4

// BatchRequest reviews one project under several climate presets in a
// single call, e.g. to compare a design across the winter scenarios of
// every target region.
type BatchRequest struct {
	ProjectID      string               `json:"project_id"`
	SimulationType types.SimulationType `json:"simulation_type,omitempty"`
	ClimatePresets []string             `json:"climate_presets"`
	Seed           uint64               `json:"seed,omitempty"`
	MonteCarloN    int                  `json:"monte_carlo_n,omitempty"`
}

// BatchEntry pairs a preset with its completed run.
type BatchEntry struct {
	ClimatePreset string               `json:"climate_preset"`
	Run           *types.SimulationRun `json:"run"`
}

// ReviewBatch runs one review per preset concurrently. Each member derives
// its seed from the base seed and its preset index, so batch results are
// reproducible and mutually independent. The first failure cancels the
// remaining members and is returned; entries are ordered like the request.
func (s *Service) ReviewBatch(ctx context.Context, req BatchRequest) ([]BatchEntry, error) {
	if len(req.ClimatePresets) == 0 {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "climate_presets is required", nil)
	}
	if len(req.ClimatePresets) > MaxBatchPresets {
		return nil, types.NewAppError(types.ErrCodeValidationBadPayload,
			fmt.Sprintf("a batch reviews at most %d presets", MaxBatchPresets), nil)
	}

	baseSeed := req.Seed
	if baseSeed == 0 {
		baseSeed = montecarlo.DefaultSeed
	}

	entries := make([]BatchEntry, len(req.ClimatePresets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, preset := range req.ClimatePresets {
		g.Go(func() error {
			run, err := s.Review(gctx, Request{
				ProjectID:      req.ProjectID,
				SimulationType: req.SimulationType,
				ClimatePreset:  preset,
				Seed:           baseSeed + uint64(i),
				MonteCarloN:    req.MonteCarloN,
			})
			if err != nil {
				return err
			}
			entries[i] = BatchEntry{ClimatePreset: preset, Run: run}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return entries, nil
}
