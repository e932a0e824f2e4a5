package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brineguard/internal/climate"
	"brineguard/internal/reports"
	"brineguard/internal/types"
)

// --- Fakes ---

type fakeProjects struct {
	rec *types.ProjectRecord
	err error
}

func (f *fakeProjects) GetByID(ctx context.Context, id string) (*types.ProjectRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rec, nil
}

type fakeRuns struct {
	created   bool
	running   bool
	completed bool
	failedMsg string
}

func (f *fakeRuns) Create(ctx context.Context, run *types.SimulationRun) error {
	if run.ID == "" {
		run.ID = "run_test"
	}
	run.Status = types.RunQueued
	f.created = true
	return nil
}

func (f *fakeRuns) MarkRunning(ctx context.Context, id string) error {
	f.running = true
	return nil
}

func (f *fakeRuns) MarkCompleted(ctx context.Context, run *types.SimulationRun) error {
	run.Status = types.RunCompleted
	f.completed = true
	return nil
}

func (f *fakeRuns) MarkFailed(ctx context.Context, id, message string) error {
	f.failedMsg = message
	return nil
}

type fakeArtifacts struct {
	put *reports.Artifact
	err error
}

func (f *fakeArtifacts) Put(ctx context.Context, artifact *reports.Artifact) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.put = artifact
	return reports.ObjectKey(artifact.ProjectID, artifact.RunID), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRecord() *types.ProjectRecord {
	design := &types.SimulationProject{
		SchemaVersion: types.CurrentSchemaVersion,
		ProjectID:     "proj_1",
		ProjectName:   "Daegwallyeong Pass",
		RoadSegments: []types.RoadSegment{{
			SegmentID:       "seg-1",
			RoadType:        types.RoadCurve,
			SurfaceMaterial: types.SurfaceAsphalt,
			LengthM:         60,
			WidthM:          3.5,
			Lanes:           2,
			ElevationM:      820,
		}},
	}
	for i := 0; i < 8; i++ {
		design.SprayDevices = append(design.SprayDevices, types.BrineSprayDevice{
			DeviceID:              "d" + string(rune('1'+i)),
			PositionAlongRoadM:    float64(4 + i*8),
			SprayPattern:          types.PatternFan,
			SprayAngleDeg:         120,
			SprayRangeM:           6,
			FlowRateLPM:           30,
			NozzleDiameterMM:      3,
			BrineConcentrationPct: 23,
		})
	}
	return &types.ProjectRecord{
		ID:           "proj_1",
		Name:         "Daegwallyeong Pass",
		LocationName: "Gangwon Daegwallyeong",
		Latitude:     37.677,
		Longitude:    128.718,
		Design:       design,
		Status:       types.ProjectStatusDraft,
	}
}

func newTestService(projects *fakeProjects, runs *fakeRuns, artifacts *fakeArtifacts) *Service {
	var store ArtifactStore
	if artifacts != nil {
		store = artifacts
	}
	return NewService(projects, runs, store, nil, discardLogger(), Config{})
}

// --- Review Tests ---

func TestService_Review_FullPipeline(t *testing.T) {
	projects := &fakeProjects{rec: testRecord()}
	runs := &fakeRuns{}
	artifacts := &fakeArtifacts{}
	svc := newTestService(projects, runs, artifacts)

	run, err := svc.Review(context.Background(), Request{
		ProjectID:      "proj_1",
		SimulationType: types.SimulationSaltSpray,
		ClimatePreset:  "gangwon_winter_night",
		MonteCarloN:    50,
	})
	require.NoError(t, err)

	assert.True(t, runs.created)
	assert.True(t, runs.running)
	assert.True(t, runs.completed)
	assert.Equal(t, types.RunCompleted, run.Status)
	assert.Equal(t, uint64(42), run.Seed, "unset seed falls back to the default")

	assert.NotEmpty(t, run.SimResult)
	assert.NotEmpty(t, run.Judgment)
	assert.NotEmpty(t, run.Decision)
	assert.Contains(t, run.ReportText, "BRINE SPRAY SYSTEM - SIMULATION JUDGMENT REPORT")
	assert.Equal(t, "projects/proj_1/runs/run_test/artifact.json.zst", run.ArtifactKey)

	require.NotNil(t, artifacts.put)
	assert.Equal(t, "run_test", artifacts.put.RunID)
	assert.NotNil(t, artifacts.put.Decision)
}

type fakeOutcomeRecorder struct {
	verdicts []string
}

func (f *fakeOutcomeRecorder) RecordRunOutcome(_ context.Context, verdict string) {
	f.verdicts = append(f.verdicts, verdict)
}

func TestService_Review_RecordsOutcome(t *testing.T) {
	svc := newTestService(&fakeProjects{rec: testRecord()}, &fakeRuns{}, nil)
	recorder := &fakeOutcomeRecorder{}
	svc.SetMetrics(recorder)

	run, err := svc.Review(context.Background(), Request{
		ProjectID:      "proj_1",
		SimulationType: types.SimulationSaltSpray,
		ClimatePreset:  "gangwon_winter_night",
		MonteCarloN:    50,
	})
	require.NoError(t, err)

	var dec types.DecisionResult
	require.NoError(t, json.Unmarshal(run.Decision, &dec))
	require.Len(t, recorder.verdicts, 1)
	assert.Equal(t, string(dec.Verdict), recorder.verdicts[0])
}

func TestService_Review_NoPhysicsType(t *testing.T) {
	projects := &fakeProjects{rec: testRecord()}
	runs := &fakeRuns{}
	svc := newTestService(projects, runs, nil)

	run, err := svc.Review(context.Background(), Request{
		ProjectID:     "proj_1",
		ClimatePreset: "seoul_winter_night",
	})
	require.NoError(t, err)
	assert.Empty(t, run.Decision, "no decision without a physics simulation type")
	assert.NotEmpty(t, run.Judgment)
	assert.Empty(t, run.ArtifactKey)
}

func TestService_Review_MissingProjectID(t *testing.T) {
	svc := newTestService(&fakeProjects{}, &fakeRuns{}, nil)

	_, err := svc.Review(context.Background(), Request{})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeValidationMissingField, appErr.Code)
}

func TestService_Review_UnknownSimulationType(t *testing.T) {
	svc := newTestService(&fakeProjects{rec: testRecord()}, &fakeRuns{}, nil)

	_, err := svc.Review(context.Background(), Request{
		ProjectID:      "proj_1",
		SimulationType: types.SimulationStructural,
	})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeValidationSimType, appErr.Code)
}

func TestService_Review_NoDevices_NoRunRecord(t *testing.T) {
	rec := testRecord()
	rec.Design.SprayDevices = nil
	runs := &fakeRuns{}
	svc := newTestService(&fakeProjects{rec: rec}, runs, nil)

	_, err := svc.Review(context.Background(), Request{ProjectID: "proj_1"})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeValidationNoSprayDevices, appErr.Code)
	assert.False(t, runs.created, "validation failures must not leave a run record")
}

func TestService_Review_CancelledContext_MarksFailed(t *testing.T) {
	projects := &fakeProjects{rec: testRecord()}
	runs := &fakeRuns{}
	svc := newTestService(projects, runs, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Review(ctx, Request{
		ProjectID:      "proj_1",
		SimulationType: types.SimulationThermal,
		MonteCarloN:    100,
	})
	require.Error(t, err)
	assert.NotEmpty(t, runs.failedMsg)
}

func TestService_Review_ArtifactFailureTolerated(t *testing.T) {
	projects := &fakeProjects{rec: testRecord()}
	runs := &fakeRuns{}
	artifacts := &fakeArtifacts{err: errors.New("bucket unavailable")}
	svc := newTestService(projects, runs, artifacts)

	run, err := svc.Review(context.Background(), Request{
		ProjectID:     "proj_1",
		ClimatePreset: "gangwon_winter_night",
	})
	require.NoError(t, err)
	assert.True(t, runs.completed)
	assert.Empty(t, run.ArtifactKey)
}

// --- Context Building Tests ---

func TestBuildContext_CityPreset(t *testing.T) {
	rec := testRecord()
	now := time.Date(2026, 1, 15, 2, 0, 0, 0, time.UTC)

	ctx := BuildContext(rec, "gangwon_winter_night", now, discardLogger())
	assert.Equal(t, climate.SeasonWinter, ctx.Season)
	assert.Equal(t, climate.TimeNight, ctx.TimeOfDay)
	assert.InDelta(t, -15.0, ctx.Climate.AirTemperatureC, 1e-9)
	assert.Equal(t, climate.PrecipSnow, ctx.Climate.PrecipitationType)
	assert.InDelta(t, 820, ctx.ElevationM, 1e-9)
	assert.Equal(t, "Gangwon Daegwallyeong", ctx.LocationName)
}

func TestBuildContext_RegionalPresetFallback(t *testing.T) {
	rec := testRecord()
	now := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	// Regional preset table key, not a city observation key.
	ctx := BuildContext(rec, "yeongdong_expressway_winter", now, discardLogger())
	assert.Equal(t, climate.TimeMorning, ctx.TimeOfDay)
	assert.InDelta(t, -12.0, ctx.Climate.AirTemperatureC, 1e-9)
	assert.InDelta(t, -14.0, ctx.Climate.RoadSurfaceTemperatureC, 1e-9, "surface derived 2 degC below air")
	assert.Equal(t, climate.PrecipSnow, ctx.Climate.PrecipitationType)
	assert.InDelta(t, 90.0, ctx.Climate.CloudCoverPercent, 1e-9)
}

func TestBuildContext_ExposureFromRoadType(t *testing.T) {
	rec := testRecord()
	rec.Design.RoadSegments[0].RoadType = types.RoadBridge

	ctx := BuildContext(rec, "busan_winter_morning", time.Now(), discardLogger())
	assert.True(t, ctx.IsWindExposed)
	assert.False(t, ctx.IsShaded)

	rec.Design.RoadSegments[0].RoadType = types.RoadUnderpass
	ctx = BuildContext(rec, "busan_winter_morning", time.Now(), discardLogger())
	assert.True(t, ctx.IsShaded)
}

func TestConditionFromEnvironment_RainAboveFreezing(t *testing.T) {
	cond := conditionFromEnvironment(types.EnvironmentCondition{
		Temperature:   2.0,
		Precipitation: 1.5,
	})
	assert.Equal(t, climate.PrecipRain, cond.PrecipitationType)
	assert.InDelta(t, 0.0, cond.RoadSurfaceTemperatureC, 1e-9)
}

func TestTimeOfDayOf(t *testing.T) {
	cases := map[int]climate.TimeOfDay{
		5:  climate.TimeDawn,
		8:  climate.TimeMorning,
		13: climate.TimeAfternoon,
		18: climate.TimeEvening,
		23: climate.TimeNight,
		2:  climate.TimeNight,
	}
	for hour, want := range cases {
		assert.Equal(t, want, timeOfDayOf(hour), "hour %d", hour)
	}
}
