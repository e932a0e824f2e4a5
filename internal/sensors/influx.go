package sensors

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"brineguard/internal/types"
)

// measurementReadings is the InfluxDB measurement all sensor points land in.
// Readings are tagged with asset_id and parameter; the value lives in the
// "value" field and imputed points additionally carry an "imputed" tag.
const measurementReadings = "sensor_readings"

// DefaultAggregateWindow is how far back LatestParams looks when averaging
// readings per parameter.
const DefaultAggregateWindow = time.Hour

// InfluxWriter persists readings through a blocking write API so queue
// messages are only deleted after the point is durable.
type InfluxWriter struct {
	write  api.WriteAPIBlocking
	logger *slog.Logger
}

// NewInfluxWriter creates a writer over the given blocking write API.
func NewInfluxWriter(write api.WriteAPIBlocking, logger *slog.Logger) *InfluxWriter {
	return &InfluxWriter{write: write, logger: logger}
}

// WriteReading stores one reading. The value must be present; gaps are
// resolved by the ingestor before storage ever happens.
func (w *InfluxWriter) WriteReading(ctx context.Context, msg ReadingMessage, imputed bool) error {
	if msg.Value == nil {
		return types.NewAppError(types.ErrCodeValidationMissingField, "cannot store a reading without a value", nil)
	}

	tags := map[string]string{
		"asset_id":  msg.AssetID,
		"parameter": msg.Parameter,
	}
	if imputed {
		tags["imputed"] = "true"
	}

	point := influxdb2.NewPoint(
		measurementReadings,
		tags,
		map[string]interface{}{"value": *msg.Value},
		msg.RecordedAt,
	)

	if err := w.write.WritePoint(ctx, point); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamSensors, "writing sensor reading", err)
	}
	return nil
}

// InfluxReader serves recent aggregates back out of the time-series store.
// It satisfies the calibration service's sensor source.
type InfluxReader struct {
	query  api.QueryAPI
	bucket string
	window time.Duration
	logger *slog.Logger
}

// NewInfluxReader creates a reader over the given query API and bucket.
// A non-positive window falls back to DefaultAggregateWindow.
func NewInfluxReader(query api.QueryAPI, bucket string, window time.Duration, logger *slog.Logger) *InfluxReader {
	if window <= 0 {
		window = DefaultAggregateWindow
	}
	return &InfluxReader{
		query:  query,
		bucket: bucket,
		window: window,
		logger: logger,
	}
}

// LatestParams returns the mean of each parameter's readings for the asset
// over the reader's window. An asset with no recent readings yields an
// empty map, which the calibration service reports as insufficient data.
func (r *InfluxReader) LatestParams(ctx context.Context, assetID string) (map[string]float64, error) {
	if !validIdent(assetID) {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "invalid asset id", nil)
	}

	flux := fmt.Sprintf(`
		from(bucket: %q)
		  |> range(start: -%ds)
		  |> filter(fn: (r) => r._measurement == %q)
		  |> filter(fn: (r) => r.asset_id == %q)
		  |> filter(fn: (r) => r._field == "value")
		  |> group(columns: ["parameter"])
		  |> mean()
	`, r.bucket, int(r.window.Seconds()), measurementReadings, assetID)

	result, err := r.query.Query(ctx, flux)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamSensors, "querying sensor aggregates", err)
	}
	if result == nil {
		return map[string]float64{}, nil
	}

	params := map[string]float64{}
	for result.Next() {
		record := result.Record()
		param, ok := record.ValueByKey("parameter").(string)
		if !ok {
			continue
		}
		value, ok := record.Value().(float64)
		if !ok {
			continue
		}
		params[param] = value
	}
	if err := result.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamSensors, "reading sensor aggregates", err)
	}

	return params, nil
}

// Series returns the asset's raw readings for one parameter over the
// window, oldest first. Used when a full time series is needed rather than
// an aggregate, e.g. for gap analysis.
func (r *InfluxReader) Series(ctx context.Context, assetID, parameter string) ([]types.SensorReading, error) {
	if !validIdent(assetID) || !validIdent(parameter) {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "invalid asset id or parameter", nil)
	}

	flux := fmt.Sprintf(`
		from(bucket: %q)
		  |> range(start: -%ds)
		  |> filter(fn: (r) => r._measurement == %q)
		  |> filter(fn: (r) => r.asset_id == %q)
		  |> filter(fn: (r) => r.parameter == %q)
		  |> filter(fn: (r) => r._field == "value")
		  |> sort(columns: ["_time"])
	`, r.bucket, int(r.window.Seconds()), measurementReadings, assetID, parameter)

	result, err := r.query.Query(ctx, flux)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamSensors, "querying sensor series", err)
	}
	if result == nil {
		return nil, nil
	}

	var readings []types.SensorReading
	for result.Next() {
		record := result.Record()
		value, ok := record.Value().(float64)
		if !ok {
			continue
		}
		v := value
		readings = append(readings, types.SensorReading{Time: record.Time(), Value: &v})
	}
	if err := result.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamSensors, "reading sensor series", err)
	}

	return readings, nil
}
