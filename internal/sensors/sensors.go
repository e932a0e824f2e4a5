// Package sensors moves road-sensor readings between the SQS ingestion queue
// and the InfluxDB time-series store, and serves recent per-parameter
// aggregates back to the calibration service.
package sensors

import (
	"regexp"
	"time"

	"brineguard/internal/types"
)

// ReadingMessage is the wire format of one sensor reading on the ingestion
// queue. A nil Value marks a transmission gap the ingestor fills by
// imputation before storage.
type ReadingMessage struct {
	AssetID    string    `json:"asset_id"`
	Parameter  string    `json:"parameter"`
	Value      *float64  `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
	TraceID    string    `json:"trace_id,omitempty"`
}

// Validate checks the fields a reading must carry before it can be stored.
func (m ReadingMessage) Validate() error {
	if m.AssetID == "" {
		return types.NewAppError(types.ErrCodeValidationMissingField, "sensor reading missing asset_id", nil)
	}
	if m.Parameter == "" {
		return types.NewAppError(types.ErrCodeValidationMissingField, "sensor reading missing parameter", nil)
	}
	if m.RecordedAt.IsZero() {
		return types.NewAppError(types.ErrCodeValidationMissingField, "sensor reading missing recorded_at", nil)
	}
	return nil
}

// identPattern bounds the characters allowed in asset IDs and parameter
// names. Anything outside it is rejected before the value reaches a Flux
// query, which has no parameter binding for tag filters.
var identPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func validIdent(s string) bool {
	return s != "" && len(s) <= 128 && identPattern.MatchString(s)
}
