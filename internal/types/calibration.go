package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DriftHistoryLimit bounds the rolling drift window kept per asset.
// Older entries are evicted on append.
const DriftHistoryLimit = 100

// DriftEntry is one drift measurement in an asset's history.
type DriftEntry struct {
	DriftPct float64   `json:"drift_pct"`
	At       time.Time `json:"at"`
}

// DriftHistory is an insertion-ordered, bounded drift window. It implements
// sql.Scanner and driver.Valuer for JSONB column storage.
type DriftHistory []DriftEntry

// Append adds an entry and trims the history to the last DriftHistoryLimit
// entries, returning the new slice.
func (h DriftHistory) Append(entry DriftEntry) DriftHistory {
	h = append(h, entry)
	if len(h) > DriftHistoryLimit {
		h = h[len(h)-DriftHistoryLimit:]
	}
	return h
}

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (h *DriftHistory) Scan(value any) error {
	if value == nil {
		*h = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("drift history: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, h)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (h DriftHistory) Value() (driver.Value, error) {
	if h == nil {
		return nil, nil
	}
	return json.Marshal(h)
}

// ParamMap is a string-keyed physics parameter mapping. It implements
// sql.Scanner and driver.Valuer for JSONB column storage.
type ParamMap map[string]float64

// Scan implements the sql.Scanner interface.
func (m *ParamMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("param map: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, m)
}

// Value implements the driver.Valuer interface.
func (m ParamMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// CalibrationState is the per-asset calibration record. Exactly one state
// exists per asset; it is created on the first calibration attempt and
// mutated only by the calibration service under the per-asset lock.
type CalibrationState struct {
	AssetID          string            `json:"asset_id"`
	PhysicsParams    ParamMap          `json:"physics_params"`
	DriftHistory     DriftHistory      `json:"drift_history"`
	LastCalibratedAt *time.Time        `json:"last_calibrated_at,omitempty"`
	CalibrationCount int               `json:"calibration_count"`
	Status           CalibrationStatus `json:"status"`
}

// SensorReading is one time-stamped sensor value. A nil Value marks a gap
// to be filled by imputation.
type SensorReading struct {
	Time  time.Time `json:"time"`
	Value *float64  `json:"value"`
}

// ImputedReading is a sensor reading after gap filling, tagged with whether
// and how the value was imputed.
type ImputedReading struct {
	Time    time.Time        `json:"time"`
	Value   float64          `json:"value"`
	Imputed bool             `json:"imputed"`
	Method  ImputationMethod `json:"method,omitempty"`
}
