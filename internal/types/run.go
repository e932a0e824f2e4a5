package types

import (
	"encoding/json"
	"time"
)

// ProjectRecord is the persisted form of a design project: the neutral
// model plus bookkeeping columns.
type ProjectRecord struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	LocationName string             `json:"location_name"`
	Latitude     float64            `json:"latitude"`
	Longitude    float64            `json:"longitude"`
	Design       *SimulationProject `json:"design"`
	Status       string             `json:"status"` // "draft" or "completed"
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// Project record status values.
const (
	ProjectStatusDraft     = "draft"
	ProjectStatusCompleted = "completed"
)

// SimulationRun is one review run over a project: the deterministic
// simulation, the rule judgment, and (for physics runs) the Monte Carlo
// decision, stored as JSONB alongside lifecycle bookkeeping.
type SimulationRun struct {
	ID             string          `json:"id"`
	ProjectID      string          `json:"project_id"`
	SimulationType SimulationType  `json:"simulation_type"`
	ClimatePreset  string          `json:"climate_preset"`
	Seed           uint64          `json:"seed"`
	MonteCarloN    int             `json:"monte_carlo_n"`
	Status         RunStatus       `json:"status"`
	SimResult      json.RawMessage `json:"sim_result,omitempty"`
	Judgment       json.RawMessage `json:"judgment,omitempty"`
	Decision       json.RawMessage `json:"decision,omitempty"`
	ReportText     string          `json:"report_text,omitempty"`
	ArtifactKey    string          `json:"artifact_key,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}
