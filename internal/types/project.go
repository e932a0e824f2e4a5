package types

import "encoding/json"

// The neutral project model: a BIM/CAD-independent, JSON-serializable
// description of an engineered brine-spray installation. It is the input to
// the concrete coverage simulation and the rule-based judgment engine, and
// is also the shape persisted by the project store.

// RoadSegment is one road section of the installation.
type RoadSegment struct {
	SegmentID       string          `json:"segment_id"`
	RoadType        RoadType        `json:"road_type"`
	SurfaceMaterial SurfaceMaterial `json:"surface_material"`
	LengthM         float64         `json:"length_m"`
	WidthM          float64         `json:"width_m"` // per-lane width
	Lanes           int             `json:"lanes"`
	SlopePercent    float64         `json:"slope_percent"`
	ElevationM      float64         `json:"elevation_m"`
	HasMedian       bool            `json:"has_median"`
	HasShoulder     bool            `json:"has_shoulder"`
	ShoulderWidthM  float64         `json:"shoulder_width_m"`
}

// BrineSprayDevice is a single spray unit along the road.
type BrineSprayDevice struct {
	DeviceID              string           `json:"device_id"`
	PositionAlongRoadM    float64          `json:"position_along_road_m"`
	PositionCrossM        float64          `json:"position_cross_m"` // from road centreline
	InstallationType      InstallationType `json:"installation_type"`
	BurialDepthMM         float64          `json:"burial_depth_mm"` // 0 means surface mounted
	SprayPattern          SprayPattern     `json:"spray_pattern"`
	SprayAngleDeg         float64          `json:"spray_angle_deg"`
	SprayRangeM           float64          `json:"spray_range_m"`
	FlowRateLPM           float64          `json:"flow_rate_lpm"`
	NozzleDiameterMM      float64          `json:"nozzle_diameter_mm"`
	BrineConcentrationPct float64          `json:"brine_concentration_percent"`
}

// SupplySystem describes the brine tank, pump, and supply piping.
type SupplySystem struct {
	TankCapacityL     float64 `json:"tank_capacity_l"`
	PumpPressureBar   float64 `json:"pump_pressure_bar"`
	PipeDiameterMM    float64 `json:"pipe_diameter_mm"`
	PipeMaterial      string  `json:"pipe_material"`
	PipeBurialDepthMM float64 `json:"pipe_burial_depth_mm"`
	HasHeating        bool    `json:"has_heating"`
	HasInsulation     bool    `json:"has_insulation"`
}

// UndergroundUtility is an existing buried line the installation must clear.
type UndergroundUtility struct {
	UtilityID      string  `json:"utility_id"`
	UtilityType    string  `json:"utility_type"` // gas, water, electric, telecom, sewer
	DepthMM        float64 `json:"depth_mm"`
	PositionCrossM float64 `json:"position_cross_m"`
	DiameterMM     float64 `json:"diameter_mm"`
}

// SimulationProject is the top-level neutral model for one installation design.
type SimulationProject struct {
	SchemaVersion        string               `json:"schema_version"`
	ProjectID            string               `json:"project_id"`
	ProjectName          string               `json:"project_name"`
	LocationName         string               `json:"location_name"`
	Latitude             float64              `json:"latitude"`
	Longitude            float64              `json:"longitude"`
	RoadSegments         []RoadSegment        `json:"road_segments"`
	SprayDevices         []BrineSprayDevice   `json:"spray_devices"`
	SupplySystem         *SupplySystem        `json:"supply_system,omitempty"`
	UndergroundUtilities []UndergroundUtility `json:"underground_utilities"`
}

// CurrentSchemaVersion is stamped on newly created projects.
const CurrentSchemaVersion = "0.1.0"

// MarshalJSONString serializes the project to its canonical JSON form.
func (p *SimulationProject) MarshalJSONString() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ProjectFromJSON parses a project from its canonical JSON form.
func ProjectFromJSON(data []byte) (*SimulationProject, error) {
	var p SimulationProject
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PhysicsAssets converts the neutral model into the flat asset list the
// physics engines consume. Property keys match the documented engine
// defaults (spray_angle, pump_pressure, length, width, ...).
func (p *SimulationProject) PhysicsAssets() []PhysicsAsset {
	assets := make([]PhysicsAsset, 0, len(p.RoadSegments)+len(p.SprayDevices)+1)
	for _, r := range p.RoadSegments {
		assets = append(assets, PhysicsAsset{
			ID:   r.SegmentID,
			Type: AssetRoadSegment,
			Properties: Properties{
				"length":           r.LengthM,
				"width":            r.WidthM * float64(r.Lanes),
				"lanes":            r.Lanes,
				"slope":            r.SlopePercent,
				"surface_material": string(r.SurfaceMaterial),
				"elevation":        r.ElevationM,
			},
		})
	}
	for _, d := range p.SprayDevices {
		props := Properties{
			"nozzle_diameter":     d.NozzleDiameterMM / 1000.0,
			"spray_angle":         d.SprayAngleDeg,
			"flow_rate":           d.FlowRateLPM,
			"brine_concentration": d.BrineConcentrationPct,
		}
		if p.SupplySystem != nil && p.SupplySystem.PumpPressureBar > 0 {
			props["pump_pressure"] = p.SupplySystem.PumpPressureBar * 100000.0
		}
		assets = append(assets, PhysicsAsset{ID: d.DeviceID, Type: AssetSprayDevice, Properties: props})
	}
	if p.SupplySystem != nil {
		assets = append(assets, PhysicsAsset{
			ID:   p.ProjectID + "-supply",
			Type: AssetSupplySystem,
			Properties: Properties{
				"tank_capacity": p.SupplySystem.TankCapacityL,
				"pump_pressure": p.SupplySystem.PumpPressureBar * 100000.0,
			},
		})
	}
	return assets
}
