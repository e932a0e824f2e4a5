package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
)

// Point3D is a point in the local road coordinate frame (metres).
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// LineSegment is a straight segment between two points.
type LineSegment struct {
	Start Point3D `json:"start"`
	End   Point3D `json:"end"`
}

// Length returns the Euclidean length of the segment.
func (s LineSegment) Length() float64 {
	dx := s.End.X - s.Start.X
	dy := s.End.Y - s.Start.Y
	dz := s.End.Z - s.Start.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Properties is the free-form property bag attached to a PhysicsAsset.
// Value types vary by asset type; physics engines read them through the
// typed accessors below and substitute documented defaults when a key is
// missing or has the wrong type. It implements sql.Scanner and
// driver.Valuer for JSONB column storage.
type Properties map[string]any

// Scan implements the sql.Scanner interface for reading JSONB from the database.
func (p *Properties) Scan(value any) error {
	if value == nil {
		*p = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("properties: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, p)
}

// Value implements the driver.Valuer interface for writing JSONB to the database.
func (p Properties) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// Float returns the property as a float64, or def when the key is absent or
// not numeric. JSON decoding produces float64 for all numbers, but int is
// accepted too for values set directly in code.
func (p Properties) Float(key string, def float64) float64 {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}

// Int returns the property as an int, or def when absent or not numeric.
func (p Properties) Int(key string, def int) int {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

// String returns the property as a string, or def when absent or not a string.
func (p Properties) String(key string, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

// PhysicsAsset is a typed physical entity handed to the physics engines.
// Assets are constructed from persisted records immediately before a run,
// never mutated by the engines, and discarded afterwards.
type PhysicsAsset struct {
	ID         string     `json:"id"`
	Type       AssetType  `json:"type"`
	Name       string     `json:"name,omitempty"`
	Geometry   Properties `json:"geometry,omitempty"` // engine-opaque payload
	Properties Properties `json:"properties"`
}

// SprayDeviceParams are the spray device properties with their documented
// defaults applied. Engines must never fail on a missing property alone.
type SprayDeviceParams struct {
	NozzleDiameter     float64 // m
	SprayAngle         float64 // degrees
	FlowRate           float64 // L/min
	PumpPressure       float64 // Pa
	BrineConcentration float64 // %
	MountingHeight     float64 // m
	Orientation        float64 // degrees
}

// SprayDeviceParamsFrom extracts spray device parameters from a property bag,
// falling back to the defaults for any missing key.
func SprayDeviceParamsFrom(p Properties) SprayDeviceParams {
	return SprayDeviceParams{
		NozzleDiameter:     p.Float("nozzle_diameter", 0.003),
		SprayAngle:         p.Float("spray_angle", 60.0),
		FlowRate:           p.Float("flow_rate", 0.5),
		PumpPressure:       p.Float("pump_pressure", 300000.0),
		BrineConcentration: p.Float("brine_concentration", 23.0),
		MountingHeight:     p.Float("mounting_height", 0.3),
		Orientation:        p.Float("orientation", 0.0),
	}
}

// RoadSegmentParams are the road segment properties with defaults applied.
type RoadSegmentParams struct {
	Length          float64 // m
	Width           float64 // m
	Lanes           int
	Slope           float64 // %
	SurfaceMaterial string
	Elevation       float64 // m
}

// RoadSegmentParamsFrom extracts road segment parameters from a property bag.
func RoadSegmentParamsFrom(p Properties) RoadSegmentParams {
	return RoadSegmentParams{
		Length:          p.Float("length", 10.0),
		Width:           p.Float("width", 7.0),
		Lanes:           p.Int("lanes", 2),
		Slope:           p.Float("slope", 0.0),
		SurfaceMaterial: p.String("surface_material", "asphalt"),
		Elevation:       p.Float("elevation", 0.0),
	}
}

// AssetsOfType filters a slice of assets down to one asset type.
func AssetsOfType(assets []PhysicsAsset, t AssetType) []PhysicsAsset {
	var out []PhysicsAsset
	for _, a := range assets {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}
