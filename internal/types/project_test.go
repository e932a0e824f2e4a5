package types

import (
	"reflect"
	"testing"
)

func fullProject() *SimulationProject {
	return &SimulationProject{
		SchemaVersion: CurrentSchemaVersion,
		ProjectID:     "proj_rt",
		ProjectName:   "Daegwallyeong Ramp",
		LocationName:  "Gangwon-do",
		Latitude:      37.68,
		Longitude:     128.72,
		RoadSegments: []RoadSegment{
			{
				SegmentID:       "seg_1",
				RoadType:        RoadRamp,
				SurfaceMaterial: SurfaceAsphalt,
				LengthM:         200,
				WidthM:          3.5,
				Lanes:           2,
				SlopePercent:    4.5,
				ElevationM:      820,
				HasMedian:       true,
				HasShoulder:     true,
				ShoulderWidthM:  2.0,
			},
		},
		SprayDevices: []BrineSprayDevice{
			{
				DeviceID:              "dev_1",
				PositionAlongRoadM:    10,
				PositionCrossM:        -1.75,
				InstallationType:      InstallBuried,
				BurialDepthMM:         1200,
				SprayPattern:          PatternFan,
				SprayAngleDeg:         60,
				SprayRangeM:           8,
				FlowRateLPM:           12,
				NozzleDiameterMM:      4,
				BrineConcentrationPct: 23,
			},
		},
		SupplySystem: &SupplySystem{
			TankCapacityL:     5000,
			PumpPressureBar:   6,
			PipeDiameterMM:    50,
			PipeMaterial:      "hdpe",
			PipeBurialDepthMM: 1100,
			HasHeating:        true,
			HasInsulation:     true,
		},
		UndergroundUtilities: []UndergroundUtility{
			{
				UtilityID:      "util_1",
				UtilityType:    "gas",
				DepthMM:        1500,
				PositionCrossM: 2.5,
				DiameterMM:     200,
			},
		},
	}
}

// TestProjectRoundTrip verifies that a fully populated project survives the
// canonical JSON form field for field, including the enum values.
func TestProjectRoundTrip(t *testing.T) {
	original := fullProject()

	raw, err := original.MarshalJSONString()
	if err != nil {
		t.Fatalf("MarshalJSONString: %v", err)
	}

	parsed, err := ProjectFromJSON([]byte(raw))
	if err != nil {
		t.Fatalf("ProjectFromJSON: %v", err)
	}

	if !reflect.DeepEqual(original, parsed) {
		t.Errorf("round trip mismatch:\noriginal: %+v\nparsed:   %+v", original, parsed)
	}
	if parsed.RoadSegments[0].RoadType != RoadRamp {
		t.Errorf("road type enum lost: %q", parsed.RoadSegments[0].RoadType)
	}
	if parsed.SprayDevices[0].SprayPattern != PatternFan {
		t.Errorf("spray pattern enum lost: %q", parsed.SprayDevices[0].SprayPattern)
	}
}

// TestProjectFromJSON_Malformed verifies parse failures surface as errors.
func TestProjectFromJSON_Malformed(t *testing.T) {
	if _, err := ProjectFromJSON([]byte(`{"project_id":`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
