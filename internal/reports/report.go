// Package reports renders review outcomes into auditable artifacts: a
// fixed-layout text report for engineers and a compressed JSON artifact for
// object storage.
package reports

import (
	"fmt"
	"strings"
	"time"

	"brineguard/internal/climate"
	"brineguard/internal/spraysim"
	"brineguard/internal/types"
)

const ruleWidth = 70

var verdictSymbols = map[types.JudgmentVerdict]string{
	types.JudgmentPass:            "[PASS]",
	types.JudgmentFail:            "[FAIL]",
	types.JudgmentConditionalPass: "[CONDITIONAL PASS]",
}

// Generate renders the judgment report. The layout is stable so downstream
// tooling can diff reports between runs.
func Generate(project *types.SimulationProject, env climate.Context, sim *spraysim.SimulationResult, judgment *types.JudgmentResult, now time.Time) string {
	iceRisk := climate.EstimateIceFormationRisk(env.Climate)

	var b strings.Builder
	heavy := strings.Repeat("=", ruleWidth)
	light := strings.Repeat("-", ruleWidth)

	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}
	section := func(title string) {
		line(light)
		line("  %s", title)
		line(light)
		line("")
	}

	line(heavy)
	line("  BRINE SPRAY SYSTEM - SIMULATION JUDGMENT REPORT")
	line(heavy)
	line("  Report Date  : %s", now.Format("2006-01-02 15:04"))
	line("  Project      : %s", project.ProjectName)
	line("  Project ID   : %s", project.ProjectID)
	line("  Schema Ver.  : %s", project.SchemaVersion)
	line("")

	section("1. EXECUTIVE JUDGMENT SUMMARY")
	line("  VERDICT : %s", verdictSymbols[judgment.Verdict])
	line("  Confidence : %.0f%%", judgment.Confidence*100)
	line("  Summary : %s", judgment.Summary)
	line("")

	section("2. SIMULATION ENVIRONMENT")
	line("  Location     : %s", env.LocationName)
	line("  Coordinates  : %.4f, %.4f", env.Latitude, env.Longitude)
	line("  Elevation    : %.0fm", env.ElevationM)
	line("  Season       : %s", env.Season)
	line("  Time of Day  : %s", env.TimeOfDay)
	line("  Traffic      : %s", env.TrafficLevel)
	line("")
	line("  Air Temp     : %.1f C", env.Climate.AirTemperatureC)
	line("  Road Temp    : %.1f C", env.Climate.RoadSurfaceTemperatureC)
	line("  Humidity     : %.0f%%", env.Climate.HumidityPercent)
	line("  Wind         : %.1f m/s @ %.0f deg", env.Climate.WindSpeedMS, env.Climate.WindDirectionDeg)
	line("  Precipitation: %s (%.1f mm/h)", env.Climate.PrecipitationType, env.Climate.PrecipitationMMH)
	line("  Ice Risk     : %.0f%%", iceRisk*100)
	line("")

	section("3. INSTALLATION OVERVIEW")
	for _, road := range project.RoadSegments {
		line("  Road: %s", road.SegmentID)
		line("    Type     : %s", road.RoadType)
		line("    Length   : %.0fm x %.1fm x %d lanes", road.LengthM, road.WidthM, road.Lanes)
		line("    Surface  : %s", road.SurfaceMaterial)
		line("    Slope    : %.1f%%", road.SlopePercent)
		line("")
	}
	line("  Spray Devices: %d units", len(project.SprayDevices))
	for _, dev := range project.SprayDevices {
		line("    [%s] @ %.0fm, pattern=%s, range=%.1fm, buried=%.0fmm",
			dev.DeviceID, dev.PositionAlongRoadM, dev.SprayPattern, dev.SprayRangeM, dev.BurialDepthMM)
	}
	line("")

	section("4. SIMULATION RESULTS")
	line("  Total Road Area    : %.0f m2", sim.TotalRoadAreaM2)
	line("  Covered Area       : %.0f m2", sim.CoveredAreaM2)
	line("  Coverage Ratio     : %.1f%%", sim.CoverageRatio*100)
	line("  Overlap Area       : %.0f m2", sim.OverlapAreaM2)
	line("  Brine Consumption  : %.0f L/h", sim.TotalBrineConsumptionLPH)
	line("")
	if len(sim.UncoveredZones) > 0 {
		line("  Uncovered Zones:")
		for _, z := range sim.UncoveredZones {
			line("    %.0fm ~ %.0fm (%.0fm)", z.StartM, z.EndM, z.EndM-z.StartM)
		}
	} else {
		line("  Uncovered Zones: None")
	}
	line("")

	section("5. FAILURE OBSERVATIONS")
	if len(judgment.Failures) == 0 {
		line("  No failures observed.")
	} else {
		for _, f := range judgment.Failures {
			icon := "!"
			if f.Severity == types.SeverityCritical {
				icon = "!!"
			}
			line("  [%s] %s - %s (%s)", icon, f.RuleID, f.Category, f.Severity)
			line("      %s", f.Description)
			line("      Evidence: %s", f.Evidence)
			if f.Recommendation != "" {
				line("      Action: %s", f.Recommendation)
			}
			line("")
		}
	}

	if len(judgment.Conditions) > 0 {
		section("6. CONDITIONS FOR PASS")
		for i, cond := range judgment.Conditions {
			line("  %d. %s", i+1, cond)
		}
		line("")
	}

	section("7. LIMITATIONS & DISCLAIMER")
	for _, lim := range judgment.Limitations {
		line("  - %s", lim)
	}
	line("")
	line("  IMPORTANT:")
	line("  This report provides JUDGMENT INFORMATION only.")
	line("  All DECISIONS and ACCOUNTABILITY remain with qualified engineers.")
	line("  This system does not design, decide, or replace professional judgment.")
	line("")
	line(heavy)
	line("  END OF REPORT")
	line(heavy)

	return b.String()
}
