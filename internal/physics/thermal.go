package physics

import (
	"math"

	"brineguard/internal/types"
)

// Thermal model parameters.
const (
	surfaceEmissivity = 0.93
	solarAbsorptivity = 0.85

	newtonMaxIterations   = 50
	newtonResidualTolW    = 0.01 // W/m^2
	newtonDerivativeFloor = 1e-12

	// thermalReferenceMargin is the temperature margin (degC) that maps to
	// SF = 1.0: a 5 degC margin corresponds to the KDS target factor 1.5.
	thermalReferenceMargin = 5.0 / 1.5
)

// ThermalEngine predicts road surface temperature from a steady-state
// energy balance (solar absorption, Jurges convective exchange, radiative
// exchange against an estimated sky temperature) and classifies icing risk
// after brine freezing-point depression.
type ThermalEngine struct{}

// NewThermalEngine creates a thermal engine. The engine is stateless and
// fully deterministic.
func NewThermalEngine() *ThermalEngine {
	return &ThermalEngine{}
}

// convectiveCoeff is the Jurges formula h = 5.7 + 3.8*v.
func convectiveCoeff(windSpeed float64) float64 {
	return 5.7 + 3.8*windSpeed
}

// skyTemperature estimates the effective sky temperature (degC) for
// radiative cooling from air temperature and humidity.
func skyTemperature(airTempC, humidity float64) float64 {
	tAirK := airTempC + 273.15
	emissivityFactor := math.Pow(0.8+humidity/500.0, 0.25)
	return tAirK*emissivityFactor - 273.15
}

// FreezingPointDepression is the linear brine depression approximation
// deltaT = -0.6 * concentration(%), clipped at the eutectic concentration.
func FreezingPointDepression(brineConcentrationPct float64) float64 {
	conc := math.Min(brineConcentrationPct, NaClEutecticConcPct)
	return -0.6 * conc
}

// surfaceTemperature solves the steady-state energy balance for the road
// surface temperature with Newton's method, starting from the air
// temperature.
func surfaceTemperature(airTempC, windSpeed, humidity, solarRadiation float64) float64 {
	hConv := convectiveCoeff(windSpeed)
	tSkyK := skyTemperature(airTempC, humidity) + 273.15
	tAirK := airTempC + 273.15

	tSurface := airTempC

	for i := 0; i < newtonMaxIterations; i++ {
		tSK := tSurface + 273.15
		qSolar := solarAbsorptivity * solarRadiation
		qConv := hConv * (tAirK - tSK)
		qRad := surfaceEmissivity * StefanBoltzmann * (math.Pow(tSkyK, 4) - math.Pow(tSK, 4))
		residual := qSolar + qConv + qRad

		derivative := -hConv - 4.0*surfaceEmissivity*StefanBoltzmann*math.Pow(tSK, 3)
		if math.Abs(derivative) < newtonDerivativeFloor {
			break
		}
		tSurface -= residual / derivative
		if math.Abs(residual) < newtonResidualTolW {
			break
		}
	}

	return tSurface
}

// Predict computes road surface temperature and icing classification. A
// measured road surface temperature on the environment bypasses the energy
// balance; the temp_correction calibration override is added to the solved
// temperature either way.
func (e *ThermalEngine) Predict(assets []types.PhysicsAsset, env types.EnvironmentCondition, params map[string]float64) (*Prediction, error) {
	var surfaceTemp float64
	if env.RoadSurfaceTemp != nil {
		surfaceTemp = *env.RoadSurfaceTemp
	} else {
		surfaceTemp = surfaceTemperature(env.Temperature, env.WindSpeed, env.Humidity, env.SolarRadiation)
	}

	if corr, ok := params["temp_correction"]; ok {
		surfaceTemp += corr
	}

	devices := types.AssetsOfType(assets, types.AssetSprayDevice)
	brineConc := 0.0
	if len(devices) > 0 {
		sum := 0.0
		for _, d := range devices {
			sum += d.Properties.Float("brine_concentration", 23.0)
		}
		brineConc = sum / float64(len(devices))
	}

	depression := FreezingPointDepression(brineConc)
	freezingPoint := FreezingPointWater + depression
	isIcing := surfaceTemp <= freezingPoint
	isWarning := surfaceTemp <= IceWarningTempC && !isIcing

	return &Prediction{
		SurfaceTemperature: surfaceTemp,
		AirTemperature:     env.Temperature,
		FreezingPoint:      freezingPoint,
		FreezingDepression: depression,
		BrineConcentration: brineConc,
		IsIcing:            isIcing,
		IsWarning:          isWarning,
		TemperatureMargin:  surfaceTemp - freezingPoint,
		ConvectiveCoeff:    convectiveCoeff(env.WindSpeed),
	}, nil
}

// SafetyFactor is the temperature margin over the reference margin, floored
// at zero.
func (e *ThermalEngine) SafetyFactor(p *Prediction, _ types.EnvironmentCondition) float64 {
	return ThermalSafetyFactor(p.SurfaceTemperature, p.FreezingPoint)
}
