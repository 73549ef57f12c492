package vehicle

import (
	"gonum.org/v1/gonum/interp"
)

// Controller limits shared by the encoders and the control cycle.
const (
	BoschAccelMin = -3.5 // m/s², max braking
	BoschAccelMax = 2.0  // m/s², max acceleration
	NidecAccelMin = -4.0 // m/s²

	NidecBrakeMax = 1024 // COMPUTER_BRAKE full scale
	SteerMax      = 4096
)

// Speed conversions.
const (
	KPHToMS = 1 / 3.6
	MPHToMS = 0.44704
	MSToKPH = 3.6
	MSToMPH = 1 / MPHToMS
)

// GasLookupBP and GasLookupV map desired acceleration to a Bosch gas command.
// GasLookupBP[0] is the minimum accel at which gas is commanded at all.
var (
	GasLookupBP = []float64{-0.2, 2.0}
	GasLookupV  = []float64{0, 1600}
)

var gasLookup = func() *interp.PiecewiseLinear {
	var pl interp.PiecewiseLinear
	if err := pl.Fit(GasLookupBP, GasLookupV); err != nil {
		panic("invalid gas lookup table: " + err.Error())
	}
	return &pl
}()

// MinGasAccel is the gas-accel breakpoint below which no gas is commanded.
func MinGasAccel() float64 {
	return GasLookupBP[0]
}

// GasLookup interpolates the gas command for a desired acceleration,
// clamping to the table ends outside the breakpoints.
func GasLookup(accel float64) float64 {
	return gasLookup.Predict(accel)
}

// CruiseSpeedConversion returns the factor that turns the cluster's cruise
// speed units into m/s. Radarless cars switch CRUISE_SPEED to mph with the
// car's unit setting.
func CruiseSpeedConversion(p Profile) float64 {
	if p.Radarless && !p.Metric {
		return MPHToMS
	}
	return KPHToMS
}
