package hondacan

import (
	"github.com/banshee-data/hondabus/internal/canbus"
	"github.com/banshee-data/hondabus/internal/vehicle"
)

// ACCRequest is the longitudinal intent for one cycle.
type ACCRequest struct {
	Enabled bool
	Active  bool
	Accel   float64 // m/s²
	Gas     float64 // raw gas command, see vehicle.GasLookup
	VEgo    float64 // m/s

	StoppingCounter int // cycles spent stopped
	BrakingCounter  int // cycles spent braking
}

// ACCCommands encodes the longitudinal messages. Radarless cars take the
// compact ACC_CONTROL; every other car gets ACC_CONTROL_ON followed by the
// full ACC_CONTROL.
func ACCCommands(topo canbus.Topology, p vehicle.Profile, req ACCRequest) []canbus.Message {
	stopped := req.StoppingCounter > StoppedAfterCycles

	accel := req.Accel
	if stopped {
		accel = vehicle.BoschAccelMin
	}
	gasCommand := float64(GasSentinel)
	if req.Active && accel > vehicle.MinGasAccel() {
		gasCommand = req.Gas
	}
	accelCommand := 0.0
	if req.Active {
		accelCommand = accel
	}
	braking := req.Active && req.BrakingCounter > 0 && accel < 0
	standstill := req.Active && stopped
	standstillRelease := req.Active && accel > 0 && req.VEgo < StandstillReleaseSpeed

	var acc canbus.Fields
	acc.Set("ACCEL_COMMAND", canbus.Num(accelCommand))
	acc.Set("STANDSTILL", canbus.Bool(standstill))

	if p.Radarless {
		acc.Set("CONTROL_ON", canbus.Bool(req.Enabled))
		acc.Set("IDLESTOP_ALLOW", canbus.Bool(standstill))
		return []canbus.Message{canbus.NewMessage(MsgACCControl, topo.PT, acc)}
	}

	// CONTROL_ON=5 makes the car report POWERTRAIN_DATA->ACC_STATUS = 1
	acc.Set("CONTROL_ON", canbus.Int(5*b2i(req.Enabled)))
	acc.Set("GAS_COMMAND", canbus.Num(gasCommand))
	acc.Set("BRAKE_LIGHTS", canbus.Bool(braking))
	acc.Set("BRAKE_REQUEST", canbus.Bool(braking))
	acc.Set("STANDSTILL_RELEASE", canbus.Bool(standstillRelease))

	// The SET_TO_* values are required by the ECU; they have no visible
	// effect. ACCEL_KILL must stay zero or it kills the gas pedal too.
	var on canbus.Fields
	on.Set("SET_TO_3", canbus.Int(0x3))
	on.Set("CONTROL_ON", canbus.Bool(req.Enabled))
	on.Set("SET_TO_FF", canbus.Int(0xff))
	on.Set("SET_TO_75", canbus.Int(0x75))
	on.Set("SET_TO_30", canbus.Int(0x30))
	on.Set("COAST_BRAKE", canbus.Bool(req.Active && accel < CoastBrakeAccel))
	on.Set("ACCEL_KILL", canbus.Int(0))

	return []canbus.Message{
		canbus.NewMessage(MsgACCControlOn, topo.PT, on),
		canbus.NewMessage(MsgACCControl, topo.PT, acc),
	}
}
