package hondacan

import (
	"github.com/banshee-data/hondabus/internal/canbus"
)

// BrakeRequest is the Nidec computer-brake intent for one cycle.
type BrakeRequest struct {
	ApplyBrake  float64 // requested brake pressure, 0 releases
	PumpOn      bool
	PCMOverride bool
	PCMCancel   bool
	FCW         bool
	// StockChime is CHIME from the car's own BRAKE_COMMAND, forwarded
	// while the stock forward collision warning is active.
	StockChime int
}

// BrakeCommand encodes BRAKE_COMMAND on the powertrain bus. The AEB fields
// are never set by this integration.
func BrakeCommand(topo canbus.Topology, req BrakeRequest) canbus.Message {
	brakeRq := req.ApplyBrake > 0
	chime := 0
	if req.FCW {
		chime = req.StockChime
	}

	var f canbus.Fields
	f.Set("COMPUTER_BRAKE", canbus.Num(req.ApplyBrake))
	f.Set("BRAKE_PUMP_REQUEST", canbus.Bool(req.PumpOn))
	f.Set("CRUISE_OVERRIDE", canbus.Bool(req.PCMOverride))
	f.Set("CRUISE_FAULT_CMD", canbus.Bool(false))
	f.Set("CRUISE_CANCEL_CMD", canbus.Bool(req.PCMCancel))
	f.Set("COMPUTER_BRAKE_REQUEST", canbus.Bool(brakeRq))
	f.Set("SET_ME_1", canbus.Int(1))
	f.Set("BRAKE_LIGHTS", canbus.Bool(brakeRq))
	f.Set("CHIME", canbus.Int(chime))
	// two-bit hardware field, only the upper bit is meaningful
	f.Set("FCW", canbus.Int(b2i(req.FCW)<<1))
	f.Set("AEB_REQ_1", canbus.Int(0))
	f.Set("AEB_REQ_2", canbus.Int(0))
	f.Set("AEB_STATUS", canbus.Int(0))
	return canbus.NewMessage(MsgBrakeCommand, topo.PT, f)
}
