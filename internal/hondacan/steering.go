package hondacan

import (
	"github.com/banshee-data/hondabus/internal/canbus"
	"github.com/banshee-data/hondabus/internal/vehicle"
)

// SteeringControl encodes STEERING_CONTROL. Torque is only forwarded while
// lane keeping is active.
func SteeringControl(topo canbus.Topology, p vehicle.Profile, torque int, lkasActive, radarDisabled bool) canbus.Message {
	if !lkasActive {
		torque = 0
	}
	var f canbus.Fields
	f.Set("STEER_TORQUE", canbus.Int(torque))
	f.Set("STEER_TORQUE_REQUEST", canbus.Bool(lkasActive))
	return canbus.NewMessage(MsgSteeringControl, canbus.LKASBus(topo, p, radarDisabled), f)
}

// BoschSupplemental encodes the constant BOSCH_SUPPLEMENTAL_1 sent at
// bring-up on Bosch cars, routed like steering with the radar enabled.
func BoschSupplemental(topo canbus.Topology, p vehicle.Profile) canbus.Message {
	var f canbus.Fields
	f.Set("SET_ME_X04", canbus.Int(0x04))
	f.Set("SET_ME_X80", canbus.Int(0x80))
	f.Set("SET_ME_X10", canbus.Int(0x10))
	return canbus.NewMessage(MsgBoschSupplemental, canbus.LKASBus(topo, p, false), f)
}
