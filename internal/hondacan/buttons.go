package hondacan

import (
	"github.com/banshee-data/hondabus/internal/canbus"
	"github.com/banshee-data/hondabus/internal/vehicle"
)

// SpamButtons encodes SCM_BUTTONS with a cruise button press.
func SpamButtons(topo canbus.Topology, p vehicle.Profile, button CruiseButton) canbus.Message {
	var f canbus.Fields
	f.Set("CRUISE_BUTTONS", canbus.Int(int(button)))
	f.Set("CRUISE_SETTING", canbus.Int(0))
	return canbus.NewMessage(MsgSCMButtons, canbus.ButtonBus(topo, p), f)
}

// KWP diagnostic request towards the body control module.
const (
	KWPCancelAddress = 0x16F118F0
	KWPCancelByte    = 0x20
)

// KWPRequest maps a named BCM command onto its KWP request. Unknown commands
// produce the one-byte cancel frame rather than an error.
func KWPRequest(command string, bus int) canbus.Message {
	var d1 int
	switch command {
	case "left":
		d1 = 0x0a
	case "right":
		d1 = 0x0b
	default:
		return canbus.RawMessage(KWPCancelAddress, []byte{KWPCancelByte}, bus)
	}

	var f canbus.Fields
	f.Set("D0", canbus.Int(0x30))
	f.Set("D1", canbus.Int(d1))
	f.Set("D2", canbus.Int(0x0f))
	return canbus.NewMessage(MsgKWPRequest, bus, f)
}
