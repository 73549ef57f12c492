package radar

import "math"

// Nidec sensor messages.
const (
	NidecStatusMsg  = 0x400
	NidecTriggerMsg = 0x445

	radarStateOK          = 0x79
	radarStateWrongConfig = 0x69

	// LONG_DIST reads 255 for an empty slot.
	nidecNoTarget = 255
)

// NidecTrackMsgs are the 16 per-object message ids.
var NidecTrackMsgs = append(msgRange(0x430, 0x43A, 1), msgRange(0x440, 0x446, 1)...)

func isNidecTrack(id uint32) bool {
	return (id >= 0x430 && id <= 0x439) || (id >= 0x440 && id <= 0x445)
}

func (ri *Interface) updateNidec(src Source) *RadarData {
	for _, id := range sortedIDs(ri.updated) {
		sig, ok := src.Signals(id)
		if !ok {
			continue
		}
		if id == NidecStatusMsg {
			state := int(sig.Get("RADAR_STATE"))
			ri.fault = state != radarStateOK
			ri.wrongConfig = state == radarStateWrongConfig
			continue
		}
		if !isNidecTrack(id) {
			continue
		}
		ri.registry.Observe(id, sig)

		if sig.Get("LONG_DIST") >= nidecNoTarget {
			ri.tracks.Remove(id)
			continue
		}
		t, ok := ri.tracks.Get(id)
		if !ok || sig.Bool("NEW_TRACK") {
			t = ri.tracks.Promote(id)
		}
		t.DRel = sig.Get("LONG_DIST")
		t.YRel = -sig.Get("LAT_DIST") // sensor reports right positive
		t.VRel = sig.Get("REL_SPEED")
		t.ARel = math.NaN()
		t.YvRel = math.NaN()
		t.Measured = true
	}

	errs := ri.canErrors(src)
	if ri.fault {
		errs = append(errs, ErrFault)
	}
	if ri.wrongConfig {
		errs = append(errs, ErrWrongConfig)
	}
	return &RadarData{
		Points: ri.tracks.Tracks(),
		Errors: errs,
		Delay:  ri.cfg.Delay,
	}
}
