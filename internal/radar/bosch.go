package radar

import "math"

// Tesla/Bosch sensor message ranges. The reduced set carries the 5 'L'
// tracks; the full set adds the 32 'M' point cloud entries. Each A message
// is paired with the B message at id+1.
var (
	boschTracksA = msgRange(0x371, 0x37F, 3)
	boschTracksB = msgRange(0x372, 0x37F, 3)
	boschPointsA = msgRange(0x310, 0x36F, 3)
	boschPointsB = msgRange(0x311, 0x36F, 3)
)

func msgRange(start, stop, step uint32) []uint32 {
	var ids []uint32
	for id := start; id < stop; id += step {
		ids = append(ids, id)
	}
	return ids
}

// BoschMessages returns the A and B message ids for the selected object set.
func BoschMessages(allObjects bool) (a, b []uint32) {
	if !allObjects {
		return append([]uint32(nil), boschTracksA...), append([]uint32(nil), boschTracksB...)
	}
	a = append(append([]uint32(nil), boschPointsA...), boschTracksA...)
	b = append(append([]uint32(nil), boschPointsB...), boschTracksB...)
	return a, b
}

func (ri *Interface) updateBosch(src Source) *RadarData {
	cfg := ri.cfg
	for _, id := range sortedIDs(ri.updated) {
		if _, ok := ri.msgsA[id]; !ok {
			ri.tracks.Remove(id)
			continue
		}
		if _, ok := ri.updated[id+1]; !ok {
			continue
		}
		a, okA := src.Signals(id)
		b, okB := src.Signals(id + 1)
		// both halves must come from the same sensor reading
		if !okA || !okB || a.Get("Index") != b.Get("Index2") {
			continue
		}
		slot := ri.registry.Observe(id, a)

		dist := a.Get("LongDist")
		prob := a.Get("ProbExist")
		valid, tracked := a.Bool("Valid"), a.Bool("Tracked")
		inRange := dist > 0 && dist < cfg.MaxDistance

		switch {
		case dist >= cfg.MaxDistance || dist == 0 || (!tracked && !valid):
			slot.Valid = 0
			ri.tracks.Remove(id)
		case inRange && prob >= cfg.MinProbability:
			slot.Valid++
		default:
			slot.Valid = max(slot.Valid-cfg.BorderlineDecrement, 0)
			if slot.Valid == 0 {
				ri.tracks.Remove(id)
			}
		}

		// a track lives only while its slot is above the threshold
		if slot.Valid <= cfg.ValidCountThreshold {
			ri.tracks.Remove(id)
			continue
		}

		yRel := a.Get("LatDist") - cfg.Offset
		if !inRange || prob < cfg.MinProbability ||
			b.Get("Class") >= float64(cfg.ClassCutoff) ||
			math.Abs(yRel) >= cfg.LateralHalfBand {
			continue
		}

		t, ok := ri.tracks.Get(id)
		if !ok {
			if !tracked {
				continue
			}
			t = ri.tracks.Promote(id)
		}
		t.DRel = dist
		t.YRel = yRel
		t.VRel = a.Get("LongSpeed")
		t.ARel = a.Get("LongAccel")
		t.YvRel = b.Get("LatSpeed")
		t.Measured = a.Bool("Meas")
	}

	return &RadarData{
		Points: ri.tracks.Tracks(),
		Errors: ri.canErrors(src),
	}
}
