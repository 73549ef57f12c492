// Package canbus maps logical bus roles onto physical bus indices and models
// the frames handed to and received from the external signal codec.
//
// Bus layout behind the harness relay, per group of four:
//
//	0 = ACC-CAN, radar side
//	1 = F-CAN B, powertrain
//	2 = ACC-CAN, camera side
//	3 = F-CAN A, OBD-II port
package canbus

import (
	"math"

	"github.com/banshee-data/hondabus/internal/vehicle"
)

// BusesPerGateway is the number of physical buses behind one gateway.
const BusesPerGateway = 4

// Topology resolves the logical bus roles for one session.
type Topology struct {
	Offset int
	PT     int
	Radar  int
	Camera int
}

// TopologyOption adjusts how the base offset is derived.
type TopologyOption func(*topologyOpts)

type topologyOpts struct {
	offset int
}

// WithOffset forces an explicit base offset.
func WithOffset(offset int) TopologyOption {
	return func(o *topologyOpts) { o.offset = offset }
}

// WithGateways derives the offset from the number of gateways the harness
// exposes: the car sits behind the last one.
func WithGateways(n int) TopologyOption {
	return func(o *topologyOpts) { o.offset = BusesPerGateway * (n - 1) }
}

// WithFingerprint derives the offset from a raw fingerprint sniff, keyed by
// bus index then message address. Used before the profile's gateway count is
// known.
func WithFingerprint(fp map[int]map[uint32]int) TopologyOption {
	return func(o *topologyOpts) {
		maxBus := -1
		for bus, msgs := range fp {
			if len(msgs) > 0 && bus > maxBus {
				maxBus = bus
			}
		}
		if maxBus < 0 {
			maxBus = 1
		}
		n := int(math.Ceil(float64(maxBus) / BusesPerGateway))
		if n < 1 {
			n = 1
		}
		o.offset = BusesPerGateway * (n - 1)
	}
}

// NewTopology builds the bus mapping for a profile.
func NewTopology(p vehicle.Profile, opts ...TopologyOption) Topology {
	var o topologyOpts
	for _, opt := range opts {
		opt(&o)
	}

	t := Topology{Offset: o.offset, Camera: o.offset + 2}
	if p.Family == vehicle.FamilyBosch && !p.Radarless {
		t.Radar, t.PT = o.offset, o.offset+1
	} else {
		t.PT, t.Radar = o.offset, o.offset+1
	}
	return t
}

// Diagnostic is the OBD-II port bus of the group.
func (t Topology) Diagnostic() int {
	return t.Offset + 3
}

// LKASBus returns the bus for steering-class commands. Normally they go to
// bus 0 and the radar forwards them to the powertrain; with the radar
// disabled or absent they are sent to the powertrain directly.
func LKASBus(t Topology, p vehicle.Profile, radarDisabled bool) int {
	if radarDisabled || p.Radarless {
		return t.PT
	}
	return 0
}

// ButtonBus returns the bus for cruise button spam. Radarless cars relay
// buttons through the camera.
func ButtonBus(t Topology, p vehicle.Profile) int {
	if p.Radarless {
		return t.Camera
	}
	return t.PT
}
