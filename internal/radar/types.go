// Package radar turns decoded radar CAN signals into a stable set of tracked
// objects, once per completed sensor scan.
//
// Two sensors are supported. The Tesla/Bosch unit reports every object over a
// pair of messages (A: distance, speed, validity; B: lateral speed, class) and
// each slot runs a validity counter before it is promoted to a track. The
// Nidec unit reports one message per object and is trusted as is.
package radar

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/banshee-data/hondabus/internal/vehicle"
)

// Error markers carried in RadarData.Errors.
const (
	ErrCANError    = "canError"
	ErrFault       = "fault"
	ErrWrongConfig = "wrongConfig"
)

// Signals is one decoded message: signal name to value.
type Signals map[string]float64

// Get returns the named signal, or zero if the decoder did not supply it.
func (s Signals) Get(name string) float64 {
	return s[name]
}

// Bool reports whether the named signal is non-zero.
func (s Signals) Bool(name string) bool {
	return s[name] != 0
}

// Source is the external decoder: the latest decoded signals per message id
// plus its own freshness verdict.
type Source interface {
	Signals(id uint32) (Signals, bool)
	CanValid() bool
}

// Track is a radar-confirmed object. Distances are metres from the front of
// the car, lateral offsets positive to the left.
type Track struct {
	TrackID  uint64  `json:"track_id"`
	DRel     float64 `json:"d_rel"`
	YRel     float64 `json:"y_rel"`
	VRel     float64 `json:"v_rel"`
	ARel     float64 `json:"a_rel"`  // NaN when the sensor does not report it
	YvRel    float64 `json:"yv_rel"` // NaN when the sensor does not report it
	Measured bool    `json:"measured"`
}

// MarshalJSON writes unreported (NaN) fields as null.
func (t Track) MarshalJSON() ([]byte, error) {
	type plain Track
	return json.Marshal(struct {
		plain
		ARel  *float64 `json:"a_rel"`
		YvRel *float64 `json:"yv_rel"`
	}{plain(t), finite(t.ARel), finite(t.YvRel)})
}

func finite(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// RadarData is the output of one completed scan.
type RadarData struct {
	Points []Track  `json:"points"`
	Errors []string `json:"errors"`
	Delay  int      `json:"delay"` // sensor latency in scans
}

// Mode selects the ingestion path for a session.
type Mode int

const (
	// ModeOff is used when the radar is not on a bus this layer reads.
	ModeOff Mode = iota
	// ModeBosch is the dual-message Tesla/Bosch sensor.
	ModeBosch
	// ModeNidec is the single-message stock Nidec sensor.
	ModeNidec
)

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeBosch:
		return "bosch"
	case ModeNidec:
		return "nidec"
	default:
		return "unknown"
	}
}

// SelectMode picks the ingestion mode from the vehicle and the persisted
// retrofit flag.
func SelectMode(p vehicle.Profile, teslaRadar bool) Mode {
	switch {
	case p.RadarOffCan():
		return ModeOff
	case teslaRadar:
		return ModeBosch
	default:
		return ModeNidec
	}
}

func sortedIDs(set map[uint32]struct{}) []uint32 {
	ids := make([]uint32, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
