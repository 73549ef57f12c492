package radar

import (
	"math"

	"github.com/banshee-data/hondabus/internal/config"
)

// Config holds the ingestion parameters for a session.
type Config struct {
	Mode Mode

	// Dual-message sensor
	Offset              float64 // lateral mounting offset, metres
	AllObjects          bool    // point cloud plus tracks instead of the 5 tracks
	MaxDistance         float64
	MinProbability      float64
	ValidCountThreshold int
	BorderlineDecrement int
	LateralHalfBand     float64
	ClassCutoff         int

	CANErrorDebounce int

	// Delay is reported with every single-message frame, in scans.
	Delay int
}

// DefaultConfig returns the ingestion configuration loaded from the
// canonical tuning defaults file (config/tuning.defaults.json).
// Panics if the file cannot be found, intended for tests.
func DefaultConfig(mode Mode) Config {
	return ConfigFromTuning(config.MustLoadDefaultConfig(), mode, 0)
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig, mode Mode, offset float64) Config {
	delay := 0
	if mode == ModeNidec {
		delay = int(math.Round(cfg.GetSensorLatency().Seconds() / cfg.GetRadarTimeStep().Seconds()))
	}
	return Config{
		Mode:                mode,
		Offset:              offset,
		AllObjects:          cfg.GetAllObjects(),
		MaxDistance:         cfg.GetMaxDistance(),
		MinProbability:      cfg.GetMinProbability(),
		ValidCountThreshold: cfg.GetValidCountThreshold(),
		BorderlineDecrement: cfg.GetBorderlineDecrement(),
		LateralHalfBand:     cfg.GetLateralHalfBand(),
		ClassCutoff:         cfg.GetClassCutoff(),
		CANErrorDebounce:    cfg.GetCANErrorDebounce(),
		Delay:               delay,
	}
}

// Interface is the radar ingestion state for one session. It is not safe for
// concurrent use; calls are expected to come from a single scheduler.
type Interface struct {
	cfg Config

	updated  map[uint32]struct{}
	registry *Registry
	tracks   *TrackSet
	canErr   ErrorCounter

	// dual-message framing
	msgsA   map[uint32]struct{}
	startID uint32
	endID   uint32

	// single-message status
	fault       bool
	wrongConfig bool
}

// New builds an Interface for cfg.
func New(cfg Config) *Interface {
	ri := &Interface{
		cfg:      cfg,
		updated:  make(map[uint32]struct{}),
		registry: NewRegistry(),
		tracks:   NewTrackSet(NewTrackIDs()),
		canErr:   ErrorCounter{Limit: cfg.CANErrorDebounce},
	}
	if cfg.Mode == ModeBosch {
		a, b := BoschMessages(cfg.AllObjects)
		ri.msgsA = make(map[uint32]struct{}, len(a))
		for _, id := range a {
			ri.msgsA[id] = struct{}{}
		}
		ri.startID, ri.endID = a[0], b[len(b)-1]
	}
	return ri
}

// Mode is the session's ingestion mode.
func (ri *Interface) Mode() Mode {
	return ri.cfg.Mode
}

// Update folds in the ids the decoder refreshed since the last call. It
// returns false until a complete scan has been seen; each complete scan
// yields exactly one frame.
func (ri *Interface) Update(updated []uint32, src Source) (*RadarData, bool) {
	if ri.cfg.Mode == ModeOff {
		return &RadarData{}, true
	}

	for _, id := range updated {
		ri.updated[id] = struct{}{}
	}
	if !ri.scanComplete() {
		return nil, false
	}

	var rd *RadarData
	switch ri.cfg.Mode {
	case ModeBosch:
		rd = ri.updateBosch(src)
	default:
		rd = ri.updateNidec(src)
	}
	clear(ri.updated)
	return rd, true
}

func (ri *Interface) scanComplete() bool {
	if ri.cfg.Mode == ModeBosch {
		_, start := ri.updated[ri.startID]
		_, end := ri.updated[ri.endID]
		return start && end
	}
	_, trigger := ri.updated[NidecTriggerMsg]
	return trigger
}

// Tracks returns the live tracks without waiting for a scan.
func (ri *Interface) Tracks() []Track {
	return ri.tracks.Tracks()
}

// Slot exposes the decode state of a message id.
func (ri *Interface) Slot(id uint32) (*Slot, bool) {
	return ri.registry.Get(id)
}

func (ri *Interface) canErrors(src Source) []string {
	if ri.canErr.Observe(src.CanValid()) {
		return []string{ErrCANError}
	}
	return []string{}
}
