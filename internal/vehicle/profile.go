// Package vehicle describes the connected Honda/Acura variant: which control
// message dialect it speaks, whether a radar node sits on the bus, and which
// HUD layout the instrument cluster expects.
package vehicle

import "fmt"

// Family is the control-message dialect of a platform generation.
type Family int

const (
	// FamilyNidec is the older dialect (Nidec radar, PCM cruise with
	// computer brake commands).
	FamilyNidec Family = iota
	// FamilyBosch is the newer dialect (Bosch radar/camera, ACC_CONTROL).
	FamilyBosch
)

func (f Family) String() string {
	switch f {
	case FamilyNidec:
		return "nidec"
	case FamilyBosch:
		return "bosch"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// ParseFamily maps the catalog spelling of a family to its tag.
func ParseFamily(s string) (Family, error) {
	switch s {
	case "nidec":
		return FamilyNidec, nil
	case "bosch":
		return FamilyBosch, nil
	default:
		return 0, fmt.Errorf("unknown platform family %q", s)
	}
}

// Profile is the immutable description of the connected vehicle. It is built
// once at session start and only read afterwards.
type Profile struct {
	Name   string
	Family Family

	// Radarless cars have no physical radar node; the camera relays
	// steering and button traffic instead.
	Radarless bool
	// ExtendedHUD cars expect the lane HUD as two frames (LKAS_HUD_A/B)
	// when stock longitudinal control is kept.
	ExtendedHUD bool
	// LegacyBrakeAlert cars need LEGACY_BRAKE_COMMAND to carry the FCW
	// alert once the radar has been disabled.
	LegacyBrakeAlert bool

	// Metric reflects the car's unit setting.
	Metric bool
}

// HasRadarNode reports whether a physical radar sits between the camera and
// the powertrain bus.
func (p Profile) HasRadarNode() bool {
	return !p.Radarless
}

// RadarOffCan reports whether the stock radar's object messages are not
// readable by this layer. Bosch radars keep their tracks on a private bus.
func (p Profile) RadarOffCan() bool {
	return p.Family == FamilyBosch
}

// RadarDisabled reports whether the stock radar is logically disabled:
// a Bosch car with a radar node whose longitudinal control is owned here.
func (p Profile) RadarDisabled(longControl bool) bool {
	return p.Family == FamilyBosch && !p.Radarless && longControl
}

// WithMetric returns a copy of p with the unit setting applied.
func (p Profile) WithMetric(metric bool) Profile {
	p.Metric = metric
	return p
}

func (p Profile) String() string {
	return fmt.Sprintf("%s(%s radarless=%t ext_hud=%t)", p.Name, p.Family, p.Radarless, p.ExtendedHUD)
}
