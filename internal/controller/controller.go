// Package controller runs the 100 Hz control cycle: it keeps the few
// counters that span cycles and calls the pure encoders at their cadences.
package controller

import (
	"math"

	"github.com/banshee-data/hondabus/internal/canbus"
	"github.com/banshee-data/hondabus/internal/hondacan"
	"github.com/banshee-data/hondabus/internal/monitoring"
	"github.com/banshee-data/hondabus/internal/vehicle"
)

// Cycle cadences, in control cycles.
const (
	CycleRateHz = 100
	ACCEvery    = 2  // 50 Hz
	BrakeEvery  = 2  // 50 Hz
	HUDEvery    = 10 // 10 Hz
)

// CarState is the part of the car's own state the cycle needs.
type CarState struct {
	VEgo       float64 `yaml:"v_ego"` // m/s
	Standstill bool    `yaml:"standstill"`

	StockACC        hondacan.StockACCHud  `yaml:"stock_acc"`
	StockLKAS       hondacan.StockLKASHud `yaml:"stock_lkas"`
	StockBrakeChime int                   `yaml:"stock_brake_chime"`
}

// Actuators is the control loop's request for one cycle.
type Actuators struct {
	Enabled    bool    `yaml:"enabled"`
	LatActive  bool    `yaml:"lat_active"`
	LongActive bool    `yaml:"long_active"`
	Accel      float64 `yaml:"accel"`  // m/s²
	Torque     float64 `yaml:"torque"` // normalised, -1..1
	Cancel     bool    `yaml:"cancel"`
	Resume     bool    `yaml:"resume"`
}

// HUDControl is the dashboard request. A positive SetSpeed (m/s) overrides
// VCruise after conversion to cluster units.
type HUDControl struct {
	hondacan.HudState `yaml:",inline"`
	SetSpeed          float64 `yaml:"set_speed"`
}

// Controller assembles the outbound messages of each control cycle.
type Controller struct {
	profile     vehicle.Profile
	topo        canbus.Topology
	longControl bool

	frame           int
	stoppingCounter int
	brakingCounter  int
}

// New returns a controller for one session.
func New(p vehicle.Profile, topo canbus.Topology, longControl bool) *Controller {
	monitoring.Logf("controller: %s pt=%d radar=%d camera=%d long_control=%v radar_disabled=%v",
		p.Name, topo.PT, topo.Radar, topo.Camera, longControl, p.RadarDisabled(longControl))
	return &Controller{profile: p, topo: topo, longControl: longControl}
}

// Frame is the number of cycles run so far.
func (c *Controller) Frame() int {
	return c.frame
}

// Update runs one control cycle.
func (c *Controller) Update(cs CarState, act Actuators, hud HUDControl) []canbus.Message {
	p, topo := c.profile, c.topo
	radarDisabled := p.RadarDisabled(c.longControl)
	var msgs []canbus.Message

	if c.frame == 0 && p.Family == vehicle.FamilyBosch {
		msgs = append(msgs, hondacan.BoschSupplemental(topo, p))
	}

	torque := int(math.Round(clip(act.Torque, -1, 1) * vehicle.SteerMax))
	msgs = append(msgs, hondacan.SteeringControl(topo, p, torque, act.LatActive, radarDisabled))

	accel := clip(act.Accel, c.accelMin(), vehicle.BoschAccelMax)
	if act.LongActive && cs.Standstill {
		c.stoppingCounter++
	} else {
		c.stoppingCounter = 0
	}
	if act.LongActive && accel < 0 {
		c.brakingCounter++
	} else {
		c.brakingCounter = 0
	}

	if c.longControl && c.frame%ACCEvery == 0 {
		msgs = append(msgs, hondacan.ACCCommands(topo, p, hondacan.ACCRequest{
			Enabled:         act.Enabled,
			Active:          act.LongActive,
			Accel:           accel,
			Gas:             vehicle.GasLookup(accel),
			VEgo:            cs.VEgo,
			StoppingCounter: c.stoppingCounter,
			BrakingCounter:  c.brakingCounter,
		})...)
	}

	if c.longControl && p.Family == vehicle.FamilyNidec && c.frame%BrakeEvery == 0 {
		applyBrake := 0.0
		if act.LongActive && accel < 0 {
			applyBrake = math.Round(accel / vehicle.NidecAccelMin * (vehicle.NidecBrakeMax - 1))
		}
		msgs = append(msgs, hondacan.BrakeCommand(topo, hondacan.BrakeRequest{
			ApplyBrake:  applyBrake,
			PumpOn:      applyBrake > 0,
			PCMOverride: true,
			PCMCancel:   act.Cancel,
			FCW:         hud.FCW,
			StockChime:  cs.StockBrakeChime,
		}))
	}

	if c.frame%HUDEvery == 0 {
		h := hud.HudState
		if hud.SetSpeed > 0 {
			h.VCruise = math.Round(hud.SetSpeed / vehicle.CruiseSpeedConversion(p))
		}
		msgs = append(msgs, hondacan.UICommands(topo, p, hondacan.UIRequest{
			Enabled:     act.Enabled,
			LongControl: c.longControl,
			PCMSpeed:    cs.VEgo,
			Braking:     c.brakingCounter > 0,
			Hud:         h,
			StockACC:    cs.StockACC,
			StockLKAS:   cs.StockLKAS,
		})...)
	}

	if !c.longControl {
		switch {
		case act.Cancel:
			msgs = append(msgs, hondacan.SpamButtons(topo, p, hondacan.ButtonCancel))
		case act.Resume && cs.Standstill:
			msgs = append(msgs, hondacan.SpamButtons(topo, p, hondacan.ButtonResAccel))
		}
	}

	c.frame++
	return msgs
}

func (c *Controller) accelMin() float64 {
	if c.profile.Family == vehicle.FamilyNidec {
		return vehicle.NidecAccelMin
	}
	return vehicle.BoschAccelMin
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
