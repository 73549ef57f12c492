package hondacan

import (
	"github.com/banshee-data/hondabus/internal/canbus"
	"github.com/banshee-data/hondabus/internal/vehicle"
)

// HudState is one cycle's dashboard intent.
type HudState struct {
	VCruise          float64 `yaml:"v_cruise"`           // set speed in cluster units
	LeadDistanceBars int     `yaml:"lead_distance_bars"` // 0..3
	LeadVisible      bool    `yaml:"lead_visible"`
	LanesVisible     bool    `yaml:"lanes_visible"`
	SteerRequired    bool    `yaml:"steer_required"`
	LDW              bool    `yaml:"ldw"` // lane departure warning
	FCW              bool    `yaml:"fcw"` // forward collision warning
	E2E              bool    `yaml:"e2e"` // end-to-end longitudinal mode
	PCMAccel         float64 `yaml:"pcm_accel"`
}

// StockACCHud holds ACC_HUD fields mirrored from the car's own frame. Nidec
// cars need them passed through unmodified.
type StockACCHud struct {
	FCMOff     int `yaml:"fcm_off"`
	FCMOff2    int `yaml:"fcm_off_2"`
	FCMProblem int `yaml:"fcm_problem"`
	Icons      int `yaml:"icons"`
}

// StockLKASHud holds LKAS_HUD fields mirrored from the camera.
type StockLKASHud struct {
	LKASProblem int `yaml:"lkas_problem"`
}

// UIRequest gathers the inputs of UICommands.
type UIRequest struct {
	Enabled     bool
	LongControl bool // this layer owns longitudinal control
	PCMSpeed    float64
	Braking     bool
	Hud         HudState
	StockACC    StockACCHud
	StockLKAS   StockLKASHud
}

// UICommands encodes the cluster HUD messages.
func UICommands(topo canbus.Topology, p vehicle.Profile, req UIRequest) []canbus.Message {
	var commands []canbus.Message
	radarDisabled := p.RadarDisabled(req.LongControl)
	busLKAS := canbus.LKASBus(topo, p, radarDisabled)
	hud := req.Hud

	if req.LongControl {
		cruiseSpeed := hud.VCruise
		if req.Braking {
			cruiseSpeed = HiddenCruiseSpeed
		}
		hudLead := 0
		if req.Enabled {
			hudLead = 1
			if hud.LeadVisible {
				hudLead = 2
			}
		}

		var acc canbus.Fields
		acc.Set("CRUISE_SPEED", canbus.Num(cruiseSpeed))
		acc.Set("ENABLE_MINI_CAR", canbus.Int(b2i(req.Enabled)))
		// wraps to 0 at 4 bars
		acc.Set("HUD_DISTANCE", canbus.Int((hud.LeadDistanceBars+1)%4))
		acc.Set("IMPERIAL_UNIT", canbus.Int(b2i(!p.Metric)))
		acc.Set("HUD_LEAD", canbus.Int(hudLead))
		acc.Set("SET_ME_X01_2", canbus.Int(1))
		acc.Set("ACC_ON", canbus.Int(b2i(req.Enabled)))

		switch p.Family {
		case vehicle.FamilyBosch:
			acc.Set("FCM_OFF", canbus.Int(1))
			acc.Set("FCM_OFF_2", canbus.Int(1))
			acc.Set("ICONS", canbus.Int(b2i(hud.E2E)<<1))
		default:
			acc.Set("PCM_SPEED", canbus.Num(req.PCMSpeed*vehicle.MSToKPH))
			acc.Set("PCM_GAS", canbus.Num(hud.PCMAccel))
			acc.Set("SET_ME_X01", canbus.Int(1))
			acc.Set("FCM_OFF", canbus.Int(req.StockACC.FCMOff))
			acc.Set("FCM_OFF_2", canbus.Int(req.StockACC.FCMOff2))
			acc.Set("FCM_PROBLEM", canbus.Int(req.StockACC.FCMProblem))
			acc.Set("ICONS", canbus.Int(req.StockACC.Icons))
		}
		commands = append(commands, canbus.NewMessage(MsgACCHud, topo.PT, acc))
	}

	var lkas canbus.Fields
	lkas.Set("SET_ME_X41", canbus.Int(0x41))
	lkas.Set("STEERING_REQUIRED", canbus.Bool(hud.SteerRequired))
	lkas.Set("SOLID_LANES", canbus.Bool(hud.LanesVisible))
	lkas.Set("BEEP", canbus.Int(0))
	lkas.Set("RDM_OFF_MINI_ICON", canbus.Bool(hud.E2E))
	lkas.Set("LANE_DEPARTURE_WARNING", canbus.Bool(hud.LDW))

	if p.Radarless {
		lkas.Set("LANE_LINES", canbus.Int(3))
		lkas.Set("DASHED_LANES", canbus.Bool(hud.LanesVisible))
		// the car expects LKAS_PROBLEM to fall within a time frame, forward it from the camera
		lkas.Set("LKAS_PROBLEM", canbus.Int(req.StockLKAS.LKASProblem))
	}
	if !p.ExtendedHUD {
		lkas.Set("SET_ME_X48", canbus.Int(0x48))
	}

	if p.ExtendedHUD && !req.LongControl {
		commands = append(commands,
			canbus.NewMessage(MsgLKASHudA, busLKAS, lkas),
			canbus.NewMessage(MsgLKASHudB, busLKAS, lkas.Clone()))
	} else {
		commands = append(commands, canbus.NewMessage(MsgLKASHud, busLKAS, lkas))
	}

	if radarDisabled {
		var radar canbus.Fields
		radar.Set("CMBS_OFF", canbus.Int(0x01))
		radar.Set("SET_TO_1", canbus.Int(0x01))
		commands = append(commands, canbus.NewMessage(MsgRadarHud, topo.PT, radar))

		if p.LegacyBrakeAlert {
			var legacy canbus.Fields
			legacy.Set("AEB_BRAKE_ALERT", canbus.Bool(hud.FCW))
			commands = append(commands, canbus.NewMessage(MsgLegacyBrakeCommand, topo.PT, legacy))
		}
	}

	return commands
}
