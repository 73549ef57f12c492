// Package hondacan turns one control cycle's intent into outbound Honda
// messages. Every function here is pure: the same inputs always produce the
// same messages, every field is assigned on every branch, and unknown input
// resolves to a documented sentinel instead of an error.
package hondacan

// Sentinels and fixed values written by the encoders.
const (
	// GasSentinel disables the gas command.
	GasSentinel = -3000
	// HiddenCruiseSpeed blanks the cluster's set speed while braking so the
	// displayed target does not flash.
	HiddenCruiseSpeed = 252

	// ControlRateHz is the rate the stopping counter advances at.
	ControlRateHz = 50
	// StoppedAfterCycles allows idle stop after 4 seconds at standstill.
	StoppedAfterCycles = 4 * ControlRateHz

	// StandstillReleaseSpeed is the speed below which a positive accel
	// briefly holds the standstill release signal.
	StandstillReleaseSpeed = 0.5
	// CoastBrakeAccel is the accel below which coast braking is requested.
	CoastBrakeAccel = -0.15
)

// Message names, as spelled in the signal catalog.
const (
	MsgBrakeCommand       = "BRAKE_COMMAND"
	MsgACCControl         = "ACC_CONTROL"
	MsgACCControlOn       = "ACC_CONTROL_ON"
	MsgSteeringControl    = "STEERING_CONTROL"
	MsgBoschSupplemental  = "BOSCH_SUPPLEMENTAL_1"
	MsgACCHud             = "ACC_HUD"
	MsgLKASHud            = "LKAS_HUD"
	MsgLKASHudA           = "LKAS_HUD_A"
	MsgLKASHudB           = "LKAS_HUD_B"
	MsgRadarHud           = "RADAR_HUD"
	MsgLegacyBrakeCommand = "LEGACY_BRAKE_COMMAND"
	MsgSCMButtons         = "SCM_BUTTONS"
	MsgKWPRequest         = "Tester_16f118_KWP_Req_BCM"
)

// CruiseButton is the SCM_BUTTONS CRUISE_BUTTONS code.
type CruiseButton int

const (
	ButtonNone     CruiseButton = 0
	ButtonMain     CruiseButton = 1
	ButtonCancel   CruiseButton = 2
	ButtonDecelSet CruiseButton = 3
	ButtonResAccel CruiseButton = 4
)

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
