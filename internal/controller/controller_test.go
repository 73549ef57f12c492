package controller

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hondabus/internal/canbus"
	"github.com/banshee-data/hondabus/internal/hondacan"
	"github.com/banshee-data/hondabus/internal/monitoring"
	"github.com/banshee-data/hondabus/internal/vehicle"
)

func init() {
	monitoring.SetLogger(nil)
}

func lookup(t *testing.T, name string) vehicle.Profile {
	t.Helper()
	p, err := vehicle.DefaultCatalog().Lookup(name)
	require.NoError(t, err)
	return p
}

func names(msgs []canbus.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Name
	}
	return out
}

func find(msgs []canbus.Message, name string) (canbus.Message, bool) {
	for _, m := range msgs {
		if m.Name == name {
			return m, true
		}
	}
	return canbus.Message{}, false
}

func TestCadenceBoschLongControl(t *testing.T) {
	p := lookup(t, "HONDA_ACCORD")
	c := New(p, canbus.NewTopology(p), true)
	act := Actuators{Enabled: true, LatActive: true, LongActive: true, Accel: 0.5}

	want := [][]string{
		{hondacan.MsgBoschSupplemental, hondacan.MsgSteeringControl, hondacan.MsgACCControlOn, hondacan.MsgACCControl,
			hondacan.MsgACCHud, hondacan.MsgLKASHud, hondacan.MsgRadarHud},
		{hondacan.MsgSteeringControl},
		{hondacan.MsgSteeringControl, hondacan.MsgACCControlOn, hondacan.MsgACCControl},
	}
	for frame, w := range want {
		got := names(c.Update(CarState{}, act, HUDControl{}))
		if diff := cmp.Diff(w, got); diff != "" {
			t.Errorf("frame %d (-want +got):\n%s", frame, diff)
		}
	}
	assert.Equal(t, 3, c.Frame())
}

func TestCadenceNidecLongControl(t *testing.T) {
	p := lookup(t, "HONDA_CIVIC")
	c := New(p, canbus.NewTopology(p), true)

	got := names(c.Update(CarState{}, Actuators{Enabled: true, LongActive: true}, HUDControl{}))
	assert.Equal(t, []string{
		hondacan.MsgSteeringControl, hondacan.MsgACCControlOn, hondacan.MsgACCControl,
		hondacan.MsgBrakeCommand, hondacan.MsgACCHud, hondacan.MsgLKASHud,
	}, got)
}

func TestNidecBrakeScaling(t *testing.T) {
	p := lookup(t, "HONDA_CIVIC")
	tests := []struct {
		accel float64
		want  float64
	}{
		{0.5, 0},
		{-2.0, 512},
		{-4.0, 1023},
		{-9.0, 1023},
	}
	for _, tt := range tests {
		c := New(p, canbus.NewTopology(p), true)
		msgs := c.Update(CarState{}, Actuators{LongActive: true, Accel: tt.accel}, HUDControl{})
		brake, ok := find(msgs, hondacan.MsgBrakeCommand)
		require.True(t, ok)
		assert.Equal(t, tt.want, brake.Value("COMPUTER_BRAKE").Float(), "accel %v", tt.accel)
		assert.Equal(t, tt.want > 0, brake.Value("BRAKE_PUMP_REQUEST").Truthy())
	}
}

func TestStoppingCounter(t *testing.T) {
	p := lookup(t, "HONDA_ACCORD")
	c := New(p, canbus.NewTopology(p), true)
	cycles := c.Run([]Step{{
		Cycles:    201,
		Car:       CarState{Standstill: true},
		Actuators: Actuators{Enabled: true, LongActive: true, Accel: -0.5},
	}})
	require.Len(t, cycles, 201)

	acc := func(cy Cycle) canbus.Message {
		m, ok := find(cy.Messages, hondacan.MsgACCControl)
		require.True(t, ok, "frame %d", cy.Frame)
		return m
	}
	assert.False(t, acc(cycles[198]).Value("STANDSTILL").Truthy())
	last := acc(cycles[200])
	assert.True(t, last.Value("STANDSTILL").Truthy())
	assert.Equal(t, vehicle.BoschAccelMin, last.Value("ACCEL_COMMAND").Float())
	assert.True(t, acc(cycles[2]).Value("BRAKE_REQUEST").Truthy())
}

func TestSteeringTorqueScaling(t *testing.T) {
	p := lookup(t, "HONDA_CIVIC")
	c := New(p, canbus.NewTopology(p), false)

	for _, tt := range []struct {
		torque float64
		want   float64
	}{{2.0, 4096}, {-0.5, -2048}, {0, 0}} {
		msgs := c.Update(CarState{}, Actuators{LatActive: true, Torque: tt.torque}, HUDControl{})
		steer, ok := find(msgs, hondacan.MsgSteeringControl)
		require.True(t, ok)
		assert.Equal(t, tt.want, steer.Value("STEER_TORQUE").Float())
	}
}

func TestCancelSpam(t *testing.T) {
	p := lookup(t, "HONDA_CIVIC_2022")
	topo := canbus.NewTopology(p)

	c := New(p, topo, false)
	msgs := c.Update(CarState{}, Actuators{Cancel: true}, HUDControl{})
	btn, ok := find(msgs, hondacan.MsgSCMButtons)
	require.True(t, ok)
	assert.Equal(t, topo.Camera, btn.Bus)
	assert.Equal(t, float64(hondacan.ButtonCancel), btn.Value("CRUISE_BUTTONS").Float())

	msgs = c.Update(CarState{Standstill: true}, Actuators{Resume: true}, HUDControl{})
	btn, ok = find(msgs, hondacan.MsgSCMButtons)
	require.True(t, ok)
	assert.Equal(t, float64(hondacan.ButtonResAccel), btn.Value("CRUISE_BUTTONS").Float())

	long := New(p, topo, true)
	_, ok = find(long.Update(CarState{}, Actuators{Cancel: true}, HUDControl{}), hondacan.MsgSCMButtons)
	assert.False(t, ok)
}

func TestSetSpeedConversion(t *testing.T) {
	tests := []struct {
		vehicle string
		metric  bool
		speed   float64
		want    float64
	}{
		{"HONDA_CIVIC_2022", false, 60 * vehicle.MPHToMS, 60},
		{"HONDA_CIVIC_2022", true, 100 * vehicle.KPHToMS, 100},
		{"HONDA_ACCORD", false, 100 * vehicle.KPHToMS, 100},
	}
	for _, tt := range tests {
		p := lookup(t, tt.vehicle).WithMetric(tt.metric)
		c := New(p, canbus.NewTopology(p), true)
		msgs := c.Update(CarState{}, Actuators{Enabled: true}, HUDControl{SetSpeed: tt.speed})
		hud, ok := find(msgs, hondacan.MsgACCHud)
		require.True(t, ok)
		assert.Equal(t, tt.want, hud.Value("CRUISE_SPEED").Float(), tt.vehicle)
	}
}

func TestParseScript(t *testing.T) {
	doc := []byte(`
vehicle: HONDA_CIVIC
long_control: true
steps:
  - cycles: 3
    actuators:
      enabled: true
      long_active: true
      accel: 1.0
    hud:
      lead_distance_bars: 2
      fcw: true
      set_speed: 20
  - car:
      v_ego: 12
      stock_acc:
        fcm_off: 1
`)
	s, err := ParseScript(doc)
	require.NoError(t, err)
	assert.Equal(t, "HONDA_CIVIC", s.Vehicle)
	require.Len(t, s.Steps, 2)
	assert.Equal(t, 2, s.Steps[0].HUD.LeadDistanceBars)
	assert.True(t, s.Steps[0].HUD.FCW)
	assert.Equal(t, 20.0, s.Steps[0].HUD.SetSpeed)
	assert.Equal(t, 1, s.Steps[1].Car.StockACC.FCMOff)

	p := lookup(t, s.Vehicle)
	cycles := New(p, canbus.NewTopology(p), s.LongControl).Run(s.Steps)
	require.Len(t, cycles, 4)
	assert.Equal(t, 3, cycles[3].Frame)

	hud, ok := find(cycles[0].Messages, hondacan.MsgACCHud)
	require.True(t, ok)
	assert.Equal(t, 3.0, hud.Value("HUD_DISTANCE").Float())
}

func TestParseScriptErrors(t *testing.T) {
	_, err := ParseScript([]byte(""))
	assert.Error(t, err)

	_, err = ParseScript([]byte("vehicle: HONDA_CIVIC\nunknown_key: 1\n"))
	assert.Error(t, err)

	_, err = ParseScript([]byte("steps:\n  - cycles: -1\n"))
	assert.Error(t, err)
}
