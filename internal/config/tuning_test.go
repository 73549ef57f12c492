package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.MaxDistance == nil || *cfg.MaxDistance != 250.0 {
		t.Errorf("Expected MaxDistance 250, got %v", cfg.MaxDistance)
	}
	if cfg.ValidCountThreshold == nil || *cfg.ValidCountThreshold != 4 {
		t.Errorf("Expected ValidCountThreshold 4, got %v", cfg.ValidCountThreshold)
	}
	if cfg.RadarTimeStep == nil || *cfg.RadarTimeStep != "50ms" {
		t.Errorf("Expected RadarTimeStep '50ms', got %v", cfg.RadarTimeStep)
	}
	if cfg.SensorLatency == nil || *cfg.SensorLatency != "100ms" {
		t.Errorf("Expected SensorLatency '100ms', got %v", cfg.SensorLatency)
	}
	if cfg.AllObjects == nil || *cfg.AllObjects != true {
		t.Errorf("Expected AllObjects true, got %v", cfg.AllObjects)
	}

	if cfg.GetMinProbability() != 50.0 {
		t.Errorf("GetMinProbability() = %f, want 50", cfg.GetMinProbability())
	}
	if cfg.GetBorderlineDecrement() != 20 {
		t.Errorf("GetBorderlineDecrement() = %d, want 20", cfg.GetBorderlineDecrement())
	}
	if cfg.GetLateralHalfBand() != 3.5 {
		t.Errorf("GetLateralHalfBand() = %f, want 3.5", cfg.GetLateralHalfBand())
	}
	if cfg.GetClassCutoff() != 4 {
		t.Errorf("GetClassCutoff() = %d, want 4", cfg.GetClassCutoff())
	}
	if cfg.GetCANErrorDebounce() != 9 {
		t.Errorf("GetCANErrorDebounce() = %d, want 9", cfg.GetCANErrorDebounce())
	}
}

func TestDefaultsFileMatchesGetters(t *testing.T) {
	fromFile := MustLoadDefaultConfig()
	empty := EmptyTuningConfig()

	if fromFile.GetMaxDistance() != empty.GetMaxDistance() {
		t.Errorf("max_distance: file %f, getter %f", fromFile.GetMaxDistance(), empty.GetMaxDistance())
	}
	if fromFile.GetMinProbability() != empty.GetMinProbability() {
		t.Errorf("min_probability: file %f, getter %f", fromFile.GetMinProbability(), empty.GetMinProbability())
	}
	if fromFile.GetValidCountThreshold() != empty.GetValidCountThreshold() {
		t.Errorf("valid_count_threshold: file %d, getter %d", fromFile.GetValidCountThreshold(), empty.GetValidCountThreshold())
	}
	if fromFile.GetBorderlineDecrement() != empty.GetBorderlineDecrement() {
		t.Errorf("borderline_decrement: file %d, getter %d", fromFile.GetBorderlineDecrement(), empty.GetBorderlineDecrement())
	}
	if fromFile.GetLateralHalfBand() != empty.GetLateralHalfBand() {
		t.Errorf("lateral_half_band: file %f, getter %f", fromFile.GetLateralHalfBand(), empty.GetLateralHalfBand())
	}
	if fromFile.GetClassCutoff() != empty.GetClassCutoff() {
		t.Errorf("class_cutoff: file %d, getter %d", fromFile.GetClassCutoff(), empty.GetClassCutoff())
	}
	if fromFile.GetAllObjects() != empty.GetAllObjects() {
		t.Errorf("all_objects: file %v, getter %v", fromFile.GetAllObjects(), empty.GetAllObjects())
	}
	if fromFile.GetCANErrorDebounce() != empty.GetCANErrorDebounce() {
		t.Errorf("can_error_debounce: file %d, getter %d", fromFile.GetCANErrorDebounce(), empty.GetCANErrorDebounce())
	}
	if fromFile.GetRadarTimeStep() != empty.GetRadarTimeStep() {
		t.Errorf("radar_time_step: file %s, getter %s", fromFile.GetRadarTimeStep(), empty.GetRadarTimeStep())
	}
	if fromFile.GetSensorLatency() != empty.GetSensorLatency() {
		t.Errorf("sensor_latency: file %s, getter %s", fromFile.GetSensorLatency(), empty.GetSensorLatency())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "max_distance": 200.0,
  "valid_count_threshold": 2,
  "all_objects": false,
  "radar_time_step": "100ms"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetMaxDistance() != 200.0 {
		t.Errorf("Expected MaxDistance 200, got %f", cfg.GetMaxDistance())
	}
	if cfg.GetValidCountThreshold() != 2 {
		t.Errorf("Expected ValidCountThreshold 2, got %d", cfg.GetValidCountThreshold())
	}
	if cfg.GetAllObjects() != false {
		t.Errorf("Expected AllObjects false, got %v", cfg.GetAllObjects())
	}
	if cfg.GetRadarTimeStep() != 100*time.Millisecond {
		t.Errorf("Expected RadarTimeStep 100ms, got %s", cfg.GetRadarTimeStep())
	}
	// omitted fields keep their defaults
	if cfg.GetMinProbability() != 50.0 {
		t.Errorf("Expected default MinProbability 50, got %f", cfg.GetMinProbability())
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadTuningConfigWrongExtension(t *testing.T) {
	_, err := LoadTuningConfig("tuning.yaml")
	if err == nil {
		t.Error("Expected error for non-json extension, got nil")
	}
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.json")

	invalidJSON := `{
  "max_distance": "far"
`
	if err := os.WriteFile(configPath, []byte(invalidJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{name: "valid config", cfg: DefaultTuningConfig()},
		{name: "empty config is valid", cfg: &TuningConfig{}},
		{name: "zero max distance", cfg: &TuningConfig{MaxDistance: ptrFloat64(0)}, wantErr: true},
		{name: "probability above 100", cfg: &TuningConfig{MinProbability: ptrFloat64(101)}, wantErr: true},
		{name: "negative probability", cfg: &TuningConfig{MinProbability: ptrFloat64(-1)}, wantErr: true},
		{name: "negative threshold", cfg: &TuningConfig{ValidCountThreshold: ptrInt(-1)}, wantErr: true},
		{name: "zero decrement", cfg: &TuningConfig{BorderlineDecrement: ptrInt(0)}, wantErr: true},
		{name: "zero lateral band", cfg: &TuningConfig{LateralHalfBand: ptrFloat64(0)}, wantErr: true},
		{name: "negative debounce", cfg: &TuningConfig{CANErrorDebounce: ptrInt(-2)}, wantErr: true},
		{name: "invalid time step", cfg: &TuningConfig{RadarTimeStep: ptrString("soon")}, wantErr: true},
		{name: "zero time step", cfg: &TuningConfig{RadarTimeStep: ptrString("0s")}, wantErr: true},
		{name: "invalid latency", cfg: &TuningConfig{SensorLatency: ptrString("later")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetRadarTimeStep(t *testing.T) {
	tests := []struct {
		name string
		cfg  *TuningConfig
		want time.Duration
	}{
		{name: "nil uses default", cfg: &TuningConfig{}, want: 50 * time.Millisecond},
		{name: "empty uses default", cfg: &TuningConfig{RadarTimeStep: ptrString("")}, want: 50 * time.Millisecond},
		{name: "parse error uses default", cfg: &TuningConfig{RadarTimeStep: ptrString("x")}, want: 50 * time.Millisecond},
		{name: "explicit", cfg: &TuningConfig{RadarTimeStep: ptrString("25ms")}, want: 25 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GetRadarTimeStep(); got != tt.want {
				t.Errorf("GetRadarTimeStep() = %v, want %v", got, tt.want)
			}
		})
	}
}
