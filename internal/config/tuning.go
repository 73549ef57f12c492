package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the radar ingestion tuning parameters.
// Omitted fields fall back to the Get* defaults, so partial files are safe.
type TuningConfig struct {
	// Dual-message (Bosch/Tesla sensor) gates
	MaxDistance         *float64 `json:"max_distance,omitempty"`          // metres
	MinProbability      *float64 `json:"min_probability,omitempty"`       // existence probability, percent
	ValidCountThreshold *int     `json:"valid_count_threshold,omitempty"` // promotion threshold
	BorderlineDecrement *int     `json:"borderline_decrement,omitempty"`
	LateralHalfBand     *float64 `json:"lateral_half_band,omitempty"` // metres either side
	ClassCutoff         *int     `json:"class_cutoff,omitempty"`
	AllObjects          *bool    `json:"all_objects,omitempty"` // point cloud plus tracks

	// Decode health
	CANErrorDebounce *int `json:"can_error_debounce,omitempty"`

	// Single-message (Nidec) sensor
	RadarTimeStep *string `json:"radar_time_step,omitempty"` // duration string like "50ms"
	SensorLatency *string `json:"sensor_latency,omitempty"`  // duration string like "100ms"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated from
// the Get* defaults.
func DefaultTuningConfig() *TuningConfig {
	var c TuningConfig
	return &TuningConfig{
		MaxDistance:         ptrFloat64(c.GetMaxDistance()),
		MinProbability:      ptrFloat64(c.GetMinProbability()),
		ValidCountThreshold: ptrInt(c.GetValidCountThreshold()),
		BorderlineDecrement: ptrInt(c.GetBorderlineDecrement()),
		LateralHalfBand:     ptrFloat64(c.GetLateralHalfBand()),
		ClassCutoff:         ptrInt(c.GetClassCutoff()),
		AllObjects:          ptrBool(c.GetAllObjects()),
		CANErrorDebounce:    ptrInt(c.GetCANErrorDebounce()),
		RadarTimeStep:       ptrString(c.GetRadarTimeStep().String()),
		SensorLatency:       ptrString(c.GetSensorLatency().String()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.MaxDistance != nil && *c.MaxDistance <= 0 {
		return fmt.Errorf("max_distance must be positive, got %f", *c.MaxDistance)
	}

	if c.MinProbability != nil {
		if *c.MinProbability < 0 || *c.MinProbability > 100 {
			return fmt.Errorf("min_probability must be between 0 and 100, got %f", *c.MinProbability)
		}
	}

	if c.ValidCountThreshold != nil && *c.ValidCountThreshold < 0 {
		return fmt.Errorf("valid_count_threshold must be non-negative, got %d", *c.ValidCountThreshold)
	}

	if c.BorderlineDecrement != nil && *c.BorderlineDecrement <= 0 {
		return fmt.Errorf("borderline_decrement must be positive, got %d", *c.BorderlineDecrement)
	}

	if c.LateralHalfBand != nil && *c.LateralHalfBand <= 0 {
		return fmt.Errorf("lateral_half_band must be positive, got %f", *c.LateralHalfBand)
	}

	if c.CANErrorDebounce != nil && *c.CANErrorDebounce < 0 {
		return fmt.Errorf("can_error_debounce must be non-negative, got %d", *c.CANErrorDebounce)
	}

	if c.RadarTimeStep != nil && *c.RadarTimeStep != "" {
		d, err := time.ParseDuration(*c.RadarTimeStep)
		if err != nil {
			return fmt.Errorf("invalid radar_time_step '%s': %w", *c.RadarTimeStep, err)
		}
		if d <= 0 {
			return fmt.Errorf("radar_time_step must be positive, got %s", d)
		}
	}

	if c.SensorLatency != nil && *c.SensorLatency != "" {
		if _, err := time.ParseDuration(*c.SensorLatency); err != nil {
			return fmt.Errorf("invalid sensor_latency '%s': %w", *c.SensorLatency, err)
		}
	}

	return nil
}

// GetMaxDistance returns the max_distance value or the default.
func (c *TuningConfig) GetMaxDistance() float64 {
	if c.MaxDistance == nil {
		return 250.0
	}
	return *c.MaxDistance
}

// GetMinProbability returns the min_probability value or the default.
func (c *TuningConfig) GetMinProbability() float64 {
	if c.MinProbability == nil {
		return 50.0
	}
	return *c.MinProbability
}

// GetValidCountThreshold returns the valid_count_threshold value or the default.
func (c *TuningConfig) GetValidCountThreshold() int {
	if c.ValidCountThreshold == nil {
		return 4
	}
	return *c.ValidCountThreshold
}

// GetBorderlineDecrement returns the borderline_decrement value or the default.
func (c *TuningConfig) GetBorderlineDecrement() int {
	if c.BorderlineDecrement == nil {
		return 20
	}
	return *c.BorderlineDecrement
}

// GetLateralHalfBand returns the lateral_half_band value or the default.
func (c *TuningConfig) GetLateralHalfBand() float64 {
	if c.LateralHalfBand == nil {
		return 3.5
	}
	return *c.LateralHalfBand
}

// GetClassCutoff returns the class_cutoff value or the default.
// Classes at or above the cutoff are construction elements.
func (c *TuningConfig) GetClassCutoff() int {
	if c.ClassCutoff == nil {
		return 4
	}
	return *c.ClassCutoff
}

// GetAllObjects returns the all_objects value or the default.
func (c *TuningConfig) GetAllObjects() bool {
	if c.AllObjects == nil {
		return true // 'L' tracks drop out under 6 m
	}
	return *c.AllObjects
}

// GetCANErrorDebounce returns the can_error_debounce value or the default.
func (c *TuningConfig) GetCANErrorDebounce() int {
	if c.CANErrorDebounce == nil {
		return 9
	}
	return *c.CANErrorDebounce
}

// GetRadarTimeStep parses and returns the RadarTimeStep as a time.Duration.
func (c *TuningConfig) GetRadarTimeStep() time.Duration {
	if c.RadarTimeStep == nil || *c.RadarTimeStep == "" {
		return 50 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.RadarTimeStep)
	if err != nil || d <= 0 {
		return 50 * time.Millisecond // default on parse error
	}
	return d
}

// GetSensorLatency parses and returns the SensorLatency as a time.Duration.
func (c *TuningConfig) GetSensorLatency() time.Duration {
	if c.SensorLatency == nil || *c.SensorLatency == "" {
		return 100 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.SensorLatency)
	if err != nil {
		return 100 * time.Millisecond // default on parse error
	}
	return d
}
