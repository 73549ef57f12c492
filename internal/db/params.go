package db

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrParamNotFound is returned when a key has never been written.
var ErrParamNotFound = errors.New("param not found")

// Param keys read at session start.
const (
	ParamCarFingerprint      = "CarFingerprint"
	ParamTeslaRadarActivate  = "TeslaRadarActivate"
	ParamTeslaRadarOffset    = "TeslaRadarOffset"
	ParamIsMetric            = "IsMetric"
	ParamLongitudinalControl = "LongitudinalControl"
	ParamRadarAllObjects     = "RadarAllObjects"
)

// KnownParams lists the keys SessionParams understands.
func KnownParams() []string {
	keys := []string{
		ParamCarFingerprint,
		ParamTeslaRadarActivate,
		ParamTeslaRadarOffset,
		ParamIsMetric,
		ParamLongitudinalControl,
		ParamRadarAllObjects,
	}
	sort.Strings(keys)
	return keys
}

// GetParam returns the raw value stored under key.
func (db *DB) GetParam(key string) (string, error) {
	var value string
	err := db.QueryRow(`SELECT value FROM params WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrParamNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read param %s: %w", key, err)
	}
	return value, nil
}

// PutParam stores value under key, replacing any previous value.
func (db *DB) PutParam(key, value string) error {
	if key == "" {
		return errors.New("param key must not be empty")
	}
	_, err := db.Exec(`
		INSERT INTO params (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write param %s: %w", key, err)
	}
	return nil
}

// DeleteParam removes key. Deleting a missing key is not an error.
func (db *DB) DeleteParam(key string) error {
	_, err := db.Exec(`DELETE FROM params WHERE key = ?`, key)
	return err
}

// GetBool reads key as a boolean ("1", "true", ...). Missing keys yield def.
func (db *DB) GetBool(key string, def bool) (bool, error) {
	raw, err := db.GetParam(key)
	if errors.Is(err, ErrParamNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, fmt.Errorf("param %s: %w", key, err)
	}
	return v, nil
}

// GetFloat reads key as a float. Missing keys yield def.
func (db *DB) GetFloat(key string, def float64) (float64, error) {
	raw, err := db.GetParam(key)
	if errors.Is(err, ErrParamNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def, fmt.Errorf("param %s: %w", key, err)
	}
	return v, nil
}

// SessionParams is the persisted configuration a session starts from.
type SessionParams struct {
	CarFingerprint   string  `json:"car_fingerprint"`
	TeslaRadar       bool    `json:"tesla_radar"`
	TeslaRadarOffset float64 `json:"tesla_radar_offset"` // lateral mounting offset, metres
	Metric           bool    `json:"metric"`
	LongControl      bool    `json:"long_control"`
	RadarAllObjects  bool    `json:"radar_all_objects"`
}

// SessionParams reads every session key. Only CarFingerprint is required;
// RadarAllObjects defaults to true.
func (db *DB) SessionParams() (SessionParams, error) {
	var p SessionParams
	var err error
	if p.CarFingerprint, err = db.GetParam(ParamCarFingerprint); err != nil {
		return p, err
	}
	if p.TeslaRadar, err = db.GetBool(ParamTeslaRadarActivate, false); err != nil {
		return p, err
	}
	if p.TeslaRadarOffset, err = db.GetFloat(ParamTeslaRadarOffset, 0); err != nil {
		return p, err
	}
	if p.Metric, err = db.GetBool(ParamIsMetric, false); err != nil {
		return p, err
	}
	if p.LongControl, err = db.GetBool(ParamLongitudinalControl, false); err != nil {
		return p, err
	}
	if p.RadarAllObjects, err = db.GetBool(ParamRadarAllObjects, true); err != nil {
		return p, err
	}
	return p, nil
}
