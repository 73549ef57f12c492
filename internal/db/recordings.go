package db

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/hondabus/internal/canbus"
	"github.com/banshee-data/hondabus/internal/monitoring"
	"github.com/banshee-data/hondabus/internal/radar"
)

// StartSession registers a new recording and returns its id. source names
// where the data came from ("serial:/dev/ttyACM0", "pcap:drive.pcap", ...).
func (db *DB) StartSession(vehicle, source string) (string, error) {
	id := uuid.NewString()
	if _, err := db.Exec(`INSERT INTO sessions (session_id, vehicle, source) VALUES (?, ?, ?)`,
		id, vehicle, source); err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}
	monitoring.Logf("db: session %s started (%s, %s)", id, vehicle, source)
	return id, nil
}

// RecordFrame stores one raw frame seen at ts.
func (db *DB) RecordFrame(session string, f canbus.Frame, ts time.Time) error {
	_, err := db.Exec(`
		INSERT INTO can_frames (session_id, ts_unix_ns, bus, address, extended, data)
		VALUES (?, ?, ?, ?, ?, ?)`,
		session, ts.UnixNano(), f.Bus, int64(f.Address), f.Extended, f.Data)
	if err != nil {
		return fmt.Errorf("failed to record frame: %w", err)
	}
	return nil
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// RecordRadarData stores one emitted radar frame. Unmeasured NaN fields are
// stored as NULL.
func (db *DB) RecordRadarData(session string, frame int, data *radar.RadarData) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, p := range data.Points {
		if _, err := tx.Exec(`
			INSERT INTO radar_points (session_id, frame_index, track_id, d_rel, y_rel, v_rel, a_rel, yv_rel, measured)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			session, frame, int64(p.TrackID), p.DRel, p.YRel, p.VRel,
			nullable(p.ARel), nullable(p.YvRel), p.Measured); err != nil {
			return fmt.Errorf("failed to record radar point: %w", err)
		}
	}
	for _, e := range data.Errors {
		if _, err := tx.Exec(`INSERT INTO radar_errors (session_id, frame_index, error) VALUES (?, ?, ?)`,
			session, frame, e); err != nil {
			return fmt.Errorf("failed to record radar error: %w", err)
		}
	}
	return tx.Commit()
}

// RecordedPoint is a radar point with the frame it was emitted in.
type RecordedPoint struct {
	Frame int         `json:"frame"`
	Point radar.Track `json:"point"`
}

// RadarPoints returns every recorded point of session ordered by frame and
// track id.
func (db *DB) RadarPoints(session string) ([]RecordedPoint, error) {
	rows, err := db.Query(`
		SELECT frame_index, track_id, d_rel, y_rel, v_rel, a_rel, yv_rel, measured
		FROM radar_points WHERE session_id = ?
		ORDER BY frame_index, track_id`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []RecordedPoint
	for rows.Next() {
		var p RecordedPoint
		var trackID int64
		var aRel, yvRel sql.NullFloat64
		if err := rows.Scan(&p.Frame, &trackID, &p.Point.DRel, &p.Point.YRel, &p.Point.VRel, &aRel, &yvRel, &p.Point.Measured); err != nil {
			return nil, err
		}
		p.Point.TrackID = uint64(trackID)
		p.Point.ARel = fromNullable(aRel)
		p.Point.YvRel = fromNullable(yvRel)
		points = append(points, p)
	}
	return points, rows.Err()
}

// RadarErrors returns the error strings recorded per frame.
func (db *DB) RadarErrors(session string) (map[int][]string, error) {
	rows, err := db.Query(`
		SELECT frame_index, error FROM radar_errors WHERE session_id = ?
		ORDER BY frame_index, rowid`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int][]string)
	for rows.Next() {
		var frame int
		var e string
		if err := rows.Scan(&frame, &e); err != nil {
			return nil, err
		}
		out[frame] = append(out[frame], e)
	}
	return out, rows.Err()
}

// FrameCount is the number of frames recorded for one identifier on one bus.
type FrameCount struct {
	Bus     int    `json:"bus"`
	Address uint32 `json:"address"`
	Count   int    `json:"count"`
}

// FrameCounts summarises a session's raw traffic by bus and address.
func (db *DB) FrameCounts(session string) ([]FrameCount, error) {
	rows, err := db.Query(`
		SELECT bus, address, COUNT(*) FROM can_frames WHERE session_id = ?
		GROUP BY bus, address ORDER BY bus, address`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []FrameCount
	for rows.Next() {
		var c FrameCount
		var address int64
		if err := rows.Scan(&c.Bus, &address, &c.Count); err != nil {
			return nil, err
		}
		c.Address = uint32(address)
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
