// Package db provides the sqlite-backed session store: per-workstation
// screen-calibration profiles and end-of-session behavior summaries.
// Frame-level data is never persisted; the engine is purely in-memory.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sightline-data/gaze.report/internal/behavior"
	"github.com/sightline-data/gaze.report/internal/gaze"
)

// DB wraps the sqlite connection.
type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the sqlite database at path. Schema creation
// is handled separately by MigrateUp.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer; the store is low-traffic
	// (calibration changes and end-of-session summaries only).
	db.SetMaxOpenConns(1)
	return &DB{db}, nil
}

// CalibrationProfile is one workstation's stored screen geometry.
type CalibrationProfile struct {
	StationID string              `json:"station_id"`
	Geometry  gaze.ScreenGeometry `json:"geometry"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// SaveCalibration inserts or replaces the calibration profile for a
// workstation. Geometry is validated before touching the store.
func (db *DB) SaveCalibration(stationID string, geom gaze.ScreenGeometry) error {
	if stationID == "" {
		return fmt.Errorf("station id must not be empty")
	}
	if err := geom.Validate(); err != nil {
		return fmt.Errorf("invalid calibration for station %q: %w", stationID, err)
	}

	_, err := db.Exec(`
		INSERT INTO calibration_profiles
			(station_id, width_mm, height_mm, distance_mm, offset_x_mm, offset_y_mm, width_px, height_px, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(station_id) DO UPDATE SET
			width_mm = excluded.width_mm,
			height_mm = excluded.height_mm,
			distance_mm = excluded.distance_mm,
			offset_x_mm = excluded.offset_x_mm,
			offset_y_mm = excluded.offset_y_mm,
			width_px = excluded.width_px,
			height_px = excluded.height_px,
			updated_at = excluded.updated_at`,
		stationID, geom.WidthMM, geom.HeightMM, geom.DistanceMM,
		geom.OffsetXMM, geom.OffsetYMM, geom.WidthPx, geom.HeightPx,
		time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save calibration: %w", err)
	}
	return nil
}

// GetCalibration returns the stored profile for a workstation, or
// sql.ErrNoRows when none exists.
func (db *DB) GetCalibration(stationID string) (*CalibrationProfile, error) {
	p := &CalibrationProfile{StationID: stationID}
	err := db.QueryRow(`
		SELECT width_mm, height_mm, distance_mm, offset_x_mm, offset_y_mm, width_px, height_px, updated_at
		FROM calibration_profiles WHERE station_id = ?`, stationID).Scan(
		&p.Geometry.WidthMM, &p.Geometry.HeightMM, &p.Geometry.DistanceMM,
		&p.Geometry.OffsetXMM, &p.Geometry.OffsetYMM,
		&p.Geometry.WidthPx, &p.Geometry.HeightPx, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// SessionRecord is one persisted end-of-session summary row.
type SessionRecord struct {
	SessionID        string           `json:"session_id"`
	StationID        string           `json:"station_id"`
	StartedAt        time.Time        `json:"started_at"`
	EndedAt          time.Time        `json:"ended_at"`
	Frames           int              `json:"frames"`
	Engagement       float64          `json:"engagement"`
	ConsistencyScore float64          `json:"consistency_score"`
	OffScreenMs      int64            `json:"off_screen_ms"`
	OffScreenAlerts  int              `json:"off_screen_alerts"`
	Behavior         behavior.Summary `json:"behavior"`
}

// RecordSessionSummary persists one finished session's aggregate
// behavior summary. The full summary is stored as JSON alongside the
// indexed headline columns.
func (db *DB) RecordSessionSummary(rec SessionRecord) error {
	behaviorJSON, err := json.Marshal(rec.Behavior)
	if err != nil {
		return fmt.Errorf("failed to serialize behavior summary: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO session_summaries
			(session_id, station_id, started_at, ended_at, frames, engagement,
			 consistency_score, off_screen_ms, off_screen_alerts, behavior_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.StationID, rec.StartedAt, rec.EndedAt, rec.Frames,
		rec.Engagement, rec.ConsistencyScore, rec.OffScreenMs, rec.OffScreenAlerts,
		string(behaviorJSON))
	if err != nil {
		return fmt.Errorf("failed to record session summary: %w", err)
	}
	return nil
}

// ListSessionSummaries returns the most recent session summaries,
// newest first, capped at limit.
func (db *DB) ListSessionSummaries(limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT session_id, station_id, started_at, ended_at, frames, engagement,
		       consistency_score, off_screen_ms, off_screen_alerts, behavior_json
		FROM session_summaries ORDER BY ended_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list session summaries: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var behaviorJSON string
		if err := rows.Scan(&rec.SessionID, &rec.StationID, &rec.StartedAt, &rec.EndedAt,
			&rec.Frames, &rec.Engagement, &rec.ConsistencyScore,
			&rec.OffScreenMs, &rec.OffScreenAlerts, &behaviorJSON); err != nil {
			return nil, fmt.Errorf("failed to scan session summary: %w", err)
		}
		if err := json.Unmarshal([]byte(behaviorJSON), &rec.Behavior); err != nil {
			return nil, fmt.Errorf("failed to parse behavior summary: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
