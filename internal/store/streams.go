package store

import (
	"context"
	"fmt"
)

// SaveStreams saves stream data for an activity
// It replaces any existing stream data for the activity
func (db *DB) SaveStreams(activityID int64, points []StreamPoint) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Delete existing streams for this activity
	if _, err := tx.Exec("DELETE FROM streams WHERE activity_id = ?", activityID); err != nil {
		return fmt.Errorf("deleting existing streams: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO streams (
			activity_id, seq, time_offset, latlng_lat, latlng_lng, distance, altitude,
			velocity_smooth, heartrate, cadence, watts, temp, moving, grade_smooth
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, p := range points {
		_, err := stmt.Exec(
			activityID, i, p.TimeOffset, p.Lat, p.Lng, p.Distance, p.Altitude,
			p.VelocitySmooth, p.Heartrate, p.Cadence, p.Watts, p.Temp, boolToInt(p.Moving), p.GradeSmooth,
		)
		if err != nil {
			return fmt.Errorf("inserting stream point %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// GetStreams retrieves all stream points for an activity in arrival order
func (db *DB) GetStreams(activityID int64) ([]StreamPoint, error) {
	rows, err := db.Query(`
		SELECT activity_id, seq, time_offset, latlng_lat, latlng_lng, distance, altitude,
			velocity_smooth, heartrate, cadence, watts, temp, moving, grade_smooth
		FROM streams
		WHERE activity_id = ?
		ORDER BY seq
	`, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []StreamPoint
	for rows.Next() {
		var p StreamPoint
		var moving int
		err := rows.Scan(
			&p.ActivityID, &p.Seq, &p.TimeOffset, &p.Lat, &p.Lng, &p.Distance, &p.Altitude,
			&p.VelocitySmooth, &p.Heartrate, &p.Cadence, &p.Watts, &p.Temp, &moving, &p.GradeSmooth,
		)
		if err != nil {
			return nil, err
		}
		p.Moving = moving == 1
		points = append(points, p)
	}

	return points, rows.Err()
}

// Streams satisfies the service stream source
func (db *DB) Streams(_ context.Context, activityID int64) ([]StreamPoint, error) {
	return db.GetStreams(activityID)
}

// GetStreamCount returns the number of stream points for an activity
func (db *DB) GetStreamCount(activityID int64) (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM streams WHERE activity_id = ?", activityID).Scan(&count)
	return count, err
}

// ActivityIDsWithHeartrate returns the activities that have at least one
// sample carrying heart rate data, in ascending ID order.
func (db *DB) ActivityIDsWithHeartrate(_ context.Context) ([]int64, error) {
	rows, err := db.Query(`
		SELECT DISTINCT activity_id FROM streams
		WHERE heartrate IS NOT NULL
		ORDER BY activity_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
