package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const activityColumns = `id, name, type, start_date, distance, moving_time, elapsed_time,
	total_elevation_gain, average_speed, average_heartrate, max_heartrate`

// UpsertActivities stores a batch of activities in one transaction
func (db *DB) UpsertActivities(activities []Activity) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range activities {
		if err := upsertActivity(tx, &activities[i]); err != nil {
			return fmt.Errorf("storing activity %d: %w", activities[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsertActivity(e execer, a *Activity) error {
	_, err := e.Exec(`
		INSERT INTO activities (
			id, name, type, start_date, distance, moving_time, elapsed_time,
			total_elevation_gain, average_speed, average_heartrate, max_heartrate, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			start_date = excluded.start_date,
			distance = excluded.distance,
			moving_time = excluded.moving_time,
			elapsed_time = excluded.elapsed_time,
			total_elevation_gain = excluded.total_elevation_gain,
			average_speed = excluded.average_speed,
			average_heartrate = excluded.average_heartrate,
			max_heartrate = excluded.max_heartrate,
			updated_at = CURRENT_TIMESTAMP
	`,
		a.ID, a.Name, a.Type, formatTime(a.StartDate),
		a.Distance, a.MovingTime, a.ElapsedTime,
		a.TotalElevationGain, a.AverageSpeed, a.AverageHeartrate, a.MaxHeartrate,
	)
	return err
}

// GetActivity retrieves an activity by ID
func (db *DB) GetActivity(id int64) (*Activity, error) {
	row := db.QueryRow(`SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)

	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Activity satisfies the service catalog; ok is false for unknown IDs.
func (db *DB) Activity(_ context.Context, id int64) (Activity, bool, error) {
	a, err := db.GetActivity(id)
	if errors.Is(err, ErrActivityNotFound) {
		return Activity{}, false, nil
	}
	if err != nil {
		return Activity{}, false, err
	}
	return *a, true, nil
}

// CountActivities returns the total number of activities
func (db *DB) CountActivities() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM activities").Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanActivity scans a single activity selected with activityColumns
func scanActivity(row rowScanner) (*Activity, error) {
	var a Activity
	var startDate string
	var elevation, avgSpeed sql.NullFloat64

	err := row.Scan(
		&a.ID, &a.Name, &a.Type, &startDate, &a.Distance, &a.MovingTime, &a.ElapsedTime,
		&elevation, &avgSpeed, &a.AverageHeartrate, &a.MaxHeartrate,
	)
	if err != nil {
		return nil, err
	}

	a.StartDate, err = parseTime(startDate)
	if err != nil {
		return nil, fmt.Errorf("parsing start_date %q: %w", startDate, err)
	}
	a.TotalElevationGain = elevation.Float64
	a.AverageSpeed = avgSpeed.Float64

	return &a, nil
}

// formatTime renders timestamps so that lexical order matches time order
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a time string in RFC3339 format
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
