package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// ReplaceMetrics overwrites the activity_metrics table with rows and
// records run, all in one transaction.
func (db *DB) ReplaceMetrics(run MetricRun, rows []ActivityMetrics) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO metric_runs (
			run_id, started_at, finished_at,
			activities_considered, activities_computed, activities_skipped
		) VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.Considered, run.Computed, run.Skipped,
	); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM activity_metrics"); err != nil {
		return fmt.Errorf("clearing metrics: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO activity_metrics (
			activity_id, run_id, activity_name, activity_type, activity_start_date,
			is_long_run, cardiac_drift, zone_transitions,
			zone_time_1, zone_time_2, zone_time_3, zone_time_4, zone_time_5,
			first_half_avg_efficiency_factor, first_half_hr_std_dev,
			second_half_avg_efficiency_factor, second_half_hr_std_dev
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, m := range rows {
		_, err := stmt.Exec(
			m.ActivityID, run.ID, m.Name, m.Type, formatTime(m.StartDate),
			boolToInt(m.IsLongRun), m.CardiacDrift, m.ZoneTransitions,
			m.ZoneTime[0], m.ZoneTime[1], m.ZoneTime[2], m.ZoneTime[3], m.ZoneTime[4],
			m.FirstHalf.AvgEfficiencyFactor, m.FirstHalf.HRStdDev,
			m.SecondHalf.AvgEfficiencyFactor, m.SecondHalf.HRStdDev,
		)
		if err != nil {
			return fmt.Errorf("inserting metrics for %d: %w", m.ActivityID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListMetrics retrieves all stored metrics ordered by start date, then activity ID
func (db *DB) ListMetrics() ([]ActivityMetrics, error) {
	rows, err := db.Query(`
		SELECT activity_id, activity_name, activity_type, activity_start_date,
			is_long_run, cardiac_drift, zone_transitions,
			zone_time_1, zone_time_2, zone_time_3, zone_time_4, zone_time_5,
			first_half_avg_efficiency_factor, first_half_hr_std_dev,
			second_half_avg_efficiency_factor, second_half_hr_std_dev
		FROM activity_metrics
		ORDER BY activity_start_date, activity_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []ActivityMetrics
	for rows.Next() {
		var m ActivityMetrics
		var startDate string
		var longRun int

		err := rows.Scan(
			&m.ActivityID, &m.Name, &m.Type, &startDate,
			&longRun, &m.CardiacDrift, &m.ZoneTransitions,
			&m.ZoneTime[0], &m.ZoneTime[1], &m.ZoneTime[2], &m.ZoneTime[3], &m.ZoneTime[4],
			&m.FirstHalf.AvgEfficiencyFactor, &m.FirstHalf.HRStdDev,
			&m.SecondHalf.AvgEfficiencyFactor, &m.SecondHalf.HRStdDev,
		)
		if err != nil {
			return nil, err
		}

		m.StartDate, err = parseTime(startDate)
		if err != nil {
			return nil, fmt.Errorf("parsing activity_start_date %q: %w", startDate, err)
		}
		m.IsLongRun = longRun == 1

		metrics = append(metrics, m)
	}

	return metrics, rows.Err()
}

// CountMetrics returns the number of activities with computed metrics
func (db *DB) CountMetrics() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM activity_metrics").Scan(&count)
	return count, err
}

// LatestRun returns the most recently finished metrics run
func (db *DB) LatestRun() (*MetricRun, error) {
	row := db.QueryRow(`
		SELECT run_id, started_at, finished_at,
			activities_considered, activities_computed, activities_skipped
		FROM metric_runs
		ORDER BY finished_at DESC, rowid DESC
		LIMIT 1
	`)

	var r MetricRun
	var startedAt, finishedAt string
	err := row.Scan(&r.ID, &startedAt, &finishedAt, &r.Considered, &r.Computed, &r.Skipped)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, err
	}

	if r.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at %q: %w", startedAt, err)
	}
	if r.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, fmt.Errorf("parsing finished_at %q: %w", finishedAt, err)
	}
	return &r, nil
}
