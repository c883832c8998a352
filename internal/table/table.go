// Package table turns metrics into the fixed-schema output table and
// reads it back for reporting.
package table

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"hrmetrics/internal/store"
)

// ErrNoMetricsTable is returned when the output table has not been written yet
var ErrNoMetricsTable = errors.New("metrics table not found")

// Columns is the output schema. Every table has exactly these columns in this order.
var Columns = []string{
	"activity_id",
	"activity_name",
	"activity_type",
	"activity_start_date",
	"is_long_run",
	"cardiac_drift",
	"zone_transitions",
	"zone_time_zone_1",
	"zone_time_zone_2",
	"zone_time_zone_3",
	"zone_time_zone_4",
	"zone_time_zone_5",
	"first_half_avg_efficiency_factor",
	"first_half_hr_std_dev",
	"second_half_avg_efficiency_factor",
	"second_half_hr_std_dev",
}

// Row is one normalized metrics row. Statistics that could not be computed
// are stored as zero.
type Row struct {
	ActivityID                    int64
	ActivityName                  string
	ActivityType                  string
	ActivityStartDate             time.Time
	IsLongRun                     bool
	CardiacDrift                  float64
	ZoneTransitions               int
	ZoneTime                      [store.NumZones]int
	FirstHalfAvgEfficiencyFactor  float64
	FirstHalfHRStdDev             float64
	SecondHalfAvgEfficiencyFactor float64
	SecondHalfHRStdDev            float64
}

// Normalize converts computed metrics into output rows, zero-filling every
// undefined value. Row order is preserved.
func Normalize(metrics []store.ActivityMetrics) []Row {
	rows := make([]Row, 0, len(metrics))
	for _, m := range metrics {
		rows = append(rows, Row{
			ActivityID:                    m.ActivityID,
			ActivityName:                  m.Name,
			ActivityType:                  m.Type,
			ActivityStartDate:             m.StartDate,
			IsLongRun:                     m.IsLongRun,
			CardiacDrift:                  orZero(m.CardiacDrift),
			ZoneTransitions:               m.ZoneTransitions,
			ZoneTime:                      m.ZoneTime,
			FirstHalfAvgEfficiencyFactor:  orZero(m.FirstHalf.AvgEfficiencyFactor),
			FirstHalfHRStdDev:             orZero(m.FirstHalf.HRStdDev),
			SecondHalfAvgEfficiencyFactor: orZero(m.SecondHalf.AvgEfficiencyFactor),
			SecondHalfHRStdDev:            orZero(m.SecondHalf.HRStdDev),
		})
	}
	return rows
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Record renders the row in Columns order
func (r Row) Record() []string {
	rec := []string{
		strconv.FormatInt(r.ActivityID, 10),
		r.ActivityName,
		r.ActivityType,
		formatDate(r.ActivityStartDate),
		strconv.FormatBool(r.IsLongRun),
		formatFloat(r.CardiacDrift),
		strconv.Itoa(r.ZoneTransitions),
	}
	for _, secs := range r.ZoneTime {
		rec = append(rec, strconv.Itoa(secs))
	}
	return append(rec,
		formatFloat(r.FirstHalfAvgEfficiencyFactor),
		formatFloat(r.FirstHalfHRStdDev),
		formatFloat(r.SecondHalfAvgEfficiencyFactor),
		formatFloat(r.SecondHalfHRStdDev),
	)
}

// parseRecord is the inverse of Record; idx maps column name to position
func parseRecord(rec []string, idx map[string]int) (Row, error) {
	var r Row
	var err error
	get := func(col string) string { return rec[idx[col]] }

	if r.ActivityID, err = strconv.ParseInt(get("activity_id"), 10, 64); err != nil {
		return r, fmt.Errorf("activity_id: %w", err)
	}
	r.ActivityName = get("activity_name")
	r.ActivityType = get("activity_type")
	if s := get("activity_start_date"); s != "" {
		if r.ActivityStartDate, err = time.Parse(time.RFC3339, s); err != nil {
			return r, fmt.Errorf("activity_start_date: %w", err)
		}
	}
	if r.IsLongRun, err = strconv.ParseBool(get("is_long_run")); err != nil {
		return r, fmt.Errorf("is_long_run: %w", err)
	}
	if r.ZoneTransitions, err = strconv.Atoi(get("zone_transitions")); err != nil {
		return r, fmt.Errorf("zone_transitions: %w", err)
	}
	for i := range r.ZoneTime {
		col := zoneColumn(i)
		if r.ZoneTime[i], err = strconv.Atoi(get(col)); err != nil {
			return r, fmt.Errorf("%s: %w", col, err)
		}
	}

	floats := []struct {
		col string
		dst *float64
	}{
		{"cardiac_drift", &r.CardiacDrift},
		{"first_half_avg_efficiency_factor", &r.FirstHalfAvgEfficiencyFactor},
		{"first_half_hr_std_dev", &r.FirstHalfHRStdDev},
		{"second_half_avg_efficiency_factor", &r.SecondHalfAvgEfficiencyFactor},
		{"second_half_hr_std_dev", &r.SecondHalfHRStdDev},
	}
	for _, f := range floats {
		if *f.dst, err = strconv.ParseFloat(get(f.col), 64); err != nil {
			return r, fmt.Errorf("%s: %w", f.col, err)
		}
	}

	return r, nil
}

func zoneColumn(i int) string {
	return "zone_time_zone_" + strconv.Itoa(i+1)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
