package store

import "time"

// Activity represents one row of the activity table
type Activity struct {
	ID                 int64     `db:"id"`
	Name               string    `db:"name"`
	Type               string    `db:"type"`
	StartDate          time.Time `db:"start_date"`
	Distance           float64   `db:"distance"`             // meters
	MovingTime         int       `db:"moving_time"`          // seconds
	ElapsedTime        int       `db:"elapsed_time"`         // seconds
	TotalElevationGain float64   `db:"total_elevation_gain"` // meters
	AverageSpeed       float64   `db:"average_speed"`        // m/s
	AverageHeartrate   *float64  `db:"average_heartrate"`    // nullable
	MaxHeartrate       *float64  `db:"max_heartrate"`        // nullable
}

// StreamPoint represents a single per-second sample of an activity stream.
// Seq is the arrival order within the activity and defines temporal order.
type StreamPoint struct {
	ActivityID     int64    `db:"activity_id"`
	Seq            int      `db:"seq"`
	TimeOffset     int      `db:"time_offset"` // seconds
	Lat            *float64 `db:"latlng_lat"`
	Lng            *float64 `db:"latlng_lng"`
	Distance       *float64 `db:"distance"`        // cumulative meters
	Altitude       *float64 `db:"altitude"`        // meters
	VelocitySmooth *float64 `db:"velocity_smooth"` // m/s
	Heartrate      *float64 `db:"heartrate"`       // bpm
	Cadence        *float64 `db:"cadence"`
	Watts          *float64 `db:"watts"`
	Temp           *float64 `db:"temp"`
	Moving         bool     `db:"moving"`
	GradeSmooth    *float64 `db:"grade_smooth"` // percent
}

// NumZones is the number of heart rate zones every metrics row carries
const NumZones = 5

// HalfMetrics holds the efficiency statistics of one half of an activity.
// A nil field means the statistic could not be computed.
type HalfMetrics struct {
	AvgEfficiencyFactor *float64 `db:"avg_efficiency_factor"`
	HRStdDev            *float64 `db:"hr_std_dev"`
}

// ActivityMetrics represents the derived metrics for one qualifying activity
type ActivityMetrics struct {
	ActivityID      int64         `db:"activity_id"`
	Name            string        `db:"activity_name"`
	Type            string        `db:"activity_type"`
	StartDate       time.Time     `db:"activity_start_date"`
	IsLongRun       bool          `db:"is_long_run"`
	CardiacDrift    *float64      `db:"cardiac_drift"` // percent, nil when undefined
	ZoneTime        [NumZones]int `db:"zone_time"`     // samples per zone, index 0 = Zone 1
	ZoneTransitions int           `db:"zone_transitions"`
	FirstHalf       HalfMetrics   `db:"first_half"`
	SecondHalf      HalfMetrics   `db:"second_half"`
}

// MetricRun records one execution of the metrics step
type MetricRun struct {
	ID         string    `db:"run_id"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
	Considered int       `db:"activities_considered"`
	Computed   int       `db:"activities_computed"`
	Skipped    int       `db:"activities_skipped"`
}
