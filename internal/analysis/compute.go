package analysis

import (
	"errors"

	"hrmetrics/internal/store"
)

// Per-activity skip reasons. An activity that hits one of these produces no
// metrics row; callers treat them as expected, not as failures.
var (
	ErrNoHeartrate = errors.New("no heart rate samples")
	ErrEmptyStream = errors.New("no moving samples with heart rate")
	ErrEmptyHalf   = errors.New("stream too short to split")
)

// DefaultLongRunSeconds is the elapsed time above which an activity is a long run
const DefaultLongRunSeconds = 3600

// Settings carries the athlete calibration used by the metrics computation
type Settings struct {
	Zones          HRZones
	ReferenceHR    float64
	LongRunSeconds int
}

// DefaultSettings returns the calibration for DefaultAge
func DefaultSettings() Settings {
	return Settings{
		Zones:          DefaultZones(),
		ReferenceHR:    DefaultReferenceHR,
		LongRunSeconds: DefaultLongRunSeconds,
	}
}

// ComputeActivityMetrics derives the metrics row for a single activity.
// It returns ErrNoHeartrate, ErrEmptyStream or ErrEmptyHalf when the activity
// does not qualify.
func ComputeActivityMetrics(activity store.Activity, streams []store.StreamPoint, s Settings) (store.ActivityMetrics, error) {
	if !HasHeartrate(streams) {
		return store.ActivityMetrics{}, ErrNoHeartrate
	}

	cleaned := CleanStream(streams)
	if len(cleaned) == 0 {
		return store.ActivityMetrics{}, ErrEmptyStream
	}

	first, second := SplitHalves(cleaned)
	if len(first) == 0 || len(second) == 0 {
		return store.ActivityMetrics{}, ErrEmptyHalf
	}

	metrics := store.ActivityMetrics{
		ActivityID: activity.ID,
		Name:       activity.Name,
		Type:       activity.Type,
		StartDate:  activity.StartDate,
		IsLongRun:  activity.ElapsedTime > s.LongRunSeconds,
	}

	// Cardiac Drift
	if drift, ok := CardiacDrift(first, second); ok {
		metrics.CardiacDrift = &drift
	}

	// Zones over the whole cleaned stream, not per half
	dist := AggregateZones(cleaned, s.Zones)
	metrics.ZoneTime = dist.Time
	metrics.ZoneTransitions = dist.Transitions

	// Efficiency and HR stability per half
	metrics.FirstHalf = HalfEfficiency(first, s.ReferenceHR)
	metrics.SecondHalf = HalfEfficiency(second, s.ReferenceHR)

	return metrics, nil
}
