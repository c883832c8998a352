package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrmetrics/internal/analysis"
	"hrmetrics/internal/store"
)

type memCatalog map[int64]store.Activity

func (c memCatalog) Activity(_ context.Context, id int64) (store.Activity, bool, error) {
	a, ok := c[id]
	return a, ok, nil
}

type memStreams map[int64][]store.StreamPoint

func (m memStreams) ActivityIDsWithHeartrate(_ context.Context) ([]int64, error) {
	var ids []int64
	for id, points := range m {
		for _, p := range points {
			if p.Heartrate != nil {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m memStreams) Streams(_ context.Context, id int64) ([]store.StreamPoint, error) {
	return m[id], nil
}

type failingStreams struct{ memStreams }

func (failingStreams) Streams(context.Context, int64) ([]store.StreamPoint, error) {
	return nil, errors.New("disk on fire")
}

type recordingSink struct {
	run  store.MetricRun
	rows []store.ActivityMetrics
}

func (s *recordingSink) ReplaceMetrics(run store.MetricRun, rows []store.ActivityMetrics) error {
	s.run = run
	s.rows = rows
	return nil
}

func floatPtr(f float64) *float64 {
	return &f
}

// samples builds a moving stream from per-sample speeds and heart rates
func samples(id int64, speeds, hrs []float64) []store.StreamPoint {
	points := make([]store.StreamPoint, len(hrs))
	for i := range hrs {
		points[i] = store.StreamPoint{
			ActivityID:     id,
			Seq:            i,
			TimeOffset:     i,
			VelocitySmooth: floatPtr(speeds[i]),
			Heartrate:      floatPtr(hrs[i]),
			Moving:         true,
		}
	}
	return points
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func run(id int64, day int) store.Activity {
	return store.Activity{
		ID:          id,
		Name:        "Run",
		Type:        "Run",
		StartDate:   time.Date(2024, 6, day, 7, 0, 0, 0, time.UTC),
		ElapsedTime: 1800,
	}
}

func defaultOptions() Options {
	return Options{Settings: analysis.DefaultSettings(), Workers: 2}
}

func TestCalculate(t *testing.T) {
	notMoving := samples(2, repeat(3, 10), repeat(140, 10))
	for i := range notMoving {
		notMoving[i].Moving = false
	}
	noHR := samples(3, repeat(3, 10), repeat(140, 10))
	for i := range noHR {
		noHR[i].Heartrate = nil
	}

	catalog := memCatalog{1: run(1, 3), 2: run(2, 2), 3: run(3, 1), 4: run(4, 4)}
	streams := memStreams{
		1: samples(1, repeat(3, 10), repeat(140, 10)),
		2: notMoving,
		3: noHR,
		4: samples(4, []float64{3}, []float64{140}),
	}

	result, err := NewMetricsService(catalog, streams, defaultOptions()).Calculate(context.Background(), nil)
	require.NoError(t, err)

	// Activity 3 has no heart rate at all and is never considered
	assert.Equal(t, 3, result.Considered)
	assert.Equal(t, 1, result.Computed)
	assert.Equal(t, map[string]int{SkipEmptyAfterClean: 1, SkipEmptyHalf: 1}, result.Skipped)
	assert.Equal(t, 2, result.SkippedTotal())
	assert.NotEmpty(t, result.RunID)

	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	assert.Equal(t, int64(1), row.ActivityID)
	assert.Equal(t, [store.NumZones]int{0, 10, 0, 0, 0}, row.ZoneTime)
	assert.Equal(t, 1, row.ZoneTransitions)
}

func TestCalculateDriftAndUndefinedDrift(t *testing.T) {
	// Activity 10: HR rises 150 -> 162 at constant speed, +8% drift.
	// Activity 11: zero speed in the second half leaves drift undefined.
	catalog := memCatalog{10: run(10, 1), 11: run(11, 2)}
	streams := memStreams{
		10: samples(10, repeat(3, 60), append(repeat(150, 30), repeat(162, 30)...)),
		11: samples(11, append(repeat(3, 30), repeat(0, 30)...), repeat(150, 60)),
	}

	result, err := NewMetricsService(catalog, streams, defaultOptions()).Calculate(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)

	drifting := result.Rows[0]
	require.NotNil(t, drifting.CardiacDrift)
	assert.InDelta(t, 8.0, *drifting.CardiacDrift, 1e-9)

	stalled := result.Rows[1]
	assert.Nil(t, stalled.CardiacDrift)
	assert.Equal(t, 60, sumZones(stalled.ZoneTime))
	require.NotNil(t, stalled.FirstHalf.AvgEfficiencyFactor)
	assert.Nil(t, stalled.SecondHalf.AvgEfficiencyFactor)
}

func TestCalculateUnknownActivity(t *testing.T) {
	catalog := memCatalog{1: run(1, 1)}
	streams := memStreams{
		1: samples(1, repeat(3, 4), repeat(140, 4)),
		9: samples(9, repeat(3, 4), repeat(140, 4)),
	}

	result, err := NewMetricsService(catalog, streams, defaultOptions()).Calculate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Computed)
	assert.Equal(t, 1, result.Skipped[SkipUnknownActivity])
}

func TestCalculateActivityTypeFilter(t *testing.T) {
	ride := run(2, 2)
	ride.Type = "Ride"
	catalog := memCatalog{1: run(1, 1), 2: ride}
	streams := memStreams{
		1: samples(1, repeat(3, 4), repeat(140, 4)),
		2: samples(2, repeat(8, 4), repeat(140, 4)),
	}

	opts := defaultOptions()
	opts.ActivityTypes = []string{"Run"}

	result, err := NewMetricsService(catalog, streams, opts).Calculate(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, int64(1), result.Rows[0].ActivityID)
	assert.Equal(t, 1, result.Skipped[SkipFilteredType])
}

func TestCalculateOrdersRows(t *testing.T) {
	catalog := memCatalog{}
	streams := memStreams{}
	// Same start date for 5 and 6; 7 is earliest
	for _, a := range []store.Activity{run(6, 2), run(5, 2), run(7, 1)} {
		catalog[a.ID] = a
		streams[a.ID] = samples(a.ID, repeat(3, 6), repeat(140, 6))
	}

	opts := defaultOptions()
	opts.Workers = 3

	result, err := NewMetricsService(catalog, streams, opts).Calculate(context.Background(), nil)
	require.NoError(t, err)

	var ids []int64
	for _, r := range result.Rows {
		ids = append(ids, r.ActivityID)
	}
	assert.Equal(t, []int64{7, 5, 6}, ids)
}

func TestCalculateNothingQualifies(t *testing.T) {
	result, err := NewMetricsService(memCatalog{}, memStreams{}, defaultOptions()).Calculate(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
	assert.Equal(t, 0, result.Considered)
}

func TestCalculateSink(t *testing.T) {
	catalog := memCatalog{1: run(1, 1)}
	streams := memStreams{1: samples(1, repeat(3, 4), repeat(140, 4))}

	sink := &recordingSink{}
	opts := defaultOptions()
	opts.Sink = sink

	result, err := NewMetricsService(catalog, streams, opts).Calculate(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, result.RunID, sink.run.ID)
	assert.Equal(t, 1, sink.run.Computed)
	assert.Equal(t, result.Rows, sink.rows)
}

func TestCalculateProgress(t *testing.T) {
	catalog := memCatalog{1: run(1, 1), 2: run(2, 2)}
	streams := memStreams{
		1: samples(1, repeat(3, 4), repeat(140, 4)),
		2: samples(2, repeat(3, 4), repeat(140, 4)),
	}

	progress := make(chan Progress, 10)
	_, err := NewMetricsService(catalog, streams, defaultOptions()).Calculate(context.Background(), progress)
	require.NoError(t, err)

	var updates []Progress
	for p := range progress {
		updates = append(updates, p)
	}
	require.Len(t, updates, 3)
	assert.Equal(t, 0, updates[0].Completed)
	assert.Equal(t, 2, updates[2].Completed)
	assert.Equal(t, 2, updates[2].Total)
}

func TestCalculateStreamError(t *testing.T) {
	catalog := memCatalog{1: run(1, 1)}
	streams := failingStreams{memStreams{1: samples(1, repeat(3, 4), repeat(140, 4))}}

	_, err := NewMetricsService(catalog, streams, defaultOptions()).Calculate(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading streams for 1")
}

func TestCalculateCancelled(t *testing.T) {
	catalog := memCatalog{1: run(1, 1)}
	streams := memStreams{1: samples(1, repeat(3, 4), repeat(140, 4))}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMetricsService(catalog, streams, defaultOptions()).Calculate(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func sumZones(z [store.NumZones]int) int {
	total := 0
	for _, v := range z {
		total += v
	}
	return total
}
