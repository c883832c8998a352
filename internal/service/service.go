package service

import (
	"context"

	"hrmetrics/internal/store"
)

// Catalog looks up activity records by ID. Both the CSV dataset and the
// SQLite store implement it.
type Catalog interface {
	Activity(ctx context.Context, id int64) (store.Activity, bool, error)
}

// StreamSource provides per-second samples grouped by activity
type StreamSource interface {
	ActivityIDsWithHeartrate(ctx context.Context) ([]int64, error)
	Streams(ctx context.Context, activityID int64) ([]store.StreamPoint, error)
}

// MetricsSink persists the rows of a metrics run
type MetricsSink interface {
	ReplaceMetrics(run store.MetricRun, rows []store.ActivityMetrics) error
}

// Progress reports progress during a step
type Progress struct {
	Phase           string // "activities", "streams", "metrics"
	Total           int
	Completed       int
	CurrentActivity int64
}

// report sends p without blocking the caller when nobody is listening
func report(ctx context.Context, progress chan<- Progress, p Progress) {
	if progress == nil {
		return
	}
	select {
	case progress <- p:
	case <-ctx.Done():
	}
}
