package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"hrmetrics/internal/analysis"
	"hrmetrics/internal/store"
)

// Skip reasons tallied in Result.Skipped
const (
	SkipNoHeartrate     = "no_heartrate"
	SkipEmptyAfterClean = "empty_after_cleaning"
	SkipEmptyHalf       = "empty_half"
	SkipUnknownActivity = "unknown_activity"
	SkipFilteredType    = "filtered_type"
)

// DefaultWorkers is the worker pool size used when none is configured
const DefaultWorkers = 4

// Result contains the results of a metrics run
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Rows       []store.ActivityMetrics // ordered by start date, then activity ID
	Considered int
	Computed   int
	Skipped    map[string]int
}

// SkippedTotal returns the number of activities that produced no row
func (r *Result) SkippedTotal() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

// Run converts the result into the record stored in metric_runs
func (r *Result) Run() store.MetricRun {
	return store.MetricRun{
		ID:         r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Considered: r.Considered,
		Computed:   r.Computed,
		Skipped:    r.SkippedTotal(),
	}
}

// Options configures a MetricsService
type Options struct {
	Settings      analysis.Settings
	Workers       int
	ActivityTypes []string // empty means every type qualifies
	Sink          MetricsSink
	Logger        *slog.Logger
}

// MetricsService computes per-activity metrics over a catalog and its streams
type MetricsService struct {
	catalog  Catalog
	streams  StreamSource
	settings analysis.Settings
	workers  int
	types    map[string]bool
	sink     MetricsSink
	logger   *slog.Logger
}

// NewMetricsService creates a metrics service
func NewMetricsService(catalog Catalog, streams StreamSource, opts Options) *MetricsService {
	workers := opts.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var types map[string]bool
	if len(opts.ActivityTypes) > 0 {
		types = make(map[string]bool, len(opts.ActivityTypes))
		for _, t := range opts.ActivityTypes {
			types[t] = true
		}
	}

	return &MetricsService{
		catalog:  catalog,
		streams:  streams,
		settings: opts.Settings,
		workers:  workers,
		types:    types,
		sink:     opts.Sink,
		logger:   logger,
	}
}

// Calculate computes the metrics row of every activity that has heart rate
// samples. Activities that do not qualify are counted in Result.Skipped.
// A run where nothing qualifies returns a result with no rows, not an error.
func (s *MetricsService) Calculate(ctx context.Context, progress chan<- Progress) (*Result, error) {
	if progress != nil {
		defer close(progress)
	}

	result := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Skipped:   make(map[string]int),
	}

	ids, err := s.streams.ActivityIDsWithHeartrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing activities with heart rate: %w", err)
	}
	result.Considered = len(ids)
	report(ctx, progress, Progress{Phase: "metrics", Total: len(ids)})

	var (
		mu        sync.Mutex
		completed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			row, reason, err := s.computeOne(gctx, id)
			if err != nil {
				return err
			}

			mu.Lock()
			if reason != "" {
				result.Skipped[reason]++
			} else {
				result.Rows = append(result.Rows, row)
			}
			completed++
			report(gctx, progress, Progress{
				Phase:           "metrics",
				Total:           len(ids),
				Completed:       completed,
				CurrentActivity: id,
			})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sortRows(result.Rows)
	result.Computed = len(result.Rows)
	result.FinishedAt = time.Now().UTC()

	if result.Computed == 0 {
		s.logger.Warn("no activity produced metrics", "considered", result.Considered)
	}

	if s.sink != nil {
		if err := s.sink.ReplaceMetrics(result.Run(), result.Rows); err != nil {
			return nil, fmt.Errorf("saving metrics: %w", err)
		}
	}

	s.logger.Info("metrics computed",
		"run_id", result.RunID,
		"considered", result.Considered,
		"computed", result.Computed,
		"skipped", result.SkippedTotal(),
	)

	return result, nil
}

// computeOne returns either a row or the reason the activity was skipped.
// A non-nil error aborts the whole run.
func (s *MetricsService) computeOne(ctx context.Context, id int64) (store.ActivityMetrics, string, error) {
	activity, ok, err := s.catalog.Activity(ctx, id)
	if err != nil {
		return store.ActivityMetrics{}, "", fmt.Errorf("loading activity %d: %w", id, err)
	}
	if !ok {
		s.logger.Warn("samples reference an unknown activity", "activity_id", id)
		return store.ActivityMetrics{}, SkipUnknownActivity, nil
	}

	if s.types != nil && !s.types[activity.Type] {
		s.logger.Debug("skipping activity", "activity_id", id, "reason", SkipFilteredType, "type", activity.Type)
		return store.ActivityMetrics{}, SkipFilteredType, nil
	}

	points, err := s.streams.Streams(ctx, id)
	if err != nil {
		return store.ActivityMetrics{}, "", fmt.Errorf("loading streams for %d: %w", id, err)
	}

	row, err := analysis.ComputeActivityMetrics(activity, points, s.settings)
	if err != nil {
		reason := skipReason(err)
		if reason == "" {
			return store.ActivityMetrics{}, "", fmt.Errorf("computing metrics for %d: %w", id, err)
		}
		s.logger.Debug("skipping activity", "activity_id", id, "reason", reason, "samples", len(points))
		return store.ActivityMetrics{}, reason, nil
	}

	return row, "", nil
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, analysis.ErrNoHeartrate):
		return SkipNoHeartrate
	case errors.Is(err, analysis.ErrEmptyStream):
		return SkipEmptyAfterClean
	case errors.Is(err, analysis.ErrEmptyHalf):
		return SkipEmptyHalf
	}
	return ""
}

func sortRows(rows []store.ActivityMetrics) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].StartDate.Equal(rows[j].StartDate) {
			return rows[i].StartDate.Before(rows[j].StartDate)
		}
		return rows[i].ActivityID < rows[j].ActivityID
	})
}
