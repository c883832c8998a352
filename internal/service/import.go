package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hrmetrics/internal/dataset"
	"hrmetrics/internal/store"
)

// ImportService loads the CSV input tables into the SQLite store
type ImportService struct {
	store  *store.DB
	logger *slog.Logger
}

// NewImportService creates a new import service
func NewImportService(db *store.DB, logger *slog.Logger) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportService{store: db, logger: logger}
}

// ImportResult contains the results of an import
type ImportResult struct {
	ActivitiesStored int
	StreamsStored    int // activities whose samples were stored
	SamplesStored    int
	TotalActivities  int // activities in the store after the import
	Errors           []error
}

// ImportAll reads the activity and stream tables and stores them:
// activities -> streams. Both files must exist before anything is written.
func (s *ImportService) ImportAll(ctx context.Context, activitiesPath, streamsPath string, progress chan<- Progress) (*ImportResult, error) {
	if progress != nil {
		defer close(progress)
	}

	catalog, err := dataset.LoadCatalog(activitiesPath)
	if err != nil {
		return nil, fmt.Errorf("loading activities: %w", err)
	}
	streams, err := dataset.LoadStreams(streamsPath)
	if err != nil {
		return nil, fmt.Errorf("loading streams: %w", err)
	}

	result := &ImportResult{}

	// Phase 1: activity summaries
	if err := s.importActivities(ctx, catalog, progress, result); err != nil {
		return result, fmt.Errorf("importing activities: %w", err)
	}

	// Phase 2: samples
	if err := s.importStreams(ctx, streams, progress, result); err != nil {
		return result, fmt.Errorf("importing streams: %w", err)
	}

	total, err := s.store.CountActivities()
	if err != nil {
		return result, fmt.Errorf("counting activities: %w", err)
	}
	result.TotalActivities = total

	if err := s.store.SetSyncState(store.StateActivitiesSource, activitiesPath); err != nil {
		return result, fmt.Errorf("recording import: %w", err)
	}
	if err := s.store.SetSyncState(store.StateStreamsSource, streamsPath); err != nil {
		return result, fmt.Errorf("recording import: %w", err)
	}
	if err := s.store.SetSyncState(store.StateLastImport, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return result, fmt.Errorf("recording import: %w", err)
	}

	s.logger.Info("import finished",
		"activities", result.ActivitiesStored,
		"streams", result.StreamsStored,
		"samples", result.SamplesStored,
		"errors", len(result.Errors),
	)
	return result, nil
}

func (s *ImportService) importActivities(ctx context.Context, catalog *dataset.Catalog, progress chan<- Progress, result *ImportResult) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	activities := catalog.Activities()
	report(ctx, progress, Progress{Phase: "activities", Total: len(activities)})

	if err := s.store.UpsertActivities(activities); err != nil {
		return err
	}
	result.ActivitiesStored = len(activities)

	report(ctx, progress, Progress{Phase: "activities", Total: len(activities), Completed: len(activities)})
	return nil
}

func (s *ImportService) importStreams(ctx context.Context, streams *dataset.StreamTable, progress chan<- Progress, result *ImportResult) error {
	ids := streams.ActivityIDs()
	report(ctx, progress, Progress{Phase: "streams", Total: len(ids)})

	for i, id := range ids {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		points, err := streams.Streams(ctx, id)
		if err != nil {
			return err
		}

		if err := s.store.SaveStreams(id, points); err != nil {
			// Keep going; one bad activity should not lose the rest
			result.Errors = append(result.Errors, fmt.Errorf("saving streams for %d: %w", id, err))
			s.logger.Warn("saving streams failed", "activity_id", id, "error", err)
			continue
		}

		// Count what the store holds rather than what was parsed
		stored, err := s.store.GetStreamCount(id)
		if err != nil {
			return fmt.Errorf("counting streams for %d: %w", id, err)
		}
		result.StreamsStored++
		result.SamplesStored += stored

		report(ctx, progress, Progress{
			Phase:           "streams",
			Total:           len(ids),
			Completed:       i + 1,
			CurrentActivity: id,
		})
	}

	return nil
}
