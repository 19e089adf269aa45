package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/offlinemirror/internal/actions"
	"github.com/mrlokans/offlinemirror/internal/logging"
)

// AggregateSeriesTask recomputes the book metadata aggregation of a series.
type AggregateSeriesTask struct {
	SeriesID string `json:"series_id"`
}

func (t AggregateSeriesTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "aggregate_series",
		MaxAttempts: 3,
		Backoff:     10 * time.Second,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   time.Hour,
			OnlyFailed: true,
		},
	}
}

// SeriesAggregator is satisfied by *actions.Actions.
type SeriesAggregator interface {
	SeriesAggregateBookMetadata(ctx context.Context, seriesID string) error
}

func AggregateSeriesProcessor(a SeriesAggregator) backlite.QueueProcessor[AggregateSeriesTask] {
	return func(ctx context.Context, task AggregateSeriesTask) error {
		if err := a.SeriesAggregateBookMetadata(ctx, task.SeriesID); err != nil {
			return fmt.Errorf("aggregate series %s: %w", task.SeriesID, err)
		}
		return nil
	}
}

func NewAggregateSeriesQueue(a SeriesAggregator) backlite.Queue {
	return backlite.NewQueue(AggregateSeriesProcessor(a))
}

// DeleteBookFilesTask removes downloaded files that no book row points at
// any more.
type DeleteBookFilesTask struct {
	Handles []string `json:"handles"`
}

func (t DeleteBookFilesTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "delete_book_files",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func DeleteBookFilesProcessor(files actions.FileRemover) backlite.QueueProcessor[DeleteBookFilesTask] {
	return func(ctx context.Context, task DeleteBookFilesTask) error {
		var errs []error
		for _, h := range task.Handles {
			if err := files.DeleteFile(h); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			return fmt.Errorf("delete book files: %w", err)
		}
		logging.Debug().Int("files", len(task.Handles)).Msg("Deleted book files")
		return nil
	}
}

func NewDeleteBookFilesQueue(files actions.FileRemover) backlite.Queue {
	return backlite.NewQueue(DeleteBookFilesProcessor(files))
}

// JournalCleaner provides the ability to drop old log journal entries.
type JournalCleaner interface {
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

// CleanupJournalTask removes journal entries older than Retention.
type CleanupJournalTask struct {
	Retention time.Duration `json:"retention"`
}

func (t CleanupJournalTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_journal",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// DefaultJournalRetention applies when the task carries no retention.
const DefaultJournalRetention = 30 * 24 * time.Hour

func CleanupJournalProcessor(cleaner JournalCleaner) backlite.QueueProcessor[CleanupJournalTask] {
	return func(ctx context.Context, task CleanupJournalTask) error {
		if cleaner == nil {
			return fmt.Errorf("journal cleaner not configured")
		}

		retention := task.Retention
		if retention <= 0 {
			retention = DefaultJournalRetention
		}

		deleted, err := cleaner.Cleanup(ctx, retention)
		if err != nil {
			return fmt.Errorf("cleanup journal: %w", err)
		}

		logging.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up log journal")
		return nil
	}
}

func NewCleanupJournalQueue(cleaner JournalCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupJournalProcessor(cleaner))
}

// BackliteScheduler hands follow-up work of the import actions to the
// task queue. It is only called after the importing transaction commits.
type BackliteScheduler struct {
	client *Client
}

func NewBackliteScheduler(client *Client) *BackliteScheduler {
	return &BackliteScheduler{client: client}
}

func (s *BackliteScheduler) ScheduleAggregation(ctx context.Context, seriesID string) error {
	_, err := s.client.Add(AggregateSeriesTask{SeriesID: seriesID}).Ctx(ctx).Save()
	return err
}

func (s *BackliteScheduler) ScheduleFileDeletion(ctx context.Context, handles []string) error {
	if len(handles) == 0 {
		return nil
	}
	_, err := s.client.Add(DeleteBookFilesTask{Handles: handles}).Ctx(ctx).Save()
	return err
}
