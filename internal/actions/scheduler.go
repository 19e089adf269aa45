package actions

import "context"

// FileRemover deletes a downloaded file by its handle.
type FileRemover interface {
	DeleteFile(handle string) error
}

// InlineScheduler runs follow-up work synchronously in the caller. It backs
// the one-shot CLI commands and tests.
type InlineScheduler struct {
	actions *Actions
	files   FileRemover
}

// NewInlineScheduler returns a scheduler that aggregates through a and
// deletes through files. A nil files skips deletion.
func NewInlineScheduler(a *Actions, files FileRemover) *InlineScheduler {
	return &InlineScheduler{actions: a, files: files}
}

func (s *InlineScheduler) ScheduleAggregation(ctx context.Context, seriesID string) error {
	return s.actions.SeriesAggregateBookMetadata(ctx, seriesID)
}

func (s *InlineScheduler) ScheduleFileDeletion(ctx context.Context, handles []string) error {
	if s.files == nil {
		return nil
	}
	var firstErr error
	for _, h := range handles {
		if err := s.files.DeleteFile(h); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
