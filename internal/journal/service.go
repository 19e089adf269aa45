// Package journal records user-facing messages about offline sync and
// downloads.
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mrlokans/offlinemirror/internal/clock"
	journaldb "github.com/mrlokans/offlinemirror/internal/database/journal"
	"github.com/mrlokans/offlinemirror/internal/entities"
	"github.com/mrlokans/offlinemirror/internal/logging"
)

const maxMessageLen = 2000

// Service writes to the log journal. Write failures are reported to the
// process logger and never returned to callers.
type Service struct {
	repo  *journaldb.Repository
	clock clock.Clock
}

func NewService(repo *journaldb.Repository, c clock.Clock) *Service {
	if c == nil {
		c = clock.New()
	}
	return &Service{repo: repo, clock: c}
}

// Info records an informational entry.
func (s *Service) Info(ctx context.Context, message string) {
	s.save(ctx, entities.LogTypeInfo, message)
}

// Error records an error entry. When err is non-nil its text is appended.
func (s *Service) Error(ctx context.Context, message string, err error) {
	if err != nil {
		message = message + ": " + err.Error()
	}
	s.save(ctx, entities.LogTypeError, message)
}

func (s *Service) save(ctx context.Context, logType entities.LogType, message string) {
	entry := &entities.LogEntry{
		ID:        uuid.NewString(),
		Type:      logType,
		Message:   truncate(message, maxMessageLen),
		Timestamp: s.clock.Now(),
	}
	if err := s.repo.Save(ctx, entry); err != nil {
		logging.Err(err).Str("component", "journal").Str("type", string(logType)).Msg("Failed to write journal entry")
	}
}

// List retrieves paginated entries, most recent first.
func (s *Service) List(ctx context.Context, logType entities.LogType, limit, offset int) ([]entities.LogEntry, int64, error) {
	return s.repo.List(ctx, logType, limit, offset)
}

// Cleanup removes entries older than the retention window.
func (s *Service) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.DeleteOlderThan(ctx, s.clock.Now().Add(-retention))
}

// Clear removes every entry.
func (s *Service) Clear(ctx context.Context) error {
	return s.repo.DeleteAll(ctx)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
