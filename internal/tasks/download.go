package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/mikestefanello/backlite"
	"github.com/rs/zerolog"

	"github.com/mrlokans/offlinemirror/internal/database/downloadjobs"
	"github.com/mrlokans/offlinemirror/internal/entities"
	"github.com/mrlokans/offlinemirror/internal/events"
	"github.com/mrlokans/offlinemirror/internal/logging"
)

// DownloadScheduler is the enqueue and cancel contract for book downloads,
// keyed by book id.
type DownloadScheduler interface {
	Enqueue(ctx context.Context, bookID string) error
	Cancel(ctx context.Context, bookID string) error
}

// DownloadBookTask downloads one book. Generation identifies the enqueue
// that produced it; older generations are skipped.
type DownloadBookTask struct {
	BookID     string `json:"book_id"`
	Generation int64  `json:"generation"`
}

func (t DownloadBookTask) Config() backlite.QueueConfig {
	cfg := currentDefaults()
	return backlite.QueueConfig{
		Name:        "download_book",
		MaxAttempts: cfg.MaxRetries,
		Backoff:     cfg.RetryDelay,
		Timeout:     cfg.downloadTimeout(),
		Retention: &backlite.Retention{
			Duration:   cfg.RetentionDuration,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

type inflight struct {
	generation int64
	cancel     context.CancelFunc
}

// DownloadManager keeps at most one live job per book on top of backlite.
// The download_jobs row is the source of truth for which generation is
// current.
type DownloadManager struct {
	client *Client
	jobs   *downloadjobs.Repository
	worker *BookWorker
	log    zerolog.Logger

	mu      sync.Mutex
	running map[string]inflight
}

func NewDownloadManager(client *Client, jobs *downloadjobs.Repository, worker *BookWorker) *DownloadManager {
	return &DownloadManager{
		client:  client,
		jobs:    jobs,
		worker:  worker,
		log:     logging.Component("download-manager"),
		running: make(map[string]inflight),
	}
}

// Queue returns the backlite queue processing the manager's tasks.
func (m *DownloadManager) Queue() backlite.Queue {
	return backlite.NewQueue(m.Process)
}

// Enqueue replaces any pending or running job for bookID.
func (m *DownloadManager) Enqueue(ctx context.Context, bookID string) error {
	generation, err := m.jobs.Bump(ctx, bookID)
	if err != nil {
		return fmt.Errorf("record download job %s: %w", bookID, err)
	}
	m.interrupt(bookID)

	ids, err := m.client.Add(DownloadBookTask{BookID: bookID, Generation: generation}).Ctx(ctx).Save()
	if err != nil {
		return fmt.Errorf("enqueue download %s: %w", bookID, err)
	}
	if len(ids) > 0 {
		if err := m.jobs.SetTaskID(ctx, bookID, generation, ids[0]); err != nil {
			m.log.Warn().Err(err).Str("book_id", bookID).Msg("Failed to record task id")
		}
	}

	m.log.Info().Str("book_id", bookID).Int64("generation", generation).Msg("Download enqueued")
	return nil
}

// Cancel drops the job for bookID and interrupts it if it is running. A
// queued task for the dropped job is skipped when it comes up.
func (m *DownloadManager) Cancel(ctx context.Context, bookID string) error {
	m.interrupt(bookID)
	if err := m.jobs.Delete(ctx, bookID); err != nil {
		return fmt.Errorf("cancel download %s: %w", bookID, err)
	}
	m.log.Info().Str("book_id", bookID).Msg("Download cancelled")
	return nil
}

// Process is the backlite processor for DownloadBookTask. A failed download
// returns an error so backlite applies its retry policy.
func (m *DownloadManager) Process(ctx context.Context, task DownloadBookTask) error {
	job, err := m.jobs.Find(ctx, task.BookID)
	if err != nil {
		return fmt.Errorf("load download job %s: %w", task.BookID, err)
	}
	if job == nil || job.Generation != task.Generation {
		m.log.Debug().Str("book_id", task.BookID).Int64("generation", task.Generation).Msg("Skipping superseded download")
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !m.track(task, cancel) {
		m.log.Debug().Str("book_id", task.BookID).Msg("Download already running")
		return nil
	}
	defer m.untrack(task)

	if err := m.jobs.MarkRunning(ctx, task.BookID, task.Generation); err != nil {
		return fmt.Errorf("mark download %s running: %w", task.BookID, err)
	}

	outcome, failure := m.worker.run(runCtx, task.BookID, func(p events.DownloadProgress) {
		if err := m.jobs.UpdateProgress(ctx, task.BookID, task.Generation, p.CompletedBytes, p.TotalBytes); err != nil {
			m.log.Warn().Err(err).Str("book_id", task.BookID).Msg("Failed to record download progress")
		}
	})

	switch outcome {
	case OutcomeSuccess:
		return m.finish(ctx, task, entities.DownloadStatusCompleted, "")
	case OutcomeFailure:
		msg := failure.Message()
		if err := m.finish(ctx, task, entities.DownloadStatusFailed, msg); err != nil {
			m.log.Warn().Err(err).Str("book_id", task.BookID).Msg("Failed to record download failure")
		}
		return fmt.Errorf("download %s: %s", task.BookID, msg)
	default:
		if ctx.Err() != nil {
			// The host is shutting down; let it hand the task out again.
			return ctx.Err()
		}
		return m.finish(ctx, task, entities.DownloadStatusCancelled, "")
	}
}

func (m *DownloadManager) finish(ctx context.Context, task DownloadBookTask, status entities.DownloadStatus, msg string) error {
	return m.jobs.Finish(ctx, task.BookID, task.Generation, status, msg)
}

// Jobs lists download jobs, most recently updated first.
func (m *DownloadManager) Jobs(ctx context.Context, status entities.DownloadStatus) ([]entities.DownloadJob, error) {
	return m.jobs.List(ctx, status)
}

func (m *DownloadManager) track(task DownloadBookTask, cancel context.CancelFunc) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.running[task.BookID]; ok && cur.generation == task.Generation {
		return false
	}
	m.running[task.BookID] = inflight{generation: task.Generation, cancel: cancel}
	return true
}

func (m *DownloadManager) untrack(task DownloadBookTask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.running[task.BookID]; ok && cur.generation == task.Generation {
		delete(m.running, task.BookID)
	}
}

func (m *DownloadManager) interrupt(bookID string) {
	m.mu.Lock()
	cur, ok := m.running[bookID]
	m.mu.Unlock()
	if ok {
		cur.cancel()
	}
}
