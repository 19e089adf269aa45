package tasks

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/mrlokans/offlinemirror/internal/events"
	"github.com/mrlokans/offlinemirror/internal/journal"
	"github.com/mrlokans/offlinemirror/internal/logging"
	"github.com/mrlokans/offlinemirror/internal/metrics"
)

// Outcome is what a download job reports back to the host queue.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Downloader produces the event stream of one book download.
type Downloader interface {
	Download(ctx context.Context, bookID string) <-chan events.DownloadEvent
}

type WorkerConfig struct {
	// Concurrency caps simultaneously open download bodies. Default: 4
	Concurrency int
	// ProgressInterval is the minimum gap between progress notifications. Default: 200ms
	ProgressInterval time.Duration
}

func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{Concurrency: 4, ProgressInterval: 200 * time.Millisecond}
}

// BookWorker runs one download under the global permit and reports it to
// the bus and the log journal.
type BookWorker struct {
	downloader Downloader
	publisher  events.Publisher
	journal    *journal.Service
	permits    *semaphore.Weighted
	interval   time.Duration
	log        zerolog.Logger
}

func NewBookWorker(d Downloader, publisher events.Publisher, j *journal.Service, cfg WorkerConfig) *BookWorker {
	def := DefaultWorkerConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = def.ProgressInterval
	}
	return &BookWorker{
		downloader: d,
		publisher:  publisher,
		journal:    j,
		permits:    semaphore.NewWeighted(int64(cfg.Concurrency)),
		interval:   cfg.ProgressInterval,
		log:        logging.Component("download-worker"),
	}
}

// Run downloads bookID and blocks until the stream ends.
func (w *BookWorker) Run(ctx context.Context, bookID string) Outcome {
	outcome, _ := w.run(ctx, bookID, nil)
	return outcome
}

// run also returns the terminal error event, if any, and forwards
// throttled progress to onProgress.
func (w *BookWorker) run(ctx context.Context, bookID string, onProgress func(events.DownloadProgress)) (Outcome, *events.DownloadError) {
	if err := w.permits.Acquire(ctx, 1); err != nil {
		return OutcomeCancelled, nil
	}
	defer w.permits.Release(1)

	metrics.DownloadsActive.Inc()
	defer metrics.DownloadsActive.Dec()

	throttle := &rate.Sometimes{Interval: w.interval}
	outcome := OutcomeCancelled
	var failure *events.DownloadError

	for ev := range w.downloader.Download(ctx, bookID) {
		switch e := ev.(type) {
		case events.DownloadProgress:
			throttle.Do(func() {
				w.publish(ctx, e)
				if onProgress != nil {
					onProgress(e)
				}
			})
		case events.DownloadCompleted:
			outcome = OutcomeSuccess
			w.journal.Info(ctx, "Book downloaded: "+e.Book.Title())
			w.publish(ctx, e)
		case events.DownloadError:
			outcome = OutcomeFailure
			failure = &e
			w.journal.Error(ctx, "Book download error", e.Err)
			w.publish(ctx, e)
		}
	}

	metrics.DownloadsTotal.WithLabelValues(outcome.String()).Inc()
	w.log.Debug().Str("book_id", bookID).Stringer("outcome", outcome).Msg("Download finished")
	return outcome, failure
}

func (w *BookWorker) publish(ctx context.Context, e events.Event) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		w.log.Warn().Err(err).Str("type", e.Type()).Msg("Failed to publish download event")
	}
}
