package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/offlinemirror/internal/catalog"
	"github.com/mrlokans/offlinemirror/internal/clock"
	"github.com/mrlokans/offlinemirror/internal/database"
	"github.com/mrlokans/offlinemirror/internal/database/downloadjobs"
	journaldb "github.com/mrlokans/offlinemirror/internal/database/journal"
	"github.com/mrlokans/offlinemirror/internal/entities"
	"github.com/mrlokans/offlinemirror/internal/events"
	"github.com/mrlokans/offlinemirror/internal/journal"
)

// fakeDownloader emits progress, holds the body open for hold, then ends
// according to the book's entry in failures.
type fakeDownloader struct {
	hold     time.Duration
	progress int
	failures map[string]error

	mu     sync.Mutex
	calls  []string
	active int
	peak   int
}

func (d *fakeDownloader) Download(ctx context.Context, bookID string) <-chan events.DownloadEvent {
	out := make(chan events.DownloadEvent)
	d.mu.Lock()
	d.calls = append(d.calls, bookID)
	d.active++
	d.peak = max(d.peak, d.active)
	d.mu.Unlock()

	go func() {
		defer close(out)
		defer func() {
			d.mu.Lock()
			d.active--
			d.mu.Unlock()
		}()

		book := &catalog.Book{ID: bookID, Name: "Book " + bookID}
		for i := 1; i <= d.progress; i++ {
			out <- events.DownloadProgress{Book: book, TotalBytes: int64(d.progress), CompletedBytes: int64(i)}
		}

		select {
		case <-time.After(d.hold):
		case <-ctx.Done():
			return
		}

		if err, ok := d.failures[bookID]; ok {
			out <- events.DownloadError{BookID: bookID, Book: book, Err: err}
			return
		}
		out <- events.DownloadCompleted{Book: book}
	}()
	return out
}

func (d *fakeDownloader) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *fakeDownloader) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

type testEnv struct {
	db      *database.Database
	dbPath  string
	journal *journal.Service
	jobs    *downloadjobs.Repository
}

func setupTestDB(t *testing.T) *testEnv {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "mirror.db")
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &testEnv{
		db:      db,
		dbPath:  dbPath,
		journal: journal.NewService(journaldb.NewRepository(db.DB), clock.NewMock()),
		jobs:    downloadjobs.NewRepository(db.DB),
	}
}

func TestBookWorker_BoundsConcurrentDownloads(t *testing.T) {
	env := setupTestDB(t)
	d := &fakeDownloader{hold: 50 * time.Millisecond}
	w := NewBookWorker(d, nil, env.journal, WorkerConfig{Concurrency: 4})

	outcomes := make([]Outcome, 10)
	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = w.Run(context.Background(), fmt.Sprintf("b%d", i))
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, d.peak, 4)
	assert.Greater(t, d.peak, 1, "downloads should overlap")
	assert.Len(t, d.Calls(), 10)
	for _, o := range outcomes {
		assert.Equal(t, OutcomeSuccess, o)
	}
}

func TestBookWorker_JournalsOutcomes(t *testing.T) {
	env := setupTestDB(t)
	d := &fakeDownloader{failures: map[string]error{"bad": errors.New("disk full")}}
	pub := &recordingPublisher{}
	w := NewBookWorker(d, pub, env.journal, DefaultWorkerConfig())
	ctx := context.Background()

	assert.Equal(t, OutcomeSuccess, w.Run(ctx, "good"))
	assert.Equal(t, OutcomeFailure, w.Run(ctx, "bad"))

	entries, total, err := env.journal.List(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Equal(t, int64(2), total)

	messages := map[entities.LogType]string{}
	for _, e := range entries {
		messages[e.Type] = e.Message
	}
	assert.Equal(t, "Book downloaded: Book good", messages[entities.LogTypeInfo])
	assert.Equal(t, "Book download error: disk full", messages[entities.LogTypeError])

	published := pub.Events()
	require.Len(t, published, 2)
	assert.IsType(t, events.DownloadCompleted{}, published[0])
	assert.IsType(t, events.DownloadError{}, published[1])
}

func TestBookWorker_ThrottlesProgress(t *testing.T) {
	env := setupTestDB(t)
	d := &fakeDownloader{progress: 50}
	pub := &recordingPublisher{}
	w := NewBookWorker(d, pub, env.journal, WorkerConfig{Concurrency: 1, ProgressInterval: time.Hour})

	var seen []int64
	outcome, failure := w.run(context.Background(), "b1", func(p events.DownloadProgress) {
		seen = append(seen, p.CompletedBytes)
	})
	assert.Equal(t, OutcomeSuccess, outcome)
	assert.Nil(t, failure)
	assert.Equal(t, []int64{1}, seen, "only the first progress update passes within the interval")

	var progress int
	for _, e := range pub.Events() {
		if _, ok := e.(events.DownloadProgress); ok {
			progress++
		}
	}
	assert.Equal(t, 1, progress)
}

func TestBookWorker_Cancelled(t *testing.T) {
	env := setupTestDB(t)
	d := &fakeDownloader{hold: time.Minute}
	w := NewBookWorker(d, nil, env.journal, DefaultWorkerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Outcome, 1)
	go func() { done <- w.Run(ctx, "b1") }()

	require.Eventually(t, func() bool { return d.Active() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case o := <-done:
		assert.Equal(t, OutcomeCancelled, o)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not observe cancellation")
	}

	_, total, err := env.journal.List(context.Background(), "", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total, "cancellation is not journaled")
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "failure", OutcomeFailure.String())
	assert.Equal(t, "cancelled", OutcomeCancelled.String())
}
