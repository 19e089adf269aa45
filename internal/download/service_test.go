package download

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/offlinemirror/internal/actions"
	"github.com/mrlokans/offlinemirror/internal/catalog"
	"github.com/mrlokans/offlinemirror/internal/clock"
	"github.com/mrlokans/offlinemirror/internal/database"
	"github.com/mrlokans/offlinemirror/internal/entities"
	"github.com/mrlokans/offlinemirror/internal/events"
)

// fakeAPI serves one book. bodyFn builds the file body per request.
type fakeAPI struct {
	book   catalog.Book
	length int64
	bodyFn func(ctx context.Context) io.ReadCloser

	mu      sync.Mutex
	opened  int
	bookErr error
	openErr error
}

func (f *fakeAPI) BaseURL() string { return "https://catalog.example.com" }

func (f *fakeAPI) GetMe(ctx context.Context) (*catalog.User, error) {
	return &catalog.User{ID: "u1", Email: "reader@example.com"}, nil
}

func (f *fakeAPI) GetLibrary(ctx context.Context, id string) (*catalog.Library, error) {
	return &catalog.Library{ID: id, Name: "Comics"}, nil
}

func (f *fakeAPI) GetSeries(ctx context.Context, id string) (*catalog.Series, error) {
	return &catalog.Series{ID: id, LibraryID: f.book.LibraryID, Name: "Series"}, nil
}

func (f *fakeAPI) GetBook(ctx context.Context, id string) (*catalog.Book, error) {
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	b := f.book
	return &b, nil
}

func (f *fakeAPI) GetBookThumbnail(ctx context.Context, id string) (*catalog.Thumbnail, error) {
	return nil, catalog.ErrNotFound
}

func (f *fakeAPI) DownloadBook(ctx context.Context, id string) (io.ReadCloser, int64, error) {
	f.mu.Lock()
	f.opened++
	f.mu.Unlock()
	if f.openErr != nil {
		return nil, 0, f.openErr
	}
	return f.bodyFn(ctx), f.length, nil
}

func (f *fakeAPI) UpdateReadProgress(ctx context.Context, bookID string, update catalog.ReadProgressUpdate) error {
	return nil
}

// failingReader yields n bytes and then fails.
type failingReader struct {
	remaining int
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, errors.New("connection reset by peer")
	}
	n := min(len(p), r.remaining)
	r.remaining -= n
	return n, nil
}

// blockingReader yields n bytes and then waits for ctx.
type blockingReader struct {
	ctx       context.Context
	remaining int
}

func (r *blockingReader) Read(p []byte) (int, error) {
	if r.remaining > 0 {
		n := min(len(p), r.remaining)
		r.remaining -= n
		return n, nil
	}
	<-r.ctx.Done()
	return 0, r.ctx.Err()
}

type testEnv struct {
	db   *gorm.DB
	svc  *Service
	api  *fakeAPI
	root string
}

func setupTestDB(t *testing.T, api *fakeAPI) *testEnv {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "download.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	root := t.TempDir()
	a := actions.New(db.DB, nil, nil, clock.NewMock())
	svc := NewService(api, a, NewFilesystemOutput(), StaticRoot(root), clock.NewMock())
	return &testEnv{db: db.DB, svc: svc, api: api, root: root}
}

func testBook() catalog.Book {
	return catalog.Book{
		ID:        "b1",
		SeriesID:  "s1",
		LibraryID: "lib1",
		Name:      "Vol 1",
		URL:       "/library/Series/Vol 1.cbz",
		Media:     catalog.Media{PagesCount: 12},
		Metadata:  catalog.BookMetadata{Title: "Volume 1"},
	}
}

func collect(t *testing.T, ch <-chan events.DownloadEvent) []events.DownloadEvent {
	t.Helper()
	var got []events.DownloadEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatal("download did not finish")
		}
	}
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestDownload_Success(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), ChunkSize*2+100)
	api := &fakeAPI{
		book:   testBook(),
		length: int64(len(payload)),
		bodyFn: func(context.Context) io.ReadCloser { return io.NopCloser(bytes.NewReader(payload)) },
	}
	env := setupTestDB(t, api)

	got := collect(t, env.svc.Download(context.Background(), "b1"))
	require.NotEmpty(t, got)

	var last int64
	for _, ev := range got[:len(got)-1] {
		p, ok := ev.(events.DownloadProgress)
		require.True(t, ok, "unexpected %T", ev)
		assert.GreaterOrEqual(t, p.CompletedBytes, last)
		assert.True(t, p.TotalKnown())
		last = p.CompletedBytes
	}
	assert.Equal(t, int64(len(payload)), last)
	assert.Len(t, got, 4, "three chunks and the completion")

	completed, ok := got[len(got)-1].(events.DownloadCompleted)
	require.True(t, ok)
	assert.Equal(t, "b1", completed.Book.ID)

	path := filepath.Join(env.root, "s1", "Vol 1.cbz")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	var book entities.OfflineBook
	require.NoError(t, env.db.First(&book, "id = ?", "b1").Error)
	assert.Equal(t, path, book.FileDownloadPath)
	assert.Equal(t, int64(1), countRows(t, env.db, &entities.MediaServer{}))
	assert.Equal(t, int64(1), countRows(t, env.db, &entities.OfflineUser{}))
	assert.Equal(t, int64(1), countRows(t, env.db, &entities.OfflineLibrary{}))
	assert.Equal(t, int64(1), countRows(t, env.db, &entities.OfflineSeries{}))
	assert.Equal(t, int64(1), countRows(t, env.db, &entities.OfflineBookMetadataAggregation{}))
}

func TestDownload_UnknownLengthReportsRunningTotal(t *testing.T) {
	payload := []byte("short book")
	api := &fakeAPI{
		book:   testBook(),
		bodyFn: func(context.Context) io.ReadCloser { return io.NopCloser(bytes.NewReader(payload)) },
	}
	env := setupTestDB(t, api)

	got := collect(t, env.svc.Download(context.Background(), "b1"))
	require.Len(t, got, 2)
	p := got[0].(events.DownloadProgress)
	assert.False(t, p.TotalKnown())
	assert.Equal(t, int64(0), p.TotalBytes)
	assert.Equal(t, int64(len(payload)), p.CompletedBytes)
	assert.IsType(t, events.DownloadCompleted{}, got[1])
}

func TestDownload_FailureCleansUp(t *testing.T) {
	api := &fakeAPI{
		book:   testBook(),
		length: ChunkSize * 4,
		bodyFn: func(context.Context) io.ReadCloser {
			return io.NopCloser(&failingReader{remaining: ChunkSize + 10})
		},
	}
	env := setupTestDB(t, api)

	got := collect(t, env.svc.Download(context.Background(), "b1"))
	require.NotEmpty(t, got)

	last, ok := got[len(got)-1].(events.DownloadError)
	require.True(t, ok, "last event is %T", got[len(got)-1])
	assert.Equal(t, "b1", last.BookID)
	require.NotNil(t, last.Book)
	assert.Contains(t, last.Message(), "connection reset")

	_, err := os.Stat(filepath.Join(env.root, "s1", "Vol 1.cbz"))
	assert.True(t, os.IsNotExist(err))
	entries, _ := os.ReadDir(filepath.Join(env.root, "s1"))
	assert.Empty(t, entries)

	for _, model := range []any{&entities.MediaServer{}, &entities.OfflineLibrary{}, &entities.OfflineSeries{}, &entities.OfflineBook{}} {
		assert.Zero(t, countRows(t, env.db, model), "%T", model)
	}
}

func TestDownload_FailedRedownloadKeepsExistingFile(t *testing.T) {
	payload := []byte("complete book")
	api := &fakeAPI{
		book:   testBook(),
		length: int64(len(payload)),
		bodyFn: func(context.Context) io.ReadCloser { return io.NopCloser(bytes.NewReader(payload)) },
	}
	env := setupTestDB(t, api)
	path := filepath.Join(env.root, "s1", "Vol 1.cbz")

	got := collect(t, env.svc.Download(context.Background(), "b1"))
	require.IsType(t, events.DownloadCompleted{}, got[len(got)-1])

	tests := []struct {
		name  string
		setup func()
	}{
		{
			name: "body fails midway",
			setup: func() {
				api.length = ChunkSize * 4
				api.bodyFn = func(context.Context) io.ReadCloser {
					return io.NopCloser(&failingReader{remaining: ChunkSize + 10})
				}
			},
		},
		{
			name:  "file cannot be opened",
			setup: func() { api.openErr = &catalog.ServerError{StatusCode: 503} },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()

			got := collect(t, env.svc.Download(context.Background(), "b1"))
			require.IsType(t, events.DownloadError{}, got[len(got)-1])

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, payload, data)

			entries, err := os.ReadDir(filepath.Dir(path))
			require.NoError(t, err)
			assert.Len(t, entries, 1, "no temp file is left behind")

			var book entities.OfflineBook
			require.NoError(t, env.db.First(&book, "id = ?", "b1").Error)
			assert.Equal(t, path, book.FileDownloadPath)
		})
	}
}

func TestDownload_MetadataFailure(t *testing.T) {
	api := &fakeAPI{book: testBook(), bookErr: catalog.ErrNotFound}
	env := setupTestDB(t, api)

	got := collect(t, env.svc.Download(context.Background(), "b1"))
	require.Len(t, got, 1)
	de, ok := got[0].(events.DownloadError)
	require.True(t, ok)
	assert.Nil(t, de.Book)
	assert.ErrorIs(t, de.Err, catalog.ErrNotFound)
	assert.Zero(t, api.opened)
}

func TestDownload_CancelEndsWithoutError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	api := &fakeAPI{
		book:   testBook(),
		length: ChunkSize * 4,
		bodyFn: func(ctx context.Context) io.ReadCloser {
			return io.NopCloser(&blockingReader{ctx: ctx, remaining: ChunkSize})
		},
	}
	env := setupTestDB(t, api)

	ch := env.svc.Download(ctx, "b1")
	first := <-ch
	assert.IsType(t, events.DownloadProgress{}, first)
	cancel()

	for _, ev := range collect(t, ch) {
		_, isErr := ev.(events.DownloadError)
		assert.False(t, isErr, "cancellation must not surface as an error")
		_, isDone := ev.(events.DownloadCompleted)
		assert.False(t, isDone)
	}

	require.Eventually(t, func() bool {
		entries, _ := os.ReadDir(filepath.Join(env.root, "s1"))
		return len(entries) == 0
	}, time.Second, 10*time.Millisecond)
	assert.Zero(t, countRows(t, env.db, &entities.OfflineBook{}))
}
