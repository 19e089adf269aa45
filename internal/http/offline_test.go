package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/offlinemirror/internal/actions"
	"github.com/mrlokans/offlinemirror/internal/catalog"
	"github.com/mrlokans/offlinemirror/internal/clock"
	"github.com/mrlokans/offlinemirror/internal/database"
	"github.com/mrlokans/offlinemirror/internal/database/books"
	"github.com/mrlokans/offlinemirror/internal/database/readprogress"
	"github.com/mrlokans/offlinemirror/internal/database/series"
	"github.com/mrlokans/offlinemirror/internal/entities"
)

type fixedUser string

func (u fixedUser) ActiveUserID() string { return string(u) }

type offlineEnv struct {
	db      *gorm.DB
	router  *gin.Engine
	actions *actions.Actions
	root    string
}

func setupOfflineTestDB(t *testing.T, user string) *offlineEnv {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "offline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	a := actions.New(db.DB, nil, nil, clock.NewMock())
	oc := NewOfflineController(series.NewRepository(db.DB), books.NewRepository(db.DB), a, fixedUser(user))

	router := gin.New()
	router.GET("/api/offline/series", oc.ListSeries)
	router.GET("/api/offline/series/:id/books", oc.ListSeriesBooks)
	router.DELETE("/api/offline/series/:id", oc.DeleteSeries)
	router.DELETE("/api/offline/books/:id", oc.DeleteBook)
	router.PUT("/api/offline/books/:id/progress", oc.MarkProgress)
	router.GET("/api/offline/books/:id/file", oc.BookFile)

	return &offlineEnv{db: db.DB, router: router, actions: a, root: t.TempDir()}
}

func (e *offlineEnv) seedSeries(t *testing.T, id, title string) {
	t.Helper()
	require.NoError(t, e.actions.SeriesImport(context.Background(), &catalog.Series{
		ID:        id,
		LibraryID: "lib1",
		Name:      title,
		Metadata:  catalog.SeriesMetadata{Title: title},
	}))
}

// seedBook imports a book whose file exists under the env root.
func (e *offlineEnv) seedBook(t *testing.T, id, seriesID string, remoteDeleted bool) string {
	t.Helper()
	path := filepath.Join(e.root, seriesID, id+".cbz")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("archive "+id), 0o644))

	book := &catalog.Book{
		ID:        id,
		SeriesID:  seriesID,
		LibraryID: "lib1",
		Name:      "Book " + id,
		Deleted:   remoteDeleted,
		Media:     catalog.Media{Status: "READY", PagesCount: 10},
		Metadata:  catalog.BookMetadata{Title: "Book " + id},
	}
	require.NoError(t, e.actions.BookImport(context.Background(), "", book, path, time.Now()))
	return path
}

func (e *offlineEnv) do(method, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	e.router.ServeHTTP(w, req)
	return w
}

type seriesListResponse struct {
	Series []entities.OfflineSeries `json:"series"`
	Total  int                      `json:"total"`
}

func seriesIDs(list []entities.OfflineSeries) []string {
	ids := make([]string, len(list))
	for i, s := range list {
		ids[i] = s.ID
	}
	return ids
}

func TestOfflineController_ListSeries(t *testing.T) {
	env := setupOfflineTestDB(t, "")
	env.seedSeries(t, "s1", "Vinland Saga")
	env.seedSeries(t, "s2", "Berserk")
	env.seedSeries(t, "s3", "Vagabond")

	t.Run("title order without a query", func(t *testing.T) {
		w := env.do("GET", "/api/offline/series", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp seriesListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []string{"s2", "s3", "s1"}, seriesIDs(resp.Series))
	})

	t.Run("fuzzy query drops non-matches", func(t *testing.T) {
		w := env.do("GET", "/api/offline/series?q=vnlnd", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp seriesListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []string{"s1"}, seriesIDs(resp.Series))
	})

	t.Run("query ignores case and ranks closer titles first", func(t *testing.T) {
		w := env.do("GET", "/api/offline/series?q=VA", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp seriesListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []string{"s3", "s1"}, seriesIDs(resp.Series))
	})
}

func TestOfflineController_ListSeriesBooks(t *testing.T) {
	env := setupOfflineTestDB(t, "")
	env.seedSeries(t, "s1", "Vinland Saga")
	env.seedBook(t, "b1", "s1", false)
	env.seedBook(t, "b2", "s1", true)

	var resp struct {
		Books []entities.OfflineBook `json:"books"`
		Total int                    `json:"total"`
	}

	w := env.do("GET", "/api/offline/series/s1/books", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Books, 1)
	assert.Equal(t, "b1", resp.Books[0].ID)

	w = env.do("GET", "/api/offline/series/s1/books?include_deleted=true", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)

	w = env.do("GET", "/api/offline/series/missing/books", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOfflineController_DeleteSeries(t *testing.T) {
	env := setupOfflineTestDB(t, "")
	env.seedSeries(t, "s1", "Vinland Saga")
	env.seedBook(t, "b1", "s1", false)

	w := env.do("DELETE", "/api/offline/series/s1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var n int64
	require.NoError(t, env.db.Model(&entities.OfflineBook{}).Where("series_id = ?", "s1").Count(&n).Error)
	assert.Zero(t, n)

	w = env.do("DELETE", "/api/offline/series/s1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOfflineController_DeleteBook(t *testing.T) {
	env := setupOfflineTestDB(t, "")
	env.seedSeries(t, "s1", "Vinland Saga")
	env.seedBook(t, "b1", "s1", false)

	w := env.do("DELETE", "/api/offline/books/b1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do("DELETE", "/api/offline/books/b1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOfflineController_MarkProgress(t *testing.T) {
	env := setupOfflineTestDB(t, "u1")
	env.seedSeries(t, "s1", "Vinland Saga")
	env.seedBook(t, "b1", "s1", false)

	w := env.do("PUT", "/api/offline/books/b1/progress", []byte(`{"page":10}`))
	require.Equal(t, http.StatusOK, w.Code)

	progress, err := readprogress.NewRepository(env.db).Find(context.Background(), "b1", "u1")
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.True(t, progress.Completed)
	assert.True(t, progress.Dirty)

	w = env.do("PUT", "/api/offline/books/b1/progress", []byte(`{"page":11}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do("PUT", "/api/offline/books/b1/progress", []byte(`{"page":0}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do("PUT", "/api/offline/books/missing/progress", []byte(`{"page":1}`))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOfflineController_MarkProgressWithoutUserUsesRoot(t *testing.T) {
	env := setupOfflineTestDB(t, "")
	env.seedSeries(t, "s1", "Vinland Saga")
	env.seedBook(t, "b1", "s1", false)

	w := env.do("PUT", "/api/offline/books/b1/progress", []byte(`{"page":3}`))
	require.Equal(t, http.StatusOK, w.Code)

	progress, err := readprogress.NewRepository(env.db).Find(context.Background(), "b1", entities.RootUserID)
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.False(t, progress.Dirty)
}

func TestOfflineController_BookFile(t *testing.T) {
	env := setupOfflineTestDB(t, "")
	env.seedSeries(t, "s1", "Vinland Saga")
	path := env.seedBook(t, "b1", "s1", false)

	w := env.do("GET", "/api/offline/books/b1/file", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "archive b1", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "b1.cbz")

	require.NoError(t, os.Remove(path))
	w = env.do("GET", "/api/offline/books/b1/file", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
