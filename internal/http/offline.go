package http

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mrlokans/offlinemirror/internal/actions"
	"github.com/mrlokans/offlinemirror/internal/entities"
)

// OfflineSeriesStore provides read access to mirrored series.
type OfflineSeriesStore interface {
	Find(ctx context.Context, id string) (*entities.OfflineSeries, error)
	FindAllWithMetadata(ctx context.Context) ([]entities.OfflineSeries, error)
}

// OfflineBookStore provides read access to mirrored books.
type OfflineBookStore interface {
	Find(ctx context.Context, id string) (*entities.OfflineBook, error)
	FindBySeriesID(ctx context.Context, seriesID string) ([]entities.OfflineBook, error)
}

// OfflineActions are the local mutations reachable from the API.
type OfflineActions interface {
	SeriesDelete(ctx context.Context, seriesID string) error
	BookDelete(ctx context.Context, bookID string) error
	ReadProgressMark(ctx context.Context, userID, bookID string, page int) error
}

// ActiveUserReader resolves whose read progress a request updates.
type ActiveUserReader interface {
	ActiveUserID() string
}

type OfflineController struct {
	series  OfflineSeriesStore
	books   OfflineBookStore
	actions OfflineActions
	user    ActiveUserReader
}

func NewOfflineController(series OfflineSeriesStore, books OfflineBookStore, a OfflineActions, user ActiveUserReader) *OfflineController {
	return &OfflineController{series: series, books: books, actions: a, user: user}
}

func seriesTitle(s entities.OfflineSeries) string {
	if s.Metadata.Title != "" {
		return s.Metadata.Title
	}
	return s.Name
}

// ListSeries handles GET /api/offline/series?q=
// Without q the series come back in title order; with q they are ranked
// by fuzzy distance and non-matching series are dropped.
func (oc *OfflineController) ListSeries(c *gin.Context) {
	all, err := oc.series.FindAllWithMetadata(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "list offline series")
		return
	}

	visible := make([]entities.OfflineSeries, 0, len(all))
	for _, s := range all {
		if !s.Deleted {
			visible = append(visible, s)
		}
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		sort.SliceStable(visible, func(i, j int) bool {
			return strings.ToLower(seriesTitle(visible[i])) < strings.ToLower(seriesTitle(visible[j]))
		})
		c.JSON(http.StatusOK, gin.H{"series": visible, "total": len(visible)})
		return
	}

	titles := make([]string, len(visible))
	for i, s := range visible {
		titles[i] = seriesTitle(s)
	}
	ranks := fuzzy.RankFindNormalizedFold(query, titles)
	sort.Stable(ranks)

	matched := make([]entities.OfflineSeries, 0, len(ranks))
	for _, r := range ranks {
		matched = append(matched, visible[r.OriginalIndex])
	}
	c.JSON(http.StatusOK, gin.H{"series": matched, "total": len(matched), "query": query})
}

// ListSeriesBooks handles GET /api/offline/series/:id/books
// Remote-deleted books are hidden unless include_deleted=true.
func (oc *OfflineController) ListSeriesBooks(c *gin.Context) {
	seriesID, ok := requireParam(c, "id")
	if !ok {
		return
	}
	includeDeleted, ok := parseBoolQuery(c, "include_deleted")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	s, err := oc.series.Find(ctx, seriesID)
	if err != nil {
		respondInternalError(c, err, "find offline series")
		return
	}
	if s == nil {
		respondNotFound(c, "series")
		return
	}

	books, err := oc.books.FindBySeriesID(ctx, seriesID)
	if err != nil {
		respondInternalError(c, err, "list offline books")
		return
	}
	result := make([]entities.OfflineBook, 0, len(books))
	for _, b := range books {
		if includeDeleted || !b.Deleted {
			result = append(result, b)
		}
	}
	c.JSON(http.StatusOK, gin.H{"series": s, "books": result, "total": len(result)})
}

// DeleteSeries handles DELETE /api/offline/series/:id
func (oc *OfflineController) DeleteSeries(c *gin.Context) {
	seriesID, ok := requireParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	s, err := oc.series.Find(ctx, seriesID)
	if err != nil {
		respondInternalError(c, err, "find offline series")
		return
	}
	if s == nil {
		respondNotFound(c, "series")
		return
	}

	if err := oc.actions.SeriesDelete(ctx, seriesID); err != nil {
		respondInternalError(c, err, "delete offline series")
		return
	}
	respondSuccess(c, "series deleted")
}

// DeleteBook handles DELETE /api/offline/books/:id
func (oc *OfflineController) DeleteBook(c *gin.Context) {
	book, ok := oc.findBook(c)
	if !ok {
		return
	}

	if err := oc.actions.BookDelete(c.Request.Context(), book.ID); err != nil {
		respondInternalError(c, err, "delete offline book")
		return
	}
	respondSuccess(c, "book deleted")
}

type ReadProgressRequest struct {
	Page int `json:"page" binding:"required,min=1"`
}

// MarkProgress handles PUT /api/offline/books/:id/progress
func (oc *OfflineController) MarkProgress(c *gin.Context) {
	bookID, ok := requireParam(c, "id")
	if !ok {
		return
	}

	var req ReadProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "page must be a positive integer")
		return
	}

	userID := oc.user.ActiveUserID()
	if userID == "" {
		userID = entities.RootUserID
	}

	err := oc.actions.ReadProgressMark(c.Request.Context(), userID, bookID, req.Page)
	switch {
	case errors.Is(err, actions.ErrBookNotFound):
		respondNotFound(c, "book")
	case errors.Is(err, actions.ErrInvalidPage):
		respondBadRequest(c, err.Error())
	case err != nil:
		respondInternalError(c, err, "mark read progress")
	default:
		c.JSON(http.StatusOK, gin.H{"book_id": bookID, "user_id": userID, "page": req.Page})
	}
}

// BookFile handles GET /api/offline/books/:id/file
func (oc *OfflineController) BookFile(c *gin.Context) {
	book, ok := oc.findBook(c)
	if !ok {
		return
	}
	if book.FileDownloadPath == "" {
		respondNotFound(c, "book file")
		return
	}
	if _, err := os.Stat(book.FileDownloadPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			respondNotFound(c, "book file")
			return
		}
		respondInternalError(c, err, "stat book file")
		return
	}
	c.FileAttachment(book.FileDownloadPath, filepath.Base(book.FileDownloadPath))
}

func (oc *OfflineController) findBook(c *gin.Context) (*entities.OfflineBook, bool) {
	bookID, ok := requireParam(c, "id")
	if !ok {
		return nil, false
	}
	book, err := oc.books.Find(c.Request.Context(), bookID)
	if err != nil {
		respondInternalError(c, err, "find offline book")
		return nil, false
	}
	if book == nil {
		respondNotFound(c, "book")
		return nil, false
	}
	return book, true
}
