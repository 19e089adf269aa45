package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/offlinemirror/internal/entities"
)

// JournalStore is the user-facing log journal.
type JournalStore interface {
	List(ctx context.Context, logType entities.LogType, limit, offset int) ([]entities.LogEntry, int64, error)
	Clear(ctx context.Context) error
}

type LogsController struct {
	journal JournalStore
}

func NewLogsController(journal JournalStore) *LogsController {
	return &LogsController{journal: journal}
}

// List handles GET /api/logs?type=&limit=&offset=
func (lc *LogsController) List(c *gin.Context) {
	limit, offset, ok := parsePagination(c)
	if !ok {
		return
	}

	logType := entities.LogType(strings.ToUpper(c.Query("type")))
	switch logType {
	case "", entities.LogTypeInfo, entities.LogTypeError:
	default:
		respondBadRequest(c, "invalid type")
		return
	}

	entries, total, err := lc.journal.List(c.Request.Context(), logType, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list log journal")
		return
	}
	if entries == nil {
		entries = []entities.LogEntry{}
	}
	c.JSON(http.StatusOK, newPaginatedResponse(entries, total, limit, offset))
}

// Clear handles DELETE /api/logs
func (lc *LogsController) Clear(c *gin.Context) {
	if err := lc.journal.Clear(c.Request.Context()); err != nil {
		respondInternalError(c, err, "clear log journal")
		return
	}
	respondSuccess(c, "log journal cleared")
}
