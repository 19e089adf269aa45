package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/offlinemirror/internal/entities"
	"github.com/mrlokans/offlinemirror/internal/events"
	"github.com/mrlokans/offlinemirror/internal/logging"
)

const sseHeartbeatInterval = 30 * time.Second

// DownloadQueue is the keyed download facility behind the endpoints.
type DownloadQueue interface {
	Enqueue(ctx context.Context, bookID string) error
	Cancel(ctx context.Context, bookID string) error
	Jobs(ctx context.Context, status entities.DownloadStatus) ([]entities.DownloadJob, error)
}

// EventSource streams domain events until ctx is done.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan events.Event, error)
}

// DownloadEventDTO is the SSE payload for one download lifecycle event.
// TotalBytes is 0 when TotalKnown is false.
type DownloadEventDTO struct {
	Type           string `json:"type"`
	BookID         string `json:"book_id"`
	SeriesID       string `json:"series_id,omitempty"`
	Title          string `json:"title,omitempty"`
	CompletedBytes int64  `json:"completed_bytes"`
	TotalBytes     int64  `json:"total_bytes"`
	TotalKnown     bool   `json:"total_known"`
	Error          string `json:"error,omitempty"`
}

func newDownloadEventDTO(e events.DownloadEvent) DownloadEventDTO {
	dto := DownloadEventDTO{Type: e.Type(), BookID: e.DownloadBookID()}
	switch ev := e.(type) {
	case events.DownloadProgress:
		dto.SeriesID = ev.Book.SeriesID
		dto.Title = ev.Book.Title()
		dto.CompletedBytes = ev.CompletedBytes
		dto.TotalBytes = ev.TotalBytes
		dto.TotalKnown = ev.TotalKnown()
	case events.DownloadCompleted:
		dto.SeriesID = ev.Book.SeriesID
		dto.Title = ev.Book.Title()
		dto.CompletedBytes = ev.Book.SizeBytes
		dto.TotalBytes = ev.Book.SizeBytes
		dto.TotalKnown = ev.Book.SizeBytes > 0
	case events.DownloadError:
		if ev.Book != nil {
			dto.SeriesID = ev.Book.SeriesID
			dto.Title = ev.Book.Title()
		}
		dto.Error = ev.Message()
	}
	return dto
}

type DownloadsController struct {
	queue  DownloadQueue
	events EventSource
}

func NewDownloadsController(queue DownloadQueue, source EventSource) *DownloadsController {
	return &DownloadsController{queue: queue, events: source}
}

var downloadStatuses = map[entities.DownloadStatus]bool{
	entities.DownloadStatusQueued:    true,
	entities.DownloadStatusRunning:   true,
	entities.DownloadStatusCompleted: true,
	entities.DownloadStatusFailed:    true,
	entities.DownloadStatusCancelled: true,
}

// List handles GET /api/downloads?status=
func (dc *DownloadsController) List(c *gin.Context) {
	status := entities.DownloadStatus(c.Query("status"))
	if status != "" && !downloadStatuses[status] {
		respondBadRequest(c, "invalid status")
		return
	}

	jobs, err := dc.queue.Jobs(c.Request.Context(), status)
	if err != nil {
		respondInternalError(c, err, "list downloads")
		return
	}
	if jobs == nil {
		jobs = []entities.DownloadJob{}
	}
	c.JSON(http.StatusOK, gin.H{"downloads": jobs, "total": len(jobs)})
}

// Enqueue handles POST /api/downloads/:bookId
// Re-enqueueing a book replaces its pending job.
func (dc *DownloadsController) Enqueue(c *gin.Context) {
	bookID, ok := requireParam(c, "bookId")
	if !ok {
		return
	}

	if err := dc.queue.Enqueue(c.Request.Context(), bookID); err != nil {
		respondInternalError(c, err, "enqueue download")
		return
	}
	respondAccepted(c, "download queued", gin.H{"book_id": bookID})
}

// Cancel handles DELETE /api/downloads/:bookId
func (dc *DownloadsController) Cancel(c *gin.Context) {
	bookID, ok := requireParam(c, "bookId")
	if !ok {
		return
	}

	if err := dc.queue.Cancel(c.Request.Context(), bookID); err != nil {
		respondInternalError(c, err, "cancel download")
		return
	}
	respondSuccess(c, "download cancelled")
}

// Events handles GET /api/downloads/events
// Streams download lifecycle events as server-sent events.
func (dc *DownloadsController) Events(c *gin.Context) {
	streamEvents(c, dc.events, func(e events.Event) (string, any, bool) {
		de, ok := e.(events.DownloadEvent)
		if !ok {
			return "", nil, false
		}
		return de.Type(), newDownloadEventDTO(de), true
	})
}

// AllEvents handles GET /api/events
// Streams every domain event in its tagged envelope.
func (dc *DownloadsController) AllEvents(c *gin.Context) {
	streamEvents(c, dc.events, func(e events.Event) (string, any, bool) {
		data, err := events.Encode(e)
		if err != nil {
			logging.Err(err).Str("type", e.Type()).Msg("Skipping unencodable event")
			return "", nil, false
		}
		return e.Type(), string(data), true
	})
}

// streamEvents writes server-sent events until the client goes away or
// the source closes. render returns false to skip an event.
func streamEvents(c *gin.Context, source EventSource, render func(events.Event) (string, any, bool)) {
	ctx := c.Request.Context()
	ch, err := source.Subscribe(ctx)
	if err != nil {
		respondInternalError(c, err, "subscribe to events")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			name, data, ok := render(e)
			if !ok {
				continue
			}
			c.SSEvent(name, data)
			c.Writer.Flush()
		case <-heartbeat.C:
			c.SSEvent("heartbeat", gin.H{"time": time.Now().Format(time.RFC3339)})
			c.Writer.Flush()
		case <-ctx.Done():
			return
		}
	}
}
