package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/offlinemirror/internal/entities"
	"github.com/mrlokans/offlinemirror/internal/logging"
	"github.com/mrlokans/offlinemirror/internal/syncer"
)

// SyncRunner runs reconciliation passes for the online identity.
type SyncRunner interface {
	Online() bool
	SyncNow(ctx context.Context, force bool) (syncer.Result, error)
	LastStatus() *syncer.Status
}

// SyncProgressReader exposes the persisted progress of the current pass.
type SyncProgressReader interface {
	GetSyncProgress(ctx context.Context) (*entities.SyncProgress, error)
	IsSyncRunning(ctx context.Context) (bool, error)
}

// LastSyncReader exposes the time the last completed pass started.
type LastSyncReader interface {
	LastSync() time.Time
}

type SyncStatusResponse struct {
	Running  bool                   `json:"running"`
	LastSync *time.Time             `json:"last_sync,omitempty"`
	Progress *entities.SyncProgress `json:"progress,omitempty"`
	Last     *syncer.Status         `json:"last,omitempty"`
}

type SyncController struct {
	runner   SyncRunner
	progress SyncProgressReader
	lastSync LastSyncReader
	// base outlives the request that triggered a pass.
	base context.Context
}

func NewSyncController(base context.Context, runner SyncRunner, progress SyncProgressReader, lastSync LastSyncReader) *SyncController {
	return &SyncController{
		runner:   runner,
		progress: progress,
		lastSync: lastSync,
		base:     base,
	}
}

// Run handles POST /api/sync/run?force=
// Starts a pass in the background; force skips the minimum interval.
func (sc *SyncController) Run(c *gin.Context) {
	force, ok := parseBoolQuery(c, "force")
	if !ok {
		return
	}
	if !sc.runner.Online() {
		respondError(c, http.StatusConflict, syncer.ErrOffline.Error())
		return
	}
	running, err := sc.progress.IsSyncRunning(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "check sync state")
		return
	}
	if running {
		respondError(c, http.StatusConflict, syncer.ErrSyncRunning.Error())
		return
	}

	go func() {
		res, err := sc.runner.SyncNow(sc.base, force)
		switch {
		case errors.Is(err, syncer.ErrSyncRunning), errors.Is(err, syncer.ErrOffline):
			logging.Info().Err(err).Msg("Requested sync pass not started")
		case err != nil:
			logging.Warn().Err(err).Msg("Requested sync pass failed")
		case res.Skipped:
			logging.Info().Str("reason", res.Reason).Msg("Requested sync pass skipped")
		}
	}()

	respondAccepted(c, "sync started", gin.H{"force": force})
}

// Status handles GET /api/sync/status
func (sc *SyncController) Status(c *gin.Context) {
	ctx := c.Request.Context()

	progress, err := sc.progress.GetSyncProgress(ctx)
	if err != nil {
		respondInternalError(c, err, "get sync progress")
		return
	}

	resp := SyncStatusResponse{
		Running:  progress != nil && progress.Status == entities.SyncStatusRunning,
		Progress: progress,
		Last:     sc.runner.LastStatus(),
	}
	if last := sc.lastSync.LastSync(); !last.IsZero() {
		resp.LastSync = &last
	}
	c.JSON(http.StatusOK, resp)
}
