package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mrlokans/offlinemirror/internal/database"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Offline bool              `json:"offline"`
	Checks  map[string]string `json:"checks"`
}

// BreakerStater reports the circuit breaker guarding the remote catalog.
type BreakerStater interface {
	State() gobreaker.State
}

// OfflineModeReader reports whether the user switched to offline mode.
type OfflineModeReader interface {
	OfflineMode() bool
}

type HealthController struct {
	db      *database.Database
	remote  BreakerStater
	offline OfflineModeReader
	version string
}

func NewHealthController(db *database.Database, remote BreakerStater, offline OfflineModeReader, version string) *HealthController {
	return &HealthController{
		db:      db,
		remote:  remote,
		offline: offline,
		version: version,
	}
}

// Status handles GET /health. Only the local database decides health:
// the mirror keeps serving while the remote is unreachable.
func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	if h.db != nil {
		sqlDB, err := h.db.DB.DB()
		if err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	offline := h.offline != nil && h.offline.OfflineMode()
	switch {
	case h.remote == nil:
		checks["remote"] = "not configured"
	case offline:
		checks["remote"] = "offline mode"
	default:
		switch h.remote.State() {
		case gobreaker.StateOpen:
			checks["remote"] = "unreachable"
			if status == "healthy" {
				status = "degraded"
			}
		case gobreaker.StateHalfOpen:
			checks["remote"] = "recovering"
		default:
			checks["remote"] = "ok"
		}
	}

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Offline: offline,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
