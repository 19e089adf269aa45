package http

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mrlokans/offlinemirror/internal/database"
	"github.com/mrlokans/offlinemirror/internal/logging"
	"github.com/mrlokans/offlinemirror/internal/metrics"
)

// RouterConfig contains all dependencies needed to create the HTTP router.
// Nil optional dependencies leave their routes unregistered.
type RouterConfig struct {
	Database *database.Database
	Version  string

	// Remote health
	Remote  BreakerStater
	Offline OfflineModeReader

	// Downloads
	Downloads DownloadQueue
	Events    EventSource

	// Sync
	Sync *SyncController

	// Offline browse
	Series     OfflineSeriesStore
	Books      OfflineBookStore
	Actions    OfflineActions
	ActiveUser ActiveUserReader

	// Log journal
	Journal JournalStore
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger())
	router.Use(gin.Recovery())
	router.Use(securityHeaders())

	health := NewHealthController(cfg.Database, cfg.Remote, cfg.Offline, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	if cfg.Downloads != nil && cfg.Events != nil {
		downloads := NewDownloadsController(cfg.Downloads, cfg.Events)
		api.GET("/downloads", downloads.List)
		api.GET("/downloads/events", downloads.Events)
		api.POST("/downloads/:bookId", downloads.Enqueue)
		api.DELETE("/downloads/:bookId", downloads.Cancel)
		api.GET("/events", downloads.AllEvents)
	}

	if cfg.Sync != nil {
		api.POST("/sync/run", cfg.Sync.Run)
		api.GET("/sync/status", cfg.Sync.Status)
	}

	if cfg.Series != nil && cfg.Books != nil && cfg.Actions != nil {
		offline := NewOfflineController(cfg.Series, cfg.Books, cfg.Actions, cfg.ActiveUser)
		api.GET("/offline/series", offline.ListSeries)
		api.GET("/offline/series/:id/books", offline.ListSeriesBooks)
		api.DELETE("/offline/series/:id", offline.DeleteSeries)
		api.DELETE("/offline/books/:id", offline.DeleteBook)
		api.PUT("/offline/books/:id/progress", offline.MarkProgress)
		api.GET("/offline/books/:id/file", offline.BookFile)
	}

	if cfg.Journal != nil {
		logs := NewLogsController(cfg.Journal)
		api.GET("/logs", logs.List)
		api.DELETE("/logs", logs.Clear)
	}

	return router
}

// requestLogger logs each request through zerolog and records it in the
// HTTP metrics. Event streams are logged when they close.
func requestLogger() gin.HandlerFunc {
	log := logging.Component("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)

		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status/100)+"xx").Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		ev := log.Debug()
		if status >= 500 {
			ev = log.Error()
		} else if status >= 400 {
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("elapsed", elapsed).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}
