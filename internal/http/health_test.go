package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/offlinemirror/internal/database"
)

type fixedBreaker gobreaker.State

func (b fixedBreaker) State() gobreaker.State { return gobreaker.State(b) }

type fixedOffline bool

func (o fixedOffline) OfflineMode() bool { return bool(o) }

func setupHealthTestDB(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "health.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func getHealth(t *testing.T, controller *HealthController) (int, HealthResponse) {
	t.Helper()
	router := gin.New()
	router.GET("/health", controller.Status)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	var response HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return w.Code, response
}

func TestHealthController_Status(t *testing.T) {
	t.Run("returns healthy when database and remote are up", func(t *testing.T) {
		db := setupHealthTestDB(t)
		controller := NewHealthController(db, fixedBreaker(gobreaker.StateClosed), fixedOffline(false), "1.0.0")

		code, response := getHealth(t, controller)

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "1.0.0", response.Version)
		assert.Equal(t, "ok", response.Checks["database"])
		assert.Equal(t, "ok", response.Checks["remote"])
		assert.Contains(t, response.Time, "T")
	})

	t.Run("open breaker degrades but still serves", func(t *testing.T) {
		db := setupHealthTestDB(t)
		controller := NewHealthController(db, fixedBreaker(gobreaker.StateOpen), fixedOffline(false), "1.0.0")

		code, response := getHealth(t, controller)

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "degraded", response.Status)
		assert.Equal(t, "unreachable", response.Checks["remote"])
	})

	t.Run("offline mode skips the remote", func(t *testing.T) {
		db := setupHealthTestDB(t)
		controller := NewHealthController(db, fixedBreaker(gobreaker.StateOpen), fixedOffline(true), "1.0.0")

		code, response := getHealth(t, controller)

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "healthy", response.Status)
		assert.True(t, response.Offline)
		assert.Equal(t, "offline mode", response.Checks["remote"])
	})

	t.Run("nil dependencies are reported as not configured", func(t *testing.T) {
		controller := NewHealthController(nil, nil, nil, "")

		code, response := getHealth(t, controller)

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "not configured", response.Checks["database"])
		assert.Equal(t, "not configured", response.Checks["remote"])
	})

	t.Run("returns unhealthy when database connection is closed", func(t *testing.T) {
		db, err := database.NewDatabase(filepath.Join(t.TempDir(), "closed.db"))
		require.NoError(t, err)
		require.NoError(t, db.Close())

		controller := NewHealthController(db, nil, nil, "1.0.0")

		code, response := getHealth(t, controller)

		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unhealthy", response.Status)
		assert.Contains(t, response.Checks["database"], "error")
	})
}

func TestHealthResponse_OmitsEmptyVersion(t *testing.T) {
	response := HealthResponse{
		Status: "healthy",
		Time:   "2024-01-01T12:00:00Z",
		Checks: map[string]string{},
	}

	jsonBytes, err := json.Marshal(response)
	require.NoError(t, err)

	assert.NotContains(t, string(jsonBytes), "version")
}
