package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stwalsh4118/epgrab/internal/cache"
	"github.com/stwalsh4118/epgrab/internal/db"
	"github.com/stwalsh4118/epgrab/internal/epg"
	"github.com/stwalsh4118/epgrab/internal/models"
	"github.com/stwalsh4118/epgrab/internal/transport"
)

// HealthResponse represents the response from the health check endpoint
type HealthResponse struct {
	Status     string                 `json:"status"`
	Database   string                 `json:"database"`
	Cache      string                 `json:"cache"`
	Source     string                 `json:"source"`
	Running    bool                   `json:"running"`
	RunLocked  bool                   `json:"run_locked"`
	Upstream   *UpstreamHealth        `json:"upstream,omitempty"`
	Programmes int64                  `json:"programmes"`
	LastRun    *models.IngestRun      `json:"last_run,omitempty"`
	Time       string                 `json:"time"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// UpstreamHealth reports the circuit breaker guarding the upstream API
type UpstreamHealth struct {
	Circuit  string `json:"circuit"`
	Failures int    `json:"failures"`
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db      *db.DB
	redis   *cache.Redis
	ingest  *epg.Handler
	breaker *transport.CircuitBreaker
}

// NewHealthHandler creates a new health check handler. database, redis and
// breaker may be nil.
func NewHealthHandler(database *db.DB, redis *cache.Redis, ingest *epg.Handler, breaker *transport.CircuitBreaker) *HealthHandler {
	return &HealthHandler{db: database, redis: redis, ingest: ingest, breaker: breaker}
}

// Check handles the health check endpoint
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:   "ok",
		Database: "disabled",
		Cache:    "disabled",
		Source:   h.ingest.Source(),
		Running:  h.ingest.Running(),
		Time:     time.Now().UTC().Format(time.RFC3339),
		Details:  make(map[string]interface{}),
	}

	// An open circuit means upstream fetches are being refused
	if h.breaker != nil {
		state := h.breaker.State()
		response.Upstream = &UpstreamHealth{Circuit: state.String(), Failures: h.breaker.Failures()}
		if state == transport.StateOpen {
			response.Status = "degraded"
		}
	}

	if h.redis != nil {
		// The cache is optional, so a failing Redis degrades nothing
		if err := h.redis.Ping(ctx); err != nil {
			response.Cache = "unhealthy"
			response.Details["cache_error"] = err.Error()
		} else {
			response.Cache = "healthy"
			// Another instance may hold the run lock
			response.RunLocked = cache.IsLocked(ctx, h.redis, cache.RunLockKey(h.ingest.Source()))
		}
	}

	if h.db == nil {
		c.JSON(http.StatusOK, response)
		return
	}

	// Check database connection
	if err := h.db.Health(ctx); err != nil {
		response.Status = "degraded"
		response.Database = "unhealthy"
		response.Details["database_error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	response.Database = "healthy"

	if store := h.ingest.Store(); store != nil {
		repos := store.Repositories()
		if n, err := repos.Programmes.Count(ctx); err == nil {
			response.Programmes = n
		} else {
			response.Details["programmes_error"] = err.Error()
		}

		if run, err := repos.Runs.Latest(ctx); err == nil {
			response.LastRun = run
		} else if !db.IsNotFound(err) {
			response.Details["last_run_error"] = err.Error()
		}
	}

	c.JSON(http.StatusOK, response)
}

// SetupHealthRoutes registers health check routes
func SetupHealthRoutes(apiGroup *gin.RouterGroup, database *db.DB, redis *cache.Redis, ingest *epg.Handler, breaker *transport.CircuitBreaker) {
	handler := NewHealthHandler(database, redis, ingest, breaker)
	apiGroup.GET("/health", handler.Check)
}
