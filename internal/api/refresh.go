package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stwalsh4118/epgrab/internal/cache"
	"github.com/stwalsh4118/epgrab/internal/epg"
	"github.com/stwalsh4118/epgrab/internal/logger"
)

// DefaultRunLockTTL bounds how long a crashed instance can hold the run lock
const DefaultRunLockTTL = 30 * time.Minute

// RefreshResponse represents an accepted refresh request
type RefreshResponse struct {
	Status string `json:"status"`
	Source string `json:"source"`
}

// RefreshHandler starts ingest runs on demand
type RefreshHandler struct {
	baseCtx context.Context
	ingest  *epg.Handler
	redis   *cache.Redis
	guide   *cache.GuideCache
	lockTTL time.Duration
}

// NewRefreshHandler creates a refresh handler. Runs are started under baseCtx
// so they outlive the request. redis and guideCache may be nil; with redis set,
// runs also take a lock shared by every instance using that Redis.
func NewRefreshHandler(baseCtx context.Context, ingest *epg.Handler, redis *cache.Redis, guideCache *cache.GuideCache, lockTTL time.Duration) *RefreshHandler {
	if lockTTL <= 0 {
		lockTTL = DefaultRunLockTTL
	}
	return &RefreshHandler{
		baseCtx: baseCtx,
		ingest:  ingest,
		redis:   redis,
		guide:   guideCache,
		lockTTL: lockTTL,
	}
}

// Refresh handles POST /api/refresh
func (h *RefreshHandler) Refresh(c *gin.Context) {
	// Take the shared run lock when Redis is configured
	unlock := func() {}
	if h.redis != nil {
		release, err := cache.TryLock(c.Request.Context(), h.redis, cache.RunLockKey(h.ingest.Source()), h.lockTTL)
		switch {
		case errors.Is(err, cache.ErrLocked):
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "run_in_progress",
				Message: "Another instance is collecting the guide",
			})
			return
		case err != nil:
			logger.Log.Warn().Err(err).Msg("Run lock unavailable, starting without it")
		default:
			unlock = release
		}
	}

	// Start the run in the background, releasing the lock once it finishes
	err := h.ingest.Start(h.baseCtx, func(_ *epg.Result, runErr error) {
		defer unlock()
		if h.guide == nil {
			return
		}
		if err := h.guide.Invalidate(context.WithoutCancel(h.baseCtx)); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to invalidate cached guide")
		}
	})
	if err != nil {
		unlock()
		if epg.IsRunInProgress(err) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "run_in_progress",
				Message: "A guide collection run is already in progress",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Msg("Failed to start ingest run")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "start_failed",
			Message: "Failed to start guide collection",
		})
		return
	}

	logger.Log.Info().
		Str("source", h.ingest.Source()).
		Msg("Ingest run started on request")

	c.JSON(http.StatusAccepted, RefreshResponse{
		Status: "started",
		Source: h.ingest.Source(),
	})
}

// SetupRefreshRoutes registers the refresh route
func SetupRefreshRoutes(apiGroup *gin.RouterGroup, handler *RefreshHandler) {
	apiGroup.POST("/refresh", handler.Refresh)
}
