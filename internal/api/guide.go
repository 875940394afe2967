package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stwalsh4118/epgrab/internal/cache"
	"github.com/stwalsh4118/epgrab/internal/epg"
	"github.com/stwalsh4118/epgrab/internal/logger"
	"github.com/stwalsh4118/epgrab/internal/metrics"
)

const xmlContentType = "application/xml; charset=utf-8"

// GuideHandler serves the stored guide as an XMLTV document
type GuideHandler struct {
	store   *epg.Store
	cache   *cache.GuideCache
	metrics *metrics.Metrics
}

// NewGuideHandler creates a guide handler. guideCache and m may be nil.
func NewGuideHandler(store *epg.Store, guideCache *cache.GuideCache, m *metrics.Metrics) *GuideHandler {
	return &GuideHandler{store: store, cache: guideCache, metrics: m}
}

// GetGuide handles GET /guide.xml
func (h *GuideHandler) GetGuide(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	// Serve the cached document when present
	if h.cache != nil {
		data, ok, err := h.cache.Get(ctx)
		switch {
		case err != nil:
			h.metrics.ObserveCache("error")
			logger.Log.Warn().Err(err).Str("key", h.cache.Key()).Msg("Guide cache unavailable, rendering from database")
		case ok:
			h.metrics.ObserveCache("hit")
			c.Data(http.StatusOK, xmlContentType, data)
			return
		default:
			h.metrics.ObserveCache("miss")
		}
	}

	// Render from the database on a miss
	data, err := h.store.RenderStoredGuide(ctx)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Msg("Failed to render stored guide")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "render_failed",
			Message: "Failed to render guide",
		})
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, data); err != nil {
			logger.Log.Warn().Err(err).Str("key", h.cache.Key()).Msg("Failed to cache rendered guide")
		}
	}

	c.Data(http.StatusOK, xmlContentType, data)
}

// SetupGuideRoutes registers the guide route on router's root
func SetupGuideRoutes(router gin.IRoutes, store *epg.Store, guideCache *cache.GuideCache, m *metrics.Metrics) {
	handler := NewGuideHandler(store, guideCache, m)
	router.GET("/guide.xml", handler.GetGuide)
}
