package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stwalsh4118/epgrab/internal/db"
	"github.com/stwalsh4118/epgrab/internal/logger"
	"github.com/stwalsh4118/epgrab/internal/models"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 100
)

// RunListResponse represents a list of ingest runs
type RunListResponse struct {
	Runs []*models.IngestRun `json:"runs"`
}

// RunHandler serves the ingest run history
type RunHandler struct {
	repos *db.Repositories
}

// NewRunHandler creates a new run handler instance
func NewRunHandler(repos *db.Repositories) *RunHandler {
	return &RunHandler{repos: repos}
}

// ListRuns handles GET /api/runs?limit=N
func (h *RunHandler) ListRuns(c *gin.Context) {
	// Validate limit
	limit := defaultRunLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRunLimit {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_limit",
				Message: "Limit must be between 1 and " + strconv.Itoa(maxRunLimit),
			})
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	runs, err := h.repos.Runs.List(ctx, limit)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Msg("Failed to list ingest runs")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to retrieve ingest runs",
		})
		return
	}

	c.JSON(http.StatusOK, RunListResponse{Runs: runs})
}

// GetLatestRun handles GET /api/runs/latest
func (h *RunHandler) GetLatestRun(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	run, err := h.repos.Runs.Latest(ctx)
	h.respondRun(c, run, err)
}

// GetRun handles GET /api/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	// Validate UUID
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid run ID format",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	run, err := h.repos.Runs.GetByID(ctx, id)
	h.respondRun(c, run, err)
}

func (h *RunHandler) respondRun(c *gin.Context, run *models.IngestRun, err error) {
	if err == nil {
		c.JSON(http.StatusOK, run)
		return
	}
	if db.IsNotFound(err) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Ingest run not found",
		})
		return
	}

	logger.Log.Error().
		Err(err).
		Msg("Failed to get ingest run")

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "query_failed",
		Message: "Failed to retrieve ingest run",
	})
}

// SetupRunRoutes registers ingest run routes
func SetupRunRoutes(apiGroup *gin.RouterGroup, repos *db.Repositories) {
	handler := NewRunHandler(repos)

	apiGroup.GET("/runs", handler.ListRuns)
	apiGroup.GET("/runs/latest", handler.GetLatestRun)
	apiGroup.GET("/runs/:id", handler.GetRun)
}
