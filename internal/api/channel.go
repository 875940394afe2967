package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stwalsh4118/epgrab/internal/db"
	"github.com/stwalsh4118/epgrab/internal/epg"
	"github.com/stwalsh4118/epgrab/internal/logger"
	"github.com/stwalsh4118/epgrab/internal/models"
	"github.com/stwalsh4118/epgrab/internal/provider"
)

// ChannelResponse represents a stored channel in API responses
type ChannelResponse struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	ServiceID string    `json:"service_id"`
	Name      string    `json:"name"`
	Number    *string   `json:"number,omitempty"`
	IconURL   *string   `json:"icon_url,omitempty"`
	Category  *string   `json:"category,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChannelListResponse represents a list of channels
type ChannelListResponse struct {
	Channels []*ChannelResponse `json:"channels"`
}

// ProgrammeListResponse represents one channel's programmes. Stop times are
// inferred from the following programme.
type ProgrammeListResponse struct {
	ChannelID  string               `json:"channel_id"`
	Date       string               `json:"date,omitempty"`
	Programmes []provider.Programme `json:"programmes"`
}

// ChannelHandler serves stored channels and their programmes
type ChannelHandler struct {
	store *epg.Store
}

// NewChannelHandler creates a new channel handler instance
func NewChannelHandler(store *epg.Store) *ChannelHandler {
	return &ChannelHandler{store: store}
}

func toChannelResponse(ch *models.Channel) *ChannelResponse {
	return &ChannelResponse{
		ID:        ch.ID,
		Source:    ch.Source,
		ServiceID: ch.ServiceID,
		Name:      ch.Name,
		Number:    ch.Number,
		IconURL:   ch.IconURL,
		Category:  ch.Category,
		UpdatedAt: ch.UpdatedAt,
	}
}

// ListChannels handles GET /api/channels
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	channels, err := h.store.Repositories().Channels.List(ctx)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Msg("Failed to list channels")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to retrieve channel list",
		})
		return
	}

	// Convert to response format
	responses := make([]*ChannelResponse, len(channels))
	for i, ch := range channels {
		responses[i] = toChannelResponse(ch)
	}

	c.JSON(http.StatusOK, ChannelListResponse{
		Channels: responses,
	})
}

// GetProgrammes handles GET /api/channels/:id/programmes?date=YYYYMMDD
func (h *ChannelHandler) GetProgrammes(c *gin.Context) {
	id := c.Param("id")
	date := strings.TrimSpace(c.Query("date"))

	// Validate broadcast day
	if date != "" {
		if _, err := time.Parse(models.BroadcastDayLayout, date); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_date",
				Message: "Date must be formatted as YYYYMMDD",
			})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	ch, err := h.store.LoadChannelProgrammes(ctx, id, date)
	if err != nil {
		if db.IsNotFound(err) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Channel not found",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("channel_id", id).
			Msg("Failed to load channel programmes")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to retrieve programmes",
		})
		return
	}

	// Stop times come from the next programme on the channel
	c.JSON(http.StatusOK, ProgrammeListResponse{
		ChannelID:  ch.ID,
		Date:       date,
		Programmes: epg.InferStopTimes(ch.Programmes),
	})
}

// SetupChannelRoutes registers channel routes
func SetupChannelRoutes(apiGroup *gin.RouterGroup, store *epg.Store) {
	handler := NewChannelHandler(store)

	apiGroup.GET("/channels", handler.ListChannels)
	apiGroup.GET("/channels/:id/programmes", handler.GetProgrammes)
}
