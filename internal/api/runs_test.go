package api

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/epgrab/internal/models"
)

func TestRunRoutes(t *testing.T) {
	env := setupTestEnv(t, "608")
	router := newTestRouter()
	SetupRunRoutes(router.Group("/api"), env.store.Repositories())

	t.Run("No runs yet", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/runs/latest")
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = doRequest(router, http.MethodGet, "/api/runs")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, decode[RunListResponse](t, w).Runs)
	})

	env.runOnce(t)
	env.runOnce(t)

	var runs []*models.IngestRun
	t.Run("List newest first", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/runs?limit=5")
		require.Equal(t, http.StatusOK, w.Code)
		runs = decode[RunListResponse](t, w).Runs
		require.Len(t, runs, 2)
		assert.False(t, runs[0].StartedAt.Before(runs[1].StartedAt))
	})

	t.Run("Invalid limit", func(t *testing.T) {
		for _, limit := range []string{"0", "abc", "1000"} {
			w := doRequest(router, http.MethodGet, "/api/runs?limit="+limit)
			assert.Equal(t, http.StatusBadRequest, w.Code, limit)
		}
	})

	t.Run("Get by id", func(t *testing.T) {
		require.NotEmpty(t, runs)
		w := doRequest(router, http.MethodGet, "/api/runs/"+runs[1].ID.String())
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, runs[1].ID, decode[models.IngestRun](t, w).ID)
	})

	t.Run("Unknown and malformed ids", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/runs/"+uuid.New().String())
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = doRequest(router, http.MethodGet, "/api/runs/not-a-uuid")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_id", decode[ErrorResponse](t, w).Error)
	})
}
