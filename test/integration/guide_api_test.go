//go:build integration
// +build integration

package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/epgrab/internal/api"
	"github.com/stwalsh4118/epgrab/internal/epg"
	"github.com/stwalsh4118/epgrab/internal/models"
)

func refreshAndWait(t *testing.T, router http.Handler, ingest *epg.Handler) {
	t.Helper()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Eventually(t, func() bool { return !ingest.Running() }, 10*time.Second, 20*time.Millisecond)
}

func getJSON(t *testing.T, router http.Handler, path string, out interface{}) int {
	t.Helper()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil && w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w.Code
}

func TestGuideAPI(t *testing.T) {
	upstream := newFakeUpstream(t)
	srv, ingest := setupServer(t, upstream)
	router := srv.Router()

	refreshAndWait(t, router, ingest)

	t.Run("Channels_Stored", func(t *testing.T) {
		var resp api.ChannelListResponse
		require.Equal(t, http.StatusOK, getJSON(t, router, "/api/channels", &resp))
		require.Len(t, resp.Channels, 2)
		assert.Equal(t, "608.lguplus", resp.Channels[0].ID)
		require.NotNil(t, resp.Channels[0].Category)
		assert.Equal(t, "지상파", *resp.Channels[0].Category)
		assert.Nil(t, resp.Channels[1].Category)
	})

	t.Run("Programmes_NormalizedAndInferred", func(t *testing.T) {
		var resp api.ProgrammeListResponse
		require.Equal(t, http.StatusOK, getJSON(t, router, "/api/channels/608.lguplus/programmes", &resp))
		require.Len(t, resp.Programmes, 4)

		first := resp.Programmes[0]
		assert.Equal(t, "뉴스광장", first.Title)
		assert.Equal(t, []string{"뉴스/정보"}, first.Categories)
		require.NotNil(t, first.Stop)
		assert.True(t, first.Stop.Equal(resp.Programmes[1].Start))

		assert.Equal(t, 19, resp.Programmes[1].Rating)
		assert.Nil(t, resp.Programmes[3].Stop)
	})

	t.Run("Guide_XMLTV", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guide.xml", nil))
		require.Equal(t, http.StatusOK, w.Code)

		body := w.Body.String()
		assert.Equal(t, 8, strings.Count(body, "<programme "))
		assert.Equal(t, 6, strings.Count(body, `stop="`))
		assert.Contains(t, body, "19세 이상 관람가")
	})

	t.Run("Run_Recorded", func(t *testing.T) {
		var run models.IngestRun
		require.Equal(t, http.StatusOK, getJSON(t, router, "/api/runs/latest", &run))
		assert.Equal(t, models.RunStatusCompleted, run.Status)
		assert.Equal(t, 2, run.Channels)
		assert.Equal(t, 8, run.Programmes)
		assert.Zero(t, run.FailedDays)
	})
}

func TestGuideAPI_FailedDaysKeepStoredProgrammes(t *testing.T) {
	upstream := newFakeUpstream(t)
	srv, ingest := setupServer(t, upstream)
	router := srv.Router()

	refreshAndWait(t, router, ingest)

	upstream.setFailing("700", true)
	upstream.setTitle("608", "아침마당")
	refreshAndWait(t, router, ingest)

	var run models.IngestRun
	require.Equal(t, http.StatusOK, getJSON(t, router, "/api/runs/latest", &run))
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.FailedDays)

	var kbs api.ProgrammeListResponse
	require.Equal(t, http.StatusOK, getJSON(t, router, "/api/channels/608.lguplus/programmes", &kbs))
	require.Len(t, kbs.Programmes, 4, "refetched days are replaced, not appended")
	assert.Equal(t, "아침마당", kbs.Programmes[0].Title)

	var jtbc api.ProgrammeListResponse
	require.Equal(t, http.StatusOK, getJSON(t, router, "/api/channels/700.lguplus/programmes", &jtbc))
	require.Len(t, jtbc.Programmes, 4, "failed days keep the previous run's programmes")
	assert.Equal(t, "뉴스룸", jtbc.Programmes[0].Title)

	var runs api.RunListResponse
	require.Equal(t, http.StatusOK, getJSON(t, router, "/api/runs", &runs))
	assert.Len(t, runs.Runs, 2)
}
