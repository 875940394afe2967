package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/epgrab/internal/cache"
	"github.com/stwalsh4118/epgrab/internal/db"
	"github.com/stwalsh4118/epgrab/internal/epg"
	"github.com/stwalsh4118/epgrab/internal/provider"
)

var kst = time.FixedZone("KST", 9*60*60)

// stubProvider lists the given service ids and returns two programmes per day
type stubProvider struct {
	svcIDs  []string
	release chan struct{}
}

func (p *stubProvider) Name() string { return "lguplus" }

func (p *stubProvider) Location() *time.Location { return kst }

func (p *stubProvider) ListChannels(context.Context) provider.ChannelsResult {
	channels := make([]provider.ServiceChannel, 0, len(p.svcIDs))
	for _, id := range p.svcIDs {
		channels = append(channels, provider.ServiceChannel{ServiceID: id, Name: "Channel " + id, Number: id})
	}
	if len(channels) == 0 {
		return provider.ChannelsResult{Status: provider.StatusEmpty}
	}
	return provider.ChannelsResult{Status: provider.StatusOK, Channels: channels}
}

func (p *stubProvider) FetchDay(ctx context.Context, ch provider.Channel, day time.Time) provider.DayResult {
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return provider.DayResult{Status: provider.StatusFailed, Err: ctx.Err()}
		}
	}
	return provider.DayResult{
		Status: provider.StatusOK,
		Programmes: []provider.Programme{
			{ChannelID: ch.ID, Title: "Morning", Start: day.Add(6 * time.Hour), Rating: 12},
			{ChannelID: ch.ID, Title: "Evening", Start: day.Add(18 * time.Hour)},
		},
	}
}

type testEnv struct {
	db     *db.DB
	store  *epg.Store
	ingest *epg.Handler
	prov   *stubProvider
}

func setupTestEnv(t *testing.T, svcIDs ...string) *testEnv {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "epgrab.db"), "file://../../migrations", db.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	prov := &stubProvider{svcIDs: svcIDs}
	store := epg.NewStore(db.NewRepositories(database), prov.Name(), kst)
	return &testEnv{
		db:     database,
		store:  store,
		ingest: epg.NewHandler(prov, epg.Options{FetchLimit: 2}, store, nil),
		prov:   prov,
	}
}

func (e *testEnv) runOnce(t *testing.T) {
	t.Helper()
	_, err := e.ingest.Run(context.Background())
	require.NoError(t, err)
}

// setupTestRedis starts an in-memory Redis server and connects to it
func setupTestRedis(t *testing.T) (*cache.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r, err := cache.New("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func doRequest(router http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func today() string {
	return time.Now().In(kst).Format("20060102")
}
