//go:build integration
// +build integration

package integration

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/epgrab/internal/config"
	"github.com/stwalsh4118/epgrab/internal/db"
	"github.com/stwalsh4118/epgrab/internal/epg"
	"github.com/stwalsh4118/epgrab/internal/metrics"
	"github.com/stwalsh4118/epgrab/internal/provider"
	"github.com/stwalsh4118/epgrab/internal/provider/lguplus"
	"github.com/stwalsh4118/epgrab/internal/server"
	"github.com/stwalsh4118/epgrab/internal/transport"
)

// migrationsPath resolves the migrations directory relative to this file so
// tests work regardless of working directory
func migrationsPath(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "Failed to get current file path")

	rootDir := filepath.Dir(filepath.Dir(filepath.Dir(filename)))
	return "file://" + filepath.Join(rootDir, "migrations")
}

// setupTestDB creates a file-backed test database with migrations applied
func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "epgrab.db"), migrationsPath(t), db.Options{EnableWAL: true})
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// fakeUpstream serves the LG U+ guide API. Schedules whose channel is listed
// in failing answer 503.
type fakeUpstream struct {
	mu      sync.Mutex
	failing map[string]bool
	titles  map[string]string
	*httptest.Server
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	u := &fakeUpstream{failing: map[string]bool{}, titles: map[string]string{"608": "뉴스광장", "700": "뉴스룸"}}

	mux := http.NewServeMux()
	mux.HandleFunc("/tv-channel-list", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
		  "brdGnreDtoList": [{"urcBrdCntrTvChnlGnreCd": "01", "urcBrdCntrTvChnlGnreNm": "지상파"}],
		  "brdCntrTvChnlIDtoList": [
		    {"urcBrdCntrTvChnlId": "608", "urcBrdCntrTvChnlNm": "KBS1", "urcBrdCntrTvChnlNo": "9", "urcBrdCntrTvChnlGnreCd": "01"},
		    {"urcBrdCntrTvChnlId": "700", "urcBrdCntrTvChnlNm": "JTBC", "urcBrdCntrTvChnlNo": "15"}
		  ]
		}`))
	})
	mux.HandleFunc("/tv-schedule-list", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		id := q.Get("CHNL_ID")

		u.mu.Lock()
		failing, title := u.failing[id], u.titles[id]
		u.mu.Unlock()

		if failing {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"brdCntTvSchIDtoList": [
		  {"brdPgmTitNm": %q, "brdCntrTvChnlBrdDt": %q, "epgStrtTme": "06:00:00", "brdWtchAgeGrdCd": "0", "urcBrdCntrTvSchdGnreCd": "12"},
		  {"brdPgmTitNm": "영화", "brdCntrTvChnlBrdDt": %q, "epgStrtTme": "22:00:00", "brdWtchAgeGrdCd": "4", "urcBrdCntrTvSchdGnreCd": "05"}
		]}`, title, q.Get("BAS_DT"), q.Get("BAS_DT"))
	})

	u.Server = httptest.NewServer(mux)
	t.Cleanup(u.Close)
	return u
}

func (u *fakeUpstream) setFailing(id string, failing bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.failing[id] = failing
}

func (u *fakeUpstream) setTitle(id, title string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.titles[id] = title
}

// setupServer wires a server against the fake upstream the way epgrab serve does
func setupServer(t *testing.T, upstream *fakeUpstream) (*server.Server, *epg.Handler) {
	t.Helper()

	database := setupTestDB(t)
	fetcher := transport.New(transport.Options{
		Timeout: 2 * time.Second,
		Headers: transport.DefaultHeaders("epgrab-integration", "", "ko-KR", ""),
	})
	prov := lguplus.New(fetcher, lguplus.Config{
		ChannelsURL: upstream.URL + "/tv-channel-list",
		ScheduleURL: upstream.URL + "/tv-schedule-list",
	})

	store := epg.NewStore(db.NewRepositories(database), prov.Name(), provider.Location(prov))
	ingest := epg.NewHandler(prov, epg.Options{FetchLimit: 2, Parallel: 2}, store, nil)

	cfg := &config.Config{
		Server:  config.ServerConfig{Host: "127.0.0.1", ReadTimeout: time.Second, WriteTimeout: time.Second},
		Logging: config.LoggingConfig{Level: "info"},
	}
	return server.New(cfg, database, ingest, nil, nil, metrics.New()), ingest
}
