package epg

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stwalsh4118/epgrab/internal/db"
	"github.com/stwalsh4118/epgrab/internal/provider"
)

var kst = time.FixedZone("KST", 9*60*60)

// fakeProvider serves canned channels and one programme per (channel, day)
type fakeProvider struct {
	mu       sync.Mutex
	channels provider.ChannelsResult
	// failDays maps "svcid/YYYYMMDD" to a forced status
	failDays map[string]provider.FetchStatus
	calls    []string
	block    chan struct{}
}

func newFakeProvider(svcIDs ...string) *fakeProvider {
	channels := make([]provider.ServiceChannel, 0, len(svcIDs))
	for _, id := range svcIDs {
		channels = append(channels, provider.ServiceChannel{ServiceID: id, Name: "Channel " + id, Number: id})
	}
	return &fakeProvider{
		channels: provider.ChannelsResult{Status: provider.StatusOK, Channels: channels},
		failDays: map[string]provider.FetchStatus{},
	}
}

func (f *fakeProvider) Name() string { return "lguplus" }

func (f *fakeProvider) Location() *time.Location { return kst }

func (f *fakeProvider) ListChannels(context.Context) provider.ChannelsResult {
	return f.channels
}

func (f *fakeProvider) FetchDay(ctx context.Context, ch provider.Channel, day time.Time) provider.DayResult {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return provider.DayResult{Status: provider.StatusFailed, Programmes: []provider.Programme{}, Err: ctx.Err()}
		}
	}

	key := ch.SvcID + "/" + day.Format("20060102")
	f.mu.Lock()
	f.calls = append(f.calls, key)
	status, forced := f.failDays[key]
	f.mu.Unlock()

	if forced {
		return provider.DayResult{Status: status, Programmes: []provider.Programme{}}
	}
	return provider.DayResult{
		Status: provider.StatusOK,
		Programmes: []provider.Programme{
			{ChannelID: ch.ID, Title: "Morning " + key, Start: day.Add(6 * time.Hour)},
			{ChannelID: ch.ID, Title: "Evening " + key, Start: day.Add(18 * time.Hour)},
		},
		Skipped: 1,
	}
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func fixedNow(h *Handler) {
	h.now = func() time.Time { return time.Date(2025, 5, 26, 1, 0, 0, 0, time.UTC) }
}

// setupTestStore creates a store backed by a migrated temporary database
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"), "file://../../migrations", db.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return NewStore(db.NewRepositories(database), "lguplus", kst)
}
