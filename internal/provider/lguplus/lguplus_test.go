package lguplus

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stwalsh4118/epgrab/internal/provider"
	"github.com/stwalsh4118/epgrab/internal/transport"
)

const (
	testChannelsURL = "https://api.example.test/tv-channel-list"
	testScheduleURL = "https://api.example.test/tv-schedule-list"
)

// stubFetcher answers FetchJSON from a fixed body or error and records calls
type stubFetcher struct {
	mu    sync.Mutex
	body  string
	err   error
	calls []stubCall
}

type stubCall struct {
	url    string
	params url.Values
}

func (s *stubFetcher) FetchJSON(_ context.Context, rawURL string, params url.Values) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, stubCall{url: rawURL, params: params})
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.body), nil
}

// panicFetcher panics on every call
type panicFetcher struct{}

func (panicFetcher) FetchJSON(context.Context, string, url.Values) ([]byte, error) {
	panic("upstream exploded")
}

func newTestProvider(f transport.Fetcher) *Provider {
	p := New(f, Config{ChannelsURL: testChannelsURL, ScheduleURL: testScheduleURL})
	p.now = func() time.Time { return time.Date(2025, 5, 25, 16, 30, 0, 0, time.UTC) }
	return p
}

func testChannel() provider.Channel {
	return provider.Channel{SvcID: "608", Name: "KBS1", ID: "608.lguplus"}
}

func testDay(p *Provider) time.Time {
	return time.Date(2025, 5, 26, 0, 0, 0, 0, p.Location())
}

func TestProvider_Name(t *testing.T) {
	p := newTestProvider(&stubFetcher{})
	assert.Equal(t, "lguplus", p.Name())
	assert.Equal(t, 9*60*60, offsetOf(p.Location()))
}

func offsetOf(loc *time.Location) int {
	_, off := time.Date(2025, 1, 1, 0, 0, 0, 0, loc).Zone()
	return off
}
