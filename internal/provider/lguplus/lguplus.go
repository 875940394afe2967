// Package lguplus adapts the LG U+ IPTV channel guide API to the provider schema.
//
// Two endpoints are used: tv-channel-list returns the day's channel catalog
// together with the channel genre table, and tv-schedule-list returns one
// channel's programmes for one day. Both take BAS_DT (YYYYMMDD) and
// CHNL_TYPE=1 ("all channels"); the schedule call adds CHNL_ID.
package lguplus

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/stwalsh4118/epgrab/internal/logger"
	"github.com/stwalsh4118/epgrab/internal/provider"
	"github.com/stwalsh4118/epgrab/internal/transport"
)

// Name is the provider name used for registration and channel ids
const Name = "lguplus"

const (
	channelTypeAll = "1"
	dateLayout     = "20060102"
	startLayout    = dateLayout + "15:04:05"
)

// Config holds the two endpoint URLs. They may be the same URL.
type Config struct {
	ChannelsURL string
	ScheduleURL string
}

// Provider is the LG U+ guide adapter. It is safe for concurrent FetchDay
// calls once ListChannels has populated the genre lookup.
type Provider struct {
	fetcher transport.Fetcher
	cfg     Config
	genres  *GenreLookup
	loc     *time.Location
	now     func() time.Time
	log     zerolog.Logger
}

var _ provider.Provider = (*Provider)(nil)

// New creates a Provider that reads the upstream through fetcher
func New(fetcher transport.Fetcher, cfg Config) *Provider {
	return &Provider{
		fetcher: fetcher,
		cfg:     cfg,
		genres:  NewGenreLookup(),
		loc:     broadcastLocation(),
		now:     time.Now,
		log:     logger.With(Name),
	}
}

// Name returns the provider name
func (p *Provider) Name() string { return Name }

// Genres returns the provider's genre lookup
func (p *Provider) Genres() *GenreLookup { return p.genres }

// Location returns the zone the upstream's wall-clock times are in
func (p *Provider) Location() *time.Location { return p.loc }

// broadcastLocation is Korea Standard Time. KST has no DST, so a fixed zone is
// an exact fallback when tzdata is missing.
func broadcastLocation() *time.Location {
	if loc, err := time.LoadLocation("Asia/Seoul"); err == nil {
		return loc
	}
	return time.FixedZone("KST", 9*60*60)
}
