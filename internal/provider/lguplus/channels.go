package lguplus

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/stwalsh4118/epgrab/internal/provider"
)

// ListChannels fetches today's channel catalog. The genre lookup is built from
// the same response the first time one carries a usable genre list.
func (p *Provider) ListChannels(ctx context.Context) provider.ChannelsResult {
	basis := p.now().In(p.loc).Format(dateLayout)
	log := p.log.With().Str("basis_date", basis).Logger()

	params := url.Values{
		"BAS_DT":    {basis},
		"CHNL_TYPE": {channelTypeAll},
	}
	body, err := p.fetcher.FetchJSON(ctx, p.cfg.ChannelsURL, params)
	if err != nil {
		log.Warn().Err(err).Msg("Channel listing fetch failed")
		return provider.ChannelsResult{Status: provider.StatusFailed, Channels: []provider.ServiceChannel{}, Err: err}
	}

	var resp channelListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		schemaErr := &SchemaError{Field: "$", Reason: err.Error()}
		log.Error().Err(schemaErr).Msg("Channel listing is not an object")
		return provider.ChannelsResult{Status: provider.StatusEmpty, Channels: []provider.ServiceChannel{}, Err: schemaErr}
	}

	if built, err := p.genres.EnsureInitialized(resp.Genres); err != nil {
		log.Warn().Err(err).Msg("Genre list unusable, channel categories fall back to code placeholders")
	} else if built {
		log.Debug().Int("genres", p.genres.Len()).Msg("Genre lookup initialized")
	}

	items, err := decodeList(fieldChannelList, resp.Channels)
	if err == nil && items == nil {
		err = &SchemaError{Field: fieldChannelList, Reason: "missing"}
	}
	if err != nil {
		log.Error().Err(err).Msg("Channel list unusable, no channels collected")
		return provider.ChannelsResult{Status: provider.StatusEmpty, Channels: []provider.ServiceChannel{}, Err: err}
	}

	channels := make([]provider.ServiceChannel, 0, len(items))
	for i, item := range items {
		var rc rawChannel
		if !decodeRecord(item, &rc) {
			log.Warn().Int("index", i).Msg("Skipping channel entry that is not an object")
			continue
		}
		if !rc.ServiceID.Present() || !rc.Name.Present() {
			log.Warn().
				Int("index", i).
				Str("service_id", rc.ServiceID.String()).
				Str("name", rc.Name.String()).
				Msg("Skipping channel without service id or name")
			continue
		}
		channels = append(channels, provider.ServiceChannel{
			ServiceID:  strings.TrimSpace(rc.ServiceID.String()),
			Name:       strings.TrimSpace(rc.Name.String()),
			Number:     strings.TrimSpace(rc.Number.String()),
			IconURL:    strings.TrimSpace(rc.IconURL.String()),
			Category:   p.genres.Category(strings.TrimSpace(rc.GenreCode.String())),
			Programmes: []provider.Programme{},
		})
	}

	log.Info().Int("channels", len(channels)).Msg("LG U+ channels collected")

	status := provider.StatusOK
	if len(channels) == 0 {
		status = provider.StatusEmpty
	}
	return provider.ChannelsResult{Status: status, Channels: channels}
}
