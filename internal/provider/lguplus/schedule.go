package lguplus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stwalsh4118/epgrab/internal/provider"
)

// FetchDay fetches and normalizes one channel's programmes for one day.
// Malformed entries are skipped one by one; a panic while normalizing the
// batch is recovered and reported as a failed day with no programmes.
func (p *Provider) FetchDay(ctx context.Context, ch provider.Channel, day time.Time) (res provider.DayResult) {
	basis := day.In(p.loc).Format(dateLayout)
	log := p.log.With().
		Str("channel", ch.Name).
		Str("service_id", ch.SvcID).
		Str("day", basis).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("normalize %s/%s: %v", ch.Name, basis, r)
			log.Error().Err(err).Msg("Schedule normalization aborted")
			res = provider.DayResult{Status: provider.StatusFailed, Programmes: []provider.Programme{}, Err: err}
		}
	}()

	params := url.Values{
		"BAS_DT":    {basis},
		"CHNL_TYPE": {channelTypeAll},
		"CHNL_ID":   {ch.SvcID},
	}
	body, err := p.fetcher.FetchJSON(ctx, p.cfg.ScheduleURL, params)
	if err != nil {
		log.Info().Err(err).Msg("No schedule fetched")
		return provider.DayResult{Status: provider.StatusFailed, Programmes: []provider.Programme{}, Err: err}
	}

	var resp scheduleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		schemaErr := &SchemaError{Field: "$", Reason: err.Error()}
		log.Error().Err(schemaErr).Msg("Schedule response is not an object")
		return provider.DayResult{Status: provider.StatusEmpty, Programmes: []provider.Programme{}, Err: schemaErr}
	}

	items, err := decodeList(fieldProgrammeList, resp.Programmes)
	if err != nil {
		log.Error().Err(err).Msg("Programme list unusable")
		return provider.DayResult{Status: provider.StatusEmpty, Programmes: []provider.Programme{}, Err: err}
	}
	if len(items) == 0 {
		log.Info().Msg("No broadcasts listed")
		return provider.DayResult{Status: provider.StatusEmpty, Programmes: []provider.Programme{}}
	}

	programmes, skipped := p.programmesOfDay(ch.ID, items, log)
	log.Debug().Int("programmes", len(programmes)).Int("skipped", skipped).Msg("Schedule normalized")

	status := provider.StatusOK
	if len(programmes) == 0 {
		status = provider.StatusEmpty
	}
	return provider.DayResult{Status: status, Programmes: programmes, Skipped: skipped}
}

func (p *Provider) programmesOfDay(channelID string, items []json.RawMessage, log zerolog.Logger) ([]provider.Programme, int) {
	programmes := make([]provider.Programme, 0, len(items))
	skipped := 0
	for i, item := range items {
		prog, ok := normalizeProgramme(item, channelID, p.loc)
		if !ok {
			skipped++
			log.Debug().Int("index", i).Msg("Skipping malformed programme entry")
			continue
		}
		programmes = append(programmes, prog)
	}
	return programmes, skipped
}

// normalizeProgramme converts one raw schedule entry. It returns false when the
// entry is not an object or its broadcast date and start time do not parse.
func normalizeProgramme(raw json.RawMessage, channelID string, loc *time.Location) (provider.Programme, bool) {
	var rp rawProgramme
	if !decodeRecord(raw, &rp) {
		return provider.Programme{}, false
	}
	if !rp.Date.Present() || !rp.StartTime.Present() {
		return provider.Programme{}, false
	}
	start, err := time.ParseInLocation(startLayout, rp.Date.String()+rp.StartTime.String(), loc)
	if err != nil {
		return provider.Programme{}, false
	}

	title := strings.TrimSpace(rp.Title.String())
	if title == "" {
		title = untitled
	}

	return provider.Programme{
		ChannelID:  channelID,
		Title:      title,
		Desc:       trimmedOrNil(rp.Desc.String()),
		Start:      start,
		Rating:     ratingFor(rp.AgeCode.String()),
		Extras:     extrasOf(rp),
		Categories: categoriesFor(strings.TrimSpace(rp.CategoryCode.String())),
	}, true
}

// extrasOf joins the resolution label and the subtitle, narration and sign
// language tags, in that order.
func extrasOf(rp rawProgramme) *string {
	var tags []string
	if rp.Resolution.Present() {
		tags = append(tags, strings.TrimSpace(rp.Resolution.String()))
	}
	if rp.Subtitle.String() == flagYes {
		tags = append(tags, tagSubtitle)
	}
	if rp.Narration.String() == flagYes {
		tags = append(tags, tagNarration)
	}
	if rp.SignLanguage.String() == flagYes {
		tags = append(tags, tagSignLanguage)
	}
	if len(tags) == 0 {
		return nil
	}
	extras := strings.Join(tags, " ")
	return &extras
}

func trimmedOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
