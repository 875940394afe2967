package epg

import (
	"strings"

	"github.com/stwalsh4118/epgrab/internal/provider"
)

// DefaultIDFormat renders channel ids such as "608.lguplus"
const DefaultIDFormat = "{ServiceId}.{Source}"

// FormatID renders an XMLTV channel id. The format may use {ServiceId},
// {Source}, {No} and {Name}; an empty format means DefaultIDFormat.
func FormatID(format, source string, sc provider.ServiceChannel) string {
	if strings.TrimSpace(format) == "" {
		format = DefaultIDFormat
	}
	return strings.NewReplacer(
		"{ServiceId}", sc.ServiceID,
		"{Source}", strings.ToLower(source),
		"{No}", sc.Number,
		"{Name}", sc.Name,
	).Replace(format)
}

// SelectChannels turns service channels into host channels. With no requested
// ids every service channel is selected in listing order; otherwise the
// requested order is kept, duplicates are ignored and unknown ids are returned.
func SelectChannels(source, idFormat string, services []provider.ServiceChannel, requested []string) ([]*provider.Channel, []string) {
	toChannel := func(sc provider.ServiceChannel) *provider.Channel {
		return &provider.Channel{
			SvcID:      sc.ServiceID,
			Name:       sc.Name,
			ID:         FormatID(idFormat, source, sc),
			Number:     sc.Number,
			IconURL:    sc.IconURL,
			Category:   sc.Category,
			Programmes: []provider.Programme{},
		}
	}

	if len(requested) == 0 {
		selected := make([]*provider.Channel, 0, len(services))
		for _, sc := range services {
			selected = append(selected, toChannel(sc))
		}
		return selected, nil
	}

	byID := make(map[string]provider.ServiceChannel, len(services))
	for _, sc := range services {
		if _, dup := byID[sc.ServiceID]; !dup {
			byID[sc.ServiceID] = sc
		}
	}

	selected := make([]*provider.Channel, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	var missing []string
	for _, id := range requested {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		sc, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		selected = append(selected, toChannel(sc))
	}
	return selected, missing
}
