package epg

import (
	"sort"

	"github.com/stwalsh4118/epgrab/internal/provider"
)

// InferStopTimes returns a copy of one channel's programmes sorted by start,
// with each Stop set to the next programme's Start. Programmes that start at the
// same instant as the one before them would be zero length and are dropped. The
// last programme keeps whatever Stop it had.
func InferStopTimes(programmes []provider.Programme) []provider.Programme {
	if len(programmes) == 0 {
		return []provider.Programme{}
	}

	sorted := make([]provider.Programme, len(programmes))
	copy(sorted, programmes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	out := make([]provider.Programme, 0, len(sorted))
	for _, p := range sorted {
		if n := len(out); n > 0 && out[n-1].Start.Equal(p.Start) {
			continue
		}
		out = append(out, p)
	}

	for i := 0; i < len(out)-1; i++ {
		stop := out[i+1].Start
		out[i].Stop = &stop
	}
	return out
}

// WithStopTimes returns copies of channels whose programmes have inferred stop times
func WithStopTimes(channels []provider.Channel) []provider.Channel {
	out := make([]provider.Channel, len(channels))
	for i, ch := range channels {
		ch.Programmes = InferStopTimes(ch.Programmes)
		out[i] = ch
	}
	return out
}
