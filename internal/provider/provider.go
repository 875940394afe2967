// Package provider defines the provider-agnostic guide schema and the contract
// every upstream EPG adapter implements.
package provider

import (
	"context"
	"time"
)

// Provider is one upstream EPG source.
//
// Neither method returns a Go error: every failure is absorbed and reported
// through the result's Status so that one bad channel or day never aborts the
// caller's loop.
type Provider interface {
	Name() string
	ListChannels(ctx context.Context) ChannelsResult
	FetchDay(ctx context.Context, ch Channel, day time.Time) DayResult
}

// Located is implemented by providers whose broadcast calendar has a fixed zone
type Located interface {
	Location() *time.Location
}

// Location returns p's broadcast zone, or time.Local when p does not declare one
func Location(p Provider) *time.Location {
	if located, ok := p.(Located); ok {
		if loc := located.Location(); loc != nil {
			return loc
		}
	}
	return time.Local
}
