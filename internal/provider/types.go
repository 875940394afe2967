package provider

import (
	"time"
)

// ServiceChannel is a channel as advertised by an upstream provider.
// ServiceID and Name are always non-empty.
type ServiceChannel struct {
	ServiceID  string      `json:"ServiceId"`
	Name       string      `json:"Name"`
	Number     string      `json:"No"`
	IconURL    string      `json:"Icon_url"`
	Category   string      `json:"Category"`
	Programmes []Programme `json:"-"`
}

// Programme is one normalized guide entry.
// Stop is never set by a provider; the output stage may infer it.
type Programme struct {
	ChannelID  string     `json:"channel_id"`
	Title      string     `json:"title"`
	Desc       *string    `json:"desc,omitempty"`
	Start      time.Time  `json:"start"`
	Stop       *time.Time `json:"stop,omitempty"`
	Rating     int        `json:"rating"`
	Extras     *string    `json:"extras,omitempty"`
	Categories []string   `json:"categories,omitempty"`
}

// Channel is a host-owned channel selected for guide collection.
type Channel struct {
	// SvcID is the upstream service identifier.
	SvcID string
	// Name is the display name.
	Name string
	// ID is the channel id used by the XMLTV output.
	ID         string
	Number     string
	IconURL    string
	Category   string
	Programmes []Programme
}

// AppendProgrammes adds programmes to the channel. It never replaces what is
// already there, so appending the same day twice yields duplicates.
func (c *Channel) AppendProgrammes(ps ...Programme) {
	c.Programmes = append(c.Programmes, ps...)
}

// FetchStatus tags the outcome of a provider call.
type FetchStatus int

const (
	// StatusOK means data was fetched and at least one item was produced
	StatusOK FetchStatus = iota
	// StatusEmpty means the call succeeded but there was nothing to produce
	StatusEmpty
	// StatusFailed means the upstream could not be read
	StatusFailed
)

// String returns the string representation of FetchStatus
func (s FetchStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ChannelsResult is the outcome of listing service channels.
type ChannelsResult struct {
	Status   FetchStatus
	Channels []ServiceChannel
	Err      error
}

// DayResult is the outcome of fetching one channel for one day.
type DayResult struct {
	Status     FetchStatus
	Programmes []Programme
	// Skipped counts raw entries dropped as malformed.
	Skipped int
	Err     error
}
