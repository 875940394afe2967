package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/stwalsh4118/epgrab/internal/provider"
)

// BroadcastDayLayout is the format of Programme.BroadcastDay
const BroadcastDayLayout = "20060102"

// Programme represents one stored guide entry. BroadcastDay is the upstream
// day the entry was fetched for, which is the unit of replacement.
type Programme struct {
	ID           uuid.UUID  `json:"id" gorm:"type:text;primaryKey;column:id"`
	ChannelID    string     `json:"channel_id" gorm:"type:text;not null;index:idx_programmes_channel_day;column:channel_id"`
	BroadcastDay string     `json:"broadcast_day" gorm:"type:text;not null;index:idx_programmes_channel_day;column:broadcast_day"`
	Title        string     `json:"title" gorm:"type:text;not null;column:title"`
	Desc         *string    `json:"desc,omitempty" gorm:"type:text;column:description"`
	Start        time.Time  `json:"start" gorm:"type:datetime;not null;column:start_time"`
	Stop         *time.Time `json:"stop,omitempty" gorm:"type:datetime;column:stop_time"`
	Rating       int        `json:"rating" gorm:"type:integer;not null;default:0;column:rating"`
	Extras       *string    `json:"extras,omitempty" gorm:"type:text;column:extras"`
	Categories   []string   `json:"categories,omitempty" gorm:"type:text;serializer:json;column:categories"`
	CreatedAt    time.Time  `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
}

// NewProgramme creates a stored programme from a normalized record.
// Stop is not stored; it is inferred again when the guide is rendered.
func NewProgramme(day string, p provider.Programme) *Programme {
	return &Programme{
		ID:           uuid.New(),
		ChannelID:    p.ChannelID,
		BroadcastDay: day,
		Title:        p.Title,
		Desc:         p.Desc,
		Start:        p.Start.UTC(),
		Rating:       p.Rating,
		Extras:       p.Extras,
		Categories:   p.Categories,
		CreatedAt:    time.Now().UTC(),
	}
}

// ToProvider converts the row back to a normalized record, with Start in loc
func (p *Programme) ToProvider(loc *time.Location) provider.Programme {
	return provider.Programme{
		ChannelID:  p.ChannelID,
		Title:      p.Title,
		Desc:       p.Desc,
		Start:      p.Start.In(loc),
		Rating:     p.Rating,
		Extras:     p.Extras,
		Categories: p.Categories,
	}
}
