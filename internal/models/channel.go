package models

import (
	"time"

	"github.com/stwalsh4118/epgrab/internal/provider"
)

// Channel represents a guide channel as stored. ID is the XMLTV channel id.
type Channel struct {
	ID        string    `json:"id" gorm:"type:text;primaryKey;column:id"`
	Source    string    `json:"source" gorm:"type:text;not null;column:source"`
	ServiceID string    `json:"service_id" gorm:"type:text;not null;column:service_id"`
	Name      string    `json:"name" gorm:"type:text;not null;column:name"`
	Number    *string   `json:"number,omitempty" gorm:"type:text;column:number"`
	IconURL   *string   `json:"icon_url,omitempty" gorm:"type:text;column:icon_url"`
	Category  *string   `json:"category,omitempty" gorm:"type:text;column:category"`
	CreatedAt time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// NewChannel creates a stored channel from a host channel
func NewChannel(source string, ch provider.Channel) *Channel {
	now := time.Now().UTC()
	return &Channel{
		ID:        ch.ID,
		Source:    source,
		ServiceID: ch.SvcID,
		Name:      ch.Name,
		Number:    nonEmpty(ch.Number),
		IconURL:   nonEmpty(ch.IconURL),
		Category:  nonEmpty(ch.Category),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ToProvider converts the row back to a host channel with no programmes
func (c *Channel) ToProvider() provider.Channel {
	return provider.Channel{
		SvcID:      c.ServiceID,
		Name:       c.Name,
		ID:         c.ID,
		Number:     deref(c.Number),
		IconURL:    deref(c.IconURL),
		Category:   deref(c.Category),
		Programmes: []provider.Programme{},
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
