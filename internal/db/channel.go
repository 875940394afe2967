package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/stwalsh4118/epgrab/internal/models"
)

// ChannelRepository handles database operations for channels
type ChannelRepository struct {
	db *DB
}

// NewChannelRepository creates a new channel repository
func NewChannelRepository(db *DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *ChannelRepository) WithTx(tx *DB) *ChannelRepository {
	return &ChannelRepository{db: tx}
}

// Upsert inserts channels or refreshes the stored metadata of existing ids
func (r *ChannelRepository) Upsert(ctx context.Context, channels ...*models.Channel) error {
	if len(channels) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, ch := range channels {
		if ch.ID == "" {
			return fmt.Errorf("failed to upsert channel %q: %w", ch.Name, ErrInvalidInput)
		}
		ch.UpdatedAt = now
		if ch.CreatedAt.IsZero() {
			ch.CreatedAt = now
		}
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"source", "service_id", "name", "number", "icon_url", "category", "updated_at"}),
		}).
		Create(&channels)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert channels: %w", MapGormError(result.Error))
	}
	return nil
}

// GetByID retrieves a channel by its XMLTV id
func (r *ChannelRepository) GetByID(ctx context.Context, id string) (*models.Channel, error) {
	var channel models.Channel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&channel)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &channel, nil
}

// List retrieves all channels ordered by source, then service id
func (r *ChannelRepository) List(ctx context.Context) ([]*models.Channel, error) {
	var channels []*models.Channel
	result := r.db.WithContext(ctx).Order("source ASC, service_id ASC").Find(&channels)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list channels: %w", MapGormError(result.Error))
	}
	return channels, nil
}

// Delete deletes a channel and, by cascade, its programmes
func (r *ChannelRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Channel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete channel: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
