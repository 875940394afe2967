package db

import (
	"context"
	"fmt"

	"github.com/stwalsh4118/epgrab/internal/models"
)

const createBatchSize = 200

// ProgrammeRepository handles database operations for programmes
type ProgrammeRepository struct {
	db *DB
}

// NewProgrammeRepository creates a new programme repository
func NewProgrammeRepository(db *DB) *ProgrammeRepository {
	return &ProgrammeRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *ProgrammeRepository) WithTx(tx *DB) *ProgrammeRepository {
	return &ProgrammeRepository{db: tx}
}

// ReplaceDays replaces a channel's stored programmes for each broadcast day in
// byDay, in one transaction. Days not in byDay are left alone.
func (r *ProgrammeRepository) ReplaceDays(ctx context.Context, channelID string, byDay map[string][]*models.Programme) error {
	if len(byDay) == 0 {
		return nil
	}
	return r.db.WithTransaction(ctx, func(tx *DB) error {
		for day, programmes := range byDay {
			if err := replaceDay(tx, channelID, day, programmes); err != nil {
				return err
			}
		}
		return nil
	})
}

func replaceDay(tx *DB, channelID, day string, programmes []*models.Programme) error {
	result := tx.Where("channel_id = ? AND broadcast_day = ?", channelID, day).Delete(&models.Programme{})
	if result.Error != nil {
		return fmt.Errorf("failed to clear programmes of %s/%s: %w", channelID, day, MapGormError(result.Error))
	}
	if len(programmes) == 0 {
		return nil
	}
	for _, p := range programmes {
		if p.ChannelID != channelID || p.BroadcastDay != day {
			return fmt.Errorf("programme %q belongs to %s/%s, not %s/%s: %w",
				p.Title, p.ChannelID, p.BroadcastDay, channelID, day, ErrInvalidInput)
		}
	}
	if err := tx.CreateInBatches(programmes, createBatchSize).Error; err != nil {
		return fmt.Errorf("failed to insert programmes of %s/%s: %w", channelID, day, MapGormError(err))
	}
	return nil
}

// ListByChannel retrieves a channel's programmes ordered by start time.
// An empty day lists every stored day.
func (r *ProgrammeRepository) ListByChannel(ctx context.Context, channelID, day string) ([]*models.Programme, error) {
	query := r.db.WithContext(ctx).Where("channel_id = ?", channelID)
	if day != "" {
		query = query.Where("broadcast_day = ?", day)
	}

	var programmes []*models.Programme
	if err := query.Order("start_time ASC").Find(&programmes).Error; err != nil {
		return nil, fmt.Errorf("failed to list programmes: %w", MapGormError(err))
	}
	return programmes, nil
}

// ListAll retrieves every stored programme ordered by channel, then start time
func (r *ProgrammeRepository) ListAll(ctx context.Context) ([]*models.Programme, error) {
	var programmes []*models.Programme
	if err := r.db.WithContext(ctx).Order("channel_id ASC, start_time ASC").Find(&programmes).Error; err != nil {
		return nil, fmt.Errorf("failed to list programmes: %w", MapGormError(err))
	}
	return programmes, nil
}

// Count returns the number of stored programmes
func (r *ProgrammeRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Programme{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count programmes: %w", MapGormError(err))
	}
	return n, nil
}

// DeleteBefore removes programmes of broadcast days earlier than day (YYYYMMDD)
func (r *ProgrammeRepository) DeleteBefore(ctx context.Context, day string) (int64, error) {
	result := r.db.WithContext(ctx).Where("broadcast_day < ?", day).Delete(&models.Programme{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune programmes: %w", MapGormError(result.Error))
	}
	return result.RowsAffected, nil
}
