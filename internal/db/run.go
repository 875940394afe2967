package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stwalsh4118/epgrab/internal/models"
)

// RunRepository handles database operations for ingest runs
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new ingest run repository
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new ingest run
func (r *RunRepository) Create(ctx context.Context, run *models.IngestRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to create ingest run: %w", MapGormError(err))
	}
	return nil
}

// Update stores the run's status and counters
func (r *RunRepository) Update(ctx context.Context, run *models.IngestRun) error {
	result := r.db.WithContext(ctx).
		Model(&models.IngestRun{}).
		Where("id = ?", run.ID.String()).
		Select("status", "finished_at", "channels", "programmes", "skipped", "failed_days", "error").
		Updates(run)
	if result.Error != nil {
		return fmt.Errorf("failed to update ingest run: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves an ingest run by its UUID
func (r *RunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.IngestRun, error) {
	var run models.IngestRun
	if err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&run).Error; err != nil {
		return nil, MapGormError(err)
	}
	return &run, nil
}

// Latest retrieves the most recently started ingest run
func (r *RunRepository) Latest(ctx context.Context) (*models.IngestRun, error) {
	var run models.IngestRun
	if err := r.db.WithContext(ctx).Order("started_at DESC").First(&run).Error; err != nil {
		return nil, MapGormError(err)
	}
	return &run, nil
}

// List retrieves up to limit runs, newest first
func (r *RunRepository) List(ctx context.Context, limit int) ([]*models.IngestRun, error) {
	var runs []*models.IngestRun
	if err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list ingest runs: %w", MapGormError(err))
	}
	return runs, nil
}
