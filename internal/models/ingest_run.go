package models

import (
	"time"

	"github.com/google/uuid"
)

// Ingest run status constants
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// IngestRun records one guide collection run
type IngestRun struct {
	ID         uuid.UUID  `json:"id" gorm:"type:text;primaryKey;column:id"`
	Source     string     `json:"source" gorm:"type:text;not null;column:source"`
	Status     string     `json:"status" gorm:"type:text;not null;column:status"`
	StartedAt  time.Time  `json:"started_at" gorm:"type:datetime;not null;column:started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" gorm:"type:datetime;column:finished_at"`
	Channels   int        `json:"channels" gorm:"type:integer;not null;default:0;column:channels"`
	Programmes int        `json:"programmes" gorm:"type:integer;not null;default:0;column:programmes"`
	Skipped    int        `json:"skipped" gorm:"type:integer;not null;default:0;column:skipped"`
	FailedDays int        `json:"failed_days" gorm:"type:integer;not null;default:0;column:failed_days"`
	Error      *string    `json:"error,omitempty" gorm:"type:text;column:error"`
}

// NewIngestRun creates a running ingest run with a generated UUID
func NewIngestRun(source string) *IngestRun {
	return &IngestRun{
		ID:        uuid.New(),
		Source:    source,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

// Finish marks the run completed, or failed when err is non-nil
func (r *IngestRun) Finish(err error) {
	now := time.Now().UTC()
	r.FinishedAt = &now
	if err != nil {
		msg := err.Error()
		r.Error = &msg
		r.Status = RunStatusFailed
		return
	}
	r.Status = RunStatusCompleted
}

// Duration returns how long the run took, or zero while it is running
func (r *IngestRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
