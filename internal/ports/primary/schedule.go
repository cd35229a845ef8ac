package primary

import (
	"context"
	"time"
)

// ScheduleService defines the primary port for production schedule operations.
type ScheduleService interface {
	// Regenerate discards pending tasks and rebuilds the schedule atomically.
	Regenerate(ctx context.Context) (*RegenerateResponse, error)

	// GetSchedule lists tasks in display order (date asc, late first, longest first).
	GetSchedule(ctx context.Context, filters ScheduleFilters) ([]*Task, error)

	// ListRuns returns the most recent regeneration runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
}

// RegenerateResponse contains the result of a regeneration.
type RegenerateResponse struct {
	RunID        string
	TasksCreated int
	TasksDeleted int
	Skipped      []SkippedWork
	Message      string
}

// SkippedWork is a piece (or one of its stages) left out of the schedule.
type SkippedWork struct {
	PieceID string
	Stage   string // Empty when the whole piece was skipped
	Reason  string
}

// ScheduleFilters contains filter options for reading the schedule.
type ScheduleFilters struct {
	Status  string
	PieceID string
	From    string
	To      string
}

// Run is a recorded regeneration attempt.
type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Result       string
	TasksCreated int
	TasksDeleted int
	Skipped      int
	Message      string
	TriggeredBy  string
}
