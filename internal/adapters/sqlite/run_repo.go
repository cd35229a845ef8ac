package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/kiln/internal/ports/secondary"
)

// RunRepository implements secondary.RunRepository with SQLite.
type RunRepository struct {
	db DBTX
}

// NewRunRepository creates a new SQLite regeneration run repository.
func NewRunRepository(db DBTX) *RunRepository {
	return &RunRepository{db: db}
}

// Create persists a finished regeneration run.
func (r *RunRepository) Create(ctx context.Context, run *secondary.RunRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO regeneration_runs
			(id, started_at, finished_at, result, tasks_created, tasks_deleted, skipped, message, triggered_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Result,
		run.TasksCreated, run.TasksDeleted, run.Skipped, run.Message, nullString(run.TriggeredBy),
	)
	if err != nil {
		return fmt.Errorf("failed to record regeneration run: %w", err)
	}
	return nil
}

// ListRecent returns the most recent runs, newest first.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]*secondary.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, result, tasks_created, tasks_deleted, skipped, message, triggered_by
		FROM regeneration_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list regeneration runs: %w", err)
	}
	defer rows.Close()

	var runs []*secondary.RunRecord
	for rows.Next() {
		var triggeredBy sql.NullString
		run := &secondary.RunRecord{}
		err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Result,
			&run.TasksCreated, &run.TasksDeleted, &run.Skipped, &run.Message, &triggeredBy)
		if err != nil {
			return nil, fmt.Errorf("failed to scan regeneration run: %w", err)
		}
		run.TriggeredBy = triggeredBy.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
