package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/kiln/internal/ports/secondary"
)

// deleteChunk keeps IN lists under SQLite's bound-parameter limit.
const deleteChunk = 500

// TaskRepository implements secondary.TaskRepository with SQLite.
type TaskRepository struct {
	db DBTX
}

// NewTaskRepository creates a new SQLite task repository.
func NewTaskRepository(db DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskSelectCols = "t.id, t.order_detail_id, d.order_id, t.task_type, t.quantity, t.estimated_hours, t.date, t.status, t.is_late, t.completed_at, t.created_at"

const taskFrom = " FROM tasks t JOIN order_details d ON d.id = t.order_detail_id"

// scanTask scans a task row into a TaskRecord.
func scanTask(scanner rowScanner) (*secondary.TaskRecord, error) {
	var (
		isLate      bool
		completedAt sql.NullTime
		createdAt   time.Time
	)

	record := &secondary.TaskRecord{}
	err := scanner.Scan(
		&record.ID, &record.PieceID, &record.OrderID, &record.TaskType, &record.Quantity,
		&record.EstimatedHours, &record.Date, &record.Status, &isLate, &completedAt, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	record.IsLate = isLate
	record.CreatedAt = formatTime(createdAt)
	if completedAt.Valid {
		record.CompletedAt = formatTime(completedAt.Time)
	}
	return record, nil
}

// Create persists a new task.
func (r *TaskRepository) Create(ctx context.Context, task *secondary.TaskRecord) error {
	status := task.Status
	if status == "" {
		status = "pending"
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO tasks (id, order_detail_id, task_type, quantity, estimated_hours, date, status, is_late) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		task.ID, task.PieceID, task.TaskType, task.Quantity, task.EstimatedHours, task.Date, status, task.IsLate,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetByID retrieves a task by its ID.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*secondary.TaskRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+taskSelectCols+taskFrom+" WHERE t.id = ?", id)

	record, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, notFound("task", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return record, nil
}

// List retrieves tasks ordered by date asc, is_late desc, estimated_hours desc.
func (r *TaskRepository) List(ctx context.Context, filters secondary.TaskFilters) ([]*secondary.TaskRecord, error) {
	query := "SELECT " + taskSelectCols + taskFrom + " WHERE 1=1"
	args := []any{}

	if filters.Status != "" {
		query += " AND t.status = ?"
		args = append(args, filters.Status)
	}

	if filters.PieceID != "" {
		query += " AND t.order_detail_id = ?"
		args = append(args, filters.PieceID)
	}

	if filters.From != "" {
		query += " AND t.date >= ?"
		args = append(args, filters.From)
	}

	if filters.To != "" {
		query += " AND t.date <= ?"
		args = append(args, filters.To)
	}

	query += " ORDER BY t.date ASC, t.is_late DESC, t.estimated_hours DESC, t.id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*secondary.TaskRecord
	for rows.Next() {
		record, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, record)
	}
	return tasks, rows.Err()
}

// ListPendingIDs returns the IDs of every pending task.
func (r *TaskRepository) ListPendingIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM tasks WHERE status = 'pending' ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list pending tasks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan task id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeletePending deletes the given tasks that are still pending.
func (r *TaskRepository) DeletePending(ctx context.Context, ids []string) (int, error) {
	deleted := 0
	for start := 0; start < len(ids); start += deleteChunk {
		end := min(start+deleteChunk, len(ids))
		chunk := ids[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}

		result, err := r.db.ExecContext(ctx,
			"DELETE FROM tasks WHERE status = 'pending' AND id IN ("+placeholders+")",
			args...,
		)
		if err != nil {
			return deleted, fmt.Errorf("failed to delete pending tasks: %w", err)
		}
		n, _ := result.RowsAffected()
		deleted += int(n)
	}
	return deleted, nil
}

// MarkCompleted transitions a pending task to completed.
func (r *TaskRepository) MarkCompleted(ctx context.Context, id string, completedAt time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE tasks SET status = 'completed', completed_at = ? WHERE id = ? AND status = 'pending'",
		completedAt.UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete task: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected == 1, nil
}

// CountPending counts pending tasks for a piece and task type, excluding one task.
func (r *TaskRepository) CountPending(ctx context.Context, pieceID, taskType, excludeID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tasks WHERE order_detail_id = ? AND task_type = ? AND status = 'pending' AND id <> ?",
		pieceID, taskType, excludeID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending tasks: %w", err)
	}
	return count, nil
}

// NextSequence returns the next free numeric suffix for task IDs.
func (r *TaskRepository) NextSequence(ctx context.Context) (int, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 6) AS INTEGER)), 0) FROM tasks",
	).Scan(&maxID)
	if err != nil {
		return 0, fmt.Errorf("failed to get next task ID: %w", err)
	}
	return maxID + 1, nil
}
