package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/example/kiln/internal/adapters/sqlite"
	"github.com/example/kiln/internal/ports/secondary"
)

// setupTaskTestDB creates the test database with one order and piece.
func setupTaskTestDB(t *testing.T) *sql.DB {
	t.Helper()
	testDB := setupTestDB(t)
	seedOrder(t, testDB, "ORD-001", "", "2026-01-10")
	seedPiece(t, testDB, "PIECE-001", "ORD-001", "bowl", 10, 0, "build")
	return testDB
}

func TestTaskRepository_Create(t *testing.T) {
	db := setupTaskTestDB(t)
	repo := sqlite.NewTaskRepository(db)
	ctx := context.Background()

	task := &secondary.TaskRecord{
		ID:             "TASK-001",
		PieceID:        "PIECE-001",
		TaskType:       "build",
		Quantity:       4,
		EstimatedHours: 6,
		Date:           "2026-01-05",
		IsLate:         true,
	}
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "TASK-001")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != "pending" {
		t.Errorf("expected status 'pending', got '%s'", got.Status)
	}
	if got.OrderID != "ORD-001" {
		t.Errorf("expected joined order 'ORD-001', got '%s'", got.OrderID)
	}
	if !got.IsLate || got.Quantity != 4 || got.EstimatedHours != 6 || got.Date != "2026-01-05" {
		t.Errorf("unexpected task: %+v", got)
	}
	if got.CompletedAt != "" {
		t.Errorf("expected empty completed_at, got '%s'", got.CompletedAt)
	}
}

func TestTaskRepository_GetByID_NotFound(t *testing.T) {
	repo := sqlite.NewTaskRepository(setupTaskTestDB(t))

	_, err := repo.GetByID(context.Background(), "TASK-404")
	if !errors.Is(err, secondary.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTaskRepository_List_Ordering(t *testing.T) {
	db := setupTaskTestDB(t)
	repo := sqlite.NewTaskRepository(db)
	ctx := context.Background()

	seedTask(t, db, "TASK-001", "PIECE-001", "build", "2026-01-06", "pending", 2)
	seedTask(t, db, "TASK-002", "PIECE-001", "build", "2026-01-05", "pending", 1)
	seedTask(t, db, "TASK-003", "PIECE-001", "trim", "2026-01-05", "pending", 3)
	if _, err := db.Exec("UPDATE tasks SET is_late = 1 WHERE id = 'TASK-002'"); err != nil {
		t.Fatalf("failed to mark late: %v", err)
	}

	tasks, err := repo.List(ctx, secondary.TaskFilters{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"TASK-002", "TASK-003", "TASK-001"}
	if len(tasks) != len(want) {
		t.Fatalf("expected %d tasks, got %d", len(want), len(tasks))
	}
	for i, id := range want {
		if tasks[i].ID != id {
			t.Errorf("tasks[%d] = %s, want %s", i, tasks[i].ID, id)
		}
	}
}

func TestTaskRepository_List_Filters(t *testing.T) {
	db := setupTaskTestDB(t)
	repo := sqlite.NewTaskRepository(db)
	ctx := context.Background()

	seedPiece(t, db, "PIECE-002", "ORD-001", "plate", 2, 0, "build")
	seedTask(t, db, "TASK-001", "PIECE-001", "build", "2026-01-05", "completed", 2)
	seedTask(t, db, "TASK-002", "PIECE-001", "trim", "2026-01-06", "pending", 1)
	seedTask(t, db, "TASK-003", "PIECE-002", "build", "2026-01-07", "pending", 1)

	tests := []struct {
		name    string
		filters secondary.TaskFilters
		want    int
	}{
		{"no filters", secondary.TaskFilters{}, 3},
		{"pending", secondary.TaskFilters{Status: "pending"}, 2},
		{"by piece", secondary.TaskFilters{PieceID: "PIECE-002"}, 1},
		{"date range", secondary.TaskFilters{From: "2026-01-06", To: "2026-01-06"}, 1},
		{"open-ended from", secondary.TaskFilters{From: "2026-01-06"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := repo.List(ctx, tt.filters)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(tasks) != tt.want {
				t.Errorf("expected %d tasks, got %d", tt.want, len(tasks))
			}
		})
	}
}

func TestTaskRepository_DeletePending(t *testing.T) {
	db := setupTaskTestDB(t)
	repo := sqlite.NewTaskRepository(db)
	ctx := context.Background()

	seedTask(t, db, "TASK-001", "PIECE-001", "build", "2026-01-05", "pending", 2)
	seedTask(t, db, "TASK-002", "PIECE-001", "build", "2026-01-06", "pending", 2)
	seedTask(t, db, "TASK-003", "PIECE-001", "build", "2026-01-04", "completed", 2)

	ids, err := repo.ListPendingIDs(ctx)
	if err != nil {
		t.Fatalf("ListPendingIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 pending IDs, got %v", ids)
	}

	// A task completed between the read and the delete must survive.
	if _, err := db.Exec("UPDATE tasks SET status = 'completed' WHERE id = 'TASK-002'"); err != nil {
		t.Fatalf("failed to complete task: %v", err)
	}

	deleted, err := repo.DeletePending(ctx, append(ids, "TASK-003"))
	if err != nil {
		t.Fatalf("DeletePending failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted task, got %d", deleted)
	}

	remaining, _ := repo.List(ctx, secondary.TaskFilters{})
	if len(remaining) != 2 {
		t.Errorf("expected 2 remaining tasks, got %d", len(remaining))
	}
}

func TestTaskRepository_DeletePending_Empty(t *testing.T) {
	repo := sqlite.NewTaskRepository(setupTaskTestDB(t))

	deleted, err := repo.DeletePending(context.Background(), nil)
	if err != nil || deleted != 0 {
		t.Errorf("expected no-op, got deleted=%d err=%v", deleted, err)
	}
}

func TestTaskRepository_MarkCompleted(t *testing.T) {
	db := setupTaskTestDB(t)
	repo := sqlite.NewTaskRepository(db)
	ctx := context.Background()
	seedTask(t, db, "TASK-001", "PIECE-001", "build", "2026-01-05", "pending", 2)

	at := time.Date(2026, 1, 5, 16, 30, 0, 0, time.UTC)
	ok, err := repo.MarkCompleted(ctx, "TASK-001", at)
	if err != nil || !ok {
		t.Fatalf("MarkCompleted = %v, %v; want true, nil", ok, err)
	}

	got, _ := repo.GetByID(ctx, "TASK-001")
	if got.Status != "completed" || got.CompletedAt != "2026-01-05T16:30:00Z" {
		t.Errorf("unexpected task after completion: %+v", got)
	}

	ok, err = repo.MarkCompleted(ctx, "TASK-001", at)
	if err != nil || ok {
		t.Errorf("second MarkCompleted = %v, %v; want false, nil", ok, err)
	}
}

func TestTaskRepository_CountPendingAndNextSequence(t *testing.T) {
	db := setupTaskTestDB(t)
	repo := sqlite.NewTaskRepository(db)
	ctx := context.Background()

	seq, err := repo.NextSequence(ctx)
	if err != nil || seq != 1 {
		t.Fatalf("NextSequence = %d, %v; want 1, nil", seq, err)
	}

	seedTask(t, db, "TASK-001", "PIECE-001", "build", "2026-01-05", "pending", 2)
	seedTask(t, db, "TASK-002", "PIECE-001", "build", "2026-01-06", "pending", 2)
	seedTask(t, db, "TASK-012", "PIECE-001", "trim", "2026-01-07", "pending", 2)

	count, err := repo.CountPending(ctx, "PIECE-001", "build", "TASK-001")
	if err != nil {
		t.Fatalf("CountPending failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 pending sibling, got %d", count)
	}

	seq, _ = repo.NextSequence(ctx)
	if seq != 13 {
		t.Errorf("expected next sequence 13, got %d", seq)
	}
}
