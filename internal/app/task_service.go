package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreorder "github.com/example/kiln/internal/core/order"
	"github.com/example/kiln/internal/core/stage"
	"github.com/example/kiln/internal/core/task"
	"github.com/example/kiln/internal/metrics"
	"github.com/example/kiln/internal/ports/primary"
	"github.com/example/kiln/internal/ports/secondary"
)

// TaskServiceImpl implements the TaskService interface.
type TaskServiceImpl struct {
	store   secondary.Store
	catalog *stage.Catalog
	metrics *metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewTaskService creates a new TaskService with injected dependencies.
func NewTaskService(store secondary.Store, catalog *stage.Catalog, recorder *metrics.Recorder, logger *slog.Logger) *TaskServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskServiceImpl{
		store:   store,
		catalog: catalog,
		metrics: recorder,
		logger:  logger,
		now:     time.Now,
	}
}

// GetTask retrieves a task by ID.
func (s *TaskServiceImpl) GetTask(ctx context.Context, taskID string) (*primary.Task, error) {
	record, err := s.store.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return recordToTask(record), nil
}

// CompleteTask marks a pending task completed and reconciles its piece in
// the same transaction. A missing or non-pending task fails with
// *task.InvalidTaskStateError and changes nothing.
func (s *TaskServiceImpl) CompleteTask(ctx context.Context, taskID string) (*primary.CompleteTaskResponse, error) {
	var resp *primary.CompleteTaskResponse
	err := s.store.RunInTx(ctx, func(repos secondary.Repositories) error {
		var err error
		resp, err = s.completeInTx(ctx, repos, taskID)
		return err
	})

	var invalid *task.InvalidTaskStateError
	if errors.As(err, &invalid) {
		return nil, invalid
	}
	if err != nil {
		return nil, &primary.PersistenceError{Op: "complete task", Err: err}
	}

	s.metrics.ObserveTaskCompleted(resp.StageAdvanced)
	s.logger.Info("task completed",
		"task_id", resp.Task.ID,
		"piece_id", resp.Piece.ID,
		"stage", resp.Piece.Stage,
		"completed_quantity", resp.Piece.CompletedQuantity,
		"advanced", resp.StageAdvanced,
	)
	return resp, nil
}

func (s *TaskServiceImpl) completeInTx(ctx context.Context, repos secondary.Repositories, taskID string) (*primary.CompleteTaskResponse, error) {
	record, err := repos.Tasks().GetByID(ctx, taskID)
	exists := err == nil
	if err != nil && !errors.Is(err, secondary.ErrNotFound) {
		return nil, err
	}

	guardCtx := task.CompleteTaskContext{TaskID: taskID, Exists: exists}
	if exists {
		guardCtx.Status = record.Status
	}
	if result := task.CanCompleteTask(guardCtx); !result.Allowed {
		return nil, &task.InvalidTaskStateError{TaskID: taskID, Reason: result.Reason}
	}

	ok, err := repos.Tasks().MarkCompleted(ctx, taskID, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &task.InvalidTaskStateError{TaskID: taskID, Reason: fmt.Sprintf("task %s is no longer pending", taskID)}
	}

	piece, err := repos.Pieces().GetByID(ctx, record.PieceID)
	if err != nil {
		return nil, err
	}

	advanced := false
	table, err := s.catalog.Table(piece.PieceType)
	if err != nil {
		// The completion is still history; progress cannot be derived without a table.
		s.logger.Warn("completed task for uncataloged piece type",
			"task_id", taskID, "piece_id", piece.ID, "piece_type", piece.PieceType)
	} else {
		siblings, err := repos.Tasks().CountPending(ctx, piece.ID, record.TaskType, taskID)
		if err != nil {
			return nil, err
		}

		progress := task.ApplyCompletion(task.ProgressInput{
			Table:             table,
			PieceStage:        piece.Stage,
			Quantity:          piece.Quantity,
			CompletedQuantity: piece.CompletedQuantity,
			TaskStage:         record.TaskType,
			TaskQuantity:      record.Quantity,
			PendingSiblings:   siblings,
		})
		if progress.Changed {
			if err := repos.Pieces().UpdateProgress(ctx, piece.ID, progress.Stage, progress.CompletedQuantity); err != nil {
				return nil, err
			}
			advanced = progress.Advanced
		}
	}

	if err := syncOrderStatus(ctx, repos, piece.OrderID, coreorder.EventTaskCompleted); err != nil {
		return nil, err
	}

	completed, err := repos.Tasks().GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	updated, err := repos.Pieces().GetByID(ctx, piece.ID)
	if err != nil {
		return nil, err
	}

	return &primary.CompleteTaskResponse{
		Task:          recordToTask(completed),
		Piece:         recordToPiece(updated),
		StageAdvanced: advanced,
	}, nil
}

// syncOrderStatus applies the automatic order status transition for event.
func syncOrderStatus(ctx context.Context, repos secondary.Repositories, orderID, event string) error {
	ord, err := repos.Orders().GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	pieces, err := repos.Pieces().ListByOrder(ctx, orderID)
	if err != nil {
		return err
	}

	allComplete := len(pieces) > 0
	for _, p := range pieces {
		if p.Stage != stage.Complete {
			allComplete = false
			break
		}
	}

	next := coreorder.GetAutoTransitionStatus(coreorder.AutoTransitionContext{
		CurrentStatus:     ord.Status,
		TriggerEvent:      event,
		AllPiecesComplete: allComplete,
	})
	if next == "" {
		return nil
	}
	return repos.Orders().UpdateStatus(ctx, orderID, next)
}

func recordToTask(r *secondary.TaskRecord) *primary.Task {
	return &primary.Task{
		ID:             r.ID,
		PieceID:        r.PieceID,
		OrderID:        r.OrderID,
		TaskType:       r.TaskType,
		Quantity:       r.Quantity,
		EstimatedHours: r.EstimatedHours,
		Date:           r.Date,
		Status:         r.Status,
		IsLate:         r.IsLate,
		CompletedAt:    r.CompletedAt,
		CreatedAt:      r.CreatedAt,
	}
}

// Ensure TaskServiceImpl implements the interface
var _ primary.TaskService = (*TaskServiceImpl)(nil)
