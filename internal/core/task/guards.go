// Package task contains the pure business logic for scheduled task lifecycle.
// Guards are pure functions that evaluate preconditions without side effects.
package task

import "fmt"

// Task status constants
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// InvalidTaskStateError reports lifecycle misuse: completing a task that
// does not exist or is no longer pending. Reason is a full sentence naming the task.
type InvalidTaskStateError struct {
	TaskID string
	Reason string
}

func (e *InvalidTaskStateError) Error() string {
	return e.Reason
}

// CompleteTaskContext provides context for task completion guards.
type CompleteTaskContext struct {
	TaskID string
	Exists bool
	Status string
}

// CanCompleteTask evaluates whether a task can be completed.
// Rules:
// - Task must exist
// - Task must be pending
func CanCompleteTask(ctx CompleteTaskContext) GuardResult {
	if !ctx.Exists {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("task %s not found", ctx.TaskID),
		}
	}

	if ctx.Status == StatusCompleted {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("task %s is already completed", ctx.TaskID),
		}
	}

	if ctx.Status != StatusPending {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("task %s cannot be completed from status %q", ctx.TaskID, ctx.Status),
		}
	}

	return GuardResult{Allowed: true}
}

// CorrectPieceContext provides context for a staff correction of piece progress.
type CorrectPieceContext struct {
	PieceID           string
	PieceExists       bool
	Quantity          int
	CompletedQuantity int
	Stage             string
	StageKnown        bool
}

// CanCorrectPiece evaluates whether a staff correction is valid.
// Rules:
// - Piece must exist
// - Stage must belong to the piece type's table
// - 0 <= completed quantity <= quantity
func CanCorrectPiece(ctx CorrectPieceContext) GuardResult {
	if !ctx.PieceExists {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("piece %s not found", ctx.PieceID),
		}
	}

	if !ctx.StageKnown {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("stage %q is not defined for piece %s", ctx.Stage, ctx.PieceID),
		}
	}

	if ctx.CompletedQuantity < 0 || ctx.CompletedQuantity > ctx.Quantity {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("completed quantity %d out of range 0..%d for piece %s", ctx.CompletedQuantity, ctx.Quantity, ctx.PieceID),
		}
	}

	return GuardResult{Allowed: true}
}
