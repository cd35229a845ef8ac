package task

import "github.com/example/kiln/internal/core/stage"

// ProgressInput is the pre-fetched state needed to reconcile a piece after
// one of its tasks completes.
type ProgressInput struct {
	Table             *stage.Table
	PieceStage        string
	Quantity          int
	CompletedQuantity int
	TaskStage         string
	TaskQuantity      int
	// PendingSiblings counts other pending tasks for the same piece and stage.
	PendingSiblings int
}

// ProgressResult is the piece state after applying a completion.
type ProgressResult struct {
	Stage             string
	CompletedQuantity int
	Changed           bool
	Advanced          bool
}

// ApplyCompletion reconciles piece progress for a completed task.
// Rules:
// - a task for a stage behind the piece's current stage is history only
// - a task at or ahead of the current stage adds its quantity (capped at Quantity)
// - when no sibling slice is still pending, or the batch is full, the piece
//   advances to the next stage, resetting the counter, or to "complete" with
//   the full quantity
func ApplyCompletion(in ProgressInput) ProgressResult {
	result := ProgressResult{Stage: in.PieceStage, CompletedQuantity: in.CompletedQuantity}

	taskDef, ok := in.Table.Lookup(in.TaskStage)
	if !ok {
		return result
	}
	current := in.PieceStage
	if current == "" {
		current = in.Table.First().Name
	}
	pieceDef, ok := in.Table.Lookup(current)
	if ok && taskDef.Sequence < pieceDef.Sequence {
		return result
	}

	completed := in.CompletedQuantity
	if !ok || taskDef.Sequence > pieceDef.Sequence {
		// staff finished a later stage first; the piece catches up to it
		completed = 0
	}
	completed += in.TaskQuantity
	if completed > in.Quantity {
		completed = in.Quantity
	}

	result.Stage = taskDef.Name
	result.CompletedQuantity = completed
	result.Changed = true

	if in.PendingSiblings == 0 || completed >= in.Quantity {
		if next, ok := in.Table.Next(taskDef.Name); ok {
			result.Stage = next.Name
			result.Advanced = true
			if next.Name == stage.Complete {
				result.CompletedQuantity = in.Quantity
			} else {
				result.CompletedQuantity = 0
			}
		}
	}
	return result
}
