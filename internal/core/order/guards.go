// Package order contains the pure business logic for order intake.
// Guards are pure functions that evaluate preconditions without side effects.
package order

import (
	"fmt"
	"slices"
)

// Order status constants
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Statuses lists every valid order status.
var Statuses = []string{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}

// Trigger events for automatic status transitions.
const (
	EventTaskCompleted  = "task_completed"
	EventPieceCorrected = "piece_corrected"
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

// StatusChangeContext provides context for a manual status change.
type StatusChangeContext struct {
	OrderID       string
	CurrentStatus string
	NewStatus     string
}

// CanChangeStatus evaluates whether an order may move to a new status.
// Rules:
// - New status must be a known status
// - Cancelled orders are final
func CanChangeStatus(ctx StatusChangeContext) GuardResult {
	if !slices.Contains(Statuses, ctx.NewStatus) {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("unknown order status %q (want one of %v)", ctx.NewStatus, Statuses),
		}
	}

	if ctx.CurrentStatus == StatusCancelled && ctx.NewStatus != StatusCancelled {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("order %s is cancelled and cannot be reopened", ctx.OrderID),
		}
	}

	return GuardResult{Allowed: true}
}

// AddPieceContext provides context for adding a piece to an order.
type AddPieceContext struct {
	OrderID        string
	OrderExists    bool
	OrderStatus    string
	PieceType      string
	PieceTypeKnown bool
	Quantity       int
}

// CanAddPiece evaluates whether a piece can be added to an order.
// Rules:
// - Order must exist and still be open (pending or in progress)
// - Piece type must be in the stage catalog
// - Quantity must be positive
func CanAddPiece(ctx AddPieceContext) GuardResult {
	if !ctx.OrderExists {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("order %s not found", ctx.OrderID),
		}
	}

	if ctx.OrderStatus == StatusCompleted || ctx.OrderStatus == StatusCancelled {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("cannot add pieces to %s order %s", ctx.OrderStatus, ctx.OrderID),
		}
	}

	if !ctx.PieceTypeKnown {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("unknown piece type %q", ctx.PieceType),
		}
	}

	if ctx.Quantity <= 0 {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("quantity must be positive, got %d", ctx.Quantity),
		}
	}

	return GuardResult{Allowed: true}
}

// AutoTransitionContext provides context for automatic status changes.
type AutoTransitionContext struct {
	CurrentStatus     string
	TriggerEvent      string
	AllPiecesComplete bool
}

// GetAutoTransitionStatus returns the status an order should move to after
// a production event, or "" when it stays put.
// Rules:
// - Finishing every piece completes an open order
// - Any completed task moves a pending order to in progress
func GetAutoTransitionStatus(ctx AutoTransitionContext) string {
	if ctx.CurrentStatus != StatusPending && ctx.CurrentStatus != StatusInProgress {
		return ""
	}

	if ctx.AllPiecesComplete {
		return StatusCompleted
	}

	if ctx.TriggerEvent == EventTaskCompleted && ctx.CurrentStatus == StatusPending {
		return StatusInProgress
	}

	return ""
}
