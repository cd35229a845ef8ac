package primary

import "context"

// TaskService defines the primary port for scheduled task lifecycle operations.
type TaskService interface {
	// GetTask retrieves a task by ID.
	GetTask(ctx context.Context, taskID string) (*Task, error)

	// CompleteTask marks a pending task completed and reconciles its piece.
	CompleteTask(ctx context.Context, taskID string) (*CompleteTaskResponse, error)
}

// Task represents a scheduled task entity at the port boundary.
type Task struct {
	ID             string
	PieceID        string
	OrderID        string
	TaskType       string
	Quantity       int
	EstimatedHours float64
	Date           string
	Status         string
	IsLate         bool
	CompletedAt    string
	CreatedAt      string
}

// CompleteTaskResponse contains the result of completing a task.
type CompleteTaskResponse struct {
	Task          *Task
	Piece         *Piece
	StageAdvanced bool
}
