// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned (wrapped) by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrLockHeld is returned by RegenerationLock.Acquire when another holder owns the lock.
var ErrLockHeld = errors.New("regeneration lock held")

// Repositories groups the repositories that share one connection or transaction.
type Repositories interface {
	Orders() OrderRepository
	Pieces() PieceRepository
	Tasks() TaskRepository
	Availability() AvailabilityRepository
	Runs() RunRepository
	Activity() ActivityRepository
}

// Store is the scheduling core's persistence handle.
type Store interface {
	Repositories

	// RunInTx executes fn inside one transaction. A non-nil error from fn,
	// or a panic, rolls back every write made through the given repositories.
	RunInTx(ctx context.Context, fn func(repos Repositories) error) error

	// Lock returns the single-writer regeneration lock.
	Lock() RegenerationLock
}

// OrderRepository defines the secondary port for order persistence.
type OrderRepository interface {
	// Create persists a new order.
	Create(ctx context.Context, order *OrderRecord) error

	// GetByID retrieves an order by its ID.
	GetByID(ctx context.Context, id string) (*OrderRecord, error)

	// List retrieves orders matching the given filters, oldest first.
	List(ctx context.Context, filters OrderFilters) ([]*OrderRecord, error)

	// UpdateDueDate sets or clears (empty string) an order's hard due date.
	UpdateDueDate(ctx context.Context, id, dueDate string) error

	// UpdateTimelineDate sets or clears an order's soft timeline target.
	UpdateTimelineDate(ctx context.Context, id, timelineDate string) error

	// UpdateStatus changes an order's status.
	UpdateStatus(ctx context.Context, id, status string) error

	// GetNextID returns the next available order ID.
	GetNextID(ctx context.Context) (string, error)
}

// OrderRecord represents an order as stored in persistence.
type OrderRecord struct {
	ID           string
	CustomerName string
	Status       string
	DueDate      string // Empty string means null
	TimelineDate string // Empty string means null
	CreatedAt    string
	UpdatedAt    string
}

// OrderFilters contains filter options for querying orders.
type OrderFilters struct {
	Status string
}

// PieceRepository defines the secondary port for order line-item persistence.
type PieceRepository interface {
	// Create persists a new piece.
	Create(ctx context.Context, piece *PieceRecord) error

	// GetByID retrieves a piece by its ID.
	GetByID(ctx context.Context, id string) (*PieceRecord, error)

	// ListByOrder retrieves the pieces of one order.
	ListByOrder(ctx context.Context, orderID string) ([]*PieceRecord, error)

	// ListOutstanding retrieves every piece with completed_quantity < quantity
	// whose order is neither cancelled nor completed, with its order's dates.
	ListOutstanding(ctx context.Context) ([]*OutstandingPieceRecord, error)

	// UpdateProgress writes a piece's stage and completed quantity.
	// stage_changed_at is stamped when the stage differs from the stored one.
	UpdateProgress(ctx context.Context, id, stage string, completedQuantity int) error

	// GetNextID returns the next available piece ID.
	GetNextID(ctx context.Context) (string, error)
}

// PieceRecord represents a piece (order line-item) as stored in persistence.
type PieceRecord struct {
	ID                string
	OrderID           string
	PieceType         string
	Quantity          int
	CompletedQuantity int
	Stage             string
	StageChangedAt    string
	CreatedAt         string
}

// OutstandingPieceRecord is a piece joined with the scheduling attributes of its order.
type OutstandingPieceRecord struct {
	Piece             PieceRecord
	OrderDueDate      string // Empty string means null
	OrderTimelineDate string // Empty string means null
	OrderCreatedAt    time.Time
}

// TaskRepository defines the secondary port for scheduled task persistence.
type TaskRepository interface {
	// Create persists a new task.
	Create(ctx context.Context, task *TaskRecord) error

	// GetByID retrieves a task by its ID.
	GetByID(ctx context.Context, id string) (*TaskRecord, error)

	// List retrieves tasks ordered by date asc, is_late desc, estimated_hours desc.
	List(ctx context.Context, filters TaskFilters) ([]*TaskRecord, error)

	// ListPendingIDs returns the IDs of every pending task.
	ListPendingIDs(ctx context.Context) ([]string, error)

	// DeletePending deletes the given tasks, skipping any whose status is no
	// longer pending at delete time. Returns the number of rows deleted.
	DeletePending(ctx context.Context, ids []string) (int, error)

	// MarkCompleted transitions a pending task to completed. Returns false
	// when the task was not pending at update time.
	MarkCompleted(ctx context.Context, id string, completedAt time.Time) (bool, error)

	// CountPending counts pending tasks for a piece and task type, excluding one task.
	CountPending(ctx context.Context, pieceID, taskType, excludeID string) (int, error)

	// NextSequence returns the next free numeric suffix for task IDs.
	NextSequence(ctx context.Context) (int, error)
}

// TaskRecord represents a scheduled task as stored in persistence.
type TaskRecord struct {
	ID             string
	PieceID        string // order_detail_id
	OrderID        string // read-only, joined from the piece
	TaskType       string
	Quantity       int
	EstimatedHours float64
	Date           string
	Status         string
	IsLate         bool
	CompletedAt    string // Empty string means null
	CreatedAt      string
}

// TaskFilters contains filter options for querying tasks.
type TaskFilters struct {
	Status  string
	PieceID string
	From    string // inclusive ISO date
	To      string // inclusive ISO date
}

// AvailabilityRepository defines the secondary port for capacity overrides.
type AvailabilityRepository interface {
	// Upsert creates or replaces the override for a date.
	Upsert(ctx context.Context, record *AvailabilityRecord) error

	// Delete removes the override for a date.
	Delete(ctx context.Context, date string) error

	// Get retrieves the override for a date.
	Get(ctx context.Context, date string) (*AvailabilityRecord, error)

	// ListRange retrieves overrides with from <= date <= to, ordered by date.
	ListRange(ctx context.Context, from, to string) ([]*AvailabilityRecord, error)
}

// AvailabilityRecord represents a date-specific capacity override.
type AvailabilityRecord struct {
	Date  string
	Hours float64
	Notes string // Empty string means null
}

// RegenerationLock serializes schedule regenerations across processes.
type RegenerationLock interface {
	// Acquire takes the lock for holder. A lock older than ttl is considered
	// abandoned and taken over. On contention it returns the current holder's
	// record together with ErrLockHeld.
	Acquire(ctx context.Context, holder string, ttl time.Duration) (*LockRecord, error)

	// Release frees the lock if token still owns it.
	Release(ctx context.Context, token string) error
}

// LockRecord describes a held regeneration lock.
type LockRecord struct {
	Name       string
	Token      string
	Holder     string
	AcquiredAt time.Time
}

// RunRepository records regeneration runs.
type RunRepository interface {
	// Create persists a finished regeneration run.
	Create(ctx context.Context, run *RunRecord) error

	// ListRecent returns the most recent runs, newest first.
	ListRecent(ctx context.Context, limit int) ([]*RunRecord, error)
}

// RunRecord represents one regeneration attempt.
type RunRecord struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Result       string // "success", "partial", "failed", "rejected"
	TasksCreated int
	TasksDeleted int
	Skipped      int
	Message      string
	TriggeredBy  string // Empty string means null
}

// ActivityRepository records manual corrections made through the services.
type ActivityRepository interface {
	// Create persists an activity entry.
	Create(ctx context.Context, entry *ActivityRecord) error

	// List retrieves entries matching the given filters, newest first.
	List(ctx context.Context, filters ActivityFilters) ([]*ActivityRecord, error)
}

// ActivityRecord is one logged change.
type ActivityRecord struct {
	ID         string
	Actor      string
	EntityType string // "order", "piece", "availability"
	EntityID   string
	Action     string // "create", "update", "delete"
	FieldName  string // Empty string means null
	OldValue   string // Empty string means null
	NewValue   string // Empty string means null
	CreatedAt  time.Time
}

// ActivityFilters contains filter options for querying the activity log.
type ActivityFilters struct {
	EntityType string
	EntityID   string
	Actor      string
	Limit      int
}
