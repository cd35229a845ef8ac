package primary

import "context"

// OrderService defines the primary port for order intake.
type OrderService interface {
	// CreateOrder creates a new pending order.
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)

	// GetOrder retrieves an order with its pieces.
	GetOrder(ctx context.Context, orderID string) (*Order, error)

	// ListOrders lists orders with optional filters.
	ListOrders(ctx context.Context, filters OrderFilters) ([]*Order, error)

	// AddPiece adds a line-item to an order, starting at its piece type's first stage.
	AddPiece(ctx context.Context, req AddPieceRequest) (*Piece, error)

	// SetDueDate sets or clears (empty string) an order's hard due date.
	SetDueDate(ctx context.Context, orderID, dueDate string) error

	// SetTimelineDate sets or clears an order's soft timeline target.
	SetTimelineDate(ctx context.Context, orderID, timelineDate string) error

	// SetStatus changes an order's status.
	SetStatus(ctx context.Context, orderID, status string) error
}

// CreateOrderRequest contains parameters for creating an order.
type CreateOrderRequest struct {
	CustomerName string
	DueDate      string // Optional
	TimelineDate string // Optional
}

// AddPieceRequest contains parameters for adding a piece to an order.
type AddPieceRequest struct {
	OrderID   string
	PieceType string
	Quantity  int
}

// Order represents an order at the port boundary.
type Order struct {
	ID           string
	CustomerName string
	Status       string
	DueDate      string
	TimelineDate string
	CreatedAt    string
	Pieces       []*Piece
}

// OrderFilters contains filter options for listing orders.
type OrderFilters struct {
	Status string
}
