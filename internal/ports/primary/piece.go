package primary

import "context"

// PieceService defines the primary port for piece progress operations.
type PieceService interface {
	// GetPiece retrieves a piece by ID.
	GetPiece(ctx context.Context, pieceID string) (*Piece, error)

	// UpdatePieceProgress applies a staff correction to a piece's stage
	// and/or completed quantity. Existing tasks are left for the next
	// regeneration to reconcile.
	UpdatePieceProgress(ctx context.Context, req UpdatePieceProgressRequest) (*Piece, error)
}

// UpdatePieceProgressRequest contains parameters for a piece correction.
// Nil fields are left unchanged.
type UpdatePieceProgressRequest struct {
	PieceID           string
	Stage             *string
	CompletedQuantity *int
}

// Piece represents an order line-item at the port boundary.
type Piece struct {
	ID                string
	OrderID           string
	PieceType         string
	Quantity          int
	CompletedQuantity int
	Stage             string
	StageChangedAt    string
	CreatedAt         string
}
