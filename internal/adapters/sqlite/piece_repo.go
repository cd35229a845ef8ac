package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/kiln/internal/ports/secondary"
)

// PieceRepository implements secondary.PieceRepository over the order_details table.
type PieceRepository struct {
	db DBTX
}

// NewPieceRepository creates a new SQLite piece repository.
func NewPieceRepository(db DBTX) *PieceRepository {
	return &PieceRepository{db: db}
}

const pieceSelectCols = "d.id, d.order_id, d.piece_type, d.quantity, d.completed_quantity, d.stage, d.stage_changed_at, d.created_at"

func scanPiece(scanner rowScanner, extra ...any) (*secondary.PieceRecord, error) {
	var (
		stageChangedAt time.Time
		createdAt      time.Time
	)

	record := &secondary.PieceRecord{}
	dest := []any{
		&record.ID, &record.OrderID, &record.PieceType, &record.Quantity,
		&record.CompletedQuantity, &record.Stage, &stageChangedAt, &createdAt,
	}
	if err := scanner.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	record.StageChangedAt = formatTime(stageChangedAt)
	record.CreatedAt = formatTime(createdAt)
	return record, nil
}

// Create persists a new piece.
func (r *PieceRepository) Create(ctx context.Context, piece *secondary.PieceRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO order_details (id, order_id, piece_type, quantity, completed_quantity, stage) VALUES (?, ?, ?, ?, ?, ?)",
		piece.ID, piece.OrderID, piece.PieceType, piece.Quantity, piece.CompletedQuantity, piece.Stage,
	)
	if err != nil {
		return fmt.Errorf("failed to create piece: %w", err)
	}
	return nil
}

// GetByID retrieves a piece by its ID.
func (r *PieceRepository) GetByID(ctx context.Context, id string) (*secondary.PieceRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+pieceSelectCols+" FROM order_details d WHERE d.id = ?", id)

	record, err := scanPiece(row)
	if err == sql.ErrNoRows {
		return nil, notFound("piece", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get piece: %w", err)
	}
	return record, nil
}

// ListByOrder retrieves the pieces of one order.
func (r *PieceRepository) ListByOrder(ctx context.Context, orderID string) ([]*secondary.PieceRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+pieceSelectCols+" FROM order_details d WHERE d.order_id = ? ORDER BY d.id ASC",
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pieces: %w", err)
	}
	defer rows.Close()

	var pieces []*secondary.PieceRecord
	for rows.Next() {
		record, err := scanPiece(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan piece: %w", err)
		}
		pieces = append(pieces, record)
	}
	return pieces, rows.Err()
}

// ListOutstanding retrieves the pieces that still need production work.
func (r *PieceRepository) ListOutstanding(ctx context.Context) ([]*secondary.OutstandingPieceRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+pieceSelectCols+`, o.due_date, o.timeline_date, o.created_at
		FROM order_details d
		JOIN orders o ON o.id = d.order_id
		WHERE d.completed_quantity < d.quantity
		  AND o.status NOT IN ('cancelled', 'completed')
		ORDER BY d.id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list outstanding pieces: %w", err)
	}
	defer rows.Close()

	var out []*secondary.OutstandingPieceRecord
	for rows.Next() {
		var (
			dueDate        sql.NullString
			timelineDate   sql.NullString
			orderCreatedAt time.Time
		)
		piece, err := scanPiece(rows, &dueDate, &timelineDate, &orderCreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outstanding piece: %w", err)
		}
		out = append(out, &secondary.OutstandingPieceRecord{
			Piece:             *piece,
			OrderDueDate:      dueDate.String,
			OrderTimelineDate: timelineDate.String,
			OrderCreatedAt:    orderCreatedAt.UTC(),
		})
	}
	return out, rows.Err()
}

// UpdateProgress writes a piece's stage and completed quantity.
func (r *PieceRepository) UpdateProgress(ctx context.Context, id, stage string, completedQuantity int) error {
	// SET expressions see the row as it was before the update.
	result, err := r.db.ExecContext(ctx, `
		UPDATE order_details SET
			stage_changed_at = CASE WHEN stage <> ? THEN CURRENT_TIMESTAMP ELSE stage_changed_at END,
			stage = ?,
			completed_quantity = ?
		WHERE id = ?`,
		stage, stage, completedQuantity, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update piece progress: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return notFound("piece", id)
	}
	return nil
}

// GetNextID returns the next available piece ID.
func (r *PieceRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 7) AS INTEGER)), 0) FROM order_details",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next piece ID: %w", err)
	}
	return fmt.Sprintf("PIECE-%03d", maxID+1), nil
}
