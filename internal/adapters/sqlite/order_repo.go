package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/kiln/internal/ports/secondary"
)

// OrderRepository implements secondary.OrderRepository with SQLite.
type OrderRepository struct {
	db DBTX
}

// NewOrderRepository creates a new SQLite order repository.
func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderSelectCols = "id, customer_name, status, due_date, timeline_date, created_at, updated_at"

func scanOrder(scanner rowScanner) (*secondary.OrderRecord, error) {
	var (
		dueDate      sql.NullString
		timelineDate sql.NullString
		createdAt    time.Time
		updatedAt    time.Time
	)

	record := &secondary.OrderRecord{}
	err := scanner.Scan(&record.ID, &record.CustomerName, &record.Status, &dueDate, &timelineDate, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	record.DueDate = dueDate.String
	record.TimelineDate = timelineDate.String
	record.CreatedAt = formatTime(createdAt)
	record.UpdatedAt = formatTime(updatedAt)
	return record, nil
}

// Create persists a new order. An empty CreatedAt takes the current time.
func (r *OrderRepository) Create(ctx context.Context, order *secondary.OrderRecord) error {
	status := order.Status
	if status == "" {
		status = "pending"
	}

	createdAt := time.Now().UTC()
	if order.CreatedAt != "" {
		parsed, err := time.Parse(time.RFC3339, order.CreatedAt)
		if err != nil {
			return fmt.Errorf("invalid order created_at %q: %w", order.CreatedAt, err)
		}
		createdAt = parsed.UTC()
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO orders (id, customer_name, status, due_date, timeline_date, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		order.ID, order.CustomerName, status, nullString(order.DueDate), nullString(order.TimelineDate), createdAt, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*secondary.OrderRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+orderSelectCols+" FROM orders WHERE id = ?", id)

	record, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, notFound("order", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return record, nil
}

// List retrieves orders matching the given filters, oldest first.
func (r *OrderRepository) List(ctx context.Context, filters secondary.OrderFilters) ([]*secondary.OrderRecord, error) {
	query := "SELECT " + orderSelectCols + " FROM orders WHERE 1=1"
	args := []any{}

	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}

	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*secondary.OrderRecord
	for rows.Next() {
		record, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, record)
	}
	return orders, rows.Err()
}

// UpdateDueDate sets or clears an order's hard due date.
func (r *OrderRepository) UpdateDueDate(ctx context.Context, id, dueDate string) error {
	return r.update(ctx, id, "due_date", nullString(dueDate))
}

// UpdateTimelineDate sets or clears an order's soft timeline target.
func (r *OrderRepository) UpdateTimelineDate(ctx context.Context, id, timelineDate string) error {
	return r.update(ctx, id, "timeline_date", nullString(timelineDate))
}

// UpdateStatus changes an order's status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return r.update(ctx, id, "status", status)
}

// update sets one column; column is always a constant from this file.
func (r *OrderRepository) update(ctx context.Context, id, column string, value any) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE orders SET "+column+" = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		value, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update order %s: %w", column, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return notFound("order", id)
	}
	return nil
}

// GetNextID returns the next available order ID.
func (r *OrderRepository) GetNextID(ctx context.Context) (string, error) {
	var maxID int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 5) AS INTEGER)), 0) FROM orders",
	).Scan(&maxID)
	if err != nil {
		return "", fmt.Errorf("failed to get next order ID: %w", err)
	}
	return fmt.Sprintf("ORD-%03d", maxID+1), nil
}
