package db

import (
	"database/sql"
	"fmt"
	"time"
)

// SeedFixtures populates the database with a small demo studio: three orders
// covering due, timeline-only and undated work, plus one capacity override.
func SeedFixtures(database *sql.DB, today time.Time) error {
	day := func(offset int) string {
		return today.AddDate(0, 0, offset).Format("2006-01-02")
	}

	orders := []struct {
		id, customer string
		due, timeline any
		createdAt     time.Time
	}{
		{"ORD-001", "Harbor Cafe", day(14), nil, today.Add(-48 * time.Hour)},
		{"ORD-002", "Wedding Registry", nil, day(30), today.Add(-24 * time.Hour)},
		{"ORD-003", "Studio Shelf", nil, nil, today},
	}
	for _, o := range orders {
		if _, err := database.Exec(
			"INSERT INTO orders (id, customer_name, status, due_date, timeline_date, created_at, updated_at) VALUES (?, ?, 'pending', ?, ?, ?, ?)",
			o.id, o.customer, o.due, o.timeline, o.createdAt.UTC(), o.createdAt.UTC(),
		); err != nil {
			return fmt.Errorf("seed orders: %w", err)
		}
	}

	pieces := []struct {
		id, orderID, pieceType, stage string
		quantity                      int
	}{
		{"PIECE-001", "ORD-001", "mug-with-handle", "build", 24},
		{"PIECE-002", "ORD-001", "plate", "build", 12},
		{"PIECE-003", "ORD-002", "bowl", "build", 40},
		{"PIECE-004", "ORD-003", "vase", "build", 3},
	}
	for _, p := range pieces {
		if _, err := database.Exec(
			"INSERT INTO order_details (id, order_id, piece_type, quantity, completed_quantity, stage) VALUES (?, ?, ?, ?, 0, ?)",
			p.id, p.orderID, p.pieceType, p.quantity, p.stage,
		); err != nil {
			return fmt.Errorf("seed pieces: %w", err)
		}
	}

	if _, err := database.Exec(
		"INSERT INTO availability (date, hours, notes) VALUES (?, 2, 'kiln maintenance')",
		day(2),
	); err != nil {
		return fmt.Errorf("seed availability: %w", err)
	}

	return nil
}
