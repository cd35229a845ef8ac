package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/kiln/internal/ports/secondary"
)

// AvailabilityRepository implements secondary.AvailabilityRepository with SQLite.
type AvailabilityRepository struct {
	db DBTX
}

// NewAvailabilityRepository creates a new SQLite availability repository.
func NewAvailabilityRepository(db DBTX) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

func scanAvailability(scanner rowScanner) (*secondary.AvailabilityRecord, error) {
	var notes sql.NullString
	record := &secondary.AvailabilityRecord{}
	if err := scanner.Scan(&record.Date, &record.Hours, &notes); err != nil {
		return nil, err
	}
	record.Notes = notes.String
	return record, nil
}

// Upsert creates or replaces the override for a date.
func (r *AvailabilityRepository) Upsert(ctx context.Context, record *secondary.AvailabilityRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO availability (date, hours, notes) VALUES (?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			hours = excluded.hours,
			notes = excluded.notes,
			updated_at = CURRENT_TIMESTAMP`,
		record.Date, record.Hours, nullString(record.Notes),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert availability: %w", err)
	}
	return nil
}

// Delete removes the override for a date.
func (r *AvailabilityRepository) Delete(ctx context.Context, date string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM availability WHERE date = ?", date)
	if err != nil {
		return fmt.Errorf("failed to delete availability: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return notFound("availability for", date)
	}
	return nil
}

// Get retrieves the override for a date.
func (r *AvailabilityRepository) Get(ctx context.Context, date string) (*secondary.AvailabilityRecord, error) {
	row := r.db.QueryRowContext(ctx, "SELECT date, hours, notes FROM availability WHERE date = ?", date)

	record, err := scanAvailability(row)
	if err == sql.ErrNoRows {
		return nil, notFound("availability for", date)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get availability: %w", err)
	}
	return record, nil
}

// ListRange retrieves overrides with from <= date <= to. Empty bounds are open.
func (r *AvailabilityRepository) ListRange(ctx context.Context, from, to string) ([]*secondary.AvailabilityRecord, error) {
	query := "SELECT date, hours, notes FROM availability WHERE 1=1"
	args := []any{}

	if from != "" {
		query += " AND date >= ?"
		args = append(args, from)
	}
	if to != "" {
		query += " AND date <= ?"
		args = append(args, to)
	}
	query += " ORDER BY date ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list availability: %w", err)
	}
	defer rows.Close()

	var records []*secondary.AvailabilityRecord
	for rows.Next() {
		record, err := scanAvailability(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan availability: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
