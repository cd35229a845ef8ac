// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/kiln/internal/ports/secondary"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx. Repositories are
// built on it so the same code runs inside and outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// repositories binds every repository to one DBTX.
type repositories struct {
	orders       *OrderRepository
	pieces       *PieceRepository
	tasks        *TaskRepository
	availability *AvailabilityRepository
	runs         *RunRepository
	activity     *ActivityRepository
}

func newRepositories(db DBTX) *repositories {
	return &repositories{
		orders:       NewOrderRepository(db),
		pieces:       NewPieceRepository(db),
		tasks:        NewTaskRepository(db),
		availability: NewAvailabilityRepository(db),
		runs:         NewRunRepository(db),
		activity:     NewActivityRepository(db),
	}
}

func (r *repositories) Orders() secondary.OrderRepository { return r.orders }

func (r *repositories) Pieces() secondary.PieceRepository { return r.pieces }

func (r *repositories) Tasks() secondary.TaskRepository { return r.tasks }

func (r *repositories) Availability() secondary.AvailabilityRepository { return r.availability }

func (r *repositories) Runs() secondary.RunRepository { return r.runs }

func (r *repositories) Activity() secondary.ActivityRepository { return r.activity }

// Store implements secondary.Store with SQLite.
type Store struct {
	*repositories
	db   *sql.DB
	lock *LockRepository
}

// NewStore creates a store over an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{
		repositories: newRepositories(db),
		db:           db,
		lock:         NewLockRepository(db),
	}
}

// Lock returns the regeneration lock.
func (s *Store) Lock() secondary.RegenerationLock {
	return s.lock
}

// RunInTx executes fn inside one transaction. fn must only use the
// repositories it is given; the outer store bypasses the transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(repos secondary.Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(newRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s not found: %w", kind, id, secondary.ErrNotFound)
}
