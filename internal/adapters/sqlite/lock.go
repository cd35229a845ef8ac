package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/kiln/internal/ports/secondary"
)

// scheduleLockName is the single row guarding schedule regeneration.
const scheduleLockName = "schedule"

// LockRepository implements secondary.RegenerationLock as a row in schedule_locks.
// It always runs on the database handle, never inside a caller's transaction.
type LockRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewLockRepository creates a lock over the schedule_locks table.
func NewLockRepository(db *sql.DB) *LockRepository {
	return &LockRepository{db: db, now: time.Now}
}

// Acquire takes the lock for holder. A lock held longer than ttl is taken
// over; ttl <= 0 means a held lock never goes stale.
func (l *LockRepository) Acquire(ctx context.Context, holder string, ttl time.Duration) (*secondary.LockRecord, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin lock transaction: %w", err)
	}
	defer tx.Rollback()

	now := l.now().UTC()

	current := &secondary.LockRecord{Name: scheduleLockName}
	err = tx.QueryRowContext(ctx,
		"SELECT token, holder, acquired_at FROM schedule_locks WHERE name = ?",
		scheduleLockName,
	).Scan(&current.Token, &current.Holder, &current.AcquiredAt)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, fmt.Errorf("failed to read schedule lock: %w", err)
	case ttl <= 0 || now.Sub(current.AcquiredAt) < ttl:
		return current, secondary.ErrLockHeld
	}

	acquired := &secondary.LockRecord{
		Name:       scheduleLockName,
		Token:      uuid.NewString(),
		Holder:     holder,
		AcquiredAt: now,
	}
	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO schedule_locks (name, token, holder, acquired_at) VALUES (?, ?, ?, ?)",
		acquired.Name, acquired.Token, acquired.Holder, acquired.AcquiredAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to write schedule lock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit schedule lock: %w", err)
	}
	return acquired, nil
}

// Release frees the lock if token still owns it.
func (l *LockRepository) Release(ctx context.Context, token string) error {
	_, err := l.db.ExecContext(ctx,
		"DELETE FROM schedule_locks WHERE name = ? AND token = ?",
		scheduleLockName, token,
	)
	if err != nil {
		return fmt.Errorf("failed to release schedule lock: %w", err)
	}
	return nil
}
