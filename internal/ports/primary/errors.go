package primary

import (
	"fmt"
	"time"
)

// ConcurrentRegenerationError means another regeneration holds the lock.
// Callers should retry later; no data is affected.
type ConcurrentRegenerationError struct {
	Holder string
	Since  time.Time
}

func (e *ConcurrentRegenerationError) Error() string {
	if e.Holder == "" {
		return "a schedule regeneration is already in progress"
	}
	return fmt.Sprintf("a schedule regeneration is already in progress (held by %s since %s)",
		e.Holder, e.Since.Format(time.RFC3339))
}

// PersistenceError wraps an opaque store failure. Any transaction it
// interrupted has been rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
