package jobs

import (
	"time"

	"github.com/google/uuid"
)

// Execution wraps a job payload with the metadata needed for retry and
// dead-letter routing: attempt count, timestamps, and the last error seen.
type Execution[T any] struct {
	ID            uuid.UUID
	Payload       T
	Priority      Priority
	EnqueuedAt    time.Time
	Attempt       int
	LastError     string
	LastAttemptAt time.Time
}

// NewExecution creates a fresh execution for a payload at the given priority.
func NewExecution[T any](payload T, priority Priority) Execution[T] {
	return Execution[T]{
		ID:         uuid.New(),
		Payload:    payload,
		Priority:   priority,
		EnqueuedAt: time.Now().UTC(),
	}
}

// WithRetry returns a copy with an incremented attempt count and error context.
func (e Execution[T]) WithRetry(lastError string) Execution[T] {
	e.Attempt++
	e.LastError = lastError
	e.LastAttemptAt = time.Now().UTC()
	return e
}

// Age returns how long the execution has been waiting since first enqueue.
func (e Execution[T]) Age() time.Duration {
	return time.Since(e.EnqueuedAt)
}
