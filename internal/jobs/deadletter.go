package jobs

import (
	"context"
	"log/slog"
	"sync"

	"github.com/allisson/possync/internal/metrics"
)

// DeadLetter is the terminal sink for executions whose retry budget is
// exhausted or that failed fatally. Entries are preserved with their full
// failure context for operator inspection and manual replay; nothing here is
// ever retried automatically.
type DeadLetter[T any] struct {
	name    string
	metrics metrics.JobMetrics
	logger  *slog.Logger

	mu      sync.Mutex
	entries []Execution[T]
}

// NewDeadLetter creates a dead-letter queue named for metrics (e.g., "pos.offline_sync.dlq").
func NewDeadLetter[T any](name string, jobMetrics metrics.JobMetrics, logger *slog.Logger) *DeadLetter[T] {
	return &DeadLetter[T]{
		name:    name,
		metrics: jobMetrics,
		logger:  logger,
	}
}

// Record stores a failed execution. Every recording increments the dead-letter
// counter so operators see systemic failure without reading logs.
func (d *DeadLetter[T]) Record(execution Execution[T]) {
	d.mu.Lock()
	d.entries = append(d.entries, execution)
	depth := len(d.entries)
	d.mu.Unlock()

	d.logger.Error("job moved to dead-letter queue",
		slog.String("queue", d.name),
		slog.String("execution_id", execution.ID.String()),
		slog.String("priority", execution.Priority.String()),
		slog.Int("attempts", execution.Attempt),
		slog.String("last_error", execution.LastError),
	)

	d.metrics.DeadLettered(context.Background(), d.name, execution.Priority.String())
	d.metrics.RecordDeadLetterDepth(context.Background(), d.name, int64(depth))
}

// Take removes and returns the oldest entry for manual reprocessing.
func (d *DeadLetter[T]) Take() (Execution[T], bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.entries) == 0 {
		var zero Execution[T]
		return zero, false
	}
	execution := d.entries[0]
	d.entries = d.entries[1:]
	d.metrics.RecordDeadLetterDepth(context.Background(), d.name, int64(len(d.entries)))
	return execution, true
}

// Entries returns a copy of all entries for admin inspection.
func (d *DeadLetter[T]) Entries() []Execution[T] {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Execution[T], len(d.entries))
	copy(out, d.entries)
	return out
}

// Depth returns the current number of dead-lettered executions.
func (d *DeadLetter[T]) Depth() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Clear drops all entries (used in tests or after manual intervention).
func (d *DeadLetter[T]) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = nil
}
