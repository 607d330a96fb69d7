package jobs

import (
	"context"
	"log/slog"
	"sync"

	"github.com/allisson/possync/internal/metrics"
)

// PriorityQueue is a bounded, in-memory, multi-lane FIFO queue. Lanes are
// drained in strict priority order; within a lane, arrival order wins.
// Capacity exhaustion is a boolean backpressure signal, never an error.
type PriorityQueue[T any] struct {
	name    string
	config  Config
	metrics metrics.JobMetrics
	logger  *slog.Logger

	mu    sync.Mutex
	lanes map[Priority][]Execution[T]
}

// NewPriorityQueue creates a priority queue named for metrics (e.g., "pos.offline_sync").
func NewPriorityQueue[T any](
	name string,
	config Config,
	jobMetrics metrics.JobMetrics,
	logger *slog.Logger,
) *PriorityQueue[T] {
	lanes := make(map[Priority][]Execution[T], len(Priorities()))
	for _, priority := range Priorities() {
		lanes[priority] = nil
	}
	return &PriorityQueue[T]{
		name:    name,
		config:  config,
		metrics: jobMetrics,
		logger:  logger,
		lanes:   lanes,
	}
}

// Enqueue wraps the payload in a fresh execution and appends it to the lane
// for the given priority. Returns false without blocking if the lane is at
// capacity; callers must surface that as an overload signal, never drop it.
func (q *PriorityQueue[T]) Enqueue(payload T, priority Priority) bool {
	return q.EnqueueExecution(NewExecution(payload, priority))
}

// EnqueueExecution appends an existing execution (used for retries).
// The capacity check and append are atomic with respect to concurrent enqueuers.
func (q *PriorityQueue[T]) EnqueueExecution(execution Execution[T]) bool {
	priority := execution.Priority

	q.mu.Lock()
	capacity := q.config.QueueCapacityFor(priority)
	if capacity > 0 && len(q.lanes[priority]) >= capacity {
		q.mu.Unlock()
		q.logger.Warn("queue lane at capacity",
			slog.String("queue", q.name),
			slog.String("priority", priority.String()),
			slog.Int("capacity", capacity),
		)
		q.metrics.QueueOverflow(context.Background(), q.name, priority.String())
		return false
	}
	q.lanes[priority] = append(q.lanes[priority], execution)
	depth := len(q.lanes[priority])
	q.mu.Unlock()

	q.metrics.JobEnqueued(context.Background(), q.name, priority.String())
	q.metrics.RecordQueueDepth(context.Background(), q.name, priority.String(), int64(depth))
	return true
}

// Dequeue removes and returns the head of the highest-priority non-empty lane.
// Ownership of the returned execution transfers to exactly one caller.
func (q *PriorityQueue[T]) Dequeue() (Execution[T], bool) {
	q.mu.Lock()
	for _, priority := range Priorities() {
		lane := q.lanes[priority]
		if len(lane) == 0 {
			continue
		}
		execution := lane[0]
		q.lanes[priority] = lane[1:]
		depth := len(q.lanes[priority])
		q.mu.Unlock()

		q.metrics.RecordQueueDepth(context.Background(), q.name, priority.String(), int64(depth))
		return execution, true
	}
	q.mu.Unlock()

	var zero Execution[T]
	return zero, false
}

// Depth returns the current depth of one priority lane.
func (q *PriorityQueue[T]) Depth(priority Priority) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lanes[priority])
}

// TotalDepth returns the sum of all lane depths.
func (q *PriorityQueue[T]) TotalDepth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	total := 0
	for _, lane := range q.lanes {
		total += len(lane)
	}
	return total
}

// Clear empties all lanes (used in tests).
func (q *PriorityQueue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for priority := range q.lanes {
		q.lanes[priority] = nil
	}
}
