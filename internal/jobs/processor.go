package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/possync/internal/metrics"
	"github.com/allisson/possync/internal/tenant"
)

// Handler performs the actual work for one job payload.
type Handler[T any] func(ctx context.Context, payload T) error

// TenantExtractor returns the tenant id carried by a payload, or uuid.Nil when
// the job runs without tenant scope.
type TenantExtractor[T any] func(payload T) uuid.UUID

// Processor ties a priority queue, a dead-letter queue, and a handler together
// for one logical job type. It owns no goroutines: callers drive draining via
// ProcessNext from an external scheduler loop.
type Processor[T any] struct {
	name      string
	queue     *PriorityQueue[T]
	dlq       *DeadLetter[T]
	config    Config
	handler   Handler[T]
	extractor TenantExtractor[T]
	metrics   metrics.JobMetrics
	logger    *slog.Logger
}

// NewProcessor creates a processor named for metrics (e.g., "pos.offline_sync").
func NewProcessor[T any](
	name string,
	queue *PriorityQueue[T],
	dlq *DeadLetter[T],
	config Config,
	handler Handler[T],
	extractor TenantExtractor[T],
	jobMetrics metrics.JobMetrics,
	logger *slog.Logger,
) *Processor[T] {
	return &Processor[T]{
		name:      name,
		queue:     queue,
		dlq:       dlq,
		config:    config,
		handler:   handler,
		extractor: extractor,
		metrics:   jobMetrics,
		logger:    logger,
	}
}

// ProcessNext dequeues and processes one job. Returns false immediately when
// the queue is empty. Safe for concurrent callers: ownership of a dequeued
// execution transfers to exactly one of them.
func (p *Processor[T]) ProcessNext(ctx context.Context) bool {
	execution, ok := p.queue.Dequeue()
	if !ok {
		return false
	}

	p.processExecution(ctx, execution)
	return true
}

// ProcessAllPending drains the queue until empty (used for synchronous tests
// and the scheduled dispatcher's bounded batches).
func (p *Processor[T]) ProcessAllPending(ctx context.Context) {
	for p.ProcessNext(ctx) {
	}
}

func (p *Processor[T]) processExecution(ctx context.Context, execution Execution[T]) {
	priority := execution.Priority
	started := time.Now()

	// The tenant scope lives only on the derived context, so teardown after
	// the handler returns or panics is automatic.
	jobCtx := ctx
	if tenantID := p.extractor(execution.Payload); tenantID != uuid.Nil {
		jobCtx = tenant.WithTenant(ctx, tenantID)
	}

	err := p.invokeHandler(jobCtx, execution.Payload)
	duration := time.Since(started)

	if err == nil {
		p.metrics.JobProcessed(ctx, p.name, priority.String(), "success", duration)
		if execution.Attempt > 0 {
			p.logger.Info("job succeeded after retry",
				slog.String("processor", p.name),
				slog.String("execution_id", execution.ID.String()),
				slog.Int("attempt", execution.Attempt+1),
			)
		}
		return
	}

	p.metrics.JobProcessed(ctx, p.name, priority.String(), "failed", duration)
	p.handleFailure(ctx, execution, err)
}

// invokeHandler runs the handler with panic recovery so a panicking job is
// routed through the normal failure path instead of killing the dispatcher.
func (p *Processor[T]) invokeHandler(ctx context.Context, payload T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job handler panic: %v", r)
		}
	}()
	return p.handler(ctx, payload)
}

func (p *Processor[T]) handleFailure(ctx context.Context, execution Execution[T], handlerErr error) {
	priority := execution.Priority
	attempts := execution.Attempt + 1
	retryExecution := execution.WithRetry(handlerErr.Error())

	p.logger.Error("job failed",
		slog.String("processor", p.name),
		slog.String("execution_id", execution.ID.String()),
		slog.String("priority", priority.String()),
		slog.Int("attempt", attempts),
		slog.String("error", handlerErr.Error()),
	)

	if IsNonRetryable(handlerErr) {
		p.dlq.Record(retryExecution)
		return
	}

	policy := p.config.RetryPolicyFor(priority)
	if policy.Exhausted(attempts) {
		p.dlq.Record(retryExecution)
		return
	}

	// Attempts and backoff eligibility live in the caller's durable state; the
	// in-memory lane just needs the execution back for a future tick.
	if !p.queue.EnqueueExecution(retryExecution) {
		p.dlq.Record(retryExecution)
		return
	}

	p.metrics.JobRetried(ctx, p.name, priority.String())
	p.logger.Info("job scheduled for retry",
		slog.String("processor", p.name),
		slog.String("execution_id", execution.ID.String()),
		slog.Int("attempt", attempts),
		slog.Int("max_attempts", policy.MaxAttempts),
		slog.Duration("delay", policy.DelayForAttempt(attempts)),
	)
}
