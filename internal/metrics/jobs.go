package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// JobMetrics defines the interface for recording background job metrics.
// Implementations track queue depths, lifecycle counters, and processing
// durations for the priority queues, processors, and dead-letter queues.
type JobMetrics interface {
	// JobEnqueued records a successful enqueue on the named queue.
	JobEnqueued(ctx context.Context, queue, priority string)

	// QueueOverflow records a rejected enqueue due to a lane at capacity.
	// A growing overflow count means producers are outpacing the dispatcher.
	QueueOverflow(ctx context.Context, queue, priority string)

	// RecordQueueDepth records the current depth of a priority lane.
	RecordQueueDepth(ctx context.Context, queue, priority string, depth int64)

	// JobProcessed records one handler invocation with its status and duration.
	// Status examples: "success", "failed".
	JobProcessed(ctx context.Context, processor, priority, status string, duration time.Duration)

	// JobRetried records a failed job being re-enqueued for another attempt.
	JobRetried(ctx context.Context, processor, priority string)

	// DeadLettered records a job routed to the dead-letter queue. This counter
	// is the primary operator signal of systemic failure downstream.
	DeadLettered(ctx context.Context, queue, priority string)

	// RecordDeadLetterDepth records the current dead-letter queue depth.
	RecordDeadLetterDepth(ctx context.Context, queue string, depth int64)
}

// jobMetrics implements JobMetrics using OpenTelemetry metrics.
type jobMetrics struct {
	enqueuedCounter   metric.Int64Counter
	overflowCounter   metric.Int64Counter
	queueDepthGauge   metric.Int64Gauge
	processedCounter  metric.Int64Counter
	durationHisto     metric.Float64Histogram
	retriedCounter    metric.Int64Counter
	deadLetterCounter metric.Int64Counter
	deadLetterGauge   metric.Int64Gauge
}

// NewJobMetrics creates a new JobMetrics implementation using the provided meter provider.
// The namespace parameter is used as a prefix for all metric names (e.g., "possync").
// Returns error if meters cannot be initialized.
func NewJobMetrics(meterProvider metric.MeterProvider, namespace string) (JobMetrics, error) {
	meter := meterProvider.Meter(namespace)

	enqueuedCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_jobs_enqueued_total", namespace),
		metric.WithDescription("Total number of jobs enqueued"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create enqueued counter: %w", err)
	}

	overflowCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_queue_overflow_total", namespace),
		metric.WithDescription("Total number of enqueues rejected by a full lane"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create overflow counter: %w", err)
	}

	queueDepthGauge, err := meter.Int64Gauge(
		fmt.Sprintf("%s_queue_depth", namespace),
		metric.WithDescription("Current depth of each priority lane"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create queue depth gauge: %w", err)
	}

	processedCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_jobs_processed_total", namespace),
		metric.WithDescription("Total number of processed jobs by status"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create processed counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_job_duration_seconds", namespace),
		metric.WithDescription("Duration of job handler invocations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	retriedCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_jobs_retried_total", namespace),
		metric.WithDescription("Total number of jobs re-enqueued after a failure"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retried counter: %w", err)
	}

	deadLetterCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_dead_letter_total", namespace),
		metric.WithDescription("Total number of jobs routed to the dead-letter queue"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dead letter counter: %w", err)
	}

	deadLetterGauge, err := meter.Int64Gauge(
		fmt.Sprintf("%s_dead_letter_depth", namespace),
		metric.WithDescription("Current depth of the dead-letter queue"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dead letter gauge: %w", err)
	}

	return &jobMetrics{
		enqueuedCounter:   enqueuedCounter,
		overflowCounter:   overflowCounter,
		queueDepthGauge:   queueDepthGauge,
		processedCounter:  processedCounter,
		durationHisto:     durationHisto,
		retriedCounter:    retriedCounter,
		deadLetterCounter: deadLetterCounter,
		deadLetterGauge:   deadLetterGauge,
	}, nil
}

func (j *jobMetrics) JobEnqueued(ctx context.Context, queue, priority string) {
	j.enqueuedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("queue", queue),
			attribute.String("priority", priority),
		),
	)
}

func (j *jobMetrics) QueueOverflow(ctx context.Context, queue, priority string) {
	j.overflowCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("queue", queue),
			attribute.String("priority", priority),
		),
	)
}

func (j *jobMetrics) RecordQueueDepth(ctx context.Context, queue, priority string, depth int64) {
	j.queueDepthGauge.Record(ctx, depth,
		metric.WithAttributes(
			attribute.String("queue", queue),
			attribute.String("priority", priority),
		),
	)
}

func (j *jobMetrics) JobProcessed(
	ctx context.Context,
	processor, priority, status string,
	duration time.Duration,
) {
	attrs := metric.WithAttributes(
		attribute.String("processor", processor),
		attribute.String("priority", priority),
		attribute.String("status", status),
	)
	j.processedCounter.Add(ctx, 1, attrs)
	j.durationHisto.Record(ctx, duration.Seconds(), attrs)
}

func (j *jobMetrics) JobRetried(ctx context.Context, processor, priority string) {
	j.retriedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("processor", processor),
			attribute.String("priority", priority),
		),
	)
}

func (j *jobMetrics) DeadLettered(ctx context.Context, queue, priority string) {
	j.deadLetterCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("queue", queue),
			attribute.String("priority", priority),
		),
	)
}

func (j *jobMetrics) RecordDeadLetterDepth(ctx context.Context, queue string, depth int64) {
	j.deadLetterGauge.Record(ctx, depth,
		metric.WithAttributes(
			attribute.String("queue", queue),
		),
	)
}

// NoOpJobMetrics is a no-op implementation of JobMetrics for when metrics are disabled.
type NoOpJobMetrics struct{}

// NewNoOpJobMetrics creates a no-op JobMetrics implementation.
func NewNoOpJobMetrics() JobMetrics {
	return &NoOpJobMetrics{}
}

// JobEnqueued does nothing when metrics are disabled.
func (n *NoOpJobMetrics) JobEnqueued(ctx context.Context, queue, priority string) {
	// No-op
}

// QueueOverflow does nothing when metrics are disabled.
func (n *NoOpJobMetrics) QueueOverflow(ctx context.Context, queue, priority string) {
	// No-op
}

// RecordQueueDepth does nothing when metrics are disabled.
func (n *NoOpJobMetrics) RecordQueueDepth(ctx context.Context, queue, priority string, depth int64) {
	// No-op
}

// JobProcessed does nothing when metrics are disabled.
func (n *NoOpJobMetrics) JobProcessed(
	ctx context.Context,
	processor, priority, status string,
	duration time.Duration,
) {
	// No-op
}

// JobRetried does nothing when metrics are disabled.
func (n *NoOpJobMetrics) JobRetried(ctx context.Context, processor, priority string) {
	// No-op
}

// DeadLettered does nothing when metrics are disabled.
func (n *NoOpJobMetrics) DeadLettered(ctx context.Context, queue, priority string) {
	// No-op
}

// RecordDeadLetterDepth does nothing when metrics are disabled.
func (n *NoOpJobMetrics) RecordDeadLetterDepth(ctx context.Context, queue string, depth int64) {
	// No-op
}
