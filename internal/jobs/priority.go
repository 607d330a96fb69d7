// Package jobs provides a bounded, in-memory, priority-aware background job
// framework: multi-lane FIFO queues, declarative retry policies, a dead-letter
// queue for exhausted jobs, and a generic processor that restores tenant scope
// around each handler invocation.
package jobs

// Priority selects a queue lane and the retry/capacity configuration for a job.
// Lower values are drained first.
type Priority int

const (
	// PriorityCritical is for payment-bearing work (target: sub-second latency).
	PriorityCritical Priority = iota
	// PriorityHigh is for time-sensitive work such as device heartbeats.
	PriorityHigh
	// PriorityDefault is for everything else.
	PriorityDefault
)

// Priorities returns all priorities in drain order (highest priority first).
func Priorities() []Priority {
	return []Priority{PriorityCritical, PriorityHigh, PriorityDefault}
}

// String returns the metric tag value for the priority.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityDefault:
		return "default"
	default:
		return "unknown"
	}
}

// Valid reports whether the priority is one of the defined lanes.
func (p Priority) Valid() bool {
	return p >= PriorityCritical && p <= PriorityDefault
}
