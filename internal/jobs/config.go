package jobs

// Config is an immutable registry mapping priority to queue capacity and retry
// policy. Built once at subsystem initialization; priorities without an
// explicit entry fall back to documented defaults.
type Config struct {
	retryPolicies   map[Priority]RetryPolicy
	queueCapacities map[Priority]int
}

// ConfigBuilder accumulates per-priority settings for an immutable Config.
type ConfigBuilder struct {
	retryPolicies   map[Priority]RetryPolicy
	queueCapacities map[Priority]int
}

// NewConfigBuilder creates an empty config builder.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		retryPolicies:   make(map[Priority]RetryPolicy),
		queueCapacities: make(map[Priority]int),
	}
}

// RetryPolicy sets the retry policy for a priority.
func (b *ConfigBuilder) RetryPolicy(priority Priority, policy RetryPolicy) *ConfigBuilder {
	b.retryPolicies[priority] = policy
	return b
}

// QueueCapacity sets the lane capacity for a priority. Capacities <= 0 are ignored.
func (b *ConfigBuilder) QueueCapacity(priority Priority, capacity int) *ConfigBuilder {
	if capacity > 0 {
		b.queueCapacities[priority] = capacity
	}
	return b
}

// Build returns the immutable config. The builder's maps are copied so later
// builder mutation cannot leak into a built config.
func (b *ConfigBuilder) Build() Config {
	retryPolicies := make(map[Priority]RetryPolicy, len(b.retryPolicies))
	for priority, policy := range b.retryPolicies {
		retryPolicies[priority] = policy
	}
	queueCapacities := make(map[Priority]int, len(b.queueCapacities))
	for priority, capacity := range b.queueCapacities {
		queueCapacities[priority] = capacity
	}
	return Config{retryPolicies: retryPolicies, queueCapacities: queueCapacities}
}

// DefaultConfig returns the default configuration: aggressive retry for
// critical jobs, default retry elsewhere, and bounded lanes sized for a single
// service instance.
func DefaultConfig() Config {
	return NewConfigBuilder().
		RetryPolicy(PriorityCritical, AggressiveRetryPolicy()).
		RetryPolicy(PriorityHigh, DefaultRetryPolicy()).
		RetryPolicy(PriorityDefault, DefaultRetryPolicy()).
		QueueCapacity(PriorityCritical, 1000).
		QueueCapacity(PriorityHigh, 5000).
		QueueCapacity(PriorityDefault, 10000).
		Build()
}

// RetryPolicyFor returns the retry policy for the priority, falling back to
// DefaultRetryPolicy for unconfigured priorities.
func (c Config) RetryPolicyFor(priority Priority) RetryPolicy {
	if policy, ok := c.retryPolicies[priority]; ok {
		return policy
	}
	return DefaultRetryPolicy()
}

// QueueCapacityFor returns the lane capacity for the priority. Priorities with
// no configured capacity are unbounded (returns 0).
func (c Config) QueueCapacityFor(priority Priority) int {
	return c.queueCapacities[priority]
}
