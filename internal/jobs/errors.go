package jobs

import "errors"

// nonRetryableError marks a handler failure that must bypass the remaining
// retry budget (data corruption or misconfiguration, not a transient fault).
type nonRetryableError struct {
	err error
}

func (e *nonRetryableError) Error() string {
	return e.err.Error()
}

func (e *nonRetryableError) Unwrap() error {
	return e.err
}

// NonRetryable wraps an error so the processor routes the job straight to the
// dead-letter queue instead of re-enqueueing it.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &nonRetryableError{err: err}
}

// IsNonRetryable reports whether any error in the tree was marked NonRetryable.
func IsNonRetryable(err error) bool {
	var target *nonRetryableError
	return errors.As(err, &target)
}
