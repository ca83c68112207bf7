package rategate

import "time"

// Decision is the outcome of one admission check.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Remaining is the admission budget left in the current window
	// (whole tokens for the token bucket). Zero when rejected.
	Remaining int64

	// RetryAfter is the suggested wait before the next attempt.
	// Zero when the caller does not need to back off.
	RetryAfter time.Duration
}

// RetryAfterSeconds returns RetryAfter rounded up to whole seconds, the
// granularity of the Retry-After header and the rejection body.
func (d Decision) RetryAfterSeconds() int64 {
	if d.RetryAfter <= 0 {
		return 0
	}
	secs := int64(d.RetryAfter / time.Second)
	if d.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}
