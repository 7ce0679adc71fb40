package domain

import "time"

// RetryPolicy computes the delay before a failed job attempt runs again.
// The policy is pure: a function of the attempt count and configuration only.
// It lives at the queue level and is authoritative; workers never re-declare
// retry settings.
type RetryPolicy struct {
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration
	// CircuitOpenFloor is the minimum delay when the failure was an open
	// circuit breaker, so a breaker that just opened is not hammered.
	CircuitOpenFloor time.Duration
}

// NextDelay returns the backoff before the given attempt is retried.
// attempt is the attempt number that just failed (1-based):
// delay = BaseDelay * 2^(attempt-1), capped at MaxDelay.
func (p RetryPolicy) NextDelay(attempt int, circuitOpen bool) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if circuitOpen && delay < p.CircuitOpenFloor {
		delay = p.CircuitOpenFloor
	}

	return delay
}
