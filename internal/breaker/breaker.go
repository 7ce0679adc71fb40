// Package breaker implements the circuit breaker pattern around calls to
// unreliable external dependencies. Each breaker tracks a rolling failure
// rate and flips between closed, open, and half-open so a failing dependency
// is not hammered while it recovers.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/simpix/loanflow/internal/metrics"
)

// ErrOpen is returned when the breaker rejects a call without invoking the
// underlying operation.
var ErrOpen = errors.New("circuit breaker is open")

// State represents the breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// numBuckets is the number of buckets the rolling window is divided into.
const numBuckets = 10

// Config holds breaker settings for one external dependency.
type Config struct {
	// Timeout bounds each call; an expired timeout counts as a failure.
	Timeout time.Duration
	// ErrorThresholdPercentage is the failure rate (0-100) that trips the breaker.
	ErrorThresholdPercentage int
	// VolumeThreshold is the minimum number of calls in the rolling window
	// before the breaker may trip.
	VolumeThreshold int
	// ResetTimeout is how long the breaker stays open before a half-open trial.
	ResetTimeout time.Duration
	// RollingWindow is the width of the rolling failure-rate window.
	RollingWindow time.Duration
}

// Snapshot is a point-in-time view of a breaker, exposed to operators.
type Snapshot struct {
	Name              string    `json:"name"`
	State             State     `json:"state"`
	Successes         int       `json:"successes"`
	Failures          int       `json:"failures"`
	OpenedUntil       time.Time `json:"opened_until,omitzero"`
	LastStateChangeAt time.Time `json:"last_state_change_at"`
}

// bucket aggregates call outcomes for one slice of the rolling window.
type bucket struct {
	start     time.Time
	successes int
	failures  int
}

// Breaker guards calls to a single external dependency. State and counters are
// owned exclusively by the breaker and guarded by its mutex; they are never
// persisted and live for the process lifetime.
type Breaker struct {
	name    string
	cfg     Config
	logger  *slog.Logger
	metrics metrics.BusinessMetrics
	now     func() time.Time

	mu                sync.Mutex
	state             State
	openedUntil       time.Time
	lastStateChangeAt time.Time
	trialInFlight     bool
	buckets           []bucket
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithClock overrides the breaker clock. Used by tests to control time.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// New creates a closed breaker for the named dependency.
func New(name string, cfg Config, logger *slog.Logger, bm metrics.BusinessMetrics, opts ...Option) *Breaker {
	b := &Breaker{
		name:    name,
		cfg:     cfg,
		logger:  logger,
		metrics: bm,
		now:     time.Now,
		state:   StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastStateChangeAt = b.now()
	return b
}

// Do executes op through the breaker. While open it fails fast with ErrOpen
// without invoking op. The call is bounded by the configured timeout; a
// timeout counts as a failure. At most one trial call runs while half-open.
func (b *Breaker) Do(ctx context.Context, op func(ctx context.Context) error) error {
	trial, err := b.admit()
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	// Run the operation in its own goroutine so the wait stays bounded even
	// if op ignores context cancellation. The goroutine owns the buffered
	// channel and never blocks on send.
	done := make(chan error, 1)
	go func() {
		done <- op(callCtx)
	}()

	select {
	case opErr := <-done:
		b.record(trial, opErr == nil)
		return opErr
	case <-callCtx.Done():
		b.record(trial, false)
		return callCtx.Err()
	}
}

// admit decides whether the next call may proceed. The second return is true
// when the call is the single half-open trial.
func (b *Breaker) admit() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return false, nil
	case StateOpen:
		if b.now().Before(b.openedUntil) {
			return false, ErrOpen
		}
		// Reset timeout elapsed: let exactly this call through as a trial.
		b.setState(StateHalfOpen)
		b.trialInFlight = true
		return true, nil
	case StateHalfOpen:
		if b.trialInFlight {
			return false, ErrOpen
		}
		b.trialInFlight = true
		return true, nil
	}
	return false, nil
}

// record applies a call outcome to the breaker state.
func (b *Breaker) record(trial, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if trial {
		b.trialInFlight = false
		if success {
			b.reset()
			b.setState(StateClosed)
		} else {
			b.open()
		}
		return
	}

	// A non-trial outcome arriving while not closed (e.g. a slow call that
	// started before the breaker opened) only feeds the counters.
	b.count(success)

	if b.state != StateClosed {
		return
	}

	total, failures := b.windowCounts()
	if total < b.cfg.VolumeThreshold {
		return
	}
	if failures*100 > total*b.cfg.ErrorThresholdPercentage {
		b.open()
	}
}

// open trips the breaker and starts the reset timer. Caller holds the mutex.
func (b *Breaker) open() {
	b.openedUntil = b.now().Add(b.cfg.ResetTimeout)
	b.setState(StateOpen)
}

// reset clears the rolling window counters. Caller holds the mutex.
func (b *Breaker) reset() {
	b.buckets = nil
	b.openedUntil = time.Time{}
}

// setState transitions the breaker state with logging and metrics.
// Caller holds the mutex.
func (b *Breaker) setState(s State) {
	if b.state == s {
		return
	}
	b.state = s
	b.lastStateChangeAt = b.now()

	if b.logger != nil {
		b.logger.Warn("circuit breaker state change",
			slog.String("breaker", b.name),
			slog.String("state", string(s)),
		)
	}
	if b.metrics != nil {
		b.metrics.RecordBreakerState(context.Background(), b.name, string(s))
	}
}

// count records one outcome into the current bucket. Caller holds the mutex.
func (b *Breaker) count(success bool) {
	now := b.now()
	width := b.cfg.RollingWindow / numBuckets
	if width <= 0 {
		width = time.Second
	}

	b.pruneExpired(now)

	if n := len(b.buckets); n == 0 || now.Sub(b.buckets[n-1].start) >= width {
		b.buckets = append(b.buckets, bucket{start: now})
	}

	cur := &b.buckets[len(b.buckets)-1]
	if success {
		cur.successes++
	} else {
		cur.failures++
	}
}

// windowCounts returns total and failed calls within the rolling window.
// Caller holds the mutex.
func (b *Breaker) windowCounts() (total, failures int) {
	b.pruneExpired(b.now())
	for _, bk := range b.buckets {
		total += bk.successes + bk.failures
		failures += bk.failures
	}
	return total, failures
}

// pruneExpired drops buckets that fell out of the rolling window.
// Caller holds the mutex.
func (b *Breaker) pruneExpired(now time.Time) {
	cutoff := now.Add(-b.cfg.RollingWindow)
	i := 0
	for i < len(b.buckets) && b.buckets[i].start.Before(cutoff) {
		i++
	}
	if i > 0 {
		b.buckets = b.buckets[i:]
	}
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.name
}

// Snapshot returns a point-in-time view of the breaker for the ops endpoint.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	total, failures := b.windowCounts()
	return Snapshot{
		Name:              b.name,
		State:             b.state,
		Successes:         total - failures,
		Failures:          failures,
		OpenedUntil:       b.openedUntil,
		LastStateChangeAt: b.lastStateChangeAt,
	}
}
