package breaker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// fakeClock is a manually advanced clock shared with the breaker under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(clock *fakeClock) *Breaker {
	cfg := Config{
		Timeout:                  time.Second,
		ErrorThresholdPercentage: 40,
		VolumeThreshold:          3,
		ResetTimeout:             30 * time.Second,
		RollingWindow:            time.Minute,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New("banking", cfg, logger, nil, WithClock(clock.Now))
}

func failNTimes(b *Breaker, n int) {
	for i := 0; i < n; i++ {
		_ = b.Do(context.Background(), func(ctx context.Context) error {
			return errBoom
		})
	}
}

func TestBreaker_TripsAfterVolumeThreshold(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	// Two failures: below volume threshold, still closed.
	failNTimes(b, 2)
	assert.Equal(t, StateClosed, b.Snapshot().State)

	// Third consecutive failure crosses volume threshold and the 40% error rate.
	failNTimes(b, 1)
	assert.Equal(t, StateOpen, b.Snapshot().State)
}

func TestBreaker_FailsFastWhileOpen(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)
	failNTimes(b, 3)
	require.Equal(t, StateOpen, b.Snapshot().State)

	// While open and before openedUntil, the underlying operation is never invoked.
	var calls atomic.Int32
	err := b.Do(context.Background(), func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	assert.ErrorIs(t, err, ErrOpen)
	assert.Equal(t, int32(0), calls.Load())
}

func TestBreaker_DoesNotTripBelowErrorThreshold(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	// 1 failure out of 4 calls = 25%, below the 40% threshold.
	failNTimes(b, 1)
	for i := 0; i < 3; i++ {
		_ = b.Do(context.Background(), func(ctx context.Context) error { return nil })
	}

	assert.Equal(t, StateClosed, b.Snapshot().State)
}

func TestBreaker_HalfOpenTrialSuccessCloses(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)
	failNTimes(b, 3)
	require.Equal(t, StateOpen, b.Snapshot().State)

	// After the reset timeout, one trial call is let through.
	clock.Advance(31 * time.Second)

	var calls atomic.Int32
	err := b.Do(context.Background(), func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	snap := b.Snapshot()
	assert.Equal(t, StateClosed, snap.State)
	// Counters reset after recovery.
	assert.Equal(t, 0, snap.Failures)
}

func TestBreaker_HalfOpenTrialFailureReopens(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)
	failNTimes(b, 3)
	clock.Advance(31 * time.Second)

	err := b.Do(context.Background(), func(ctx context.Context) error {
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, StateOpen, b.Snapshot().State)

	// The reset timer restarted: calls fail fast again.
	err = b.Do(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBreaker_SingleTrialWhileHalfOpen(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)
	failNTimes(b, 3)
	clock.Advance(31 * time.Second)

	trialStarted := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- b.Do(context.Background(), func(ctx context.Context) error {
			close(trialStarted)
			<-release
			return nil
		})
	}()

	<-trialStarted

	// A second call while the trial is in flight is rejected.
	err := b.Do(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrOpen)

	close(release)
	assert.NoError(t, <-done)
	assert.Equal(t, StateClosed, b.Snapshot().State)
}

func TestBreaker_TimeoutCountsAsFailure(t *testing.T) {
	clock := newFakeClock()
	cfg := Config{
		Timeout:                  20 * time.Millisecond,
		ErrorThresholdPercentage: 40,
		VolumeThreshold:          1,
		ResetTimeout:             30 * time.Second,
		RollingWindow:            time.Minute,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := New("signature", cfg, logger, nil, WithClock(clock.Now))

	err := b.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateOpen, b.Snapshot().State)
}

func TestBreaker_Snapshot(t *testing.T) {
	clock := newFakeClock()
	b := newTestBreaker(clock)

	_ = b.Do(context.Background(), func(ctx context.Context) error { return nil })
	failNTimes(b, 1)

	snap := b.Snapshot()
	assert.Equal(t, "banking", snap.Name)
	assert.Equal(t, StateClosed, snap.State)
	assert.Equal(t, 1, snap.Successes)
	assert.Equal(t, 1, snap.Failures)
}
