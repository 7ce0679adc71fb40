package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue_EnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue(10)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "job-1", time.Now()))
	require.NoError(t, q.Enqueue(ctx, "job-2", time.Now()))

	id, err := q.Dequeue(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "job-1", id)

	id, err = q.Dequeue(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "job-2", id)
}

func TestMemoryQueue_DequeueTimesOutEmpty(t *testing.T) {
	q := NewMemoryQueue(10)

	start := time.Now()
	id, err := q.Dequeue(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestMemoryQueue_DelayedJobNotVisibleUntilPromoted(t *testing.T) {
	q := NewMemoryQueue(10)
	ctx := context.Background()

	runAt := time.Now().Add(time.Hour)
	require.NoError(t, q.Enqueue(ctx, "job-delayed", runAt))

	id, err := q.Dequeue(ctx, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, id)

	// Not yet due.
	promoted, err := q.PromoteDue(ctx, time.Now(), 100)
	require.NoError(t, err)
	assert.Zero(t, promoted)

	// Due once the clock passes runAt.
	promoted, err = q.PromoteDue(ctx, runAt.Add(time.Second), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)

	id, err = q.Dequeue(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "job-delayed", id)
}

func TestMemoryQueue_PromoteDueRespectsBatch(t *testing.T) {
	q := NewMemoryQueue(10)
	ctx := context.Background()
	due := time.Now().Add(time.Minute)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(ctx, id, due))
	}

	promoted, err := q.PromoteDue(ctx, due.Add(time.Second), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, promoted)

	promoted, err = q.PromoteDue(ctx, due.Add(time.Second), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)
}

func TestMemoryQueue_FullReadyBuffer(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "job-1", time.Now()))
	assert.ErrorIs(t, q.Enqueue(ctx, "job-2", time.Now()), ErrQueueFull)
}

func TestMemoryQueue_DequeueHonorsContextCancel(t *testing.T) {
	q := NewMemoryQueue(10)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := q.Dequeue(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
