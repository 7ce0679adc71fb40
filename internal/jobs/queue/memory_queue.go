package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrQueueFull is returned when the in-memory ready buffer is exhausted.
var ErrQueueFull = errors.New("in-memory queue is full")

// MemoryQueue is the in-memory Queue used by tests and single-process local
// runs. Not durable: pending ids are lost on restart, which is acceptable
// because the stuck-job sweeper re-enqueues from the database.
type MemoryQueue struct {
	ready chan string

	mu      sync.Mutex
	delayed map[string]time.Time
}

// NewMemoryQueue creates an in-memory queue with the given ready capacity.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryQueue{
		ready:   make(chan string, capacity),
		delayed: make(map[string]time.Time),
	}
}

// Enqueue makes the job id available now or at runAt.
func (q *MemoryQueue) Enqueue(ctx context.Context, jobID string, runAt time.Time) error {
	if time.Until(runAt) > 0 {
		q.mu.Lock()
		q.delayed[jobID] = runAt
		q.mu.Unlock()
		return nil
	}

	select {
	case q.ready <- jobID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue blocks up to wait for a ready job id.
func (q *MemoryQueue) Dequeue(ctx context.Context, wait time.Duration) (string, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case id := <-q.ready:
		return id, nil
	case <-timer.C:
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// PromoteDue moves due delayed ids onto the ready channel.
func (q *MemoryQueue) PromoteDue(ctx context.Context, now time.Time, batch int64) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	promoted := 0
	for id, runAt := range q.delayed {
		if int64(promoted) >= batch {
			break
		}
		if runAt.After(now) {
			continue
		}
		select {
		case q.ready <- id:
			delete(q.delayed, id)
			promoted++
		default:
			return promoted, ErrQueueFull
		}
	}

	return promoted, nil
}
