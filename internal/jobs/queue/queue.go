// Package queue provides the job queue abstraction. The database row is the
// source of truth for job state; the queue only carries job ids and wake-up
// timing. Producers and workers depend on the Queue interface alone, so the
// durable Redis implementation and the in-memory implementation are
// interchangeable.
package queue

import (
	"context"
	"time"
)

// Queue moves job ids between producers and workers.
type Queue interface {
	// Enqueue makes the job id available to workers. A future runAt parks the
	// id in the delayed set until PromoteDue moves it to the ready queue.
	Enqueue(ctx context.Context, jobID string, runAt time.Time) error

	// Dequeue blocks up to wait for a ready job id. Returns an empty string
	// when the wait expires with no job available.
	Dequeue(ctx context.Context, wait time.Duration) (string, error)

	// PromoteDue moves delayed job ids whose run time has passed onto the
	// ready queue. Returns the number of ids promoted.
	PromoteDue(ctx context.Context, now time.Time, batch int64) (int, error)
}
