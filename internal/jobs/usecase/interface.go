// Package usecase implements the job application services: the enqueue
// boundary, the worker pool, the per-type handlers, and the maintenance
// sweeper.
package usecase

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	jobsDomain "github.com/simpix/loanflow/internal/jobs/domain"
)

// EnqueueUseCase is the producer-side boundary: validate, persist, enqueue.
type EnqueueUseCase interface {
	// Enqueue validates the payload for the job type, persists a waiting job,
	// pushes its id to the queue and returns the id immediately. The producer
	// never blocks on the job running.
	Enqueue(ctx context.Context, jobType jobsDomain.JobType, payload json.RawMessage) (uuid.UUID, error)

	// GetStatus returns the job row for status inspection.
	GetStatus(ctx context.Context, id uuid.UUID) (*jobsDomain.Job, error)
}

// DeadLetterUseCase is the operator surface over the dead-letter state.
type DeadLetterUseCase interface {
	List(ctx context.Context, offset, limit int) ([]*jobsDomain.Job, error)

	// Requeue resurrects a dead-lettered job with a fresh attempt budget and
	// makes it visible to workers again.
	Requeue(ctx context.Context, id uuid.UUID) error
}

// Handler executes one job type. Implementations receive the already-parsed
// typed payload and must be idempotent: at-least-once delivery means a handler
// can run twice for the same job.
type Handler interface {
	Handle(ctx context.Context, job *jobsDomain.Job, payload jobsDomain.Payload) error
}

// HandlerRegistry maps job types to their handlers.
type HandlerRegistry map[jobsDomain.JobType]Handler
