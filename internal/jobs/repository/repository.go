package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	jobsDomain "github.com/simpix/loanflow/internal/jobs/domain"
)

// JobRepository is the persistence contract for jobs.
type JobRepository interface {
	Create(ctx context.Context, job *jobsDomain.Job) error
	Get(ctx context.Context, id uuid.UUID) (*jobsDomain.Job, error)
	Claim(ctx context.Context, id uuid.UUID, now time.Time) (*jobsDomain.Job, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkRetry(ctx context.Context, id uuid.UUID, attempt int, nextRunAt time.Time, lastError string) error
	MarkDeadLetter(ctx context.Context, id uuid.UUID, attempt int, lastError string) error
	ReclaimStuck(ctx context.Context, olderThan time.Time, limit int) ([]uuid.UUID, error)
	ListDueWaiting(ctx context.Context, dueBefore time.Time, limit int) ([]uuid.UUID, error)
	ListDeadLetters(ctx context.Context, offset, limit int) ([]*jobsDomain.Job, error)
	RequeueDeadLetter(ctx context.Context, id uuid.UUID) error
}

var (
	_ JobRepository = (*PostgreSQLJobRepository)(nil)
	_ JobRepository = (*MySQLJobRepository)(nil)
)
