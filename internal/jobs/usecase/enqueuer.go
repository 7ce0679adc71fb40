package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	jobsDomain "github.com/simpix/loanflow/internal/jobs/domain"
	jobsQueue "github.com/simpix/loanflow/internal/jobs/queue"
	jobsRepository "github.com/simpix/loanflow/internal/jobs/repository"
	"github.com/simpix/loanflow/internal/metrics"
)

type enqueueUseCase struct {
	jobRepo     jobsRepository.JobRepository
	queue       jobsQueue.Queue
	maxAttempts map[jobsDomain.JobType]int
	metrics     metrics.BusinessMetrics
	logger      *slog.Logger
}

// NewEnqueueUseCase creates the enqueue use case. maxAttempts carries the
// per-type retry budget.
func NewEnqueueUseCase(
	jobRepo jobsRepository.JobRepository,
	queue jobsQueue.Queue,
	maxAttempts map[jobsDomain.JobType]int,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) EnqueueUseCase {
	return &enqueueUseCase{
		jobRepo:     jobRepo,
		queue:       queue,
		maxAttempts: maxAttempts,
		metrics:     businessMetrics,
		logger:      logger,
	}
}

// Enqueue validates the payload, persists the job and makes it visible to
// workers. The database row is written before the queue push: if the push
// fails the sweeper will still find the waiting row and re-enqueue it.
func (u *enqueueUseCase) Enqueue(
	ctx context.Context,
	jobType jobsDomain.JobType,
	payload json.RawMessage,
) (uuid.UUID, error) {
	if _, err := jobsDomain.ParsePayload(jobType, payload); err != nil {
		return uuid.Nil, err
	}

	job := jobsDomain.NewJob(jobType, payload, u.maxAttemptsFor(jobType))

	if err := u.jobRepo.Create(ctx, job); err != nil {
		return uuid.Nil, err
	}

	if err := u.queue.Enqueue(ctx, job.ID.String(), job.NextRunAt); err != nil {
		// Row exists, push failed: the sweeper re-enqueues waiting rows, so
		// log and report success to the producer.
		u.logger.WarnContext(ctx, "job persisted but queue push failed",
			"job_id", job.ID, "job_type", jobType, "error", err)
	}

	u.metrics.RecordJob(ctx, string(jobType), "enqueued")
	u.logger.InfoContext(ctx, "job enqueued", "job_id", job.ID, "job_type", jobType)

	return job.ID, nil
}

// GetStatus returns the job row.
func (u *enqueueUseCase) GetStatus(ctx context.Context, id uuid.UUID) (*jobsDomain.Job, error) {
	return u.jobRepo.Get(ctx, id)
}

func (u *enqueueUseCase) maxAttemptsFor(jobType jobsDomain.JobType) int {
	if n, ok := u.maxAttempts[jobType]; ok && n > 0 {
		return n
	}
	return 5
}

type deadLetterUseCase struct {
	jobRepo jobsRepository.JobRepository
	queue   jobsQueue.Queue
	logger  *slog.Logger
}

// NewDeadLetterUseCase creates the dead-letter operator use case.
func NewDeadLetterUseCase(
	jobRepo jobsRepository.JobRepository,
	queue jobsQueue.Queue,
	logger *slog.Logger,
) DeadLetterUseCase {
	return &deadLetterUseCase{jobRepo: jobRepo, queue: queue, logger: logger}
}

// List pages through dead-lettered jobs, newest first.
func (u *deadLetterUseCase) List(ctx context.Context, offset, limit int) ([]*jobsDomain.Job, error) {
	return u.jobRepo.ListDeadLetters(ctx, offset, limit)
}

// Requeue resets a dead-lettered job and pushes it back to the queue.
func (u *deadLetterUseCase) Requeue(ctx context.Context, id uuid.UUID) error {
	if err := u.jobRepo.RequeueDeadLetter(ctx, id); err != nil {
		return err
	}

	if err := u.queue.Enqueue(ctx, id.String(), time.Now().UTC()); err != nil {
		u.logger.WarnContext(ctx, "requeued job not pushed, sweeper will pick it up",
			"job_id", id, "error", err)
	}

	u.logger.InfoContext(ctx, "dead-lettered job requeued", "job_id", id)
	return nil
}
