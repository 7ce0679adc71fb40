package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/simpix/loanflow/internal/breaker"
	apperrors "github.com/simpix/loanflow/internal/errors"
	jobsDomain "github.com/simpix/loanflow/internal/jobs/domain"
	jobsQueue "github.com/simpix/loanflow/internal/jobs/queue"
	jobsRepository "github.com/simpix/loanflow/internal/jobs/repository"
	"github.com/simpix/loanflow/internal/metrics"
)

// WorkerConfig tunes the worker pool.
type WorkerConfig struct {
	// Concurrency is the number of consuming goroutines.
	Concurrency int
	// DequeueWait bounds each blocking dequeue so shutdown stays responsive.
	DequeueWait time.Duration
}

// Worker consumes jobs from the queue and drives them to completion,
// retry, or the dead-letter state. At-least-once: a crash between handler
// success and MarkCompleted means a redelivery, which handlers tolerate.
type Worker struct {
	cfg      WorkerConfig
	queue    jobsQueue.Queue
	jobRepo  jobsRepository.JobRepository
	handlers HandlerRegistry
	policy   jobsDomain.RetryPolicy
	metrics  metrics.BusinessMetrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewWorker creates a worker pool over the given queue and handlers.
func NewWorker(
	cfg WorkerConfig,
	queue jobsQueue.Queue,
	jobRepo jobsRepository.JobRepository,
	handlers HandlerRegistry,
	policy jobsDomain.RetryPolicy,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.DequeueWait <= 0 {
		cfg.DequeueWait = 5 * time.Second
	}
	return &Worker{
		cfg:      cfg,
		queue:    queue,
		jobRepo:  jobRepo,
		handlers: handlers,
		policy:   policy,
		metrics:  businessMetrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Run blocks consuming jobs until the context is canceled. In-flight jobs
// finish before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < w.cfg.Concurrency; i++ {
		g.Go(func() error {
			return w.consume(ctx)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) consume(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		id, err := w.queue.Dequeue(ctx, w.cfg.DequeueWait)
		if err != nil {
			// Only our own context ends the loop. A deadline surfaced by the
			// queue belongs to the bounded wait, not to us; bailing on it
			// would silently shrink the pool.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !errors.Is(err, context.DeadlineExceeded) {
				w.logger.ErrorContext(ctx, "dequeue failed", "error", err)
			}
			continue
		}
		if id == "" {
			continue
		}

		w.processID(ctx, id)
	}
}

func (w *Worker) processID(ctx context.Context, id string) {
	jobID, err := uuid.Parse(id)
	if err != nil {
		w.logger.ErrorContext(ctx, "discarding malformed job id", "job_id", id, "error", err)
		return
	}

	job, err := w.jobRepo.Claim(ctx, jobID, w.now().UTC())
	if err != nil {
		if errors.Is(err, jobsDomain.ErrAlreadyClaimed) || apperrors.Is(err, apperrors.ErrNotFound) {
			// Another worker owns it, or the row is gone. Not ours to run.
			return
		}
		w.logger.ErrorContext(ctx, "claim failed", "job_id", jobID, "error", err)
		return
	}

	w.process(ctx, job)
}

// process runs one claimed job through its handler and settles the outcome.
func (w *Worker) process(ctx context.Context, job *jobsDomain.Job) {
	started := w.now()

	err := w.dispatch(ctx, job)

	duration := w.now().Sub(started)

	if err == nil {
		if markErr := w.jobRepo.MarkCompleted(ctx, job.ID); markErr != nil {
			w.logger.ErrorContext(ctx, "failed to mark job completed", "job_id", job.ID, "error", markErr)
			return
		}
		w.metrics.RecordJob(ctx, string(job.Type), "completed")
		w.metrics.RecordJobDuration(ctx, string(job.Type), duration, "completed")
		w.logger.InfoContext(ctx, "job completed", "job_id", job.ID, "job_type", job.Type, "attempt", job.Attempt+1)
		return
	}

	w.settleFailure(ctx, job, err, duration)
}

func (w *Worker) dispatch(ctx context.Context, job *jobsDomain.Job) error {
	handler, ok := w.handlers[job.Type]
	if !ok {
		return jobsDomain.ErrUnknownJobType
	}

	payload, err := jobsDomain.ParsePayload(job.Type, job.Payload)
	if err != nil {
		return err
	}

	return handler.Handle(ctx, job, payload)
}

func (w *Worker) settleFailure(ctx context.Context, job *jobsDomain.Job, cause error, duration time.Duration) {
	attempt := job.Attempt + 1
	circuitOpen := errors.Is(cause, breaker.ErrOpen)

	// Poison jobs (unknown type, malformed payload) can never succeed, so
	// they skip the retry budget entirely.
	poison := errors.Is(cause, jobsDomain.ErrUnknownJobType) || apperrors.Is(cause, apperrors.ErrInvalidInput)

	if poison || attempt >= job.MaxAttempts {
		if err := w.jobRepo.MarkDeadLetter(ctx, job.ID, attempt, cause.Error()); err != nil {
			w.logger.ErrorContext(ctx, "failed to dead-letter job", "job_id", job.ID, "error", err)
			return
		}
		w.metrics.RecordJob(ctx, string(job.Type), "dead_letter")
		w.metrics.RecordJobDuration(ctx, string(job.Type), duration, "dead_letter")
		w.metrics.RecordDeadLetter(ctx, string(job.Type))
		w.logger.ErrorContext(ctx, "job moved to dead letter",
			"job_id", job.ID,
			"job_type", job.Type,
			"attempt", attempt,
			"max_attempts", job.MaxAttempts,
			"error", cause,
		)
		return
	}

	delay := w.policy.NextDelay(attempt, circuitOpen)
	nextRunAt := w.now().UTC().Add(delay)

	if err := w.jobRepo.MarkRetry(ctx, job.ID, attempt, nextRunAt, cause.Error()); err != nil {
		w.logger.ErrorContext(ctx, "failed to schedule retry", "job_id", job.ID, "error", err)
		return
	}
	if err := w.queue.Enqueue(ctx, job.ID.String(), nextRunAt); err != nil {
		// Row is waiting with a due time; the sweeper promotes it.
		w.logger.WarnContext(ctx, "retry not enqueued, sweeper will promote it", "job_id", job.ID, "error", err)
	}

	w.metrics.RecordJob(ctx, string(job.Type), "retried")
	w.metrics.RecordJobDuration(ctx, string(job.Type), duration, "retried")
	w.logger.WarnContext(ctx, "job failed, retry scheduled",
		"job_id", job.ID,
		"job_type", job.Type,
		"attempt", attempt,
		"delay", delay,
		"circuit_open", circuitOpen,
		"error", cause,
	)
}
