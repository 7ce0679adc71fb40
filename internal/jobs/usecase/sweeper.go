package usecase

import (
	"context"
	"log/slog"
	"time"

	jobsQueue "github.com/simpix/loanflow/internal/jobs/queue"
	jobsRepository "github.com/simpix/loanflow/internal/jobs/repository"
)

// SweeperConfig tunes the maintenance sweeper.
type SweeperConfig struct {
	// Interval between sweep passes.
	Interval time.Duration
	// StuckThreshold is how long an active job may go without an update
	// before it is considered orphaned.
	StuckThreshold time.Duration
	// RequeueGrace is how long past its due time a waiting job may sit
	// before the sweeper assumes its queue entry is lost and pushes it
	// again. Long enough that normally delivered jobs are claimed first.
	RequeueGrace time.Duration
	// Batch bounds the work done per pass.
	Batch int
}

// Sweeper keeps the queue and the database convergent: it promotes due
// delayed jobs, reclaims jobs whose worker died mid-flight, and re-enqueues
// waiting rows the broker lost.
type Sweeper struct {
	cfg     SweeperConfig
	queue   jobsQueue.Queue
	jobRepo jobsRepository.JobRepository
	logger  *slog.Logger
	now     func() time.Time
}

// NewSweeper creates a sweeper.
func NewSweeper(
	cfg SweeperConfig,
	queue jobsQueue.Queue,
	jobRepo jobsRepository.JobRepository,
	logger *slog.Logger,
) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.StuckThreshold <= 0 {
		cfg.StuckThreshold = 5 * time.Minute
	}
	if cfg.RequeueGrace <= 0 {
		cfg.RequeueGrace = time.Minute
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 100
	}
	return &Sweeper{cfg: cfg, queue: queue, jobRepo: jobRepo, logger: logger, now: time.Now}
}

// Run sweeps on a ticker until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.ErrorContext(ctx, "sweep pass failed", "error", err)
			}
		}
	}
}

// Sweep runs one pass: promote due delayed jobs, reclaim orphans, then
// re-enqueue overdue waiting rows the broker no longer carries. Also invoked
// directly by the sweep CLI command.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := s.now().UTC()

	promoted, err := s.queue.PromoteDue(ctx, now, int64(s.cfg.Batch))
	if err != nil {
		return err
	}
	if promoted > 0 {
		s.logger.InfoContext(ctx, "delayed jobs promoted", "count", promoted)
	}

	ids, err := s.jobRepo.ReclaimStuck(ctx, now.Add(-s.cfg.StuckThreshold), s.cfg.Batch)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.queue.Enqueue(ctx, id.String(), now); err != nil {
			s.logger.WarnContext(ctx, "reclaimed job not enqueued", "job_id", id, "error", err)
		}
	}
	if len(ids) > 0 {
		s.logger.WarnContext(ctx, "stuck jobs reclaimed", "count", len(ids))
	}

	// Waiting rows past their due time plus the grace window have no live
	// queue entry (failed push, broker loss, crash between dequeue and
	// claim). The database row is the source of truth, so push them again;
	// a duplicate push loses the claim CAS and is dropped.
	overdue, err := s.jobRepo.ListDueWaiting(ctx, now.Add(-s.cfg.RequeueGrace), s.cfg.Batch)
	if err != nil {
		return err
	}
	requeued := 0
	for _, id := range overdue {
		if err := s.queue.Enqueue(ctx, id.String(), now); err != nil {
			s.logger.WarnContext(ctx, "overdue waiting job not enqueued", "job_id", id, "error", err)
			continue
		}
		requeued++
	}
	if requeued > 0 {
		s.logger.WarnContext(ctx, "overdue waiting jobs re-enqueued", "count", requeued)
	}

	return nil
}
