package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	jobsDomain "github.com/simpix/loanflow/internal/jobs/domain"
	jobsQueue "github.com/simpix/loanflow/internal/jobs/queue"
	"github.com/simpix/loanflow/internal/metrics"
)

func TestSweeper_PromotesAndReclaims(t *testing.T) {
	repo := new(mockJobRepository)
	queue := jobsQueue.NewMemoryQueue(10)
	sweeper := NewSweeper(
		SweeperConfig{Interval: time.Minute, StuckThreshold: 5 * time.Minute, Batch: 100},
		queue, repo, slog.New(slog.DiscardHandler),
	)
	// A sweeper clock well ahead of the wall clock, so the delayed job below
	// is due from the sweeper's point of view.
	frozen := time.Now().UTC().Add(24 * time.Hour)
	sweeper.now = func() time.Time { return frozen }

	// A delayed retry whose due time has passed.
	delayedID := uuid.Must(uuid.NewV7())
	require.NoError(t, queue.Enqueue(context.Background(), delayedID.String(), time.Now().Add(time.Hour)))

	// An orphaned active job.
	stuckID := uuid.Must(uuid.NewV7())
	repo.On("ReclaimStuck", mock.Anything, frozen.Add(-5*time.Minute), 100).
		Return([]uuid.UUID{stuckID}, nil)
	repo.On("ListDueWaiting", mock.Anything, mock.Anything, 100).
		Return([]uuid.UUID{}, nil)

	require.NoError(t, sweeper.Sweep(context.Background()))

	// Both ids are now visible to workers. The delayed id was promoted because
	// the sweeper clock is far in the future.
	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		id, err := queue.Dequeue(context.Background(), 50*time.Millisecond)
		require.NoError(t, err)
		got[id] = true
	}
	assert.True(t, got[delayedID.String()])
	assert.True(t, got[stuckID.String()])
	repo.AssertExpectations(t)
}

func TestSweeper_NothingToDo(t *testing.T) {
	repo := new(mockJobRepository)
	queue := jobsQueue.NewMemoryQueue(10)
	sweeper := NewSweeper(SweeperConfig{}, queue, repo, slog.New(slog.DiscardHandler))

	repo.On("ReclaimStuck", mock.Anything, mock.Anything, mock.Anything).
		Return([]uuid.UUID{}, nil)
	repo.On("ListDueWaiting", mock.Anything, mock.Anything, mock.Anything).
		Return([]uuid.UUID{}, nil)

	assert.NoError(t, sweeper.Sweep(context.Background()))
}

func TestSweeper_RequeuesWaitingRowLostByBroker(t *testing.T) {
	repo := new(mockJobRepository)

	// A tiny queue already at capacity: the producer's push fails, but the
	// row is persisted and the producer is told success.
	queue := jobsQueue.NewMemoryQueue(1)
	require.NoError(t, queue.Enqueue(context.Background(), "filler", time.Time{}))

	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	enqueuer := NewEnqueueUseCase(
		repo, queue, map[jobsDomain.JobType]int{},
		metrics.NoopBusinessMetrics(), slog.New(slog.DiscardHandler),
	)

	jobID, err := enqueuer.Enqueue(
		context.Background(),
		jobsDomain.JobTypeGenerateDocument,
		json.RawMessage(`{"proposal_id":"4f9d64f3-0000-7000-8000-000000000001"}`),
	)
	require.NoError(t, err)

	// The broker never saw the job: draining the queue yields only the filler.
	id, err := queue.Dequeue(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, "filler", id)

	// The database still carries the waiting row past its grace window; the
	// sweeper pushes it back.
	sweeper := NewSweeper(
		SweeperConfig{Interval: time.Minute, StuckThreshold: 5 * time.Minute, RequeueGrace: time.Minute, Batch: 100},
		queue, repo, slog.New(slog.DiscardHandler),
	)
	repo.On("ReclaimStuck", mock.Anything, mock.Anything, mock.Anything).
		Return([]uuid.UUID{}, nil)
	repo.On("ListDueWaiting", mock.Anything, mock.Anything, 100).
		Return([]uuid.UUID{jobID}, nil)

	require.NoError(t, sweeper.Sweep(context.Background()))

	id, err = queue.Dequeue(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, jobID.String(), id)
	repo.AssertExpectations(t)
}
