package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/simpix/loanflow/internal/database"
	apperrors "github.com/simpix/loanflow/internal/errors"
	jobsDomain "github.com/simpix/loanflow/internal/jobs/domain"
)

// MySQLJobRepository implements job persistence for MySQL. MySQL has no
// RETURNING clause, so conditional updates are followed by a read where the
// caller needs the row back.
type MySQLJobRepository struct {
	db *sql.DB
}

// NewMySQLJobRepository creates a new MySQL job repository.
func NewMySQLJobRepository(db *sql.DB) *MySQLJobRepository {
	return &MySQLJobRepository{db: db}
}

// Create inserts a new job row.
func (m *MySQLJobRepository) Create(ctx context.Context, job *jobsDomain.Job) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO jobs (id, type, payload, attempt, max_attempts, status, next_run_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		job.ID.String(),
		string(job.Type),
		[]byte(job.Payload),
		job.Attempt,
		job.MaxAttempts,
		string(job.Status),
		job.NextRunAt,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create job")
	}

	return nil
}

// Get loads a job by id.
func (m *MySQLJobRepository) Get(ctx context.Context, id uuid.UUID) (*jobsDomain.Job, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, type, payload, attempt, max_attempts, status, next_run_at, last_error, created_at, updated_at
			  FROM jobs
			  WHERE id = ?`

	return scanJob(querier.QueryRowContext(ctx, query, id.String()))
}

// Claim atomically flips a waiting, due job to active so exactly one worker
// owns it. Returns ErrAlreadyClaimed when another worker won the race or the
// job is not eligible.
func (m *MySQLJobRepository) Claim(ctx context.Context, id uuid.UUID, now time.Time) (*jobsDomain.Job, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE jobs
			  SET status = ?, updated_at = ?
			  WHERE id = ? AND status = ? AND next_run_at <= ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(jobsDomain.JobStatusActive),
		now,
		id.String(),
		string(jobsDomain.JobStatusWaiting),
		now,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to claim job")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return nil, jobsDomain.ErrAlreadyClaimed
	}

	return m.Get(ctx, id)
}

// MarkCompleted finishes a job successfully. Only the active owner may complete it.
func (m *MySQLJobRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return m.finishActive(ctx, id, jobsDomain.JobStatusCompleted, nil, nil)
}

// MarkRetry schedules another attempt: the job returns to waiting with the
// failed attempt count and the backoff deadline recorded.
func (m *MySQLJobRepository) MarkRetry(
	ctx context.Context,
	id uuid.UUID,
	attempt int,
	nextRunAt time.Time,
	lastError string,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE jobs
			  SET status = ?, attempt = ?, next_run_at = ?, last_error = ?, updated_at = ?
			  WHERE id = ? AND status = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(jobsDomain.JobStatusWaiting),
		attempt,
		nextRunAt,
		lastError,
		time.Now().UTC(),
		id.String(),
		string(jobsDomain.JobStatusActive),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to schedule job retry")
	}

	return requireOneRow(result, "job not active")
}

// MarkDeadLetter moves an exhausted job to its terminal dead-letter state.
func (m *MySQLJobRepository) MarkDeadLetter(
	ctx context.Context,
	id uuid.UUID,
	attempt int,
	lastError string,
) error {
	return m.finishActive(ctx, id, jobsDomain.JobStatusDeadLetter, &attempt, &lastError)
}

func (m *MySQLJobRepository) finishActive(
	ctx context.Context,
	id uuid.UUID,
	status jobsDomain.JobStatus,
	attempt *int,
	lastError *string,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE jobs
			  SET status = ?,
			      attempt = COALESCE(?, attempt),
			      last_error = COALESCE(?, last_error),
			      updated_at = ?
			  WHERE id = ? AND status = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(status),
		attempt,
		lastError,
		time.Now().UTC(),
		id.String(),
		string(jobsDomain.JobStatusActive),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to finish job")
	}

	return requireOneRow(result, "job not active")
}

// ReclaimStuck returns orphaned active jobs (no update since olderThan) to the
// waiting state and reports their ids so the sweeper can re-enqueue them.
// MySQL cannot update and select the same table in one statement, so the ids
// are read first; the per-id conditional update keeps the flip race-safe.
func (m *MySQLJobRepository) ReclaimStuck(
	ctx context.Context,
	olderThan time.Time,
	limit int,
) ([]uuid.UUID, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id FROM jobs
			  WHERE status = ? AND updated_at < ?
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, string(jobsDomain.JobStatusActive), olderThan, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list stuck jobs")
	}
	defer func() {
		_ = rows.Close()
	}()

	var candidates []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan stuck job id")
		}
		candidates = append(candidates, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate stuck jobs")
	}

	update := `UPDATE jobs
			   SET status = ?, updated_at = ?
			   WHERE id = ? AND status = ?`

	var reclaimed []uuid.UUID
	for _, id := range candidates {
		result, err := querier.ExecContext(
			ctx,
			update,
			string(jobsDomain.JobStatusWaiting),
			time.Now().UTC(),
			id.String(),
			string(jobsDomain.JobStatusActive),
		)
		if err != nil {
			return reclaimed, apperrors.Wrap(err, "failed to reclaim stuck job")
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return reclaimed, apperrors.Wrap(err, "failed to read affected rows")
		}
		if affected > 0 {
			reclaimed = append(reclaimed, id)
		}
	}

	return reclaimed, nil
}

// ListDueWaiting returns waiting jobs whose due time passed before dueBefore.
// The sweeper pushes them back to the broker: a waiting row is only overdue
// when its queue entry was lost (failed push, broker data loss, crash between
// dequeue and claim). Duplicate pushes are harmless, the claim CAS admits one
// owner.
func (m *MySQLJobRepository) ListDueWaiting(
	ctx context.Context,
	dueBefore time.Time,
	limit int,
) ([]uuid.UUID, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id FROM jobs
			  WHERE status = ? AND next_run_at < ?
			  ORDER BY next_run_at
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, string(jobsDomain.JobStatusWaiting), dueBefore, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list due waiting jobs")
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan due waiting job id")
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate due waiting jobs")
	}

	return ids, nil
}

// ListDeadLetters retrieves dead-lettered jobs, newest first, with pagination.
func (m *MySQLJobRepository) ListDeadLetters(
	ctx context.Context,
	offset, limit int,
) ([]*jobsDomain.Job, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, type, payload, attempt, max_attempts, status, next_run_at, last_error, created_at, updated_at
			  FROM jobs
			  WHERE status = ?
			  ORDER BY updated_at DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, string(jobsDomain.JobStatusDeadLetter), limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list dead letters")
	}
	defer func() {
		_ = rows.Close()
	}()

	jobs := make([]*jobsDomain.Job, 0)
	for rows.Next() {
		job, err := scanJobRow(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate dead letters")
	}

	return jobs, nil
}

// RequeueDeadLetter resets a dead-lettered job so it runs again.
func (m *MySQLJobRepository) RequeueDeadLetter(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE jobs
			  SET status = ?, attempt = 0, next_run_at = ?, updated_at = ?
			  WHERE id = ? AND status = ?`

	now := time.Now().UTC()
	result, err := querier.ExecContext(
		ctx,
		query,
		string(jobsDomain.JobStatusWaiting),
		now,
		now,
		id.String(),
		string(jobsDomain.JobStatusDeadLetter),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to requeue dead letter")
	}

	return requireOneRow(result, "job not dead-lettered")
}
