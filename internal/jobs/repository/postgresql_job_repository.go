// Package repository provides SQL persistence for jobs. The jobs table is the
// source of truth for job state; the broker only carries ids.
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

// PostgreSQLJobRepository implements job persistence for PostgreSQL.
type PostgreSQLJobRepository struct {
	db *sql.DB
}

// NewPostgreSQLJobRepository creates a new PostgreSQL job repository.
func NewPostgreSQLJobRepository(db *sql.DB) *PostgreSQLJobRepository {
	return &PostgreSQLJobRepository{db: db}
}

// Create inserts a new job row.
func (p *PostgreSQLJobRepository) Create(ctx context.Context, job *jobsDomain.Job) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO jobs (id, type, payload, attempt, max_attempts, status, next_run_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := querier.ExecContext(
		ctx,
		query,
		job.ID,
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
func (p *PostgreSQLJobRepository) Get(ctx context.Context, id uuid.UUID) (*jobsDomain.Job, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, type, payload, attempt, max_attempts, status, next_run_at, last_error, created_at, updated_at
			  FROM jobs
			  WHERE id = $1`

	return scanJob(querier.QueryRowContext(ctx, query, id))
}

// Claim atomically flips a waiting, due job to active so exactly one worker
// owns it. Returns ErrAlreadyClaimed when another worker won the race or the
// job is not eligible.
func (p *PostgreSQLJobRepository) Claim(ctx context.Context, id uuid.UUID, now time.Time) (*jobsDomain.Job, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE jobs
			  SET status = $1, updated_at = $2
			  WHERE id = $3 AND status = $4 AND next_run_at <= $2
			  RETURNING id, type, payload, attempt, max_attempts, status, next_run_at, last_error, created_at, updated_at`

	job, err := scanJob(querier.QueryRowContext(
		ctx,
		query,
		string(jobsDomain.JobStatusActive),
		now,
		id,
		string(jobsDomain.JobStatusWaiting),
	))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, jobsDomain.ErrAlreadyClaimed
		}
		return nil, err
	}

	return job, nil
}

// MarkCompleted finishes a job successfully. Only the active owner may complete it.
func (p *PostgreSQLJobRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return p.finishActive(ctx, id, jobsDomain.JobStatusCompleted, nil, nil)
}

// MarkRetry schedules another attempt: the job returns to waiting with the
// failed attempt count and the backoff deadline recorded.
func (p *PostgreSQLJobRepository) MarkRetry(
	ctx context.Context,
	id uuid.UUID,
	attempt int,
	nextRunAt time.Time,
	lastError string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE jobs
			  SET status = $1, attempt = $2, next_run_at = $3, last_error = $4, updated_at = $5
			  WHERE id = $6 AND status = $7`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(jobsDomain.JobStatusWaiting),
		attempt,
		nextRunAt,
		lastError,
		time.Now().UTC(),
		id,
		string(jobsDomain.JobStatusActive),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to schedule job retry")
	}

	return requireOneRow(result, "job not active")
}

// MarkDeadLetter moves an exhausted job to its terminal dead-letter state.
func (p *PostgreSQLJobRepository) MarkDeadLetter(
	ctx context.Context,
	id uuid.UUID,
	attempt int,
	lastError string,
) error {
	return p.finishActive(ctx, id, jobsDomain.JobStatusDeadLetter, &attempt, &lastError)
}

// finishActive transitions an active job into a terminal state.
func (p *PostgreSQLJobRepository) finishActive(
	ctx context.Context,
	id uuid.UUID,
	status jobsDomain.JobStatus,
	attempt *int,
	lastError *string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE jobs
			  SET status = $1,
			      attempt = COALESCE($2, attempt),
			      last_error = COALESCE($3, last_error),
			      updated_at = $4
			  WHERE id = $5 AND status = $6`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(status),
		attempt,
		lastError,
		time.Now().UTC(),
		id,
		string(jobsDomain.JobStatusActive),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to finish job")
	}

	return requireOneRow(result, "job not active")
}

// ReclaimStuck returns orphaned active jobs (no update since olderThan) to the
// waiting state and reports their ids so the sweeper can re-enqueue them.
func (p *PostgreSQLJobRepository) ReclaimStuck(
	ctx context.Context,
	olderThan time.Time,
	limit int,
) ([]uuid.UUID, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE jobs
			  SET status = $1, updated_at = $2
			  WHERE id IN (
			      SELECT id FROM jobs
			      WHERE status = $3 AND updated_at < $4
			      LIMIT $5
			  )
			  RETURNING id`

	rows, err := querier.QueryContext(
		ctx,
		query,
		string(jobsDomain.JobStatusWaiting),
		time.Now().UTC(),
		string(jobsDomain.JobStatusActive),
		olderThan,
		limit,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to reclaim stuck jobs")
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan reclaimed job id")
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate reclaimed jobs")
	}

	return ids, nil
}

// ListDueWaiting returns waiting jobs whose due time passed before dueBefore.
// The sweeper pushes them back to the broker: a waiting row is only overdue
// when its queue entry was lost (failed push, broker data loss, crash between
// dequeue and claim). Duplicate pushes are harmless, the claim CAS admits one
// owner.
func (p *PostgreSQLJobRepository) ListDueWaiting(
	ctx context.Context,
	dueBefore time.Time,
	limit int,
) ([]uuid.UUID, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id FROM jobs
			  WHERE status = $1 AND next_run_at < $2
			  ORDER BY next_run_at
			  LIMIT $3`

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
func (p *PostgreSQLJobRepository) ListDeadLetters(
	ctx context.Context,
	offset, limit int,
) ([]*jobsDomain.Job, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, type, payload, attempt, max_attempts, status, next_run_at, last_error, created_at, updated_at
			  FROM jobs
			  WHERE status = $1
			  ORDER BY updated_at DESC
			  LIMIT $2 OFFSET $3`

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

// RequeueDeadLetter resets a dead-lettered job so it runs again. Ops-driven;
// the attempt counter restarts with the original budget intact.
func (p *PostgreSQLJobRepository) RequeueDeadLetter(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE jobs
			  SET status = $1, attempt = 0, next_run_at = $2, updated_at = $2
			  WHERE id = $3 AND status = $4`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(jobsDomain.JobStatusWaiting),
		time.Now().UTC(),
		id,
		string(jobsDomain.JobStatusDeadLetter),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to requeue dead letter")
	}

	return requireOneRow(result, "job not dead-lettered")
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row *sql.Row) (*jobsDomain.Job, error) {
	job, err := scanJobFields(row)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func scanJobRow(rows *sql.Rows) (*jobsDomain.Job, error) {
	return scanJobFields(rows)
}

func scanJobFields(scanner rowScanner) (*jobsDomain.Job, error) {
	var job jobsDomain.Job
	var jobType, status string
	var payload []byte
	var lastError sql.NullString

	err := scanner.Scan(
		&job.ID,
		&jobType,
		&payload,
		&job.Attempt,
		&job.MaxAttempts,
		&status,
		&job.NextRunAt,
		&lastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, "failed to scan job")
	}

	job.Type = jobsDomain.JobType(jobType)
	job.Status = jobsDomain.JobStatus(status)
	job.Payload = payload
	if lastError.Valid {
		job.LastError = &lastError.String
	}

	return &job, nil
}

// requireOneRow maps a zero-row conditional update to ErrConflict.
func requireOneRow(result sql.Result, message string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return apperrors.Wrap(apperrors.ErrConflict, message)
	}
	return nil
}
