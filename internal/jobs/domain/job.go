// Package domain defines the job queue entities: jobs, typed payloads, and the
// retry policy that governs re-attempts.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job is one unit of asynchronous work. The database row is the source of
// truth; the broker only carries job ids. Jobs are mutated exclusively by the
// worker that claimed them or by the stuck-job sweeper.
type Job struct {
	ID          uuid.UUID
	Type        JobType
	Payload     json.RawMessage
	Attempt     int
	MaxAttempts int
	Status      JobStatus
	NextRunAt   time.Time
	LastError   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewJob creates a waiting job ready to be persisted and enqueued.
func NewJob(jobType JobType, payload json.RawMessage, maxAttempts int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.Must(uuid.NewV7()),
		Type:        jobType,
		Payload:     payload,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		Status:      JobStatusWaiting,
		NextRunAt:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Exhausted reports whether the job has consumed its retry budget.
func (j *Job) Exhausted() bool {
	return j.Attempt >= j.MaxAttempts
}
