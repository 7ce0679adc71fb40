package dto

import (
	"time"

	jobsDomain "github.com/simpix/loanflow/internal/jobs/domain"
)

// EnqueueJobResponse acknowledges an accepted job.
type EnqueueJobResponse struct {
	JobID string `json:"job_id"`
}

// JobResponse is the job status representation.
type JobResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Attempt     int       `json:"attempt"`
	MaxAttempts int       `json:"max_attempts"`
	NextRunAt   time.Time `json:"next_run_at"`
	LastError   *string   `json:"last_error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MapJobToResponse converts a job to its API representation.
func MapJobToResponse(job *jobsDomain.Job) JobResponse {
	return JobResponse{
		ID:          job.ID.String(),
		Type:        string(job.Type),
		Status:      string(job.Status),
		Attempt:     job.Attempt,
		MaxAttempts: job.MaxAttempts,
		NextRunAt:   job.NextRunAt,
		LastError:   job.LastError,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
}

// MapJobsToResponse converts a job list.
func MapJobsToResponse(jobs []*jobsDomain.Job) []JobResponse {
	responses := make([]JobResponse, 0, len(jobs))
	for _, job := range jobs {
		responses = append(responses, MapJobToResponse(job))
	}
	return responses
}
