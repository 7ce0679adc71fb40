package domain

import (
	apperrors "github.com/simpix/loanflow/internal/errors"
)

var (
	// ErrUnknownJobType indicates a job type no handler is registered for.
	ErrUnknownJobType = apperrors.Wrap(apperrors.ErrInvalidInput, "unknown job type")

	// ErrJobExhausted indicates all attempts were consumed and the job moved
	// to the dead-letter state.
	ErrJobExhausted = apperrors.Wrap(apperrors.ErrConflict, "job retry budget exhausted")

	// ErrAlreadyClaimed indicates another worker claimed the job first.
	ErrAlreadyClaimed = apperrors.Wrap(apperrors.ErrConflict, "job already claimed")

	// ErrTerminalJob indicates an attempt to mutate a completed or
	// dead-lettered job.
	ErrTerminalJob = apperrors.Wrap(apperrors.ErrConflict, "job is in a terminal state")
)
