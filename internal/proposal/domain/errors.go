package domain

import (
	apperrors "github.com/simpix/loanflow/internal/errors"
)

var (
	// ErrInvalidTransition indicates the state machine forbids the requested
	// status change. Never retried.
	ErrInvalidTransition = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid status transition")

	// ErrStatusConflict indicates a concurrent writer changed the proposal
	// status between read and write. The caller reloads and retries.
	ErrStatusConflict = apperrors.Wrap(apperrors.ErrConflict, "proposal status changed concurrently")

	// ErrAuditSignatureInvalid indicates an audit entry whose signature does
	// not match its content: the trail was tampered with or the signing key
	// changed.
	ErrAuditSignatureInvalid = apperrors.Wrap(apperrors.ErrUnauthorized, "audit entry signature invalid")

	// ErrAuditChainBroken indicates consecutive audit entries whose from/to
	// statuses do not line up.
	ErrAuditChainBroken = apperrors.Wrap(apperrors.ErrConflict, "audit trail chain broken")
)
