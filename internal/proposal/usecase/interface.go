// Package usecase implements the proposal application services: the atomic
// status transition and audit trail queries.
package usecase

import (
	"context"

	"github.com/google/uuid"

	proposalDomain "github.com/simpix/loanflow/internal/proposal/domain"
)

// TransitionRequest describes one requested status change.
type TransitionRequest struct {
	ProposalID  uuid.UUID
	To          proposalDomain.Status
	TriggeredBy string
	Metadata    map[string]string
}

// TransitionResult reports what the transition did.
type TransitionResult struct {
	From Status
	To   Status
	// Noop is true when the proposal was already in the target status.
	Noop bool
}

// Status re-exports the domain status for handler convenience.
type Status = proposalDomain.Status

// TransitionUseCase applies status transitions atomically with their audit
// entries.
type TransitionUseCase interface {
	Transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error)
}

// AuditTrailUseCase reads and verifies the append-only audit trail.
type AuditTrailUseCase interface {
	ListByProposal(ctx context.Context, proposalID uuid.UUID) ([]*proposalDomain.AuditEntry, error)

	// VerifyProposal replays one proposal's trail: every signature must match
	// and consecutive entries must chain (entry N's to_status equals entry
	// N+1's from_status).
	VerifyProposal(ctx context.Context, proposalID uuid.UUID) error

	// VerifyAll walks the whole trail in pages and returns the number of
	// entries checked.
	VerifyAll(ctx context.Context, batchSize int) (int, error)
}
