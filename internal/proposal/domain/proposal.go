package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/simpix/loanflow/internal/errors"
)

// Proposal is the loan proposal aggregate. The status field is unexported so
// the only way to change it is TransitionTo, which consults the state machine.
type Proposal struct {
	ID          uuid.UUID
	CustomerID  uuid.UUID
	AmountCents int64
	status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewProposal creates a draft proposal.
func NewProposal(customerID uuid.UUID, amountCents int64) *Proposal {
	now := time.Now().UTC()
	return &Proposal{
		ID:          uuid.Must(uuid.NewV7()),
		CustomerID:  customerID,
		AmountCents: amountCents,
		status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Restore rebuilds a proposal from persisted state. Repository use only.
func Restore(id, customerID uuid.UUID, amountCents int64, status Status, createdAt, updatedAt time.Time) *Proposal {
	return &Proposal{
		ID:          id,
		CustomerID:  customerID,
		AmountCents: amountCents,
		status:      status,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}

// Status returns the current lifecycle state.
func (p *Proposal) Status() Status {
	return p.status
}

// TransitionTo moves the proposal to the target status, or fails with
// ErrInvalidTransition. A same-status request is an idempotent no-op: the
// second delivery of a webhook must not fail.
func (p *Proposal) TransitionTo(to Status) error {
	if !to.IsValid() {
		return apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("unknown status %q", to))
	}
	if p.status == to {
		return nil
	}
	if !p.status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.status, to)
	}

	p.status = to
	p.UpdatedAt = time.Now().UTC()
	return nil
}
