// Package repository provides SQL persistence for proposals and their
// append-only audit trail.
package repository

import (
	"context"

	"github.com/google/uuid"

	proposalDomain "github.com/simpix/loanflow/internal/proposal/domain"
)

// ProposalRepository is the persistence contract for proposals.
type ProposalRepository interface {
	Create(ctx context.Context, proposal *proposalDomain.Proposal) error
	Get(ctx context.Context, id uuid.UUID) (*proposalDomain.Proposal, error)

	// UpdateStatusIf flips the status only when the stored value still equals
	// from. A zero-row update means a concurrent writer won; the caller gets
	// ErrStatusConflict and retries against the fresh state.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to proposalDomain.Status) error
}

// AuditEntryRepository is the persistence contract for the audit trail.
// Append-only: there is no update or delete operation.
type AuditEntryRepository interface {
	Create(ctx context.Context, entry *proposalDomain.AuditEntry) error
	ListByProposal(ctx context.Context, proposalID uuid.UUID) ([]*proposalDomain.AuditEntry, error)
	ListAll(ctx context.Context, offset, limit int) ([]*proposalDomain.AuditEntry, error)
}

var (
	_ ProposalRepository   = (*PostgreSQLProposalRepository)(nil)
	_ ProposalRepository   = (*MySQLProposalRepository)(nil)
	_ AuditEntryRepository = (*PostgreSQLAuditEntryRepository)(nil)
	_ AuditEntryRepository = (*MySQLAuditEntryRepository)(nil)
)
