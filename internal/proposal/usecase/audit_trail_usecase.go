package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/simpix/loanflow/internal/errors"
	proposalDomain "github.com/simpix/loanflow/internal/proposal/domain"
	proposalRepository "github.com/simpix/loanflow/internal/proposal/repository"
	proposalService "github.com/simpix/loanflow/internal/proposal/service"
)

type auditTrailUseCase struct {
	auditRepo proposalRepository.AuditEntryRepository
	signer    proposalService.AuditSigner
}

// NewAuditTrailUseCase creates the audit trail use case.
func NewAuditTrailUseCase(
	auditRepo proposalRepository.AuditEntryRepository,
	signer proposalService.AuditSigner,
) AuditTrailUseCase {
	return &auditTrailUseCase{auditRepo: auditRepo, signer: signer}
}

// ListByProposal returns the proposal's trail in insertion order.
func (u *auditTrailUseCase) ListByProposal(
	ctx context.Context,
	proposalID uuid.UUID,
) ([]*proposalDomain.AuditEntry, error) {
	return u.auditRepo.ListByProposal(ctx, proposalID)
}

// VerifyProposal replays one proposal's trail, checking each signature and the
// from/to chain between consecutive entries.
func (u *auditTrailUseCase) VerifyProposal(ctx context.Context, proposalID uuid.UUID) error {
	entries, err := u.auditRepo.ListByProposal(ctx, proposalID)
	if err != nil {
		return err
	}

	return u.verifyChain(entries)
}

// VerifyAll walks the full trail in pages. Entries arrive grouped by proposal,
// so chain continuity is checked per proposal across page boundaries.
func (u *auditTrailUseCase) VerifyAll(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	var (
		checked int
		offset  int
		last    *proposalDomain.AuditEntry
	)

	for {
		entries, err := u.auditRepo.ListAll(ctx, offset, batchSize)
		if err != nil {
			return checked, err
		}
		if len(entries) == 0 {
			return checked, nil
		}

		for _, entry := range entries {
			if err := u.signer.Verify(entry); err != nil {
				return checked, fmt.Errorf("entry %s: %w", entry.ID, err)
			}
			if last != nil && last.ProposalID == entry.ProposalID && last.ToStatus != entry.FromStatus {
				return checked, fmt.Errorf(
					"entry %s: %w: %s does not follow %s",
					entry.ID, proposalDomain.ErrAuditChainBroken, entry.FromStatus, last.ToStatus,
				)
			}
			last = entry
			checked++
		}

		offset += len(entries)
	}
}

func (u *auditTrailUseCase) verifyChain(entries []*proposalDomain.AuditEntry) error {
	for i, entry := range entries {
		if err := u.signer.Verify(entry); err != nil {
			return fmt.Errorf("entry %s: %w", entry.ID, err)
		}
		if i == 0 {
			continue
		}
		if entries[i-1].ToStatus != entry.FromStatus {
			return apperrors.Wrap(
				proposalDomain.ErrAuditChainBroken,
				fmt.Sprintf("entry %s: %s does not follow %s", entry.ID, entry.FromStatus, entries[i-1].ToStatus),
			)
		}
	}
	return nil
}
