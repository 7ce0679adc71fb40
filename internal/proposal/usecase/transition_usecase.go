package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/simpix/loanflow/internal/database"
	apperrors "github.com/simpix/loanflow/internal/errors"
	"github.com/simpix/loanflow/internal/metrics"
	proposalDomain "github.com/simpix/loanflow/internal/proposal/domain"
	proposalRepository "github.com/simpix/loanflow/internal/proposal/repository"
	proposalService "github.com/simpix/loanflow/internal/proposal/service"
)

// maxTransitionRetries bounds how often a losing writer re-validates against
// the fresh status before giving up.
const maxTransitionRetries = 3

type transitionUseCase struct {
	proposalRepo proposalRepository.ProposalRepository
	auditRepo    proposalRepository.AuditEntryRepository
	signer       proposalService.AuditSigner
	txManager    database.TxManager
	metrics      metrics.BusinessMetrics
	logger       *slog.Logger
}

// NewTransitionUseCase creates the transition use case.
func NewTransitionUseCase(
	proposalRepo proposalRepository.ProposalRepository,
	auditRepo proposalRepository.AuditEntryRepository,
	signer proposalService.AuditSigner,
	txManager database.TxManager,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) TransitionUseCase {
	return &transitionUseCase{
		proposalRepo: proposalRepo,
		auditRepo:    auditRepo,
		signer:       signer,
		txManager:    txManager,
		metrics:      businessMetrics,
		logger:       logger,
	}
}

// Transition validates the requested status change against the state machine
// and applies it atomically with its audit entry. Concurrent writers are
// serialized by a conditional update: the loser reloads and re-validates
// against the now-current status.
func (u *transitionUseCase) Transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		result, err := u.tryTransition(ctx, req)
		if err != nil {
			if apperrors.Is(err, proposalDomain.ErrStatusConflict) {
				u.logger.WarnContext(ctx, "transition lost status race, retrying",
					"proposal_id", req.ProposalID,
					"to", req.To,
					"attempt", attempt+1,
				)
				continue
			}
			u.metrics.RecordTransition(ctx, string(req.To), transitionOutcome(err))
			return nil, err
		}

		outcome := "success"
		if result.Noop {
			outcome = "noop"
		}
		u.metrics.RecordTransition(ctx, string(req.To), outcome)
		return result, nil
	}

	u.metrics.RecordTransition(ctx, string(req.To), "error")
	return nil, fmt.Errorf("%w: retries exhausted", proposalDomain.ErrStatusConflict)
}

func (u *transitionUseCase) tryTransition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	proposal, err := u.proposalRepo.Get(ctx, req.ProposalID)
	if err != nil {
		return nil, err
	}

	from := proposal.Status()

	// Same-status requests succeed without writing anything: webhook
	// redeliveries must not fail and must not duplicate audit entries.
	if from == req.To {
		return &TransitionResult{From: from, To: req.To, Noop: true}, nil
	}

	if err := proposal.TransitionTo(req.To); err != nil {
		return nil, err
	}

	entry := proposalDomain.NewAuditEntry(req.ProposalID, from, req.To, req.TriggeredBy, req.Metadata)
	signature, err := u.signer.Sign(entry)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to sign audit entry")
	}
	entry.Signature = signature

	// Status update and audit entry commit together or not at all.
	err = u.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := u.proposalRepo.UpdateStatusIf(ctx, req.ProposalID, from, req.To); err != nil {
			return err
		}
		return u.auditRepo.Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	u.logger.InfoContext(ctx, "proposal status changed",
		"proposal_id", req.ProposalID,
		"from", from,
		"to", req.To,
		"triggered_by", req.TriggeredBy,
	)

	return &TransitionResult{From: from, To: req.To}, nil
}

func transitionOutcome(err error) string {
	if apperrors.Is(err, proposalDomain.ErrInvalidTransition) {
		return "invalid"
	}
	return "error"
}
