package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/simpix/loanflow/internal/app"
	"github.com/simpix/loanflow/internal/config"
)

// RunVerifyAuditTrail verifies audit trail integrity: every entry's HMAC
// signature must match and consecutive entries per proposal must chain. With
// a proposal id only that proposal's trail is checked, otherwise the whole
// table is walked in pages.
func RunVerifyAuditTrail(ctx context.Context, proposalID string, batchSize int) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()

	defer closeContainer(container, logger)

	auditTrailUseCase, err := container.AuditTrailUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize audit trail use case: %w", err)
	}

	if proposalID != "" {
		id, err := uuid.Parse(proposalID)
		if err != nil {
			return fmt.Errorf("invalid proposal id %q: %w", proposalID, err)
		}

		if err := auditTrailUseCase.VerifyProposal(ctx, id); err != nil {
			return fmt.Errorf("audit trail verification failed: %w", err)
		}

		logger.Info("audit trail verified", slog.String("proposal_id", id.String()))
		return nil
	}

	checked, err := auditTrailUseCase.VerifyAll(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("audit trail verification failed after %d entries: %w", checked, err)
	}

	logger.Info("audit trail verified", slog.Int("entries_checked", checked))
	return nil
}
