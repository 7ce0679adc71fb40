package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/simpix/loanflow/internal/app"
	"github.com/simpix/loanflow/internal/config"
)

// RunRequeueDeadLetter resurrects a dead-lettered job: the attempt counter is
// reset and the job becomes visible to workers again.
func RunRequeueDeadLetter(ctx context.Context, jobID string) error {
	id, err := uuid.Parse(jobID)
	if err != nil {
		return fmt.Errorf("invalid job id %q: %w", jobID, err)
	}

	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()

	defer closeContainer(container, logger)

	deadLetterUseCase, err := container.DeadLetterUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize dead-letter use case: %w", err)
	}

	if err := deadLetterUseCase.Requeue(ctx, id); err != nil {
		return fmt.Errorf("failed to requeue job: %w", err)
	}

	logger.Info("job requeued", slog.String("job_id", id.String()))
	return nil
}
