package commands

import (
	"context"
	"fmt"

	"github.com/simpix/loanflow/internal/app"
	"github.com/simpix/loanflow/internal/config"
)

// RunSweep executes one sweep pass: promote due delayed jobs to the ready
// queue and reclaim jobs orphaned by crashed workers. Useful as a cron
// fallback when no long-running worker process hosts the sweeper.
func RunSweep(ctx context.Context) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()

	defer closeContainer(container, logger)

	sweeper, err := container.Sweeper()
	if err != nil {
		return fmt.Errorf("failed to initialize sweeper: %w", err)
	}

	if err := sweeper.Sweep(ctx); err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	logger.Info("sweep completed")
	return nil
}
