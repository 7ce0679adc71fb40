package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/simpix/loanflow/internal/app"
	"github.com/simpix/loanflow/internal/config"
)

// RunWorker starts the job worker pool alongside the queue sweeper. Both run
// until a SIGINT/SIGTERM arrives; in-flight jobs finish before the process
// exits.
func RunWorker(ctx context.Context, version string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting worker",
		slog.String("version", version),
		slog.Int("concurrency", cfg.WorkerConcurrency),
	)

	defer closeContainer(container, logger)

	worker, err := container.Worker()
	if err != nil {
		return fmt.Errorf("failed to initialize worker: %w", err)
	}

	sweeper, err := container.Sweeper()
	if err != nil {
		return fmt.Errorf("failed to initialize sweeper: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(ctx)
	})
	g.Go(func() error {
		return sweeper.Run(ctx)
	})

	if err := g.Wait(); err != nil && !isShutdown(err) {
		return fmt.Errorf("worker error: %w", err)
	}

	logger.Info("worker stopped")
	return nil
}

// isShutdown reports whether the error is the expected context cancellation
// from a shutdown signal.
func isShutdown(err error) bool {
	return errors.Is(err, context.Canceled)
}
