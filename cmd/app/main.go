// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/simpix/loanflow/cmd/app/commands"
)

var version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "loanflow",
		Usage:   "Loan origination resilience layer",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP API server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "worker",
				Usage: "Start the job worker pool and queue sweeper",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunWorker(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "sweep",
				Usage: "Run one sweep pass: promote due retries and reclaim stuck jobs",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunSweep(ctx)
				},
			},
			{
				Name:  "requeue-dead-letter",
				Usage: "Requeue a dead-lettered job with a fresh attempt budget",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "job-id",
						Aliases:  []string{"j"},
						Required: true,
						Usage:    "Job ID (UUID)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRequeueDeadLetter(ctx, cmd.String("job-id"))
				},
			},
			{
				Name:  "verify-audit-trail",
				Usage: "Verify audit trail signatures and chain continuity",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "proposal-id",
						Aliases: []string{"p"},
						Value:   "",
						Usage:   "Verify a single proposal (omit to verify everything)",
					},
					&cli.IntFlag{
						Name:    "batch-size",
						Aliases: []string{"b"},
						Value:   500,
						Usage:   "Page size when verifying the whole trail",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunVerifyAuditTrail(ctx, cmd.String("proposal-id"), cmd.Int("batch-size"))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
