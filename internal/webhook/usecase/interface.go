// Package usecase implements webhook ingestion: verify, record, apply.
package usecase

import (
	"context"

	webhookDomain "github.com/simpix/loanflow/internal/webhook/domain"
)

// IngestResult reports what happened to a delivery.
type IngestResult struct {
	// Outcome is "accepted", "duplicate" or "ignored" (unknown event type).
	Outcome string

	// Event is the recorded event, nil for duplicates.
	Event *webhookDomain.Event
}

// IngestUseCase processes one webhook delivery end to end.
type IngestUseCase interface {
	// Ingest verifies the signature, records the event (idempotent on the
	// provider event id), applies the resulting status transition and
	// enqueues any follow-up job. Verification failures return before any
	// state changes.
	Ingest(ctx context.Context, provider webhookDomain.Provider, body []byte, signature, timestamp string) (*IngestResult, error)
}
