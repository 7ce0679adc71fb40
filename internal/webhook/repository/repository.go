// Package repository provides SQL persistence for webhook events. The unique
// index on (provider, event_id) is the idempotency mechanism: a redelivered
// event fails the insert and is reported as a duplicate.
package repository

import (
	"context"

	webhookDomain "github.com/simpix/loanflow/internal/webhook/domain"
)

// EventRepository is the persistence contract for webhook events.
type EventRepository interface {
	// Create records a verified event. Returns ErrDuplicateEvent when the
	// provider event id was already recorded.
	Create(ctx context.Context, event *webhookDomain.Event) error
}

var (
	_ EventRepository = (*PostgreSQLEventRepository)(nil)
	_ EventRepository = (*MySQLEventRepository)(nil)
)
