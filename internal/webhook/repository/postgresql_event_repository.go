package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/simpix/loanflow/internal/database"
	apperrors "github.com/simpix/loanflow/internal/errors"
	webhookDomain "github.com/simpix/loanflow/internal/webhook/domain"
)

// pqUniqueViolation is the PostgreSQL error code for unique index violations.
const pqUniqueViolation = "23505"

// PostgreSQLEventRepository implements webhook event persistence for PostgreSQL.
type PostgreSQLEventRepository struct {
	db *sql.DB
}

// NewPostgreSQLEventRepository creates a new PostgreSQL event repository.
func NewPostgreSQLEventRepository(db *sql.DB) *PostgreSQLEventRepository {
	return &PostgreSQLEventRepository{db: db}
}

// Create records a verified event, relying on the unique (provider, event_id)
// index for idempotency.
func (p *PostgreSQLEventRepository) Create(ctx context.Context, event *webhookDomain.Event) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO webhook_events (id, provider, event_id, event_type, proposal_id, payload, received_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier.ExecContext(
		ctx,
		query,
		event.ID,
		string(event.Provider),
		event.EventID,
		event.EventType,
		event.ProposalID,
		event.Payload,
		event.ReceivedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return webhookDomain.ErrDuplicateEvent
		}
		return apperrors.Wrap(err, "failed to create webhook event")
	}

	return nil
}
