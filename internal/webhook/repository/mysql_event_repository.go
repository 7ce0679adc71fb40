package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/simpix/loanflow/internal/database"
	apperrors "github.com/simpix/loanflow/internal/errors"
	webhookDomain "github.com/simpix/loanflow/internal/webhook/domain"
)

// mysqlDuplicateEntry is the MySQL error number for duplicate key violations.
const mysqlDuplicateEntry = 1062

// MySQLEventRepository implements webhook event persistence for MySQL.
type MySQLEventRepository struct {
	db *sql.DB
}

// NewMySQLEventRepository creates a new MySQL event repository.
func NewMySQLEventRepository(db *sql.DB) *MySQLEventRepository {
	return &MySQLEventRepository{db: db}
}

// Create records a verified event, relying on the unique (provider, event_id)
// index for idempotency.
func (m *MySQLEventRepository) Create(ctx context.Context, event *webhookDomain.Event) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO webhook_events (id, provider, event_id, event_type, proposal_id, payload, received_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		event.ID.String(),
		string(event.Provider),
		event.EventID,
		event.EventType,
		event.ProposalID.String(),
		event.Payload,
		event.ReceivedAt,
	)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return webhookDomain.ErrDuplicateEvent
		}
		return apperrors.Wrap(err, "failed to create webhook event")
	}

	return nil
}
