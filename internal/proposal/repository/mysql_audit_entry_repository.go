package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/simpix/loanflow/internal/database"
	apperrors "github.com/simpix/loanflow/internal/errors"
	proposalDomain "github.com/simpix/loanflow/internal/proposal/domain"
)

// MySQLAuditEntryRepository implements the append-only audit trail for MySQL.
type MySQLAuditEntryRepository struct {
	db *sql.DB
}

// NewMySQLAuditEntryRepository creates a new MySQL audit entry repository.
func NewMySQLAuditEntryRepository(db *sql.DB) *MySQLAuditEntryRepository {
	return &MySQLAuditEntryRepository{db: db}
}

// Create appends an audit entry. Entries are immutable once written.
func (m *MySQLAuditEntryRepository) Create(ctx context.Context, entry *proposalDomain.AuditEntry) error {
	querier := database.GetTx(ctx, m.db)

	var metadata []byte
	if entry.Metadata != nil {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal audit metadata")
		}
		metadata = encoded
	}

	query := `INSERT INTO status_transitions (id, proposal_id, from_status, to_status, triggered_by, metadata, signature, occurred_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		entry.ID.String(),
		entry.ProposalID.String(),
		string(entry.FromStatus),
		string(entry.ToStatus),
		entry.TriggeredBy,
		metadata,
		entry.Signature,
		entry.OccurredAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit entry")
	}

	return nil
}

// ListByProposal returns the full trail for one proposal in insertion order.
func (m *MySQLAuditEntryRepository) ListByProposal(
	ctx context.Context,
	proposalID uuid.UUID,
) ([]*proposalDomain.AuditEntry, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, proposal_id, from_status, to_status, triggered_by, metadata, signature, occurred_at
			  FROM status_transitions
			  WHERE proposal_id = ?
			  ORDER BY occurred_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query, proposalID.String())
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit entries")
	}

	return collectAuditEntries(rows)
}

// ListAll pages through every audit entry, grouped by proposal then time.
func (m *MySQLAuditEntryRepository) ListAll(
	ctx context.Context,
	offset, limit int,
) ([]*proposalDomain.AuditEntry, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, proposal_id, from_status, to_status, triggered_by, metadata, signature, occurred_at
			  FROM status_transitions
			  ORDER BY proposal_id ASC, occurred_at ASC, id ASC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit entries")
	}

	return collectAuditEntries(rows)
}
