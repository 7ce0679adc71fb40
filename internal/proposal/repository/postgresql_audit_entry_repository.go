package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/simpix/loanflow/internal/database"
	apperrors "github.com/simpix/loanflow/internal/errors"
	proposalDomain "github.com/simpix/loanflow/internal/proposal/domain"
)

// PostgreSQLAuditEntryRepository implements the append-only audit trail for
// PostgreSQL.
type PostgreSQLAuditEntryRepository struct {
	db *sql.DB
}

// NewPostgreSQLAuditEntryRepository creates a new PostgreSQL audit entry repository.
func NewPostgreSQLAuditEntryRepository(db *sql.DB) *PostgreSQLAuditEntryRepository {
	return &PostgreSQLAuditEntryRepository{db: db}
}

// Create appends an audit entry. Entries are immutable once written.
func (p *PostgreSQLAuditEntryRepository) Create(ctx context.Context, entry *proposalDomain.AuditEntry) error {
	querier := database.GetTx(ctx, p.db)

	var metadata []byte
	if entry.Metadata != nil {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal audit metadata")
		}
		metadata = encoded
	}

	query := `INSERT INTO status_transitions (id, proposal_id, from_status, to_status, triggered_by, metadata, signature, occurred_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.ProposalID,
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
func (p *PostgreSQLAuditEntryRepository) ListByProposal(
	ctx context.Context,
	proposalID uuid.UUID,
) ([]*proposalDomain.AuditEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, proposal_id, from_status, to_status, triggered_by, metadata, signature, occurred_at
			  FROM status_transitions
			  WHERE proposal_id = $1
			  ORDER BY occurred_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query, proposalID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit entries")
	}

	return collectAuditEntries(rows)
}

// ListAll pages through every audit entry, grouped by proposal then time.
// Used by the trail verification command.
func (p *PostgreSQLAuditEntryRepository) ListAll(
	ctx context.Context,
	offset, limit int,
) ([]*proposalDomain.AuditEntry, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, proposal_id, from_status, to_status, triggered_by, metadata, signature, occurred_at
			  FROM status_transitions
			  ORDER BY proposal_id ASC, occurred_at ASC, id ASC
			  LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit entries")
	}

	return collectAuditEntries(rows)
}

func collectAuditEntries(rows *sql.Rows) ([]*proposalDomain.AuditEntry, error) {
	defer func() {
		_ = rows.Close()
	}()

	entries := make([]*proposalDomain.AuditEntry, 0)
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit entries")
	}

	return entries, nil
}

func scanAuditEntry(rows *sql.Rows) (*proposalDomain.AuditEntry, error) {
	var entry proposalDomain.AuditEntry
	var fromStatus, toStatus string
	var metadata []byte
	var occurredAt time.Time

	err := rows.Scan(
		&entry.ID,
		&entry.ProposalID,
		&fromStatus,
		&toStatus,
		&entry.TriggeredBy,
		&metadata,
		&entry.Signature,
		&occurredAt,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan audit entry")
	}

	entry.FromStatus = proposalDomain.Status(fromStatus)
	entry.ToStatus = proposalDomain.Status(toStatus)
	entry.OccurredAt = occurredAt
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit metadata")
		}
	}

	return &entry, nil
}
