package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/simpix/loanflow/internal/database"
	apperrors "github.com/simpix/loanflow/internal/errors"
	proposalDomain "github.com/simpix/loanflow/internal/proposal/domain"
)

// MySQLProposalRepository implements proposal persistence for MySQL.
type MySQLProposalRepository struct {
	db *sql.DB
}

// NewMySQLProposalRepository creates a new MySQL proposal repository.
func NewMySQLProposalRepository(db *sql.DB) *MySQLProposalRepository {
	return &MySQLProposalRepository{db: db}
}

// Create inserts a new proposal row.
func (m *MySQLProposalRepository) Create(ctx context.Context, proposal *proposalDomain.Proposal) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO proposals (id, customer_id, amount_cents, status, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		proposal.ID.String(),
		proposal.CustomerID.String(),
		proposal.AmountCents,
		string(proposal.Status()),
		proposal.CreatedAt,
		proposal.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create proposal")
	}

	return nil
}

// Get loads a proposal by id.
func (m *MySQLProposalRepository) Get(ctx context.Context, id uuid.UUID) (*proposalDomain.Proposal, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, customer_id, amount_cents, status, created_at, updated_at
			  FROM proposals
			  WHERE id = ?`

	var (
		proposalID  uuid.UUID
		customerID  uuid.UUID
		amountCents int64
		status      string
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := querier.QueryRowContext(ctx, query, id.String()).Scan(
		&proposalID, &customerID, &amountCents, &status, &createdAt, &updatedAt,
	)
	if err != nil {
		if apperrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get proposal")
	}

	return proposalDomain.Restore(
		proposalID, customerID, amountCents,
		proposalDomain.Status(status), createdAt, updatedAt,
	), nil
}

// UpdateStatusIf performs the optimistic concurrency write.
func (m *MySQLProposalRepository) UpdateStatusIf(
	ctx context.Context,
	id uuid.UUID,
	from, to proposalDomain.Status,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE proposals
			  SET status = ?, updated_at = ?
			  WHERE id = ? AND status = ?`

	result, err := querier.ExecContext(ctx, query, string(to), time.Now().UTC(), id.String(), string(from))
	if err != nil {
		return apperrors.Wrap(err, "failed to update proposal status")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return proposalDomain.ErrStatusConflict
	}

	return nil
}
