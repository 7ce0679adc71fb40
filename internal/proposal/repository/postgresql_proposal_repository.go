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

// PostgreSQLProposalRepository implements proposal persistence for PostgreSQL.
type PostgreSQLProposalRepository struct {
	db *sql.DB
}

// NewPostgreSQLProposalRepository creates a new PostgreSQL proposal repository.
func NewPostgreSQLProposalRepository(db *sql.DB) *PostgreSQLProposalRepository {
	return &PostgreSQLProposalRepository{db: db}
}

// Create inserts a new proposal row.
func (p *PostgreSQLProposalRepository) Create(ctx context.Context, proposal *proposalDomain.Proposal) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO proposals (id, customer_id, amount_cents, status, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := querier.ExecContext(
		ctx,
		query,
		proposal.ID,
		proposal.CustomerID,
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
func (p *PostgreSQLProposalRepository) Get(ctx context.Context, id uuid.UUID) (*proposalDomain.Proposal, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, customer_id, amount_cents, status, created_at, updated_at
			  FROM proposals
			  WHERE id = $1`

	var (
		proposalID  uuid.UUID
		customerID  uuid.UUID
		amountCents int64
		status      string
		createdAt   time.Time
		updatedAt   time.Time
	)

	err := querier.QueryRowContext(ctx, query, id).Scan(
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

// UpdateStatusIf performs the optimistic concurrency write: the status only
// changes when the stored value still equals from.
func (p *PostgreSQLProposalRepository) UpdateStatusIf(
	ctx context.Context,
	id uuid.UUID,
	from, to proposalDomain.Status,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE proposals
			  SET status = $1, updated_at = $2
			  WHERE id = $3 AND status = $4`

	result, err := querier.ExecContext(ctx, query, string(to), time.Now().UTC(), id, string(from))
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
