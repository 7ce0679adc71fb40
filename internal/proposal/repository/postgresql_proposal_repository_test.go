package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/simpix/loanflow/internal/errors"
	proposalDomain "github.com/simpix/loanflow/internal/proposal/domain"
)

func TestPostgreSQLProposalRepository_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	repo := NewPostgreSQLProposalRepository(db)
	id := uuid.Must(uuid.NewV7())
	customerID := uuid.Must(uuid.NewV7())
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "customer_id", "amount_cents", "status", "created_at", "updated_at"}).
		AddRow(id, customerID, int64(2_000_000), "in_analysis", now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, customer_id")).
		WithArgs(id).
		WillReturnRows(rows)

	proposal, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, proposal.ID)
	assert.Equal(t, proposalDomain.StatusInAnalysis, proposal.Status())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLProposalRepository_GetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	repo := NewPostgreSQLProposalRepository(db)
	id := uuid.Must(uuid.NewV7())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, customer_id")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "amount_cents", "status", "created_at", "updated_at"}))

	_, err = repo.Get(context.Background(), id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgreSQLProposalRepository_UpdateStatusIf(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	repo := NewPostgreSQLProposalRepository(db)
	id := uuid.Must(uuid.NewV7())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE proposals")).
		WithArgs("approved", sqlmock.AnyArg(), id, "in_analysis").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.UpdateStatusIf(context.Background(), id, proposalDomain.StatusInAnalysis, proposalDomain.StatusApproved)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLProposalRepository_UpdateStatusIfLostRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	repo := NewPostgreSQLProposalRepository(db)
	id := uuid.Must(uuid.NewV7())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE proposals")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateStatusIf(context.Background(), id, proposalDomain.StatusInAnalysis, proposalDomain.StatusApproved)
	assert.ErrorIs(t, err, proposalDomain.ErrStatusConflict)
}

func TestPostgreSQLAuditEntryRepository_CreateAndList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	repo := NewPostgreSQLAuditEntryRepository(db)
	entry := proposalDomain.NewAuditEntry(
		uuid.Must(uuid.NewV7()),
		proposalDomain.StatusInAnalysis,
		proposalDomain.StatusApproved,
		"webhook:banking",
		map[string]string{"event_id": "evt-1"},
	)
	entry.Signature = "deadbeef"

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO status_transitions")).
		WithArgs(
			entry.ID, entry.ProposalID, "in_analysis", "approved",
			"webhook:banking", []byte(`{"event_id":"evt-1"}`), "deadbeef", entry.OccurredAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), entry))

	rows := sqlmock.NewRows([]string{"id", "proposal_id", "from_status", "to_status", "triggered_by", "metadata", "signature", "occurred_at"}).
		AddRow(entry.ID, entry.ProposalID, "in_analysis", "approved", "webhook:banking", []byte(`{"event_id":"evt-1"}`), "deadbeef", entry.OccurredAt)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, proposal_id")).
		WithArgs(entry.ProposalID).
		WillReturnRows(rows)

	entries, err := repo.ListByProposal(context.Background(), entry.ProposalID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, proposalDomain.StatusApproved, entries[0].ToStatus)
	assert.Equal(t, map[string]string{"event_id": "evt-1"}, entries[0].Metadata)
	assert.NoError(t, mock.ExpectationsWereMet())
}
