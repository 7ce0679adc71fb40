package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	webhookDomain "github.com/simpix/loanflow/internal/webhook/domain"
)

func TestPostgreSQLEventRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	repo := NewPostgreSQLEventRepository(db)
	event := webhookDomain.NewEvent(
		webhookDomain.ProviderBanking, "evt-1", "payment.confirmed",
		uuid.Must(uuid.NewV7()), []byte(`{"event_id":"evt-1"}`),
	)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO webhook_events")).
		WithArgs(
			event.ID, "banking", "evt-1", "payment.confirmed",
			event.ProposalID, event.Payload, event.ReceivedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLEventRepository_DuplicateEvent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	repo := NewPostgreSQLEventRepository(db)
	event := webhookDomain.NewEvent(
		webhookDomain.ProviderBanking, "evt-1", "payment.confirmed",
		uuid.Must(uuid.NewV7()), []byte(`{}`),
	)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO webhook_events")).
		WillReturnError(&pq.Error{Code: "23505"})

	err = repo.Create(context.Background(), event)
	assert.ErrorIs(t, err, webhookDomain.ErrDuplicateEvent)
}
