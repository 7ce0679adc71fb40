package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/simpix/loanflow/internal/errors"
)

func TestParsePayload(t *testing.T) {
	t.Run("generate document payload", func(t *testing.T) {
		raw := json.RawMessage(`{"proposal_id":"prop-1","template_id":"ccb-v2"}`)

		payload, err := ParsePayload(JobTypeGenerateDocument, raw)
		require.NoError(t, err)

		typed, ok := payload.(GenerateDocumentPayload)
		require.True(t, ok)
		assert.Equal(t, "prop-1", typed.ProposalID)
		assert.Equal(t, "ccb-v2", typed.TemplateID)
	})

	t.Run("send for signature payload", func(t *testing.T) {
		raw := json.RawMessage(
			`{"proposal_id":"prop-1","document_id":"doc-9","signer_email":"ana@example.com"}`,
		)

		payload, err := ParsePayload(JobTypeSendForSignature, raw)
		require.NoError(t, err)

		typed, ok := payload.(SendForSignaturePayload)
		require.True(t, ok)
		assert.Equal(t, "doc-9", typed.DocumentID)
	})

	t.Run("sync payment status payload", func(t *testing.T) {
		raw := json.RawMessage(`{"proposal_id":"prop-1","charge_id":"charge-7"}`)

		payload, err := ParsePayload(JobTypeSyncPaymentStatus, raw)
		require.NoError(t, err)

		typed, ok := payload.(SyncPaymentStatusPayload)
		require.True(t, ok)
		assert.Equal(t, "charge-7", typed.ChargeID)
	})

	t.Run("missing required field rejected", func(t *testing.T) {
		raw := json.RawMessage(`{"template_id":"ccb-v2"}`)

		_, err := ParsePayload(JobTypeGenerateDocument, raw)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		raw := json.RawMessage(`{"proposal_id":"prop-1","proposal":"typo"}`)

		_, err := ParsePayload(JobTypeGenerateDocument, raw)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("unknown job type rejected", func(t *testing.T) {
		_, err := ParsePayload(JobType("mine_bitcoin"), json.RawMessage(`{}`))
		assert.ErrorIs(t, err, ErrUnknownJobType)
	})
}

func TestNewJob(t *testing.T) {
	job := NewJob(JobTypeGenerateDocument, json.RawMessage(`{"proposal_id":"p1"}`), 5)

	assert.Equal(t, JobStatusWaiting, job.Status)
	assert.Equal(t, 0, job.Attempt)
	assert.Equal(t, 5, job.MaxAttempts)
	assert.False(t, job.Exhausted())
	assert.False(t, job.NextRunAt.IsZero())
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusDeadLetter.IsTerminal())
	assert.False(t, JobStatusWaiting.IsTerminal())
	assert.False(t, JobStatusActive.IsTerminal())
}

func TestJob_Exhausted(t *testing.T) {
	job := &Job{Attempt: 5, MaxAttempts: 5}
	assert.True(t, job.Exhausted())

	job.Attempt = 4
	assert.False(t, job.Exhausted())
}
