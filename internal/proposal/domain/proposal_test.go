package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/simpix/loanflow/internal/errors"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusDraft, StatusSubmitted, true},
		{StatusSubmitted, StatusInAnalysis, true},
		{StatusInAnalysis, StatusApproved, true},
		{StatusInAnalysis, StatusRejected, true},
		{StatusInAnalysis, StatusPendingInfo, true},
		{StatusPendingInfo, StatusInAnalysis, true},
		{StatusApproved, StatusDocumentGenerated, true},
		{StatusDocumentGenerated, StatusSentForSignature, true},
		{StatusSentForSignature, StatusSigned, true},
		{StatusSigned, StatusPaymentScheduled, true},
		{StatusPaymentScheduled, StatusPaid, true},
		{StatusDraft, StatusApproved, false},
		{StatusDraft, StatusPaid, false},
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusInAnalysis, false},
		{StatusPaid, StatusDraft, false},
		{StatusSigned, StatusSentForSignature, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusRejected.IsTerminal())
	assert.True(t, StatusPaid.IsTerminal())
	assert.False(t, StatusDraft.IsTerminal())
	assert.False(t, StatusPaymentScheduled.IsTerminal())
	assert.False(t, Status("bogus").IsTerminal())
}

func TestProposal_TransitionTo(t *testing.T) {
	p := NewProposal(uuid.Must(uuid.NewV7()), 1_500_000)
	require.Equal(t, StatusDraft, p.Status())

	require.NoError(t, p.TransitionTo(StatusSubmitted))
	assert.Equal(t, StatusSubmitted, p.Status())
}

func TestProposal_TransitionToInvalid(t *testing.T) {
	p := NewProposal(uuid.Must(uuid.NewV7()), 1_500_000)

	err := p.TransitionTo(StatusPaid)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	// Rejected transitions must not mutate the aggregate.
	assert.Equal(t, StatusDraft, p.Status())
}

func TestProposal_TransitionToSameStatusIsNoop(t *testing.T) {
	p := NewProposal(uuid.Must(uuid.NewV7()), 1_500_000)
	require.NoError(t, p.TransitionTo(StatusSubmitted))

	assert.NoError(t, p.TransitionTo(StatusSubmitted))
	assert.Equal(t, StatusSubmitted, p.Status())
}

func TestProposal_TransitionToUnknownStatus(t *testing.T) {
	p := NewProposal(uuid.Must(uuid.NewV7()), 1_500_000)

	err := p.TransitionTo(Status("exploded"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestProposal_TerminalStatusRefusesEverything(t *testing.T) {
	p := Restore(
		uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), 1_000_000,
		StatusRejected, time.Now().UTC(), time.Now().UTC(),
	)

	for _, to := range KnownStatuses {
		if to == StatusRejected {
			continue
		}
		assert.ErrorIs(t, p.TransitionTo(to), ErrInvalidTransition, "rejected -> %s must be refused", to)
	}
}
