package usecase

import (
	"context"
	"crypto/rand"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/simpix/loanflow/internal/errors"
	"github.com/simpix/loanflow/internal/metrics"
	proposalDomain "github.com/simpix/loanflow/internal/proposal/domain"
	proposalService "github.com/simpix/loanflow/internal/proposal/service"
)

type mockProposalRepository struct {
	mock.Mock
}

func (m *mockProposalRepository) Create(ctx context.Context, proposal *proposalDomain.Proposal) error {
	args := m.Called(ctx, proposal)
	return args.Error(0)
}

func (m *mockProposalRepository) Get(ctx context.Context, id uuid.UUID) (*proposalDomain.Proposal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*proposalDomain.Proposal), args.Error(1)
}

func (m *mockProposalRepository) UpdateStatusIf(
	ctx context.Context,
	id uuid.UUID,
	from, to proposalDomain.Status,
) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

type mockAuditEntryRepository struct {
	mock.Mock
}

func (m *mockAuditEntryRepository) Create(ctx context.Context, entry *proposalDomain.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockAuditEntryRepository) ListByProposal(
	ctx context.Context,
	proposalID uuid.UUID,
) ([]*proposalDomain.AuditEntry, error) {
	args := m.Called(ctx, proposalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*proposalDomain.AuditEntry), args.Error(1)
}

func (m *mockAuditEntryRepository) ListAll(
	ctx context.Context,
	offset, limit int,
) ([]*proposalDomain.AuditEntry, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*proposalDomain.AuditEntry), args.Error(1)
}

// passthroughTxManager runs the function without a real transaction.
type passthroughTxManager struct{}

func (passthroughTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func testSigner(t *testing.T) proposalService.AuditSigner {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	signer, err := proposalService.NewAuditSigner(key)
	require.NoError(t, err)
	return signer
}

func storedProposal(status proposalDomain.Status) *proposalDomain.Proposal {
	now := time.Now().UTC()
	return proposalDomain.Restore(
		uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), 2_500_000, status, now, now,
	)
}

func newTransitionUseCase(
	proposalRepo *mockProposalRepository,
	auditRepo *mockAuditEntryRepository,
	signer proposalService.AuditSigner,
) TransitionUseCase {
	return NewTransitionUseCase(
		proposalRepo,
		auditRepo,
		signer,
		passthroughTxManager{},
		metrics.NoopBusinessMetrics(),
		slog.New(slog.DiscardHandler),
	)
}

func TestTransitionUseCase_Transition(t *testing.T) {
	proposalRepo := new(mockProposalRepository)
	auditRepo := new(mockAuditEntryRepository)
	signer := testSigner(t)
	uc := newTransitionUseCase(proposalRepo, auditRepo, signer)

	proposal := storedProposal(proposalDomain.StatusInAnalysis)
	proposalRepo.On("Get", mock.Anything, proposal.ID).Return(proposal, nil)
	proposalRepo.On("UpdateStatusIf", mock.Anything, proposal.ID,
		proposalDomain.StatusInAnalysis, proposalDomain.StatusApproved).Return(nil)
	auditRepo.On("Create", mock.Anything, mock.MatchedBy(func(entry *proposalDomain.AuditEntry) bool {
		return entry.ProposalID == proposal.ID &&
			entry.FromStatus == proposalDomain.StatusInAnalysis &&
			entry.ToStatus == proposalDomain.StatusApproved &&
			signer.Verify(entry) == nil
	})).Return(nil)

	result, err := uc.Transition(context.Background(), TransitionRequest{
		ProposalID:  proposal.ID,
		To:          proposalDomain.StatusApproved,
		TriggeredBy: "user:analyst-1",
	})
	require.NoError(t, err)
	assert.Equal(t, proposalDomain.StatusInAnalysis, result.From)
	assert.Equal(t, proposalDomain.StatusApproved, result.To)
	assert.False(t, result.Noop)

	proposalRepo.AssertExpectations(t)
	auditRepo.AssertExpectations(t)
}

func TestTransitionUseCase_InvalidTransitionRejectedWithoutWrite(t *testing.T) {
	proposalRepo := new(mockProposalRepository)
	auditRepo := new(mockAuditEntryRepository)
	uc := newTransitionUseCase(proposalRepo, auditRepo, testSigner(t))

	proposal := storedProposal(proposalDomain.StatusDraft)
	proposalRepo.On("Get", mock.Anything, proposal.ID).Return(proposal, nil)

	_, err := uc.Transition(context.Background(), TransitionRequest{
		ProposalID:  proposal.ID,
		To:          proposalDomain.StatusPaid,
		TriggeredBy: "system",
	})
	assert.ErrorIs(t, err, proposalDomain.ErrInvalidTransition)

	// No status write, no audit entry.
	proposalRepo.AssertNotCalled(t, "UpdateStatusIf", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	auditRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTransitionUseCase_SameStatusIsIdempotentNoop(t *testing.T) {
	proposalRepo := new(mockProposalRepository)
	auditRepo := new(mockAuditEntryRepository)
	uc := newTransitionUseCase(proposalRepo, auditRepo, testSigner(t))

	proposal := storedProposal(proposalDomain.StatusSigned)
	proposalRepo.On("Get", mock.Anything, proposal.ID).Return(proposal, nil)

	result, err := uc.Transition(context.Background(), TransitionRequest{
		ProposalID:  proposal.ID,
		To:          proposalDomain.StatusSigned,
		TriggeredBy: "webhook:signature",
	})
	require.NoError(t, err)
	assert.True(t, result.Noop)

	auditRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTransitionUseCase_RetriesOnStatusConflict(t *testing.T) {
	proposalRepo := new(mockProposalRepository)
	auditRepo := new(mockAuditEntryRepository)
	uc := newTransitionUseCase(proposalRepo, auditRepo, testSigner(t))

	proposal := storedProposal(proposalDomain.StatusSigned)
	reloaded := proposalDomain.Restore(
		proposal.ID, proposal.CustomerID, proposal.AmountCents,
		proposalDomain.StatusSigned, proposal.CreatedAt, proposal.UpdatedAt,
	)
	// First try loses the race; the reload sees the same eligible status and
	// succeeds.
	proposalRepo.On("Get", mock.Anything, proposal.ID).Return(proposal, nil).Once()
	proposalRepo.On("Get", mock.Anything, proposal.ID).Return(reloaded, nil).Once()
	proposalRepo.On("UpdateStatusIf", mock.Anything, proposal.ID,
		proposalDomain.StatusSigned, proposalDomain.StatusPaymentScheduled).
		Return(proposalDomain.ErrStatusConflict).Once()
	proposalRepo.On("UpdateStatusIf", mock.Anything, proposal.ID,
		proposalDomain.StatusSigned, proposalDomain.StatusPaymentScheduled).
		Return(nil).Once()
	auditRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	result, err := uc.Transition(context.Background(), TransitionRequest{
		ProposalID:  proposal.ID,
		To:          proposalDomain.StatusPaymentScheduled,
		TriggeredBy: "system",
	})
	require.NoError(t, err)
	assert.Equal(t, proposalDomain.StatusPaymentScheduled, result.To)

	proposalRepo.AssertExpectations(t)
}

func TestTransitionUseCase_ProposalNotFound(t *testing.T) {
	proposalRepo := new(mockProposalRepository)
	auditRepo := new(mockAuditEntryRepository)
	uc := newTransitionUseCase(proposalRepo, auditRepo, testSigner(t))

	id := uuid.Must(uuid.NewV7())
	proposalRepo.On("Get", mock.Anything, id).Return(nil, apperrors.ErrNotFound)

	_, err := uc.Transition(context.Background(), TransitionRequest{
		ProposalID:  id,
		To:          proposalDomain.StatusSubmitted,
		TriggeredBy: "system",
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
