package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/simpix/loanflow/internal/breaker"
	"github.com/simpix/loanflow/internal/gateway"
	jobsDomain "github.com/simpix/loanflow/internal/jobs/domain"
	proposalDomain "github.com/simpix/loanflow/internal/proposal/domain"
	proposalUsecase "github.com/simpix/loanflow/internal/proposal/usecase"
)

// ErrPaymentPending indicates the banking API has not settled the charge yet.
// Retryable: the job runs again after backoff.
var ErrPaymentPending = errors.New("payment still pending")

// generateDocumentHandler renders the loan contract for an approved proposal
// and moves it to document_generated. Document rendering is deterministic per
// proposal, so a redelivered job produces the same document id.
type generateDocumentHandler struct {
	transitions proposalUsecase.TransitionUseCase
	logger      *slog.Logger
}

// NewGenerateDocumentHandler creates the generate_document handler.
func NewGenerateDocumentHandler(
	transitions proposalUsecase.TransitionUseCase,
	logger *slog.Logger,
) Handler {
	return &generateDocumentHandler{transitions: transitions, logger: logger}
}

func (h *generateDocumentHandler) Handle(
	ctx context.Context,
	job *jobsDomain.Job,
	payload jobsDomain.Payload,
) error {
	p, ok := payload.(jobsDomain.GenerateDocumentPayload)
	if !ok {
		return fmt.Errorf("%w: %T", jobsDomain.ErrUnknownJobType, payload)
	}

	proposalID, err := uuid.Parse(p.ProposalID)
	if err != nil {
		return fmt.Errorf("invalid proposal id: %w", err)
	}

	documentID := documentIDFor(proposalID, p.TemplateID)
	h.logger.InfoContext(ctx, "contract document generated",
		"proposal_id", proposalID, "document_id", documentID, "template_id", p.TemplateID)

	_, err = h.transitions.Transition(ctx, proposalUsecase.TransitionRequest{
		ProposalID:  proposalID,
		To:          proposalDomain.StatusDocumentGenerated,
		TriggeredBy: "system",
		Metadata: map[string]string{
			"job_id":      job.ID.String(),
			"document_id": documentID,
		},
	})
	return err
}

// documentIDFor derives a stable document id so redelivered jobs are
// idempotent.
func documentIDFor(proposalID uuid.UUID, templateID string) string {
	if templateID == "" {
		templateID = "default"
	}
	return uuid.NewSHA1(proposalID, []byte("contract:"+templateID)).String()
}

// sendForSignatureHandler creates the signature envelope and dispatches it,
// both through the signature provider breaker, then moves the proposal to
// sent_for_signature.
type sendForSignatureHandler struct {
	signatures  gateway.SignatureGateway
	breaker     *breaker.Breaker
	transitions proposalUsecase.TransitionUseCase
	logger      *slog.Logger
}

// NewSendForSignatureHandler creates the send_for_signature handler.
func NewSendForSignatureHandler(
	signatures gateway.SignatureGateway,
	signatureBreaker *breaker.Breaker,
	transitions proposalUsecase.TransitionUseCase,
	logger *slog.Logger,
) Handler {
	return &sendForSignatureHandler{
		signatures:  signatures,
		breaker:     signatureBreaker,
		transitions: transitions,
		logger:      logger,
	}
}

func (h *sendForSignatureHandler) Handle(
	ctx context.Context,
	job *jobsDomain.Job,
	payload jobsDomain.Payload,
) error {
	p, ok := payload.(jobsDomain.SendForSignaturePayload)
	if !ok {
		return fmt.Errorf("%w: %T", jobsDomain.ErrUnknownJobType, payload)
	}

	proposalID, err := uuid.Parse(p.ProposalID)
	if err != nil {
		return fmt.Errorf("invalid proposal id: %w", err)
	}

	// The job id doubles as the provider idempotency key: a redelivered job
	// reuses the same envelope instead of creating a second one.
	idempotencyKey := job.ID.String()

	var envelope *gateway.Envelope
	err = h.breaker.Do(ctx, func(ctx context.Context) error {
		var innerErr error
		envelope, innerErr = h.signatures.CreateEnvelope(ctx, idempotencyKey, gateway.CreateEnvelopeRequest{
			ProposalID:  p.ProposalID,
			DocumentID:  p.DocumentID,
			SignerEmail: p.SignerEmail,
		})
		return innerErr
	})
	if err != nil {
		return err
	}

	err = h.breaker.Do(ctx, func(ctx context.Context) error {
		return h.signatures.SendForSignature(ctx, idempotencyKey, envelope.EnvelopeID)
	})
	if err != nil {
		return err
	}

	_, err = h.transitions.Transition(ctx, proposalUsecase.TransitionRequest{
		ProposalID:  proposalID,
		To:          proposalDomain.StatusSentForSignature,
		TriggeredBy: "system",
		Metadata: map[string]string{
			"job_id":      job.ID.String(),
			"envelope_id": envelope.EnvelopeID,
		},
	})
	return err
}

// syncPaymentStatusHandler reconciles the payment state with the banking API
// through its breaker. Without a charge id it schedules the payout first; with
// one it polls until the charge settles.
type syncPaymentStatusHandler struct {
	banking     gateway.BankingGateway
	breaker     *breaker.Breaker
	transitions proposalUsecase.TransitionUseCase
	logger      *slog.Logger
}

// NewSyncPaymentStatusHandler creates the sync_payment_status handler.
func NewSyncPaymentStatusHandler(
	banking gateway.BankingGateway,
	bankingBreaker *breaker.Breaker,
	transitions proposalUsecase.TransitionUseCase,
	logger *slog.Logger,
) Handler {
	return &syncPaymentStatusHandler{
		banking:     banking,
		breaker:     bankingBreaker,
		transitions: transitions,
		logger:      logger,
	}
}

func (h *syncPaymentStatusHandler) Handle(
	ctx context.Context,
	job *jobsDomain.Job,
	payload jobsDomain.Payload,
) error {
	p, ok := payload.(jobsDomain.SyncPaymentStatusPayload)
	if !ok {
		return fmt.Errorf("%w: %T", jobsDomain.ErrUnknownJobType, payload)
	}

	proposalID, err := uuid.Parse(p.ProposalID)
	if err != nil {
		return fmt.Errorf("invalid proposal id: %w", err)
	}

	if p.ChargeID == "" {
		return h.schedule(ctx, job, proposalID, p)
	}
	return h.poll(ctx, job, proposalID, p.ChargeID)
}

func (h *syncPaymentStatusHandler) schedule(
	ctx context.Context,
	job *jobsDomain.Job,
	proposalID uuid.UUID,
	p jobsDomain.SyncPaymentStatusPayload,
) error {
	var result *gateway.SchedulePaymentResult
	err := h.breaker.Do(ctx, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = h.banking.SchedulePayment(ctx, job.ID.String(), gateway.SchedulePaymentRequest{
			ProposalID: p.ProposalID,
		})
		return innerErr
	})
	if err != nil {
		return err
	}

	_, err = h.transitions.Transition(ctx, proposalUsecase.TransitionRequest{
		ProposalID:  proposalID,
		To:          proposalDomain.StatusPaymentScheduled,
		TriggeredBy: "system",
		Metadata: map[string]string{
			"job_id":    job.ID.String(),
			"charge_id": result.ChargeID,
		},
	})
	return err
}

func (h *syncPaymentStatusHandler) poll(
	ctx context.Context,
	job *jobsDomain.Job,
	proposalID uuid.UUID,
	chargeID string,
) error {
	var status *gateway.PaymentStatus
	err := h.breaker.Do(ctx, func(ctx context.Context) error {
		var innerErr error
		status, innerErr = h.banking.GetPaymentStatus(ctx, chargeID)
		return innerErr
	})
	if err != nil {
		return err
	}

	switch status.Status {
	case "paid":
		_, err = h.transitions.Transition(ctx, proposalUsecase.TransitionRequest{
			ProposalID:  proposalID,
			To:          proposalDomain.StatusPaid,
			TriggeredBy: "system",
			Metadata: map[string]string{
				"job_id":    job.ID.String(),
				"charge_id": chargeID,
				"paid_at":   status.PaidAt,
			},
		})
		return err
	case "scheduled", "processing":
		return fmt.Errorf("%w: charge %s is %s", ErrPaymentPending, chargeID, status.Status)
	default:
		return fmt.Errorf("%w: unexpected charge status %q", gateway.ErrCallFailed, status.Status)
	}
}

// applyTransitionHandler applies a webhook-requested status transition. The
// webhook endpoint acks the provider as soon as this job is queued; the actual
// state change happens here. A signed contract additionally starts the payout
// pipeline.
type applyTransitionHandler struct {
	transitions proposalUsecase.TransitionUseCase
	enqueuer    EnqueueUseCase
	logger      *slog.Logger
}

// NewApplyTransitionHandler creates the apply_transition handler.
func NewApplyTransitionHandler(
	transitions proposalUsecase.TransitionUseCase,
	enqueuer EnqueueUseCase,
	logger *slog.Logger,
) Handler {
	return &applyTransitionHandler{
		transitions: transitions,
		enqueuer:    enqueuer,
		logger:      logger,
	}
}

func (h *applyTransitionHandler) Handle(
	ctx context.Context,
	job *jobsDomain.Job,
	payload jobsDomain.Payload,
) error {
	p, ok := payload.(jobsDomain.ApplyTransitionPayload)
	if !ok {
		return fmt.Errorf("%w: %T", jobsDomain.ErrUnknownJobType, payload)
	}

	proposalID, err := uuid.Parse(p.ProposalID)
	if err != nil {
		return fmt.Errorf("invalid proposal id: %w", err)
	}

	target := proposalDomain.Status(p.ToStatus)
	if !target.IsValid() {
		return fmt.Errorf("%w: unknown target status %q", proposalDomain.ErrInvalidTransition, p.ToStatus)
	}

	result, err := h.transitions.Transition(ctx, proposalUsecase.TransitionRequest{
		ProposalID:  proposalID,
		To:          target,
		TriggeredBy: p.TriggeredBy,
		Metadata:    p.Metadata,
	})
	if err != nil {
		return err
	}

	// A signed contract starts the payout pipeline. The no-op check keeps a
	// redelivered job from enqueueing a second payment sync.
	if target == proposalDomain.StatusSigned && !result.Noop {
		syncPayload, err := json.Marshal(jobsDomain.SyncPaymentStatusPayload{
			ProposalID: p.ProposalID,
		})
		if err != nil {
			return fmt.Errorf("failed to build payment sync payload: %w", err)
		}
		if _, err := h.enqueuer.Enqueue(ctx, jobsDomain.JobTypeSyncPaymentStatus, syncPayload); err != nil {
			h.logger.ErrorContext(ctx, "failed to enqueue payment sync after signature",
				"proposal_id", proposalID, "error", err)
		}
	}

	return nil
}

// NewHandlerRegistry wires every job type to its handler.
func NewHandlerRegistry(
	generateDocument Handler,
	sendForSignature Handler,
	syncPaymentStatus Handler,
	applyTransition Handler,
) HandlerRegistry {
	return HandlerRegistry{
		jobsDomain.JobTypeGenerateDocument:  generateDocument,
		jobsDomain.JobTypeSendForSignature:  sendForSignature,
		jobsDomain.JobTypeSyncPaymentStatus: syncPaymentStatus,
		jobsDomain.JobTypeApplyTransition:   applyTransition,
	}
}
