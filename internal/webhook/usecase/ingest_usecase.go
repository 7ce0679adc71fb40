package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/simpix/loanflow/internal/database"
	apperrors "github.com/simpix/loanflow/internal/errors"
	jobsDomain "github.com/simpix/loanflow/internal/jobs/domain"
	jobsUsecase "github.com/simpix/loanflow/internal/jobs/usecase"
	"github.com/simpix/loanflow/internal/metrics"
	proposalDomain "github.com/simpix/loanflow/internal/proposal/domain"
	webhookDomain "github.com/simpix/loanflow/internal/webhook/domain"
	webhookRepository "github.com/simpix/loanflow/internal/webhook/repository"
	webhookService "github.com/simpix/loanflow/internal/webhook/service"
)

// deliveryBody is the common wire shape both providers send.
type deliveryBody struct {
	EventID    string `json:"event_id"`
	Type       string `json:"type"`
	ProposalID string `json:"proposal_id"`
	ChargeID   string `json:"charge_id,omitempty"`
	EnvelopeID string `json:"envelope_id,omitempty"`
}

type ingestUseCase struct {
	verifier  webhookService.Verifier
	eventRepo webhookRepository.EventRepository
	enqueuer  jobsUsecase.EnqueueUseCase
	txManager database.TxManager
	metrics   metrics.BusinessMetrics
	logger    *slog.Logger
}

// NewIngestUseCase creates the webhook ingest use case.
func NewIngestUseCase(
	verifier webhookService.Verifier,
	eventRepo webhookRepository.EventRepository,
	enqueuer jobsUsecase.EnqueueUseCase,
	txManager database.TxManager,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) IngestUseCase {
	return &ingestUseCase{
		verifier:  verifier,
		eventRepo: eventRepo,
		enqueuer:  enqueuer,
		txManager: txManager,
		metrics:   businessMetrics,
		logger:    logger,
	}
}

// Ingest runs verify → record → queue. The provider is acked after the
// resulting transition is queued, never after it is applied: the delivery
// response must not wait on the transition pipeline. The event row goes in
// before the job: a redelivery of the same event id short-circuits as a
// duplicate and never queues the transition twice.
func (u *ingestUseCase) Ingest(
	ctx context.Context,
	provider webhookDomain.Provider,
	body []byte,
	signature, timestamp string,
) (*IngestResult, error) {
	if !provider.IsValid() {
		return nil, webhookDomain.ErrUnknownProvider
	}

	if err := u.verifier.Verify(provider, body, signature, timestamp); err != nil {
		u.metrics.RecordWebhook(ctx, string(provider), "rejected")
		u.logger.ErrorContext(ctx, "webhook signature rejected",
			"provider", provider, "error", err)
		return nil, err
	}

	var delivery deliveryBody
	if err := json.Unmarshal(body, &delivery); err != nil {
		u.metrics.RecordWebhook(ctx, string(provider), "rejected")
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "malformed webhook body")
	}
	if delivery.EventID == "" || delivery.ProposalID == "" {
		u.metrics.RecordWebhook(ctx, string(provider), "rejected")
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "webhook body missing event_id or proposal_id")
	}

	proposalID, err := uuid.Parse(delivery.ProposalID)
	if err != nil {
		u.metrics.RecordWebhook(ctx, string(provider), "rejected")
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid proposal id")
	}

	event := webhookDomain.NewEvent(provider, delivery.EventID, delivery.Type, proposalID, body)

	// The event row and the transition job commit together or not at all.
	// Without that, an enqueue failure after the event row committed would
	// turn every redelivery into a duplicate and lose the transition.
	var queued bool
	err = u.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := u.eventRepo.Create(ctx, event); err != nil {
			return err
		}
		var txErr error
		queued, txErr = u.queueTransition(ctx, provider, event, delivery)
		return txErr
	})
	if err != nil {
		if apperrors.Is(err, webhookDomain.ErrDuplicateEvent) {
			u.metrics.RecordWebhook(ctx, string(provider), "duplicate")
			u.logger.InfoContext(ctx, "duplicate webhook delivery ignored",
				"provider", provider, "event_id", delivery.EventID)
			return &IngestResult{Outcome: "duplicate"}, nil
		}
		return nil, err
	}

	if !queued {
		u.metrics.RecordWebhook(ctx, string(provider), "ignored")
		return &IngestResult{Outcome: "ignored", Event: event}, nil
	}

	u.metrics.RecordWebhook(ctx, string(provider), "accepted")
	return &IngestResult{Outcome: "accepted", Event: event}, nil
}

// queueTransition maps the provider event to its status transition and queues
// it as a job for the worker pool.
func (u *ingestUseCase) queueTransition(
	ctx context.Context,
	provider webhookDomain.Provider,
	event *webhookDomain.Event,
	delivery deliveryBody,
) (bool, error) {
	metadata := map[string]string{"event_id": delivery.EventID}
	if delivery.ChargeID != "" {
		metadata["charge_id"] = delivery.ChargeID
	}
	if delivery.EnvelopeID != "" {
		metadata["envelope_id"] = delivery.EnvelopeID
	}

	var target proposalDomain.Status
	switch {
	case provider == webhookDomain.ProviderBanking && delivery.Type == "payment.scheduled":
		target = proposalDomain.StatusPaymentScheduled
	case provider == webhookDomain.ProviderBanking && delivery.Type == "payment.confirmed":
		target = proposalDomain.StatusPaid
	case provider == webhookDomain.ProviderSignature && delivery.Type == "envelope.sent":
		target = proposalDomain.StatusSentForSignature
	case provider == webhookDomain.ProviderSignature && delivery.Type == "envelope.signed":
		target = proposalDomain.StatusSigned
	default:
		// Providers add event types; unknown ones are recorded but ignored.
		u.logger.WarnContext(ctx, "webhook event type has no transition",
			"provider", provider, "event_type", delivery.Type)
		return false, nil
	}

	payload, err := json.Marshal(jobsDomain.ApplyTransitionPayload{
		ProposalID:  event.ProposalID.String(),
		ToStatus:    string(target),
		TriggeredBy: fmt.Sprintf("webhook:%s", provider),
		Metadata:    metadata,
	})
	if err != nil {
		return false, apperrors.Wrap(err, "failed to build transition payload")
	}

	jobID, err := u.enqueuer.Enqueue(ctx, jobsDomain.JobTypeApplyTransition, payload)
	if err != nil {
		return false, err
	}

	u.logger.InfoContext(ctx, "webhook transition queued",
		"provider", provider,
		"event_id", delivery.EventID,
		"proposal_id", event.ProposalID,
		"to", target,
		"job_id", jobID,
	)
	return true, nil
}
