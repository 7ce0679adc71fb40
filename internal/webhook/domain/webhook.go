// Package domain defines webhook events and the verification error taxonomy.
package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/simpix/loanflow/internal/errors"
)

// Provider identifies which external system delivered the webhook.
type Provider string

const (
	// ProviderBanking is the banking API (payment confirmations).
	ProviderBanking Provider = "banking"
	// ProviderSignature is the e-signature provider (envelope events).
	ProviderSignature Provider = "signature"
)

// KnownProviders lists every provider with a configured ingress.
var KnownProviders = []Provider{ProviderBanking, ProviderSignature}

// IsValid reports whether p is a known provider.
func (p Provider) IsValid() bool {
	for _, known := range KnownProviders {
		if p == known {
			return true
		}
	}
	return false
}

// Event is a verified, recorded webhook delivery. The provider event id is
// unique per provider: a redelivery hits the unique index and becomes a no-op.
type Event struct {
	ID         uuid.UUID
	Provider   Provider
	EventID    string
	EventType  string
	ProposalID uuid.UUID
	Payload    []byte
	ReceivedAt time.Time
}

// NewEvent creates an event record for a verified delivery.
func NewEvent(provider Provider, eventID, eventType string, proposalID uuid.UUID, payload []byte) *Event {
	return &Event{
		ID:         uuid.Must(uuid.NewV7()),
		Provider:   provider,
		EventID:    eventID,
		EventType:  eventType,
		ProposalID: proposalID,
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}
}

var (
	// ErrSignatureMissing indicates the delivery carried no signature header.
	ErrSignatureMissing = apperrors.Wrap(apperrors.ErrUnauthorized, "webhook signature missing")

	// ErrSignatureInvalid indicates the HMAC did not match the payload.
	ErrSignatureInvalid = apperrors.Wrap(apperrors.ErrUnauthorized, "webhook signature invalid")

	// ErrSecretNotConfigured indicates no secret is configured for the
	// provider, so no delivery can be verified.
	ErrSecretNotConfigured = apperrors.Wrap(apperrors.ErrUnauthorized, "webhook secret not configured")

	// ErrTimestampStale indicates the delivery timestamp is outside the
	// accepted window (replay protection).
	ErrTimestampStale = apperrors.Wrap(apperrors.ErrUnauthorized, "webhook timestamp stale")

	// ErrDuplicateEvent indicates this provider event id was already
	// processed.
	ErrDuplicateEvent = apperrors.Wrap(apperrors.ErrConflict, "webhook event already processed")

	// ErrUnknownProvider indicates a delivery for a provider with no ingress.
	ErrUnknownProvider = apperrors.Wrap(apperrors.ErrInvalidInput, "unknown webhook provider")
)
