// Package gateway holds the outbound HTTP clients for the external
// dependencies: the banking API and the e-signature provider. Callers wrap
// every gateway call in the matching circuit breaker; the gateways themselves
// only speak HTTP.
package gateway

import (
	"context"
	"errors"
)

// ErrCallFailed indicates the external dependency answered with a
// non-successful status or the call could not complete.
var ErrCallFailed = errors.New("external call failed")

// SchedulePaymentRequest asks the banking API to schedule the loan payout.
type SchedulePaymentRequest struct {
	ProposalID string `json:"proposal_id"`
	ChargeID   string `json:"charge_id"`
}

// SchedulePaymentResult is the banking API acknowledgement.
type SchedulePaymentResult struct {
	ChargeID string `json:"charge_id"`
	Status   string `json:"status"`
}

// PaymentStatus is the current state of a charge at the banking API.
type PaymentStatus struct {
	ChargeID string `json:"charge_id"`
	Status   string `json:"status"`
	PaidAt   string `json:"paid_at,omitempty"`
}

// BankingGateway talks to the banking API.
type BankingGateway interface {
	SchedulePayment(ctx context.Context, idempotencyKey string, req SchedulePaymentRequest) (*SchedulePaymentResult, error)
	GetPaymentStatus(ctx context.Context, chargeID string) (*PaymentStatus, error)
}

// CreateEnvelopeRequest asks the signature provider to build an envelope for
// the generated contract document.
type CreateEnvelopeRequest struct {
	ProposalID  string `json:"proposal_id"`
	DocumentID  string `json:"document_id"`
	SignerEmail string `json:"signer_email"`
}

// Envelope is the signature provider's handle for a signing session.
type Envelope struct {
	EnvelopeID string `json:"envelope_id"`
	Status     string `json:"status"`
}

// SignatureGateway talks to the e-signature provider.
type SignatureGateway interface {
	CreateEnvelope(ctx context.Context, idempotencyKey string, req CreateEnvelopeRequest) (*Envelope, error)
	SendForSignature(ctx context.Context, idempotencyKey string, envelopeID string) error
}
