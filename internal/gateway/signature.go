package gateway

import (
	"context"
	"log/slog"
	"net/http"
)

// HTTPSignatureGateway implements SignatureGateway over the e-signature
// provider REST surface.
type HTTPSignatureGateway struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPSignatureGateway creates a signature gateway against the given base URL.
func NewHTTPSignatureGateway(baseURL string, client *http.Client, logger *slog.Logger) *HTTPSignatureGateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSignatureGateway{baseURL: baseURL, client: client, logger: logger}
}

// CreateEnvelope registers the contract document with the provider.
func (g *HTTPSignatureGateway) CreateEnvelope(
	ctx context.Context,
	idempotencyKey string,
	req CreateEnvelopeRequest,
) (*Envelope, error) {
	var envelope Envelope
	err := doJSON(ctx, g.client, http.MethodPost, joinURL(g.baseURL, "envelopes"), idempotencyKey, req, &envelope)
	if err != nil {
		g.logger.ErrorContext(ctx, "signature create envelope failed", "error", err, "proposal_id", req.ProposalID)
		return nil, err
	}
	return &envelope, nil
}

// SendForSignature dispatches an existing envelope to the customer.
func (g *HTTPSignatureGateway) SendForSignature(ctx context.Context, idempotencyKey, envelopeID string) error {
	err := doJSON(ctx, g.client, http.MethodPost, joinURL(g.baseURL, "envelopes", envelopeID, "send"), idempotencyKey, nil, nil)
	if err != nil {
		g.logger.ErrorContext(ctx, "signature send failed", "error", err, "envelope_id", envelopeID)
		return err
	}
	return nil
}

var _ SignatureGateway = (*HTTPSignatureGateway)(nil)
