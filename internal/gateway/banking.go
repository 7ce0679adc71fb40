package gateway

import (
	"context"
	"log/slog"
	"net/http"
)

// HTTPBankingGateway implements BankingGateway over the banking API REST
// surface.
type HTTPBankingGateway struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPBankingGateway creates a banking gateway against the given base URL.
func NewHTTPBankingGateway(baseURL string, client *http.Client, logger *slog.Logger) *HTTPBankingGateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPBankingGateway{baseURL: baseURL, client: client, logger: logger}
}

// SchedulePayment asks the banking API to schedule the payout. The idempotency
// key makes redelivered jobs safe: the provider deduplicates on it.
func (g *HTTPBankingGateway) SchedulePayment(
	ctx context.Context,
	idempotencyKey string,
	req SchedulePaymentRequest,
) (*SchedulePaymentResult, error) {
	var result SchedulePaymentResult
	err := doJSON(ctx, g.client, http.MethodPost, joinURL(g.baseURL, "payments"), idempotencyKey, req, &result)
	if err != nil {
		g.logger.ErrorContext(ctx, "banking schedule payment failed", "error", err, "proposal_id", req.ProposalID)
		return nil, err
	}
	return &result, nil
}

// GetPaymentStatus fetches the current charge state.
func (g *HTTPBankingGateway) GetPaymentStatus(ctx context.Context, chargeID string) (*PaymentStatus, error) {
	var status PaymentStatus
	err := doJSON(ctx, g.client, http.MethodGet, joinURL(g.baseURL, "payments", chargeID), "", nil, &status)
	if err != nil {
		g.logger.ErrorContext(ctx, "banking payment status failed", "error", err, "charge_id", chargeID)
		return nil, err
	}
	return &status, nil
}

var _ BankingGateway = (*HTTPBankingGateway)(nil)
