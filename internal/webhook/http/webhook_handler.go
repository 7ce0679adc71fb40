// Package http provides the webhook ingress handler.
package http

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/simpix/loanflow/internal/errors"
	"github.com/simpix/loanflow/internal/httputil"
	webhookDomain "github.com/simpix/loanflow/internal/webhook/domain"
	webhookUseCase "github.com/simpix/loanflow/internal/webhook/usecase"
)

// maxBodySize bounds webhook bodies (1 MiB).
const maxBodySize = 1 << 20

// WebhookHandler handles provider webhook deliveries.
type WebhookHandler struct {
	ingestUseCase webhookUseCase.IngestUseCase
	logger        *slog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(ingestUseCase webhookUseCase.IngestUseCase, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{ingestUseCase: ingestUseCase, logger: logger}
}

// IngestHandler receives one webhook delivery.
// POST /v1/webhooks/:provider - the body is read raw because the signature
// covers the exact bytes on the wire. Acks 200 once the event is verified and
// recorded; heavier follow-up work runs asynchronously.
func (h *WebhookHandler) IngestHandler(c *gin.Context) {
	provider := webhookDomain.Provider(c.Param("provider"))

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	signature := c.GetHeader("X-Signature")
	timestamp := c.GetHeader("X-Timestamp")

	result, err := h.ingestUseCase.Ingest(c.Request.Context(), provider, body, signature, timestamp)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUnauthorized) {
			// Verification failures are the interesting security signal.
			h.logger.ErrorContext(c.Request.Context(), "webhook rejected",
				"provider", provider, "remote_addr", c.ClientIP(), "error", err)
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": result.Outcome})
}
