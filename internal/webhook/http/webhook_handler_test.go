package http

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	webhookDomain "github.com/simpix/loanflow/internal/webhook/domain"
	webhookUseCase "github.com/simpix/loanflow/internal/webhook/usecase"
)

type mockIngestUseCase struct {
	mock.Mock
}

func (m *mockIngestUseCase) Ingest(ctx context.Context, provider webhookDomain.Provider, body []byte, signature, timestamp string) (*webhookUseCase.IngestResult, error) {
	args := m.Called(ctx, provider, body, signature, timestamp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*webhookUseCase.IngestResult), args.Error(1)
}

func setupWebhookRouter(t *testing.T, ingestUseCase webhookUseCase.IngestUseCase) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewWebhookHandler(ingestUseCase, slog.New(slog.DiscardHandler))
	router.POST("/v1/webhooks/:provider", handler.IngestHandler)
	return router
}

func TestWebhookHandler_IngestHandler(t *testing.T) {
	t.Run("accepts a verified delivery", func(t *testing.T) {
		body := []byte(`{"event_id":"evt_1","type":"payment.confirmed"}`)

		ingestUseCase := new(mockIngestUseCase)
		ingestUseCase.On("Ingest", mock.Anything, webhookDomain.ProviderBanking, body, "sha256=abc", "").
			Return(&webhookUseCase.IngestResult{Outcome: "accepted"}, nil)

		router := setupWebhookRouter(t, ingestUseCase)

		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/banking", bytes.NewReader(body))
		req.Header.Set("X-Signature", "sha256=abc")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.JSONEq(t, `{"status":"accepted"}`, recorder.Body.String())
		ingestUseCase.AssertExpectations(t)
	})

	t.Run("passes the timestamp header through", func(t *testing.T) {
		body := []byte(`{}`)

		ingestUseCase := new(mockIngestUseCase)
		ingestUseCase.On("Ingest", mock.Anything, webhookDomain.ProviderSignature, body, "sha256=abc", "1756600000").
			Return(&webhookUseCase.IngestResult{Outcome: "accepted"}, nil)

		router := setupWebhookRouter(t, ingestUseCase)

		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/signature", bytes.NewReader(body))
		req.Header.Set("X-Signature", "sha256=abc")
		req.Header.Set("X-Timestamp", "1756600000")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)
		ingestUseCase.AssertExpectations(t)
	})

	t.Run("returns 401 for an invalid signature", func(t *testing.T) {
		ingestUseCase := new(mockIngestUseCase)
		ingestUseCase.On("Ingest", mock.Anything, webhookDomain.ProviderBanking, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, webhookDomain.ErrSignatureInvalid)

		router := setupWebhookRouter(t, ingestUseCase)

		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/banking", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("X-Signature", "sha256=bogus")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("reports duplicates with a 200", func(t *testing.T) {
		ingestUseCase := new(mockIngestUseCase)
		ingestUseCase.On("Ingest", mock.Anything, webhookDomain.ProviderBanking, mock.Anything, mock.Anything, mock.Anything).
			Return(&webhookUseCase.IngestResult{Outcome: "duplicate"}, nil)

		router := setupWebhookRouter(t, ingestUseCase)

		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/banking", bytes.NewReader([]byte(`{}`)))
		req.Header.Set("X-Signature", "sha256=abc")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.JSONEq(t, `{"status":"duplicate"}`, recorder.Body.String())
	})

	t.Run("returns 422 for an unknown provider", func(t *testing.T) {
		ingestUseCase := new(mockIngestUseCase)
		ingestUseCase.On("Ingest", mock.Anything, webhookDomain.Provider("carrier-pigeon"), mock.Anything, mock.Anything, mock.Anything).
			Return(nil, webhookDomain.ErrUnknownProvider)

		router := setupWebhookRouter(t, ingestUseCase)

		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/carrier-pigeon", bytes.NewReader([]byte(`{}`)))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	})
}
