package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestHTTPBankingGateway_SchedulePayment(t *testing.T) {
	var gotKey, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"charge_id":"ch-1","status":"scheduled"}`))
	}))
	defer server.Close()

	g := NewHTTPBankingGateway(server.URL, server.Client(), discardLogger())

	result, err := g.SchedulePayment(context.Background(), "job-123", SchedulePaymentRequest{
		ProposalID: "p-1",
		ChargeID:   "ch-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "ch-1", result.ChargeID)
	assert.Equal(t, "scheduled", result.Status)
	assert.Equal(t, "job-123", gotKey)
	assert.Equal(t, "/payments", gotPath)
}

func TestHTTPBankingGateway_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	g := NewHTTPBankingGateway(server.URL, server.Client(), discardLogger())

	_, err := g.GetPaymentStatus(context.Background(), "ch-1")
	assert.ErrorIs(t, err, ErrCallFailed)
}

func TestHTTPSignatureGateway_CreateEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/envelopes", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"envelope_id":"env-9","status":"created"}`))
	}))
	defer server.Close()

	g := NewHTTPSignatureGateway(server.URL, server.Client(), discardLogger())

	envelope, err := g.CreateEnvelope(context.Background(), "job-456", CreateEnvelopeRequest{
		ProposalID:  "p-1",
		DocumentID:  "doc-1",
		SignerEmail: "customer@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "env-9", envelope.EnvelopeID)
}

func TestHTTPSignatureGateway_SendForSignature(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/envelopes/env-9/send", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	g := NewHTTPSignatureGateway(server.URL, server.Client(), discardLogger())

	assert.NoError(t, g.SendForSignature(context.Background(), "job-456", "env-9"))
}
