package dto

import (
	"time"

	proposalDomain "github.com/simpix/loanflow/internal/proposal/domain"
	proposalUsecase "github.com/simpix/loanflow/internal/proposal/usecase"
)

// TransitionResponse reports the applied transition.
type TransitionResponse struct {
	From string `json:"from"`
	To   string `json:"to"`
	Noop bool   `json:"noop"`
}

// MapTransitionToResponse converts a transition result.
func MapTransitionToResponse(result *proposalUsecase.TransitionResult) TransitionResponse {
	return TransitionResponse{
		From: string(result.From),
		To:   string(result.To),
		Noop: result.Noop,
	}
}

// AuditEntryResponse is one audit trail entry.
type AuditEntryResponse struct {
	ID          string            `json:"id"`
	ProposalID  string            `json:"proposal_id"`
	FromStatus  string            `json:"from_status"`
	ToStatus    string            `json:"to_status"`
	TriggeredBy string            `json:"triggered_by"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Signature   string            `json:"signature"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// MapAuditEntriesToResponse converts an audit trail.
func MapAuditEntriesToResponse(entries []*proposalDomain.AuditEntry) []AuditEntryResponse {
	responses := make([]AuditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, AuditEntryResponse{
			ID:          entry.ID.String(),
			ProposalID:  entry.ProposalID.String(),
			FromStatus:  string(entry.FromStatus),
			ToStatus:    string(entry.ToStatus),
			TriggeredBy: entry.TriggeredBy,
			Metadata:    entry.Metadata,
			Signature:   entry.Signature,
			OccurredAt:  entry.OccurredAt,
		})
	}
	return responses
}
