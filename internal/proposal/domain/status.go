// Package domain defines the proposal aggregate, its status state machine, and
// the append-only audit trail entries.
package domain

// Status is a proposal lifecycle state.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusSubmitted         Status = "submitted"
	StatusInAnalysis        Status = "in_analysis"
	StatusApproved          Status = "approved"
	StatusRejected          Status = "rejected"
	StatusPendingInfo       Status = "pending_info"
	StatusDocumentGenerated Status = "document_generated"
	StatusSentForSignature  Status = "sent_for_signature"
	StatusSigned            Status = "signed"
	StatusPaymentScheduled  Status = "payment_scheduled"
	StatusPaid              Status = "paid"
)

// allowedTransitions is the full lifecycle graph. A status missing from the
// map is terminal.
var allowedTransitions = map[Status][]Status{
	StatusDraft:             {StatusSubmitted},
	StatusSubmitted:         {StatusInAnalysis},
	StatusInAnalysis:        {StatusApproved, StatusRejected, StatusPendingInfo},
	StatusPendingInfo:       {StatusInAnalysis},
	StatusApproved:          {StatusDocumentGenerated},
	StatusDocumentGenerated: {StatusSentForSignature},
	StatusSentForSignature:  {StatusSigned},
	StatusSigned:            {StatusPaymentScheduled},
	StatusPaymentScheduled:  {StatusPaid},
}

// KnownStatuses lists every valid proposal status.
var KnownStatuses = []Status{
	StatusDraft,
	StatusSubmitted,
	StatusInAnalysis,
	StatusApproved,
	StatusRejected,
	StatusPendingInfo,
	StatusDocumentGenerated,
	StatusSentForSignature,
	StatusSigned,
	StatusPaymentScheduled,
	StatusPaid,
}

// IsValid reports whether s is a known proposal status.
func (s Status) IsValid() bool {
	for _, known := range KnownStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can leave s.
func (s Status) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0 && s.IsValid()
}

// CanTransitionTo reports whether the state machine allows s → to.
func (s Status) CanTransitionTo(to Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}
