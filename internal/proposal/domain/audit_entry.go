package domain

import (
	"time"

	"github.com/google/uuid"
)

// TriggeredBy values: "system", "user:<id>", "webhook:<provider>".

// AuditEntry records one status transition. Entries are append-only: there is
// no update or delete path, and each entry carries an HMAC signature computed
// by the audit signer so tampering is detectable.
type AuditEntry struct {
	ID          uuid.UUID
	ProposalID  uuid.UUID
	FromStatus  Status
	ToStatus    Status
	TriggeredBy string
	Metadata    map[string]string
	Signature   string
	OccurredAt  time.Time
}

// NewAuditEntry creates an unsigned audit entry for the given transition.
func NewAuditEntry(proposalID uuid.UUID, from, to Status, triggeredBy string, metadata map[string]string) *AuditEntry {
	return &AuditEntry{
		ID:          uuid.Must(uuid.NewV7()),
		ProposalID:  proposalID,
		FromStatus:  from,
		ToStatus:    to,
		TriggeredBy: triggeredBy,
		Metadata:    metadata,
		OccurredAt:  time.Now().UTC(),
	}
}
