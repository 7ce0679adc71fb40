// Package service provides domain services for the proposal context.
package service

import (
	proposalDomain "github.com/simpix/loanflow/internal/proposal/domain"
)

// AuditSigner signs audit entries and verifies their integrity.
type AuditSigner interface {
	// Sign computes the hex-encoded HMAC signature over the entry's canonical
	// form. The Signature field itself is not part of the signed content.
	Sign(entry *proposalDomain.AuditEntry) (string, error)

	// Verify recomputes the signature and compares it in constant time.
	// Returns ErrAuditSignatureInvalid on mismatch.
	Verify(entry *proposalDomain.AuditEntry) error
}
