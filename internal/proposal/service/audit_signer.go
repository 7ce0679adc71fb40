package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	proposalDomain "github.com/simpix/loanflow/internal/proposal/domain"
)

type auditSigner struct {
	signingKey []byte
}

// NewAuditSigner creates an HMAC-based audit entry signer. The signing key is
// derived from the configured master key with HKDF-SHA256 so the master key is
// never used directly; the info string is versioned for future algorithm
// changes.
func NewAuditSigner(masterKey []byte) (AuditSigner, error) {
	info := []byte("audit-trail-signing-v1")
	kdf := hkdf.New(sha256.New, masterKey, nil, info)

	signingKey := make([]byte, 32)
	if _, err := io.ReadFull(kdf, signingKey); err != nil {
		return nil, fmt.Errorf("failed to derive signing key: %w", err)
	}

	return &auditSigner{signingKey: signingKey}, nil
}

// canonicalize converts an audit entry to its canonical byte representation.
// Format: id || proposal_id || from || to || triggered_by || metadata || occurred_at,
// with length prefixes on variable-length fields to prevent ambiguity.
func (a *auditSigner) canonicalize(entry *proposalDomain.AuditEntry) ([]byte, error) {
	buf := make([]byte, 0, 256)

	buf = append(buf, entry.ID[:]...)
	buf = append(buf, entry.ProposalID[:]...)
	buf = appendLengthPrefixed(buf, []byte(entry.FromStatus))
	buf = appendLengthPrefixed(buf, []byte(entry.ToStatus))
	buf = appendLengthPrefixed(buf, []byte(entry.TriggeredBy))

	if entry.Metadata != nil {
		// json.Marshal sorts map keys, so the encoding is deterministic.
		metadataBytes, err := json.Marshal(entry.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		buf = appendLengthPrefixed(buf, metadataBytes)
	} else {
		buf = appendLengthPrefixed(buf, nil)
	}

	timeBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(timeBytes, uint64(entry.OccurredAt.UnixNano()))
	buf = append(buf, timeBytes...)

	return buf, nil
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
func appendLengthPrefixed(buf, data []byte) []byte {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	buf = append(buf, length...)
	buf = append(buf, data...)
	return buf
}

// Sign generates the hex-encoded HMAC-SHA256 signature for the entry.
func (a *auditSigner) Sign(entry *proposalDomain.AuditEntry) (string, error) {
	canonical, err := a.canonicalize(entry)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize audit entry: %w", err)
	}

	mac := hmac.New(sha256.New, a.signingKey)
	mac.Write(canonical)

	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify checks the entry signature. Returns ErrAuditSignatureInvalid when the
// entry was tampered with or signed under a different key.
func (a *auditSigner) Verify(entry *proposalDomain.AuditEntry) error {
	expected, err := a.Sign(entry)
	if err != nil {
		return fmt.Errorf("failed to compute expected signature: %w", err)
	}

	if !hmac.Equal([]byte(entry.Signature), []byte(expected)) {
		return proposalDomain.ErrAuditSignatureInvalid
	}

	return nil
}
