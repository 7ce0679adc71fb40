package domain

import (
	"bytes"
	"encoding/json"

	validation "github.com/jellydator/validation"

	customValidation "github.com/simpix/loanflow/internal/validation"
)

// Payload is the tagged union of per-type job payloads. Payloads are validated
// at the enqueue boundary so handlers always receive well-formed, typed data
// instead of opaque maps.
type Payload interface {
	Validate() error
}

// GenerateDocumentPayload carries the input for a document generation job.
type GenerateDocumentPayload struct {
	ProposalID string `json:"proposal_id"`
	TemplateID string `json:"template_id,omitempty"`
}

// Validate checks the document generation payload.
func (p GenerateDocumentPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ProposalID, validation.Required, customValidation.NotBlank),
	)
}

// SendForSignaturePayload carries the input for a signature dispatch job.
type SendForSignaturePayload struct {
	ProposalID  string `json:"proposal_id"`
	DocumentID  string `json:"document_id"`
	SignerEmail string `json:"signer_email"`
}

// Validate checks the signature dispatch payload.
func (p SendForSignaturePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ProposalID, validation.Required, customValidation.NotBlank),
		validation.Field(&p.DocumentID, validation.Required, customValidation.NotBlank),
		validation.Field(&p.SignerEmail, validation.Required, customValidation.NotBlank),
	)
}

// SyncPaymentStatusPayload carries the input for a payment reconciliation job.
// An empty ChargeID means no payment is scheduled yet; the handler schedules
// one first.
type SyncPaymentStatusPayload struct {
	ProposalID string `json:"proposal_id"`
	ChargeID   string `json:"charge_id,omitempty"`
}

// Validate checks the payment sync payload.
func (p SyncPaymentStatusPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ProposalID, validation.Required, customValidation.NotBlank),
	)
}

// ApplyTransitionPayload carries a status transition requested asynchronously,
// typically by a verified webhook delivery.
type ApplyTransitionPayload struct {
	ProposalID  string            `json:"proposal_id"`
	ToStatus    string            `json:"to_status"`
	TriggeredBy string            `json:"triggered_by"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Validate checks the transition payload.
func (p ApplyTransitionPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ProposalID, validation.Required, customValidation.NotBlank),
		validation.Field(&p.ToStatus, validation.Required, customValidation.NotBlank),
		validation.Field(&p.TriggeredBy, validation.Required, customValidation.NotBlank),
	)
}

// ParsePayload decodes and validates raw payload bytes for the given job type.
// Unknown fields are rejected so producer typos fail at the boundary instead
// of surfacing as handler bugs.
func ParsePayload(jobType JobType, raw json.RawMessage) (Payload, error) {
	var payload Payload

	switch jobType {
	case JobTypeGenerateDocument:
		var p GenerateDocumentPayload
		if err := strictUnmarshal(raw, &p); err != nil {
			return nil, customValidation.WrapValidationError(err)
		}
		payload = p
	case JobTypeSendForSignature:
		var p SendForSignaturePayload
		if err := strictUnmarshal(raw, &p); err != nil {
			return nil, customValidation.WrapValidationError(err)
		}
		payload = p
	case JobTypeSyncPaymentStatus:
		var p SyncPaymentStatusPayload
		if err := strictUnmarshal(raw, &p); err != nil {
			return nil, customValidation.WrapValidationError(err)
		}
		payload = p
	case JobTypeApplyTransition:
		var p ApplyTransitionPayload
		if err := strictUnmarshal(raw, &p); err != nil {
			return nil, customValidation.WrapValidationError(err)
		}
		payload = p
	default:
		return nil, ErrUnknownJobType
	}

	if err := payload.Validate(); err != nil {
		return nil, customValidation.WrapValidationError(err)
	}

	return payload, nil
}

// strictUnmarshal decodes JSON rejecting unknown fields.
func strictUnmarshal(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
