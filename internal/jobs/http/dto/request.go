// Package dto defines the request and response shapes for the jobs API.
package dto

import (
	"encoding/json"

	validation "github.com/jellydator/validation"

	customValidation "github.com/simpix/loanflow/internal/validation"
)

// EnqueueJobRequest is the producer-facing enqueue payload.
type EnqueueJobRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Validate checks the enqueue request. The payload itself is validated
// per-type by the use case.
func (r EnqueueJobRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Type, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Payload, validation.Required),
	)
}
