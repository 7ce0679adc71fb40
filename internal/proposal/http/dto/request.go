// Package dto defines the request and response shapes for the proposal API.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/simpix/loanflow/internal/validation"
)

// TransitionRequest asks for a proposal status change. Used by back-office
// actions (approve, reject, request info).
type TransitionRequest struct {
	To          string            `json:"to"`
	TriggeredBy string            `json:"triggered_by"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Validate checks the transition request. The target status is validated
// against the state machine by the domain.
func (r TransitionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.To, validation.Required, customValidation.NotBlank),
		validation.Field(&r.TriggeredBy, validation.Required, customValidation.NotBlank),
	)
}
