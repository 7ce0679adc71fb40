// Package http provides HTTP handlers for proposal transitions and the audit
// trail.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/simpix/loanflow/internal/httputil"
	proposalDomain "github.com/simpix/loanflow/internal/proposal/domain"
	"github.com/simpix/loanflow/internal/proposal/http/dto"
	proposalUseCase "github.com/simpix/loanflow/internal/proposal/usecase"
	customValidation "github.com/simpix/loanflow/internal/validation"
)

// ProposalHandler handles proposal transition and audit trail requests.
type ProposalHandler struct {
	transitionUseCase proposalUseCase.TransitionUseCase
	auditTrailUseCase proposalUseCase.AuditTrailUseCase
	logger            *slog.Logger
}

// NewProposalHandler creates a new proposal handler.
func NewProposalHandler(
	transitionUseCase proposalUseCase.TransitionUseCase,
	auditTrailUseCase proposalUseCase.AuditTrailUseCase,
	logger *slog.Logger,
) *ProposalHandler {
	return &ProposalHandler{
		transitionUseCase: transitionUseCase,
		auditTrailUseCase: auditTrailUseCase,
		logger:            logger,
	}
}

// TransitionHandler applies a status transition to a proposal.
// POST /v1/proposals/:id/transition
func (h *ProposalHandler) TransitionHandler(c *gin.Context) {
	proposalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	result, err := h.transitionUseCase.Transition(c.Request.Context(), proposalUseCase.TransitionRequest{
		ProposalID:  proposalID,
		To:          proposalDomain.Status(req.To),
		TriggeredBy: req.TriggeredBy,
		Metadata:    req.Metadata,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTransitionToResponse(result))
}

// AuditTrailHandler returns the append-only audit trail of a proposal.
// GET /v1/proposals/:id/audit-trail
func (h *ProposalHandler) AuditTrailHandler(c *gin.Context) {
	proposalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	entries, err := h.auditTrailUseCase.ListByProposal(c.Request.Context(), proposalID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": dto.MapAuditEntriesToResponse(entries)})
}
