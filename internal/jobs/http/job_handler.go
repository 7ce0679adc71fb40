// Package http provides HTTP handlers for the jobs API.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/simpix/loanflow/internal/httputil"
	jobsDomain "github.com/simpix/loanflow/internal/jobs/domain"
	"github.com/simpix/loanflow/internal/jobs/http/dto"
	jobsUseCase "github.com/simpix/loanflow/internal/jobs/usecase"
	customValidation "github.com/simpix/loanflow/internal/validation"
)

// JobHandler handles HTTP requests for the producer-facing job API.
type JobHandler struct {
	enqueueUseCase jobsUseCase.EnqueueUseCase
	logger         *slog.Logger
}

// NewJobHandler creates a new job handler.
func NewJobHandler(enqueueUseCase jobsUseCase.EnqueueUseCase, logger *slog.Logger) *JobHandler {
	return &JobHandler{enqueueUseCase: enqueueUseCase, logger: logger}
}

// EnqueueHandler accepts a job for asynchronous processing.
// POST /v1/jobs - Returns 202 Accepted with the job id; the producer never
// waits for the job to run.
func (h *JobHandler) EnqueueHandler(c *gin.Context) {
	var req dto.EnqueueJobRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	jobID, err := h.enqueueUseCase.Enqueue(c.Request.Context(), jobsDomain.JobType(req.Type), req.Payload)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusAccepted, dto.EnqueueJobResponse{JobID: jobID.String()})
}

// GetHandler returns the current status of a job.
// GET /v1/jobs/:id
func (h *JobHandler) GetHandler(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	job, err := h.enqueueUseCase.GetStatus(c.Request.Context(), jobID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapJobToResponse(job))
}
