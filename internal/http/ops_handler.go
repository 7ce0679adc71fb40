package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/simpix/loanflow/internal/breaker"
	"github.com/simpix/loanflow/internal/httputil"
	jobsDTO "github.com/simpix/loanflow/internal/jobs/http/dto"
	jobsUseCase "github.com/simpix/loanflow/internal/jobs/usecase"
)

// OpsHandler serves the operational endpoints: circuit breaker state and the
// dead-letter queue.
type OpsHandler struct {
	breakers          []*breaker.Breaker
	deadLetterUseCase jobsUseCase.DeadLetterUseCase
	logger            *slog.Logger
}

// NewOpsHandler creates a new ops handler.
func NewOpsHandler(
	breakers []*breaker.Breaker,
	deadLetterUseCase jobsUseCase.DeadLetterUseCase,
	logger *slog.Logger,
) *OpsHandler {
	return &OpsHandler{
		breakers:          breakers,
		deadLetterUseCase: deadLetterUseCase,
		logger:            logger,
	}
}

// BreakersHandler returns a snapshot of every circuit breaker.
// GET /v1/ops/breakers
func (h *OpsHandler) BreakersHandler(c *gin.Context) {
	snapshots := make([]breaker.Snapshot, 0, len(h.breakers))
	for _, b := range h.breakers {
		snapshots = append(snapshots, b.Snapshot())
	}

	c.JSON(http.StatusOK, gin.H{"breakers": snapshots})
}

// ListDeadLettersHandler lists dead-lettered jobs for inspection.
// GET /v1/ops/dead-letters
func (h *OpsHandler) ListDeadLettersHandler(c *gin.Context) {
	offset, limit := httputil.ParsePagination(c)

	jobs, err := h.deadLetterUseCase.List(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobsDTO.MapJobsToResponse(jobs)})
}

// RequeueDeadLetterHandler resurrects a dead-lettered job with a fresh
// attempt budget.
// POST /v1/ops/dead-letters/:id/requeue
func (h *OpsHandler) RequeueDeadLetterHandler(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := h.deadLetterUseCase.Requeue(c.Request.Context(), jobID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.logger.Info("dead-letter job requeued", slog.String("job_id", jobID.String()))

	c.JSON(http.StatusOK, gin.H{"status": "requeued"})
}
