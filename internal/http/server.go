// Package http provides the HTTP API server: routing, middleware and the
// health and operational endpoints.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	jobsHTTP "github.com/simpix/loanflow/internal/jobs/http"
	proposalHTTP "github.com/simpix/loanflow/internal/proposal/http"
	webhookHTTP "github.com/simpix/loanflow/internal/webhook/http"
)

// Handlers groups the route handlers mounted on the API server.
type Handlers struct {
	Job      *jobsHTTP.JobHandler
	Proposal *proposalHTTP.ProposalHandler
	Webhook  *webhookHTTP.WebhookHandler
	Ops      *OpsHandler
}

// RouterConfig carries the settings the router needs.
type RouterConfig struct {
	GinMode           string
	CORSEnabled       bool
	CORSAllowOrigins  string
	WebhookRatePerSec float64
	WebhookRateBurst  int
}

// Server represents the HTTP API server.
type Server struct {
	server *http.Server
	db     *sql.DB
	logger *slog.Logger
}

// NewServer creates a new HTTP server. The router is attached separately via
// SetupRouter so tests can exercise handlers without a full container.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter builds the gin router and attaches it to the server.
func (s *Server) SetupRouter(cfg RouterConfig, handlers Handlers) {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	// Health and readiness endpoints
	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")

	// Producer-facing job API
	v1.POST("/jobs", handlers.Job.EnqueueHandler)
	v1.GET("/jobs/:id", handlers.Job.GetHandler)

	// Proposal transitions and audit trail
	v1.POST("/proposals/:id/transition", handlers.Proposal.TransitionHandler)
	v1.GET("/proposals/:id/audit-trail", handlers.Proposal.AuditTrailHandler)

	// Webhook ingress: rate limited since providers retry aggressively on
	// their side and the endpoint is unauthenticated beyond the signature.
	webhookLimiter := rate.NewLimiter(rate.Limit(cfg.WebhookRatePerSec), cfg.WebhookRateBurst)
	v1.POST("/webhooks/:provider",
		RateLimitMiddleware(webhookLimiter, s.logger),
		handlers.Webhook.IngestHandler,
	)

	// Operational surface
	ops := v1.Group("/ops")
	ops.GET("/breakers", handlers.Ops.BreakersHandler)
	ops.GET("/dead-letters", handlers.Ops.ListDeadLettersHandler)
	ops.POST("/dead-letters/:id/requeue", handlers.Ops.RequeueDeadLetterHandler)

	s.server.Handler = router
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can serve traffic. The database
// is the only hard dependency; the queue degrades to retries.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{"database": "ok"}

	if s.db == nil {
		components["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("readiness check failed", slog.Any("error", err))
		components["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
