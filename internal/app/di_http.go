package app

import (
	"fmt"

	"github.com/simpix/loanflow/internal/breaker"
	"github.com/simpix/loanflow/internal/http"
	jobsHTTP "github.com/simpix/loanflow/internal/jobs/http"
	proposalHTTP "github.com/simpix/loanflow/internal/proposal/http"
	webhookHTTP "github.com/simpix/loanflow/internal/webhook/http"
)

// HTTPServer returns the HTTP API server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server instance, or nil when metrics are
// disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	enqueueUseCase, err := c.EnqueueUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get enqueue use case for http server: %w", err)
	}

	transitionUseCase, err := c.TransitionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get transition use case for http server: %w", err)
	}

	auditTrailUseCase, err := c.AuditTrailUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit trail use case for http server: %w", err)
	}

	ingestUseCase, err := c.IngestUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get ingest use case for http server: %w", err)
	}

	deadLetterUseCase, err := c.DeadLetterUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get dead-letter use case for http server: %w", err)
	}

	bankingBreaker, err := c.BankingBreaker()
	if err != nil {
		return nil, fmt.Errorf("failed to get banking breaker for http server: %w", err)
	}

	signatureBreaker, err := c.SignatureBreaker()
	if err != nil {
		return nil, fmt.Errorf("failed to get signature breaker for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(http.RouterConfig{
		GinMode:           c.config.GetGinMode(),
		CORSEnabled:       c.config.CORSEnabled,
		CORSAllowOrigins:  c.config.CORSAllowOrigins,
		WebhookRatePerSec: c.config.WebhookRateLimitPerSec,
		WebhookRateBurst:  c.config.WebhookRateLimitBurst,
	}, http.Handlers{
		Job:      jobsHTTP.NewJobHandler(enqueueUseCase, logger),
		Proposal: proposalHTTP.NewProposalHandler(transitionUseCase, auditTrailUseCase, logger),
		Webhook:  webhookHTTP.NewWebhookHandler(ingestUseCase, logger),
		Ops: http.NewOpsHandler(
			[]*breaker.Breaker{bankingBreaker, signatureBreaker},
			deadLetterUseCase,
			logger,
		),
	})

	return server, nil
}

// initMetricsServer creates the metrics server when metrics are enabled.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}

	if provider == nil {
		return nil, nil
	}

	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}
