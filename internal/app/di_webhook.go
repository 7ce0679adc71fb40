package app

import (
	"fmt"

	webhookDomain "github.com/simpix/loanflow/internal/webhook/domain"
	webhookRepository "github.com/simpix/loanflow/internal/webhook/repository"
	webhookService "github.com/simpix/loanflow/internal/webhook/service"
	webhookUsecase "github.com/simpix/loanflow/internal/webhook/usecase"
)

// Verifier returns the webhook signature verifier.
func (c *Container) Verifier() (webhookService.Verifier, error) {
	c.verifierInit.Do(func() {
		c.verifier = c.initVerifier()
	})
	return c.verifier, nil
}

// EventRepository returns the webhook event repository instance.
func (c *Container) EventRepository() (webhookRepository.EventRepository, error) {
	var err error
	c.eventRepoInit.Do(func() {
		c.eventRepo, err = c.initEventRepository()
		if err != nil {
			c.initErrors["eventRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventRepo"]; exists {
		return nil, storedErr
	}
	return c.eventRepo, nil
}

// IngestUseCase returns the webhook ingest use case instance.
func (c *Container) IngestUseCase() (webhookUsecase.IngestUseCase, error) {
	var err error
	c.ingestUseCaseInit.Do(func() {
		c.ingestUseCase, err = c.initIngestUseCase()
		if err != nil {
			c.initErrors["ingestUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["ingestUseCase"]; exists {
		return nil, storedErr
	}
	return c.ingestUseCase, nil
}

// initVerifier creates the webhook verifier from the configured secrets.
func (c *Container) initVerifier() webhookService.Verifier {
	logger := c.Logger()

	allowUnverified := c.config.WebhookAllowUnverified
	if allowUnverified && c.config.IsProduction() {
		logger.Error("WEBHOOK_ALLOW_UNVERIFIED is refused in production, verification stays enabled")
		allowUnverified = false
	}

	return webhookService.NewVerifier(webhookService.VerifierConfig{
		Secrets: map[webhookDomain.Provider]string{
			webhookDomain.ProviderBanking:   c.config.BankingWebhookSecret,
			webhookDomain.ProviderSignature: c.config.SignatureWebhookSecret,
		},
		AllowUnverified: allowUnverified,
		MaxTimestampAge: c.config.WebhookMaxTimestampAge,
	}, logger)
}

// initEventRepository creates the webhook event repository instance.
func (c *Container) initEventRepository() (webhookRepository.EventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for event repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return webhookRepository.NewMySQLEventRepository(db), nil
	case "postgres":
		return webhookRepository.NewPostgreSQLEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initIngestUseCase creates the ingest use case with all its dependencies.
func (c *Container) initIngestUseCase() (webhookUsecase.IngestUseCase, error) {
	verifier, err := c.Verifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get verifier for ingest use case: %w", err)
	}

	eventRepo, err := c.EventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get event repository for ingest use case: %w", err)
	}

	enqueuer, err := c.EnqueueUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get enqueue use case for ingest use case: %w", err)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction manager for ingest use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for ingest use case: %w", err)
	}

	return webhookUsecase.NewIngestUseCase(
		verifier,
		eventRepo,
		enqueuer,
		txManager,
		businessMetrics,
		c.Logger(),
	), nil
}
