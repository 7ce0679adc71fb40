package app

import (
	"fmt"

	proposalRepository "github.com/simpix/loanflow/internal/proposal/repository"
	proposalService "github.com/simpix/loanflow/internal/proposal/service"
	proposalUsecase "github.com/simpix/loanflow/internal/proposal/usecase"
)

// AuditSigner returns the audit trail signer.
func (c *Container) AuditSigner() (proposalService.AuditSigner, error) {
	var err error
	c.auditSignerInit.Do(func() {
		c.auditSigner, err = c.initAuditSigner()
		if err != nil {
			c.initErrors["auditSigner"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditSigner"]; exists {
		return nil, storedErr
	}
	return c.auditSigner, nil
}

// ProposalRepository returns the proposal repository instance.
func (c *Container) ProposalRepository() (proposalRepository.ProposalRepository, error) {
	var err error
	c.proposalRepoInit.Do(func() {
		c.proposalRepo, err = c.initProposalRepository()
		if err != nil {
			c.initErrors["proposalRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["proposalRepo"]; exists {
		return nil, storedErr
	}
	return c.proposalRepo, nil
}

// AuditEntryRepository returns the audit entry repository instance.
func (c *Container) AuditEntryRepository() (proposalRepository.AuditEntryRepository, error) {
	var err error
	c.auditRepoInit.Do(func() {
		c.auditRepo, err = c.initAuditEntryRepository()
		if err != nil {
			c.initErrors["auditRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditRepo"]; exists {
		return nil, storedErr
	}
	return c.auditRepo, nil
}

// TransitionUseCase returns the proposal transition use case instance.
func (c *Container) TransitionUseCase() (proposalUsecase.TransitionUseCase, error) {
	var err error
	c.transitionUseCaseInit.Do(func() {
		c.transitionUseCase, err = c.initTransitionUseCase()
		if err != nil {
			c.initErrors["transitionUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["transitionUseCase"]; exists {
		return nil, storedErr
	}
	return c.transitionUseCase, nil
}

// AuditTrailUseCase returns the audit trail use case instance.
func (c *Container) AuditTrailUseCase() (proposalUsecase.AuditTrailUseCase, error) {
	var err error
	c.auditTrailUseCaseInit.Do(func() {
		c.auditTrailUseCase, err = c.initAuditTrailUseCase()
		if err != nil {
			c.initErrors["auditTrailUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditTrailUseCase"]; exists {
		return nil, storedErr
	}
	return c.auditTrailUseCase, nil
}

// initAuditSigner creates the audit signer from the configured root key.
func (c *Container) initAuditSigner() (proposalService.AuditSigner, error) {
	if c.config.AuditSigningKey == "" {
		return nil, fmt.Errorf("AUDIT_SIGNING_KEY is required")
	}

	signer, err := proposalService.NewAuditSigner([]byte(c.config.AuditSigningKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create audit signer: %w", err)
	}
	return signer, nil
}

// initProposalRepository creates the proposal repository instance.
func (c *Container) initProposalRepository() (proposalRepository.ProposalRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for proposal repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return proposalRepository.NewMySQLProposalRepository(db), nil
	case "postgres":
		return proposalRepository.NewPostgreSQLProposalRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initAuditEntryRepository creates the audit entry repository instance.
func (c *Container) initAuditEntryRepository() (proposalRepository.AuditEntryRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for audit entry repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return proposalRepository.NewMySQLAuditEntryRepository(db), nil
	case "postgres":
		return proposalRepository.NewPostgreSQLAuditEntryRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initTransitionUseCase creates the transition use case with all its dependencies.
func (c *Container) initTransitionUseCase() (proposalUsecase.TransitionUseCase, error) {
	proposalRepo, err := c.ProposalRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal repository for transition use case: %w", err)
	}

	auditRepo, err := c.AuditEntryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit entry repository for transition use case: %w", err)
	}

	signer, err := c.AuditSigner()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit signer for transition use case: %w", err)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for transition use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for transition use case: %w", err)
	}

	return proposalUsecase.NewTransitionUseCase(
		proposalRepo,
		auditRepo,
		signer,
		txManager,
		businessMetrics,
		c.Logger(),
	), nil
}

// initAuditTrailUseCase creates the audit trail use case with all its dependencies.
func (c *Container) initAuditTrailUseCase() (proposalUsecase.AuditTrailUseCase, error) {
	auditRepo, err := c.AuditEntryRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit entry repository for audit trail use case: %w", err)
	}

	signer, err := c.AuditSigner()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit signer for audit trail use case: %w", err)
	}

	return proposalUsecase.NewAuditTrailUseCase(auditRepo, signer), nil
}
