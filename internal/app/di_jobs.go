package app

import (
	"fmt"

	"github.com/simpix/loanflow/internal/breaker"
	"github.com/simpix/loanflow/internal/config"
	"github.com/simpix/loanflow/internal/gateway"
	jobsDomain "github.com/simpix/loanflow/internal/jobs/domain"
	jobsRepository "github.com/simpix/loanflow/internal/jobs/repository"
	jobsUsecase "github.com/simpix/loanflow/internal/jobs/usecase"
)

// JobRepository returns the job repository instance.
func (c *Container) JobRepository() (jobsRepository.JobRepository, error) {
	var err error
	c.jobRepoInit.Do(func() {
		c.jobRepo, err = c.initJobRepository()
		if err != nil {
			c.initErrors["jobRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["jobRepo"]; exists {
		return nil, storedErr
	}
	return c.jobRepo, nil
}

// BankingBreaker returns the circuit breaker guarding the banking API.
func (c *Container) BankingBreaker() (*breaker.Breaker, error) {
	var err error
	c.bankingBreakerInit.Do(func() {
		c.bankingBreaker, err = c.initBreaker("banking", c.config.BankingBreaker)
		if err != nil {
			c.initErrors["bankingBreaker"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["bankingBreaker"]; exists {
		return nil, storedErr
	}
	return c.bankingBreaker, nil
}

// SignatureBreaker returns the circuit breaker guarding the e-signature provider.
func (c *Container) SignatureBreaker() (*breaker.Breaker, error) {
	var err error
	c.signatureBreakerInit.Do(func() {
		c.signatureBreaker, err = c.initBreaker("signature", c.config.SignatureBreaker)
		if err != nil {
			c.initErrors["signatureBreaker"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["signatureBreaker"]; exists {
		return nil, storedErr
	}
	return c.signatureBreaker, nil
}

// BankingGateway returns the banking API client.
func (c *Container) BankingGateway() (gateway.BankingGateway, error) {
	c.bankingGatewayInit.Do(func() {
		c.bankingGateway = gateway.NewHTTPBankingGateway(c.config.BankingAPIBaseURL, nil, c.Logger())
	})
	return c.bankingGateway, nil
}

// SignatureGateway returns the e-signature provider client.
func (c *Container) SignatureGateway() (gateway.SignatureGateway, error) {
	c.signatureGatewayInit.Do(func() {
		c.signatureGateway = gateway.NewHTTPSignatureGateway(c.config.SignatureAPIBaseURL, nil, c.Logger())
	})
	return c.signatureGateway, nil
}

// EnqueueUseCase returns the job enqueue use case instance.
func (c *Container) EnqueueUseCase() (jobsUsecase.EnqueueUseCase, error) {
	var err error
	c.enqueueUseCaseInit.Do(func() {
		c.enqueueUseCase, err = c.initEnqueueUseCase()
		if err != nil {
			c.initErrors["enqueueUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["enqueueUseCase"]; exists {
		return nil, storedErr
	}
	return c.enqueueUseCase, nil
}

// DeadLetterUseCase returns the dead-letter use case instance.
func (c *Container) DeadLetterUseCase() (jobsUsecase.DeadLetterUseCase, error) {
	var err error
	c.deadLetterUseCaseInit.Do(func() {
		c.deadLetterUseCase, err = c.initDeadLetterUseCase()
		if err != nil {
			c.initErrors["deadLetterUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["deadLetterUseCase"]; exists {
		return nil, storedErr
	}
	return c.deadLetterUseCase, nil
}

// Worker returns the job worker pool instance.
func (c *Container) Worker() (*jobsUsecase.Worker, error) {
	var err error
	c.workerInit.Do(func() {
		c.worker, err = c.initWorker()
		if err != nil {
			c.initErrors["worker"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["worker"]; exists {
		return nil, storedErr
	}
	return c.worker, nil
}

// Sweeper returns the queue maintenance sweeper instance.
func (c *Container) Sweeper() (*jobsUsecase.Sweeper, error) {
	var err error
	c.sweeperInit.Do(func() {
		c.sweeper, err = c.initSweeper()
		if err != nil {
			c.initErrors["sweeper"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sweeper"]; exists {
		return nil, storedErr
	}
	return c.sweeper, nil
}

// initJobRepository creates the job repository instance.
func (c *Container) initJobRepository() (jobsRepository.JobRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for job repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return jobsRepository.NewMySQLJobRepository(db), nil
	case "postgres":
		return jobsRepository.NewPostgreSQLJobRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initBreaker creates one circuit breaker from its configuration.
func (c *Container) initBreaker(name string, cfg config.BreakerConfig) (*breaker.Breaker, error) {
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for %s breaker: %w", name, err)
	}

	return breaker.New(name, breaker.Config{
		Timeout:                  cfg.Timeout,
		ErrorThresholdPercentage: cfg.ErrorThresholdPercentage,
		VolumeThreshold:          cfg.VolumeThreshold,
		ResetTimeout:             cfg.ResetTimeout,
		RollingWindow:            cfg.RollingWindow,
	}, c.Logger(), businessMetrics), nil
}

// initEnqueueUseCase creates the enqueue use case with all its dependencies.
func (c *Container) initEnqueueUseCase() (jobsUsecase.EnqueueUseCase, error) {
	jobRepo, err := c.JobRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get job repository for enqueue use case: %w", err)
	}

	queue, err := c.Queue()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue for enqueue use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for enqueue use case: %w", err)
	}

	maxAttempts := map[jobsDomain.JobType]int{
		jobsDomain.JobTypeGenerateDocument:  c.config.JobMaxAttemptsGenerateDocument,
		jobsDomain.JobTypeSendForSignature:  c.config.JobMaxAttemptsSendForSignature,
		jobsDomain.JobTypeSyncPaymentStatus: c.config.JobMaxAttemptsSyncPaymentStatus,
		jobsDomain.JobTypeApplyTransition:   c.config.JobMaxAttemptsApplyTransition,
	}

	return jobsUsecase.NewEnqueueUseCase(jobRepo, queue, maxAttempts, businessMetrics, c.Logger()), nil
}

// initDeadLetterUseCase creates the dead-letter use case with all its dependencies.
func (c *Container) initDeadLetterUseCase() (jobsUsecase.DeadLetterUseCase, error) {
	jobRepo, err := c.JobRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get job repository for dead-letter use case: %w", err)
	}

	queue, err := c.Queue()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue for dead-letter use case: %w", err)
	}

	return jobsUsecase.NewDeadLetterUseCase(jobRepo, queue, c.Logger()), nil
}

// initHandlerRegistry creates the job handler registry with all its dependencies.
func (c *Container) initHandlerRegistry() (jobsUsecase.HandlerRegistry, error) {
	transitions, err := c.TransitionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get transition use case for handler registry: %w", err)
	}

	banking, err := c.BankingGateway()
	if err != nil {
		return nil, fmt.Errorf("failed to get banking gateway for handler registry: %w", err)
	}

	signatures, err := c.SignatureGateway()
	if err != nil {
		return nil, fmt.Errorf("failed to get signature gateway for handler registry: %w", err)
	}

	bankingBreaker, err := c.BankingBreaker()
	if err != nil {
		return nil, fmt.Errorf("failed to get banking breaker for handler registry: %w", err)
	}

	signatureBreaker, err := c.SignatureBreaker()
	if err != nil {
		return nil, fmt.Errorf("failed to get signature breaker for handler registry: %w", err)
	}

	enqueuer, err := c.EnqueueUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get enqueue use case for handler registry: %w", err)
	}

	logger := c.Logger()

	return jobsUsecase.NewHandlerRegistry(
		jobsUsecase.NewGenerateDocumentHandler(transitions, logger),
		jobsUsecase.NewSendForSignatureHandler(signatures, signatureBreaker, transitions, logger),
		jobsUsecase.NewSyncPaymentStatusHandler(banking, bankingBreaker, transitions, logger),
		jobsUsecase.NewApplyTransitionHandler(transitions, enqueuer, logger),
	), nil
}

// initWorker creates the worker pool with all its dependencies.
func (c *Container) initWorker() (*jobsUsecase.Worker, error) {
	queue, err := c.Queue()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue for worker: %w", err)
	}

	jobRepo, err := c.JobRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get job repository for worker: %w", err)
	}

	handlers, err := c.initHandlerRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to build handler registry for worker: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for worker: %w", err)
	}

	policy := jobsDomain.RetryPolicy{
		BaseDelay:        c.config.JobBaseDelay,
		MaxDelay:         c.config.JobMaxDelay,
		CircuitOpenFloor: c.config.JobCircuitOpenDelayFloor,
	}

	return jobsUsecase.NewWorker(jobsUsecase.WorkerConfig{
		Concurrency: c.config.WorkerConcurrency,
		DequeueWait: c.config.WorkerDequeueWait,
	}, queue, jobRepo, handlers, policy, businessMetrics, c.Logger()), nil
}

// initSweeper creates the sweeper with all its dependencies.
func (c *Container) initSweeper() (*jobsUsecase.Sweeper, error) {
	queue, err := c.Queue()
	if err != nil {
		return nil, fmt.Errorf("failed to get queue for sweeper: %w", err)
	}

	jobRepo, err := c.JobRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get job repository for sweeper: %w", err)
	}

	return jobsUsecase.NewSweeper(jobsUsecase.SweeperConfig{
		Interval:       c.config.SweepInterval,
		StuckThreshold: c.config.JobStuckThreshold,
		RequeueGrace:   c.config.SweepRequeueGrace,
	}, queue, jobRepo, c.Logger()), nil
}
