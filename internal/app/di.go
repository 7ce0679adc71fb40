// Package app provides the dependency injection container for assembling
// application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/simpix/loanflow/internal/breaker"
	"github.com/simpix/loanflow/internal/config"
	"github.com/simpix/loanflow/internal/database"
	"github.com/simpix/loanflow/internal/gateway"
	"github.com/simpix/loanflow/internal/http"
	jobsQueue "github.com/simpix/loanflow/internal/jobs/queue"
	jobsRepository "github.com/simpix/loanflow/internal/jobs/repository"
	jobsUsecase "github.com/simpix/loanflow/internal/jobs/usecase"
	"github.com/simpix/loanflow/internal/metrics"
	proposalRepository "github.com/simpix/loanflow/internal/proposal/repository"
	proposalService "github.com/simpix/loanflow/internal/proposal/service"
	proposalUsecase "github.com/simpix/loanflow/internal/proposal/usecase"
	webhookRepository "github.com/simpix/loanflow/internal/webhook/repository"
	webhookService "github.com/simpix/loanflow/internal/webhook/service"
	webhookUsecase "github.com/simpix/loanflow/internal/webhook/usecase"
)

// Container holds all application dependencies and provides methods to access
// them. It follows the lazy initialization pattern - components are created on
// first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	txManager       database.TxManager
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	queue           jobsQueue.Queue
	redisClient     *redis.Client

	// Circuit breakers and gateways
	bankingBreaker   *breaker.Breaker
	signatureBreaker *breaker.Breaker
	bankingGateway   gateway.BankingGateway
	signatureGateway gateway.SignatureGateway

	// Repositories
	jobRepo      jobsRepository.JobRepository
	proposalRepo proposalRepository.ProposalRepository
	auditRepo    proposalRepository.AuditEntryRepository
	eventRepo    webhookRepository.EventRepository

	// Services
	auditSigner proposalService.AuditSigner
	verifier    webhookService.Verifier

	// Use Cases
	transitionUseCase proposalUsecase.TransitionUseCase
	auditTrailUseCase proposalUsecase.AuditTrailUseCase
	enqueueUseCase    jobsUsecase.EnqueueUseCase
	deadLetterUseCase jobsUsecase.DeadLetterUseCase
	ingestUseCase     webhookUsecase.IngestUseCase

	// Servers and Workers
	httpServer    *http.Server
	metricsServer *http.MetricsServer
	worker        *jobsUsecase.Worker
	sweeper       *jobsUsecase.Sweeper

	// Initialization flags and mutex for thread-safety
	mu                    sync.Mutex
	loggerInit            sync.Once
	dbInit                sync.Once
	txManagerInit         sync.Once
	metricsProviderInit   sync.Once
	businessMetricsInit   sync.Once
	queueInit             sync.Once
	bankingBreakerInit    sync.Once
	signatureBreakerInit  sync.Once
	bankingGatewayInit    sync.Once
	signatureGatewayInit  sync.Once
	jobRepoInit           sync.Once
	proposalRepoInit      sync.Once
	auditRepoInit         sync.Once
	eventRepoInit         sync.Once
	auditSignerInit       sync.Once
	verifierInit          sync.Once
	transitionUseCaseInit sync.Once
	auditTrailUseCaseInit sync.Once
	enqueueUseCaseInit    sync.Once
	deadLetterUseCaseInit sync.Once
	ingestUseCaseInit     sync.Once
	httpServerInit        sync.Once
	metricsServerInit     sync.Once
	workerInit            sync.Once
	sweeperInit           sync.Once
	initErrors            map[string]error
}

// NewContainer creates a new dependency injection container with the provided
// configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = c.initMetricsProvider()
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. It degrades to a
// no-op recorder when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// Queue returns the job queue instance.
func (c *Container) Queue() (jobsQueue.Queue, error) {
	var err error
	c.queueInit.Do(func() {
		c.queue, err = c.initQueue()
		if err != nil {
			c.initErrors["queue"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["queue"]; exists {
		return nil, storedErr
	}
	return c.queue, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("redis close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initMetricsProvider creates the metrics provider when metrics are enabled.
func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}

	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

// initBusinessMetrics creates the business metrics recorder.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}

	if provider == nil {
		return metrics.NoopBusinessMetrics(), nil
	}

	businessMetrics, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return businessMetrics, nil
}

// initQueue creates the job queue based on the configured driver.
func (c *Container) initQueue() (jobsQueue.Queue, error) {
	switch c.config.QueueDriver {
	case "redis":
		c.redisClient = redis.NewClient(&redis.Options{
			Addr:     c.config.RedisAddr,
			Password: c.config.RedisPassword,
		})
		return jobsQueue.NewRedisQueue(c.redisClient), nil
	case "memory":
		return jobsQueue.NewMemoryQueue(0), nil
	default:
		return nil, fmt.Errorf("unsupported queue driver: %s", c.config.QueueDriver)
	}
}
