package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics defines the interface for recording resilience-layer metrics.
// Dead-lettered jobs and open circuits must be independently observable by an
// operator, so both get dedicated counters.
type BusinessMetrics interface {
	// RecordJob records the outcome of one job attempt.
	// Status examples: "completed", "retried", "dead_letter".
	RecordJob(ctx context.Context, jobType, status string)

	// RecordJobDuration records how long a job attempt took.
	RecordJobDuration(ctx context.Context, jobType string, duration time.Duration, status string)

	// RecordDeadLetter records a job moved to the dead-letter state.
	RecordDeadLetter(ctx context.Context, jobType string)

	// RecordBreakerState records a circuit breaker state change.
	// State examples: "closed", "open", "half_open".
	RecordBreakerState(ctx context.Context, breaker, state string)

	// RecordWebhook records the outcome of a webhook delivery.
	// Status examples: "accepted", "duplicate", "rejected".
	RecordWebhook(ctx context.Context, provider, status string)

	// RecordTransition records a proposal status transition attempt.
	// Status examples: "success", "noop", "invalid", "error".
	RecordTransition(ctx context.Context, toStatus, status string)
}

// businessMetrics implements BusinessMetrics using OpenTelemetry metrics.
type businessMetrics struct {
	jobCounter        metric.Int64Counter
	jobDurationHisto  metric.Float64Histogram
	deadLetterCounter metric.Int64Counter
	breakerCounter    metric.Int64Counter
	webhookCounter    metric.Int64Counter
	transitionCounter metric.Int64Counter
}

// NewBusinessMetrics creates a new BusinessMetrics implementation using the provided meter provider.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	jobCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_jobs_total", namespace),
		metric.WithDescription("Total number of processed job attempts"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job counter: %w", err)
	}

	jobDurationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_job_duration_seconds", namespace),
		metric.WithDescription("Duration of job attempts in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job duration histogram: %w", err)
	}

	deadLetterCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_dead_letters_total", namespace),
		metric.WithDescription("Total number of jobs moved to the dead-letter state"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dead letter counter: %w", err)
	}

	breakerCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_breaker_state_changes_total", namespace),
		metric.WithDescription("Total number of circuit breaker state changes"),
		metric.WithUnit("{change}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create breaker counter: %w", err)
	}

	webhookCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_webhooks_total", namespace),
		metric.WithDescription("Total number of webhook deliveries by outcome"),
		metric.WithUnit("{delivery}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook counter: %w", err)
	}

	transitionCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_transitions_total", namespace),
		metric.WithDescription("Total number of proposal status transition attempts"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transition counter: %w", err)
	}

	return &businessMetrics{
		jobCounter:        jobCounter,
		jobDurationHisto:  jobDurationHisto,
		deadLetterCounter: deadLetterCounter,
		breakerCounter:    breakerCounter,
		webhookCounter:    webhookCounter,
		transitionCounter: transitionCounter,
	}, nil
}

func (b *businessMetrics) RecordJob(ctx context.Context, jobType, status string) {
	b.jobCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("job_type", jobType),
			attribute.String("status", status),
		),
	)
}

func (b *businessMetrics) RecordJobDuration(
	ctx context.Context,
	jobType string,
	duration time.Duration,
	status string,
) {
	b.jobDurationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("job_type", jobType),
			attribute.String("status", status),
		),
	)
}

func (b *businessMetrics) RecordDeadLetter(ctx context.Context, jobType string) {
	b.deadLetterCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("job_type", jobType)),
	)
}

func (b *businessMetrics) RecordBreakerState(ctx context.Context, breaker, state string) {
	b.breakerCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("breaker", breaker),
			attribute.String("state", state),
		),
	)
}

func (b *businessMetrics) RecordWebhook(ctx context.Context, provider, status string) {
	b.webhookCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}

func (b *businessMetrics) RecordTransition(ctx context.Context, toStatus, status string) {
	b.transitionCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("to_status", toStatus),
			attribute.String("status", status),
		),
	)
}

// NoopBusinessMetrics returns a BusinessMetrics that records nothing.
// Used when metrics are disabled and in tests.
func NoopBusinessMetrics() BusinessMetrics {
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) RecordJob(context.Context, string, string)                        {}
func (noopMetrics) RecordJobDuration(context.Context, string, time.Duration, string) {}
func (noopMetrics) RecordDeadLetter(context.Context, string)                         {}
func (noopMetrics) RecordBreakerState(context.Context, string, string)               {}
func (noopMetrics) RecordWebhook(context.Context, string, string)                    {}
func (noopMetrics) RecordTransition(context.Context, string, string)                 {}
