package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/flowkit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds OpenTelemetry metric instruments for workflow compilation
// and submission observability.
type Metrics struct {
	plansTotal        metric.Int64Counter
	planDuration      metric.Float64Histogram
	plansActive       metric.Int64UpDownCounter
	stagesCompiled    metric.Int64Counter
	tasksEmitted      metric.Int64Counter
	bindingsExpanded  metric.Int64Counter
	secretsProtected  metric.Int64Counter
	runsSubmitted     metric.Int64Counter
	errorTotal        metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	plansTotal, err := meter.Int64Counter("plan.total",
		metric.WithDescription("Total number of workflow planning runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating plan.total counter: %w", err)
	}

	planDuration, err := meter.Float64Histogram("plan.duration",
		metric.WithDescription("Duration of workflow planning in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating plan.duration histogram: %w", err)
	}

	plansActive, err := meter.Int64UpDownCounter("plan.active",
		metric.WithDescription("Number of currently active planning runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating plan.active gauge: %w", err)
	}

	stagesCompiled, err := meter.Int64Counter("stage.compiled.total",
		metric.WithDescription("Total number of compiled stage occurrences"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stage.compiled.total counter: %w", err)
	}

	tasksEmitted, err := meter.Int64Counter("task.emitted.total",
		metric.WithDescription("Total number of task nodes emitted into graphs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating task.emitted.total counter: %w", err)
	}

	bindingsExpanded, err := meter.Int64Counter("binding.expanded.total",
		metric.WithDescription("Total number of binding combinations produced"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating binding.expanded.total counter: %w", err)
	}

	secretsProtected, err := meter.Int64Counter("secret.protected.total",
		metric.WithDescription("Total number of sensitive values encrypted"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating secret.protected.total counter: %w", err)
	}

	runsSubmitted, err := meter.Int64Counter("run.submitted.total",
		metric.WithDescription("Total number of runs handed to a broker"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating run.submitted.total counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("error.total",
		metric.WithDescription("Total errors by type and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}

	return &Metrics{
		plansTotal:       plansTotal,
		planDuration:     planDuration,
		plansActive:      plansActive,
		stagesCompiled:   stagesCompiled,
		tasksEmitted:     tasksEmitted,
		bindingsExpanded: bindingsExpanded,
		secretsProtected: secretsProtected,
		runsSubmitted:    runsSubmitted,
		errorTotal:       errorTotal,
	}, nil
}

// RecordPlanStart increments the active planning run count.
func (m *Metrics) RecordPlanStart(ctx context.Context) {
	m.plansActive.Add(ctx, 1)
}

// RecordPlanEnd decrements active runs and records the completed plan.
func (m *Metrics) RecordPlanEnd(ctx context.Context, workflow, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("workflow", workflow),
		attribute.String("status", status),
	)
	m.plansActive.Add(ctx, -1)
	m.plansTotal.Add(ctx, 1, attrs)
	m.planDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("workflow", workflow),
	))
}

// RecordStageCompiled records a compiled stage occurrence and its task fan-out.
func (m *Metrics) RecordStageCompiled(ctx context.Context, role string, taskCount int) {
	attrs := metric.WithAttributes(attribute.String("role", role))
	m.stagesCompiled.Add(ctx, 1, attrs)
	m.tasksEmitted.Add(ctx, int64(taskCount), attrs)
}

// RecordBindingsExpanded records the size of a binding expansion.
func (m *Metrics) RecordBindingsExpanded(ctx context.Context, count int) {
	m.bindingsExpanded.Add(ctx, int64(count))
}

// RecordSecretsProtected records encrypted sensitive values.
func (m *Metrics) RecordSecretsProtected(ctx context.Context, count int) {
	m.secretsProtected.Add(ctx, int64(count))
}

// RecordSubmit records a run handed to a submission broker.
func (m *Metrics) RecordSubmit(ctx context.Context, broker, status string) {
	m.runsSubmitted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("broker", broker),
		attribute.String("status", status),
	))
}

// RecordError records an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}
