package monitor

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/flowkit-io/flowkit/job"
	"github.com/flowkit-io/flowkit/logger"
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
func InitMeter(ctx context.Context, config MeterConfig, log *logger.Logger) (*sdkmetric.MeterProvider, error) {
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

	log.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// newResource creates an OpenTelemetry resource with service metadata.
func newResource(serviceName, serviceVersion, environment string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
			attribute.String("environment", environment),
		),
	)
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds OpenTelemetry metric instruments for the execution engine.
type Metrics struct {
	jobTotal         metric.Int64Counter
	jobDuration      metric.Float64Histogram
	jobActive        metric.Int64UpDownCounter
	jobRetryTotal    metric.Int64Counter
	pipelineTotal    metric.Int64Counter
	pipelineDuration metric.Float64Histogram
	errorTotal       metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	jobTotal, err := meter.Int64Counter("job.total",
		metric.WithDescription("Total number of executed jobs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating job.total counter: %w", err)
	}

	jobDuration, err := meter.Float64Histogram("job.duration",
		metric.WithDescription("Duration of job executions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating job.duration histogram: %w", err)
	}

	jobActive, err := meter.Int64UpDownCounter("job.active",
		metric.WithDescription("Number of currently running jobs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating job.active gauge: %w", err)
	}

	jobRetryTotal, err := meter.Int64Counter("job.retry.total",
		metric.WithDescription("Total number of job retries"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating job.retry.total counter: %w", err)
	}

	pipelineTotal, err := meter.Int64Counter("pipeline.total",
		metric.WithDescription("Total number of finished pipelines by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.total counter: %w", err)
	}

	pipelineDuration, err := meter.Float64Histogram("pipeline.duration",
		metric.WithDescription("Wall-clock duration of pipeline runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.duration histogram: %w", err)
	}

	errorTotal, err := meter.Int64Counter("error.total",
		metric.WithDescription("Total errors by category"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}

	return &Metrics{
		jobTotal:         jobTotal,
		jobDuration:      jobDuration,
		jobActive:        jobActive,
		jobRetryTotal:    jobRetryTotal,
		pipelineTotal:    pipelineTotal,
		pipelineDuration: pipelineDuration,
		errorTotal:       errorTotal,
	}, nil
}

// RecordJobStart increments the active job count.
func (m *Metrics) RecordJobStart(ctx context.Context) {
	m.jobActive.Add(ctx, 1)
}

// RecordJobEnd decrements active jobs and records the finished job.
func (m *Metrics) RecordJobEnd(ctx context.Context, nodeID, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("node", nodeID),
		attribute.String("status", status),
	)
	m.jobActive.Add(ctx, -1)
	m.jobTotal.Add(ctx, 1, attrs)
	m.jobDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("node", nodeID),
	))
}

// RecordRetry records a scheduled retry for a node.
func (m *Metrics) RecordRetry(ctx context.Context, nodeID string) {
	m.jobRetryTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node", nodeID),
	))
}

// RecordPipelineEnd records a finished pipeline run.
func (m *Metrics) RecordPipelineEnd(ctx context.Context, status job.PipelineStatus, duration time.Duration) {
	m.pipelineTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", string(status)),
	))
	m.pipelineDuration.Record(ctx, duration.Seconds())
}

// RecordError records an error by category.
func (m *Metrics) RecordError(ctx context.Context, category Category) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", string(category)),
	))
}
