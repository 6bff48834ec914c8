package infrastructure

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"

	"anemiatrack/internal/config"
)

const (
	// ServiceName identifies this service in exported metrics
	ServiceName = "anemiatrack"
	// MeterName is the instrumentation scope name
	MeterName = "anemiatrack"
)

// Telemetry holds the OpenTelemetry meter provider, the pipeline
// instruments, and the Prometheus scrape handler.
type Telemetry struct {
	MeterProvider *sdkmetric.MeterProvider
	Meter         metric.Meter

	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	UploadsTotal        metric.Int64Counter
	MergeDuration       metric.Float64Histogram
	ExportsTotal        metric.Int64Counter

	PrometheusHTTP http.Handler
}

// InitTelemetry wires an OTel meter provider to the Prometheus exporter
// and creates the service instruments.
func InitTelemetry() (*Telemetry, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(config.AppVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)

	t := &Telemetry{
		MeterProvider:  mp,
		Meter:          mp.Meter(MeterName, metric.WithInstrumentationVersion(config.AppVersion)),
		PrometheusHTTP: promhttp.Handler(),
	}
	if err := t.createInstruments(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Telemetry) createInstruments() error {
	var err error

	t.HTTPRequestsTotal, err = t.Meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total HTTP requests by method, route and status"),
	)
	if err != nil {
		return fmt.Errorf("failed to create http_requests_total: %w", err)
	}

	t.HTTPRequestDuration, err = t.Meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create http_request_duration_seconds: %w", err)
	}

	t.UploadsTotal, err = t.Meter.Int64Counter(
		"survey_uploads_total",
		metric.WithDescription("Survey uploads by report type and outcome"),
	)
	if err != nil {
		return fmt.Errorf("failed to create survey_uploads_total: %w", err)
	}

	t.MergeDuration, err = t.Meter.Float64Histogram(
		"survey_merge_duration_seconds",
		metric.WithDescription("Hierarchical merge latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create survey_merge_duration_seconds: %w", err)
	}

	t.ExportsTotal, err = t.Meter.Int64Counter(
		"survey_exports_total",
		metric.WithDescription("Report exports by format"),
	)
	if err != nil {
		return fmt.Errorf("failed to create survey_exports_total: %w", err)
	}

	return nil
}

// NewNoopTelemetry returns a telemetry whose instruments record nothing.
// Intended for tests.
func NewNoopTelemetry() *Telemetry {
	t := &Telemetry{Meter: noop.NewMeterProvider().Meter(MeterName)}
	// Noop instruments never fail to create.
	_ = t.createInstruments()
	return t
}

// Shutdown flushes and stops the meter provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.MeterProvider == nil {
		return nil
	}
	return t.MeterProvider.Shutdown(ctx)
}
