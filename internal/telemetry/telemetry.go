package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	DefaultServiceName    = "parking-lot-service"
	ServiceVersion        = "1.0.0"
	DefaultOTLPEndpoint   = "http://localhost:4318"
	DefaultExportInterval = 5 * time.Second

	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
)

type Config struct {
	Enabled        bool
	ServiceName    string
	Environment    string
	Exporter       string // otlp (default) or stdout
	Endpoint       string
	ExportInterval time.Duration
	// SampleRate is the fraction of root traces kept; 0 means all.
	SampleRate float64
	// Output receives spans for the stdout exporter. Defaults to stderr.
	Output io.Writer
}

type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	loggerProvider *sdklog.LoggerProvider
	tracer         trace.Tracer
	meter          metric.Meter
	serviceName    string
}

// New builds the telemetry pipelines and installs them as the global
// providers. The otlp exporter ships traces, metrics and logs over OTLP/HTTP;
// stdout writes spans only. When cfg.Enabled is false it returns a no-op
// provider and touches no globals.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}
	if !cfg.Enabled {
		return NewNoop(cfg.ServiceName), nil
	}
	if cfg.Exporter == "" {
		cfg.Exporter = ExporterOTLP
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultOTLPEndpoint
	}
	if cfg.ExportInterval <= 0 {
		cfg.ExportInterval = DefaultExportInterval
	}
	if cfg.SampleRate <= 0 || cfg.SampleRate > 1 {
		cfg.SampleRate = 1
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, err
	}

	var p *Provider
	switch cfg.Exporter {
	case ExporterOTLP:
		p, err = newOTLP(ctx, cfg, res)
	case ExporterStdout:
		p, err = newStdout(cfg, res)
	default:
		return nil, fmt.Errorf("unsupported exporter %q", cfg.Exporter)
	}
	if err != nil {
		return nil, err
	}

	otel.SetTracerProvider(p.tracerProvider)
	if p.meterProvider != nil {
		otel.SetMeterProvider(p.meterProvider)
	}
	if p.loggerProvider != nil {
		global.SetLoggerProvider(p.loggerProvider)
	}

	// Set global propagator to tracecontext and baggage
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return p, nil
}

func newOTLP(ctx context.Context, cfg Config, res *resource.Resource) (*Provider, error) {
	// Setup trace exporter
	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.Endpoint+"/v1/traces"),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := newTracerProvider(cfg, res, traceExporter)

	// Setup metric exporter
	metricExporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpointURL(cfg.Endpoint+"/v1/metrics"),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, errors.Join(err, tracerProvider.Shutdown(ctx))
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(cfg.ExportInterval),
		)),
	)

	logExporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpointURL(cfg.Endpoint+"/v1/logs"),
		otlploghttp.WithInsecure(),
	)
	if err != nil {
		return nil, errors.Join(err, tracerProvider.Shutdown(ctx), meterProvider.Shutdown(ctx))
	}

	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)

	return &Provider{
		tracerProvider: tracerProvider,
		meterProvider:  meterProvider,
		loggerProvider: loggerProvider,
		tracer:         tracerProvider.Tracer(cfg.ServiceName),
		meter:          meterProvider.Meter(cfg.ServiceName),
		serviceName:    cfg.ServiceName,
	}, nil
}

// newStdout is for local debugging: spans are pretty-printed to cfg.Output
// and metrics stay no-op.
func newStdout(cfg Config, res *resource.Resource) (*Provider, error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(cfg.Output),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("create stdout exporter: %w", err)
	}

	tracerProvider := newTracerProvider(cfg, res, exporter)
	return &Provider{
		tracerProvider: tracerProvider,
		tracer:         tracerProvider.Tracer(cfg.ServiceName),
		meter:          metricnoop.NewMeterProvider().Meter(cfg.ServiceName),
		serviceName:    cfg.ServiceName,
	}, nil
}

func newTracerProvider(cfg Config, res *resource.Resource, exporter sdktrace.SpanExporter) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	)
}

// NewNoop returns a provider whose tracer and meter discard everything.
func NewNoop(serviceName string) *Provider {
	return &Provider{
		tracer:      tracenoop.NewTracerProvider().Tracer(serviceName),
		meter:       metricnoop.NewMeterProvider().Meter(serviceName),
		serviceName: serviceName,
	}
}

func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

func (p *Provider) Meter() metric.Meter {
	return p.meter
}

func (p *Provider) ServiceName() string {
	return p.serviceName
}

// Enabled reports whether data is exported anywhere.
func (p *Provider) Enabled() bool {
	return p.tracerProvider != nil
}

// ExportsLogs reports whether a global OpenTelemetry logger provider was
// installed, i.e. whether the slog bridge has anywhere to send records.
func (p *Provider) ExportsLogs() bool {
	return p.loggerProvider != nil
}

func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.tracerProvider != nil {
		errs = append(errs, p.tracerProvider.Shutdown(ctx))
	}
	if p.meterProvider != nil {
		errs = append(errs, p.meterProvider.Shutdown(ctx))
	}
	if p.loggerProvider != nil {
		errs = append(errs, p.loggerProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
