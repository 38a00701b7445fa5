// Package observability wires OpenTelemetry tracing and metrics with console,
// OTLP, and Prometheus exporters.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"careermatch/internal/config"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Metrics holds the custom instruments recorded by the matching pipeline and
// the HTTP surface.
type Metrics struct {
	// Match pipeline metrics
	MatchDuration      metric.Float64Histogram
	MatchRequestCount  metric.Int64Counter
	MatchErrorCount    metric.Int64Counter
	FallbackActivated  metric.Int64Counter
	FilteredCatalogLen metric.Int64Histogram

	// Oracle metrics
	OracleRequestCount metric.Int64Counter
	OracleErrorCount   metric.Int64Counter
	OracleTokenUsage   metric.Int64Histogram

	// Rate limiting metrics
	RateLimitHits metric.Int64Counter
}

// Manager owns the OpenTelemetry providers and their shutdown.
type Manager struct {
	config           config.ObservabilityConfig
	serviceVersion   string
	tracerProvider   *trace.TracerProvider
	meterProvider    *sdkmetric.MeterProvider
	metrics          *Metrics
	shutdownFuncs    []func(context.Context) error
	prometheusServer *http.ServeMux
}

// NewManager creates an observability manager. When observability is
// disabled, the manager is inert: middleware passes through and tracers are
// no-ops.
func NewManager(cfg config.ObservabilityConfig, version string) (*Manager, error) {
	m := &Manager{
		config:         cfg,
		serviceVersion: version,
	}
	if cfg.ServiceVersion != "" {
		m.serviceVersion = cfg.ServiceVersion
	}

	if !cfg.Enabled {
		return m, nil
	}

	if err := m.initTracing(); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return m, nil
}

func (m *Manager) createResource() (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(m.config.ServiceName),
			semconv.ServiceVersion(m.serviceVersion),
			attribute.String("service.instance.id", m.config.ServiceInstance),
		),
	)
}

// initTracing sets up the tracer provider with the configured exporter.
func (m *Manager) initTracing() error {
	var exporter trace.SpanExporter
	var err error

	switch {
	case m.config.Console.Enabled:
		opts := []stdouttrace.Option{}
		if m.config.Console.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err = stdouttrace.New(opts...)
	case m.config.OTLP.Enabled:
		exporter, err = m.createOTLPTraceExporter()
	default:
		exporter = &noOpSpanExporter{}
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := m.createResource()
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.TraceIDRatioBased(m.config.Tracing.SampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	m.tracerProvider = tp
	m.shutdownFuncs = append(m.shutdownFuncs, tp.Shutdown)

	return nil
}

// initMetrics sets up the meter provider with all configured readers.
func (m *Manager) initMetrics() error {
	readers, err := m.setupMetricReaders()
	if err != nil {
		return err
	}

	res, err := m.createResource()
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, reader := range readers {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	m.meterProvider = mp
	m.shutdownFuncs = append(m.shutdownFuncs, mp.Shutdown)

	return m.initCustomMetrics()
}

func (m *Manager) setupMetricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	if m.config.Console.Enabled {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(m.collectionInterval())))
	}

	if m.config.OTLP.Enabled {
		reader, err := m.createOTLPMetricsReader()
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics reader: %w", err)
		}
		readers = append(readers, reader)
	}

	if m.config.Prometheus.Enabled {
		reader, mux, err := SetupPrometheusExporter(m.config.Prometheus)
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		if reader != nil {
			readers = append(readers, reader)
			m.prometheusServer = mux
			if err := StartPrometheusServer(mux, m.config.Prometheus.Port); err != nil {
				return nil, fmt.Errorf("failed to start Prometheus server: %w", err)
			}
		}
	}

	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}

	return readers, nil
}

func (m *Manager) initCustomMetrics() error {
	meter := m.meterProvider.Meter(m.config.ServiceName)
	m.metrics = &Metrics{}
	var err error

	m.metrics.MatchDuration, err = meter.Float64Histogram(
		"careermatch_match_duration_seconds",
		metric.WithDescription("Wall-clock time spent serving match requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create match duration metric: %w", err)
	}

	m.metrics.MatchRequestCount, err = meter.Int64Counter(
		"careermatch_match_requests_total",
		metric.WithDescription("Total number of match requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create match request count metric: %w", err)
	}

	m.metrics.MatchErrorCount, err = meter.Int64Counter(
		"careermatch_match_errors_total",
		metric.WithDescription("Total number of failed match requests"),
	)
	if err != nil {
		return fmt.Errorf("failed to create match error count metric: %w", err)
	}

	m.metrics.FallbackActivated, err = meter.Int64Counter(
		"careermatch_fallback_activations_total",
		metric.WithDescription("Match requests served by the deterministic fallback scorer"),
	)
	if err != nil {
		return fmt.Errorf("failed to create fallback activation metric: %w", err)
	}

	m.metrics.FilteredCatalogLen, err = meter.Int64Histogram(
		"careermatch_filtered_catalog_size",
		metric.WithDescription("Catalog size after pre-filtering"),
	)
	if err != nil {
		return fmt.Errorf("failed to create filtered catalog size metric: %w", err)
	}

	m.metrics.OracleRequestCount, err = meter.Int64Counter(
		"careermatch_oracle_requests_total",
		metric.WithDescription("Total number of ranking oracle calls"),
	)
	if err != nil {
		return fmt.Errorf("failed to create oracle request count metric: %w", err)
	}

	m.metrics.OracleErrorCount, err = meter.Int64Counter(
		"careermatch_oracle_errors_total",
		metric.WithDescription("Total number of ranking oracle failures"),
	)
	if err != nil {
		return fmt.Errorf("failed to create oracle error count metric: %w", err)
	}

	m.metrics.OracleTokenUsage, err = meter.Int64Histogram(
		"careermatch_oracle_token_usage",
		metric.WithDescription("Token usage for oracle requests (input, output, total)"),
		metric.WithUnit("tokens"),
	)
	if err != nil {
		return fmt.Errorf("failed to create oracle token usage metric: %w", err)
	}

	m.metrics.RateLimitHits, err = meter.Int64Counter(
		"careermatch_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return nil
}

// GetMetrics returns the metrics instance; an empty instance when disabled so
// callers need no nil checks.
func (m *Manager) GetMetrics() *Metrics {
	if m.metrics == nil {
		return &Metrics{}
	}
	return m.metrics
}

// HTTPMiddleware returns HTTP middleware with OpenTelemetry instrumentation.
func (m *Manager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !m.config.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}
	return otelhttp.NewMiddleware(
		m.config.ServiceName,
		otelhttp.WithTracerProvider(m.tracerProvider),
		otelhttp.WithMeterProvider(m.meterProvider),
	)
}

// Tracer returns a tracer for the service.
func (m *Manager) Tracer(name string) oteltrace.Tracer {
	if !m.config.Enabled {
		return noop.NewTracerProvider().Tracer(name)
	}
	return otel.Tracer(name)
}

// Shutdown gracefully shuts down all observability components.
func (m *Manager) Shutdown(ctx context.Context) error {
	for _, shutdown := range m.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RecordMatch records the outcome of one match request.
func (mt *Metrics) RecordMatch(ctx context.Context, source string, err error, duration time.Duration, filteredSize int) {
	if mt.MatchRequestCount == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("source", source),
		attribute.Bool("success", err == nil),
	}

	mt.MatchRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	mt.MatchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if err != nil {
		mt.MatchErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if source == "fallback" {
		mt.FallbackActivated.Add(ctx, 1)
	}
	if filteredSize > 0 {
		mt.FilteredCatalogLen.Record(ctx, int64(filteredSize))
	}
}

// RecordOracleCall counts one attempted oracle call and its outcome.
func (mt *Metrics) RecordOracleCall(ctx context.Context, err error) {
	if mt.OracleRequestCount == nil {
		return
	}
	mt.OracleRequestCount.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("success", err == nil)))
	if err != nil {
		mt.OracleErrorCount.Add(ctx, 1)
	}
}

// RecordOracleTokens records per-call token usage split by type.
func (mt *Metrics) RecordOracleTokens(ctx context.Context, input, output, total int64) {
	if mt.OracleTokenUsage == nil {
		return
	}
	for _, tt := range []struct {
		tokenType string
		value     int64
	}{
		{"input", input},
		{"output", output},
		{"total", total},
	} {
		mt.OracleTokenUsage.Record(ctx, tt.value,
			metric.WithAttributes(attribute.String("token_type", tt.tokenType)))
	}
}

// RecordRateLimitHit counts a rejected request.
func (mt *Metrics) RecordRateLimitHit(ctx context.Context, kind string) {
	if mt.RateLimitHits == nil {
		return
	}
	mt.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("limiter", kind)))
}

// noOpSpanExporter is used when neither console nor OTLP export is enabled.
type noOpSpanExporter struct{}

func (n *noOpSpanExporter) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	return nil
}

func (n *noOpSpanExporter) Shutdown(ctx context.Context) error {
	return nil
}

func (m *Manager) createOTLPTraceExporter() (trace.SpanExporter, error) {
	otlp := m.config.OTLP
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(otlp.Endpoint),
	}
	if otlp.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(otlp.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(otlp.Headers))
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

func (m *Manager) createOTLPMetricsReader() (sdkmetric.Reader, error) {
	otlp := m.config.OTLP
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpointURL(otlp.Endpoint),
	}
	if otlp.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(otlp.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(otlp.Headers))
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}
	return sdkmetric.NewPeriodicReader(exporter,
		sdkmetric.WithInterval(m.collectionInterval())), nil
}

func (m *Manager) collectionInterval() time.Duration {
	if m.config.Metrics.CollectionInterval > 0 {
		return m.config.Metrics.CollectionInterval
	}
	return 15 * time.Second
}
