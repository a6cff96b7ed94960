// Package telemetry provides Prometheus metrics and an OpenTelemetry
// tracer provider for the reasoning engine: traversal step counts, CSM
// evaluation counters, Effect Ethos verdicts, and aggregation fan-out,
// plus OTLP export of spans that callers start through GetTracer. The
// kernel's own packages record metrics only; they start no spans.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/deepcausality-go/deepcausality/internal/logging"
)

// Metrics holds the Prometheus collectors exercised by the causality
// kernel's hot paths.
type Metrics struct {
	TraversalSteps    prometheus.Counter   // total graph-traversal steps taken
	TraversalDuration prometheus.Histogram // wall-clock time per traversal
	CSMEvaluations    prometheus.Counter   // total causal states evaluated by the CSM (one per state)
	EthosVerdicts     *prometheus.CounterVec // Effect Ethos decisions, labeled by verdict
	AggregationFanOut prometheus.Histogram // number of children evaluated per Collection aggregation

	collectors []prometheus.Collector
	registerer prometheus.Registerer
}

// NewMetrics creates and registers the engine's Prometheus metrics
// against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	traversalSteps := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deepcausality_graph_traversal_steps_total",
		Help: "Total number of nodes visited across all graph traversals.",
	})
	traversalDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "deepcausality_graph_traversal_duration_seconds",
		Help:    "Wall-clock duration of a single graph traversal.",
		Buckets: prometheus.DefBuckets,
	})
	csmEvaluations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deepcausality_csm_evaluations_total",
		Help: "Total number of causal state evaluations performed by the CSM.",
	})
	ethosVerdicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deepcausality_ethos_verdicts_total",
		Help: "Total number of Effect Ethos decisions, labeled by verdict.",
	}, []string{"verdict"})
	aggregationFanOut := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "deepcausality_aggregation_fanout",
		Help:    "Number of children evaluated per Collection aggregation.",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
	})

	collectors := []prometheus.Collector{traversalSteps, traversalDuration, csmEvaluations, ethosVerdicts, aggregationFanOut}
	reg.MustRegister(collectors...)

	return &Metrics{
		TraversalSteps:    traversalSteps,
		TraversalDuration: traversalDuration,
		CSMEvaluations:    csmEvaluations,
		EthosVerdicts:     ethosVerdicts,
		AggregationFanOut: aggregationFanOut,
		collectors:        collectors,
		registerer:        reg,
	}
}

// Unregister removes every collector from the registry. Callers must do
// this before re-creating Metrics against the same registerer, to avoid
// duplicate-registration panics.
func (m *Metrics) Unregister() {
	if m.registerer == nil {
		return
	}
	for _, c := range m.collectors {
		m.registerer.Unregister(c)
	}
}

// TraversalTimer starts a timer and returns a function that, when called
// with the traversal's step count, records both the elapsed time and the
// step count into m.
func (m *Metrics) TraversalTimer() func(steps int) {
	start := time.Now()
	return func(steps int) {
		m.TraversalDuration.Observe(time.Since(start).Seconds())
		m.TraversalSteps.Add(float64(steps))
	}
}

// TracerProvider wraps an OpenTelemetry TracerProvider, no-op when
// disabled.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	logger   *logging.Logger
	enabled  bool
}

// NewTracerProvider creates the tracer provider. When enabled is false,
// the returned TracerProvider is a no-op: GetTracer still
// returns a usable trace.Tracer (the global no-op provider's), but
// nothing is exported.
func NewTracerProvider(ctx context.Context, enabled bool, endpoint string) (*TracerProvider, error) {
	logger := logging.GetLogger("telemetry")

	if !enabled {
		logger.Info("tracing disabled")
		return &TracerProvider{logger: logger, enabled: false}, nil
	}
	if endpoint == "" {
		return nil, fmt.Errorf("tracing enabled but endpoint not configured")
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exporter, err := otlptracegrpc.New(dialCtx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName("deepcausality"),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)
	logger.Info("tracing initialized with endpoint: %s", endpoint)

	return &TracerProvider{provider: provider, logger: logger, enabled: true}, nil
}

// GetTracer returns a tracer for instrumenting code. Safe to call whether
// or not tracing is enabled.
func (tp *TracerProvider) GetTracer(name string) trace.Tracer {
	return otel.GetTracerProvider().Tracer(name)
}

// IsEnabled reports whether this provider exports spans.
func (tp *TracerProvider) IsEnabled() bool {
	return tp.enabled
}

// Shutdown flushes and stops span export. No-op when tracing is
// disabled.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if !tp.enabled {
		return nil
	}
	tp.logger.Info("shutting down tracer provider")
	if err := tp.provider.Shutdown(ctx); err != nil {
		tp.logger.Error("error shutting down tracer provider: %v", err)
		return err
	}
	return nil
}
