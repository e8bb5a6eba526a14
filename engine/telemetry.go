package engine

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/zero-day-ai/redcell/engine"

// outcomeAttr labels outcome counter increments with the matrix bucket.
var outcomeAttr = attribute.Key("outcome")

// NewTracerProvider creates a TracerProvider for evaluation runs with the
// given span exporter. Spans are exported immediately without batching so
// short runs lose nothing on shutdown.
func NewTracerProvider(exporter sdktrace.SpanExporter, logger *slog.Logger) *sdktrace.TracerProvider {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String("redcell"),
		),
	)
	if err != nil {
		logger.Warn("failed to create resource, using default", "error", err)
		res = resource.Default()
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)
}

// telemetry holds the engine's tracer and instruments. Instrument
// creation failures degrade to no-op counters rather than failing the run.
type telemetry struct {
	tracer   trace.Tracer
	attempts metric.Int64Counter
	outcomes metric.Int64Counter
	rounds   metric.Int64Counter
}

func newTelemetry(logger *slog.Logger) *telemetry {
	t := &telemetry{
		tracer: otel.Tracer(instrumentationName),
	}

	meter := otel.Meter(instrumentationName)

	var err error
	if t.attempts, err = meter.Int64Counter("redcell.attempts",
		metric.WithDescription("Attack attempts dispatched")); err != nil {
		logger.Warn("failed to create attempts counter", "error", err)
	}
	if t.outcomes, err = meter.Int64Counter("redcell.outcomes",
		metric.WithDescription("Classified outcomes by label")); err != nil {
		logger.Warn("failed to create outcomes counter", "error", err)
	}
	if t.rounds, err = meter.Int64Counter("redcell.rounds",
		metric.WithDescription("Evaluation rounds completed")); err != nil {
		logger.Warn("failed to create rounds counter", "error", err)
	}

	return t
}

func (t *telemetry) countAttempt(ctx context.Context) {
	if t.attempts != nil {
		t.attempts.Add(ctx, 1)
	}
}

func (t *telemetry) countOutcome(ctx context.Context, label string) {
	if t.outcomes != nil {
		t.outcomes.Add(ctx, 1, metric.WithAttributes(outcomeAttr.String(label)))
	}
}

func (t *telemetry) countRound(ctx context.Context) {
	if t.rounds != nil {
		t.rounds.Add(ctx, 1)
	}
}
