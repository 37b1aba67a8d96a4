package ledger

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

var (
	tracer = otel.Tracer("batchledger.ledger")
	meter  = otel.Meter("batchledger.ledger")
)

var (
	consumeLatency metric.Float64Histogram
	consumeTotal   metric.Int64Counter
	lotsDrawn      metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		consumeLatency, err = meter.Float64Histogram(
			"ledger_consume_duration_seconds",
			metric.WithDescription("Duration of FIFO consumption planning and writes"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		consumeTotal, err = meter.Int64Counter(
			"ledger_consume_total",
			metric.WithDescription("Consume calls by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		lotsDrawn, err = meter.Int64Counter(
			"ledger_lots_drawn_total",
			metric.WithDescription("Lots drawn from by real consumptions"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

func startConsumeSpan(ctx context.Context, req ConsumeRequest) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Ledger.Consume",
		trace.WithAttributes(
			attribute.String("ledger.ingredient", string(req.IngredientID)),
			attribute.String("ledger.unit", string(req.Unit)),
			attribute.String("ledger.quantity", req.Quantity.String()),
			attribute.Bool("ledger.dry_run", req.DryRun),
		),
	)
}

func setConsumeSpanResult(span trace.Span, result *entities.ConsumptionResult) {
	span.SetAttributes(
		attribute.Bool("ledger.satisfied", result.Satisfied),
		attribute.String("ledger.shortfall", result.Shortfall.String()),
		attribute.Int("ledger.lots", len(result.Breakdown)),
		attribute.Int("ledger.skipped", len(result.Skipped)),
	)
}

func recordConsumeMetrics(ctx context.Context, duration time.Duration, result *entities.ConsumptionResult) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.Bool("dry_run", result.DryRun),
		attribute.Bool("satisfied", result.Satisfied),
	)
	consumeLatency.Record(ctx, duration.Seconds(), attrs)
	consumeTotal.Add(ctx, 1, attrs)
	if !result.DryRun {
		lotsDrawn.Add(ctx, int64(len(result.Breakdown)))
	}
}
