package recipegraph

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

var (
	tracer = otel.Tracer("batchledger.recipegraph")
	meter  = otel.Meter("batchledger.recipegraph")
)

var (
	rejectedEdges metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		rejectedEdges, metricsErr = meter.Int64Counter(
			"recipegraph_rejected_edges_total",
			metric.WithDescription("Component edits rejected by structural rule"),
		)
	})
	return metricsErr
}

func startAggregateSpan(ctx context.Context, name string, roots int) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.Int("recipegraph.roots", roots)))
}

func setAggregateSpanResult(span trace.Span, recipes, ingredients int) {
	span.SetAttributes(
		attribute.Int("recipegraph.recipes_loaded", recipes),
		attribute.Int("recipegraph.ingredients", ingredients),
	)
}

func recordRejectedEdge(ctx context.Context, err error) {
	if initMetrics() != nil {
		return
	}
	rule := "unknown"
	var structural *entities.StructuralError
	if errors.As(err, &structural) {
		rule = string(structural.Rule)
	}
	rejectedEdges.Add(ctx, 1, metric.WithAttributes(attribute.String("rule", rule)))
}
