package production

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

var (
	tracer = otel.Tracer("batchledger.production")
	meter  = otel.Meter("batchledger.production")
)

var (
	productionTotal metric.Int64Counter
	ingredientCost  metric.Float64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		productionTotal, err = meter.Int64Counter(
			"production_recorded_total",
			metric.WithDescription("Production events by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		ingredientCost, err = meter.Float64Counter(
			"production_ingredient_cost_total",
			metric.WithDescription("Ingredient cost of recorded productions"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

func startRecordSpan(ctx context.Context, req RecordRequest) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Production.Record",
		trace.WithAttributes(
			attribute.String("production.recipe", string(req.RecipeID)),
			attribute.String("production.finished_unit", string(req.FinishedUnitID)),
			attribute.String("production.batches", req.NumBatches.String()),
		),
	)
}

func recordOutcome(ctx context.Context, recipeID entities.RecipeID, outcome string, record *entities.ProductionRecord) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("recipe", string(recipeID)),
		attribute.String("outcome", outcome),
	)
	productionTotal.Add(ctx, 1, attrs)
	if record != nil {
		cost, _ := record.IngredientCost.Float64()
		ingredientCost.Add(ctx, cost, metric.WithAttributes(attribute.String("recipe", string(recipeID))))
	}
}
