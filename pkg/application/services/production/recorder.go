package production

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/batchledger/pkg/application/services/ledger"
	"github.com/vsinha/batchledger/pkg/application/services/recipegraph"
	"github.com/vsinha/batchledger/pkg/application/services/snapshot"
	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/domain/repositories"
)

var validate = validator.New()

// RecordRequest describes one production event
type RecordRequest struct {
	RecipeID       entities.RecipeID       `validate:"required"`
	FinishedUnitID entities.FinishedUnitID `validate:"required"`
	NumBatches     decimal.Decimal
	ActualYield    decimal.Decimal
	Notes          string `validate:"max=2000"`
	ProducedAt     time.Time
}

func (r RecordRequest) check() error {
	if err := validate.Struct(r); err != nil {
		return entities.Invalidf("production request: %v", err)
	}
	if !r.NumBatches.IsPositive() {
		return entities.Invalidf("number of batches must be positive, got %s", r.NumBatches)
	}
	if r.ActualYield.IsNegative() {
		return entities.Invalidf("actual yield cannot be negative, got %s", r.ActualYield)
	}
	return nil
}

// Recorder turns a production request into ledger draws, a production
// record and a snapshot, all through one caller-supplied transaction
type Recorder struct {
	graph       *recipegraph.Graph
	ledger      *ledger.Ledger
	snapshotter *snapshot.Snapshotter
	now         func() time.Time
	newID       func() string
}

// NewRecorder wires a recorder. Nil arguments get defaults.
func NewRecorder(graph *recipegraph.Graph, l *ledger.Ledger, snapshotter *snapshot.Snapshotter) *Recorder {
	if graph == nil {
		graph = recipegraph.New()
	}
	if l == nil {
		l = ledger.New(nil)
	}
	if snapshotter == nil {
		snapshotter = snapshot.New()
	}
	return &Recorder{
		graph:       graph,
		ledger:      l,
		snapshotter: snapshotter,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

// Record runs a production inside tx. Any error leaves tx holding partial
// writes; the caller must roll it back.
func (r *Recorder) Record(ctx context.Context, tx repositories.Tx, req RecordRequest) (*entities.ProductionResult, error) {
	if err := req.check(); err != nil {
		return nil, err
	}

	recipe, unit, err := r.resolve(ctx, tx, req.RecipeID, req.FinishedUnitID)
	if err != nil {
		return nil, err
	}

	ingredients, err := r.graph.GetAggregatedIngredients(ctx, tx, recipe.ID, req.NumBatches)
	if err != nil {
		return nil, err
	}

	producedAt := req.ProducedAt
	if producedAt.IsZero() {
		producedAt = r.now()
	}
	record := entities.ProductionRecord{
		ID:             entities.ProductionID(r.newID()),
		RecipeID:       recipe.ID,
		FinishedUnitID: unit.ID,
		NumBatches:     req.NumBatches,
		ExpectedYield:  req.NumBatches.Mul(unit.ItemsPerBatch),
		ActualYield:    req.ActualYield,
		Notes:          req.Notes,
		ProducedAt:     producedAt,
	}

	result := &entities.ProductionResult{Consumptions: make([]entities.ConsumptionResult, 0, len(ingredients))}
	cost := decimal.Zero
	for _, agg := range ingredients {
		consumed, err := r.ledger.Consume(ctx, tx, ledger.ConsumeRequest{
			IngredientID: agg.IngredientID,
			Quantity:     agg.Quantity,
			Unit:         agg.Unit,
			Event:        record.Event(),
		})
		if err != nil {
			return nil, fmt.Errorf("consuming %s for recipe %s: %w", agg.IngredientID, recipe.ID, err)
		}
		if !consumed.Satisfied {
			return nil, consumed.InsufficientError()
		}
		cost = cost.Add(consumed.TotalCost)
		result.Consumptions = append(result.Consumptions, *consumed)
	}

	record.IngredientCost = cost
	record.PerUnitCost = entities.PerUnitCostFor(cost, req.ActualYield)

	if err := tx.IncrementOnHand(ctx, unit.ID, req.ActualYield); err != nil {
		return nil, err
	}
	if err := tx.InsertProduction(ctx, &record); err != nil {
		return nil, fmt.Errorf("failed to store production %s: %w", record.ID, err)
	}

	snap, err := r.snapshotter.Capture(ctx, tx, snapshot.CaptureInput{
		Recipe:       recipe,
		ScaleFactor:  req.NumBatches,
		ProductionID: record.ID,
		Ingredients:  ingredients,
	})
	if err != nil {
		return nil, err
	}

	result.Record = record
	result.Snapshot = snap
	return result, nil
}

// CheckCanProduce dry-runs every consumption a production of numBatches
// would make. It writes nothing, so tx may be read-only.
func (r *Recorder) CheckCanProduce(
	ctx context.Context,
	tx repositories.Tx,
	recipeID entities.RecipeID,
	numBatches decimal.Decimal,
) (*entities.AvailabilityReport, error) {
	if !numBatches.IsPositive() {
		return nil, entities.Invalidf("number of batches must be positive, got %s", numBatches)
	}

	ingredients, err := r.graph.GetAggregatedIngredients(ctx, tx, recipeID, numBatches)
	if err != nil {
		return nil, err
	}

	report := &entities.AvailabilityReport{
		RecipeID:      recipeID,
		NumBatches:    numBatches,
		CanProduce:    true,
		EstimatedCost: decimal.Zero,
		Ingredients:   make([]entities.IngredientAvailability, 0, len(ingredients)),
	}
	// An ingredient used in two units draws on the same lots twice
	reserved := make(ledger.Reservations)
	for _, agg := range ingredients {
		planned, err := r.ledger.Consume(ctx, tx, ledger.ConsumeRequest{
			IngredientID: agg.IngredientID,
			Quantity:     agg.Quantity,
			Unit:         agg.Unit,
			DryRun:       true,
			Reserved:     reserved,
		})
		if err != nil {
			return nil, fmt.Errorf("checking %s for recipe %s: %w", agg.IngredientID, recipeID, err)
		}
		report.Ingredients = append(report.Ingredients, entities.IngredientAvailability{
			IngredientID:  agg.IngredientID,
			Unit:          agg.Unit,
			Required:      planned.Requested,
			Available:     planned.Consumed,
			Shortfall:     planned.Shortfall,
			Satisfied:     planned.Satisfied,
			EstimatedCost: planned.TotalCost,
		})
		report.EstimatedCost = report.EstimatedCost.Add(planned.TotalCost)
		if !planned.Satisfied {
			report.CanProduce = false
		}
	}
	return report, nil
}

// resolve loads the recipe and the yield definition and checks that they
// belong together
func (r *Recorder) resolve(
	ctx context.Context,
	tx repositories.Tx,
	recipeID entities.RecipeID,
	unitID entities.FinishedUnitID,
) (*entities.Recipe, *entities.FinishedUnit, error) {
	recipe, err := tx.GetRecipe(ctx, recipeID)
	if err != nil {
		return nil, nil, err
	}
	unit, err := tx.GetFinishedUnit(ctx, unitID)
	if err != nil {
		return nil, nil, err
	}
	if unit.RecipeID != recipe.ID {
		return nil, nil, &entities.StructuralError{
			Rule:     entities.RuleYieldMismatch,
			ParentID: recipe.ID,
			ChildID:  unit.RecipeID,
			Detail:   fmt.Sprintf("finished unit %s belongs to recipe %s, not %s", unit.ID, unit.RecipeID, recipe.ID),
		}
	}
	return recipe, unit, nil
}
