package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/domain/repositories"
)

// CaptureInput is everything a snapshot freezes. Ingredients is the
// aggregation the caller already computed; it is not recomputed here.
type CaptureInput struct {
	Recipe       *entities.Recipe
	ScaleFactor  decimal.Decimal
	ProductionID entities.ProductionID
	Ingredients  []entities.AggregatedIngredient
	Backfilled   bool
}

// Snapshotter writes recipe snapshots over a caller-supplied transaction
type Snapshotter struct {
	now   func() time.Time
	newID func() string
}

// New creates a Snapshotter
func New() *Snapshotter {
	return &Snapshotter{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Capture serializes the recipe and its expanded ingredients and stores the
// result once for the production
func (s *Snapshotter) Capture(ctx context.Context, tx repositories.Tx, in CaptureInput) (*entities.RecipeSnapshot, error) {
	if in.Recipe == nil {
		return nil, entities.Invalidf("snapshot needs a recipe")
	}
	if in.ProductionID == "" {
		return nil, entities.Invalidf("snapshot needs a production id")
	}
	if !in.ScaleFactor.IsPositive() {
		return nil, entities.Invalidf("scale factor must be positive, got %s", in.ScaleFactor)
	}

	data, checksum, err := entities.EncodeSnapshotPayload(buildPayload(in))
	if err != nil {
		return nil, err
	}

	snap := &entities.RecipeSnapshot{
		ID:            entities.SnapshotID(s.newID()),
		ProductionID:  in.ProductionID,
		RecipeID:      in.Recipe.ID,
		SchemaVersion: entities.SnapshotSchemaVersion,
		ScaleFactor:   in.ScaleFactor,
		Payload:       data,
		Checksum:      checksum,
		IsBackfilled:  in.Backfilled,
		CapturedAt:    s.now(),
	}
	if err := tx.InsertSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to store snapshot for production %s: %w", in.ProductionID, err)
	}
	recordCapture(ctx, len(data), in.Backfilled)
	return snap, nil
}

func buildPayload(in CaptureInput) *entities.SnapshotPayload {
	recipe := entities.SnapshotRecipe{
		ID:           in.Recipe.ID,
		Name:         in.Recipe.Name,
		BaseRecipeID: in.Recipe.BaseRecipeID,
		Ingredients:  make([]entities.SnapshotLine, 0, len(in.Recipe.Ingredients)),
		Components:   make([]entities.SnapshotComponent, 0, len(in.Recipe.Components)),
	}
	for _, line := range in.Recipe.Ingredients {
		recipe.Ingredients = append(recipe.Ingredients, entities.SnapshotLine{
			IngredientID: line.IngredientID,
			Quantity:     line.Quantity,
			Unit:         line.Unit,
		})
	}
	for _, c := range in.Recipe.SortedComponents() {
		recipe.Components = append(recipe.Components, entities.SnapshotComponent{
			RecipeID:   c.ChildID,
			Multiplier: c.Multiplier,
			SortOrder:  c.SortOrder,
		})
	}

	ingredients := make([]entities.SnapshotIngredient, 0, len(in.Ingredients))
	for _, agg := range in.Ingredients {
		ingredients = append(ingredients, entities.SnapshotIngredient{
			IngredientID: agg.IngredientID,
			Unit:         agg.Unit,
			Quantity:     agg.Quantity,
			Sources:      sourceRecipes(agg.Sources),
		})
	}

	return &entities.SnapshotPayload{
		SchemaVersion: entities.SnapshotSchemaVersion,
		Recipe:        recipe,
		ScaleFactor:   in.ScaleFactor,
		Ingredients:   ingredients,
	}
}

// sourceRecipes lists contributing recipes once each, in first-seen order
func sourceRecipes(sources []entities.IngredientSource) []entities.RecipeID {
	seen := make(map[entities.RecipeID]bool, len(sources))
	var out []entities.RecipeID
	for _, src := range sources {
		if !seen[src.RecipeID] {
			seen[src.RecipeID] = true
			out = append(out, src.RecipeID)
		}
	}
	return out
}
