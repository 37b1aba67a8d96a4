package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/batchledger/pkg/application/services/catalog"
	"github.com/vsinha/batchledger/pkg/application/services/ledger"
	"github.com/vsinha/batchledger/pkg/application/services/production"
	"github.com/vsinha/batchledger/pkg/application/services/recipegraph"
	"github.com/vsinha/batchledger/pkg/application/services/snapshot"
	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/batchledger/pkg/infrastructure/repositories/memory"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "example failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	store := memory.NewStore()
	graph := recipegraph.New()
	l := ledger.New(nil)
	snapshotter := snapshot.New()

	// Set up a small bakery: sponge and frosting nested in a layer cake
	if _, err := catalog.NewImporter(store, graph, l, nil, nil).Import(ctx, bakery()); err != nil {
		return err
	}

	recipes := recipegraph.NewService(store, graph, nil)
	productions := production.NewService(store, production.NewRecorder(graph, l, snapshotter), nil, nil)
	snapshots := snapshot.NewService(store, snapshotter, graph, nil, nil)

	fmt.Println("Ingredients for 2 layer cakes:")
	items, err := recipes.GetAggregatedIngredients(ctx, "LAYER_CAKE", decimal.NewFromInt(2))
	if err != nil {
		return err
	}
	for _, item := range items {
		fmt.Printf("  %-8s %8s %s\n", item.IngredientID, item.ReportedQuantity(), item.Unit)
	}
	fmt.Println()

	report, err := productions.CheckCanProduce(ctx, "LAYER_CAKE", decimal.NewFromInt(2))
	if err != nil {
		return err
	}
	fmt.Printf("Can produce 2 batches: %v (estimated cost %s)\n\n", report.CanProduce, entities.RoundCost(report.EstimatedCost))

	result, err := productions.RecordProduction(ctx, production.RecordRequest{
		RecipeID:       "LAYER_CAKE",
		FinishedUnitID: "CAKE_EACH",
		NumBatches:     decimal.NewFromInt(2),
		ActualYield:    decimal.NewFromInt(2),
		Notes:          "Saturday order",
	})
	if err != nil {
		return err
	}
	fmt.Printf("Recorded production %s\n", result.Record.ID)
	fmt.Printf("  ingredient cost: %s\n", entities.RoundCost(result.Record.IngredientCost))
	fmt.Printf("  per cake:        %s\n", entities.RoundCost(result.Record.PerUnitCost))
	for _, c := range result.Consumptions {
		for _, d := range c.Breakdown {
			fmt.Printf("    %-8s lot %d: %s %s @ %s\n", c.IngredientID, d.LotID, d.LotQuantity, d.LotUnit, d.CostPerUnit)
		}
	}
	fmt.Println()

	// Editing the recipe afterwards does not change what was recorded
	if err := recipes.RemoveComponent(ctx, "LAYER_CAKE", "FROSTING"); err != nil {
		return err
	}
	_, payload, err := snapshots.Get(ctx, result.Record.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Snapshot still lists %d components and %d ingredients\n",
		len(payload.Recipe.Components), len(payload.Ingredients))
	return nil
}

func bakery() *csv.Catalog {
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	line := func(id string, qty string, unit entities.Unit) entities.RecipeIngredient {
		l, err := entities.NewRecipeIngredient(entities.IngredientID(id), decimal.RequireFromString(qty), unit)
		must(err)
		return *l
	}

	cat := &csv.Catalog{}
	for _, spec := range []struct {
		id, name string
		unit     entities.Unit
	}{
		{"FLOUR", "All-purpose flour", "cup"},
		{"SUGAR", "Granulated sugar", "cup"},
		{"BUTTER", "Unsalted butter", "g"},
		{"EGG", "Large egg", "each"},
		{"VANILLA", "Vanilla extract", "tsp"},
		{"MILK", "Whole milk", "ml"},
	} {
		ing, err := entities.NewIngredient(entities.IngredientID(spec.id), spec.name, spec.unit)
		must(err)
		cat.Ingredients = append(cat.Ingredients, ing)
	}

	sponge, err := entities.NewRecipe("SPONGE", "Sponge", "", []entities.RecipeIngredient{
		line("FLOUR", "1.5", "cup"), line("EGG", "3", "each"), line("SUGAR", "1", "cup"),
	})
	must(err)
	frosting, err := entities.NewRecipe("FROSTING", "Buttercream", "", []entities.RecipeIngredient{
		line("BUTTER", "100", "g"), line("SUGAR", "2", "cup"), line("VANILLA", "1", "tsp"),
	})
	must(err)
	cake, err := entities.NewRecipe("LAYER_CAKE", "Layer cake", "", []entities.RecipeIngredient{
		line("MILK", "120", "ml"),
	})
	must(err)
	cat.Recipes = []*entities.Recipe{sponge, frosting, cake}

	cat.Components = []entities.ComponentEdge{
		{ParentID: "LAYER_CAKE", ChildID: "SPONGE", Multiplier: decimal.NewFromInt(2), SortOrder: 1},
		{ParentID: "LAYER_CAKE", ChildID: "FROSTING", Multiplier: decimal.NewFromInt(1), SortOrder: 2},
	}

	fu, err := entities.NewFinishedUnit("CAKE_EACH", "LAYER_CAKE", "Whole cake", decimal.NewFromInt(1))
	must(err)
	cat.FinishedUnits = []*entities.FinishedUnit{fu}

	day := func(n int) time.Time { return time.Date(2025, 1, n, 0, 0, 0, 0, time.UTC) }
	for _, lot := range []struct {
		id, qty, cost string
		unit          entities.Unit
		acquired      time.Time
	}{
		{"FLOUR", "10", "0.10", "cup", day(1)},
		{"FLOUR", "20", "0.15", "cup", day(3)},
		{"SUGAR", "20", "0.20", "cup", day(1)},
		{"BUTTER", "500", "0.01", "g", day(2)},
		{"EGG", "24", "0.25", "each", day(2)},
		{"VANILLA", "12", "0.05", "tsp", day(1)},
		{"MILK", "1000", "0.002", "ml", day(4)},
	} {
		cat.Lots = append(cat.Lots, csv.LotRow{
			IngredientID: entities.IngredientID(lot.id),
			ProductID:    entities.ProductID(lot.id + "-BULK"),
			Quantity:     decimal.RequireFromString(lot.qty),
			Unit:         lot.unit,
			CostPerUnit:  decimal.RequireFromString(lot.cost),
			AcquiredAt:   lot.acquired,
		})
	}
	return cat
}
