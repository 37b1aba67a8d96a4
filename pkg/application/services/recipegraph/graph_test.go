package recipegraph

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/domain/repositories"
	testhelpers "github.com/vsinha/batchledger/pkg/infrastructure/testing"
)

var one = decimal.NewFromInt(1)

func newChainStore(t *testing.T, ids ...string) repositories.Store {
	t.Helper()
	store := testhelpers.NewBakeryStore()
	require.NoError(t, store.Update(context.Background(), func(tx repositories.Tx) error {
		for _, id := range ids {
			if err := tx.SaveRecipe(context.Background(), testhelpers.MustRecipe(id, "Recipe "+id, "", testhelpers.Line("SUGAR", "1", "cup"))); err != nil {
				return err
			}
		}
		return nil
	}))
	return store
}

func edgeCount(t *testing.T, store repositories.Store) int {
	t.Helper()
	var n int
	require.NoError(t, store.View(context.Background(), func(tx repositories.Tx) error {
		edges, err := tx.ListComponentEdges(context.Background())
		n = len(edges)
		return err
	}))
	return n
}

func TestAddComponent_CycleRejected(t *testing.T) {
	ctx := context.Background()
	store := newChainStore(t, "A", "B", "C")
	svc := NewService(store, nil, nil)

	require.NoError(t, svc.AddComponent(ctx, "A", "B", one, 0))
	require.NoError(t, svc.AddComponent(ctx, "B", "C", one, 0))
	before := edgeCount(t, store)

	err := svc.AddComponent(ctx, "C", "A", one, 0)
	var structural *entities.StructuralError
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, entities.RuleCycle, structural.Rule)
	assert.Equal(t, []entities.RecipeID{"C", "A", "B", "C"}, structural.Path)
	assert.Equal(t, before, edgeCount(t, store), "graph must be unchanged")

	err = svc.AddComponent(ctx, "A", "A", one, 0)
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, entities.RuleSelfReference, structural.Rule)

	err = svc.AddComponent(ctx, "A", "B", one, 0)
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, entities.RuleDuplicateComponent, structural.Rule)
}

func TestAddComponent_DepthLimit(t *testing.T) {
	ctx := context.Background()
	store := newChainStore(t, "A", "B", "C", "D")
	svc := NewService(store, nil, nil)

	require.NoError(t, svc.AddComponent(ctx, "A", "B", one, 0))
	require.NoError(t, svc.AddComponent(ctx, "B", "C", one, 0), "three levels is allowed")
	before := edgeCount(t, store)

	err := svc.AddComponent(ctx, "C", "D", one, 0)
	var structural *entities.StructuralError
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, entities.RuleDepthExceeded, structural.Rule)
	assert.Equal(t, 4, structural.Depth)
	assert.Equal(t, before, edgeCount(t, store))
}

func TestAddComponent_InvalidRequests(t *testing.T) {
	ctx := context.Background()
	store := newChainStore(t, "A", "B")
	svc := NewService(store, nil, nil)

	assert.ErrorIs(t, svc.AddComponent(ctx, "A", "NOPE", one, 0), entities.ErrNotFound)
	assert.ErrorIs(t, svc.AddComponent(ctx, "NOPE", "A", one, 0), entities.ErrNotFound)
	assert.ErrorIs(t, svc.AddComponent(ctx, "A", "B", decimal.Zero, 0), entities.ErrInvalidArgument)
	assert.ErrorIs(t, svc.AddComponent(ctx, "A", "B", one, -1), entities.ErrInvalidArgument)

	assert.ErrorIs(t, svc.RemoveComponent(ctx, "A", "B"), entities.ErrNotFound)
	require.NoError(t, svc.AddComponent(ctx, "A", "B", one, 0))
	require.NoError(t, svc.RemoveComponent(ctx, "A", "B"))
}

func TestAddComponent_VariantInheritsBaseComponents(t *testing.T) {
	ctx := context.Background()
	store := testhelpers.NewBakeryStore()
	svc := NewService(store, nil, nil)

	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error {
		return tx.SaveRecipe(ctx, testhelpers.MustRecipe("GLAZE", "Glaze", "", testhelpers.Line("SUGAR", "1", "cup")))
	}))
	require.NoError(t, svc.AddComponent(ctx, "COOKIE_DOUGH", "GLAZE", one, 0))

	// GLAZE -> CHOC_CHIP would close a loop through the inherited edge
	err := svc.AddComponent(ctx, "GLAZE", "CHOC_CHIP", one, 0)
	assert.ErrorIs(t, err, entities.ErrStructural)
}

func TestAddComponent_BaseEdgeCheckedForVariants(t *testing.T) {
	ctx := context.Background()

	t.Run("depth through a variant's parent", func(t *testing.T) {
		store := newChainStore(t, "X", "S", "T")
		svc := NewService(store, nil, nil)
		require.NoError(t, svc.AddComponent(ctx, "X", "CHOC_CHIP", one, 0))
		require.NoError(t, svc.AddComponent(ctx, "S", "T", one, 0))
		before := edgeCount(t, store)

		// X -> CHOC_CHIP -> S -> T once CHOC_CHIP inherits S
		err := svc.AddComponent(ctx, "COOKIE_DOUGH", "S", one, 0)
		var structural *entities.StructuralError
		require.ErrorAs(t, err, &structural)
		assert.Equal(t, entities.RuleDepthExceeded, structural.Rule)
		assert.Equal(t, entities.RecipeID("CHOC_CHIP"), structural.ParentID)
		assert.Equal(t, 4, structural.Depth)
		assert.Equal(t, before, edgeCount(t, store))

		_, err = svc.GetAggregatedIngredients(ctx, "X", one)
		assert.NoError(t, err)
	})

	t.Run("cycle through a variant", func(t *testing.T) {
		store := newChainStore(t, "S")
		svc := NewService(store, nil, nil)
		require.NoError(t, svc.AddComponent(ctx, "S", "CHOC_CHIP", one, 0))

		err := svc.AddComponent(ctx, "COOKIE_DOUGH", "S", one, 0)
		var structural *entities.StructuralError
		require.ErrorAs(t, err, &structural)
		assert.Equal(t, entities.RuleCycle, structural.Rule)
		assert.Equal(t, []entities.RecipeID{"CHOC_CHIP", "S", "CHOC_CHIP"}, structural.Path)

		result, err := svc.ValidateAll(ctx)
		require.NoError(t, err)
		assert.False(t, result.HasCycles)
		assert.Empty(t, result.Errors)
	})

	t.Run("base cannot contain its own variant", func(t *testing.T) {
		svc := NewService(testhelpers.NewBakeryStore(), nil, nil)
		err := svc.AddComponent(ctx, "COOKIE_DOUGH", "CHOC_CHIP", one, 0)
		var structural *entities.StructuralError
		require.ErrorAs(t, err, &structural)
		assert.Equal(t, entities.RuleSelfReference, structural.Rule)
	})

	t.Run("allowed when every variant stays in bounds", func(t *testing.T) {
		store := newChainStore(t, "S")
		svc := NewService(store, nil, nil)
		require.NoError(t, svc.AddComponent(ctx, "COOKIE_DOUGH", "S", one, 0))

		list, err := svc.GetAggregatedIngredients(ctx, "CHOC_CHIP", one)
		require.NoError(t, err)
		sugar := findIngredient(t, list, "SUGAR", "cup")
		assert.True(t, sugar.Quantity.Equal(decimal.NewFromInt(2)), "base sugar plus inherited S, got %s", sugar.Quantity)
	})
}

func findIngredient(t *testing.T, list []entities.AggregatedIngredient, id entities.IngredientID, unit entities.Unit) entities.AggregatedIngredient {
	t.Helper()
	for _, agg := range list {
		if agg.IngredientID == id && agg.Unit == unit {
			return agg
		}
	}
	t.Fatalf("ingredient %s (%s) not in aggregation", id, unit)
	return entities.AggregatedIngredient{}
}

func TestGetAggregatedIngredients_Nested(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testhelpers.NewBakeryStore(), nil, nil)

	list, err := svc.GetAggregatedIngredients(ctx, "LAYER_CAKE", decimal.NewFromInt(2))
	require.NoError(t, err)

	expected := map[entities.IngredientID]string{
		"BUTTER":  "200",
		"EGG":     "12",
		"FLOUR":   "6",
		"MILK":    "240",
		"SUGAR":   "8",
		"VANILLA": "2",
	}
	require.Len(t, list, len(expected))
	for i := 1; i < len(list); i++ {
		assert.Less(t, string(list[i-1].IngredientID), string(list[i].IngredientID), "sorted by ingredient")
	}
	for _, agg := range list {
		want := testhelpers.Dec(expected[agg.IngredientID])
		assert.True(t, agg.Quantity.Equal(want), "%s: expected %s, got %s", agg.IngredientID, want, agg.Quantity)
	}

	sugar := findIngredient(t, list, "SUGAR", "cup")
	require.Len(t, sugar.Sources, 2)
	assert.Equal(t, []entities.RecipeID{"LAYER_CAKE", "SPONGE"}, sugar.Sources[0].Path)
	assert.True(t, sugar.Sources[0].Quantity.Equal(decimal.NewFromInt(4)))
}

func TestGetAggregatedIngredients_NoRoundingUntilReport(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testhelpers.NewBakeryStore(), nil, nil)

	list, err := svc.GetAggregatedIngredients(ctx, "SPONGE", testhelpers.Dec("0.3333"))
	require.NoError(t, err)

	flour := findIngredient(t, list, "FLOUR", "cup")
	assert.Equal(t, "0.49995", flour.Quantity.String())
	assert.Equal(t, "0.5", flour.ReportedQuantity().String())
}

func TestGetAggregatedIngredients_KeepsUnitsApart(t *testing.T) {
	ctx := context.Background()
	store := testhelpers.NewBakeryStore()
	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error {
		return tx.SaveRecipe(ctx, testhelpers.MustRecipe("MIXED", "Mixed", "",
			testhelpers.Line("SUGAR", "1", "cup"), testhelpers.Line("SUGAR", "3", "tbsp"), testhelpers.Line("SUGAR", "1", "Cup")))
	}))

	list, err := NewService(store, nil, nil).GetAggregatedIngredients(ctx, "MIXED", one)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, findIngredient(t, list, "SUGAR", "cup").Quantity.Equal(decimal.NewFromInt(2)))
	assert.True(t, findIngredient(t, list, "SUGAR", "tbsp").Quantity.Equal(decimal.NewFromInt(3)))
}

func TestGetAggregatedIngredients_Variant(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testhelpers.NewBakeryStore(), nil, nil)

	list, err := svc.GetAggregatedIngredients(ctx, "CHOC_CHIP", decimal.NewFromInt(3))
	require.NoError(t, err)
	assert.True(t, findIngredient(t, list, "FLOUR", "cup").Quantity.Equal(decimal.NewFromInt(6)))
	assert.True(t, findIngredient(t, list, "COCOA", "g").Quantity.Equal(decimal.NewFromInt(150)))

	_, err = svc.GetAggregatedIngredients(ctx, "NOPE", one)
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestAggregateVariants_ProportionalAllocation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testhelpers.NewBakeryStore(), nil, nil)

	list, err := svc.AggregateVariants(ctx, []entities.VariantBatch{
		{RecipeID: "CHOC_CHIP", Batches: decimal.NewFromInt(3)},
		{RecipeID: "VANILLA_COOKIE", Batches: decimal.NewFromInt(2)},
	})
	require.NoError(t, err)

	var flourEntries int
	for _, agg := range list {
		if agg.IngredientID == "FLOUR" {
			flourEntries++
		}
	}
	assert.Equal(t, 1, flourEntries, "base flour must be one merged entry")
	assert.True(t, findIngredient(t, list, "FLOUR", "cup").Quantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, findIngredient(t, list, "BUTTER", "g").Quantity.Equal(decimal.NewFromInt(1000)))
	assert.True(t, findIngredient(t, list, "COCOA", "g").Quantity.Equal(decimal.NewFromInt(150)))
	assert.True(t, findIngredient(t, list, "VANILLA", "tsp").Quantity.Equal(decimal.NewFromInt(4)))

	_, err = svc.AggregateVariants(ctx, []entities.VariantBatch{{RecipeID: "CHOC_CHIP", Batches: decimal.Zero}})
	assert.ErrorIs(t, err, entities.ErrInvalidArgument)
}

func TestAggregateVariants_MatchesSingleRecipe(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testhelpers.NewBakeryStore(), nil, nil)

	single, err := svc.GetAggregatedIngredients(ctx, "CHOC_CHIP", decimal.NewFromInt(4))
	require.NoError(t, err)
	scheduled, err := svc.AggregateVariants(ctx, []entities.VariantBatch{{RecipeID: "CHOC_CHIP", Batches: decimal.NewFromInt(4)}})
	require.NoError(t, err)

	require.Len(t, scheduled, len(single))
	for i := range single {
		assert.Equal(t, single[i].Key(), scheduled[i].Key())
		assert.True(t, single[i].Quantity.Equal(scheduled[i].Quantity))
	}
}

func TestCorruptStructureIsFatal(t *testing.T) {
	ctx := context.Background()
	store := newChainStore(t, "A", "B", "C", "D")

	// write a four-level chain directly, bypassing validation
	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error {
		for _, e := range [][2]entities.RecipeID{{"A", "B"}, {"B", "C"}, {"C", "D"}} {
			if err := tx.AddComponent(ctx, entities.ComponentEdge{ParentID: e[0], ChildID: e[1], Multiplier: one}); err != nil {
				return err
			}
		}
		return tx.AddComponent(ctx, entities.ComponentEdge{ParentID: "D", ChildID: "GHOST", Multiplier: one})
	}))

	svc := NewService(store, nil, nil)
	_, err := svc.GetAggregatedIngredients(ctx, "A", one)
	var structural *entities.StructuralError
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, entities.RuleDepthExceeded, structural.Rule)

	_, err = svc.GetAggregatedIngredients(ctx, "D", one)
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, entities.RuleMissingComponent, structural.Rule)

	result, err := svc.ValidateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entities.RecipeID{"A"}, result.TooDeep)
	assert.Len(t, result.Errors, 2, "one depth violation, one dangling component")
}

func TestTree(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testhelpers.NewBakeryStore(), nil, nil)

	root, err := svc.Tree(ctx, "LAYER_CAKE", one)
	require.NoError(t, err)
	assert.Equal(t, "Layer cake", root.Name)
	require.Len(t, root.Children, 2)
	assert.Equal(t, entities.RecipeID("SPONGE"), root.Children[0].RecipeID, "display order")
	assert.True(t, root.Children[0].Batches.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, 2, root.Children[0].Level)
}
