package testing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/domain/repositories"
	"github.com/vsinha/batchledger/pkg/infrastructure/repositories/memory"
)

// Day returns midnight UTC of the n-th day of January 2025
func Day(n int) time.Time {
	return time.Date(2025, 1, n, 0, 0, 0, 0, time.UTC)
}

// Dec parses a decimal literal, panicking on bad input
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// MustIngredient is a helper for tests - panics on validation error
func MustIngredient(id, name string, stockUnit entities.Unit) *entities.Ingredient {
	ing, err := entities.NewIngredient(entities.IngredientID(id), name, stockUnit)
	if err != nil {
		panic(err)
	}
	return ing
}

// Line builds a recipe ingredient line
func Line(ingredient string, quantity string, unit entities.Unit) entities.RecipeIngredient {
	line, err := entities.NewRecipeIngredient(entities.IngredientID(ingredient), Dec(quantity), unit)
	if err != nil {
		panic(err)
	}
	return *line
}

// MustRecipe is a helper for tests - panics on validation error
func MustRecipe(id, name, base string, lines ...entities.RecipeIngredient) *entities.Recipe {
	recipe, err := entities.NewRecipe(entities.RecipeID(id), name, entities.RecipeID(base), lines)
	if err != nil {
		panic(err)
	}
	return recipe
}

// MustFinishedUnit is a helper for tests - panics on validation error
func MustFinishedUnit(id, recipe, name, itemsPerBatch string) *entities.FinishedUnit {
	fu, err := entities.NewFinishedUnit(entities.FinishedUnitID(id), entities.RecipeID(recipe), name, Dec(itemsPerBatch))
	if err != nil {
		panic(err)
	}
	return fu
}

// LotSpec describes a lot to seed; the id is allocated by the store
type LotSpec struct {
	Ingredient string
	Quantity   string
	Unit       entities.Unit
	Cost       string
	Acquired   time.Time
}

// InsertLot allocates an id and stores a lot
func InsertLot(ctx context.Context, tx repositories.Tx, spec LotSpec) (*entities.InventoryLot, error) {
	id, err := tx.NextLotID(ctx)
	if err != nil {
		return nil, err
	}
	lot, err := entities.NewInventoryLot(id, entities.ProductID(spec.Ingredient+"-PKG"),
		entities.IngredientID(spec.Ingredient), Dec(spec.Quantity), spec.Unit, Dec(spec.Cost), spec.Acquired)
	if err != nil {
		return nil, err
	}
	return lot, tx.InsertLot(ctx, lot)
}

// BakeryIngredients is the ingredient catalog of the bakery scenario
func BakeryIngredients() []*entities.Ingredient {
	return []*entities.Ingredient{
		MustIngredient("FLOUR", "All-purpose flour", "cup"),
		MustIngredient("SUGAR", "Granulated sugar", "cup"),
		MustIngredient("BUTTER", "Unsalted butter", "g"),
		MustIngredient("EGG", "Large egg", "each"),
		MustIngredient("VANILLA", "Vanilla extract", "tsp"),
		MustIngredient("COCOA", "Cocoa powder", "g"),
		MustIngredient("MILK", "Whole milk", "ml"),
	}
}

// BakeryRecipes is the recipe catalog of the bakery scenario. COOKIE_DOUGH
// has two yield variants; LAYER_CAKE nests SPONGE and FROSTING.
func BakeryRecipes() []*entities.Recipe {
	return []*entities.Recipe{
		MustRecipe("COOKIE_DOUGH", "Cookie dough", "",
			Line("FLOUR", "2", "cup"), Line("BUTTER", "200", "g"), Line("SUGAR", "1", "cup")),
		MustRecipe("CHOC_CHIP", "Chocolate chip cookies", "COOKIE_DOUGH", Line("COCOA", "50", "g")),
		MustRecipe("VANILLA_COOKIE", "Vanilla cookies", "COOKIE_DOUGH", Line("VANILLA", "2", "tsp")),
		MustRecipe("SPONGE", "Sponge", "",
			Line("FLOUR", "1.5", "cup"), Line("EGG", "3", "each"), Line("SUGAR", "1", "cup")),
		MustRecipe("FROSTING", "Buttercream", "",
			Line("BUTTER", "100", "g"), Line("SUGAR", "2", "cup"), Line("VANILLA", "1", "tsp")),
		MustRecipe("LAYER_CAKE", "Layer cake", "", Line("MILK", "120", "ml")),
	}
}

// BakeryComponents are the component edges of the bakery scenario
func BakeryComponents() []entities.ComponentEdge {
	return []entities.ComponentEdge{
		{ParentID: "LAYER_CAKE", ChildID: "SPONGE", Multiplier: Dec("2"), SortOrder: 1},
		{ParentID: "LAYER_CAKE", ChildID: "FROSTING", Multiplier: Dec("1"), SortOrder: 2},
	}
}

// BakeryFinishedUnits are the yield definitions of the bakery scenario
func BakeryFinishedUnits() []*entities.FinishedUnit {
	return []*entities.FinishedUnit{
		MustFinishedUnit("COOKIE_2DOZ", "COOKIE_DOUGH", "Two dozen cookies", "24"),
		MustFinishedUnit("CHOC_2DOZ", "CHOC_CHIP", "Two dozen chocolate chip", "24"),
		MustFinishedUnit("CAKE_EACH", "LAYER_CAKE", "Whole cake", "1"),
	}
}

// BakeryLots are the opening lots of the bakery scenario. Flour has two
// lots at different prices to exercise FIFO costing.
func BakeryLots() []LotSpec {
	return []LotSpec{
		{"FLOUR", "100", "cup", "0.10", Day(1)},
		{"FLOUR", "100", "cup", "0.15", Day(2)},
		{"SUGAR", "50", "cup", "0.20", Day(1)},
		{"BUTTER", "2000", "g", "0.01", Day(1)},
		{"EGG", "36", "each", "0.25", Day(1)},
		{"VANILLA", "48", "tsp", "0.05", Day(1)},
		{"COCOA", "500", "g", "0.02", Day(1)},
		{"MILK", "2000", "ml", "0.002", Day(1)},
	}
}

// SeedBakery writes the bakery scenario through tx. Component edges are
// written directly, without graph validation.
func SeedBakery(ctx context.Context, tx repositories.Tx) error {
	for _, ing := range BakeryIngredients() {
		if err := tx.SaveIngredient(ctx, ing); err != nil {
			return err
		}
	}
	for _, recipe := range BakeryRecipes() {
		if err := tx.SaveRecipe(ctx, recipe); err != nil {
			return err
		}
	}
	for _, edge := range BakeryComponents() {
		if err := tx.AddComponent(ctx, edge); err != nil {
			return err
		}
	}
	for _, fu := range BakeryFinishedUnits() {
		if err := tx.SaveFinishedUnit(ctx, fu); err != nil {
			return err
		}
	}
	for _, spec := range BakeryLots() {
		if _, err := InsertLot(ctx, tx, spec); err != nil {
			return err
		}
	}
	return nil
}

// NewBakeryStore returns a memory store holding the bakery scenario
func NewBakeryStore() *memory.Store {
	store := memory.NewStore()
	if err := store.Update(context.Background(), func(tx repositories.Tx) error {
		return SeedBakery(context.Background(), tx)
	}); err != nil {
		panic(err)
	}
	return store
}

// Remaining sums the remaining quantity of an ingredient's lots
func Remaining(t require.TestingT, ctx context.Context, store repositories.Store, ingredient entities.IngredientID) decimal.Decimal {
	total := decimal.Zero
	require.NoError(t, store.View(ctx, func(tx repositories.Tx) error {
		lots, err := tx.ListLots(ctx, ingredient)
		if err != nil {
			return err
		}
		for _, lot := range lots {
			total = total.Add(lot.QuantityRemaining)
		}
		return nil
	}))
	return total
}
