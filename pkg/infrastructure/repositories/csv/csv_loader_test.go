package csv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

func TestLoadCatalog_Bakery(t *testing.T) {
	cat, err := NewLoader().LoadCatalog(context.Background(), filepath.Join("testdata", "bakery"))
	require.NoError(t, err)

	assert.Len(t, cat.Ingredients, 7)
	assert.Len(t, cat.Recipes, 6)
	assert.Len(t, cat.Components, 2)
	assert.Len(t, cat.FinishedUnits, 3)
	require.Len(t, cat.Lots, 8)

	var dough, choc *entities.Recipe
	for _, r := range cat.Recipes {
		switch r.ID {
		case "COOKIE_DOUGH":
			dough = r
		case "CHOC_CHIP":
			choc = r
		}
	}
	require.NotNil(t, dough)
	require.NotNil(t, choc)

	require.Len(t, dough.Ingredients, 3)
	assert.Equal(t, entities.IngredientID("FLOUR"), dough.Ingredients[0].IngredientID)
	assert.Equal(t, entities.IngredientID("SUGAR"), dough.Ingredients[2].IngredientID)
	assert.Equal(t, entities.RecipeID("COOKIE_DOUGH"), choc.BaseRecipeID)

	edge := cat.Components[0]
	assert.Equal(t, entities.RecipeID("LAYER_CAKE"), edge.ParentID)
	assert.Equal(t, entities.RecipeID("SPONGE"), edge.ChildID)
	assert.True(t, edge.Multiplier.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, 1, edge.SortOrder)

	lot := cat.Lots[1]
	assert.Equal(t, entities.IngredientID("FLOUR"), lot.IngredientID)
	assert.True(t, lot.CostPerUnit.Equal(decimal.RequireFromString("0.15")))
	assert.Equal(t, 2, lot.AcquiredAt.Day())
}

func TestLoadCatalog_OptionalFilesMayBeMissing(t *testing.T) {
	dir := t.TempDir()
	copyFile(t, filepath.Join("testdata", "bakery", IngredientsFile), filepath.Join(dir, IngredientsFile))
	copyFile(t, filepath.Join("testdata", "bakery", RecipesFile), filepath.Join(dir, RecipesFile))

	cat, err := NewLoader().LoadCatalog(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, cat.Recipes, 6)
	assert.Empty(t, cat.Components)
	assert.Empty(t, cat.Lots)
}

func TestLoadCatalog_RequiredFilesMustExist(t *testing.T) {
	_, err := NewLoader().LoadCatalog(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open")
}

func TestLoader_RowErrors(t *testing.T) {
	loader := NewLoader()
	broken := filepath.Join("testdata", "broken")

	_, err := loader.LoadRecipeIngredients(filepath.Join(broken, RecipeIngredientsFile))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recipe ingredients CSV row 2")
	assert.Contains(t, err.Error(), "invalid quantity: three")

	_, err = loader.LoadLots(filepath.Join(broken, LotsFile))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lots CSV header mismatch")

	_, err = loader.LoadCatalog(context.Background(), broken)
	assert.Error(t, err)
}

func TestValidateHeader(t *testing.T) {
	expected := []string{"recipe_id", "name", "base_recipe_id"}

	testCases := []struct {
		name   string
		header []string
		valid  bool
	}{
		{"exact", []string{"recipe_id", "name", "base_recipe_id"}, true},
		{"case and spaces", []string{" Recipe_ID", "NAME ", "base_recipe_id"}, true},
		{"byte order mark", []string{"\ufeffrecipe_id", "name", "base_recipe_id"}, true},
		{"missing column", []string{"recipe_id", "name"}, false},
		{"wrong order", []string{"name", "recipe_id", "base_recipe_id"}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, validateHeader(tc.header, expected))
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2025-03-04")
	require.NoError(t, err)
	assert.Equal(t, 4, d.Day())

	d, err = parseDate("2025-03-04T10:30:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, 8, d.Hour())

	_, err = parseDate("04/03/2025")
	assert.Error(t, err)
}

func copyFile(t *testing.T, from, to string) {
	t.Helper()
	data, err := os.ReadFile(from)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(to, data, 0o644))
}

func TestWriteCatalog_RoundTrip(t *testing.T) {
	ctx := context.Background()
	loader := NewLoader()
	original, err := loader.LoadCatalog(ctx, filepath.Join("testdata", "bakery"))
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, WriteCatalog(dir, original))

	reloaded, err := loader.LoadCatalog(ctx, dir)
	require.NoError(t, err)

	assert.Len(t, reloaded.Ingredients, len(original.Ingredients))
	assert.Len(t, reloaded.Components, len(original.Components))
	assert.Len(t, reloaded.FinishedUnits, len(original.FinishedUnits))
	require.Len(t, reloaded.Lots, len(original.Lots))
	assert.True(t, reloaded.Lots[7].CostPerUnit.Equal(original.Lots[7].CostPerUnit))
	assert.True(t, reloaded.Lots[7].AcquiredAt.Equal(original.Lots[7].AcquiredAt))

	require.Len(t, reloaded.Recipes, len(original.Recipes))
	for i := range original.Recipes {
		assert.Equal(t, original.Recipes[i].ID, reloaded.Recipes[i].ID)
		assert.Equal(t, len(original.Recipes[i].Ingredients), len(reloaded.Recipes[i].Ingredients))
	}
}
