package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

// File names inside a catalog directory
const (
	IngredientsFile       = "ingredients.csv"
	RecipesFile           = "recipes.csv"
	RecipeIngredientsFile = "recipe_ingredients.csv"
	RecipeComponentsFile  = "recipe_components.csv"
	FinishedUnitsFile     = "finished_units.csv"
	LotsFile              = "lots.csv"
)

// LotRow is one opening lot; the store assigns its id
type LotRow struct {
	IngredientID entities.IngredientID
	ProductID    entities.ProductID
	Quantity     decimal.Decimal
	Unit         entities.Unit
	CostPerUnit  decimal.Decimal
	AcquiredAt   time.Time
}

// Catalog is everything read from a catalog directory
type Catalog struct {
	Ingredients   []*entities.Ingredient
	Recipes       []*entities.Recipe
	Components    []entities.ComponentEdge
	FinishedUnits []*entities.FinishedUnit
	Lots          []LotRow
}

// Loader handles loading catalog data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadCatalog reads every catalog file in dir concurrently. ingredients.csv
// and recipes.csv are required; the other files may be absent.
func (l *Loader) LoadCatalog(ctx context.Context, dir string) (*Catalog, error) {
	var (
		cat   Catalog
		lines map[entities.RecipeID][]entities.RecipeIngredient
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cat.Ingredients, err = l.LoadIngredients(filepath.Join(dir, IngredientsFile))
		return err
	})
	g.Go(func() error {
		var err error
		cat.Recipes, err = l.LoadRecipes(filepath.Join(dir, RecipesFile))
		return err
	})
	g.Go(func() error {
		var err error
		lines, err = l.LoadRecipeIngredients(filepath.Join(dir, RecipeIngredientsFile))
		return optional(err)
	})
	g.Go(func() error {
		var err error
		cat.Components, err = l.LoadComponents(filepath.Join(dir, RecipeComponentsFile))
		return optional(err)
	})
	g.Go(func() error {
		var err error
		cat.FinishedUnits, err = l.LoadFinishedUnits(filepath.Join(dir, FinishedUnitsFile))
		return optional(err)
	})
	g.Go(func() error {
		var err error
		cat.Lots, err = l.LoadLots(filepath.Join(dir, LotsFile))
		return optional(err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	known := make(map[entities.RecipeID]*entities.Recipe, len(cat.Recipes))
	for _, r := range cat.Recipes {
		known[r.ID] = r
	}
	for id, recipeLines := range lines {
		recipe, ok := known[id]
		if !ok {
			return nil, fmt.Errorf("%s: ingredient lines for unknown recipe %s", RecipeIngredientsFile, id)
		}
		recipe.Ingredients = recipeLines
	}
	return &cat, nil
}

// optional turns a missing file into an empty result
func optional(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// LoadIngredients loads ingredients from a CSV file
func (l *Loader) LoadIngredients(filename string) ([]*entities.Ingredient, error) {
	records, err := readTable(filename, "ingredients", []string{"ingredient_id", "name", "stock_unit"})
	if err != nil {
		return nil, err
	}
	var out []*entities.Ingredient
	for i, record := range records {
		ing, err := entities.NewIngredient(entities.IngredientID(record[0]), record[1], entities.Unit(record[2]))
		if err != nil {
			return nil, fmt.Errorf("ingredients CSV row %d: %w", i+2, err)
		}
		out = append(out, ing)
	}
	return out, nil
}

// LoadRecipes loads recipe headers; ingredient lines come from a separate file
func (l *Loader) LoadRecipes(filename string) ([]*entities.Recipe, error) {
	records, err := readTable(filename, "recipes", []string{"recipe_id", "name", "base_recipe_id"})
	if err != nil {
		return nil, err
	}
	var out []*entities.Recipe
	for i, record := range records {
		recipe, err := entities.NewRecipe(entities.RecipeID(record[0]), record[1], entities.RecipeID(record[2]), nil)
		if err != nil {
			return nil, fmt.Errorf("recipes CSV row %d: %w", i+2, err)
		}
		out = append(out, recipe)
	}
	return out, nil
}

// LoadRecipeIngredients loads per-batch ingredient lines grouped by recipe,
// in file order
func (l *Loader) LoadRecipeIngredients(filename string) (map[entities.RecipeID][]entities.RecipeIngredient, error) {
	records, err := readTable(filename, "recipe ingredients", []string{"recipe_id", "ingredient_id", "quantity", "unit"})
	if err != nil {
		return nil, err
	}
	out := make(map[entities.RecipeID][]entities.RecipeIngredient)
	for i, record := range records {
		quantity, err := parseDecimal("quantity", record[2])
		if err != nil {
			return nil, fmt.Errorf("recipe ingredients CSV row %d: %w", i+2, err)
		}
		line, err := entities.NewRecipeIngredient(entities.IngredientID(record[1]), quantity, entities.Unit(record[3]))
		if err != nil {
			return nil, fmt.Errorf("recipe ingredients CSV row %d: %w", i+2, err)
		}
		id := entities.RecipeID(record[0])
		out[id] = append(out[id], *line)
	}
	return out, nil
}

// LoadComponents loads component edges
func (l *Loader) LoadComponents(filename string) ([]entities.ComponentEdge, error) {
	records, err := readTable(filename, "recipe components", []string{"parent_recipe_id", "child_recipe_id", "multiplier", "sort_order"})
	if err != nil {
		return nil, err
	}
	var out []entities.ComponentEdge
	for i, record := range records {
		multiplier, err := parseDecimal("multiplier", record[2])
		if err != nil {
			return nil, fmt.Errorf("recipe components CSV row %d: %w", i+2, err)
		}
		sortOrder := 0
		if record[3] != "" {
			sortOrder, err = strconv.Atoi(record[3])
			if err != nil {
				return nil, fmt.Errorf("recipe components CSV row %d: invalid sort_order: %s", i+2, record[3])
			}
		}
		edge, err := entities.NewComponentEdge(entities.RecipeID(record[0]), entities.RecipeID(record[1]), multiplier, sortOrder)
		if err != nil {
			return nil, fmt.Errorf("recipe components CSV row %d: %w", i+2, err)
		}
		out = append(out, *edge)
	}
	return out, nil
}

// LoadFinishedUnits loads yield definitions
func (l *Loader) LoadFinishedUnits(filename string) ([]*entities.FinishedUnit, error) {
	records, err := readTable(filename, "finished units", []string{"finished_unit_id", "recipe_id", "name", "items_per_batch"})
	if err != nil {
		return nil, err
	}
	var out []*entities.FinishedUnit
	for i, record := range records {
		perBatch, err := parseDecimal("items_per_batch", record[3])
		if err != nil {
			return nil, fmt.Errorf("finished units CSV row %d: %w", i+2, err)
		}
		fu, err := entities.NewFinishedUnit(entities.FinishedUnitID(record[0]), entities.RecipeID(record[1]), record[2], perBatch)
		if err != nil {
			return nil, fmt.Errorf("finished units CSV row %d: %w", i+2, err)
		}
		out = append(out, fu)
	}
	return out, nil
}

// LoadLots loads opening inventory lots
func (l *Loader) LoadLots(filename string) ([]LotRow, error) {
	records, err := readTable(filename, "lots", []string{"ingredient_id", "product_id", "quantity", "unit", "cost_per_unit", "acquired_at"})
	if err != nil {
		return nil, err
	}
	var out []LotRow
	for i, record := range records {
		quantity, err := parseDecimal("quantity", record[2])
		if err != nil {
			return nil, fmt.Errorf("lots CSV row %d: %w", i+2, err)
		}
		cost, err := parseDecimal("cost_per_unit", record[4])
		if err != nil {
			return nil, fmt.Errorf("lots CSV row %d: %w", i+2, err)
		}
		acquired, err := parseDate(record[5])
		if err != nil {
			return nil, fmt.Errorf("lots CSV row %d: %w", i+2, err)
		}
		out = append(out, LotRow{
			IngredientID: entities.IngredientID(record[0]),
			ProductID:    entities.ProductID(record[1]),
			Quantity:     quantity,
			Unit:         entities.Unit(record[3]),
			CostPerUnit:  cost,
			AcquiredAt:   acquired,
		})
	}
	return out, nil
}

// readTable reads a CSV file, checks its header and returns the data rows
// with fields trimmed
func readTable(filename, name string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", name, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", name, err)
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("%s CSV must have a header", name)
	}
	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", name, expectedHeader, header)
	}

	rows := records[1:]
	for i, record := range rows {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", name, i+2, len(expectedHeader), len(record))
		}
		for j := range record {
			record[j] = strings.TrimSpace(record[j])
		}
	}
	return rows, nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(strings.TrimPrefix(actual[i], "\ufeff"))) != col {
			return false
		}
	}

	return true
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %s", field, s)
	}
	return d, nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid acquired_at format: %s (expected YYYY-MM-DD)", s)
	}
	return t.UTC(), nil
}
