package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

// WriteCatalog writes cat as the six catalog files in dir, creating it if
// needed. LoadCatalog reads the result back unchanged.
func WriteCatalog(dir string, cat *Catalog) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ingredients := [][]string{{"ingredient_id", "name", "stock_unit"}}
	for _, ing := range cat.Ingredients {
		ingredients = append(ingredients, []string{string(ing.ID), ing.Name, string(ing.StockUnit)})
	}

	recipes := [][]string{{"recipe_id", "name", "base_recipe_id"}}
	lines := [][]string{{"recipe_id", "ingredient_id", "quantity", "unit"}}
	for _, r := range cat.Recipes {
		recipes = append(recipes, []string{string(r.ID), r.Name, string(r.BaseRecipeID)})
		for _, line := range r.Ingredients {
			lines = append(lines, []string{string(r.ID), string(line.IngredientID), line.Quantity.String(), string(line.Unit)})
		}
	}

	edges := append([]entities.ComponentEdge(nil), cat.Components...)
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].ParentID < edges[j].ParentID })
	components := [][]string{{"parent_recipe_id", "child_recipe_id", "multiplier", "sort_order"}}
	for _, e := range edges {
		components = append(components, []string{string(e.ParentID), string(e.ChildID), e.Multiplier.String(), strconv.Itoa(e.SortOrder)})
	}

	units := [][]string{{"finished_unit_id", "recipe_id", "name", "items_per_batch"}}
	for _, fu := range cat.FinishedUnits {
		units = append(units, []string{string(fu.ID), string(fu.RecipeID), fu.Name, fu.ItemsPerBatch.String()})
	}

	lots := [][]string{{"ingredient_id", "product_id", "quantity", "unit", "cost_per_unit", "acquired_at"}}
	for _, lot := range cat.Lots {
		lots = append(lots, []string{
			string(lot.IngredientID), string(lot.ProductID), lot.Quantity.String(), string(lot.Unit),
			lot.CostPerUnit.String(), lot.AcquiredAt.Format("2006-01-02"),
		})
	}

	for name, records := range map[string][][]string{
		IngredientsFile:       ingredients,
		RecipesFile:           recipes,
		RecipeIngredientsFile: lines,
		RecipeComponentsFile:  components,
		FinishedUnitsFile:     units,
		LotsFile:              lots,
	} {
		if err := writeFile(filepath.Join(dir, name), records); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}
