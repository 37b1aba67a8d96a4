package commands

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/infrastructure/repositories/csv"
)

// GenerateConfig holds configuration for scenario generation
type GenerateConfig struct {
	Ingredients int     // Number of ingredients to generate
	Recipes     int     // Number of recipes, variants included
	MaxDepth    int     // Maximum nesting depth of the component tree
	Coverage    float64 // Stock multiplier against one batch of every top-level recipe
	Seed        int64   // Random seed for reproducible generation
}

// recipeNode is a recipe in the generated component tree
type recipeNode struct {
	recipe   *entities.Recipe
	level    int
	children []*recipeNode
	mult     map[entities.RecipeID]decimal.Decimal
}

var generatedUnits = []entities.Unit{"g", "ml", "each", "cup", "tsp"}

func newGenerateCommand() *cobra.Command {
	cfg := GenerateConfig{}
	cmd := &cobra.Command{
		Use:   "generate <output-dir>",
		Short: "Write a random, valid catalog as CSV files for load testing",
		Long: `generate builds a random recipe catalog: top-level recipes with nested
components no deeper than --max-depth, shared sub-recipes, a few yield
variants and enough opening lots to cover --coverage batches of every
top-level recipe. The output can be imported with load.`,
		Args: cobra.ExactArgs(1),
		// Generation needs no store, so skip the root's setup
		PersistentPreRunE:  func(cmd *cobra.Command, args []string) error { return nil },
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Seed == 0 {
				cfg.Seed = time.Now().UnixNano()
			}
			cat, err := GenerateCatalog(cfg)
			if err != nil {
				return err
			}
			if err := csv.WriteCatalog(args[0], cat); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "generated %d ingredients, %d recipes, %d components, %d lots in %s (seed %d)\n",
				len(cat.Ingredients), len(cat.Recipes), len(cat.Components), len(cat.Lots), args[0], cfg.Seed)
			return nil
		},
	}
	cmd.Flags().IntVar(&cfg.Ingredients, "ingredients", 30, "number of ingredients")
	cmd.Flags().IntVar(&cfg.Recipes, "recipes", 40, "number of recipes")
	cmd.Flags().IntVar(&cfg.MaxDepth, "max-depth", entities.MaxNestingDepth, "maximum component nesting depth")
	cmd.Flags().Float64Var(&cfg.Coverage, "coverage", 2, "stock multiplier (0.5 = half of one batch each, 4 = four batches)")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", 0, "random seed (0 = time based)")
	return cmd
}

// GenerateCatalog builds a random catalog. Components only ever point one
// level down, so the result is acyclic and within MaxDepth.
func GenerateCatalog(cfg GenerateConfig) (*csv.Catalog, error) {
	if cfg.Ingredients < 1 || cfg.Recipes < 1 {
		return nil, fmt.Errorf("need at least one ingredient and one recipe")
	}
	if cfg.MaxDepth < 1 || cfg.MaxDepth > entities.MaxNestingDepth {
		return nil, fmt.Errorf("max depth must be between 1 and %d", entities.MaxNestingDepth)
	}
	if cfg.Coverage < 0 {
		return nil, fmt.Errorf("coverage cannot be negative")
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	cat := &csv.Catalog{}

	for i := 0; i < cfg.Ingredients; i++ {
		ing, err := entities.NewIngredient(
			entities.IngredientID(fmt.Sprintf("ING_%03d", i+1)),
			fmt.Sprintf("Ingredient %d", i+1),
			generatedUnits[rng.Intn(len(generatedUnits))],
		)
		if err != nil {
			return nil, err
		}
		cat.Ingredients = append(cat.Ingredients, ing)
	}

	newRecipe := func(id string, level int) (*recipeNode, error) {
		recipe, err := entities.NewRecipe(entities.RecipeID(id), "Recipe "+id, "", randomLines(rng, cat.Ingredients))
		if err != nil {
			return nil, err
		}
		cat.Recipes = append(cat.Recipes, recipe)
		return &recipeNode{recipe: recipe, level: level, mult: make(map[entities.RecipeID]decimal.Decimal)}, nil
	}

	// Roots are about a fifth of all recipes
	numRoots := max(1, cfg.Recipes/5)
	var roots []*recipeNode
	for i := 0; i < numRoots; i++ {
		node, err := newRecipe(fmt.Sprintf("TOP_%03d", i+1), 1)
		if err != nil {
			return nil, err
		}
		roots = append(roots, node)
	}

	generated := numRoots
	current := roots
	byLevel := map[int][]*recipeNode{1: roots}
	for level := 2; level <= cfg.MaxDepth && generated < cfg.Recipes; level++ {
		var next []*recipeNode
		for _, parent := range current {
			numChildren := 1 + rng.Intn(3)
			for c := 0; c < numChildren && generated < cfg.Recipes; c++ {
				var child *recipeNode
				// 20% chance to reuse a sub-recipe another parent already uses
				if candidates := byLevel[level]; len(candidates) > 0 && rng.Float64() < 0.2 {
					pick := candidates[rng.Intn(len(candidates))]
					if _, used := parent.mult[pick.recipe.ID]; !used {
						child = pick
					}
				}
				if child == nil {
					var err error
					child, err = newRecipe(fmt.Sprintf("SUB_L%d_%03d", level, generated), level)
					if err != nil {
						return nil, err
					}
					next = append(next, child)
					byLevel[level] = append(byLevel[level], child)
					generated++
				}

				multiplier := decimal.NewFromInt(int64(1 + rng.Intn(3)))
				parent.children = append(parent.children, child)
				parent.mult[child.recipe.ID] = multiplier
				cat.Components = append(cat.Components, entities.ComponentEdge{
					ParentID:   parent.recipe.ID,
					ChildID:    child.recipe.ID,
					Multiplier: multiplier,
					SortOrder:  len(parent.children),
				})
			}
		}
		if len(next) == 0 {
			break
		}
		current = next
	}

	// Spend what is left on yield variants of the roots
	for i := 0; generated < cfg.Recipes; i++ {
		base := roots[i%len(roots)].recipe
		variant, err := entities.NewRecipe(
			entities.RecipeID(fmt.Sprintf("%s_V%d", base.ID, i/len(roots)+1)),
			base.Name+" variant",
			base.ID,
			randomLines(rng, cat.Ingredients)[:1],
		)
		if err != nil {
			return nil, err
		}
		cat.Recipes = append(cat.Recipes, variant)
		generated++
	}

	for _, root := range roots {
		fu, err := entities.NewFinishedUnit(
			entities.FinishedUnitID("FU_"+string(root.recipe.ID)),
			root.recipe.ID,
			root.recipe.Name,
			decimal.NewFromInt(int64(1+rng.Intn(24))),
		)
		if err != nil {
			return nil, err
		}
		cat.FinishedUnits = append(cat.FinishedUnits, fu)
	}

	cat.Lots = generateLots(rng, cat.Ingredients, roots, cfg.Coverage)
	return cat, nil
}

// randomLines picks one to four distinct ingredients in their stock units
func randomLines(rng *rand.Rand, ingredients []*entities.Ingredient) []entities.RecipeIngredient {
	n := 1 + rng.Intn(4)
	if n > len(ingredients) {
		n = len(ingredients)
	}
	lines := make([]entities.RecipeIngredient, 0, n)
	for _, idx := range rng.Perm(len(ingredients))[:n] {
		ing := ingredients[idx]
		lines = append(lines, entities.RecipeIngredient{
			IngredientID: ing.ID,
			Quantity:     decimal.NewFromInt(int64(1 + rng.Intn(10))),
			Unit:         ing.StockUnit,
		})
	}
	return lines
}

// explode adds what batches of node need, components included, to need
func explode(node *recipeNode, batches decimal.Decimal, need map[entities.IngredientID]decimal.Decimal) {
	for _, line := range node.recipe.Ingredients {
		need[line.IngredientID] = need[line.IngredientID].Add(line.Quantity.Mul(batches))
	}
	for _, child := range node.children {
		explode(child, batches.Mul(node.mult[child.recipe.ID]), need)
	}
}

// generateLots covers coverage batches of every root, split over one to
// three lots bought on different days at different prices
func generateLots(rng *rand.Rand, ingredients []*entities.Ingredient, roots []*recipeNode, coverage float64) []csv.LotRow {
	need := make(map[entities.IngredientID]decimal.Decimal)
	for _, root := range roots {
		explode(root, decimal.NewFromInt(1), need)
	}

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var lots []csv.LotRow
	for _, ing := range ingredients {
		total := need[ing.ID].Mul(decimal.NewFromFloat(coverage)).Ceil()
		if !total.IsPositive() {
			continue
		}
		splits := 1 + rng.Intn(3)
		per := total.Div(decimal.NewFromInt(int64(splits))).Ceil()
		for s := 0; s < splits; s++ {
			cost := decimal.NewFromInt(int64(5 + rng.Intn(95))).Div(decimal.NewFromInt(100))
			lots = append(lots, csv.LotRow{
				IngredientID: ing.ID,
				ProductID:    entities.ProductID(fmt.Sprintf("%s-SUP%d", ing.ID, s+1)),
				Quantity:     per,
				Unit:         ing.StockUnit,
				CostPerUnit:  cost,
				AcquiredAt:   start.AddDate(0, 0, s*7+rng.Intn(7)),
			})
		}
	}
	return lots
}
