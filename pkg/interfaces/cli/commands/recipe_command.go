package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

func newRecipeCommand(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipe",
		Short: "Maintain and expand the recipe component graph",
	}
	cmd.AddCommand(
		newAddComponentCommand(app),
		newRemoveComponentCommand(app),
		newIngredientsCommand(app),
		newAggregateCommand(app),
		newTreeCommand(app),
		newValidateCommand(app),
	)
	return cmd
}

func newAddComponentCommand(app func() *App) *cobra.Command {
	var sortOrder int
	cmd := &cobra.Command{
		Use:   "add-component <parent> <child> [multiplier]",
		Short: "Use one recipe as a component of another",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			multiplier := "1"
			if len(args) == 3 {
				multiplier = args[2]
			}
			m, err := parseDecimal("multiplier", multiplier)
			if err != nil {
				return err
			}
			if err := a.Recipes.AddComponent(cmd.Context(), entities.RecipeID(args[0]), entities.RecipeID(args[1]), m, sortOrder); err != nil {
				return err
			}
			return a.Printer.Message("%s now uses %s x%s", args[0], args[1], m)
		},
	}
	cmd.Flags().IntVar(&sortOrder, "sort-order", 0, "position among the parent's components")
	return cmd
}

func newRemoveComponentCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-component <parent> <child>",
		Short: "Stop using a recipe as a component",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.Recipes.RemoveComponent(cmd.Context(), entities.RecipeID(args[0]), entities.RecipeID(args[1])); err != nil {
				return err
			}
			return a.Printer.Message("%s no longer uses %s", args[0], args[1])
		},
	}
}

// batchesArg reads the optional batch count at args[i], defaulting to one
func batchesArg(args []string, i int) string {
	if len(args) <= i {
		return "1"
	}
	return args[i]
}

func newIngredientsCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ingredients <recipe> [batches]",
		Short: "Expand a recipe and its components into one ingredient list",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			batches, err := parseDecimal("batches", batchesArg(args, 1))
			if err != nil {
				return err
			}
			items, err := a.Recipes.GetAggregatedIngredients(cmd.Context(), entities.RecipeID(args[0]), batches)
			if err != nil {
				return err
			}
			return a.Printer.Aggregated(items)
		},
	}
}

func newAggregateCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "aggregate <recipe>=<batches>...",
		Short: "Combine the ingredient needs of several recipes or variants",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			batches := make([]entities.VariantBatch, 0, len(args))
			for _, arg := range args {
				id, n, ok := strings.Cut(arg, "=")
				if !ok || id == "" {
					return fmt.Errorf("expected <recipe>=<batches>, got %q", arg)
				}
				b, err := parseDecimal("batches", n)
				if err != nil {
					return err
				}
				batches = append(batches, entities.VariantBatch{RecipeID: entities.RecipeID(id), Batches: b})
			}
			items, err := a.Recipes.AggregateVariants(cmd.Context(), batches)
			if err != nil {
				return err
			}
			return a.Printer.Aggregated(items)
		},
	}
}

func newTreeCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tree <recipe> [batches]",
		Short: "Show a recipe's component tree with per-node ingredients",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			batches, err := parseDecimal("batches", batchesArg(args, 1))
			if err != nil {
				return err
			}
			tree, err := a.Recipes.Tree(cmd.Context(), entities.RecipeID(args[0]), batches)
			if err != nil {
				return err
			}
			return a.Printer.Tree(tree)
		},
	}
}

func newValidateCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Audit the stored component graph for cycles, duplicates and depth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			result, err := a.Recipes.ValidateAll(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Printer.Validation(result); err != nil {
				return err
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("recipe graph has %d problem(s)", len(result.Errors))
			}
			return nil
		},
	}
}
