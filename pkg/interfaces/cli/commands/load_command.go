package commands

import (
	"github.com/spf13/cobra"
)

func newLoadCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "load <catalog-dir>",
		Short: "Import ingredients, recipes, components, finished units and lots from CSV files",
		Long: `load reads ingredients.csv and recipes.csv plus the optional
recipe_ingredients.csv, recipe_components.csv, finished_units.csv and
lots.csv from a directory and writes them in one transaction. Component
edges are validated for cycles and nesting depth as they are added.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			summary, err := a.Catalog.LoadDir(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.Printer.Message("loaded %d ingredients, %d recipes, %d components, %d finished units, %d lots",
				summary.Ingredients, summary.Recipes, summary.Components, summary.FinishedUnits, len(summary.Lots))
		},
	}
}
