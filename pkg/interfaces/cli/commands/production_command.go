package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/vsinha/batchledger/pkg/application/services/production"
	"github.com/vsinha/batchledger/pkg/domain/entities"
)

func newProductionCommand(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "production",
		Aliases: []string{"prod"},
		Short:   "Record and inspect batch production",
	}
	cmd.AddCommand(
		newRecordCommand(app),
		newCheckCommand(app),
		newListProductionsCommand(app),
		newShowProductionCommand(app),
	)
	return cmd
}

func newRecordCommand(app func() *App) *cobra.Command {
	var (
		finishedUnit string
		yield        string
		notes        string
		producedAt   string
	)
	cmd := &cobra.Command{
		Use:   "record <recipe> <batches>",
		Short: "Consume ingredients FIFO, cost the batch and snapshot the recipe",
		Long: `record consumes every ingredient the recipe and its components need,
all or nothing. If any ingredient is short nothing is written. On success
the production record, its consumption records and a recipe snapshot are
committed together.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			batches, err := parseDecimal("batches", args[1])
			if err != nil {
				return err
			}
			actual, err := parseDecimal("yield", yield)
			if err != nil {
				return err
			}
			req := production.RecordRequest{
				RecipeID:       entities.RecipeID(args[0]),
				FinishedUnitID: entities.FinishedUnitID(finishedUnit),
				NumBatches:     batches,
				ActualYield:    actual,
				Notes:          notes,
			}
			if producedAt != "" {
				req.ProducedAt, err = time.Parse(time.RFC3339, producedAt)
				if err != nil {
					return err
				}
			}

			result, err := a.Productions.RecordProduction(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.Printer.ProductionResult(result)
		},
	}
	cmd.Flags().StringVar(&finishedUnit, "unit", "", "finished unit produced (required)")
	cmd.Flags().StringVar(&yield, "yield", "", "actual number of items produced (required)")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.Flags().StringVar(&producedAt, "at", "", "production time, RFC 3339 (defaults to now)")
	_ = cmd.MarkFlagRequired("unit")
	_ = cmd.MarkFlagRequired("yield")
	return cmd
}

func newCheckCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check <recipe> <batches>",
		Short: "Report whether current stock covers a production, without writing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			batches, err := parseDecimal("batches", args[1])
			if err != nil {
				return err
			}
			report, err := a.Productions.CheckCanProduce(cmd.Context(), entities.RecipeID(args[0]), batches)
			if err != nil {
				return err
			}
			return a.Printer.Availability(report)
		},
	}
}

func newListProductionsCommand(app func() *App) *cobra.Command {
	var recipe string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded productions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			prods, err := a.Productions.ListProductions(cmd.Context(), entities.RecipeID(recipe))
			if err != nil {
				return err
			}
			return a.Printer.Productions(prods)
		},
	}
	cmd.Flags().StringVar(&recipe, "recipe", "", "only productions of this recipe")
	return cmd
}

func newShowProductionCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <production-id>",
		Short: "Show a production with the lots it drew from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			id := entities.ProductionID(args[0])
			prod, err := a.Productions.GetProduction(cmd.Context(), id)
			if err != nil {
				return err
			}
			records, err := a.Productions.ConsumptionsOf(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.Printer.ProductionDetail(prod, records)
		},
	}
}
