package commands

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vsinha/batchledger/pkg/application/services/ledger"
	"github.com/vsinha/batchledger/pkg/domain/entities"
)

func newInventoryCommand(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "inventory",
		Aliases: []string{"inv"},
		Short:   "Query and change ingredient lots",
	}
	cmd.AddCommand(
		newAvailableCommand(app),
		newLotsCommand(app),
		newReceiveCommand(app),
		newConsumeCommand(app),
		newDepleteCommand(app),
		newValueCommand(app),
	)
	return cmd
}

func newAvailableCommand(app func() *App) *cobra.Command {
	var unit string
	cmd := &cobra.Command{
		Use:   "available <ingredient>",
		Short: "Sum the remaining quantity across an ingredient's open lots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			total, err := a.Ledger.QueryAvailable(cmd.Context(), entities.IngredientID(args[0]), entities.Unit(unit))
			if err != nil {
				return err
			}
			return a.Printer.Message("%s available: %s", args[0], total)
		},
	}
	cmd.Flags().StringVar(&unit, "unit", "", "unit to report in (defaults to the stock unit)")
	return cmd
}

func newLotsCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "lots <ingredient>",
		Short: "List an ingredient's lots in FIFO order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			lots, err := a.Ledger.ListLots(cmd.Context(), entities.IngredientID(args[0]))
			if err != nil {
				return err
			}
			return a.Printer.Lots(lots)
		},
	}
}

func newReceiveCommand(app func() *App) *cobra.Command {
	var (
		product  string
		unit     string
		acquired string
	)
	cmd := &cobra.Command{
		Use:   "receive <ingredient> <quantity> <cost-per-unit>",
		Short: "Record a purchase as a new lot",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			quantity, err := parseDecimal("quantity", args[1])
			if err != nil {
				return err
			}
			cost, err := parseDecimal("cost", args[2])
			if err != nil {
				return err
			}
			in := ledger.NewLotInput{
				ProductID:    entities.ProductID(product),
				IngredientID: entities.IngredientID(args[0]),
				Quantity:     quantity,
				Unit:         entities.Unit(unit),
				CostPerUnit:  cost,
			}
			if in.ProductID == "" {
				in.ProductID = entities.ProductID(args[0])
			}
			if acquired != "" {
				in.AcquiredAt, err = time.Parse("2006-01-02", acquired)
				if err != nil {
					return err
				}
			}

			lot, err := a.Ledger.ReceiveLot(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.Printer.Lots([]*entities.InventoryLot{lot})
		},
	}
	cmd.Flags().StringVar(&product, "product", "", "purchased product (defaults to the ingredient id)")
	cmd.Flags().StringVar(&unit, "unit", "", "lot unit (defaults to the stock unit)")
	cmd.Flags().StringVar(&acquired, "acquired", "", "acquisition date YYYY-MM-DD (defaults to now)")
	return cmd
}

func newConsumeCommand(app func() *App) *cobra.Command {
	var (
		commit  bool
		eventID string
	)
	cmd := &cobra.Command{
		Use:   "consume <ingredient> <quantity> <unit>",
		Short: "Draw down lots oldest first; a dry run unless --commit is given",
		Long: `consume plans a FIFO draw across the ingredient's open lots and prints
the per-lot breakdown and cost. With --commit the draw is written under an
assembly event and whatever could be drawn is kept even when short.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			quantity, err := parseDecimal("quantity", args[1])
			if err != nil {
				return err
			}
			req := ledger.ConsumeRequest{
				IngredientID: entities.IngredientID(args[0]),
				Quantity:     quantity,
				Unit:         entities.Unit(args[2]),
				DryRun:       !commit,
			}
			if commit {
				if eventID == "" {
					eventID = uuid.NewString()
				}
				req.Event = entities.EventRef{Kind: entities.EventAssembly, ID: eventID}
			}

			result, err := a.Ledger.Consume(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.Printer.Consumption(result)
		},
	}
	cmd.Flags().BoolVar(&commit, "commit", false, "write the consumption")
	cmd.Flags().StringVar(&eventID, "event", "", "assembly event id stamped on the records (generated when empty)")
	return cmd
}

func newDepleteCommand(app func() *App) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "deplete <ingredient> <quantity> <unit>",
		Short: "Remove spoiled or lost stock; fails without writing if lots are short",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			quantity, err := parseDecimal("quantity", args[1])
			if err != nil {
				return err
			}
			result, err := a.Ledger.RecordDepletion(cmd.Context(), ledger.DepletionRequest{
				IngredientID: entities.IngredientID(args[0]),
				Quantity:     quantity,
				Unit:         entities.Unit(args[2]),
				Reason:       reason,
			})
			if err != nil {
				return err
			}
			return a.Printer.Consumption(result)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "spoilage", "why the stock left")
	return cmd
}

func newValueCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "value <ingredient>",
		Short: "Value the remaining stock of an ingredient at lot cost",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			value, err := a.Ledger.InventoryValue(cmd.Context(), entities.IngredientID(args[0]))
			if err != nil {
				return err
			}
			return a.Printer.Message("%s inventory value: %s", args[0], entities.RoundCost(value))
		},
	}
}
