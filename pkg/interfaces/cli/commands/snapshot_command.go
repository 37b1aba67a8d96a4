package commands

import (
	"github.com/spf13/cobra"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

func newSnapshotCommand(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect and backfill recipe snapshots",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <production-id>",
			Short: "Show the recipe as it was when a production was recorded",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a := app()
				snap, payload, err := a.Snapshots.Get(cmd.Context(), entities.ProductionID(args[0]))
				if err != nil {
					return err
				}
				return a.Printer.Snapshot(snap, payload)
			},
		},
		newListSnapshotsCommand(app),
		newBackfillCommand(app),
	)
	return cmd
}

func newListSnapshotsCommand(app func() *App) *cobra.Command {
	var recipe string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			snaps, err := a.Snapshots.List(cmd.Context(), entities.RecipeID(recipe))
			if err != nil {
				return err
			}
			return a.Printer.Snapshots(snaps)
		},
	}
	cmd.Flags().StringVar(&recipe, "recipe", "", "only snapshots of this recipe")
	return cmd
}

func newBackfillCommand(app func() *App) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "backfill [production-id]",
		Short: "Capture snapshots for productions recorded without one",
		Long: `backfill rebuilds a snapshot from the recipe as it is now and marks it
backfilled. A production that already has a snapshot is never overwritten.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if all || len(args) == 0 {
				snaps, err := a.Snapshots.BackfillAll(cmd.Context())
				if err != nil {
					return err
				}
				return a.Printer.Snapshots(snaps)
			}
			snap, err := a.Snapshots.Backfill(cmd.Context(), entities.ProductionID(args[0]))
			if err != nil {
				return err
			}
			return a.Printer.Snapshots([]*entities.RecipeSnapshot{snap})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "backfill every production missing a snapshot")
	return cmd
}
