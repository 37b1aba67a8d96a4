package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/vsinha/batchledger/pkg/domain/repositories"
	"github.com/vsinha/batchledger/pkg/infrastructure/config"
	"github.com/vsinha/batchledger/pkg/interfaces/cli/output"
)

// Options configure the root command. Store, when set, is used instead of
// the configured driver and is not closed.
type Options struct {
	Out    io.Writer
	ErrOut io.Writer
	Store  repositories.Store
}

type globalFlags struct {
	configPath string
	driver     string
	dataPath   string
	dsn        string
	logLevel   string
	format     string
	catalogDir string
	trace      bool
}

// NewRootCommand builds the batchledger command tree
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.ErrOut == nil {
		opts.ErrOut = os.Stderr
	}

	var (
		flags globalFlags
		app   *App
	)

	root := &cobra.Command{
		Use:   "batchledger",
		Short: "FIFO ingredient inventory, recipe graphs and batch production costing",
		Long: `batchledger tracks ingredient lots first-in first-out, expands nested
recipes into ingredient lists and records batch production with its cost
and an immutable recipe snapshot.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, &flags, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			app, err = NewApp(cfg, opts.Store, opts.Out, opts.ErrOut, flags.format)
			if err != nil {
				return err
			}
			if flags.catalogDir != "" {
				if _, err := app.Catalog.LoadDir(cmd.Context(), flags.catalogDir); err != nil {
					return err
				}
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app == nil {
				return nil
			}
			return app.Close()
		},
	}
	root.SetOut(opts.Out)
	root.SetErr(opts.ErrOut)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&flags.driver, "store", "", "storage driver: memory, badger or mysql")
	pf.StringVar(&flags.dataPath, "data", "", "badger data directory")
	pf.StringVar(&flags.dsn, "dsn", "", "MySQL data source name")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level")
	pf.StringVarP(&flags.format, "format", "f", output.FormatText, "output format: text, json or csv")
	pf.StringVar(&flags.catalogDir, "catalog", "", "load a CSV catalog directory before running the command")
	pf.BoolVar(&flags.trace, "trace", false, "write OpenTelemetry spans to stderr")

	current := func() *App { return app }
	root.AddCommand(
		newLoadCommand(current),
		newInventoryCommand(current),
		newRecipeCommand(current),
		newProductionCommand(current),
		newSnapshotCommand(current),
		newGenerateCommand(),
	)
	return root
}

// applyFlags lets explicitly set flags override file and environment values
func applyFlags(cmd *cobra.Command, flags *globalFlags, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("store") {
		cfg.Store.Driver = flags.driver
	}
	if changed("data") {
		cfg.Store.Path = flags.dataPath
	}
	if changed("dsn") {
		cfg.Store.DSN = flags.dsn
	}
	if changed("log-level") {
		cfg.Log.Level = flags.logLevel
	}
	if changed("trace") {
		cfg.Trace = flags.trace
	}
}

func parseDecimal(name, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", name, s)
	}
	return d, nil
}
