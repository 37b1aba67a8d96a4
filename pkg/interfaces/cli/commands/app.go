package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vsinha/batchledger/pkg/application/services/catalog"
	"github.com/vsinha/batchledger/pkg/application/services/ledger"
	"github.com/vsinha/batchledger/pkg/application/services/production"
	"github.com/vsinha/batchledger/pkg/application/services/recipegraph"
	"github.com/vsinha/batchledger/pkg/application/services/snapshot"
	"github.com/vsinha/batchledger/pkg/domain/repositories"
	"github.com/vsinha/batchledger/pkg/infrastructure/config"
	"github.com/vsinha/batchledger/pkg/infrastructure/events"
	"github.com/vsinha/batchledger/pkg/infrastructure/logging"
	"github.com/vsinha/batchledger/pkg/infrastructure/repositories/badger"
	"github.com/vsinha/batchledger/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/batchledger/pkg/infrastructure/repositories/sqlstore"
	"github.com/vsinha/batchledger/pkg/infrastructure/telemetry"
	"github.com/vsinha/batchledger/pkg/interfaces/cli/output"
)

// App holds the services one CLI invocation works with
type App struct {
	Config  *config.Config
	Logger  *logrus.Logger
	Store   repositories.Store
	Events  *events.InMemoryEventStore
	Printer *output.Printer

	Ledger      *ledger.Service
	Recipes     *recipegraph.Service
	Productions *production.Service
	Snapshots   *snapshot.Service
	Catalog     *catalog.Importer

	ownsStore bool
	shutdown  telemetry.ShutdownFunc
}

// NewApp wires services over store. When store is nil one is opened from
// cfg.Store and closed by Close.
func NewApp(cfg *config.Config, store repositories.Store, out, errOut io.Writer, format string) (*App, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, errOut)
	if err != nil {
		return nil, err
	}
	printer, err := output.NewPrinter(format, out)
	if err != nil {
		return nil, err
	}
	shutdown, err := telemetry.Setup(cfg.Trace, errOut)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Printer:  printer,
		shutdown: shutdown,
	}
	if app.Store == nil {
		app.Store, err = openStore(cfg.Store, logger)
		if err != nil {
			_ = shutdown(context.Background())
			return nil, err
		}
		app.ownsStore = true
	}

	app.Events = events.NewInMemoryEventStore(logger)
	published := []string{
		events.LotReceivedEvent,
		events.InventoryConsumedEvent,
		events.ProductionRecordedEvent,
		events.SnapshotCapturedEvent,
	}
	if err := app.Events.Subscribe(published, &events.HandlerFunc{
		Types: published,
		Fn: func(ctx context.Context, event events.Event) error {
			logger.WithFields(logrus.Fields{
				"event":  event.Type(),
				"stream": event.StreamID(),
			}).Debug("event published")
			return nil
		},
	}); err != nil {
		app.Close()
		return nil, err
	}

	graph := recipegraph.New()
	l := ledger.New(nil)
	snapshotter := snapshot.New()

	app.Ledger = ledger.NewService(app.Store, l, app.Events, logger)
	app.Recipes = recipegraph.NewService(app.Store, graph, logger)
	app.Productions = production.NewService(app.Store, production.NewRecorder(graph, l, snapshotter), app.Events, logger)
	app.Snapshots = snapshot.NewService(app.Store, snapshotter, graph, app.Events, logger)
	app.Catalog = catalog.NewImporter(app.Store, graph, l, app.Events, logger)
	return app, nil
}

// Close releases the store if the app opened it and flushes traces
func (a *App) Close() error {
	var firstErr error
	if a.ownsStore {
		firstErr = a.Store.Close()
	}
	if err := a.shutdown(context.Background()); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func openStore(cfg config.StoreConfig, logger logrus.FieldLogger) (repositories.Store, error) {
	switch cfg.Driver {
	case "memory":
		return memory.NewStore(), nil
	case "badger":
		bcfg := badger.DefaultConfig(cfg.Path)
		bcfg.Logger = logger
		store, err := badger.Open(bcfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "mysql":
		store, err := sqlstore.Open(sqlstore.Config{
			DSN:             cfg.DSN,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeSeconds) * time.Second,
			Logger:          logger,
		})
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(context.Background()); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
