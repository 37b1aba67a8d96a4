package catalog

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vsinha/batchledger/pkg/application/services/ledger"
	"github.com/vsinha/batchledger/pkg/application/services/recipegraph"
	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/domain/repositories"
	"github.com/vsinha/batchledger/pkg/infrastructure/events"
	"github.com/vsinha/batchledger/pkg/infrastructure/logging"
	csvrepo "github.com/vsinha/batchledger/pkg/infrastructure/repositories/csv"
)

const moduleName = "catalog"

// Summary counts what an import wrote
type Summary struct {
	Ingredients   int
	Recipes       int
	Components    int
	FinishedUnits int
	Lots          []*entities.InventoryLot
}

// Importer writes a loaded catalog into a store in one transaction
type Importer struct {
	store     repositories.Store
	graph     *recipegraph.Graph
	ledger    *ledger.Ledger
	publisher events.Publisher
	logger    logrus.FieldLogger
}

// NewImporter creates an importer. Nil graph, ledger, publisher and logger
// get defaults.
func NewImporter(store repositories.Store, graph *recipegraph.Graph, l *ledger.Ledger, publisher events.Publisher, logger logrus.FieldLogger) *Importer {
	if graph == nil {
		graph = recipegraph.New()
	}
	if l == nil {
		l = ledger.New(nil)
	}
	if publisher == nil {
		publisher = events.Discard
	}
	return &Importer{
		store:     store,
		graph:     graph,
		ledger:    l,
		publisher: publisher,
		logger:    logging.OrDiscard(logger).WithField("module", moduleName),
	}
}

// LoadDir reads a catalog directory and imports it
func (i *Importer) LoadDir(ctx context.Context, dir string) (*Summary, error) {
	cat, err := csvrepo.NewLoader().LoadCatalog(ctx, dir)
	if err != nil {
		logging.LogError(i.logger, moduleName, "LoadDir", "load catalog", dir, err)
		return nil, err
	}
	return i.Import(ctx, cat)
}

// Import saves ingredients, recipes and finished units, then adds component
// edges through the graph so each one is validated, then receives the
// opening lots. Any failure rolls the whole import back.
func (i *Importer) Import(ctx context.Context, cat *csvrepo.Catalog) (*Summary, error) {
	summary := &Summary{}
	err := i.store.Update(ctx, func(tx repositories.Tx) error {
		summary = &Summary{}
		for _, ing := range cat.Ingredients {
			if err := tx.SaveIngredient(ctx, ing); err != nil {
				return fmt.Errorf("failed to save ingredient %s: %w", ing.ID, err)
			}
			summary.Ingredients++
		}
		for _, recipe := range cat.Recipes {
			if err := tx.SaveRecipe(ctx, recipe); err != nil {
				return fmt.Errorf("failed to save recipe %s: %w", recipe.ID, err)
			}
			summary.Recipes++
		}
		for _, fu := range cat.FinishedUnits {
			if err := tx.SaveFinishedUnit(ctx, fu); err != nil {
				return fmt.Errorf("failed to save finished unit %s: %w", fu.ID, err)
			}
			summary.FinishedUnits++
		}
		for _, edge := range cat.Components {
			if err := i.graph.AddComponent(ctx, tx, edge.ParentID, edge.ChildID, edge.Multiplier, edge.SortOrder); err != nil {
				return err
			}
			summary.Components++
		}
		for _, row := range cat.Lots {
			lot, err := i.ledger.ReceiveLot(ctx, tx, ledger.NewLotInput{
				ProductID:    row.ProductID,
				IngredientID: row.IngredientID,
				Quantity:     row.Quantity,
				Unit:         row.Unit,
				CostPerUnit:  row.CostPerUnit,
				AcquiredAt:   row.AcquiredAt,
			})
			if err != nil {
				return err
			}
			summary.Lots = append(summary.Lots, lot)
		}
		return nil
	})
	if err != nil {
		logging.LogError(i.logger, moduleName, "Import", "import catalog", nil, err)
		return nil, err
	}

	i.logger.WithFields(logrus.Fields{
		"ingredients":    summary.Ingredients,
		"recipes":        summary.Recipes,
		"components":     summary.Components,
		"finished_units": summary.FinishedUnits,
		"lots":           len(summary.Lots),
	}).Info("catalog imported")

	for _, lot := range summary.Lots {
		if err := i.publisher.Publish(ctx, events.NewLotReceivedEvent(lot)); err != nil {
			i.logger.WithError(err).WithField("lot", lot.ID).Warn("failed to publish event")
		}
	}
	return summary, nil
}
