package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vsinha/batchledger/pkg/application/services/recipegraph"
	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/domain/repositories"
	"github.com/vsinha/batchledger/pkg/infrastructure/events"
	"github.com/vsinha/batchledger/pkg/infrastructure/logging"
)

const moduleName = "snapshot"

// Service reads snapshots and backfills them for historical productions
type Service struct {
	store       repositories.Store
	snapshotter *Snapshotter
	graph       *recipegraph.Graph
	publisher   events.Publisher
	logger      logrus.FieldLogger
}

// NewService creates a snapshot service
func NewService(
	store repositories.Store,
	snapshotter *Snapshotter,
	graph *recipegraph.Graph,
	publisher events.Publisher,
	logger logrus.FieldLogger,
) *Service {
	if snapshotter == nil {
		snapshotter = New()
	}
	if graph == nil {
		graph = recipegraph.New()
	}
	if publisher == nil {
		publisher = events.Discard
	}
	return &Service{
		store:       store,
		snapshotter: snapshotter,
		graph:       graph,
		publisher:   publisher,
		logger:      logging.OrDiscard(logger).WithField("module", moduleName),
	}
}

// Get returns the snapshot of a production with its decoded payload. The
// checksum is verified before decoding.
func (s *Service) Get(ctx context.Context, productionID entities.ProductionID) (*entities.RecipeSnapshot, *entities.SnapshotPayload, error) {
	var snap *entities.RecipeSnapshot
	err := s.store.View(ctx, func(tx repositories.Tx) error {
		var err error
		snap, err = tx.GetSnapshot(ctx, productionID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	if err := Verify(snap); err != nil {
		logging.LogError(s.logger, moduleName, "Get", "verify snapshot", productionID, err)
		return nil, nil, err
	}
	payload, err := snap.Decode()
	if err != nil {
		return nil, nil, err
	}
	return snap, payload, nil
}

// List returns the snapshots of a recipe, oldest first
func (s *Service) List(ctx context.Context, recipeID entities.RecipeID) ([]*entities.RecipeSnapshot, error) {
	var out []*entities.RecipeSnapshot
	err := s.store.View(ctx, func(tx repositories.Tx) error {
		var err error
		out, err = tx.ListSnapshots(ctx, recipeID)
		return err
	})
	return out, err
}

// Verify checks a snapshot's payload against its checksum
func Verify(snap *entities.RecipeSnapshot) error {
	return snap.Verify()
}

// Backfill captures a snapshot for a production recorded without one,
// using the recipe as it is now. The snapshot is flagged as backfilled.
func (s *Service) Backfill(ctx context.Context, productionID entities.ProductionID) (*entities.RecipeSnapshot, error) {
	var snap *entities.RecipeSnapshot
	err := s.store.Update(ctx, func(tx repositories.Tx) error {
		var err error
		snap, err = s.backfill(ctx, tx, productionID)
		return err
	})
	if err != nil {
		logging.LogError(s.logger, moduleName, "Backfill", "backfill snapshot", productionID, err)
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"production": productionID,
		"recipe":     snap.RecipeID,
	}).Info("snapshot backfilled")
	s.publish(ctx, events.NewSnapshotCapturedEvent(snap))
	return snap, nil
}

// BackfillAll backfills every production that has no snapshot and returns
// the snapshots written. Productions whose recipe no longer exists are
// skipped and logged.
func (s *Service) BackfillAll(ctx context.Context) ([]*entities.RecipeSnapshot, error) {
	var pending []entities.ProductionID
	err := s.store.View(ctx, func(tx repositories.Tx) error {
		records, err := tx.ListProductions(ctx, "")
		if err != nil {
			return err
		}
		for _, rec := range records {
			_, err := tx.GetSnapshot(ctx, rec.ID)
			switch {
			case errors.Is(err, entities.ErrNotFound):
				pending = append(pending, rec.ID)
			case err != nil:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var written []*entities.RecipeSnapshot
	for _, id := range pending {
		snap, err := s.Backfill(ctx, id)
		if errors.Is(err, entities.ErrNotFound) {
			s.logger.WithField("production", id).WithError(err).Warn("cannot backfill snapshot")
			continue
		}
		if err != nil {
			return written, err
		}
		written = append(written, snap)
	}
	return written, nil
}

func (s *Service) backfill(ctx context.Context, tx repositories.Tx, productionID entities.ProductionID) (*entities.RecipeSnapshot, error) {
	record, err := tx.GetProduction(ctx, productionID)
	if err != nil {
		return nil, err
	}
	if _, err := tx.GetSnapshot(ctx, productionID); err == nil {
		return nil, entities.NewSnapshotExists(productionID)
	} else if !errors.Is(err, entities.ErrNotFound) {
		return nil, err
	}

	recipe, err := tx.GetRecipe(ctx, record.RecipeID)
	if err != nil {
		return nil, fmt.Errorf("recipe of production %s: %w", productionID, err)
	}
	ingredients, err := s.graph.GetAggregatedIngredients(ctx, tx, record.RecipeID, record.NumBatches)
	if err != nil {
		return nil, err
	}
	return s.snapshotter.Capture(ctx, tx, CaptureInput{
		Recipe:       recipe,
		ScaleFactor:  record.NumBatches,
		ProductionID: productionID,
		Ingredients:  ingredients,
		Backfilled:   true,
	})
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("event", event.Type()).Warn("failed to publish event")
	}
}
