package production

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"

	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/domain/repositories"
	"github.com/vsinha/batchledger/pkg/infrastructure/events"
	"github.com/vsinha/batchledger/pkg/infrastructure/logging"
)

const moduleName = "production"

// Service records production events, each in its own transaction
type Service struct {
	store     repositories.Store
	recorder  *Recorder
	publisher events.Publisher
	logger    logrus.FieldLogger
}

// Production is a stored production record with its snapshot, if any
type Production struct {
	Record   *entities.ProductionRecord
	Snapshot *entities.RecipeSnapshot
}

// NewService creates a production service
func NewService(store repositories.Store, recorder *Recorder, publisher events.Publisher, logger logrus.FieldLogger) *Service {
	if recorder == nil {
		recorder = NewRecorder(nil, nil, nil)
	}
	if publisher == nil {
		publisher = events.Discard
	}
	return &Service{
		store:     store,
		recorder:  recorder,
		publisher: publisher,
		logger:    logging.OrDiscard(logger).WithField("module", moduleName),
	}
}

// RecordProduction consumes the expanded ingredients of a production, stores
// the record and its snapshot, and credits the finished unit. Either all of
// it commits or none of it does.
func (s *Service) RecordProduction(ctx context.Context, req RecordRequest) (*entities.ProductionResult, error) {
	ctx, span := startRecordSpan(ctx, req)
	defer span.End()

	var result *entities.ProductionResult
	err := s.store.Update(ctx, func(tx repositories.Tx) error {
		var err error
		result, err = s.recorder.Record(ctx, tx, req)
		return err
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		recordOutcome(ctx, req.RecipeID, outcomeOf(err), nil)
		logging.LogError(s.logger, moduleName, "RecordProduction", "record production", req.RecipeID, err)
		return nil, err
	}

	record := result.Record
	recordOutcome(ctx, req.RecipeID, "recorded", &record)
	entry := s.logger.WithFields(logrus.Fields{
		"production":    record.ID,
		"recipe":        record.RecipeID,
		"batches":       record.NumBatches.String(),
		"yield":         record.ActualYield.String(),
		"cost":          record.IngredientCost.StringFixed(entities.CostPrecision),
		"per_unit_cost": record.PerUnitCost.StringFixed(entities.CostPrecision),
	})
	if record.IsLoss() {
		entry.Warn("production recorded with zero yield")
	} else {
		entry.Info("production recorded")
	}

	for i := range result.Consumptions {
		s.publish(ctx, events.NewInventoryConsumedEvent(&result.Consumptions[i]))
	}
	s.publish(ctx, events.NewProductionRecordedEvent(&record))
	s.publish(ctx, events.NewSnapshotCapturedEvent(result.Snapshot))
	return result, nil
}

// CheckCanProduce reports, per ingredient, whether numBatches of a recipe
// could be produced right now. Nothing is written.
func (s *Service) CheckCanProduce(ctx context.Context, recipeID entities.RecipeID, numBatches decimal.Decimal) (*entities.AvailabilityReport, error) {
	var report *entities.AvailabilityReport
	err := s.store.View(ctx, func(tx repositories.Tx) error {
		var err error
		report, err = s.recorder.CheckCanProduce(ctx, tx, recipeID, numBatches)
		return err
	})
	if err != nil {
		logging.LogError(s.logger, moduleName, "CheckCanProduce", "availability check", recipeID, err)
		return nil, err
	}
	return report, nil
}

// GetProduction returns a production record with its snapshot
func (s *Service) GetProduction(ctx context.Context, id entities.ProductionID) (*Production, error) {
	var out *Production
	err := s.store.View(ctx, func(tx repositories.Tx) error {
		var err error
		out, err = loadProduction(ctx, tx, id)
		return err
	})
	return out, err
}

// ListProductions returns the productions of a recipe, or of all recipes when
// recipeID is empty, oldest first
func (s *Service) ListProductions(ctx context.Context, recipeID entities.RecipeID) ([]*Production, error) {
	var out []*Production
	err := s.store.View(ctx, func(tx repositories.Tx) error {
		records, err := tx.ListProductions(ctx, recipeID)
		if err != nil {
			return err
		}
		for _, rec := range records {
			p, err := withSnapshot(ctx, tx, rec)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return nil
	})
	return out, err
}

// ConsumptionsOf returns the lot draws behind a production
func (s *Service) ConsumptionsOf(ctx context.Context, id entities.ProductionID) ([]*entities.ConsumptionRecord, error) {
	var out []*entities.ConsumptionRecord
	err := s.store.View(ctx, func(tx repositories.Tx) error {
		var err error
		out, err = tx.ListConsumptions(ctx, entities.EventRef{Kind: entities.EventProduction, ID: string(id)})
		return err
	})
	return out, err
}

func loadProduction(ctx context.Context, tx repositories.Tx, id entities.ProductionID) (*Production, error) {
	rec, err := tx.GetProduction(ctx, id)
	if err != nil {
		return nil, err
	}
	return withSnapshot(ctx, tx, rec)
}

// withSnapshot attaches the snapshot of rec. Productions recorded before
// snapshots existed have none until backfilled.
func withSnapshot(ctx context.Context, tx repositories.Tx, rec *entities.ProductionRecord) (*Production, error) {
	snap, err := tx.GetSnapshot(ctx, rec.ID)
	if err != nil && !errors.Is(err, entities.ErrNotFound) {
		return nil, err
	}
	return &Production{Record: rec, Snapshot: snap}, nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, entities.ErrInsufficientInventory):
		return "insufficient"
	case errors.Is(err, entities.ErrStructural):
		return "structural"
	case errors.Is(err, entities.ErrNotFound):
		return "not_found"
	case errors.Is(err, entities.ErrInvalidArgument):
		return "invalid"
	}
	return "error"
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("event", event.Type()).Warn("failed to publish event")
	}
}
