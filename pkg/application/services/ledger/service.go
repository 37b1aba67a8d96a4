package ledger

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/domain/repositories"
	"github.com/vsinha/batchledger/pkg/infrastructure/events"
	"github.com/vsinha/batchledger/pkg/infrastructure/logging"
)

const moduleName = "ledger"

// Service runs each ledger operation in its own transaction and publishes
// events after commit
type Service struct {
	store     repositories.Store
	ledger    *Ledger
	publisher events.Publisher
	logger    logrus.FieldLogger
}

// NewService creates a ledger service. Nil publisher and logger are allowed.
func NewService(store repositories.Store, ledger *Ledger, publisher events.Publisher, logger logrus.FieldLogger) *Service {
	if ledger == nil {
		ledger = New(nil)
	}
	if publisher == nil {
		publisher = events.Discard
	}
	return &Service{
		store:     store,
		ledger:    ledger,
		publisher: publisher,
		logger:    logging.OrDiscard(logger).WithField("module", moduleName),
	}
}

// Ledger returns the transaction-scoped ledger the service wraps
func (s *Service) Ledger() *Ledger {
	return s.ledger
}

// QueryAvailable sums remaining quantity of an ingredient in unit
func (s *Service) QueryAvailable(ctx context.Context, ingredientID entities.IngredientID, unit entities.Unit) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.store.View(ctx, func(tx repositories.Tx) error {
		var err error
		total, err = s.ledger.QueryAvailable(ctx, tx, ingredientID, unit)
		return err
	})
	return total, err
}

// Consume runs a consumption. Dry runs use a read-only transaction. A real
// consumption commits whatever it could draw, even when short; callers that
// need all-or-nothing use Ledger.Consume inside their own transaction.
func (s *Service) Consume(ctx context.Context, req ConsumeRequest) (*entities.ConsumptionResult, error) {
	var result *entities.ConsumptionResult
	run := func(tx repositories.Tx) error {
		var err error
		result, err = s.ledger.Consume(ctx, tx, req)
		return err
	}

	var err error
	if req.DryRun {
		err = s.store.View(ctx, run)
	} else {
		err = s.store.Update(ctx, run)
	}
	if err != nil {
		logging.LogError(s.logger, moduleName, "Consume", "consume ingredient", req.IngredientID, err)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"ingredient": req.IngredientID,
		"requested":  req.Quantity.String(),
		"unit":       result.Unit,
		"satisfied":  result.Satisfied,
		"dry_run":    req.DryRun,
		"cost":       result.TotalCost.StringFixed(entities.CostPrecision),
	}).Debug("consumption planned")

	if !req.DryRun {
		s.publish(ctx, events.NewInventoryConsumedEvent(result))
	}
	return result, nil
}

// ReceiveLot records an acquisition
func (s *Service) ReceiveLot(ctx context.Context, in NewLotInput) (*entities.InventoryLot, error) {
	var lot *entities.InventoryLot
	err := s.store.Update(ctx, func(tx repositories.Tx) error {
		var err error
		lot, err = s.ledger.ReceiveLot(ctx, tx, in)
		return err
	})
	if err != nil {
		logging.LogError(s.logger, moduleName, "ReceiveLot", "receive lot", in.IngredientID, err)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"lot":        lot.ID,
		"ingredient": lot.IngredientID,
		"quantity":   lot.QuantityPurchased.String(),
		"unit":       lot.Unit,
	}).Info("lot received")
	s.publish(ctx, events.NewLotReceivedEvent(lot))
	return lot, nil
}

// RecordDepletion removes stock that was lost; it fails without writing
// anything if the lots cannot cover the quantity
func (s *Service) RecordDepletion(ctx context.Context, req DepletionRequest) (*entities.ConsumptionResult, error) {
	var result *entities.ConsumptionResult
	err := s.store.Update(ctx, func(tx repositories.Tx) error {
		var err error
		result, err = s.ledger.RecordDepletion(ctx, tx, req)
		return err
	})
	if err != nil {
		logging.LogError(s.logger, moduleName, "RecordDepletion", req.Reason, req.IngredientID, err)
		return result, err
	}

	s.logger.WithFields(logrus.Fields{
		"ingredient": req.IngredientID,
		"quantity":   req.Quantity.String(),
		"reason":     req.Reason,
	}).Info("depletion recorded")
	s.publish(ctx, events.NewInventoryConsumedEvent(result))
	return result, nil
}

// InventoryValue values an ingredient's open lots at purchase cost
func (s *Service) InventoryValue(ctx context.Context, ingredientID entities.IngredientID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.store.View(ctx, func(tx repositories.Tx) error {
		var err error
		total, err = s.ledger.InventoryValue(ctx, tx, ingredientID)
		return err
	})
	return total, err
}

// ListLots returns every lot of an ingredient, oldest first
func (s *Service) ListLots(ctx context.Context, ingredientID entities.IngredientID) ([]*entities.InventoryLot, error) {
	var lots []*entities.InventoryLot
	err := s.store.View(ctx, func(tx repositories.Tx) error {
		if _, err := tx.GetIngredient(ctx, ingredientID); err != nil {
			return err
		}
		var err error
		lots, err = tx.ListLots(ctx, ingredientID)
		return err
	})
	return lots, err
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("event", event.Type()).Warn("failed to publish event")
	}
}
