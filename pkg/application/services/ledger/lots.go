package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/domain/repositories"
)

// NewLotInput describes an acquisition to record
type NewLotInput struct {
	ProductID    entities.ProductID
	IngredientID entities.IngredientID
	Quantity     decimal.Decimal
	Unit         entities.Unit // defaults to the ingredient's stock unit
	CostPerUnit  decimal.Decimal
	AcquiredAt   time.Time // defaults to now
}

// DepletionRequest removes stock that left without being used (spoilage,
// breakage, a stock count correction)
type DepletionRequest struct {
	IngredientID entities.IngredientID
	Quantity     decimal.Decimal
	Unit         entities.Unit
	Reason       string
}

// QueryAvailable sums remaining quantity across the ingredient's lots. Every
// open lot must already be in unit; nothing is converted. An empty unit
// means the ingredient's stock unit.
func (l *Ledger) QueryAvailable(ctx context.Context, tx repositories.Tx, ingredientID entities.IngredientID, unit entities.Unit) (decimal.Decimal, error) {
	ing, err := tx.GetIngredient(ctx, ingredientID)
	if err != nil {
		return decimal.Zero, err
	}
	unit = unit.Normalize()
	if unit == "" {
		unit = ing.StockUnit
	}

	lots, err := tx.ListOpenLots(ctx, ingredientID, false)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list lots for %s: %w", ingredientID, err)
	}

	total := decimal.Zero
	for _, lot := range lots {
		if lot.Unit != unit {
			return decimal.Zero, &entities.UnitIncompatibleError{IngredientID: ingredientID, From: lot.Unit, To: unit}
		}
		total = total.Add(lot.QuantityRemaining)
	}
	return total, nil
}

// ReceiveLot records an acquisition as a new lot
func (l *Ledger) ReceiveLot(ctx context.Context, tx repositories.Tx, in NewLotInput) (*entities.InventoryLot, error) {
	ing, err := tx.GetIngredient(ctx, in.IngredientID)
	if err != nil {
		return nil, err
	}
	unit := in.Unit
	if unit.Normalize() == "" {
		unit = ing.StockUnit
	}
	acquiredAt := in.AcquiredAt
	if acquiredAt.IsZero() {
		acquiredAt = l.now()
	}

	id, err := tx.NextLotID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate lot id: %w", err)
	}
	lot, err := entities.NewInventoryLot(id, in.ProductID, in.IngredientID, in.Quantity, unit, in.CostPerUnit, acquiredAt)
	if err != nil {
		return nil, err
	}
	if err := tx.InsertLot(ctx, lot); err != nil {
		return nil, fmt.Errorf("failed to insert lot %d: %w", id, err)
	}
	return lot, nil
}

// RecordDepletion consumes stock under a depletion event. Unlike Consume it
// must be fully satisfied; a shortfall fails the call so the enclosing
// transaction rolls back.
func (l *Ledger) RecordDepletion(ctx context.Context, tx repositories.Tx, req DepletionRequest) (*entities.ConsumptionResult, error) {
	result, err := l.Consume(ctx, tx, ConsumeRequest{
		IngredientID: req.IngredientID,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		Event:        entities.EventRef{Kind: entities.EventDepletion, ID: l.newID()},
	})
	if err != nil {
		return nil, err
	}
	if !result.Satisfied {
		return result, result.InsufficientError()
	}
	return result, nil
}

// InventoryValue is the remaining quantity of every open lot at its
// purchase cost
func (l *Ledger) InventoryValue(ctx context.Context, tx repositories.Tx, ingredientID entities.IngredientID) (decimal.Decimal, error) {
	if _, err := tx.GetIngredient(ctx, ingredientID); err != nil {
		return decimal.Zero, err
	}
	lots, err := tx.ListOpenLots(ctx, ingredientID, false)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list lots for %s: %w", ingredientID, err)
	}
	total := decimal.Zero
	for _, lot := range lots {
		total = total.Add(lot.Value())
	}
	return total, nil
}
