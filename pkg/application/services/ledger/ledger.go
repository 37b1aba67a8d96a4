package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/codes"

	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/domain/repositories"
	"github.com/vsinha/batchledger/pkg/domain/services"
)

// ConsumeRequest asks for quantity of an ingredient in unit
type ConsumeRequest struct {
	IngredientID entities.IngredientID
	Quantity     decimal.Decimal
	Unit         entities.Unit
	DryRun       bool
	// Event is required for real consumptions; it is stamped on every
	// consumption record written
	Event entities.EventRef
	// Reserved, when set, holds lot quantities already promised by earlier
	// dry runs. They are treated as drawn, and a dry run adds its own draws.
	Reserved Reservations
}

// Reservations maps a lot to the quantity, in the lot's unit, set aside by
// dry runs. Sharing one across the dry runs of a check makes them see what
// the same real consumptions would see.
type Reservations map[entities.LotID]decimal.Decimal

func (r Reservations) reserve(draws []draw) {
	for _, d := range draws {
		r[d.lot.ID] = r[d.lot.ID].Add(d.lotQuantity)
	}
}

// Ledger implements FIFO lot consumption over a caller-supplied transaction
type Ledger struct {
	converter *services.UnitConverter
	now       func() time.Time
	newID     func() string
}

// New creates a ledger. A nil converter gets the built-in unit table.
func New(converter *services.UnitConverter) *Ledger {
	if converter == nil {
		converter = services.NewUnitConverter()
	}
	return &Ledger{
		converter: converter,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Converter returns the unit converter the ledger uses
func (l *Ledger) Converter() *services.UnitConverter {
	return l.converter
}

// draw is one planned lot drain
type draw struct {
	lot         *entities.InventoryLot
	lotQuantity decimal.Decimal // lot unit
	quantity    decimal.Decimal // requested unit
}

// Consume draws req.Quantity from the ingredient's open lots, oldest first.
// A dry run returns the same result a real call would, without writing.
// Running out of lots is reported in the result, not as an error.
func (l *Ledger) Consume(ctx context.Context, tx repositories.Tx, req ConsumeRequest) (*entities.ConsumptionResult, error) {
	ctx, span := startConsumeSpan(ctx, req)
	defer span.End()
	start := time.Now()

	if err := l.checkRequest(req); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if _, err := tx.GetIngredient(ctx, req.IngredientID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	lots, err := tx.ListOpenLots(ctx, req.IngredientID, !req.DryRun)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list lots for %s: %w", req.IngredientID, err)
	}

	result, draws := l.plan(req, lots)
	if req.DryRun && req.Reserved != nil {
		req.Reserved.reserve(draws)
	}
	if !req.DryRun {
		if err := l.apply(ctx, tx, req, draws); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	setConsumeSpanResult(span, result)
	recordConsumeMetrics(ctx, time.Since(start), result)
	return result, nil
}

func (l *Ledger) checkRequest(req ConsumeRequest) error {
	if req.IngredientID == "" {
		return entities.Invalidf("ingredient id cannot be empty")
	}
	if !req.Quantity.IsPositive() {
		return entities.Invalidf("quantity to consume must be positive, got %s", req.Quantity)
	}
	if req.Unit.Normalize() == "" {
		return entities.Invalidf("unit cannot be empty")
	}
	if !req.DryRun && (req.Event.Kind == "" || req.Event.ID == "") {
		return entities.Invalidf("consumption of %s needs an event reference", req.IngredientID)
	}
	return nil
}

// plan walks lots in the order given and decides how much to take from
// each. It is the only place consumption quantities and costs are computed;
// dry runs and real consumptions both use it.
func (l *Ledger) plan(req ConsumeRequest, lots []*entities.InventoryLot) (*entities.ConsumptionResult, []draw) {
	unit := req.Unit.Normalize()
	result := &entities.ConsumptionResult{
		Event:        req.Event,
		IngredientID: req.IngredientID,
		Unit:         unit,
		Requested:    req.Quantity,
		TotalCost:    decimal.Zero,
		DryRun:       req.DryRun,
	}

	var draws []draw
	outstanding := req.Quantity
	for _, lot := range lots {
		if !outstanding.IsPositive() {
			break
		}
		remaining := lot.QuantityRemaining.Sub(req.Reserved[lot.ID])
		if !remaining.IsPositive() {
			continue
		}
		available, err := l.converter.Convert(remaining, lot.Unit, unit)
		if err != nil {
			result.Skipped = append(result.Skipped, lot.ID)
			continue
		}
		if !available.IsPositive() {
			continue
		}

		d := draw{lot: lot}
		if available.LessThanOrEqual(outstanding) {
			d.quantity = available
			d.lotQuantity = remaining
		} else {
			d.quantity = outstanding
			// same dimension, so conversion back cannot fail
			d.lotQuantity, _ = l.converter.Convert(outstanding, unit, lot.Unit)
			if d.lotQuantity.GreaterThan(remaining) {
				d.lotQuantity = remaining
			}
		}
		outstanding = outstanding.Sub(d.quantity)
		draws = append(draws, d)

		cost := d.lotQuantity.Mul(lot.CostPerUnit)
		result.TotalCost = result.TotalCost.Add(cost)
		result.Breakdown = append(result.Breakdown, entities.LotDraw{
			LotID:       lot.ID,
			Quantity:    d.quantity,
			LotQuantity: d.lotQuantity,
			LotUnit:     lot.Unit,
			CostPerUnit: lot.CostPerUnit,
			Cost:        cost,
		})
	}

	result.Shortfall = decimal.Max(outstanding, decimal.Zero)
	result.Consumed = req.Quantity.Sub(result.Shortfall)
	result.Satisfied = result.Shortfall.IsZero()
	return result, draws
}

// apply writes planned draws: new remaining quantities and one consumption
// record per lot touched
func (l *Ledger) apply(ctx context.Context, tx repositories.Tx, req ConsumeRequest, draws []draw) error {
	consumedAt := l.now()
	for _, d := range draws {
		if err := d.lot.Drain(d.lotQuantity); err != nil {
			return err
		}
		if err := tx.UpdateLotRemaining(ctx, d.lot.ID, d.lot.QuantityRemaining); err != nil {
			return fmt.Errorf("failed to update lot %d: %w", d.lot.ID, err)
		}
		record := &entities.ConsumptionRecord{
			ID:                      entities.ConsumptionID(l.newID()),
			Event:                   req.Event,
			LotID:                   d.lot.ID,
			IngredientID:            req.IngredientID,
			QuantityConsumed:        d.lotQuantity,
			Unit:                    d.lot.Unit,
			CostPerUnit:             d.lot.CostPerUnit,
			RequestedUnit:           req.Unit.Normalize(),
			QuantityInRequestedUnit: d.quantity,
			ConsumedAt:              consumedAt,
		}
		if err := tx.InsertConsumption(ctx, record); err != nil {
			return fmt.Errorf("failed to record consumption from lot %d: %w", d.lot.ID, err)
		}
	}
	return nil
}
