package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LotStatus represents where a lot is in its life
type LotStatus int

const (
	LotOpen LotStatus = iota
	LotDepleted
)

// String method for LotStatus enum
func (s LotStatus) String() string {
	switch s {
	case LotOpen:
		return "Open"
	case LotDepleted:
		return "Depleted"
	default:
		return "Unknown"
	}
}

// InventoryLot is one physical acquisition of an ingredient. Purchased
// quantity and cost are fixed at acquisition; only QuantityRemaining moves,
// and only downwards.
type InventoryLot struct {
	ID                LotID
	ProductID         ProductID
	IngredientID      IngredientID
	QuantityPurchased decimal.Decimal
	QuantityRemaining decimal.Decimal
	Unit              Unit
	CostPerUnit       decimal.Decimal
	AcquiredAt        time.Time
}

// NewInventoryLot creates a validated, untouched InventoryLot
func NewInventoryLot(
	id LotID,
	productID ProductID,
	ingredientID IngredientID,
	quantity decimal.Decimal,
	unit Unit,
	costPerUnit decimal.Decimal,
	acquiredAt time.Time,
) (*InventoryLot, error) {
	if id <= 0 {
		return nil, invalidf("lot id must be positive, got %d", id)
	}
	if string(ingredientID) == "" {
		return nil, invalidf("ingredient id cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, invalidf("purchased quantity must be positive, got %s", quantity)
	}
	if unit.Normalize() == "" {
		return nil, invalidf("unit cannot be empty")
	}
	if costPerUnit.IsNegative() {
		return nil, invalidf("cost per unit cannot be negative, got %s", costPerUnit)
	}
	if acquiredAt.IsZero() {
		return nil, invalidf("acquired at cannot be zero")
	}

	return &InventoryLot{
		ID:                id,
		ProductID:         productID,
		IngredientID:      ingredientID,
		QuantityPurchased: quantity,
		QuantityRemaining: quantity,
		Unit:              unit.Normalize(),
		CostPerUnit:       costPerUnit,
		AcquiredAt:        acquiredAt.UTC(),
	}, nil
}

// Status derives the lot status from its remaining quantity
func (l *InventoryLot) Status() LotStatus {
	if l.QuantityRemaining.IsPositive() {
		return LotOpen
	}
	return LotDepleted
}

// IsOpen reports whether the lot still has something to draw from
func (l *InventoryLot) IsOpen() bool {
	return l.Status() == LotOpen
}

// Drain removes quantity (in the lot's own unit) from the lot. It refuses
// to take the lot below zero.
func (l *InventoryLot) Drain(quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return invalidf("cannot drain negative quantity %s from lot %d", quantity, l.ID)
	}
	if quantity.GreaterThan(l.QuantityRemaining) {
		return fmt.Errorf("lot %d: drain %s exceeds remaining %s: %w",
			l.ID, quantity, l.QuantityRemaining, ErrInsufficientInventory)
	}
	l.QuantityRemaining = l.QuantityRemaining.Sub(quantity)
	return nil
}

// Validate checks 0 <= remaining <= purchased
func (l *InventoryLot) Validate() error {
	if l.QuantityRemaining.IsNegative() {
		return fmt.Errorf("lot %d has negative remaining quantity %s", l.ID, l.QuantityRemaining)
	}
	if l.QuantityRemaining.GreaterThan(l.QuantityPurchased) {
		return fmt.Errorf("lot %d remaining %s exceeds purchased %s", l.ID, l.QuantityRemaining, l.QuantityPurchased)
	}
	return nil
}

// Value is the remaining quantity at the locked-in purchase cost
func (l *InventoryLot) Value() decimal.Decimal {
	return l.QuantityRemaining.Mul(l.CostPerUnit)
}

// Clone returns an independent copy
func (l *InventoryLot) Clone() *InventoryLot {
	c := *l
	return &c
}

// FIFOLess orders lots oldest first, ties broken by lot id
func FIFOLess(a, b *InventoryLot) bool {
	if !a.AcquiredAt.Equal(b.AcquiredAt) {
		return a.AcquiredAt.Before(b.AcquiredAt)
	}
	return a.ID < b.ID
}

// EventKind is the kind of event that consumed inventory
type EventKind string

const (
	EventProduction EventKind = "production"
	EventAssembly   EventKind = "assembly"
	EventDepletion  EventKind = "depletion"
)

// EventRef points at the event a consumption belongs to
type EventRef struct {
	Kind EventKind
	ID   string
}

// String returns "kind:id"
func (r EventRef) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

// ConsumptionRecord links an event to one lot it drew from. It is written
// once, as a byproduct of a consumption, and never changed.
type ConsumptionRecord struct {
	ID                      ConsumptionID
	Event                   EventRef
	LotID                   LotID
	IngredientID            IngredientID
	QuantityConsumed        decimal.Decimal // in the lot's unit
	Unit                    Unit            // the lot's unit
	CostPerUnit             decimal.Decimal // inherited from the lot
	RequestedUnit           Unit
	QuantityInRequestedUnit decimal.Decimal
	ConsumedAt              time.Time
}

// Cost is the value drawn from the lot
func (r *ConsumptionRecord) Cost() decimal.Decimal {
	return r.QuantityConsumed.Mul(r.CostPerUnit)
}

// LotDraw is one line of a consumption breakdown
type LotDraw struct {
	LotID       LotID
	Quantity    decimal.Decimal // in the requested unit
	LotQuantity decimal.Decimal // in the lot's unit
	LotUnit     Unit
	CostPerUnit decimal.Decimal // per lot unit
	Cost        decimal.Decimal
}

// ConsumptionResult is the outcome of a consume call, real or dry run
type ConsumptionResult struct {
	Event        EventRef
	IngredientID IngredientID
	Unit         Unit
	Requested    decimal.Decimal
	Satisfied    bool
	Consumed     decimal.Decimal
	Shortfall    decimal.Decimal
	TotalCost    decimal.Decimal
	Breakdown    []LotDraw
	// Skipped lists open lots whose unit cannot be converted to Unit
	Skipped []LotID
	DryRun  bool
}

// InsufficientError converts an unsatisfied result into the error the
// production recorder surfaces
func (r *ConsumptionResult) InsufficientError() *InsufficientInventoryError {
	return &InsufficientInventoryError{
		IngredientID: r.IngredientID,
		Unit:         r.Unit,
		Required:     r.Requested,
		Available:    r.Consumed,
		Shortfall:    r.Shortfall,
	}
}
