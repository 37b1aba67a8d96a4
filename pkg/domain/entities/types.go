package entities

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// IngredientID identifies a raw ingredient in the catalog
type IngredientID string

// RecipeID identifies a recipe (base, variant or sub-recipe)
type RecipeID string

// FinishedUnitID identifies a yield definition, e.g. "12-pack"
type FinishedUnitID string

// ProductID identifies the purchased product a lot came from
type ProductID string

// LotID identifies an inventory lot. Lot ids are allocated in increasing
// order and break ties between lots acquired at the same instant.
type LotID int64

// String renders the lot id in decimal
func (id LotID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ProductionID identifies a production record
type ProductionID string

// ConsumptionID identifies a consumption record
type ConsumptionID string

// SnapshotID identifies a recipe snapshot
type SnapshotID string

const (
	// ReportPrecision is the number of fractional digits used when quantities
	// leave the core. Accumulation never rounds.
	ReportPrecision int32 = 3

	// CostPrecision is the number of fractional digits used for per-unit cost.
	CostPrecision int32 = 4

	// MaxNestingDepth is the longest allowed leaf-to-root chain of recipes,
	// counted in recipes (leaf -> sub-recipe -> sub-sub-recipe).
	MaxNestingDepth = 3
)

// RoundQuantity rounds a quantity for reporting
func RoundQuantity(q decimal.Decimal) decimal.Decimal {
	return q.Round(ReportPrecision)
}

// RoundCost rounds a per-unit cost for reporting
func RoundCost(c decimal.Decimal) decimal.Decimal {
	return c.Round(CostPrecision)
}
