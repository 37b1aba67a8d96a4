package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// IngredientKey is the aggregation key: the same ingredient in two units
// stays as two entries
type IngredientKey struct {
	IngredientID IngredientID
	Unit         Unit
}

// String returns "ingredient|unit"
func (k IngredientKey) String() string {
	return fmt.Sprintf("%s|%s", k.IngredientID, k.Unit)
}

// IngredientSource records how much one recipe on one path contributed
type IngredientSource struct {
	RecipeID RecipeID
	Path     []RecipeID // root first, RecipeID last
	Quantity decimal.Decimal
}

// AggregatedIngredient is a computed total for one (ingredient, unit) pair.
// It is never persisted and never cached across recipe edits.
type AggregatedIngredient struct {
	IngredientID IngredientID
	Unit         Unit
	Quantity     decimal.Decimal
	Sources      []IngredientSource
}

// Key returns the aggregation key
func (a AggregatedIngredient) Key() IngredientKey {
	return IngredientKey{IngredientID: a.IngredientID, Unit: a.Unit}
}

// ReportedQuantity is the quantity rounded for display and hand-off
func (a AggregatedIngredient) ReportedQuantity() decimal.Decimal {
	return RoundQuantity(a.Quantity)
}

// VariantBatch schedules a number of batches of one recipe (usually a variant)
type VariantBatch struct {
	RecipeID RecipeID
	Batches  decimal.Decimal
}
