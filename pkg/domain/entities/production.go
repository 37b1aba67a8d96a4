package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductionRecord is the persisted fact "N batches of recipe R produced on
// date D, yielding Y units, at ingredient cost C"
type ProductionRecord struct {
	ID             ProductionID
	RecipeID       RecipeID
	FinishedUnitID FinishedUnitID
	NumBatches     decimal.Decimal
	ExpectedYield  decimal.Decimal
	ActualYield    decimal.Decimal
	IngredientCost decimal.Decimal
	PerUnitCost    decimal.Decimal
	Notes          string
	ProducedAt     time.Time
}

// Event returns the consumption event reference for this production
func (p *ProductionRecord) Event() EventRef {
	return EventRef{Kind: EventProduction, ID: string(p.ID)}
}

// YieldVariance is actual minus expected yield
func (p *ProductionRecord) YieldVariance() decimal.Decimal {
	return p.ActualYield.Sub(p.ExpectedYield)
}

// IsLoss reports a fully failed batch: cost was incurred, nothing came out
func (p *ProductionRecord) IsLoss() bool {
	return p.ActualYield.IsZero()
}

// PerUnitCostFor divides cost over yield. A zero yield gives a zero per-unit
// cost; the cost itself is still a recorded loss.
func PerUnitCostFor(totalCost, actualYield decimal.Decimal) decimal.Decimal {
	if !actualYield.IsPositive() {
		return decimal.Zero
	}
	return totalCost.Div(actualYield)
}

// ProductionResult summarises a recorded production
type ProductionResult struct {
	Record       ProductionRecord
	Consumptions []ConsumptionResult
	Snapshot     *RecipeSnapshot
}

// IngredientAvailability is one line of a dry-run availability check
type IngredientAvailability struct {
	IngredientID  IngredientID
	Unit          Unit
	Required      decimal.Decimal
	Available     decimal.Decimal
	Shortfall     decimal.Decimal
	Satisfied     bool
	EstimatedCost decimal.Decimal
}

// AvailabilityReport is the answer to "can we produce N batches right now"
type AvailabilityReport struct {
	RecipeID      RecipeID
	NumBatches    decimal.Decimal
	CanProduce    bool
	EstimatedCost decimal.Decimal
	Ingredients   []IngredientAvailability
}

// Shortages returns only the unsatisfied lines
func (r *AvailabilityReport) Shortages() []IngredientAvailability {
	var out []IngredientAvailability
	for _, line := range r.Ingredients {
		if !line.Satisfied {
			out = append(out, line)
		}
	}
	return out
}
