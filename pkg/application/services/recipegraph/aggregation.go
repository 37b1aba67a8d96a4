package recipegraph

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

// aggregationVisitor sums ingredient lines scaled by each node's cumulative
// batch count. Nothing is rounded here.
type aggregationVisitor struct {
	totals map[entities.IngredientKey]*entities.AggregatedIngredient
}

func newAggregationVisitor() *aggregationVisitor {
	return &aggregationVisitor{totals: make(map[entities.IngredientKey]*entities.AggregatedIngredient)}
}

func (v *aggregationVisitor) VisitNode(ctx context.Context, node NodeContext) (any, bool, error) {
	for _, line := range node.Ingredients {
		v.add(line, node.Batches, node.Path)
	}
	return nil, true, nil
}

func (v *aggregationVisitor) ProcessChildren(ctx context.Context, node NodeContext, nodeData any, childResults []any) (any, error) {
	return nil, nil
}

func (v *aggregationVisitor) add(line NodeIngredient, batches decimal.Decimal, path []entities.RecipeID) {
	key := entities.IngredientKey{IngredientID: line.IngredientID, Unit: line.Unit.Normalize()}
	agg, ok := v.totals[key]
	if !ok {
		agg = &entities.AggregatedIngredient{IngredientID: key.IngredientID, Unit: key.Unit, Quantity: decimal.Zero}
		v.totals[key] = agg
	}
	qty := line.Quantity.Mul(batches)
	agg.Quantity = agg.Quantity.Add(qty)
	agg.Sources = append(agg.Sources, entities.IngredientSource{
		RecipeID: line.SourceID,
		Path:     append([]entities.RecipeID(nil), path...),
		Quantity: qty,
	})
}

// merge folds another visitor's totals into v
func (v *aggregationVisitor) merge(other *aggregationVisitor) {
	for key, agg := range other.totals {
		mine, ok := v.totals[key]
		if !ok {
			c := *agg
			c.Sources = append([]entities.IngredientSource(nil), agg.Sources...)
			v.totals[key] = &c
			continue
		}
		mine.Quantity = mine.Quantity.Add(agg.Quantity)
		mine.Sources = append(mine.Sources, agg.Sources...)
	}
}

// result returns the totals ordered by ingredient, then unit
func (v *aggregationVisitor) result() []entities.AggregatedIngredient {
	out := make([]entities.AggregatedIngredient, 0, len(v.totals))
	for _, agg := range v.totals {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IngredientID != out[j].IngredientID {
			return out[i].IngredientID < out[j].IngredientID
		}
		return out[i].Unit < out[j].Unit
	})
	return out
}
