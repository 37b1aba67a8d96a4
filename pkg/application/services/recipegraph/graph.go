package recipegraph

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/codes"

	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/domain/repositories"
	"github.com/vsinha/batchledger/pkg/domain/services"
)

// Graph implements component edits and ingredient aggregation over a
// caller-supplied transaction
type Graph struct {
	maxDepth int
}

// New creates a Graph enforcing entities.MaxNestingDepth
func New() *Graph {
	return &Graph{maxDepth: entities.MaxNestingDepth}
}

// NewWithDepth creates a Graph with a custom nesting limit
func NewWithDepth(maxDepth int) *Graph {
	return &Graph{maxDepth: maxDepth}
}

// AddComponent makes child a component of parent. The edge is checked for
// self-reference, duplicates, cycles and depth before anything is written.
func (g *Graph) AddComponent(
	ctx context.Context,
	tx repositories.Tx,
	parentID, childID entities.RecipeID,
	multiplier decimal.Decimal,
	sortOrder int,
) error {
	edge, err := entities.NewComponentEdge(parentID, childID, multiplier, sortOrder)
	if err != nil {
		return err
	}

	found, err := tx.GetRecipes(ctx, []entities.RecipeID{parentID, childID})
	if err != nil {
		return fmt.Errorf("failed to load recipes: %w", err)
	}
	for _, id := range []entities.RecipeID{parentID, childID} {
		if _, ok := found[id]; !ok {
			return entities.NewNotFound("recipe", id)
		}
	}

	graph, recipes, err := g.loadGraph(ctx, tx)
	if err != nil {
		return err
	}
	if err := g.validateEdge(graph, recipes, parentID, childID); err != nil {
		recordRejectedEdge(ctx, err)
		return err
	}

	if err := tx.AddComponent(ctx, *edge); err != nil {
		return fmt.Errorf("failed to add component %s to %s: %w", childID, parentID, err)
	}
	return nil
}

// validateEdge checks parent -> child, and the same edge as every variant of
// parent would inherit it
func (g *Graph) validateEdge(graph *services.RecipeGraph, recipes []*entities.Recipe, parentID, childID entities.RecipeID) error {
	if err := graph.ValidateEdge(parentID, childID, g.maxDepth); err != nil {
		return err
	}
	for _, r := range recipes {
		if r.BaseRecipeID != parentID || graph.HasEdge(r.ID, childID) {
			continue
		}
		if err := graph.ValidateEdge(r.ID, childID, g.maxDepth); err != nil {
			return err
		}
	}
	return nil
}

// RemoveComponent deletes the parent -> child edge
func (g *Graph) RemoveComponent(ctx context.Context, tx repositories.Tx, parentID, childID entities.RecipeID) error {
	return tx.RemoveComponent(ctx, parentID, childID)
}

// loadGraph builds the component graph from one read of edges and one read
// of recipes. A variant inherits its base's components, so those edges are
// added on the variant as well.
func (g *Graph) loadGraph(ctx context.Context, tx repositories.Tx) (*services.RecipeGraph, []*entities.Recipe, error) {
	edges, err := tx.ListComponentEdges(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list component edges: %w", err)
	}
	recipes, err := tx.ListRecipes(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list recipes: %w", err)
	}

	byParent := make(map[entities.RecipeID][]entities.ComponentEdge)
	for _, e := range edges {
		byParent[e.ParentID] = append(byParent[e.ParentID], e)
	}
	for _, r := range recipes {
		if !r.IsVariant() {
			continue
		}
		for _, inherited := range byParent[r.BaseRecipeID] {
			if r.HasComponent(inherited.ChildID) {
				continue
			}
			inherited.ParentID = r.ID
			edges = append(edges, inherited)
		}
	}
	return services.NewRecipeGraph(edges), recipes, nil
}

// GetAggregatedIngredients expands recipeID through all nested components
// and sums its ingredients for multiplier batches, keyed by ingredient and
// unit. A variant aggregates as its base plus its own lines.
func (g *Graph) GetAggregatedIngredients(
	ctx context.Context,
	tx repositories.Tx,
	recipeID entities.RecipeID,
	multiplier decimal.Decimal,
) ([]entities.AggregatedIngredient, error) {
	ctx, span := startAggregateSpan(ctx, "RecipeGraph.GetAggregatedIngredients", 1)
	defer span.End()

	if !multiplier.IsPositive() {
		return nil, entities.Invalidf("batch multiplier must be positive, got %s", multiplier)
	}

	recipes, err := loadCatalog(ctx, tx, []entities.RecipeID{recipeID})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	visitor := newAggregationVisitor()
	if _, err := newTraverser(recipes, g.maxDepth).Traverse(ctx, recipeID, multiplier, visitor); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := visitor.result()
	setAggregateSpanResult(span, len(recipes), len(result))
	return result, nil
}

// AggregateVariants aggregates several scheduled recipes at once. Batch
// counts of variants sharing a base are summed and the base is expanded
// once for the sum; each variant's own lines are expanded for its own
// count. Both results are merged by ingredient and unit.
func (g *Graph) AggregateVariants(
	ctx context.Context,
	tx repositories.Tx,
	batches []entities.VariantBatch,
) ([]entities.AggregatedIngredient, error) {
	ctx, span := startAggregateSpan(ctx, "RecipeGraph.AggregateVariants", len(batches))
	defer span.End()

	if len(batches) == 0 {
		return nil, entities.Invalidf("no recipes scheduled")
	}
	roots := make([]entities.RecipeID, 0, len(batches))
	for _, b := range batches {
		if !b.Batches.IsPositive() {
			return nil, entities.Invalidf("batch count for %s must be positive, got %s", b.RecipeID, b.Batches)
		}
		roots = append(roots, b.RecipeID)
	}

	recipes, err := loadCatalog(ctx, tx, roots)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	baseTotals := make(map[entities.RecipeID]decimal.Decimal)
	ownTotals := make(map[entities.RecipeID]decimal.Decimal)
	for _, b := range batches {
		recipe := recipes[b.RecipeID]
		if recipe.IsVariant() {
			base, ok := recipes[recipe.BaseRecipeID]
			if !ok || base.IsVariant() {
				return nil, &entities.StructuralError{
					Rule:     entities.RuleVariantChain,
					ParentID: recipe.ID,
					ChildID:  recipe.BaseRecipeID,
					Detail:   fmt.Sprintf("variant %s does not have a usable base %s", recipe.ID, recipe.BaseRecipeID),
				}
			}
			baseTotals[base.ID] = baseTotals[base.ID].Add(b.Batches)
			ownTotals[recipe.ID] = ownTotals[recipe.ID].Add(b.Batches)
			continue
		}
		baseTotals[recipe.ID] = baseTotals[recipe.ID].Add(b.Batches)
	}

	traverser := newTraverser(recipes, g.maxDepth)
	merged := newAggregationVisitor()

	for _, id := range sortedIDs(baseTotals) {
		v := newAggregationVisitor()
		if _, err := traverser.Traverse(ctx, id, baseTotals[id], v); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		merged.merge(v)
	}
	for _, id := range sortedIDs(ownTotals) {
		v := newAggregationVisitor()
		if _, err := traverser.TraverseOwn(ctx, id, ownTotals[id], v); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		merged.merge(v)
	}

	result := merged.result()
	setAggregateSpanResult(span, len(recipes), len(result))
	return result, nil
}

// Tree returns the expanded component tree of a recipe for multiplier batches
func (g *Graph) Tree(ctx context.Context, tx repositories.Tx, recipeID entities.RecipeID, multiplier decimal.Decimal) (*TreeNode, error) {
	if !multiplier.IsPositive() {
		return nil, entities.Invalidf("batch multiplier must be positive, got %s", multiplier)
	}
	recipes, err := loadCatalog(ctx, tx, []entities.RecipeID{recipeID})
	if err != nil {
		return nil, err
	}
	root, err := newTraverser(recipes, g.maxDepth).Traverse(ctx, recipeID, multiplier, treeVisitor{})
	if err != nil {
		return nil, err
	}
	return root.(*TreeNode), nil
}

// ValidateAll audits the stored structure: cycles, depth, duplicate edges,
// dangling components and broken variant bases
func (g *Graph) ValidateAll(ctx context.Context, tx repositories.Tx) (*services.GraphValidationResult, error) {
	graph, recipes, err := g.loadGraph(ctx, tx)
	if err != nil {
		return nil, err
	}
	result := graph.Validate(g.maxDepth)

	known := make(map[entities.RecipeID]*entities.Recipe, len(recipes))
	for _, r := range recipes {
		known[r.ID] = r
	}
	for _, r := range recipes {
		for _, c := range r.SortedComponents() {
			if _, ok := known[c.ChildID]; !ok {
				result.Errors = append(result.Errors, &entities.StructuralError{
					Rule:     entities.RuleMissingComponent,
					ParentID: r.ID,
					ChildID:  c.ChildID,
				})
			}
		}
		if !r.IsVariant() {
			continue
		}
		base, ok := known[r.BaseRecipeID]
		switch {
		case !ok:
			result.Errors = append(result.Errors, &entities.StructuralError{
				Rule:     entities.RuleVariantChain,
				ParentID: r.ID,
				ChildID:  r.BaseRecipeID,
				Detail:   fmt.Sprintf("variant %s refers to missing base %s", r.ID, r.BaseRecipeID),
			})
		case base.IsVariant():
			result.Errors = append(result.Errors, &entities.StructuralError{
				Rule:     entities.RuleVariantChain,
				ParentID: r.ID,
				ChildID:  base.ID,
				Detail:   fmt.Sprintf("variant %s is based on %s, which is itself a variant", r.ID, base.ID),
			})
		}
	}
	return result, nil
}

func sortedIDs(m map[entities.RecipeID]decimal.Decimal) []entities.RecipeID {
	ids := make([]entities.RecipeID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
