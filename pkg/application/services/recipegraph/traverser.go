package recipegraph

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/domain/repositories"
)

// NodeIngredient is an ingredient line as seen at one node, tagged with the
// recipe that declares it (the node itself or, for a variant, its base)
type NodeIngredient struct {
	entities.RecipeIngredient
	SourceID entities.RecipeID
}

// NodeContext provides context information during recipe traversal
type NodeContext struct {
	RecipeID    entities.RecipeID
	Recipe      *entities.Recipe
	Batches     decimal.Decimal // cumulative multiplier from the root
	Path        []entities.RecipeID
	Level       int // root is 1
	Ingredients []NodeIngredient
}

// NodeVisitor defines the interface for processing nodes during traversal
type NodeVisitor interface {
	// VisitNode is called for each node before its components. Returning
	// false skips the components.
	VisitNode(ctx context.Context, node NodeContext) (any, bool, error)

	// ProcessChildren is called after all components were traversed, with
	// the data from VisitNode and the results of each component
	ProcessChildren(ctx context.Context, node NodeContext, nodeData any, childResults []any) (any, error)
}

// catalog is the set of recipes one traversal may touch, loaded up front
type catalog map[entities.RecipeID]*entities.Recipe

// loadCatalog reads every recipe reachable from roots, one batched read per
// level. Components that do not exist are left out; the traversal reports
// them with their parent.
func loadCatalog(ctx context.Context, tx repositories.Tx, roots []entities.RecipeID) (catalog, error) {
	cat := make(catalog)
	requested := make(map[entities.RecipeID]bool)
	frontier := make([]entities.RecipeID, 0, len(roots))
	for _, id := range roots {
		if !requested[id] {
			requested[id] = true
			frontier = append(frontier, id)
		}
	}

	for len(frontier) > 0 {
		found, err := tx.GetRecipes(ctx, frontier)
		if err != nil {
			return nil, fmt.Errorf("failed to load recipes: %w", err)
		}
		var next []entities.RecipeID
		for _, id := range frontier {
			recipe, ok := found[id]
			if !ok {
				continue
			}
			cat[id] = recipe
			refs := make([]entities.RecipeID, 0, len(recipe.Components)+1)
			if recipe.IsVariant() {
				refs = append(refs, recipe.BaseRecipeID)
			}
			for _, c := range recipe.Components {
				refs = append(refs, c.ChildID)
			}
			for _, ref := range refs {
				if !requested[ref] {
					requested[ref] = true
					next = append(next, ref)
				}
			}
		}
		frontier = next
	}

	for _, id := range roots {
		if _, ok := cat[id]; !ok {
			return nil, entities.NewNotFound("recipe", id)
		}
	}
	return cat, nil
}

// Traverser walks a recipe's component tree depth-first over a loaded
// catalog. A variant node expands to its base's lines and components plus
// its own.
type Traverser struct {
	recipes  catalog
	maxDepth int
}

func newTraverser(recipes catalog, maxDepth int) *Traverser {
	return &Traverser{recipes: recipes, maxDepth: maxDepth}
}

// Traverse visits rootID scaled by batches
func (t *Traverser) Traverse(ctx context.Context, rootID entities.RecipeID, batches decimal.Decimal, visitor NodeVisitor) (any, error) {
	return t.walk(ctx, rootID, batches, nil, true, visitor)
}

// TraverseOwn visits rootID without expanding its variant base at the root.
// Components are still expanded in full.
func (t *Traverser) TraverseOwn(ctx context.Context, rootID entities.RecipeID, batches decimal.Decimal, visitor NodeVisitor) (any, error) {
	return t.walk(ctx, rootID, batches, nil, false, visitor)
}

func (t *Traverser) walk(
	ctx context.Context,
	id entities.RecipeID,
	batches decimal.Decimal,
	parentPath []entities.RecipeID,
	expandBase bool,
	visitor NodeVisitor,
) (any, error) {
	path := append(append([]entities.RecipeID(nil), parentPath...), id)
	if len(path) > t.maxDepth {
		return nil, &entities.StructuralError{
			Rule:     entities.RuleDepthExceeded,
			ParentID: path[0],
			Path:     path,
			Depth:    len(path),
			Limit:    t.maxDepth,
			Detail:   fmt.Sprintf("stored structure under %s nests %d levels deep, limit is %d", path[0], len(path), t.maxDepth),
		}
	}

	recipe, ok := t.recipes[id]
	if !ok {
		parent := entities.RecipeID("")
		if len(parentPath) > 0 {
			parent = parentPath[len(parentPath)-1]
		}
		return nil, &entities.StructuralError{Rule: entities.RuleMissingComponent, ParentID: parent, ChildID: id, Path: path}
	}

	lines, components, err := t.expand(recipe, expandBase)
	if err != nil {
		return nil, err
	}

	node := NodeContext{
		RecipeID:    id,
		Recipe:      recipe,
		Batches:     batches,
		Path:        path,
		Level:       len(path),
		Ingredients: lines,
	}

	nodeData, shouldContinue, err := visitor.VisitNode(ctx, node)
	if err != nil {
		return nil, fmt.Errorf("failed to visit recipe %s: %w", id, err)
	}
	if !shouldContinue {
		return visitor.ProcessChildren(ctx, node, nodeData, nil)
	}

	var childResults []any
	for _, c := range components {
		childResult, err := t.walk(ctx, c.ChildID, batches.Mul(c.Multiplier), path, true, visitor)
		if err != nil {
			return nil, err
		}
		childResults = append(childResults, childResult)
	}

	return visitor.ProcessChildren(ctx, node, nodeData, childResults)
}

// expand returns the effective lines and components of a recipe
func (t *Traverser) expand(recipe *entities.Recipe, expandBase bool) ([]NodeIngredient, []entities.RecipeComponent, error) {
	var lines []NodeIngredient
	var components []entities.RecipeComponent

	if recipe.IsVariant() && expandBase {
		base, ok := t.recipes[recipe.BaseRecipeID]
		if !ok {
			return nil, nil, &entities.StructuralError{
				Rule:     entities.RuleVariantChain,
				ParentID: recipe.ID,
				ChildID:  recipe.BaseRecipeID,
				Detail:   fmt.Sprintf("variant %s refers to missing base %s", recipe.ID, recipe.BaseRecipeID),
			}
		}
		if base.IsVariant() {
			return nil, nil, &entities.StructuralError{
				Rule:     entities.RuleVariantChain,
				ParentID: recipe.ID,
				ChildID:  base.ID,
				Detail:   fmt.Sprintf("variant %s is based on %s, which is itself a variant", recipe.ID, base.ID),
			}
		}
		for _, line := range base.Ingredients {
			lines = append(lines, NodeIngredient{RecipeIngredient: line, SourceID: base.ID})
		}
		components = append(components, base.SortedComponents()...)
	}

	for _, line := range recipe.Ingredients {
		lines = append(lines, NodeIngredient{RecipeIngredient: line, SourceID: recipe.ID})
	}
	components = append(components, recipe.SortedComponents()...)
	return lines, components, nil
}
