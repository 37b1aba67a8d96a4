package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

// GetRecipe returns a recipe by id
func (t *tx) GetRecipe(ctx context.Context, id entities.RecipeID) (*entities.Recipe, error) {
	recipe, exists := t.st.recipes[id]
	if !exists {
		return nil, entities.NewNotFound("recipe", id)
	}
	return recipe.Clone(), nil
}

// GetRecipes returns the known recipes among ids
func (t *tx) GetRecipes(ctx context.Context, ids []entities.RecipeID) (map[entities.RecipeID]*entities.Recipe, error) {
	out := make(map[entities.RecipeID]*entities.Recipe, len(ids))
	for _, id := range ids {
		if recipe, exists := t.st.recipes[id]; exists {
			out[id] = recipe.Clone()
		}
	}
	return out, nil
}

// ListRecipes returns all recipes sorted by id
func (t *tx) ListRecipes(ctx context.Context) ([]*entities.Recipe, error) {
	out := make([]*entities.Recipe, 0, len(t.st.recipes))
	for _, recipe := range t.st.recipes {
		out = append(out, recipe.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveRecipe creates or replaces a recipe, keeping any existing components
func (t *tx) SaveRecipe(ctx context.Context, recipe *entities.Recipe) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	saved := recipe.Clone()
	saved.Components = nil
	if existing, exists := t.st.recipes[recipe.ID]; exists {
		saved.Components = append([]entities.RecipeComponent(nil), existing.Components...)
	}
	t.st.recipes[recipe.ID] = saved
	return nil
}

// ListComponentEdges returns every component edge, ordered by parent then display order
func (t *tx) ListComponentEdges(ctx context.Context) ([]entities.ComponentEdge, error) {
	recipes, _ := t.ListRecipes(ctx)
	var edges []entities.ComponentEdge
	for _, recipe := range recipes {
		for _, c := range recipe.SortedComponents() {
			edges = append(edges, entities.ComponentEdge{
				ParentID:   recipe.ID,
				ChildID:    c.ChildID,
				Multiplier: c.Multiplier,
				SortOrder:  c.SortOrder,
			})
		}
	}
	return edges, nil
}

// AddComponent stores a component edge on its parent
func (t *tx) AddComponent(ctx context.Context, edge entities.ComponentEdge) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	parent, exists := t.st.recipes[edge.ParentID]
	if !exists {
		return entities.NewNotFound("recipe", edge.ParentID)
	}
	if parent.HasComponent(edge.ChildID) {
		return &entities.StructuralError{Rule: entities.RuleDuplicateComponent, ParentID: edge.ParentID, ChildID: edge.ChildID}
	}
	updated := parent.Clone()
	updated.Components = append(updated.Components, entities.RecipeComponent{
		ChildID:    edge.ChildID,
		Multiplier: edge.Multiplier,
		SortOrder:  edge.SortOrder,
	})
	t.st.recipes[edge.ParentID] = updated
	return nil
}

// RemoveComponent deletes a component edge
func (t *tx) RemoveComponent(ctx context.Context, parentID, childID entities.RecipeID) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	parent, exists := t.st.recipes[parentID]
	if !exists {
		return entities.NewNotFound("recipe", parentID)
	}
	if !parent.HasComponent(childID) {
		return entities.NewNotFound("component", fmt.Sprintf("%s -> %s", parentID, childID))
	}
	updated := parent.Clone()
	kept := updated.Components[:0]
	for _, c := range updated.Components {
		if c.ChildID != childID {
			kept = append(kept, c)
		}
	}
	updated.Components = kept
	t.st.recipes[parentID] = updated
	return nil
}

// GetFinishedUnit returns a yield definition by id
func (t *tx) GetFinishedUnit(ctx context.Context, id entities.FinishedUnitID) (*entities.FinishedUnit, error) {
	fu, exists := t.st.finishedUnits[id]
	if !exists {
		return nil, entities.NewNotFound("finished unit", id)
	}
	c := *fu
	return &c, nil
}

// ListFinishedUnits returns the yield definitions of a recipe
func (t *tx) ListFinishedUnits(ctx context.Context, recipeID entities.RecipeID) ([]*entities.FinishedUnit, error) {
	var out []*entities.FinishedUnit
	for _, fu := range t.st.finishedUnits {
		if recipeID == "" || fu.RecipeID == recipeID {
			c := *fu
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveFinishedUnit creates or replaces a yield definition
func (t *tx) SaveFinishedUnit(ctx context.Context, unit *entities.FinishedUnit) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	c := *unit
	t.st.finishedUnits[unit.ID] = &c
	return nil
}

// IncrementOnHand adds delta to a finished unit's on-hand count
func (t *tx) IncrementOnHand(ctx context.Context, id entities.FinishedUnitID, delta decimal.Decimal) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	fu, exists := t.st.finishedUnits[id]
	if !exists {
		return entities.NewNotFound("finished unit", id)
	}
	c := *fu
	c.OnHand = c.OnHand.Add(delta)
	t.st.finishedUnits[id] = &c
	return nil
}
