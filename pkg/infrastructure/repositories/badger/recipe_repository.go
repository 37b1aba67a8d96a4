package badger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

func (t *tx) GetRecipe(ctx context.Context, id entities.RecipeID) (*entities.Recipe, error) {
	var recipe entities.Recipe
	found, err := getJSON(t.txn, key(prefixRecipe, string(id)), &recipe)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, entities.NewNotFound("recipe", id)
	}
	return &recipe, nil
}

func (t *tx) GetRecipes(ctx context.Context, ids []entities.RecipeID) (map[entities.RecipeID]*entities.Recipe, error) {
	out := make(map[entities.RecipeID]*entities.Recipe, len(ids))
	for _, id := range ids {
		if _, done := out[id]; done {
			continue
		}
		var recipe entities.Recipe
		found, err := getJSON(t.txn, key(prefixRecipe, string(id)), &recipe)
		if err != nil {
			return nil, err
		}
		if found {
			out[id] = &recipe
		}
	}
	return out, nil
}

func (t *tx) ListRecipes(ctx context.Context) ([]*entities.Recipe, error) {
	var out []*entities.Recipe
	err := scan(t.txn, prefix(prefixRecipe), func(val []byte) error {
		var recipe entities.Recipe
		if err := json.Unmarshal(val, &recipe); err != nil {
			return err
		}
		out = append(out, &recipe)
		return nil
	})
	return out, err
}

// SaveRecipe stores a recipe, keeping the components of an existing one
func (t *tx) SaveRecipe(ctx context.Context, recipe *entities.Recipe) error {
	saved := recipe.Clone()
	saved.Components = nil
	existing, err := t.GetRecipe(ctx, recipe.ID)
	if err == nil {
		saved.Components = existing.Components
	}
	return putJSON(t.txn, key(prefixRecipe, string(recipe.ID)), saved)
}

func (t *tx) ListComponentEdges(ctx context.Context) ([]entities.ComponentEdge, error) {
	recipes, err := t.ListRecipes(ctx)
	if err != nil {
		return nil, err
	}
	var edges []entities.ComponentEdge
	for _, recipe := range recipes {
		edges = append(edges, recipe.Edges()...)
	}
	return edges, nil
}

func (t *tx) AddComponent(ctx context.Context, edge entities.ComponentEdge) error {
	parent, err := t.GetRecipe(ctx, edge.ParentID)
	if err != nil {
		return err
	}
	if parent.HasComponent(edge.ChildID) {
		return &entities.StructuralError{Rule: entities.RuleDuplicateComponent, ParentID: edge.ParentID, ChildID: edge.ChildID}
	}
	parent.Components = append(parent.Components, entities.RecipeComponent{
		ChildID:    edge.ChildID,
		Multiplier: edge.Multiplier,
		SortOrder:  edge.SortOrder,
	})
	return putJSON(t.txn, key(prefixRecipe, string(parent.ID)), parent)
}

func (t *tx) RemoveComponent(ctx context.Context, parentID, childID entities.RecipeID) error {
	parent, err := t.GetRecipe(ctx, parentID)
	if err != nil {
		return err
	}
	if !parent.HasComponent(childID) {
		return entities.NewNotFound("component", fmt.Sprintf("%s -> %s", parentID, childID))
	}
	kept := parent.Components[:0]
	for _, c := range parent.Components {
		if c.ChildID != childID {
			kept = append(kept, c)
		}
	}
	parent.Components = kept
	return putJSON(t.txn, key(prefixRecipe, string(parentID)), parent)
}

func (t *tx) GetFinishedUnit(ctx context.Context, id entities.FinishedUnitID) (*entities.FinishedUnit, error) {
	var fu entities.FinishedUnit
	found, err := getJSON(t.txn, key(prefixFinishedUnit, string(id)), &fu)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, entities.NewNotFound("finished unit", id)
	}
	return &fu, nil
}

func (t *tx) ListFinishedUnits(ctx context.Context, recipeID entities.RecipeID) ([]*entities.FinishedUnit, error) {
	var out []*entities.FinishedUnit
	err := scan(t.txn, prefix(prefixFinishedUnit), func(val []byte) error {
		var fu entities.FinishedUnit
		if err := json.Unmarshal(val, &fu); err != nil {
			return err
		}
		if recipeID == "" || fu.RecipeID == recipeID {
			out = append(out, &fu)
		}
		return nil
	})
	return out, err
}

func (t *tx) SaveFinishedUnit(ctx context.Context, unit *entities.FinishedUnit) error {
	return putJSON(t.txn, key(prefixFinishedUnit, string(unit.ID)), unit)
}

func (t *tx) IncrementOnHand(ctx context.Context, id entities.FinishedUnitID, delta decimal.Decimal) error {
	fu, err := t.GetFinishedUnit(ctx, id)
	if err != nil {
		return err
	}
	fu.OnHand = fu.OnHand.Add(delta)
	return t.SaveFinishedUnit(ctx, fu)
}
