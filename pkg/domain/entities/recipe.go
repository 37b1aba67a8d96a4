package entities

import (
	"sort"

	"github.com/shopspring/decimal"
)

// RecipeIngredient is a raw ingredient used directly by a recipe, per batch
type RecipeIngredient struct {
	IngredientID IngredientID
	Quantity     decimal.Decimal
	Unit         Unit
}

// NewRecipeIngredient creates a validated RecipeIngredient
func NewRecipeIngredient(ingredientID IngredientID, quantity decimal.Decimal, unit Unit) (*RecipeIngredient, error) {
	if string(ingredientID) == "" {
		return nil, invalidf("ingredient id cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, invalidf("ingredient quantity must be positive, got %s", quantity)
	}
	if unit.Normalize() == "" {
		return nil, invalidf("unit cannot be empty for ingredient %s", ingredientID)
	}
	return &RecipeIngredient{
		IngredientID: ingredientID,
		Quantity:     quantity,
		Unit:         unit.Normalize(),
	}, nil
}

// RecipeComponent is a sub-recipe used by a parent recipe. Multiplier is the
// number of child batches needed per parent batch.
type RecipeComponent struct {
	ChildID    RecipeID
	Multiplier decimal.Decimal
	SortOrder  int
}

// ComponentEdge is a component relation seen from outside the parent
type ComponentEdge struct {
	ParentID   RecipeID
	ChildID    RecipeID
	Multiplier decimal.Decimal
	SortOrder  int
}

// NewComponentEdge creates a validated ComponentEdge
func NewComponentEdge(parentID, childID RecipeID, multiplier decimal.Decimal, sortOrder int) (*ComponentEdge, error) {
	if string(parentID) == "" {
		return nil, invalidf("parent recipe id cannot be empty")
	}
	if string(childID) == "" {
		return nil, invalidf("child recipe id cannot be empty")
	}
	if !multiplier.IsPositive() {
		return nil, invalidf("component multiplier must be positive, got %s", multiplier)
	}
	if sortOrder < 0 {
		return nil, invalidf("sort order cannot be negative, got %d", sortOrder)
	}
	return &ComponentEdge{
		ParentID:   parentID,
		ChildID:    childID,
		Multiplier: multiplier,
		SortOrder:  sortOrder,
	}, nil
}

// Recipe is a production template. A recipe with BaseRecipeID set is a yield
// variant: its Ingredients and Components are deltas applied on top of the base.
type Recipe struct {
	ID           RecipeID
	Name         string
	BaseRecipeID RecipeID
	Ingredients  []RecipeIngredient
	Components   []RecipeComponent
}

// NewRecipe creates a validated Recipe with no components
func NewRecipe(id RecipeID, name string, baseRecipeID RecipeID, ingredients []RecipeIngredient) (*Recipe, error) {
	if string(id) == "" {
		return nil, invalidf("recipe id cannot be empty")
	}
	if name == "" {
		return nil, invalidf("recipe name cannot be empty")
	}
	if baseRecipeID == id {
		return nil, invalidf("recipe %s cannot be a variant of itself", id)
	}
	for _, ing := range ingredients {
		if _, err := NewRecipeIngredient(ing.IngredientID, ing.Quantity, ing.Unit); err != nil {
			return nil, err
		}
	}
	return &Recipe{
		ID:           id,
		Name:         name,
		BaseRecipeID: baseRecipeID,
		Ingredients:  ingredients,
	}, nil
}

// IsVariant reports whether the recipe is a yield variant of a base recipe
func (r *Recipe) IsVariant() bool {
	return r.BaseRecipeID != ""
}

// HasComponent reports whether child is a direct component
func (r *Recipe) HasComponent(child RecipeID) bool {
	for _, c := range r.Components {
		if c.ChildID == child {
			return true
		}
	}
	return false
}

// SortedComponents returns components in display order
func (r *Recipe) SortedComponents() []RecipeComponent {
	out := make([]RecipeComponent, len(r.Components))
	copy(out, r.Components)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ChildID < out[j].ChildID
	})
	return out
}

// Edges returns the recipe's components as edges
func (r *Recipe) Edges() []ComponentEdge {
	edges := make([]ComponentEdge, 0, len(r.Components))
	for _, c := range r.Components {
		edges = append(edges, ComponentEdge{
			ParentID:   r.ID,
			ChildID:    c.ChildID,
			Multiplier: c.Multiplier,
			SortOrder:  c.SortOrder,
		})
	}
	return edges
}

// Clone returns a deep copy
func (r *Recipe) Clone() *Recipe {
	c := *r
	c.Ingredients = append([]RecipeIngredient(nil), r.Ingredients...)
	c.Components = append([]RecipeComponent(nil), r.Components...)
	return &c
}

// FinishedUnit is a yield definition: what a batch of a recipe turns into
type FinishedUnit struct {
	ID            FinishedUnitID
	RecipeID      RecipeID
	Name          string
	ItemsPerBatch decimal.Decimal
	OnHand        decimal.Decimal
}

// NewFinishedUnit creates a validated FinishedUnit with nothing on hand
func NewFinishedUnit(id FinishedUnitID, recipeID RecipeID, name string, itemsPerBatch decimal.Decimal) (*FinishedUnit, error) {
	if string(id) == "" {
		return nil, invalidf("finished unit id cannot be empty")
	}
	if string(recipeID) == "" {
		return nil, invalidf("recipe id cannot be empty for finished unit %s", id)
	}
	if name == "" {
		return nil, invalidf("finished unit name cannot be empty")
	}
	if !itemsPerBatch.IsPositive() {
		return nil, invalidf("items per batch must be positive, got %s", itemsPerBatch)
	}
	return &FinishedUnit{
		ID:            id,
		RecipeID:      recipeID,
		Name:          name,
		ItemsPerBatch: itemsPerBatch,
		OnHand:        decimal.Zero,
	}, nil
}
