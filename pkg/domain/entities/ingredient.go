package entities

import "fmt"

// Ingredient is a raw input tracked by the inventory ledger
type Ingredient struct {
	ID        IngredientID
	Name      string
	StockUnit Unit
}

// NewIngredient creates a validated Ingredient
func NewIngredient(id IngredientID, name string, stockUnit Unit) (*Ingredient, error) {
	if string(id) == "" {
		return nil, invalidf("ingredient id cannot be empty")
	}
	if name == "" {
		return nil, invalidf("ingredient name cannot be empty")
	}
	if stockUnit.Normalize() == "" {
		return nil, invalidf("stock unit cannot be empty for ingredient %s", id)
	}
	return &Ingredient{
		ID:        id,
		Name:      name,
		StockUnit: stockUnit.Normalize(),
	}, nil
}

// String returns "name (id)"
func (i *Ingredient) String() string {
	return fmt.Sprintf("%s (%s)", i.Name, i.ID)
}
