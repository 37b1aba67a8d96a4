package memory

import (
	"context"
	"sort"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

// GetIngredient returns an ingredient by id
func (t *tx) GetIngredient(ctx context.Context, id entities.IngredientID) (*entities.Ingredient, error) {
	ing, exists := t.st.ingredients[id]
	if !exists {
		return nil, entities.NewNotFound("ingredient", id)
	}
	c := *ing
	return &c, nil
}

// ListIngredients returns all ingredients sorted by id
func (t *tx) ListIngredients(ctx context.Context) ([]*entities.Ingredient, error) {
	out := make([]*entities.Ingredient, 0, len(t.st.ingredients))
	for _, ing := range t.st.ingredients {
		c := *ing
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveIngredient creates or replaces an ingredient
func (t *tx) SaveIngredient(ctx context.Context, ingredient *entities.Ingredient) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	c := *ingredient
	t.st.ingredients[ingredient.ID] = &c
	return nil
}
