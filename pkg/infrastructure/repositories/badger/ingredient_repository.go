package badger

import (
	"context"
	"encoding/json"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

func (t *tx) GetIngredient(ctx context.Context, id entities.IngredientID) (*entities.Ingredient, error) {
	var ing entities.Ingredient
	found, err := getJSON(t.txn, key(prefixIngredient, string(id)), &ing)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, entities.NewNotFound("ingredient", id)
	}
	return &ing, nil
}

func (t *tx) ListIngredients(ctx context.Context) ([]*entities.Ingredient, error) {
	var out []*entities.Ingredient
	err := scan(t.txn, prefix(prefixIngredient), func(val []byte) error {
		var ing entities.Ingredient
		if err := json.Unmarshal(val, &ing); err != nil {
			return err
		}
		out = append(out, &ing)
		return nil
	})
	return out, err
}

func (t *tx) SaveIngredient(ctx context.Context, ingredient *entities.Ingredient) error {
	return putJSON(t.txn, key(prefixIngredient, string(ingredient.ID)), ingredient)
}
