package sqlstore

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

func (t *tx) GetIngredient(ctx context.Context, id entities.IngredientID) (*entities.Ingredient, error) {
	var m ingredientModel
	found, err := t.first(&m, "id = ?", string(id))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, entities.NewNotFound("ingredient", id)
	}
	return toIngredient(&m), nil
}

func (t *tx) ListIngredients(ctx context.Context) ([]*entities.Ingredient, error) {
	var rows []ingredientModel
	if err := t.db.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*entities.Ingredient, 0, len(rows))
	for i := range rows {
		out = append(out, toIngredient(&rows[i]))
	}
	return out, nil
}

func (t *tx) SaveIngredient(ctx context.Context, ingredient *entities.Ingredient) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	m := ingredientModel{ID: string(ingredient.ID), Name: ingredient.Name, StockUnit: string(ingredient.StockUnit)}
	return t.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error
}
