package repositories

import (
	"context"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

// IngredientRepository provides access to the ingredient catalog
type IngredientRepository interface {
	GetIngredient(ctx context.Context, id entities.IngredientID) (*entities.Ingredient, error)
	ListIngredients(ctx context.Context) ([]*entities.Ingredient, error)
	SaveIngredient(ctx context.Context, ingredient *entities.Ingredient) error
}
