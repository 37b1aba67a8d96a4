package repositories

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

// RecipeRepository provides access to recipes and their component edges
type RecipeRepository interface {
	GetRecipe(ctx context.Context, id entities.RecipeID) (*entities.Recipe, error)

	// GetRecipes loads several recipes in one read. Unknown ids are absent
	// from the result rather than an error.
	GetRecipes(ctx context.Context, ids []entities.RecipeID) (map[entities.RecipeID]*entities.Recipe, error)
	ListRecipes(ctx context.Context) ([]*entities.Recipe, error)

	// SaveRecipe creates or replaces a recipe's attributes and ingredient
	// lines. Component edges are only changed through AddComponent and
	// RemoveComponent.
	SaveRecipe(ctx context.Context, recipe *entities.Recipe) error

	ListComponentEdges(ctx context.Context) ([]entities.ComponentEdge, error)
	AddComponent(ctx context.Context, edge entities.ComponentEdge) error
	RemoveComponent(ctx context.Context, parentID, childID entities.RecipeID) error
}

// FinishedUnitRepository provides access to yield definitions
type FinishedUnitRepository interface {
	GetFinishedUnit(ctx context.Context, id entities.FinishedUnitID) (*entities.FinishedUnit, error)
	ListFinishedUnits(ctx context.Context, recipeID entities.RecipeID) ([]*entities.FinishedUnit, error)
	SaveFinishedUnit(ctx context.Context, unit *entities.FinishedUnit) error
	IncrementOnHand(ctx context.Context, id entities.FinishedUnitID, delta decimal.Decimal) error
}
