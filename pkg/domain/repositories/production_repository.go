package repositories

import (
	"context"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

// ProductionRepository stores production records
type ProductionRepository interface {
	InsertProduction(ctx context.Context, record *entities.ProductionRecord) error
	GetProduction(ctx context.Context, id entities.ProductionID) (*entities.ProductionRecord, error)

	// ListProductions returns records oldest first; an empty recipe id lists all
	ListProductions(ctx context.Context, recipeID entities.RecipeID) ([]*entities.ProductionRecord, error)
}

// SnapshotRepository stores recipe snapshots. A snapshot cannot be changed
// or removed once inserted.
type SnapshotRepository interface {
	// InsertSnapshot fails with a snapshot-exists StructuralError if the
	// production already has one
	InsertSnapshot(ctx context.Context, snapshot *entities.RecipeSnapshot) error
	GetSnapshot(ctx context.Context, productionID entities.ProductionID) (*entities.RecipeSnapshot, error)
	ListSnapshots(ctx context.Context, recipeID entities.RecipeID) ([]*entities.RecipeSnapshot, error)
}
