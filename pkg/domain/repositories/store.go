package repositories

import "context"

// Tx is one unit of work. Everything written through a Tx becomes visible
// together when the enclosing Update returns nil, or not at all.
type Tx interface {
	IngredientRepository
	LotRepository
	ConsumptionRepository
	RecipeRepository
	FinishedUnitRepository
	ProductionRepository
	SnapshotRepository
}

// Store opens units of work against a storage backend
type Store interface {
	// View runs fn in a read-only transaction
	View(ctx context.Context, fn func(tx Tx) error) error

	// Update runs fn in a read-write transaction. It commits iff fn returns
	// nil; an error or panic rolls back every write made through tx.
	Update(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}
