package repositories

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

// LotRepository provides access to inventory lots
type LotRepository interface {
	// NextLotID allocates a new, increasing lot id
	NextLotID(ctx context.Context) (entities.LotID, error)
	GetLot(ctx context.Context, id entities.LotID) (*entities.InventoryLot, error)

	// ListOpenLots returns lots with remaining quantity in FIFO order. With
	// forUpdate set, backends that support row locks hold them until the
	// transaction ends.
	ListOpenLots(ctx context.Context, ingredientID entities.IngredientID, forUpdate bool) ([]*entities.InventoryLot, error)

	// ListLots returns every lot of an ingredient, depleted ones included
	ListLots(ctx context.Context, ingredientID entities.IngredientID) ([]*entities.InventoryLot, error)

	InsertLot(ctx context.Context, lot *entities.InventoryLot) error
	UpdateLotRemaining(ctx context.Context, id entities.LotID, remaining decimal.Decimal) error
}

// ConsumptionRepository stores consumption records. Records are append-only.
type ConsumptionRepository interface {
	InsertConsumption(ctx context.Context, record *entities.ConsumptionRecord) error
	ListConsumptions(ctx context.Context, event entities.EventRef) ([]*entities.ConsumptionRecord, error)
}
