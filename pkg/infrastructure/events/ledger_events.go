package events

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

const (
	LotReceivedEvent        = "lot.received"
	InventoryConsumedEvent  = "inventory.consumed"
	ProductionRecordedEvent = "production.recorded"
	SnapshotCapturedEvent   = "snapshot.captured"
)

type LotReceived struct {
	Lot entities.InventoryLot `json:"lot"`
}

type InventoryConsumed struct {
	Event      entities.EventRef     `json:"event"`
	Ingredient entities.IngredientID `json:"ingredient_id"`
	Unit       entities.Unit         `json:"unit"`
	Consumed   decimal.Decimal       `json:"consumed"`
	TotalCost  decimal.Decimal       `json:"total_cost"`
	Draws      []entities.LotDraw    `json:"draws"`
}

type ProductionRecorded struct {
	Record entities.ProductionRecord `json:"record"`
}

type SnapshotCaptured struct {
	ProductionID entities.ProductionID `json:"production_id"`
	RecipeID     entities.RecipeID     `json:"recipe_id"`
	Checksum     string                `json:"checksum"`
	Backfilled   bool                  `json:"backfilled"`
}

func NewLotReceivedEvent(lot *entities.InventoryLot) Event {
	return NewEvent(LotReceivedEvent, "ingredient-"+string(lot.IngredientID), LotReceived{Lot: *lot})
}

func NewInventoryConsumedEvent(result *entities.ConsumptionResult) Event {
	return NewEvent(InventoryConsumedEvent, "ingredient-"+string(result.IngredientID), InventoryConsumed{
		Event:      result.Event,
		Ingredient: result.IngredientID,
		Unit:       result.Unit,
		Consumed:   result.Consumed,
		TotalCost:  result.TotalCost,
		Draws:      result.Breakdown,
	})
}

func NewProductionRecordedEvent(record *entities.ProductionRecord) Event {
	return NewEvent(ProductionRecordedEvent, "recipe-"+string(record.RecipeID), ProductionRecorded{Record: *record})
}

func NewSnapshotCapturedEvent(snapshot *entities.RecipeSnapshot) Event {
	return NewEvent(SnapshotCapturedEvent, "recipe-"+string(snapshot.RecipeID), SnapshotCaptured{
		ProductionID: snapshot.ProductionID,
		RecipeID:     snapshot.RecipeID,
		Checksum:     snapshot.Checksum,
		Backfilled:   snapshot.IsBackfilled,
	})
}
