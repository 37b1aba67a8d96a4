package sqlstore

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

const counterLot = "lot"

// NextLotID allocates a lot id from a locked counter row
func (t *tx) NextLotID(ctx context.Context) (entities.LotID, error) {
	if err := t.checkWritable(); err != nil {
		return 0, err
	}
	counter := counterModel{Name: counterLot}
	if err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).FirstOrCreate(&counter, "name = ?", counterLot).Error; err != nil {
		return 0, err
	}
	counter.Value++
	if err := t.db.Model(&counter).Update("value", counter.Value).Error; err != nil {
		return 0, err
	}
	return entities.LotID(counter.Value), nil
}

func (t *tx) GetLot(ctx context.Context, id entities.LotID) (*entities.InventoryLot, error) {
	var m lotModel
	found, err := t.first(&m, "id = ?", int64(id))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, entities.NewNotFound("lot", id)
	}
	return toLot(&m), nil
}

// ListOpenLots returns lots with remaining quantity in FIFO order. With
// forUpdate the rows stay locked until the transaction ends.
func (t *tx) ListOpenLots(ctx context.Context, ingredientID entities.IngredientID, forUpdate bool) ([]*entities.InventoryLot, error) {
	q := t.db.Where("ingredient_id = ? AND quantity_remaining > 0", string(ingredientID))
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return findLots(q)
}

func (t *tx) ListLots(ctx context.Context, ingredientID entities.IngredientID) ([]*entities.InventoryLot, error) {
	return findLots(t.db.Where("ingredient_id = ?", string(ingredientID)))
}

func findLots(q *gorm.DB) ([]*entities.InventoryLot, error) {
	var rows []lotModel
	if err := q.Order("acquired_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*entities.InventoryLot, 0, len(rows))
	for i := range rows {
		out = append(out, toLot(&rows[i]))
	}
	return out, nil
}

func (t *tx) InsertLot(ctx context.Context, lot *entities.InventoryLot) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if err := lot.Validate(); err != nil {
		return err
	}
	if err := t.db.Create(fromLot(lot)).Error; err != nil {
		if isMySQLError(err, errDuplicateEntry) {
			return fmt.Errorf("lot %d already exists", lot.ID)
		}
		return err
	}
	// keep the counter ahead of explicitly numbered lots
	return t.db.Clauses(clause.OnConflict{
		DoUpdates: clause.Assignments(map[string]any{"value": gorm.Expr("GREATEST(value, VALUES(value))")}),
	}).Create(&counterModel{Name: counterLot, Value: int64(lot.ID)}).Error
}

func (t *tx) UpdateLotRemaining(ctx context.Context, id entities.LotID, remaining decimal.Decimal) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	lot, err := t.GetLot(ctx, id)
	if err != nil {
		return err
	}
	lot.QuantityRemaining = remaining
	if err := lot.Validate(); err != nil {
		return err
	}
	return t.db.Model(&lotModel{}).Where("id = ?", int64(id)).Update("quantity_remaining", remaining).Error
}

func (t *tx) InsertConsumption(ctx context.Context, record *entities.ConsumptionRecord) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	return t.db.Create(fromConsumption(record)).Error
}

// ListConsumptions returns the records of one event in insertion order
func (t *tx) ListConsumptions(ctx context.Context, event entities.EventRef) ([]*entities.ConsumptionRecord, error) {
	var rows []consumptionModel
	err := t.db.Where("event_kind = ? AND event_id = ?", string(event.Kind), event.ID).
		Order("seq").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*entities.ConsumptionRecord, 0, len(rows))
	for i := range rows {
		out = append(out, toConsumption(&rows[i]))
	}
	return out, nil
}
