package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

// NextLotID allocates the next lot id
func (t *tx) NextLotID(ctx context.Context) (entities.LotID, error) {
	if err := t.checkWritable(); err != nil {
		return 0, err
	}
	t.st.lastLotID++
	return t.st.lastLotID, nil
}

// GetLot returns a lot by id
func (t *tx) GetLot(ctx context.Context, id entities.LotID) (*entities.InventoryLot, error) {
	lot, exists := t.st.lots[id]
	if !exists {
		return nil, entities.NewNotFound("lot", id)
	}
	return lot.Clone(), nil
}

// ListOpenLots returns lots with remaining quantity, oldest first. The
// single-writer store has nothing to lock, so forUpdate is ignored.
func (t *tx) ListOpenLots(ctx context.Context, ingredientID entities.IngredientID, forUpdate bool) ([]*entities.InventoryLot, error) {
	var lots []*entities.InventoryLot
	for _, lot := range t.st.lots {
		if lot.IngredientID == ingredientID && lot.IsOpen() {
			lots = append(lots, lot.Clone())
		}
	}
	sort.Slice(lots, func(i, j int) bool { return entities.FIFOLess(lots[i], lots[j]) })
	return lots, nil
}

// ListLots returns every lot for an ingredient, oldest first
func (t *tx) ListLots(ctx context.Context, ingredientID entities.IngredientID) ([]*entities.InventoryLot, error) {
	var lots []*entities.InventoryLot
	for _, lot := range t.st.lots {
		if lot.IngredientID == ingredientID {
			lots = append(lots, lot.Clone())
		}
	}
	sort.Slice(lots, func(i, j int) bool { return entities.FIFOLess(lots[i], lots[j]) })
	return lots, nil
}

// InsertLot adds a new lot
func (t *tx) InsertLot(ctx context.Context, lot *entities.InventoryLot) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	if _, exists := t.st.lots[lot.ID]; exists {
		return fmt.Errorf("lot %d already exists", lot.ID)
	}
	if err := lot.Validate(); err != nil {
		return err
	}
	t.st.lots[lot.ID] = lot.Clone()
	if lot.ID > t.st.lastLotID {
		t.st.lastLotID = lot.ID
	}
	return nil
}

// UpdateLotRemaining stores a lot's new remaining quantity
func (t *tx) UpdateLotRemaining(ctx context.Context, id entities.LotID, remaining decimal.Decimal) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	lot, exists := t.st.lots[id]
	if !exists {
		return entities.NewNotFound("lot", id)
	}
	updated := lot.Clone()
	updated.QuantityRemaining = remaining
	if err := updated.Validate(); err != nil {
		return err
	}
	t.st.lots[id] = updated
	return nil
}

// InsertConsumption appends a consumption record
func (t *tx) InsertConsumption(ctx context.Context, record *entities.ConsumptionRecord) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	c := *record
	t.st.consumptions = append(t.st.consumptions, &c)
	return nil
}

// ListConsumptions returns the records of one event in insertion order
func (t *tx) ListConsumptions(ctx context.Context, event entities.EventRef) ([]*entities.ConsumptionRecord, error) {
	var out []*entities.ConsumptionRecord
	for _, rec := range t.st.consumptions {
		if rec.Event == event {
			c := *rec
			out = append(out, &c)
		}
	}
	return out, nil
}
