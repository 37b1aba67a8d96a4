package badger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

const (
	counterLot         = "lastlot"
	counterConsumption = "lastcons"
)

// NextLotID allocates the next lot id from a counter kept in the database
func (t *tx) NextLotID(ctx context.Context) (entities.LotID, error) {
	n, err := nextCounter(t.txn, counterLot)
	return entities.LotID(n), err
}

func (t *tx) GetLot(ctx context.Context, id entities.LotID) (*entities.InventoryLot, error) {
	var lot entities.InventoryLot
	found, err := getJSON(t.txn, lotKey(id), &lot)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, entities.NewNotFound("lot", id)
	}
	return &lot, nil
}

// ListOpenLots walks the FIFO index. Every lot read is recorded by the
// read-write transaction, so forUpdate needs no extra work: a concurrent
// commit touching the same lots makes this transaction fail with a conflict.
func (t *tx) ListOpenLots(ctx context.Context, ingredientID entities.IngredientID, forUpdate bool) ([]*entities.InventoryLot, error) {
	lots, err := t.ListLots(ctx, ingredientID)
	if err != nil {
		return nil, err
	}
	open := lots[:0]
	for _, lot := range lots {
		if lot.IsOpen() {
			open = append(open, lot)
		}
	}
	return open, nil
}

func (t *tx) ListLots(ctx context.Context, ingredientID entities.IngredientID) ([]*entities.InventoryLot, error) {
	var lots []*entities.InventoryLot
	err := scanKeys(t.txn, prefix(prefixLotIndex, string(ingredientID)), func(k []byte) error {
		id, err := lotIDFromIndex(k)
		if err != nil {
			return err
		}
		lot, err := t.GetLot(ctx, id)
		if err != nil {
			return fmt.Errorf("lot index points at missing lot: %w", err)
		}
		lots = append(lots, lot)
		return nil
	})
	return lots, err
}

func (t *tx) InsertLot(ctx context.Context, lot *entities.InventoryLot) error {
	if err := lot.Validate(); err != nil {
		return err
	}
	if _, err := t.GetLot(ctx, lot.ID); err == nil {
		return fmt.Errorf("lot %d already exists", lot.ID)
	}
	if err := putJSON(t.txn, lotKey(lot.ID), lot); err != nil {
		return err
	}
	if err := t.txn.Set(lotIndexKey(lot), nil); err != nil {
		return err
	}
	return raiseCounter(t.txn, counterLot, int64(lot.ID))
}

func (t *tx) UpdateLotRemaining(ctx context.Context, id entities.LotID, remaining decimal.Decimal) error {
	lot, err := t.GetLot(ctx, id)
	if err != nil {
		return err
	}
	lot.QuantityRemaining = remaining
	if err := lot.Validate(); err != nil {
		return err
	}
	return putJSON(t.txn, lotKey(id), lot)
}

func (t *tx) InsertConsumption(ctx context.Context, record *entities.ConsumptionRecord) error {
	seq, err := nextCounter(t.txn, counterConsumption)
	if err != nil {
		return err
	}
	k := key(prefixConsumption, string(record.Event.Kind), record.Event.ID, fmt.Sprintf("%020d", seq))
	return putJSON(t.txn, k, record)
}

// ListConsumptions returns the records of one event in insertion order
func (t *tx) ListConsumptions(ctx context.Context, event entities.EventRef) ([]*entities.ConsumptionRecord, error) {
	var out []*entities.ConsumptionRecord
	err := scan(t.txn, prefix(prefixConsumption, string(event.Kind), event.ID), func(val []byte) error {
		var rec entities.ConsumptionRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		out = append(out, &rec)
		return nil
	})
	return out, err
}
