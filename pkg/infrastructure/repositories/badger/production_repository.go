package badger

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

func (t *tx) InsertProduction(ctx context.Context, record *entities.ProductionRecord) error {
	return putJSON(t.txn, key(prefixProduction, string(record.ID)), record)
}

func (t *tx) GetProduction(ctx context.Context, id entities.ProductionID) (*entities.ProductionRecord, error) {
	var rec entities.ProductionRecord
	found, err := getJSON(t.txn, key(prefixProduction, string(id)), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, entities.NewNotFound("production", id)
	}
	return &rec, nil
}

// ListProductions returns production records oldest first
func (t *tx) ListProductions(ctx context.Context, recipeID entities.RecipeID) ([]*entities.ProductionRecord, error) {
	var out []*entities.ProductionRecord
	err := scan(t.txn, prefix(prefixProduction), func(val []byte) error {
		var rec entities.ProductionRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		if recipeID == "" || rec.RecipeID == recipeID {
			out = append(out, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ProducedAt.Equal(out[j].ProducedAt) {
			return out[i].ProducedAt.Before(out[j].ProducedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// InsertSnapshot stores a snapshot once per production
func (t *tx) InsertSnapshot(ctx context.Context, snapshot *entities.RecipeSnapshot) error {
	_, err := t.GetSnapshot(ctx, snapshot.ProductionID)
	if err == nil {
		return entities.NewSnapshotExists(snapshot.ProductionID)
	}
	if !errors.Is(err, entities.ErrNotFound) {
		return err
	}
	return putJSON(t.txn, key(prefixSnapshot, string(snapshot.ProductionID)), snapshot)
}

func (t *tx) GetSnapshot(ctx context.Context, productionID entities.ProductionID) (*entities.RecipeSnapshot, error) {
	var snap entities.RecipeSnapshot
	found, err := getJSON(t.txn, key(prefixSnapshot, string(productionID)), &snap)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, entities.NewNotFound("snapshot", productionID)
	}
	return &snap, nil
}

// ListSnapshots returns the snapshots of a recipe, oldest first
func (t *tx) ListSnapshots(ctx context.Context, recipeID entities.RecipeID) ([]*entities.RecipeSnapshot, error) {
	var out []*entities.RecipeSnapshot
	err := scan(t.txn, prefix(prefixSnapshot), func(val []byte) error {
		var snap entities.RecipeSnapshot
		if err := json.Unmarshal(val, &snap); err != nil {
			return err
		}
		if recipeID == "" || snap.RecipeID == recipeID {
			out = append(out, &snap)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CapturedAt.Equal(out[j].CapturedAt) {
			return out[i].CapturedAt.Before(out[j].CapturedAt)
		}
		return out[i].ProductionID < out[j].ProductionID
	})
	return out, nil
}
