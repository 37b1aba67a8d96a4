package memory

import (
	"context"
	"sort"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

// InsertProduction stores a production record
func (t *tx) InsertProduction(ctx context.Context, record *entities.ProductionRecord) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	c := *record
	t.st.productions[record.ID] = &c
	return nil
}

// GetProduction returns a production record by id
func (t *tx) GetProduction(ctx context.Context, id entities.ProductionID) (*entities.ProductionRecord, error) {
	rec, exists := t.st.productions[id]
	if !exists {
		return nil, entities.NewNotFound("production", id)
	}
	c := *rec
	return &c, nil
}

// ListProductions returns production records oldest first
func (t *tx) ListProductions(ctx context.Context, recipeID entities.RecipeID) ([]*entities.ProductionRecord, error) {
	var out []*entities.ProductionRecord
	for _, rec := range t.st.productions {
		if recipeID == "" || rec.RecipeID == recipeID {
			c := *rec
			out = append(out, &c)
		}
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
	if err := t.checkWritable(); err != nil {
		return err
	}
	if _, exists := t.st.snapshots[snapshot.ProductionID]; exists {
		return entities.NewSnapshotExists(snapshot.ProductionID)
	}
	t.st.snapshots[snapshot.ProductionID] = cloneSnapshot(snapshot)
	return nil
}

// GetSnapshot returns the snapshot of a production
func (t *tx) GetSnapshot(ctx context.Context, productionID entities.ProductionID) (*entities.RecipeSnapshot, error) {
	snap, exists := t.st.snapshots[productionID]
	if !exists {
		return nil, entities.NewNotFound("snapshot", productionID)
	}
	return cloneSnapshot(snap), nil
}

// ListSnapshots returns the snapshots of a recipe, oldest first
func (t *tx) ListSnapshots(ctx context.Context, recipeID entities.RecipeID) ([]*entities.RecipeSnapshot, error) {
	var out []*entities.RecipeSnapshot
	for _, snap := range t.st.snapshots {
		if recipeID == "" || snap.RecipeID == recipeID {
			out = append(out, cloneSnapshot(snap))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CapturedAt.Equal(out[j].CapturedAt) {
			return out[i].CapturedAt.Before(out[j].CapturedAt)
		}
		return out[i].ProductionID < out[j].ProductionID
	})
	return out, nil
}

func cloneSnapshot(s *entities.RecipeSnapshot) *entities.RecipeSnapshot {
	c := *s
	c.Payload = append([]byte(nil), s.Payload...)
	return &c
}
