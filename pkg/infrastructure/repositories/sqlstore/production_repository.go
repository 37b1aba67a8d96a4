package sqlstore

import (
	"context"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

func (t *tx) InsertProduction(ctx context.Context, record *entities.ProductionRecord) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	return t.db.Create(fromProduction(record)).Error
}

func (t *tx) GetProduction(ctx context.Context, id entities.ProductionID) (*entities.ProductionRecord, error) {
	var m productionModel
	found, err := t.first(&m, "id = ?", string(id))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, entities.NewNotFound("production", id)
	}
	return toProduction(&m), nil
}

func (t *tx) ListProductions(ctx context.Context, recipeID entities.RecipeID) ([]*entities.ProductionRecord, error) {
	q := t.db.Order("produced_at, id")
	if recipeID != "" {
		q = q.Where("recipe_id = ?", string(recipeID))
	}
	var rows []productionModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*entities.ProductionRecord, 0, len(rows))
	for i := range rows {
		out = append(out, toProduction(&rows[i]))
	}
	return out, nil
}

// InsertSnapshot stores a snapshot once per production. The primary key on
// production_id turns a second insert into a snapshot-exists error.
func (t *tx) InsertSnapshot(ctx context.Context, snapshot *entities.RecipeSnapshot) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	err := t.db.Create(fromSnapshot(snapshot)).Error
	if isMySQLError(err, errDuplicateEntry) {
		return entities.NewSnapshotExists(snapshot.ProductionID)
	}
	return err
}

func (t *tx) GetSnapshot(ctx context.Context, productionID entities.ProductionID) (*entities.RecipeSnapshot, error) {
	var m snapshotModel
	found, err := t.first(&m, "production_id = ?", string(productionID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, entities.NewNotFound("snapshot", productionID)
	}
	return toSnapshot(&m), nil
}

func (t *tx) ListSnapshots(ctx context.Context, recipeID entities.RecipeID) ([]*entities.RecipeSnapshot, error) {
	q := t.db.Order("captured_at, production_id")
	if recipeID != "" {
		q = q.Where("recipe_id = ?", string(recipeID))
	}
	var rows []snapshotModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*entities.RecipeSnapshot, 0, len(rows))
	for i := range rows {
		out = append(out, toSnapshot(&rows[i]))
	}
	return out, nil
}
