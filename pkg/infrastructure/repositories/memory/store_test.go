package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/domain/repositories"
)

func insertLot(t *testing.T, tx repositories.Tx, ingredient entities.IngredientID, qty int64, acquired time.Time) entities.LotID {
	t.Helper()
	ctx := context.Background()
	id, err := tx.NextLotID(ctx)
	require.NoError(t, err)
	lot, err := entities.NewInventoryLot(id, "P", ingredient, decimal.NewFromInt(qty), "g", decimal.RequireFromString("0.01"), acquired)
	require.NoError(t, err)
	require.NoError(t, tx.InsertLot(ctx, lot))
	return id
}

func TestStore_UpdateRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var lotID entities.LotID
	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error {
		lotID = insertLot(t, tx, "FLOUR", 100, day)
		return nil
	}))

	boom := errors.New("boom")
	err := store.Update(ctx, func(tx repositories.Tx) error {
		if err := tx.UpdateLotRemaining(ctx, lotID, decimal.NewFromInt(10)); err != nil {
			return err
		}
		insertLot(t, tx, "FLOUR", 5, day)
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, store.View(ctx, func(tx repositories.Tx) error {
		lots, err := tx.ListLots(ctx, "FLOUR")
		require.NoError(t, err)
		require.Len(t, lots, 1)
		assert.True(t, lots[0].QuantityRemaining.Equal(decimal.NewFromInt(100)))
		return nil
	}))
}

func TestStore_UpdateRollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	assert.Panics(t, func() {
		_ = store.Update(ctx, func(tx repositories.Tx) error {
			insertLot(t, tx, "SUGAR", 1, time.Now())
			panic("mid-transaction failure")
		})
	})

	// the writer lock must have been released
	require.NoError(t, store.View(ctx, func(tx repositories.Tx) error {
		lots, err := tx.ListLots(ctx, "SUGAR")
		require.NoError(t, err)
		assert.Empty(t, lots)
		return nil
	}))
	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error { return nil }))
}

func TestStore_ViewIsReadOnly(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	err := store.View(ctx, func(tx repositories.Tx) error {
		ing, err := entities.NewIngredient("EGG", "Egg", "each")
		require.NoError(t, err)
		return tx.SaveIngredient(ctx, ing)
	})
	assert.ErrorIs(t, err, errReadOnly)
}

func TestTx_ListOpenLotsFIFO(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	day1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error {
		late := insertLot(t, tx, "FLOUR", 10, day2)
		first := insertLot(t, tx, "FLOUR", 10, day1)
		second := insertLot(t, tx, "FLOUR", 10, day1)
		empty := insertLot(t, tx, "FLOUR", 10, day1)
		insertLot(t, tx, "SUGAR", 10, day1)
		require.NoError(t, tx.UpdateLotRemaining(ctx, empty, decimal.Zero))

		lots, err := tx.ListOpenLots(ctx, "FLOUR", true)
		require.NoError(t, err)
		var got []entities.LotID
		for _, lot := range lots {
			got = append(got, lot.ID)
		}
		assert.Equal(t, []entities.LotID{first, second, late}, got)
		return nil
	}))
}

func TestTx_UpdateLotRemainingRejectsNegative(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	err := store.Update(ctx, func(tx repositories.Tx) error {
		id := insertLot(t, tx, "FLOUR", 10, time.Now())
		return tx.UpdateLotRemaining(ctx, id, decimal.NewFromInt(-1))
	})
	assert.Error(t, err)
}

func TestTx_SnapshotsAreWriteOnce(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	snap := &entities.RecipeSnapshot{ID: "S1", ProductionID: "P1", RecipeID: "BREAD", Payload: []byte(`{}`)}

	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error {
		return tx.InsertSnapshot(ctx, snap)
	}))

	err := store.Update(ctx, func(tx repositories.Tx) error {
		return tx.InsertSnapshot(ctx, &entities.RecipeSnapshot{ID: "S2", ProductionID: "P1"})
	})
	var structural *entities.StructuralError
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, entities.RuleSnapshotExists, structural.Rule)

	require.NoError(t, store.View(ctx, func(tx repositories.Tx) error {
		got, err := tx.GetSnapshot(ctx, "P1")
		require.NoError(t, err)
		assert.Equal(t, entities.SnapshotID("S1"), got.ID)
		got.Payload[0] = 'x'

		again, err := tx.GetSnapshot(ctx, "P1")
		require.NoError(t, err)
		assert.Equal(t, []byte(`{}`), again.Payload)
		return nil
	}))
}

func TestTx_Components(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error {
		for _, id := range []entities.RecipeID{"CAKE", "SPONGE", "FROSTING"} {
			recipe, err := entities.NewRecipe(id, string(id), "", nil)
			require.NoError(t, err)
			require.NoError(t, tx.SaveRecipe(ctx, recipe))
		}
		require.NoError(t, tx.AddComponent(ctx, entities.ComponentEdge{ParentID: "CAKE", ChildID: "FROSTING", Multiplier: decimal.NewFromInt(1), SortOrder: 2}))
		require.NoError(t, tx.AddComponent(ctx, entities.ComponentEdge{ParentID: "CAKE", ChildID: "SPONGE", Multiplier: decimal.NewFromInt(2), SortOrder: 1}))
		return nil
	}))

	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error {
		// re-saving attributes keeps the edges
		recipe, err := entities.NewRecipe("CAKE", "Layer Cake", "", nil)
		require.NoError(t, err)
		require.NoError(t, tx.SaveRecipe(ctx, recipe))

		edges, err := tx.ListComponentEdges(ctx)
		require.NoError(t, err)
		require.Len(t, edges, 2)
		assert.Equal(t, entities.RecipeID("SPONGE"), edges[0].ChildID)

		require.NoError(t, tx.RemoveComponent(ctx, "CAKE", "SPONGE"))
		err = tx.RemoveComponent(ctx, "CAKE", "SPONGE")
		assert.ErrorIs(t, err, entities.ErrNotFound)
		return nil
	}))

	require.NoError(t, store.View(ctx, func(tx repositories.Tx) error {
		found, err := tx.GetRecipes(ctx, []entities.RecipeID{"CAKE", "MISSING"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Layer Cake", found["CAKE"].Name)
		assert.Len(t, found["CAKE"].Components, 1)
		return nil
	}))
}
