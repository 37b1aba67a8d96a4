package sqlstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/batchledger/pkg/application/services/production"
	"github.com/vsinha/batchledger/pkg/application/services/recipegraph"
	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/domain/repositories"
	"github.com/vsinha/batchledger/pkg/infrastructure/repositories/sqlstore"
	testhelpers "github.com/vsinha/batchledger/pkg/infrastructure/testing"
)

// openTestStore connects to the database named by MYSQL_DSN, recreates the
// schema and seeds the bakery scenario. The DSN should point at a scratch
// database: every table is emptied.
func openTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") == "" {
		t.Skip("set INTEGRATION_TESTS=1 and MYSQL_DSN to run MySQL tests")
	}
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		t.Skip("MYSQL_DSN not set")
	}

	store, err := sqlstore.Open(sqlstore.Config{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Truncate(ctx))
	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error {
		return testhelpers.SeedBakery(ctx, tx)
	}))
	return store
}

func TestSQLStore_ProductionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	svc := production.NewService(store, nil, nil, nil)

	result, err := svc.RecordProduction(ctx, production.RecordRequest{
		RecipeID:       "LAYER_CAKE",
		FinishedUnitID: "CAKE_EACH",
		NumBatches:     decimal.NewFromInt(1),
		ActualYield:    decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	assert.True(t, result.Record.IngredientCost.Equal(testhelpers.Dec("3.89")))

	stored, err := svc.GetProduction(ctx, result.Record.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Snapshot)
	assert.NoError(t, stored.Snapshot.Verify())

	draws, err := svc.ConsumptionsOf(ctx, result.Record.ID)
	require.NoError(t, err)
	assert.Len(t, draws, 6)
	assert.True(t, testhelpers.Remaining(t, ctx, store, "FLOUR").Equal(decimal.NewFromInt(197)))
}

func TestSQLStore_ShortfallRollsBack(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	svc := production.NewService(store, nil, nil, nil)

	_, err := svc.RecordProduction(ctx, production.RecordRequest{
		RecipeID:       "LAYER_CAKE",
		FinishedUnitID: "CAKE_EACH",
		NumBatches:     decimal.NewFromInt(20),
		ActualYield:    decimal.NewFromInt(20),
	})
	require.ErrorIs(t, err, entities.ErrInsufficientInventory)
	assert.True(t, testhelpers.Remaining(t, ctx, store, "BUTTER").Equal(decimal.NewFromInt(2000)))

	productions, err := svc.ListProductions(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, productions)
}

func TestSQLStore_ComponentValidation(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	graph := recipegraph.NewService(store, nil, nil)

	err := graph.AddComponent(ctx, "SPONGE", "LAYER_CAKE", decimal.NewFromInt(1), 0)
	assert.ErrorIs(t, err, entities.ErrStructural)

	require.NoError(t, store.View(ctx, func(tx repositories.Tx) error {
		edges, err := tx.ListComponentEdges(ctx)
		require.NoError(t, err)
		assert.Len(t, edges, 2)
		return nil
	}))
}
