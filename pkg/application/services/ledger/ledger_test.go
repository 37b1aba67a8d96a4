package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/domain/repositories"
	testhelpers "github.com/vsinha/batchledger/pkg/infrastructure/testing"
)

func consume(t *testing.T, store repositories.Store, l *Ledger, req ConsumeRequest) *entities.ConsumptionResult {
	t.Helper()
	var result *entities.ConsumptionResult
	require.NoError(t, store.Update(context.Background(), func(tx repositories.Tx) error {
		var err error
		result, err = l.Consume(context.Background(), tx, req)
		return err
	}))
	return result
}

func production(id string) entities.EventRef {
	return entities.EventRef{Kind: entities.EventProduction, ID: id}
}

func TestConsume_FIFOCost(t *testing.T) {
	store := testhelpers.NewBakeryStore()
	l := New(nil)

	result := consume(t, store, l, ConsumeRequest{
		IngredientID: "FLOUR",
		Quantity:     decimal.NewFromInt(150),
		Unit:         "cup",
		Event:        production("P1"),
	})

	require.True(t, result.Satisfied)
	assert.True(t, result.TotalCost.Equal(testhelpers.Dec("17.50")), "got %s", result.TotalCost)
	assert.True(t, result.Shortfall.IsZero())
	require.Len(t, result.Breakdown, 2)
	assert.Equal(t, entities.LotID(1), result.Breakdown[0].LotID)
	assert.True(t, result.Breakdown[0].Quantity.Equal(decimal.NewFromInt(100)))
	assert.True(t, result.Breakdown[0].Cost.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, entities.LotID(2), result.Breakdown[1].LotID)
	assert.True(t, result.Breakdown[1].Quantity.Equal(decimal.NewFromInt(50)))

	assert.True(t, testhelpers.Remaining(t, context.Background(), store, "FLOUR").Equal(decimal.NewFromInt(50)))
}

func TestConsume_DryRunReservations(t *testing.T) {
	ctx := context.Background()
	store := testhelpers.NewBakeryStore()
	l := New(nil)
	reserved := make(Reservations)

	require.NoError(t, store.View(ctx, func(tx repositories.Tx) error {
		cups, err := l.Consume(ctx, tx, ConsumeRequest{IngredientID: "FLOUR", Quantity: decimal.NewFromInt(150), Unit: "cup", DryRun: true, Reserved: reserved})
		require.NoError(t, err)
		assert.True(t, cups.Satisfied)
		assert.True(t, reserved[1].Equal(decimal.NewFromInt(100)))
		assert.True(t, reserved[2].Equal(decimal.NewFromInt(50)))

		// only the 50 cups left after the first run count, about 11829 ml
		ml, err := l.Consume(ctx, tx, ConsumeRequest{IngredientID: "FLOUR", Quantity: decimal.NewFromInt(15000), Unit: "ml", DryRun: true, Reserved: reserved})
		require.NoError(t, err)
		assert.False(t, ml.Satisfied)
		require.Len(t, ml.Breakdown, 1)
		assert.Equal(t, entities.LotID(2), ml.Breakdown[0].LotID)
		assert.True(t, ml.Breakdown[0].LotQuantity.Equal(decimal.NewFromInt(50)))
		assert.True(t, reserved[2].Equal(decimal.NewFromInt(100)))
		return nil
	}))
	assert.True(t, testhelpers.Remaining(t, ctx, store, "FLOUR").Equal(decimal.NewFromInt(200)))
}

func TestConsume_DryRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := testhelpers.NewBakeryStore()
	l := New(nil)
	req := ConsumeRequest{IngredientID: "FLOUR", Quantity: decimal.NewFromInt(150), Unit: "cup", DryRun: true}

	var first *entities.ConsumptionResult
	for i := 0; i < 3; i++ {
		require.NoError(t, store.View(ctx, func(tx repositories.Tx) error {
			result, err := l.Consume(ctx, tx, req)
			require.NoError(t, err)
			if first == nil {
				first = result
			} else {
				assert.Equal(t, first, result)
			}
			return nil
		}))
	}
	assert.True(t, first.DryRun)
	assert.True(t, first.TotalCost.Equal(testhelpers.Dec("17.50")))
	assert.True(t, testhelpers.Remaining(t, ctx, store, "FLOUR").Equal(decimal.NewFromInt(200)))

	// the real run produces the same numbers as the preview
	req.DryRun = false
	req.Event = production("P1")
	committed := consume(t, store, l, req)
	assert.Equal(t, first.Breakdown, committed.Breakdown)
	assert.True(t, first.TotalCost.Equal(committed.TotalCost))
}

func TestConsume_ShortfallIsData(t *testing.T) {
	store := testhelpers.NewBakeryStore()
	l := New(nil)

	result := consume(t, store, l, ConsumeRequest{
		IngredientID: "FLOUR",
		Quantity:     decimal.NewFromInt(250),
		Unit:         "cup",
		Event:        production("P1"),
	})

	assert.False(t, result.Satisfied)
	assert.True(t, result.Shortfall.Equal(decimal.NewFromInt(50)))
	assert.True(t, result.Consumed.Equal(decimal.NewFromInt(200)))
	assert.True(t, result.TotalCost.Equal(decimal.NewFromInt(25)))

	insufficient := result.InsufficientError()
	assert.ErrorIs(t, insufficient, entities.ErrInsufficientInventory)
	assert.Equal(t, "insufficient inventory for FLOUR: need 250 cup, short 50 cup", insufficient.Error())
}

func TestConsume_Conservation(t *testing.T) {
	ctx := context.Background()
	store := testhelpers.NewBakeryStore()
	l := New(nil)

	initial := testhelpers.Remaining(t, ctx, store, "FLOUR")
	amounts := []string{"12.5", "0.333", "87.167", "40", "1", "75"}
	var refs []entities.EventRef
	for i, amount := range amounts {
		ref := production(fmt.Sprintf("P%d", i))
		refs = append(refs, ref)
		consume(t, store, l, ConsumeRequest{IngredientID: "FLOUR", Quantity: testhelpers.Dec(amount), Unit: "cup", Event: ref})
	}
	final := testhelpers.Remaining(t, ctx, store, "FLOUR")

	consumed := decimal.Zero
	require.NoError(t, store.View(ctx, func(tx repositories.Tx) error {
		for _, ref := range refs {
			records, err := tx.ListConsumptions(ctx, ref)
			require.NoError(t, err)
			for _, rec := range records {
				consumed = consumed.Add(rec.QuantityConsumed)
			}
		}
		return nil
	}))

	assert.True(t, consumed.Equal(initial.Sub(final)), "consumed %s, initial %s, final %s", consumed, initial, final)
	assert.True(t, final.IsZero(), "the last request overdraws, so everything is gone")
}

func TestConsume_ConvertsPerLot(t *testing.T) {
	ctx := context.Background()
	store := testhelpers.NewBakeryStore()
	l := New(nil)

	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error {
		// vanilla bought by the tablespoon and by weight; weight cannot become tsp
		if _, err := testhelpers.InsertLot(ctx, tx, testhelpers.LotSpec{Ingredient: "VANILLA", Quantity: "5", Unit: "g", Cost: "1", Acquired: testhelpers.Day(1).Add(-1)}); err != nil {
			return err
		}
		_, err := testhelpers.InsertLot(ctx, tx, testhelpers.LotSpec{Ingredient: "VANILLA", Quantity: "2", Unit: "tbsp", Cost: "0.30", Acquired: testhelpers.Day(3)})
		return err
	}))

	// 48 tsp from the day-1 lot, then 3 tsp (1 tbsp) from the tbsp lot
	result := consume(t, store, l, ConsumeRequest{IngredientID: "VANILLA", Quantity: decimal.NewFromInt(51), Unit: "tsp", Event: production("P1")})

	require.True(t, result.Satisfied)
	assert.Len(t, result.Skipped, 1)
	require.Len(t, result.Breakdown, 2)
	draw := result.Breakdown[1]
	assert.Equal(t, entities.Unit("tbsp"), draw.LotUnit)
	assert.True(t, draw.Quantity.Equal(decimal.NewFromInt(3)))
	assert.True(t, draw.LotQuantity.Round(6).Equal(decimal.NewFromInt(1)), "got %s", draw.LotQuantity)
	assert.True(t, result.TotalCost.Round(6).Equal(testhelpers.Dec("2.70")), "got %s", result.TotalCost)
}

func TestConsume_TiesBrokenByLotID(t *testing.T) {
	ctx := context.Background()
	store := testhelpers.NewBakeryStore()
	l := New(nil)

	var cheap, dear entities.LotID
	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error {
		a, err := testhelpers.InsertLot(ctx, tx, testhelpers.LotSpec{Ingredient: "COCOA", Quantity: "10", Unit: "g", Cost: "0.01", Acquired: testhelpers.Day(0)})
		if err != nil {
			return err
		}
		b, err := testhelpers.InsertLot(ctx, tx, testhelpers.LotSpec{Ingredient: "COCOA", Quantity: "10", Unit: "g", Cost: "0.09", Acquired: testhelpers.Day(0)})
		cheap, dear = a.ID, b.ID
		return err
	}))

	result := consume(t, store, l, ConsumeRequest{IngredientID: "COCOA", Quantity: decimal.NewFromInt(15), Unit: "g", Event: production("P1")})
	require.Len(t, result.Breakdown, 2)
	assert.Equal(t, cheap, result.Breakdown[0].LotID)
	assert.Equal(t, dear, result.Breakdown[1].LotID)
}

func TestConsume_Errors(t *testing.T) {
	ctx := context.Background()
	store := testhelpers.NewBakeryStore()
	l := New(nil)

	testCases := []struct {
		name     string
		req      ConsumeRequest
		sentinel error
	}{
		{"unknown ingredient", ConsumeRequest{IngredientID: "SAFFRON", Quantity: decimal.NewFromInt(1), Unit: "g", DryRun: true}, entities.ErrNotFound},
		{"zero quantity", ConsumeRequest{IngredientID: "FLOUR", Quantity: decimal.Zero, Unit: "cup", DryRun: true}, entities.ErrInvalidArgument},
		{"negative quantity", ConsumeRequest{IngredientID: "FLOUR", Quantity: decimal.NewFromInt(-1), Unit: "cup", DryRun: true}, entities.ErrInvalidArgument},
		{"missing unit", ConsumeRequest{IngredientID: "FLOUR", Quantity: decimal.NewFromInt(1), DryRun: true}, entities.ErrInvalidArgument},
		{"real run without event", ConsumeRequest{IngredientID: "FLOUR", Quantity: decimal.NewFromInt(1), Unit: "cup"}, entities.ErrInvalidArgument},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.Update(ctx, func(tx repositories.Tx) error {
				_, err := l.Consume(ctx, tx, tc.req)
				return err
			})
			assert.ErrorIs(t, err, tc.sentinel)
		})
	}
}

func TestQueryAvailable(t *testing.T) {
	ctx := context.Background()
	store := testhelpers.NewBakeryStore()
	l := New(nil)

	require.NoError(t, store.View(ctx, func(tx repositories.Tx) error {
		total, err := l.QueryAvailable(ctx, tx, "FLOUR", "")
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(200)))

		_, err = l.QueryAvailable(ctx, tx, "FLOUR", "g")
		var unitErr *entities.UnitIncompatibleError
		require.ErrorAs(t, err, &unitErr)
		assert.Equal(t, entities.Unit("cup"), unitErr.From)

		_, err = l.QueryAvailable(ctx, tx, "SAFFRON", "g")
		assert.ErrorIs(t, err, entities.ErrNotFound)

		value, err := l.InventoryValue(ctx, tx, "FLOUR")
		require.NoError(t, err)
		assert.True(t, value.Equal(decimal.NewFromInt(25)))
		return nil
	}))
}

func TestRecordDepletion_RollsBackOnShortfall(t *testing.T) {
	ctx := context.Background()
	store := testhelpers.NewBakeryStore()
	l := New(nil)

	err := store.Update(ctx, func(tx repositories.Tx) error {
		_, err := l.RecordDepletion(ctx, tx, DepletionRequest{IngredientID: "EGG", Quantity: decimal.NewFromInt(40), Unit: "each", Reason: "dropped tray"})
		return err
	})
	assert.ErrorIs(t, err, entities.ErrInsufficientInventory)
	assert.True(t, testhelpers.Remaining(t, ctx, store, "EGG").Equal(decimal.NewFromInt(36)))

	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error {
		result, err := l.RecordDepletion(ctx, tx, DepletionRequest{IngredientID: "EGG", Quantity: decimal.NewFromInt(6), Unit: "each", Reason: "cracked"})
		require.NoError(t, err)
		assert.Equal(t, entities.EventDepletion, result.Event.Kind)
		return nil
	}))
	assert.True(t, testhelpers.Remaining(t, ctx, store, "EGG").Equal(decimal.NewFromInt(30)))
}

func TestReceiveLot(t *testing.T) {
	ctx := context.Background()
	store := testhelpers.NewBakeryStore()
	l := New(nil)

	require.NoError(t, store.Update(ctx, func(tx repositories.Tx) error {
		lot, err := l.ReceiveLot(ctx, tx, NewLotInput{IngredientID: "MILK", Quantity: decimal.NewFromInt(1000), CostPerUnit: testhelpers.Dec("0.003")})
		require.NoError(t, err)
		assert.Equal(t, entities.Unit("ml"), lot.Unit, "defaults to stock unit")
		assert.False(t, lot.AcquiredAt.IsZero())
		assert.Greater(t, int64(lot.ID), int64(len(testhelpers.BakeryLots())))

		_, err = l.ReceiveLot(ctx, tx, NewLotInput{IngredientID: "SAFFRON", Quantity: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, entities.ErrNotFound)

		_, err = l.ReceiveLot(ctx, tx, NewLotInput{IngredientID: "MILK", Quantity: decimal.Zero})
		assert.ErrorIs(t, err, entities.ErrInvalidArgument)
		return nil
	}))
}
