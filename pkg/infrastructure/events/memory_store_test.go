package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

func TestInMemoryEventStore_PublishAndRead(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryEventStore(nil)

	lot := &entities.InventoryLot{ID: 1, IngredientID: "FLOUR", QuantityPurchased: decimal.NewFromInt(5), AcquiredAt: time.Now()}
	if err := store.Publish(ctx, NewLotReceivedEvent(lot)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := store.Publish(ctx, NewLotReceivedEvent(lot)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	stream, err := store.ReadStream("ingredient-FLOUR", 1)
	if err != nil {
		t.Fatalf("ReadStream: %v", err)
	}
	if len(stream) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(stream))
	}
	if stream[1].Version() != 2 {
		t.Errorf("Expected second event to have version 2, got %d", stream[1].Version())
	}

	all, _ := store.ReadAll(1)
	if len(all) != 1 {
		t.Errorf("Expected 1 event from position 1, got %d", len(all))
	}
}

func TestInMemoryEventStore_Subscribers(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryEventStore(nil)

	var seen []string
	handler := &HandlerFunc{
		Types: []string{ProductionRecordedEvent},
		Fn: func(ctx context.Context, e Event) error {
			seen = append(seen, e.StreamID())
			return errors.New("handler errors are logged, not returned")
		},
	}
	if err := store.Subscribe([]string{ProductionRecordedEvent}, handler); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	record := &entities.ProductionRecord{ID: "P1", RecipeID: "BREAD"}
	if err := store.Publish(ctx, NewProductionRecordedEvent(record)); err != nil {
		t.Fatalf("Expected handler error to be swallowed, got %v", err)
	}
	if len(seen) != 1 || seen[0] != "recipe-BREAD" {
		t.Errorf("Expected handler to see recipe-BREAD, got %v", seen)
	}

	_ = store.Unsubscribe(handler)
	_ = store.Publish(ctx, NewProductionRecordedEvent(record))
	if len(seen) != 1 {
		t.Errorf("Expected no delivery after unsubscribe, got %d", len(seen))
	}
}
