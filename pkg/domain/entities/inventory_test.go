package entities

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestInventoryLot_Validation(t *testing.T) {
	acquired := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	validLot, err := NewInventoryLot(1, "KA-FLOUR-5LB", "FLOUR", decimal.NewFromInt(100), "Cup", decimal.RequireFromString("0.10"), acquired)
	if err != nil {
		t.Fatalf("Expected valid lot creation to succeed: %v", err)
	}
	if !validLot.QuantityRemaining.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected remaining 100, got %s", validLot.QuantityRemaining)
	}
	if validLot.Unit != "cup" {
		t.Errorf("Expected normalized unit cup, got %s", validLot.Unit)
	}

	testCases := []struct {
		name        string
		id          LotID
		ingredient  IngredientID
		quantity    decimal.Decimal
		unit        Unit
		cost        decimal.Decimal
		acquiredAt  time.Time
		expectError string
	}{
		{"zero id", 0, "FLOUR", decimal.NewFromInt(1), "cup", decimal.Zero, acquired, "invalid argument: lot id must be positive, got 0"},
		{"empty ingredient", 1, "", decimal.NewFromInt(1), "cup", decimal.Zero, acquired, "invalid argument: ingredient id cannot be empty"},
		{"zero quantity", 1, "FLOUR", decimal.Zero, "cup", decimal.Zero, acquired, "invalid argument: purchased quantity must be positive, got 0"},
		{"empty unit", 1, "FLOUR", decimal.NewFromInt(1), " ", decimal.Zero, acquired, "invalid argument: unit cannot be empty"},
		{"negative cost", 1, "FLOUR", decimal.NewFromInt(1), "cup", decimal.NewFromInt(-1), acquired, "invalid argument: cost per unit cannot be negative, got -1"},
		{"zero time", 1, "FLOUR", decimal.NewFromInt(1), "cup", decimal.Zero, time.Time{}, "invalid argument: acquired at cannot be zero"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewInventoryLot(tc.id, "P", tc.ingredient, tc.quantity, tc.unit, tc.cost, tc.acquiredAt)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("Expected ErrInvalidArgument, got %v", err)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestInventoryLot_Drain(t *testing.T) {
	lot, err := NewInventoryLot(7, "P", "SUGAR", decimal.NewFromInt(10), "g", decimal.RequireFromString("0.02"), time.Now())
	if err != nil {
		t.Fatalf("NewInventoryLot: %v", err)
	}

	if err := lot.Drain(decimal.NewFromInt(4)); err != nil {
		t.Fatalf("Expected drain to succeed: %v", err)
	}
	if !lot.QuantityRemaining.Equal(decimal.NewFromInt(6)) {
		t.Errorf("Expected 6 remaining, got %s", lot.QuantityRemaining)
	}

	err = lot.Drain(decimal.NewFromInt(7))
	if !errors.Is(err, ErrInsufficientInventory) {
		t.Fatalf("Expected overdraw to fail with ErrInsufficientInventory, got %v", err)
	}
	if !lot.QuantityRemaining.Equal(decimal.NewFromInt(6)) {
		t.Errorf("Failed drain must not change the lot, got %s", lot.QuantityRemaining)
	}

	if err := lot.Drain(decimal.NewFromInt(6)); err != nil {
		t.Fatalf("Expected full drain to succeed: %v", err)
	}
	if lot.IsOpen() || lot.Status() != LotDepleted {
		t.Errorf("Expected depleted lot, got %s", lot.Status())
	}
	if err := lot.Validate(); err != nil {
		t.Errorf("Expected depleted lot to validate: %v", err)
	}
}

func TestFIFOLess(t *testing.T) {
	day1 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	a := &InventoryLot{ID: 5, AcquiredAt: day1}
	b := &InventoryLot{ID: 2, AcquiredAt: day2}
	c := &InventoryLot{ID: 3, AcquiredAt: day1}

	if !FIFOLess(a, b) {
		t.Error("Expected older lot first regardless of id")
	}
	if !FIFOLess(c, a) {
		t.Error("Expected lower id first for identical acquisition time")
	}
	if FIFOLess(a, a) {
		t.Error("A lot is not less than itself")
	}
}

func TestPerUnitCostFor(t *testing.T) {
	cost := decimal.RequireFromString("17.50")

	if got := PerUnitCostFor(cost, decimal.NewFromInt(7)); !got.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("Expected 2.5, got %s", got)
	}
	if got := PerUnitCostFor(cost, decimal.Zero); !got.IsZero() {
		t.Errorf("Expected zero per-unit cost for zero yield, got %s", got)
	}
}
