package entities

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestComponentEdge_Validation(t *testing.T) {
	edge, err := NewComponentEdge("CAKE", "FROSTING", decimal.RequireFromString("0.5"), 1)
	if err != nil {
		t.Fatalf("Expected valid edge creation to succeed: %v", err)
	}
	if !edge.Multiplier.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("Expected multiplier 0.5, got %s", edge.Multiplier)
	}

	testCases := []struct {
		name        string
		parent      RecipeID
		child       RecipeID
		multiplier  decimal.Decimal
		sortOrder   int
		expectError string
	}{
		{"empty parent", "", "B", decimal.NewFromInt(1), 0, "parent recipe id cannot be empty"},
		{"empty child", "A", "", decimal.NewFromInt(1), 0, "child recipe id cannot be empty"},
		{"zero multiplier", "A", "B", decimal.Zero, 0, "component multiplier must be positive, got 0"},
		{"negative multiplier", "A", "B", decimal.NewFromInt(-2), 0, "component multiplier must be positive, got -2"},
		{"negative order", "A", "B", decimal.NewFromInt(1), -1, "sort order cannot be negative, got -1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewComponentEdge(tc.parent, tc.child, tc.multiplier, tc.sortOrder)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if !strings.HasSuffix(err.Error(), tc.expectError) {
				t.Errorf("Expected error ending '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestRecipe_SortedComponentsAndClone(t *testing.T) {
	recipe := &Recipe{
		ID:   "CAKE",
		Name: "Layer Cake",
		Components: []RecipeComponent{
			{ChildID: "SYRUP", Multiplier: decimal.NewFromInt(1), SortOrder: 2},
			{ChildID: "SPONGE", Multiplier: decimal.NewFromInt(2), SortOrder: 1},
			{ChildID: "FROSTING", Multiplier: decimal.NewFromInt(1), SortOrder: 2},
		},
	}

	sorted := recipe.SortedComponents()
	want := []RecipeID{"SPONGE", "FROSTING", "SYRUP"}
	for i, id := range want {
		if sorted[i].ChildID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, sorted[i].ChildID)
		}
	}
	if recipe.Components[0].ChildID != "SYRUP" {
		t.Error("SortedComponents must not reorder the recipe itself")
	}

	clone := recipe.Clone()
	clone.Components[0].ChildID = "CHANGED"
	if recipe.Components[0].ChildID != "SYRUP" {
		t.Error("Clone must not share component storage")
	}
	if !recipe.HasComponent("FROSTING") || recipe.HasComponent("CHANGED") {
		t.Error("HasComponent returned the wrong answer")
	}
}

func TestNewRecipe_RejectsSelfVariant(t *testing.T) {
	_, err := NewRecipe("DOUGH", "Dough", "DOUGH", nil)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestTypedErrors(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		sentinel error
		message  string
	}{
		{"not found", NewNotFound("recipe", "X"), ErrNotFound, "recipe not found: X"},
		{
			"cycle",
			&StructuralError{Rule: RuleCycle, ParentID: "A", ChildID: "B", Path: []RecipeID{"B", "C", "A"}},
			ErrStructural,
			"adding B to A creates a cycle: B -> C -> A",
		},
		{
			"depth",
			&StructuralError{Rule: RuleDepthExceeded, ParentID: "C", ChildID: "D", Depth: 4, Limit: 3},
			ErrStructural,
			"adding D to C nests 4 levels deep, limit is 3",
		},
		{
			"shortfall",
			&InsufficientInventoryError{IngredientID: "FLOUR", Unit: "cup", Required: decimal.NewFromInt(10), Shortfall: decimal.RequireFromString("2.12345")},
			ErrInsufficientInventory,
			"insufficient inventory for FLOUR: need 10 cup, short 2.123 cup",
		},
		{"unit", &UnitIncompatibleError{IngredientID: "EGG", From: "each", To: "g"}, ErrUnitIncompatible, "cannot convert each to g for ingredient EGG"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.sentinel) {
				t.Errorf("Expected %v to match sentinel %v", tc.err, tc.sentinel)
			}
			if tc.err.Error() != tc.message {
				t.Errorf("Expected message '%s', got '%s'", tc.message, tc.err.Error())
			}
		})
	}
}

func TestRecipeSnapshot_DecodeAndVerify(t *testing.T) {
	payload := &SnapshotPayload{
		SchemaVersion: SnapshotSchemaVersion,
		Recipe:        SnapshotRecipe{ID: "BREAD", Name: "Bread"},
		ScaleFactor:   decimal.NewFromInt(3),
		Ingredients: []SnapshotIngredient{
			{IngredientID: "FLOUR", Unit: "g", Quantity: decimal.RequireFromString("1500.125")},
		},
	}
	data, sum, err := EncodeSnapshotPayload(payload)
	if err != nil {
		t.Fatalf("EncodeSnapshotPayload: %v", err)
	}

	snap := &RecipeSnapshot{
		ID:            "S1",
		SchemaVersion: SnapshotSchemaVersion,
		Payload:       data,
		Checksum:      sum,
		CapturedAt:    time.Now(),
	}
	if err := snap.Verify(); err != nil {
		t.Fatalf("Expected checksum to verify: %v", err)
	}

	decoded, err := snap.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Recipe.ID != "BREAD" || !decoded.Ingredients[0].Quantity.Equal(decimal.RequireFromString("1500.125")) {
		t.Errorf("Decoded payload does not match: %+v", decoded)
	}

	snap.Payload = append([]byte(nil), data...)
	snap.Payload[len(snap.Payload)-2] = ' '
	if err := snap.Verify(); err == nil {
		t.Error("Expected tampered payload to fail verification")
	}
}
