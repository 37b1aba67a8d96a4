package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleReport() *entities.AvailabilityReport {
	return &entities.AvailabilityReport{
		RecipeID:      "LAYER_CAKE",
		NumBatches:    dec("10"),
		CanProduce:    false,
		EstimatedCost: dec("38.9"),
		Ingredients: []entities.IngredientAvailability{
			{IngredientID: "EGG", Unit: "each", Required: dec("60"), Available: dec("36"), Shortfall: dec("24"), EstimatedCost: dec("9")},
			{IngredientID: "MILK", Unit: "ml", Required: dec("1200"), Available: dec("1200"), Shortfall: decimal.Zero, Satisfied: true, EstimatedCost: dec("2.4")},
		},
	}
}

func TestNewPrinter_RejectsUnknownFormat(t *testing.T) {
	_, err := NewPrinter("yaml", nil)
	assert.Error(t, err)
}

func TestPrinter_AvailabilityFormats(t *testing.T) {
	testCases := []struct {
		format string
		check  func(t *testing.T, out string)
	}{
		{FormatText, func(t *testing.T, out string) {
			assert.True(t, strings.HasPrefix(out, "CANNOT produce 10 batch(es) of LAYER_CAKE"))
			assert.Contains(t, out, "EGG")
		}},
		{FormatCSV, func(t *testing.T, out string) {
			lines := strings.Split(strings.TrimSpace(out), "\n")
			require.Len(t, lines, 3)
			assert.Equal(t, "EGG,each,60,36,24,9", lines[1])
		}},
		{FormatJSON, func(t *testing.T, out string) {
			var decoded map[string]any
			require.NoError(t, json.Unmarshal([]byte(out), &decoded))
			assert.Equal(t, false, decoded["CanProduce"])
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.format, func(t *testing.T) {
			var buf bytes.Buffer
			p, err := NewPrinter(tc.format, &buf)
			require.NoError(t, err)
			require.NoError(t, p.Availability(sampleReport()))
			tc.check(t, buf.String())
		})
	}
}

func TestPrinter_ConsumptionShortfall(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter(FormatText, &buf)
	require.NoError(t, err)

	err = p.Consumption(&entities.ConsumptionResult{
		IngredientID: "EGG",
		Unit:         "each",
		Requested:    dec("40"),
		Consumed:     dec("36"),
		Shortfall:    dec("4"),
		TotalCost:    dec("9"),
		DryRun:       true,
		Breakdown: []entities.LotDraw{
			{LotID: 5, Quantity: dec("36"), LotQuantity: dec("36"), LotUnit: "each", CostPerUnit: dec("0.25"), Cost: dec("9")},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "EGG would consume 36 of 40 each (cost 9)")
	assert.Contains(t, buf.String(), "SHORT by 4 each")
}

func TestPrinter_MessageJSON(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter(FormatJSON, &buf)
	require.NoError(t, err)
	require.NoError(t, p.Message("loaded %d lots", 8))
	assert.JSONEq(t, `{"message":"loaded 8 lots"}`, buf.String())
}
