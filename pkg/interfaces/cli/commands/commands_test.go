package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/batchledger/pkg/domain/repositories"
	"github.com/vsinha/batchledger/pkg/infrastructure/repositories/memory"
	testhelpers "github.com/vsinha/batchledger/pkg/infrastructure/testing"
)

// run executes one command line against store and returns stdout
func run(t *testing.T, store repositories.Store, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand(Options{Out: &out, ErrOut: &errOut, Store: store})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInventoryCommands(t *testing.T) {
	store := testhelpers.NewBakeryStore()

	out, err := run(t, store, "inventory", "available", "FLOUR")
	require.NoError(t, err)
	assert.Contains(t, out, "FLOUR available: 200")

	out, err = run(t, store, "inventory", "consume", "FLOUR", "150", "cup")
	require.NoError(t, err)
	assert.Contains(t, out, "would consume 150")
	assert.True(t, testhelpers.Remaining(t, context.Background(), store, "FLOUR").Equal(testhelpers.Dec("200")),
		"dry run must not draw down lots")

	out, err = run(t, store, "inventory", "deplete", "EGG", "6", "each", "--reason", "cracked")
	require.NoError(t, err)
	assert.Contains(t, out, "EGG consumed 6")

	out, err = run(t, store, "inventory", "receive", "EGG", "12", "0.30", "--acquired", "2025-01-05")
	require.NoError(t, err)
	assert.Contains(t, out, "2025-01-05")
	assert.Contains(t, out, "Open")

	out, err = run(t, store, "-f", "csv", "inventory", "lots", "EGG")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "lot,ingredient"))
}

func TestRecipeCommands(t *testing.T) {
	store := testhelpers.NewBakeryStore()

	out, err := run(t, store, "recipe", "ingredients", "LAYER_CAKE", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "SUGAR")
	assert.Contains(t, out, "FROSTING")

	out, err = run(t, store, "recipe", "tree", "LAYER_CAKE")
	require.NoError(t, err)
	assert.Contains(t, out, "    SPONGE (Sponge) x2")

	out, err = run(t, store, "-f", "json", "recipe", "aggregate", "CHOC_CHIP=2", "VANILLA_COOKIE=1")
	require.NoError(t, err)
	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	assert.NotEmpty(t, items)

	_, err = run(t, store, "recipe", "add-component", "SPONGE", "LAYER_CAKE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creates a cycle")

	_, err = run(t, store, "recipe", "aggregate", "CHOC_CHIP")
	assert.Error(t, err)

	out, err = run(t, store, "recipe", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "recipe graph is valid")
}

func TestProductionAndSnapshotCommands(t *testing.T) {
	store := testhelpers.NewBakeryStore()

	out, err := run(t, store, "production", "check", "LAYER_CAKE", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "CANNOT produce")

	out, err = run(t, store, "production", "record", "LAYER_CAKE", "1", "--unit", "CAKE_EACH", "--yield", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "cost:          3.89")

	_, err = run(t, store, "production", "record", "LAYER_CAKE", "1", "--unit", "COOKIE_2DOZ", "--yield", "1")
	assert.Error(t, err)

	out, err = run(t, store, "-f", "json", "production", "list")
	require.NoError(t, err)
	var prods []struct {
		Record struct {
			ID string
		}
	}
	require.NoError(t, json.Unmarshal([]byte(out), &prods))
	require.Len(t, prods, 1)
	id := prods[0].Record.ID

	out, err = run(t, store, "production", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "FLOUR")

	out, err = run(t, store, "snapshot", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "LAYER_CAKE")

	_, err = run(t, store, "snapshot", "backfill", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has a snapshot")
}

func TestLoadCommand(t *testing.T) {
	store := memory.NewStore()

	out, err := run(t, store, "load", "../../../infrastructure/repositories/csv/testdata/bakery")
	require.NoError(t, err)
	assert.Contains(t, out, "loaded 7 ingredients, 6 recipes, 2 components, 3 finished units, 8 lots")

	out, err = run(t, store, "inventory", "value", "FLOUR")
	require.NoError(t, err)
	assert.Contains(t, out, "FLOUR inventory value: 25")
}

func TestUnknownFormat(t *testing.T) {
	_, err := run(t, memory.NewStore(), "-f", "xml", "recipe", "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}
