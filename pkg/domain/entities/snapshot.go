package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotSchemaVersion is the payload layout written by this version
const SnapshotSchemaVersion = 1

// RecipeSnapshot is an immutable, serialized copy of a recipe as it was
// produced. It is created with its production record and never updated.
type RecipeSnapshot struct {
	ID            SnapshotID
	ProductionID  ProductionID
	RecipeID      RecipeID
	SchemaVersion int
	ScaleFactor   decimal.Decimal
	Payload       []byte
	Checksum      string
	IsBackfilled  bool
	CapturedAt    time.Time
}

// SnapshotPayload is the structured content of a snapshot blob
type SnapshotPayload struct {
	SchemaVersion int                  `json:"schema_version"`
	Recipe        SnapshotRecipe       `json:"recipe"`
	ScaleFactor   decimal.Decimal      `json:"scale_factor"`
	Ingredients   []SnapshotIngredient `json:"ingredients"`
}

// SnapshotRecipe holds the recipe's top-level attributes
type SnapshotRecipe struct {
	ID           RecipeID            `json:"id"`
	Name         string              `json:"name"`
	BaseRecipeID RecipeID            `json:"base_recipe_id,omitempty"`
	Ingredients  []SnapshotLine      `json:"ingredients"`
	Components   []SnapshotComponent `json:"components"`
}

// SnapshotLine is a per-batch ingredient line of the recipe itself
type SnapshotLine struct {
	IngredientID IngredientID    `json:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         Unit            `json:"unit"`
}

// SnapshotComponent is a per-batch component line of the recipe itself
type SnapshotComponent struct {
	RecipeID   RecipeID        `json:"recipe_id"`
	Multiplier decimal.Decimal `json:"multiplier"`
	SortOrder  int             `json:"sort_order"`
}

// SnapshotIngredient is one line of the fully expanded, scaled ingredient list
type SnapshotIngredient struct {
	IngredientID IngredientID    `json:"ingredient_id"`
	Unit         Unit            `json:"unit"`
	Quantity     decimal.Decimal `json:"quantity"`
	Sources      []RecipeID      `json:"sources,omitempty"`
}

// EncodeSnapshotPayload serializes a payload and returns it with its checksum
func EncodeSnapshotPayload(p *SnapshotPayload) ([]byte, string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode snapshot payload: %w", err)
	}
	return data, PayloadChecksum(data), nil
}

// PayloadChecksum is the hex sha256 of a payload blob
func PayloadChecksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Decode parses the payload blob
func (s *RecipeSnapshot) Decode() (*SnapshotPayload, error) {
	var p SnapshotPayload
	if err := json.Unmarshal(s.Payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", s.ID, err)
	}
	if p.SchemaVersion != s.SchemaVersion {
		return nil, fmt.Errorf("snapshot %s: payload schema %d does not match header %d",
			s.ID, p.SchemaVersion, s.SchemaVersion)
	}
	return &p, nil
}

// Verify checks the payload against its stored checksum
func (s *RecipeSnapshot) Verify() error {
	if got := PayloadChecksum(s.Payload); got != s.Checksum {
		return fmt.Errorf("snapshot %s checksum mismatch: stored %s, computed %s", s.ID, s.Checksum, got)
	}
	return nil
}
