package sqlstore

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

type ingredientModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:255;not null"`
	StockUnit string `gorm:"size:32;not null"`
}

func (ingredientModel) TableName() string { return "ingredients" }

type lotModel struct {
	ID                int64           `gorm:"primaryKey;autoIncrement:false"`
	ProductID         string          `gorm:"size:64"`
	IngredientID      string          `gorm:"size:64;not null;index:idx_lots_fifo,priority:1"`
	AcquiredAt        time.Time       `gorm:"not null;index:idx_lots_fifo,priority:2"`
	QuantityPurchased decimal.Decimal `gorm:"type:decimal(36,16);not null"`
	QuantityRemaining decimal.Decimal `gorm:"type:decimal(36,16);not null"`
	Unit              string          `gorm:"size:32;not null"`
	CostPerUnit       decimal.Decimal `gorm:"type:decimal(36,16);not null"`
}

func (lotModel) TableName() string { return "inventory_lots" }

type consumptionModel struct {
	Seq                     uint64          `gorm:"primaryKey;autoIncrement"`
	ID                      string          `gorm:"size:36;uniqueIndex;not null"`
	EventKind               string          `gorm:"size:16;not null;index:idx_consumptions_event,priority:1"`
	EventID                 string          `gorm:"size:64;not null;index:idx_consumptions_event,priority:2"`
	LotID                   int64           `gorm:"not null;index"`
	IngredientID            string          `gorm:"size:64;not null"`
	QuantityConsumed        decimal.Decimal `gorm:"type:decimal(36,16);not null"`
	Unit                    string          `gorm:"size:32;not null"`
	CostPerUnit             decimal.Decimal `gorm:"type:decimal(36,16);not null"`
	RequestedUnit           string          `gorm:"size:32;not null"`
	QuantityInRequestedUnit decimal.Decimal `gorm:"type:decimal(36,16);not null"`
	ConsumedAt              time.Time       `gorm:"not null"`
}

func (consumptionModel) TableName() string { return "consumption_records" }

type recipeModel struct {
	ID           string `gorm:"primaryKey;size:64"`
	Name         string `gorm:"size:255;not null"`
	BaseRecipeID string `gorm:"size:64;index"`
}

func (recipeModel) TableName() string { return "recipes" }

type recipeIngredientModel struct {
	RecipeID     string          `gorm:"primaryKey;size:64"`
	Position     int             `gorm:"primaryKey;autoIncrement:false"`
	IngredientID string          `gorm:"size:64;not null"`
	Quantity     decimal.Decimal `gorm:"type:decimal(36,16);not null"`
	Unit         string          `gorm:"size:32;not null"`
}

func (recipeIngredientModel) TableName() string { return "recipe_ingredients" }

type recipeComponentModel struct {
	ParentID   string          `gorm:"primaryKey;size:64"`
	ChildID    string          `gorm:"primaryKey;size:64;index"`
	Multiplier decimal.Decimal `gorm:"type:decimal(36,16);not null"`
	SortOrder  int             `gorm:"not null;default:0"`
}

func (recipeComponentModel) TableName() string { return "recipe_components" }

type finishedUnitModel struct {
	ID            string          `gorm:"primaryKey;size:64"`
	RecipeID      string          `gorm:"size:64;not null;index"`
	Name          string          `gorm:"size:255;not null"`
	ItemsPerBatch decimal.Decimal `gorm:"type:decimal(36,16);not null"`
	OnHand        decimal.Decimal `gorm:"type:decimal(36,16);not null;default:0"`
}

func (finishedUnitModel) TableName() string { return "finished_units" }

type productionModel struct {
	ID             string          `gorm:"primaryKey;size:36"`
	RecipeID       string          `gorm:"size:64;not null;index"`
	FinishedUnitID string          `gorm:"size:64;not null"`
	NumBatches     decimal.Decimal `gorm:"type:decimal(36,16);not null"`
	ExpectedYield  decimal.Decimal `gorm:"type:decimal(36,16);not null"`
	ActualYield    decimal.Decimal `gorm:"type:decimal(36,16);not null"`
	IngredientCost decimal.Decimal `gorm:"type:decimal(36,16);not null"`
	PerUnitCost    decimal.Decimal `gorm:"type:decimal(36,16);not null"`
	Notes          string          `gorm:"type:text"`
	ProducedAt     time.Time       `gorm:"not null;index"`
}

func (productionModel) TableName() string { return "production_records" }

type snapshotModel struct {
	ProductionID  string          `gorm:"primaryKey;size:36"`
	ID            string          `gorm:"size:36;uniqueIndex;not null"`
	RecipeID      string          `gorm:"size:64;not null;index"`
	SchemaVersion int             `gorm:"not null"`
	ScaleFactor   decimal.Decimal `gorm:"type:decimal(36,16);not null"`
	Payload       []byte          `gorm:"type:longblob;not null"`
	Checksum      string          `gorm:"size:64;not null"`
	IsBackfilled  bool            `gorm:"not null;default:false"`
	CapturedAt    time.Time       `gorm:"not null"`
}

func (snapshotModel) TableName() string { return "recipe_snapshots" }

type counterModel struct {
	Name  string `gorm:"primaryKey;size:32"`
	Value int64  `gorm:"not null"`
}

func (counterModel) TableName() string { return "counters" }

func allModels() []any {
	return []any{
		&ingredientModel{},
		&lotModel{},
		&consumptionModel{},
		&recipeModel{},
		&recipeIngredientModel{},
		&recipeComponentModel{},
		&finishedUnitModel{},
		&productionModel{},
		&snapshotModel{},
		&counterModel{},
	}
}

func toIngredient(m *ingredientModel) *entities.Ingredient {
	return &entities.Ingredient{
		ID:        entities.IngredientID(m.ID),
		Name:      m.Name,
		StockUnit: entities.Unit(m.StockUnit),
	}
}

func toLot(m *lotModel) *entities.InventoryLot {
	return &entities.InventoryLot{
		ID:                entities.LotID(m.ID),
		ProductID:         entities.ProductID(m.ProductID),
		IngredientID:      entities.IngredientID(m.IngredientID),
		QuantityPurchased: m.QuantityPurchased,
		QuantityRemaining: m.QuantityRemaining,
		Unit:              entities.Unit(m.Unit),
		CostPerUnit:       m.CostPerUnit,
		AcquiredAt:        m.AcquiredAt.UTC(),
	}
}

func fromLot(l *entities.InventoryLot) *lotModel {
	return &lotModel{
		ID:                int64(l.ID),
		ProductID:         string(l.ProductID),
		IngredientID:      string(l.IngredientID),
		AcquiredAt:        l.AcquiredAt,
		QuantityPurchased: l.QuantityPurchased,
		QuantityRemaining: l.QuantityRemaining,
		Unit:              string(l.Unit),
		CostPerUnit:       l.CostPerUnit,
	}
}

func toConsumption(m *consumptionModel) *entities.ConsumptionRecord {
	return &entities.ConsumptionRecord{
		ID:                      entities.ConsumptionID(m.ID),
		Event:                   entities.EventRef{Kind: entities.EventKind(m.EventKind), ID: m.EventID},
		LotID:                   entities.LotID(m.LotID),
		IngredientID:            entities.IngredientID(m.IngredientID),
		QuantityConsumed:        m.QuantityConsumed,
		Unit:                    entities.Unit(m.Unit),
		CostPerUnit:             m.CostPerUnit,
		RequestedUnit:           entities.Unit(m.RequestedUnit),
		QuantityInRequestedUnit: m.QuantityInRequestedUnit,
		ConsumedAt:              m.ConsumedAt.UTC(),
	}
}

func fromConsumption(r *entities.ConsumptionRecord) *consumptionModel {
	return &consumptionModel{
		ID:                      string(r.ID),
		EventKind:               string(r.Event.Kind),
		EventID:                 r.Event.ID,
		LotID:                   int64(r.LotID),
		IngredientID:            string(r.IngredientID),
		QuantityConsumed:        r.QuantityConsumed,
		Unit:                    string(r.Unit),
		CostPerUnit:             r.CostPerUnit,
		RequestedUnit:           string(r.RequestedUnit),
		QuantityInRequestedUnit: r.QuantityInRequestedUnit,
		ConsumedAt:              r.ConsumedAt,
	}
}

func toFinishedUnit(m *finishedUnitModel) *entities.FinishedUnit {
	return &entities.FinishedUnit{
		ID:            entities.FinishedUnitID(m.ID),
		RecipeID:      entities.RecipeID(m.RecipeID),
		Name:          m.Name,
		ItemsPerBatch: m.ItemsPerBatch,
		OnHand:        m.OnHand,
	}
}

func toProduction(m *productionModel) *entities.ProductionRecord {
	return &entities.ProductionRecord{
		ID:             entities.ProductionID(m.ID),
		RecipeID:       entities.RecipeID(m.RecipeID),
		FinishedUnitID: entities.FinishedUnitID(m.FinishedUnitID),
		NumBatches:     m.NumBatches,
		ExpectedYield:  m.ExpectedYield,
		ActualYield:    m.ActualYield,
		IngredientCost: m.IngredientCost,
		PerUnitCost:    m.PerUnitCost,
		Notes:          m.Notes,
		ProducedAt:     m.ProducedAt.UTC(),
	}
}

func fromProduction(r *entities.ProductionRecord) *productionModel {
	return &productionModel{
		ID:             string(r.ID),
		RecipeID:       string(r.RecipeID),
		FinishedUnitID: string(r.FinishedUnitID),
		NumBatches:     r.NumBatches,
		ExpectedYield:  r.ExpectedYield,
		ActualYield:    r.ActualYield,
		IngredientCost: r.IngredientCost,
		PerUnitCost:    r.PerUnitCost,
		Notes:          r.Notes,
		ProducedAt:     r.ProducedAt,
	}
}

func toSnapshot(m *snapshotModel) *entities.RecipeSnapshot {
	return &entities.RecipeSnapshot{
		ID:            entities.SnapshotID(m.ID),
		ProductionID:  entities.ProductionID(m.ProductionID),
		RecipeID:      entities.RecipeID(m.RecipeID),
		SchemaVersion: m.SchemaVersion,
		ScaleFactor:   m.ScaleFactor,
		Payload:       m.Payload,
		Checksum:      m.Checksum,
		IsBackfilled:  m.IsBackfilled,
		CapturedAt:    m.CapturedAt.UTC(),
	}
}

func fromSnapshot(s *entities.RecipeSnapshot) *snapshotModel {
	return &snapshotModel{
		ProductionID:  string(s.ProductionID),
		ID:            string(s.ID),
		RecipeID:      string(s.RecipeID),
		SchemaVersion: s.SchemaVersion,
		ScaleFactor:   s.ScaleFactor,
		Payload:       s.Payload,
		Checksum:      s.Checksum,
		IsBackfilled:  s.IsBackfilled,
		CapturedAt:    s.CapturedAt,
	}
}
