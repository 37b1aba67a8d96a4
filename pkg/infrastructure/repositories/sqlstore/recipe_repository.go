package sqlstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

func (t *tx) GetRecipe(ctx context.Context, id entities.RecipeID) (*entities.Recipe, error) {
	recipes, err := t.GetRecipes(ctx, []entities.RecipeID{id})
	if err != nil {
		return nil, err
	}
	recipe, ok := recipes[id]
	if !ok {
		return nil, entities.NewNotFound("recipe", id)
	}
	return recipe, nil
}

// GetRecipes loads recipes with their lines and components in three queries
func (t *tx) GetRecipes(ctx context.Context, ids []entities.RecipeID) (map[entities.RecipeID]*entities.Recipe, error) {
	if len(ids) == 0 {
		return map[entities.RecipeID]*entities.Recipe{}, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, string(id))
	}
	return t.loadRecipes(
		t.db.Where("id IN ?", keys),
		t.db.Where("recipe_id IN ?", keys),
		t.db.Where("parent_id IN ?", keys),
	)
}

func (t *tx) ListRecipes(ctx context.Context) ([]*entities.Recipe, error) {
	byID, err := t.loadRecipes(t.db, t.db, t.db)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.Recipe, 0, len(byID))
	for _, recipe := range byID {
		out = append(out, recipe)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) loadRecipes(recipeQ, lineQ, componentQ *gorm.DB) (map[entities.RecipeID]*entities.Recipe, error) {
	var recipes []recipeModel
	if err := recipeQ.Find(&recipes).Error; err != nil {
		return nil, err
	}
	var lines []recipeIngredientModel
	if err := lineQ.Order("recipe_id, position").Find(&lines).Error; err != nil {
		return nil, err
	}
	var components []recipeComponentModel
	if err := componentQ.Order("parent_id, sort_order, child_id").Find(&components).Error; err != nil {
		return nil, err
	}

	out := make(map[entities.RecipeID]*entities.Recipe, len(recipes))
	for _, m := range recipes {
		out[entities.RecipeID(m.ID)] = &entities.Recipe{
			ID:           entities.RecipeID(m.ID),
			Name:         m.Name,
			BaseRecipeID: entities.RecipeID(m.BaseRecipeID),
		}
	}
	for _, l := range lines {
		if r, ok := out[entities.RecipeID(l.RecipeID)]; ok {
			r.Ingredients = append(r.Ingredients, entities.RecipeIngredient{
				IngredientID: entities.IngredientID(l.IngredientID),
				Quantity:     l.Quantity,
				Unit:         entities.Unit(l.Unit),
			})
		}
	}
	for _, c := range components {
		if r, ok := out[entities.RecipeID(c.ParentID)]; ok {
			r.Components = append(r.Components, entities.RecipeComponent{
				ChildID:    entities.RecipeID(c.ChildID),
				Multiplier: c.Multiplier,
				SortOrder:  c.SortOrder,
			})
		}
	}
	return out, nil
}

// SaveRecipe upserts the recipe row and replaces its ingredient lines.
// Component rows are left alone.
func (t *tx) SaveRecipe(ctx context.Context, recipe *entities.Recipe) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	m := recipeModel{ID: string(recipe.ID), Name: recipe.Name, BaseRecipeID: string(recipe.BaseRecipeID)}
	if err := t.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error; err != nil {
		return err
	}
	if err := t.db.Where("recipe_id = ?", m.ID).Delete(&recipeIngredientModel{}).Error; err != nil {
		return err
	}
	if len(recipe.Ingredients) == 0 {
		return nil
	}
	lines := make([]recipeIngredientModel, 0, len(recipe.Ingredients))
	for i, line := range recipe.Ingredients {
		lines = append(lines, recipeIngredientModel{
			RecipeID:     m.ID,
			Position:     i,
			IngredientID: string(line.IngredientID),
			Quantity:     line.Quantity,
			Unit:         string(line.Unit),
		})
	}
	return t.db.Create(&lines).Error
}

func (t *tx) ListComponentEdges(ctx context.Context) ([]entities.ComponentEdge, error) {
	var rows []recipeComponentModel
	if err := t.db.Order("parent_id, sort_order, child_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	edges := make([]entities.ComponentEdge, 0, len(rows))
	for _, c := range rows {
		edges = append(edges, entities.ComponentEdge{
			ParentID:   entities.RecipeID(c.ParentID),
			ChildID:    entities.RecipeID(c.ChildID),
			Multiplier: c.Multiplier,
			SortOrder:  c.SortOrder,
		})
	}
	return edges, nil
}

func (t *tx) AddComponent(ctx context.Context, edge entities.ComponentEdge) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	var parent recipeModel
	found, err := t.first(&parent, "id = ?", string(edge.ParentID))
	if err != nil {
		return err
	}
	if !found {
		return entities.NewNotFound("recipe", edge.ParentID)
	}
	err = t.db.Create(&recipeComponentModel{
		ParentID:   string(edge.ParentID),
		ChildID:    string(edge.ChildID),
		Multiplier: edge.Multiplier,
		SortOrder:  edge.SortOrder,
	}).Error
	if isMySQLError(err, errDuplicateEntry) {
		return &entities.StructuralError{Rule: entities.RuleDuplicateComponent, ParentID: edge.ParentID, ChildID: edge.ChildID}
	}
	return err
}

func (t *tx) RemoveComponent(ctx context.Context, parentID, childID entities.RecipeID) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	res := t.db.Where("parent_id = ? AND child_id = ?", string(parentID), string(childID)).Delete(&recipeComponentModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entities.NewNotFound("component", fmt.Sprintf("%s -> %s", parentID, childID))
	}
	return nil
}

func (t *tx) GetFinishedUnit(ctx context.Context, id entities.FinishedUnitID) (*entities.FinishedUnit, error) {
	var m finishedUnitModel
	found, err := t.first(&m, "id = ?", string(id))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, entities.NewNotFound("finished unit", id)
	}
	return toFinishedUnit(&m), nil
}

func (t *tx) ListFinishedUnits(ctx context.Context, recipeID entities.RecipeID) ([]*entities.FinishedUnit, error) {
	q := t.db.Order("id")
	if recipeID != "" {
		q = q.Where("recipe_id = ?", string(recipeID))
	}
	var rows []finishedUnitModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*entities.FinishedUnit, 0, len(rows))
	for i := range rows {
		out = append(out, toFinishedUnit(&rows[i]))
	}
	return out, nil
}

func (t *tx) SaveFinishedUnit(ctx context.Context, unit *entities.FinishedUnit) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	m := finishedUnitModel{
		ID:            string(unit.ID),
		RecipeID:      string(unit.RecipeID),
		Name:          unit.Name,
		ItemsPerBatch: unit.ItemsPerBatch,
		OnHand:        unit.OnHand,
	}
	return t.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error
}

// IncrementOnHand adds delta in a single UPDATE so concurrent productions
// of one unit do not lose increments
func (t *tx) IncrementOnHand(ctx context.Context, id entities.FinishedUnitID, delta decimal.Decimal) error {
	if err := t.checkWritable(); err != nil {
		return err
	}
	res := t.db.Model(&finishedUnitModel{}).Where("id = ?", string(id)).
		Update("on_hand", gorm.Expr("on_hand + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return entities.NewNotFound("finished unit", id)
	}
	return nil
}
