package recipegraph

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

// TreeNode is one recipe in an expanded component tree
type TreeNode struct {
	RecipeID    entities.RecipeID
	Name        string
	Batches     decimal.Decimal
	Level       int
	Ingredients []NodeIngredient
	Children    []*TreeNode
}

// treeVisitor builds a TreeNode per visited recipe
type treeVisitor struct{}

func (treeVisitor) VisitNode(ctx context.Context, node NodeContext) (any, bool, error) {
	scaled := make([]NodeIngredient, len(node.Ingredients))
	for i, line := range node.Ingredients {
		scaled[i] = line
		scaled[i].Quantity = line.Quantity.Mul(node.Batches)
	}
	return &TreeNode{
		RecipeID:    node.RecipeID,
		Name:        node.Recipe.Name,
		Batches:     node.Batches,
		Level:       node.Level,
		Ingredients: scaled,
	}, true, nil
}

func (treeVisitor) ProcessChildren(ctx context.Context, node NodeContext, nodeData any, childResults []any) (any, error) {
	tn := nodeData.(*TreeNode)
	for _, r := range childResults {
		tn.Children = append(tn.Children, r.(*TreeNode))
	}
	return tn, nil
}
