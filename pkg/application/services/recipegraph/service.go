package recipegraph

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/domain/repositories"
	"github.com/vsinha/batchledger/pkg/domain/services"
	"github.com/vsinha/batchledger/pkg/infrastructure/logging"
)

const moduleName = "recipegraph"

// Service runs graph operations in their own transactions
type Service struct {
	store  repositories.Store
	graph  *Graph
	logger logrus.FieldLogger
}

// NewService creates a recipe graph service
func NewService(store repositories.Store, graph *Graph, logger logrus.FieldLogger) *Service {
	if graph == nil {
		graph = New()
	}
	return &Service{
		store:  store,
		graph:  graph,
		logger: logging.OrDiscard(logger).WithField("module", moduleName),
	}
}

// Graph returns the transaction-scoped graph the service wraps
func (s *Service) Graph() *Graph {
	return s.graph
}

// AddComponent validates and stores a component edge
func (s *Service) AddComponent(ctx context.Context, parentID, childID entities.RecipeID, multiplier decimal.Decimal, sortOrder int) error {
	err := s.store.Update(ctx, func(tx repositories.Tx) error {
		return s.graph.AddComponent(ctx, tx, parentID, childID, multiplier, sortOrder)
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"parent": parentID,
			"child":  childID,
		}).WithError(err).Warn("component rejected")
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"parent":     parentID,
		"child":      childID,
		"multiplier": multiplier.String(),
	}).Info("component added")
	return nil
}

// RemoveComponent deletes a component edge
func (s *Service) RemoveComponent(ctx context.Context, parentID, childID entities.RecipeID) error {
	err := s.store.Update(ctx, func(tx repositories.Tx) error {
		return s.graph.RemoveComponent(ctx, tx, parentID, childID)
	})
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"parent": parentID, "child": childID}).Info("component removed")
	return nil
}

// GetAggregatedIngredients aggregates one recipe for multiplier batches
func (s *Service) GetAggregatedIngredients(ctx context.Context, recipeID entities.RecipeID, multiplier decimal.Decimal) ([]entities.AggregatedIngredient, error) {
	var out []entities.AggregatedIngredient
	err := s.store.View(ctx, func(tx repositories.Tx) error {
		var err error
		out, err = s.graph.GetAggregatedIngredients(ctx, tx, recipeID, multiplier)
		return err
	})
	if err != nil {
		logging.LogError(s.logger, moduleName, "GetAggregatedIngredients", "aggregate recipe", recipeID, err)
	}
	return out, err
}

// AggregateVariants aggregates several scheduled recipes with variant
// proportional allocation
func (s *Service) AggregateVariants(ctx context.Context, batches []entities.VariantBatch) ([]entities.AggregatedIngredient, error) {
	var out []entities.AggregatedIngredient
	err := s.store.View(ctx, func(tx repositories.Tx) error {
		var err error
		out, err = s.graph.AggregateVariants(ctx, tx, batches)
		return err
	})
	if err != nil {
		logging.LogError(s.logger, moduleName, "AggregateVariants", "aggregate variants", batches, err)
	}
	return out, err
}

// Tree returns a recipe's expanded component tree
func (s *Service) Tree(ctx context.Context, recipeID entities.RecipeID, multiplier decimal.Decimal) (*TreeNode, error) {
	var root *TreeNode
	err := s.store.View(ctx, func(tx repositories.Tx) error {
		var err error
		root, err = s.graph.Tree(ctx, tx, recipeID, multiplier)
		return err
	})
	return root, err
}

// ValidateAll audits the whole stored recipe structure
func (s *Service) ValidateAll(ctx context.Context) (*services.GraphValidationResult, error) {
	var result *services.GraphValidationResult
	err := s.store.View(ctx, func(tx repositories.Tx) error {
		var err error
		result, err = s.graph.ValidateAll(ctx, tx)
		return err
	})
	if err == nil && len(result.Errors) > 0 {
		s.logger.WithField("errors", len(result.Errors)).Warn("recipe structure has violations")
	}
	return result, err
}
