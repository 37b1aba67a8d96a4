package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/vsinha/batchledger/pkg/domain/entities"
	"github.com/vsinha/batchledger/pkg/domain/repositories"
)

var errReadOnly = errors.New("memory store: write in read-only transaction")

// state is one immutable version of the store. Transactions copy the maps
// and replace entries rather than mutating stored values, so a committed
// state can be shared by readers without locking.
type state struct {
	ingredients   map[entities.IngredientID]*entities.Ingredient
	lots          map[entities.LotID]*entities.InventoryLot
	lastLotID     entities.LotID
	consumptions  []*entities.ConsumptionRecord
	recipes       map[entities.RecipeID]*entities.Recipe
	finishedUnits map[entities.FinishedUnitID]*entities.FinishedUnit
	productions   map[entities.ProductionID]*entities.ProductionRecord
	snapshots     map[entities.ProductionID]*entities.RecipeSnapshot
}

func newState() *state {
	return &state{
		ingredients:   make(map[entities.IngredientID]*entities.Ingredient),
		lots:          make(map[entities.LotID]*entities.InventoryLot),
		recipes:       make(map[entities.RecipeID]*entities.Recipe),
		finishedUnits: make(map[entities.FinishedUnitID]*entities.FinishedUnit),
		productions:   make(map[entities.ProductionID]*entities.ProductionRecord),
		snapshots:     make(map[entities.ProductionID]*entities.RecipeSnapshot),
	}
}

func (s *state) clone() *state {
	c := &state{
		ingredients:   make(map[entities.IngredientID]*entities.Ingredient, len(s.ingredients)),
		lots:          make(map[entities.LotID]*entities.InventoryLot, len(s.lots)),
		lastLotID:     s.lastLotID,
		consumptions:  append([]*entities.ConsumptionRecord(nil), s.consumptions...),
		recipes:       make(map[entities.RecipeID]*entities.Recipe, len(s.recipes)),
		finishedUnits: make(map[entities.FinishedUnitID]*entities.FinishedUnit, len(s.finishedUnits)),
		productions:   make(map[entities.ProductionID]*entities.ProductionRecord, len(s.productions)),
		snapshots:     make(map[entities.ProductionID]*entities.RecipeSnapshot, len(s.snapshots)),
	}
	for k, v := range s.ingredients {
		c.ingredients[k] = v
	}
	for k, v := range s.lots {
		c.lots[k] = v
	}
	for k, v := range s.recipes {
		c.recipes[k] = v
	}
	for k, v := range s.finishedUnits {
		c.finishedUnits[k] = v
	}
	for k, v := range s.productions {
		c.productions[k] = v
	}
	for k, v := range s.snapshots {
		c.snapshots[k] = v
	}
	return c
}

// Store is an in-memory, copy-on-write implementation of repositories.Store.
// Writers are serialized; readers see the last committed state.
type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	current *state
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{current: newState()}
}

// Verify interface compliance
var _ repositories.Store = (*Store)(nil)
var _ repositories.Tx = (*tx)(nil)

func (s *Store) committed() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// View runs fn against the last committed state
func (s *Store) View(ctx context.Context, fn func(tx repositories.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&tx{st: s.committed()})
}

// Update runs fn against a private copy and publishes it only if fn
// succeeds. A panic in fn leaves the committed state untouched.
func (s *Store) Update(ctx context.Context, fn func(tx repositories.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	t := &tx{st: s.committed().clone(), writable: true}
	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = t.st
	s.mu.Unlock()
	return nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

// tx implements repositories.Tx over one state version
type tx struct {
	st       *state
	writable bool
}

func (t *tx) checkWritable() error {
	if !t.writable {
		return errReadOnly
	}
	return nil
}
