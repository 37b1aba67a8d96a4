package entities

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Sentinel errors. Every typed error below unwraps to exactly one of them so
// callers can branch with errors.Is and pull detail out with errors.As.
var (
	ErrNotFound              = errors.New("not found")
	ErrStructural            = errors.New("structural invariant violated")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrUnitIncompatible      = errors.New("unit incompatible")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrConcurrentUpdate      = errors.New("concurrent update")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Invalidf builds an ErrInvalidArgument error with a formatted message
func Invalidf(format string, args ...any) error {
	return invalidf(format, args...)
}

// NotFoundError reports an unknown id
type NotFoundError struct {
	Kind string
	ID   string
}

// NewNotFound creates a NotFoundError for the given entity kind
func NewNotFound(kind string, id any) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: fmt.Sprint(id)}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StructuralRule names the invariant a request would have broken
type StructuralRule string

const (
	RuleSelfReference      StructuralRule = "self-reference"
	RuleCycle              StructuralRule = "cycle"
	RuleDepthExceeded      StructuralRule = "depth-exceeded"
	RuleDuplicateComponent StructuralRule = "duplicate-component"
	RuleMissingComponent   StructuralRule = "missing-component"
	RuleVariantChain       StructuralRule = "variant-chain"
	RuleYieldMismatch      StructuralRule = "yield-mismatch"
	RuleSnapshotExists     StructuralRule = "snapshot-exists"
)

// StructuralError reports a rejected edit or a corrupt recipe structure
type StructuralError struct {
	Rule     StructuralRule
	ParentID RecipeID
	ChildID  RecipeID
	Path     []RecipeID
	Depth    int
	Limit    int
	Detail   string
}

func (e *StructuralError) Error() string {
	switch e.Rule {
	case RuleSelfReference:
		return fmt.Sprintf("recipe %s cannot contain itself", e.ParentID)
	case RuleCycle:
		return fmt.Sprintf("adding %s to %s creates a cycle: %s", e.ChildID, e.ParentID, formatPath(e.Path))
	case RuleDepthExceeded:
		return fmt.Sprintf("adding %s to %s nests %d levels deep, limit is %d", e.ChildID, e.ParentID, e.Depth, e.Limit)
	case RuleDuplicateComponent:
		return fmt.Sprintf("recipe %s already contains %s", e.ParentID, e.ChildID)
	case RuleMissingComponent:
		return fmt.Sprintf("recipe %s references missing component %s", e.ParentID, e.ChildID)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Rule, e.Detail)
	}
	return string(e.Rule)
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

// NewSnapshotExists reports a second snapshot for one production
func NewSnapshotExists(productionID ProductionID) *StructuralError {
	return &StructuralError{
		Rule:   RuleSnapshotExists,
		Detail: fmt.Sprintf("production %s already has a snapshot", productionID),
	}
}

func formatPath(path []RecipeID) string {
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = string(id)
	}
	return strings.Join(parts, " -> ")
}

// InsufficientInventoryError reports the ingredient that could not be covered
type InsufficientInventoryError struct {
	IngredientID IngredientID
	Unit         Unit
	Required     decimal.Decimal
	Available    decimal.Decimal
	Shortfall    decimal.Decimal
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for %s: need %s %s, short %s %s",
		e.IngredientID,
		RoundQuantity(e.Required).String(), e.Unit,
		RoundQuantity(e.Shortfall).String(), e.Unit)
}

func (e *InsufficientInventoryError) Unwrap() error { return ErrInsufficientInventory }

// UnitIncompatibleError reports a quantity that cannot be expressed in the requested unit
type UnitIncompatibleError struct {
	IngredientID IngredientID
	From         Unit
	To           Unit
}

func (e *UnitIncompatibleError) Error() string {
	if e.IngredientID == "" {
		return fmt.Sprintf("cannot convert %s to %s", e.From, e.To)
	}
	return fmt.Sprintf("cannot convert %s to %s for ingredient %s", e.From, e.To, e.IngredientID)
}

func (e *UnitIncompatibleError) Unwrap() error { return ErrUnitIncompatible }
