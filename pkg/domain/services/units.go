package services

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

type unitDef struct {
	dimension entities.Dimension
	toBase    decimal.Decimal // base units are g, ml and each
}

// UnitConverter converts quantities between units of the same dimension
type UnitConverter struct {
	units map[entities.Unit]unitDef
}

// NewUnitConverter creates a converter with the built-in kitchen units
func NewUnitConverter() *UnitConverter {
	c := &UnitConverter{units: make(map[entities.Unit]unitDef)}

	c.Register("g", entities.Mass, decimal.NewFromInt(1))
	c.Register("mg", entities.Mass, decimal.RequireFromString("0.001"))
	c.Register("kg", entities.Mass, decimal.NewFromInt(1000))
	c.Register("oz", entities.Mass, decimal.RequireFromString("28.349523125"))
	c.Register("lb", entities.Mass, decimal.RequireFromString("453.59237"))

	c.Register("ml", entities.Volume, decimal.NewFromInt(1))
	c.Register("l", entities.Volume, decimal.NewFromInt(1000))
	c.Register("tsp", entities.Volume, decimal.RequireFromString("4.92892159375"))
	c.Register("tbsp", entities.Volume, decimal.RequireFromString("14.78676478125"))
	c.Register("fl_oz", entities.Volume, decimal.RequireFromString("29.5735295625"))
	c.Register("cup", entities.Volume, decimal.RequireFromString("236.5882365"))
	c.Register("pt", entities.Volume, decimal.RequireFromString("473.176473"))
	c.Register("qt", entities.Volume, decimal.RequireFromString("946.352946"))
	c.Register("gal", entities.Volume, decimal.RequireFromString("3785.411784"))

	c.Register("each", entities.Count, decimal.NewFromInt(1))
	c.Register("ea", entities.Count, decimal.NewFromInt(1))
	c.Register("pc", entities.Count, decimal.NewFromInt(1))
	c.Register("dozen", entities.Count, decimal.NewFromInt(12))

	return c
}

// Register adds or replaces a unit
func (c *UnitConverter) Register(unit entities.Unit, dimension entities.Dimension, toBase decimal.Decimal) {
	c.units[unit.Normalize()] = unitDef{dimension: dimension, toBase: toBase}
}

// Dimension returns the dimension of a unit, UnknownDimension if unregistered
func (c *UnitConverter) Dimension(unit entities.Unit) entities.Dimension {
	return c.units[unit.Normalize()].dimension
}

// Convertible reports whether from can be expressed in to
func (c *UnitConverter) Convertible(from, to entities.Unit) bool {
	if from.Normalize() == to.Normalize() {
		return true
	}
	f, okFrom := c.units[from.Normalize()]
	t, okTo := c.units[to.Normalize()]
	return okFrom && okTo && f.dimension == t.dimension
}

// Convert expresses quantity in from-units as to-units. Identical units,
// including unregistered ones, pass through unchanged.
func (c *UnitConverter) Convert(quantity decimal.Decimal, from, to entities.Unit) (decimal.Decimal, error) {
	if from.Normalize() == to.Normalize() {
		return quantity, nil
	}
	if !c.Convertible(from, to) {
		return decimal.Zero, &entities.UnitIncompatibleError{From: from, To: to}
	}
	f := c.units[from.Normalize()]
	t := c.units[to.Normalize()]
	return quantity.Mul(f.toBase).Div(t.toBase), nil
}

// Factor is how many to-units one from-unit is worth
func (c *UnitConverter) Factor(from, to entities.Unit) (decimal.Decimal, error) {
	return c.Convert(decimal.NewFromInt(1), from, to)
}
