package entities

import "strings"

// Unit is a unit of measure such as "g", "cup" or "each"
type Unit string

// Normalize lower-cases and trims a unit so "Cup " and "cup" compare equal
func (u Unit) Normalize() Unit {
	return Unit(strings.ToLower(strings.TrimSpace(string(u))))
}

// Dimension groups units that convert into each other
type Dimension int

const (
	UnknownDimension Dimension = iota
	Mass
	Volume
	Count
)

// String method for Dimension enum
func (d Dimension) String() string {
	switch d {
	case Mass:
		return "Mass"
	case Volume:
		return "Volume"
	case Count:
		return "Count"
	default:
		return "Unknown"
	}
}
