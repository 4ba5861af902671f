package valueobjects

import (
	"errors"
	"fmt"
)

// ErrInvalidQuantity is returned for a non-positive value or unknown unit.
var ErrInvalidQuantity = errors.New("invalid quantity")

// QuantityUnit is the unit a product quantity is measured in.
type QuantityUnit string

const (
	UnitMilliliter QuantityUnit = "ml"
	UnitLiter      QuantityUnit = "l"
	UnitGram       QuantityUnit = "g"
	UnitKilogram   QuantityUnit = "kg"
	UnitPiece      QuantityUnit = "pc"
)

var validQuantityUnits = map[QuantityUnit]bool{
	UnitMilliliter: true,
	UnitLiter:      true,
	UnitGram:       true,
	UnitKilogram:   true,
	UnitPiece:      true,
}

// Quantity is a per-delivery product amount (value + unit).
type Quantity struct {
	value float64
	unit  QuantityUnit
}

func NewQuantity(value float64, unit QuantityUnit) (Quantity, error) {
	if value <= 0 {
		return Quantity{}, fmt.Errorf("%w: value must be positive, got %v", ErrInvalidQuantity, value)
	}
	if !validQuantityUnits[unit] {
		return Quantity{}, fmt.Errorf("%w: unknown unit %q", ErrInvalidQuantity, unit)
	}
	return Quantity{value: value, unit: unit}, nil
}

func (q Quantity) Value() float64     { return q.value }
func (q Quantity) Unit() QuantityUnit { return q.unit }

func (q Quantity) IsZero() bool {
	return q.value == 0 && q.unit == ""
}

func (q Quantity) String() string {
	return fmt.Sprintf("%g %s", q.value, q.unit)
}

func (q Quantity) Equal(other Quantity) bool {
	return q.value == other.value && q.unit == other.unit
}
