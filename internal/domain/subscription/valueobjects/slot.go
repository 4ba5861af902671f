package valueobjects

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSlot is returned when a slot is outside the enumerated set.
var ErrInvalidSlot = errors.New("invalid delivery slot")

// Slot is one of the two daily delivery windows.
type Slot string

const (
	SlotMorning Slot = "morning"
	SlotEvening Slot = "evening"
)

// Cutoff hours are policy constants in the business timezone, not derived
// from the nominal delivery times (06:00 / 18:00).
const (
	morningCutoffHour = 4
	eveningCutoffHour = 16

	morningNominalHour = 6
	eveningNominalHour = 18
)

var ValidSlots = map[Slot]bool{
	SlotMorning: true,
	SlotEvening: true,
}

// ParseSlot validates and converts a raw slot string.
func ParseSlot(value string) (Slot, error) {
	s := Slot(value)
	if !ValidSlots[s] {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlot, value)
	}
	return s, nil
}

func (s Slot) String() string {
	return string(s)
}

// CutoffHour returns the business-local hour after which the day's delivery
// can no longer be modified by the customer.
func (s Slot) CutoffHour() int {
	if s == SlotEvening {
		return eveningCutoffHour
	}
	return morningCutoffHour
}

// NominalHour returns the canonical business-local delivery hour of the slot.
func (s Slot) NominalHour() int {
	if s == SlotEvening {
		return eveningNominalHour
	}
	return morningNominalHour
}

// CutoffAt returns the cutoff instant for a delivery of this slot on the
// given calendar day.
func (s Slot) CutoffAt(date DeliveryDate) time.Time {
	return date.AtHour(s.CutoffHour())
}
