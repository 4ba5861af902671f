package valueobjects

import (
	"errors"
	"fmt"
)

// ErrInvalidFrequency is returned when a frequency is outside the enumerated set.
var ErrInvalidFrequency = errors.New("invalid delivery frequency")

// Frequency is how often a subscription product is delivered.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyAlternate Frequency = "alternate"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
)

var ValidFrequencies = map[Frequency]bool{
	FrequencyDaily:     true,
	FrequencyAlternate: true,
	FrequencyWeekly:    true,
	FrequencyMonthly:   true,
}

// ParseFrequency validates and converts a raw frequency string.
func ParseFrequency(value string) (Frequency, error) {
	f := Frequency(value)
	if !ValidFrequencies[f] {
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, value)
	}
	return f, nil
}

func (f Frequency) String() string {
	return string(f)
}

// GapDays returns the day gap between consecutive deliveries.
// Monthly advances by calendar month, not by a fixed day count; it reports 0
// here and callers must use Next for date arithmetic.
func (f Frequency) GapDays() int {
	switch f {
	case FrequencyDaily:
		return 1
	case FrequencyAlternate:
		return 2
	case FrequencyWeekly:
		return 7
	default:
		return 0
	}
}

// DeliveriesPerCycle returns the number of deliveries in one subscription
// cycle for this frequency.
func (f Frequency) DeliveriesPerCycle() int {
	switch f {
	case FrequencyDaily:
		return 30
	case FrequencyAlternate:
		return 15
	case FrequencyWeekly:
		return 5
	case FrequencyMonthly:
		return 1
	default:
		return 0
	}
}

// Next returns the delivery date following d for this frequency.
func (f Frequency) Next(d DeliveryDate) DeliveryDate {
	if f == FrequencyMonthly {
		return d.AddMonths(1)
	}
	return d.AddDays(f.GapDays())
}

// DeliveriesInWindow returns how many deliveries of this frequency fit in
// the inclusive calendar window [from, to], capped by DeliveriesPerCycle.
// Used when a product is added mid-subscription and the cycle count must be
// scaled down to the remaining days.
func (f Frequency) DeliveriesInWindow(from, to DeliveryDate) int {
	if to.Before(from) {
		return 0
	}
	count := 0
	cap := f.DeliveriesPerCycle()
	for d := from; !d.After(to) && count < cap; d = f.Next(d) {
		count++
	}
	return count
}
