package subscription

import (
	"fmt"
	"time"

	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
)

// CalendarEntry is one planned delivery date for a single product, before
// merging into the subscription schedule.
type CalendarEntry struct {
	Date     vo.DeliveryDate
	Slot     vo.Slot
	CutoffAt time.Time
}

// GenerateCalendar expands a delivery window into the ordered sequence of
// delivery dates for one product.
//
// Starting at start, dates advance by the frequency's gap (monthly advances
// by calendar month). Generation stops when the emitted count reaches the
// frequency's deliveries-per-cycle cap, or the date passes end. A zero end
// bounds by the cap alone; a bounded end is how a mid-subscription add scales
// the cycle down to the remaining days.
//
// Deliveries never start same-day: a start on or before today is shifted to
// tomorrow. today is the business-timezone calendar day of the caller's
// reference instant.
//
// A window that admits zero deliveries yields an empty sequence, not an error.
func GenerateCalendar(start, end vo.DeliveryDate, freq vo.Frequency, slot vo.Slot, today vo.DeliveryDate) ([]CalendarEntry, error) {
	if !vo.ValidFrequencies[freq] {
		return nil, fmt.Errorf("%w: %q", vo.ErrInvalidFrequency, freq)
	}
	if !vo.ValidSlots[slot] {
		return nil, fmt.Errorf("%w: %q", vo.ErrInvalidSlot, slot)
	}

	effective := start
	if !effective.After(today) {
		effective = today.AddDays(1)
	}

	cap := freq.DeliveriesPerCycle()
	entries := make([]CalendarEntry, 0, cap)
	for d := effective; len(entries) < cap; d = freq.Next(d) {
		if !end.IsZero() && d.After(end) {
			break
		}
		entries = append(entries, CalendarEntry{
			Date:     d,
			Slot:     slot,
			CutoffAt: slot.CutoffAt(d),
		})
	}

	return entries, nil
}
