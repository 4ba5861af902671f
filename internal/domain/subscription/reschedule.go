package subscription

import (
	"fmt"
	"time"

	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
)

// rescheduleTarget validates the common rules for moving deliveries around:
// the target must be at least tomorrow, and inside the reschedule window
// measured from the delivery being moved.
func rescheduleTarget(original, newDate vo.DeliveryDate, now time.Time, windowMonths int) error {
	today := vo.DateOf(now)
	if !newDate.After(today) {
		return fmt.Errorf("%w: new date %s must be after today", ErrOutOfWindow, newDate)
	}
	limit := original.AddMonths(windowMonths)
	if newDate.After(limit) {
		return fmt.Errorf("%w: new date %s is past %s", ErrOutOfWindow, newDate, limit)
	}
	return nil
}

// RescheduleDelivery moves a whole delivery day to a new date and slot. The
// entry must still be open and its day's cutoff must not have passed; the
// target date must be free.
func (s *Subscription) RescheduleDelivery(oldDate, newDate vo.DeliveryDate, newSlot vo.Slot, now time.Time, policy SchedulingPolicy) error {
	if !s.status.AcceptsDeliveries() && s.status != vo.StatusPaused {
		return fmt.Errorf("%w: subscription is %s", ErrInvalidStatusTransition, s.status)
	}
	entry := s.schedule.EntryOn(oldDate)
	if entry == nil {
		return fmt.Errorf("%w: %s", ErrDeliveryNotFound, oldDate)
	}
	if !entry.Unresolved() && entry.Status() != vo.DeliveryPaused {
		return fmt.Errorf("%w: delivery on %s is %s", ErrInvalidStatusTransition, oldDate, entry.Status())
	}
	if entry.PastCutoff(now) {
		return fmt.Errorf("%w: cutoff for %s was %s", ErrPastCutoff, oldDate, entry.CutoffAt().Format(time.RFC3339))
	}
	if newDate.Equal(oldDate) && newSlot == entry.Slot() {
		return fmt.Errorf("%w: delivery is already on %s %s", ErrInvalidInput, newDate, newSlot)
	}
	if err := rescheduleTarget(oldDate, newDate, now, policy.RescheduleWindowMonths); err != nil {
		return err
	}

	if err := s.schedule.Relocate(entry, newDate, newSlot); err != nil {
		return err
	}
	s.extendEndDate(newDate)
	s.touch(now)
	return nil
}

// RescheduleItem moves a single product line off one delivery day onto
// another. The source entry loses the line (and disappears when that was its
// last one); the target either gains the line or is created fresh. The same
// product cannot land twice on one day.
func (s *Subscription) RescheduleItem(subscriptionProductID string, currentDate, newDate vo.DeliveryDate, now time.Time, policy SchedulingPolicy) error {
	if !s.status.AcceptsDeliveries() && s.status != vo.StatusPaused {
		return fmt.Errorf("%w: subscription is %s", ErrInvalidStatusTransition, s.status)
	}
	source := s.schedule.EntryOn(currentDate)
	if source == nil {
		return fmt.Errorf("%w: %s", ErrDeliveryNotFound, currentDate)
	}
	if !source.Unresolved() && source.Status() != vo.DeliveryPaused {
		return fmt.Errorf("%w: delivery on %s is %s", ErrInvalidStatusTransition, currentDate, source.Status())
	}
	if source.PastCutoff(now) {
		return fmt.Errorf("%w: cutoff for %s was %s", ErrPastCutoff, currentDate, source.CutoffAt().Format(time.RFC3339))
	}
	if newDate.Equal(currentDate) {
		return fmt.Errorf("%w: item is already on %s", ErrInvalidInput, newDate)
	}
	if err := rescheduleTarget(currentDate, newDate, now, policy.RescheduleWindowMonths); err != nil {
		return err
	}
	if target := s.schedule.EntryOn(newDate); target != nil && target.HasProduct(subscriptionProductID) {
		return fmt.Errorf("%w: %s on %s", ErrDuplicateProductOnDate, subscriptionProductID, newDate)
	}

	line, err := source.RemoveLine(subscriptionProductID)
	if err != nil {
		return err
	}
	line.Status = vo.LinePending

	if target := s.schedule.EntryOn(newDate); target != nil {
		if err := target.AddLine(line); err != nil {
			// Roll the line back onto its source before surfacing.
			_ = source.AddLine(line)
			return err
		}
	} else {
		entry, err := NewDeliveryEntry(newDate, source.Slot(), source.PartnerSID(), line)
		if err != nil {
			_ = source.AddLine(line)
			return err
		}
		if err := s.schedule.Insert(entry); err != nil {
			_ = source.AddLine(line)
			return err
		}
	}

	if source.IsEmpty() {
		s.schedule.Remove(currentDate)
	}
	s.extendEndDate(newDate)
	s.touch(now)
	return nil
}

// AvailableDates lists the start dates a block of consecutiveDays deliveries
// for the product line on currentDate could move to. The scan runs from
// tomorrow through the last scheduled delivery plus the availability
// horizon; a start date qualifies only when every day of the block is free.
// With no product scoped, only completely empty days count as free.
func (s *Subscription) AvailableDates(subscriptionProductID string, currentDate vo.DeliveryDate, consecutiveDays int, now time.Time, policy SchedulingPolicy) []vo.DeliveryDate {
	if consecutiveDays < 1 {
		consecutiveDays = 1
	}
	today := vo.DateOf(now)
	from := today.AddDays(1)

	until := currentDate.AddDays(policy.AvailabilityHorizonDays)
	if last, ok := s.schedule.LastDate(); ok {
		until = last.AddDays(policy.AvailabilityHorizonDays)
	}

	var out []vo.DeliveryDate
	for d := from; !d.After(until); d = d.AddDays(1) {
		free := true
		for i, day := 0, d; i < consecutiveDays; i, day = i+1, day.AddDays(1) {
			if day.After(until) || !s.dayFreeFor(subscriptionProductID, day, currentDate) {
				free = false
				break
			}
		}
		if free {
			out = append(out, d)
		}
	}
	return out
}

// dayFreeFor reports whether the product line could land on the day. The
// current date is never free (no-op moves are not offered), nor is a day
// whose entry already carries the product or can no longer change.
func (s *Subscription) dayFreeFor(subscriptionProductID string, day, currentDate vo.DeliveryDate) bool {
	if day.Equal(currentDate) {
		return false
	}
	entry := s.schedule.EntryOn(day)
	if entry == nil {
		return true
	}
	if subscriptionProductID == "" {
		return false
	}
	if entry.HasProduct(subscriptionProductID) {
		return false
	}
	return entry.Unresolved() || entry.Status() == vo.DeliveryPaused
}
