package subscription

import (
	"fmt"
	"sort"
	"time"

	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
)

// DeliverySchedule is the subscription's ordered-by-date collection of
// delivery entries. It holds at most one entry per calendar day; the
// structure itself enforces the invariant, so no re-sort-after-mutation is
// ever needed by callers.
type DeliverySchedule struct {
	entries []*DeliveryEntry
}

func NewDeliverySchedule() *DeliverySchedule {
	return &DeliverySchedule{}
}

// ReconstructDeliverySchedule rebuilds the schedule from persisted entries,
// sorting them and rejecting duplicate calendar days.
func ReconstructDeliverySchedule(entries []*DeliveryEntry) (*DeliverySchedule, error) {
	s := &DeliverySchedule{entries: make([]*DeliveryEntry, 0, len(entries))}
	s.entries = append(s.entries, entries...)
	sort.Slice(s.entries, func(i, j int) bool {
		return s.entries[i].Date().Before(s.entries[j].Date())
	})
	for i := 1; i < len(s.entries); i++ {
		if s.entries[i].Date().Equal(s.entries[i-1].Date()) {
			return nil, fmt.Errorf("%w: %s", ErrDateConflict, s.entries[i].Date())
		}
	}
	return s, nil
}

func (s *DeliverySchedule) Len() int {
	return len(s.entries)
}

// Entries returns the entries in ascending date order. The slice is shared;
// callers must not reorder it.
func (s *DeliverySchedule) Entries() []*DeliveryEntry {
	return s.entries
}

// search returns the index where date is or would be inserted.
func (s *DeliverySchedule) search(date vo.DeliveryDate) int {
	return sort.Search(len(s.entries), func(i int) bool {
		return !s.entries[i].Date().Before(date)
	})
}

// EntryOn returns the entry for the exact calendar day, or nil.
func (s *DeliverySchedule) EntryOn(date vo.DeliveryDate) *DeliveryEntry {
	i := s.search(date)
	if i < len(s.entries) && s.entries[i].Date().Equal(date) {
		return s.entries[i]
	}
	return nil
}

// Insert adds an entry at its date position. A second entry on the same day
// is rejected.
func (s *DeliverySchedule) Insert(e *DeliveryEntry) error {
	i := s.search(e.Date())
	if i < len(s.entries) && s.entries[i].Date().Equal(e.Date()) {
		return fmt.Errorf("%w: %s", ErrDateConflict, e.Date())
	}
	s.entries = append(s.entries, nil)
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
	return nil
}

// Remove deletes the entry on the given day, freeing the date for reuse.
func (s *DeliverySchedule) Remove(date vo.DeliveryDate) (*DeliveryEntry, bool) {
	i := s.search(date)
	if i >= len(s.entries) || !s.entries[i].Date().Equal(date) {
		return nil, false
	}
	e := s.entries[i]
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return e, true
}

// Relocate moves an entry to a new date, keeping order and uniqueness.
func (s *DeliverySchedule) Relocate(e *DeliveryEntry, newDate vo.DeliveryDate, newSlot vo.Slot) error {
	if conflict := s.EntryOn(newDate); conflict != nil && conflict != e {
		return fmt.Errorf("%w: %s", ErrDateConflict, newDate)
	}
	if _, ok := s.Remove(e.Date()); !ok {
		return fmt.Errorf("%w: %s", ErrDeliveryNotFound, e.Date())
	}
	if err := e.Reschedule(newDate, newSlot); err != nil {
		// Put the entry back untouched; the date slot is still free.
		_ = s.Insert(e)
		return err
	}
	return s.Insert(e)
}

// LastDate returns the schedule's final calendar day.
func (s *DeliverySchedule) LastDate() (vo.DeliveryDate, bool) {
	if len(s.entries) == 0 {
		return vo.DeliveryDate{}, false
	}
	return s.entries[len(s.entries)-1].Date(), true
}

// NextScheduled returns the first entry still in scheduled status strictly
// after the given day.
func (s *DeliverySchedule) NextScheduled(after vo.DeliveryDate) *DeliveryEntry {
	for _, e := range s.entries {
		if e.Date().After(after) && e.Status() == vo.DeliveryScheduled {
			return e
		}
	}
	return nil
}

// FutureUnresolved returns entries strictly after the given day that are
// still scheduled or paused.
func (s *DeliverySchedule) FutureUnresolved(after vo.DeliveryDate) []*DeliveryEntry {
	var out []*DeliveryEntry
	for _, e := range s.entries {
		if !e.Date().After(after) {
			continue
		}
		switch e.Status() {
		case vo.DeliveryScheduled, vo.DeliveryAwaitingCustomer, vo.DeliveryPaused:
			out = append(out, e)
		}
	}
	return out
}

// Merge folds one product's calendar into the schedule. A date that already
// has an entry gains the product as an extra line (this is how two products
// with different frequencies end up delivered together); a free date gets a
// new single-line entry. Re-merging the same product for the same date is a
// no-op, guarded by line uniqueness.
func (s *DeliverySchedule) Merge(calendar []CalendarEntry, line DeliveryProductLine, partnerSID string) error {
	for _, cal := range calendar {
		if existing := s.EntryOn(cal.Date); existing != nil {
			if existing.HasProduct(line.SubscriptionProductID) {
				continue
			}
			if err := existing.AddLine(line); err != nil {
				return err
			}
			continue
		}
		entry, err := NewDeliveryEntry(cal.Date, cal.Slot, partnerSID, line)
		if err != nil {
			return err
		}
		if err := s.Insert(entry); err != nil {
			return err
		}
	}
	return nil
}

// CountResolved returns how many entries count as delivered.
func (s *DeliverySchedule) CountResolved() int {
	n := 0
	for _, e := range s.entries {
		if e.Status().CountsAsDelivered() {
			n++
		}
	}
	return n
}

// CountOpen returns how many entries can still be fulfilled.
func (s *DeliverySchedule) CountOpen() int {
	n := 0
	for _, e := range s.entries {
		switch e.Status() {
		case vo.DeliveryScheduled, vo.DeliveryReaching, vo.DeliveryAwaitingCustomer, vo.DeliveryPaused:
			n++
		}
	}
	return n
}

// CountConcessionCancelled returns how many entries were closed out by the
// end-of-day concession policy. They stay on the books: the customer gets an
// extra day instead of losing one, so the aggregate totals grow with each.
func (s *DeliverySchedule) CountConcessionCancelled() int {
	n := 0
	for _, e := range s.entries {
		if e.Status() == vo.DeliveryCanceled && e.Concession() {
			n++
		}
	}
	return n
}

// UnresolvedAtBoundary returns entries whose end-of-day boundary at the given
// business-local hour has passed and that are still scheduled or awaiting
// the customer, oldest first. Entries whose concession already fired are
// excluded.
func (s *DeliverySchedule) UnresolvedAtBoundary(now time.Time, hour int) []*DeliveryEntry {
	var out []*DeliveryEntry
	for _, e := range s.entries {
		if e.Concession() || !e.Unresolved() {
			continue
		}
		if !now.Before(e.DayBoundaryAt(hour)) {
			out = append(out, e)
		}
	}
	return out
}
