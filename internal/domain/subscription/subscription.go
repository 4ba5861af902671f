package subscription

import (
	"fmt"
	"time"

	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
	"github.com/milkrun-inc/milkrun/internal/shared/id"
)

// Subscription is the aggregate root for a recurring delivery plan: the
// ordered product lines, the merged delivery schedule, and the counters that
// must reconcile with both.
type Subscription struct {
	id           uint
	sid          string
	customerSID  string
	branchSID    string
	addressSID   string
	partnerSID   string
	slot         vo.Slot
	startDate    vo.DeliveryDate
	endDate      vo.DeliveryDate
	products     []*SubscriptionProduct
	schedule     *DeliverySchedule
	status       vo.SubscriptionStatus
	cancelReason *string
	cancelledAt  *time.Time
	version      int
	createdAt    time.Time
	updatedAt    time.Time
}

// ProductSpec describes one product line to schedule, with monetary fields
// already resolved by the pricing service.
type ProductSpec struct {
	ProductSID string
	Name       string
	Quantity   vo.Quantity
	UnitPrice  int64
	Frequency  vo.Frequency
	Count      int
}

// NewSubscription creates a payment-verified subscription and generates the
// merged delivery schedule for its initial products. startDate on or before
// today is shifted to tomorrow by the calendar generator.
func NewSubscription(customerSID, branchSID, addressSID, partnerSID string, slot vo.Slot, startDate vo.DeliveryDate, specs []ProductSpec, now time.Time) (*Subscription, error) {
	if customerSID == "" {
		return nil, fmt.Errorf("%w: customer is required", ErrInvalidInput)
	}
	if branchSID == "" {
		return nil, fmt.Errorf("%w: branch is required", ErrInvalidInput)
	}
	if !vo.ValidSlots[slot] {
		return nil, fmt.Errorf("%w: %q", vo.ErrInvalidSlot, slot)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: at least one product is required", ErrInvalidInput)
	}
	if startDate.IsZero() {
		startDate = vo.DateOf(now)
	}

	s := &Subscription{
		sid:         id.MustGenerateWithPrefix(id.PrefixSubscription, id.DefaultLength),
		customerSID: customerSID,
		branchSID:   branchSID,
		addressSID:  addressSID,
		partnerSID:  partnerSID,
		slot:        slot,
		startDate:   startDate,
		schedule:    NewDeliverySchedule(),
		status:      vo.StatusActive,
		version:     1,
		createdAt:   now,
		updatedAt:   now,
	}

	today := vo.DateOf(now)
	for _, spec := range specs {
		calendar, err := GenerateCalendar(startDate, vo.DeliveryDate{}, spec.Frequency, slot, today)
		if err != nil {
			return nil, err
		}
		if len(calendar) == 0 {
			return nil, fmt.Errorf("%w: no deliveries computed for product %s", ErrInvalidInput, spec.ProductSID)
		}
		product, err := NewSubscriptionProduct(spec.ProductSID, spec.Name, spec.Quantity, spec.UnitPrice, spec.Frequency, len(calendar), spec.Count)
		if err != nil {
			return nil, err
		}
		if err := s.schedule.Merge(calendar, product.Line(), partnerSID); err != nil {
			return nil, err
		}
		s.products = append(s.products, product)
	}

	if last, ok := s.schedule.LastDate(); ok {
		s.endDate = last
	}

	return s, nil
}

// SubscriptionReconstructParams carries persisted state back into the aggregate.
type SubscriptionReconstructParams struct {
	ID           uint
	SID          string
	CustomerSID  string
	BranchSID    string
	AddressSID   string
	PartnerSID   string
	Slot         vo.Slot
	StartDate    vo.DeliveryDate
	EndDate      vo.DeliveryDate
	Products     []*SubscriptionProduct
	Entries      []*DeliveryEntry
	Status       vo.SubscriptionStatus
	CancelReason *string
	CancelledAt  *time.Time
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReconstructSubscription rebuilds the aggregate from persistence.
func ReconstructSubscription(p SubscriptionReconstructParams) (*Subscription, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("%w: subscription ID cannot be zero", ErrInvalidInput)
	}
	if p.SID == "" {
		return nil, fmt.Errorf("%w: subscription SID is required", ErrInvalidInput)
	}
	if !vo.ValidStatuses[p.Status] {
		return nil, fmt.Errorf("invalid subscription status: %s", p.Status)
	}
	schedule, err := ReconstructDeliverySchedule(p.Entries)
	if err != nil {
		return nil, err
	}

	return &Subscription{
		id:           p.ID,
		sid:          p.SID,
		customerSID:  p.CustomerSID,
		branchSID:    p.BranchSID,
		addressSID:   p.AddressSID,
		partnerSID:   p.PartnerSID,
		slot:         p.Slot,
		startDate:    p.StartDate,
		endDate:      p.EndDate,
		products:     p.Products,
		schedule:     schedule,
		status:       p.Status,
		cancelReason: p.CancelReason,
		cancelledAt:  p.CancelledAt,
		version:      p.Version,
		createdAt:    p.CreatedAt,
		updatedAt:    p.UpdatedAt,
	}, nil
}

func (s *Subscription) ID() uint                      { return s.id }
func (s *Subscription) SID() string                   { return s.sid }
func (s *Subscription) CustomerSID() string           { return s.customerSID }
func (s *Subscription) BranchSID() string             { return s.branchSID }
func (s *Subscription) AddressSID() string            { return s.addressSID }
func (s *Subscription) PartnerSID() string            { return s.partnerSID }
func (s *Subscription) Slot() vo.Slot                 { return s.slot }
func (s *Subscription) StartDate() vo.DeliveryDate    { return s.startDate }
func (s *Subscription) EndDate() vo.DeliveryDate      { return s.endDate }
func (s *Subscription) Products() []*SubscriptionProduct { return s.products }
func (s *Subscription) Schedule() *DeliverySchedule   { return s.schedule }
func (s *Subscription) Status() vo.SubscriptionStatus { return s.status }
func (s *Subscription) CancelReason() *string         { return s.cancelReason }
func (s *Subscription) CancelledAt() *time.Time       { return s.cancelledAt }
func (s *Subscription) Version() int                  { return s.version }
func (s *Subscription) CreatedAt() time.Time          { return s.createdAt }
func (s *Subscription) UpdatedAt() time.Time          { return s.updatedAt }

// Aggregate counters are derived over delivery entries: one entry is one
// delivery day regardless of how many product lines it carries.

// TotalDeliveries returns the delivery days on the books: resolved days,
// open days, and days closed out by a concession. A concession-cancelled day
// stays counted alongside its compensation entry, so each missed day grows
// the total by one.
func (s *Subscription) TotalDeliveries() int {
	return s.schedule.CountResolved() + s.schedule.CountOpen() + s.schedule.CountConcessionCancelled()
}

// DeliveredCount returns the number of resolved delivery days.
func (s *Subscription) DeliveredCount() int {
	return s.schedule.CountResolved()
}

// RemainingDeliveries returns the delivery days still owed to the customer.
func (s *Subscription) RemainingDeliveries() int {
	return s.TotalDeliveries() - s.DeliveredCount()
}

// SetID sets the subscription ID (only for persistence layer use)
func (s *Subscription) SetID(newID uint) error {
	if s.id != 0 {
		return fmt.Errorf("subscription ID is already set")
	}
	if newID == 0 {
		return fmt.Errorf("subscription ID cannot be zero")
	}
	s.id = newID
	return nil
}

func (s *Subscription) productBySID(subscriptionProductID string) *SubscriptionProduct {
	for _, p := range s.products {
		if p.SID() == subscriptionProductID {
			return p
		}
	}
	return nil
}

// touch records a mutation for optimistic locking.
func (s *Subscription) touch(now time.Time) {
	s.updatedAt = now
	s.version++
}

// extendEndDate advances the end date; it never shrinks.
func (s *Subscription) extendEndDate(date vo.DeliveryDate) {
	if date.After(s.endDate) {
		s.endDate = date
	}
}

// AddProduct schedules an additional product mid-subscription. The cycle
// count is recomputed against the remaining subscription days (tomorrow
// through endDate); the product's calendar then merges into the existing
// schedule. Returns the dates the product was added to.
func (s *Subscription) AddProduct(spec ProductSpec, now time.Time) ([]vo.DeliveryDate, error) {
	if s.status.IsTerminal() {
		return nil, fmt.Errorf("%w: cannot add product to %s subscription", ErrInvalidStatusTransition, s.status)
	}
	today := vo.DateOf(now)
	if !s.endDate.After(today) {
		return nil, fmt.Errorf("%w: no remaining delivery days", ErrInvalidInput)
	}

	calendar, err := GenerateCalendar(today.AddDays(1), s.endDate, spec.Frequency, s.slot, today)
	if err != nil {
		return nil, err
	}
	if len(calendar) == 0 {
		return nil, fmt.Errorf("%w: no deliveries fit the remaining window", ErrInvalidInput)
	}

	product, err := NewSubscriptionProduct(spec.ProductSID, spec.Name, spec.Quantity, spec.UnitPrice, spec.Frequency, len(calendar), spec.Count)
	if err != nil {
		return nil, err
	}
	if err := s.schedule.Merge(calendar, product.Line(), s.partnerSID); err != nil {
		return nil, err
	}
	s.products = append(s.products, product)

	dates := make([]vo.DeliveryDate, len(calendar))
	for i, c := range calendar {
		dates[i] = c.Date
	}
	s.touch(now)
	s.RecomputeStatus(now)
	return dates, nil
}

// TransitionResult reports the per-product bookkeeping of a resolving
// transition. Skipped products had no remaining deliveries; this is a
// reconciliation edge case the caller logs, not an error.
type TransitionResult struct {
	Resolved []string
	Skipped  []string
}

func (s *Subscription) recordResolved(resolved []string) TransitionResult {
	result := TransitionResult{}
	for _, spID := range resolved {
		product := s.productBySID(spID)
		if product == nil {
			result.Skipped = append(result.Skipped, spID)
			continue
		}
		if product.RecordDelivery() {
			result.Resolved = append(result.Resolved, spID)
		} else {
			result.Skipped = append(result.Skipped, spID)
		}
	}
	return result
}

// StartJourney begins the delivery run for the entry on the given day.
func (s *Subscription) StartJourney(date vo.DeliveryDate, partnerSID string, now time.Time, loc *GeoPoint) error {
	entry := s.schedule.EntryOn(date)
	if entry == nil {
		return fmt.Errorf("%w: %s", ErrDeliveryNotFound, date)
	}
	if err := entry.StartJourney(partnerSID, now, loc); err != nil {
		return err
	}
	s.touch(now)
	return nil
}

// MarkDelivered resolves the reaching entry on the given day as delivered
// and advances the counters of every product it carried.
func (s *Subscription) MarkDelivered(date vo.DeliveryDate, now time.Time) (TransitionResult, error) {
	entry := s.schedule.EntryOn(date)
	if entry == nil {
		return TransitionResult{}, fmt.Errorf("%w: %s", ErrDeliveryNotFound, date)
	}
	resolved, err := entry.MarkDelivered(now)
	if err != nil {
		return TransitionResult{}, err
	}
	result := s.recordResolved(resolved)
	s.touch(now)
	s.RecomputeStatus(now)
	return result, nil
}

// MarkNoResponse resolves the reaching entry on the given day as noResponse.
// Counters advance exactly as for a delivered entry.
func (s *Subscription) MarkNoResponse(date vo.DeliveryDate, now time.Time) (TransitionResult, error) {
	entry := s.schedule.EntryOn(date)
	if entry == nil {
		return TransitionResult{}, fmt.Errorf("%w: %s", ErrDeliveryNotFound, date)
	}
	resolved, err := entry.MarkNoResponse(now)
	if err != nil {
		return TransitionResult{}, err
	}
	result := s.recordResolved(resolved)
	s.touch(now)
	s.RecomputeStatus(now)
	return result, nil
}

// AwaitCustomer parks the reaching entry until the customer confirms.
func (s *Subscription) AwaitCustomer(date vo.DeliveryDate, now time.Time) error {
	entry := s.schedule.EntryOn(date)
	if entry == nil {
		return fmt.Errorf("%w: %s", ErrDeliveryNotFound, date)
	}
	if err := entry.AwaitCustomer(); err != nil {
		return err
	}
	s.touch(now)
	return nil
}

// ConfirmByCustomer resolves an awaitingCustomer entry. Only the owning
// customer may confirm.
func (s *Subscription) ConfirmByCustomer(date vo.DeliveryDate, customerSID string, now time.Time) (TransitionResult, error) {
	if customerSID != s.customerSID {
		return TransitionResult{}, ErrNotOwner
	}
	entry := s.schedule.EntryOn(date)
	if entry == nil {
		return TransitionResult{}, fmt.Errorf("%w: %s", ErrDeliveryNotFound, date)
	}
	resolved, err := entry.ConfirmByCustomer(now)
	if err != nil {
		return TransitionResult{}, err
	}
	result := s.recordResolved(resolved)
	s.touch(now)
	s.RecomputeStatus(now)
	return result, nil
}

// Cancel cancels the whole subscription. It is only permitted until the
// cancellation cutoff before the next scheduled delivery; all future
// unresolved entries are cancelled with it.
func (s *Subscription) Cancel(reason string, now time.Time, cancellationCutoffHours int) error {
	if s.status == vo.StatusCancelled {
		return nil
	}
	if s.status.IsTerminal() {
		return fmt.Errorf("%w: cannot cancel %s subscription", ErrInvalidStatusTransition, s.status)
	}
	if reason == "" {
		return fmt.Errorf("%w: cancel reason is required", ErrInvalidInput)
	}

	today := vo.DateOf(now)
	if next := s.schedule.NextScheduled(today); next != nil {
		deadline := next.Date().AtHour(next.Slot().NominalHour()).Add(-time.Duration(cancellationCutoffHours) * time.Hour)
		if !now.Before(deadline) {
			return fmt.Errorf("%w: next delivery on %s", ErrCancellationWindowClosed, next.Date())
		}
	}

	for _, entry := range s.schedule.FutureUnresolved(today) {
		if err := entry.Cancel(now); err != nil {
			return err
		}
	}
	// Today's entry stays as-is: past cutoff it will be fulfilled or swept.

	s.status = vo.StatusCancelled
	s.cancelReason = &reason
	s.cancelledAt = &now
	s.touch(now)
	return nil
}

// Pause parks all future scheduled entries and the subscription itself.
func (s *Subscription) Pause(now time.Time) error {
	if !s.status.CanTransitionTo(vo.StatusPaused) {
		return ErrInvalidTransition(s.status.String(), vo.StatusPaused.String())
	}
	today := vo.DateOf(now)
	for _, entry := range s.schedule.FutureUnresolved(today) {
		if entry.Status() == vo.DeliveryScheduled {
			if err := entry.Pause(); err != nil {
				return err
			}
		}
	}
	s.status = vo.StatusPaused
	s.touch(now)
	return nil
}

// Resume reactivates a paused subscription and its paused entries.
func (s *Subscription) Resume(now time.Time) error {
	if s.status != vo.StatusPaused {
		return ErrInvalidTransition(s.status.String(), vo.StatusActive.String())
	}
	for _, entry := range s.schedule.Entries() {
		if entry.Status() == vo.DeliveryPaused {
			if err := entry.Resume(); err != nil {
				return err
			}
		}
	}
	s.status = vo.StatusActive
	s.touch(now)
	s.RecomputeStatus(now)
	return nil
}

// RecomputeStatus derives the subscription status from the counters and the
// end date. Cancelled and paused are sticky; everything else is computed.
func (s *Subscription) RecomputeStatus(now time.Time) {
	if s.status == vo.StatusCancelled || s.status == vo.StatusPaused || s.status == vo.StatusPending {
		return
	}
	today := vo.DateOf(now)
	switch {
	case s.RemainingDeliveries() == 0 && s.TotalDeliveries() > 0:
		s.status = vo.StatusCompleted
	case s.endDate.Before(today):
		s.status = vo.StatusExpired
	case today.DaysUntil(s.endDate) <= expiringThresholdDays:
		s.status = vo.StatusExpiring
	default:
		s.status = vo.StatusActive
	}
}

// expiringThresholdDays is how close to the end date a subscription is
// surfaced as expiring.
const expiringThresholdDays = 3

// CheckInvariants verifies the aggregate's reconciliation rules. Used by
// tests after every mutation.
func (s *Subscription) CheckInvariants() error {
	for _, p := range s.products {
		if err := p.CheckCounters(); err != nil {
			return err
		}
	}
	var prev *DeliveryEntry
	for _, e := range s.schedule.Entries() {
		if prev != nil && !prev.Date().Before(e.Date()) {
			return fmt.Errorf("schedule out of order at %s", e.Date())
		}
		prev = e
		lineSeen := make(map[string]bool)
		for _, line := range e.Lines() {
			// Legacy lines without an id are awaiting backfill and cannot
			// be told apart.
			if line.SubscriptionProductID == "" {
				continue
			}
			if lineSeen[line.SubscriptionProductID] {
				return fmt.Errorf("duplicate line %s on %s", line.SubscriptionProductID, e.Date())
			}
			lineSeen[line.SubscriptionProductID] = true
		}
	}
	if last, ok := s.schedule.LastDate(); ok && last.After(s.endDate) {
		return fmt.Errorf("schedule extends past end date %s", s.endDate)
	}
	return nil
}
