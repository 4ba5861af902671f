package subscription

import (
	"fmt"
	"time"

	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
	"github.com/milkrun-inc/milkrun/internal/shared/id"
)

// DeliveryProductLine is one product's share of a calendar day's delivery.
// Lines are matched by SubscriptionProductID only; new lines always carry
// it, and legacy persisted lines without one are flagged for backfill.
type DeliveryProductLine struct {
	SubscriptionProductID string
	ProductSID            string
	Name                  string
	Quantity              vo.Quantity
	Status                vo.LineStatus
}

// GeoPoint is a live-location snapshot captured when a journey starts.
type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

// ConcessionDetails records why an entry was auto-cancelled and where its
// compensating delivery went.
type ConcessionDetails struct {
	OriginalDate  vo.DeliveryDate
	RescheduledTo vo.DeliveryDate
	Reason        string
}

// DeliveryEntry is one calendar day's aggregated delivery for a subscription,
// potentially covering several products.
type DeliveryEntry struct {
	sid               string
	date              vo.DeliveryDate
	slot              vo.Slot
	status            vo.DeliveryStatus
	cutoffAt          time.Time
	lines             []DeliveryProductLine
	partnerSID        string
	location          *GeoPoint
	startedAt         *time.Time
	deliveredAt       *time.Time
	confirmedAt       *time.Time
	canceledAt        *time.Time
	concession        bool
	concessionDetails *ConcessionDetails
}

// NewDeliveryEntry creates a scheduled entry for the given day with a fresh
// cutoff derived from the slot.
func NewDeliveryEntry(date vo.DeliveryDate, slot vo.Slot, partnerSID string, lines ...DeliveryProductLine) (*DeliveryEntry, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: delivery date is required", ErrInvalidInput)
	}
	if !vo.ValidSlots[slot] {
		return nil, fmt.Errorf("%w: %q", vo.ErrInvalidSlot, slot)
	}

	e := &DeliveryEntry{
		sid:        id.MustGenerateWithPrefix(id.PrefixDeliveryEntry, id.DefaultLength),
		date:       date,
		slot:       slot,
		status:     vo.DeliveryScheduled,
		cutoffAt:   slot.CutoffAt(date),
		partnerSID: partnerSID,
	}
	for _, line := range lines {
		if err := e.AddLine(line); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// EntryReconstructParams carries persisted state back into the entity.
type EntryReconstructParams struct {
	SID               string
	Date              vo.DeliveryDate
	Slot              vo.Slot
	Status            vo.DeliveryStatus
	CutoffAt          time.Time
	Lines             []DeliveryProductLine
	PartnerSID        string
	Location          *GeoPoint
	StartedAt         *time.Time
	DeliveredAt       *time.Time
	ConfirmedAt       *time.Time
	CanceledAt        *time.Time
	Concession        bool
	ConcessionDetails *ConcessionDetails
}

// ReconstructDeliveryEntry rebuilds an entry from persistence.
func ReconstructDeliveryEntry(p EntryReconstructParams) (*DeliveryEntry, error) {
	if p.SID == "" {
		return nil, fmt.Errorf("%w: delivery entry id is required", ErrInvalidInput)
	}
	if p.Date.IsZero() {
		return nil, fmt.Errorf("%w: delivery date is required", ErrInvalidInput)
	}
	if !vo.ValidDeliveryStatuses[p.Status] {
		return nil, fmt.Errorf("invalid delivery status: %s", p.Status)
	}

	e := &DeliveryEntry{
		sid:               p.SID,
		date:              p.Date,
		slot:              p.Slot,
		status:            p.Status,
		cutoffAt:          p.CutoffAt,
		partnerSID:        p.PartnerSID,
		location:          p.Location,
		startedAt:         p.StartedAt,
		deliveredAt:       p.DeliveredAt,
		confirmedAt:       p.ConfirmedAt,
		canceledAt:        p.CanceledAt,
		concession:        p.Concession,
		concessionDetails: p.ConcessionDetails,
	}
	seen := make(map[string]bool, len(p.Lines))
	for _, line := range p.Lines {
		// A persisted line without a subscription product id is a legacy
		// record awaiting backfill. It loads, but never matches a product,
		// so its counters stay untouched until the id is restored.
		if line.SubscriptionProductID != "" {
			if seen[line.SubscriptionProductID] {
				return nil, fmt.Errorf("%w: %s on %s", ErrDuplicateProductOnDate, line.SubscriptionProductID, p.Date)
			}
			seen[line.SubscriptionProductID] = true
		}
		e.lines = append(e.lines, line)
	}
	return e, nil
}

func (e *DeliveryEntry) SID() string                          { return e.sid }
func (e *DeliveryEntry) Date() vo.DeliveryDate                { return e.date }
func (e *DeliveryEntry) Slot() vo.Slot                        { return e.slot }
func (e *DeliveryEntry) Status() vo.DeliveryStatus            { return e.status }
func (e *DeliveryEntry) CutoffAt() time.Time                  { return e.cutoffAt }
func (e *DeliveryEntry) PartnerSID() string                   { return e.partnerSID }
func (e *DeliveryEntry) Location() *GeoPoint                  { return e.location }
func (e *DeliveryEntry) StartedAt() *time.Time                { return e.startedAt }
func (e *DeliveryEntry) DeliveredAt() *time.Time              { return e.deliveredAt }
func (e *DeliveryEntry) ConfirmedAt() *time.Time              { return e.confirmedAt }
func (e *DeliveryEntry) CanceledAt() *time.Time               { return e.canceledAt }
func (e *DeliveryEntry) Concession() bool                     { return e.concession }
func (e *DeliveryEntry) ConcessionDetails() *ConcessionDetails { return e.concessionDetails }

// Lines returns a copy of the entry's product lines.
func (e *DeliveryEntry) Lines() []DeliveryProductLine {
	out := make([]DeliveryProductLine, len(e.lines))
	copy(out, e.lines)
	return out
}

// HasProduct reports whether the entry already carries a line for the
// subscription product.
func (e *DeliveryEntry) HasProduct(subscriptionProductID string) bool {
	for _, line := range e.lines {
		if line.SubscriptionProductID == subscriptionProductID {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the entry carries no product lines.
func (e *DeliveryEntry) IsEmpty() bool {
	return len(e.lines) == 0
}

// AddLine appends a product line. A line for the same subscription product
// is rejected, which makes schedule merging idempotent at the line level.
func (e *DeliveryEntry) AddLine(line DeliveryProductLine) error {
	if line.SubscriptionProductID == "" {
		return fmt.Errorf("%w: line without subscription product id", ErrInvalidInput)
	}
	if e.HasProduct(line.SubscriptionProductID) {
		return fmt.Errorf("%w: %s on %s", ErrDuplicateProductOnDate, line.SubscriptionProductID, e.date)
	}
	e.lines = append(e.lines, line)
	return nil
}

// RemoveLine removes the line for the subscription product and returns it.
func (e *DeliveryEntry) RemoveLine(subscriptionProductID string) (DeliveryProductLine, error) {
	for i, line := range e.lines {
		if line.SubscriptionProductID == subscriptionProductID {
			e.lines = append(e.lines[:i], e.lines[i+1:]...)
			return line, nil
		}
	}
	return DeliveryProductLine{}, fmt.Errorf("%w: %s on %s", ErrProductLineNotFound, subscriptionProductID, e.date)
}

// PastCutoff reports whether the entry can no longer be modified: the cutoff
// instant has passed and the entry is for today's business calendar day.
// Future dates are never past cutoff regardless of time-of-day.
func (e *DeliveryEntry) PastCutoff(now time.Time) bool {
	return !now.Before(e.cutoffAt) && e.date.Equal(vo.DateOf(now))
}

// StartJourney moves a scheduled entry to reaching. Only the assigned partner
// may start, and only on the entry's own day.
func (e *DeliveryEntry) StartJourney(partnerSID string, now time.Time, loc *GeoPoint) error {
	if e.status != vo.DeliveryScheduled {
		return ErrInvalidTransition(e.status.String(), vo.DeliveryReaching.String())
	}
	if !e.date.Equal(vo.DateOf(now)) {
		return fmt.Errorf("%w: journey can only start on the delivery day", ErrInvalidStatusTransition)
	}
	if e.partnerSID == "" || partnerSID != e.partnerSID {
		return ErrNotAssignedPartner
	}

	e.status = vo.DeliveryReaching
	e.startedAt = &now
	if loc != nil {
		e.location = loc
	}
	return nil
}

// resolveLines marks every unresolved line delivered and returns the
// subscription product ids that were resolved by this call. Lines already in
// a terminal state are left untouched so a retried request cannot double
// count.
func (e *DeliveryEntry) resolveLines() []string {
	resolved := make([]string, 0, len(e.lines))
	for i := range e.lines {
		if e.lines[i].Status.IsTerminal() {
			continue
		}
		e.lines[i].Status = vo.LineDelivered
		resolved = append(resolved, e.lines[i].SubscriptionProductID)
	}
	return resolved
}

// MarkDelivered resolves a reaching entry as delivered and returns the
// subscription product ids whose counters must advance.
func (e *DeliveryEntry) MarkDelivered(now time.Time) ([]string, error) {
	if e.status != vo.DeliveryReaching {
		return nil, ErrInvalidTransition(e.status.String(), vo.DeliveryDelivered.String())
	}
	resolved := e.resolveLines()
	e.status = vo.DeliveryDelivered
	e.deliveredAt = &now
	return resolved, nil
}

// MarkNoResponse resolves a reaching entry where the customer could not be
// reached. It counts as delivered for bookkeeping but is recorded distinctly.
func (e *DeliveryEntry) MarkNoResponse(now time.Time) ([]string, error) {
	if e.status != vo.DeliveryReaching {
		return nil, ErrInvalidTransition(e.status.String(), vo.DeliveryNoResponse.String())
	}
	resolved := e.resolveLines()
	e.status = vo.DeliveryNoResponse
	e.deliveredAt = &now
	return resolved, nil
}

// AwaitCustomer parks a reaching entry until the customer confirms receipt.
func (e *DeliveryEntry) AwaitCustomer() error {
	if e.status != vo.DeliveryReaching {
		return ErrInvalidTransition(e.status.String(), vo.DeliveryAwaitingCustomer.String())
	}
	e.status = vo.DeliveryAwaitingCustomer
	return nil
}

// ConfirmByCustomer resolves an awaitingCustomer entry after explicit
// customer confirmation.
func (e *DeliveryEntry) ConfirmByCustomer(now time.Time) ([]string, error) {
	if e.status != vo.DeliveryAwaitingCustomer {
		return nil, ErrInvalidTransition(e.status.String(), vo.DeliveryDelivered.String())
	}
	resolved := e.resolveLines()
	e.status = vo.DeliveryDelivered
	e.confirmedAt = &now
	return resolved, nil
}

// Cancel cancels a not-yet-terminal entry.
func (e *DeliveryEntry) Cancel(now time.Time) error {
	if !e.status.CanTransitionTo(vo.DeliveryCanceled) {
		return ErrInvalidTransition(e.status.String(), vo.DeliveryCanceled.String())
	}
	e.status = vo.DeliveryCanceled
	e.canceledAt = &now
	return nil
}

// CancelWithConcession force-cancels an unresolved entry at the end of its
// day and records where the compensating delivery was scheduled. It is a
// no-op error when the concession already fired for this entry.
func (e *DeliveryEntry) CancelWithConcession(now time.Time, rescheduledTo vo.DeliveryDate, reason string) error {
	if e.concession {
		return fmt.Errorf("%w: concession already applied on %s", ErrInvalidStatusTransition, e.date)
	}
	if e.status != vo.DeliveryScheduled && e.status != vo.DeliveryAwaitingCustomer {
		return ErrInvalidTransition(e.status.String(), vo.DeliveryCanceled.String())
	}
	e.status = vo.DeliveryCanceled
	e.canceledAt = &now
	e.concession = true
	e.concessionDetails = &ConcessionDetails{
		OriginalDate:  e.date,
		RescheduledTo: rescheduledTo,
		Reason:        reason,
	}
	return nil
}

// Pause parks a scheduled entry.
func (e *DeliveryEntry) Pause() error {
	if e.status != vo.DeliveryScheduled {
		return ErrInvalidTransition(e.status.String(), vo.DeliveryPaused.String())
	}
	e.status = vo.DeliveryPaused
	return nil
}

// Resume returns a paused entry to scheduled.
func (e *DeliveryEntry) Resume() error {
	if e.status != vo.DeliveryPaused {
		return ErrInvalidTransition(e.status.String(), vo.DeliveryScheduled.String())
	}
	e.status = vo.DeliveryScheduled
	return nil
}

// Reschedule moves the entry to a new day and slot with a fresh cutoff and
// resets its status to scheduled. Callers validate the window and collision
// rules; terminal entries cannot move.
func (e *DeliveryEntry) Reschedule(newDate vo.DeliveryDate, newSlot vo.Slot) error {
	if e.status.IsTerminal() {
		return ErrInvalidTransition(e.status.String(), vo.DeliveryScheduled.String())
	}
	if !vo.ValidSlots[newSlot] {
		return fmt.Errorf("%w: %q", vo.ErrInvalidSlot, newSlot)
	}
	e.date = newDate
	e.slot = newSlot
	e.cutoffAt = newSlot.CutoffAt(newDate)
	e.status = vo.DeliveryScheduled
	return nil
}

// DayBoundaryAt returns the auto-cancellation boundary instant for this
// entry's date at the given business-local hour.
func (e *DeliveryEntry) DayBoundaryAt(hour int) time.Time {
	return e.date.AtHour(hour)
}

// Unresolved reports whether the entry is still waiting for fulfilment.
func (e *DeliveryEntry) Unresolved() bool {
	return e.status == vo.DeliveryScheduled || e.status == vo.DeliveryAwaitingCustomer
}

// DueToday reports whether the entry falls on the business calendar day of now.
func (e *DeliveryEntry) DueToday(now time.Time) bool {
	return e.date.Equal(vo.DateOf(now))
}
