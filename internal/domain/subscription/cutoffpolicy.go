package subscription

import (
	"fmt"
	"time"

	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
)

// SchedulingPolicy bundles the operational knobs of the scheduling engine.
// Values come from configuration; the defaults match production behavior.
type SchedulingPolicy struct {
	// CancellationCutoffHours is how long before the next delivery's nominal
	// slot time a full-subscription cancellation is still accepted.
	CancellationCutoffHours int
	// RescheduleWindowMonths bounds how far ahead of the original date a
	// delivery may be rescheduled.
	RescheduleWindowMonths int
	// AvailabilityHorizonDays extends the available-date scan past the last
	// scheduled delivery.
	AvailabilityHorizonDays int
	// AutoCancelHour is the business-local hour at which an unresolved
	// delivery day is closed out with a concession.
	AutoCancelHour int
}

// DefaultSchedulingPolicy returns the production defaults.
func DefaultSchedulingPolicy() SchedulingPolicy {
	return SchedulingPolicy{
		CancellationCutoffHours: 12,
		RescheduleWindowMonths:  2,
		AvailabilityHorizonDays: 15,
		AutoCancelHour:          23,
	}
}

// ConcessionGrant records one auto-cancellation compensated by the policy.
type ConcessionGrant struct {
	OriginalDate   vo.DeliveryDate
	CompensationAt vo.DeliveryDate
	ProductSIDs    []string
}

// autoCancelReason is stored in the concession details of swept entries.
const autoCancelReason = "not delivered by end of day"

// ApplyCutoffPolicy closes out delivery days the partner never resolved.
// Every entry still scheduled or awaiting the customer past its
// AutoCancelHour boundary is cancelled with a concession, a compensating
// entry carrying the same product lines is appended after the current end
// date, each affected product regains one delivery, and the subscription's
// end date moves out to cover the new entry. Entries whose concession
// already fired are skipped, which makes the sweep safe to re-run.
func (s *Subscription) ApplyCutoffPolicy(now time.Time, policy SchedulingPolicy) ([]ConcessionGrant, error) {
	// Expired is not a bar here: extending the end date with a concession
	// is exactly how an expired subscription comes back.
	if s.status == vo.StatusCancelled || s.status == vo.StatusCompleted {
		return nil, nil
	}

	due := s.schedule.UnresolvedAtBoundary(now, policy.AutoCancelHour)
	if len(due) == 0 {
		return nil, nil
	}

	var grants []ConcessionGrant
	for _, entry := range due {
		compensationAt := s.endDate.AddDays(1)
		if last, ok := s.schedule.LastDate(); ok && last.After(s.endDate) {
			compensationAt = last.AddDays(1)
		}

		lines := entry.Lines()
		fresh := make([]DeliveryProductLine, 0, len(lines))
		productSIDs := make([]string, 0, len(lines))
		for _, line := range lines {
			if line.Status.IsTerminal() {
				continue
			}
			line.Status = vo.LinePending
			fresh = append(fresh, line)
			productSIDs = append(productSIDs, line.SubscriptionProductID)
		}
		if len(fresh) == 0 {
			// All lines already resolved individually; cancel without
			// compensation so the entry stops matching the sweep.
			if err := entry.CancelWithConcession(now, entry.Date(), autoCancelReason); err != nil {
				return grants, err
			}
			s.touch(now)
			continue
		}

		if err := entry.CancelWithConcession(now, compensationAt, autoCancelReason); err != nil {
			return grants, err
		}

		compensation, err := NewDeliveryEntry(compensationAt, entry.Slot(), entry.PartnerSID(), fresh...)
		if err != nil {
			return grants, err
		}
		if err := s.schedule.Insert(compensation); err != nil {
			return grants, fmt.Errorf("scheduling concession for %s: %w", entry.Date(), err)
		}

		for _, spID := range productSIDs {
			if product := s.productBySID(spID); product != nil {
				product.ExtendTotal(1)
			}
		}

		s.extendEndDate(compensationAt)
		s.touch(now)
		grants = append(grants, ConcessionGrant{
			OriginalDate:   entry.Date(),
			CompensationAt: compensationAt,
			ProductSIDs:    productSIDs,
		})
	}

	s.RecomputeStatus(now)
	return grants, nil
}
