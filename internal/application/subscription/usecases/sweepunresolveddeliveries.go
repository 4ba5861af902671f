package usecases

import (
	"context"
	"errors"

	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
	"github.com/milkrun-inc/milkrun/internal/shared/biztime"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

type SweepResult struct {
	SubscriptionsSwept int
	ConcessionsGranted int
}

// SweepUnresolvedDeliveriesUseCase is the scheduled end-of-day job: it finds
// every subscription with a delivery day left unresolved past the
// auto-cancellation boundary and applies the concession policy. A version
// conflict on one subscription is logged and skipped; the entry is still
// unresolved, so the next run picks it up.
type SweepUnresolvedDeliveriesUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	eventPublisher   EventPublisher
	policy           subscription.SchedulingPolicy
	logger           logger.Interface
}

func NewSweepUnresolvedDeliveriesUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	eventPublisher EventPublisher,
	policy subscription.SchedulingPolicy,
	logger logger.Interface,
) *SweepUnresolvedDeliveriesUseCase {
	return &SweepUnresolvedDeliveriesUseCase{
		subscriptionRepo: subscriptionRepo,
		eventPublisher:   eventPublisher,
		policy:           policy,
		logger:           logger,
	}
}

func (uc *SweepUnresolvedDeliveriesUseCase) Execute(ctx context.Context) (*SweepResult, error) {
	now := biztime.NowUTC()
	today := vo.DateOf(now)

	subs, err := uc.subscriptionRepo.FindWithUnresolvedDeliveriesBefore(ctx, today)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{}
	for _, sub := range subs {
		grants, err := sub.ApplyCutoffPolicy(now, uc.policy)
		if err != nil {
			uc.logger.Errorw("cutoff policy failed", "error", err, "subscription_sid", sub.SID())
			continue
		}
		if len(grants) == 0 {
			continue
		}

		if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
			if errors.Is(err, subscription.ErrVersionConflict) {
				uc.logger.Infow("sweep lost a write race, deferring to next run", "subscription_sid", sub.SID())
			} else {
				uc.logger.Errorw("failed to persist cutoff policy result", "error", err, "subscription_sid", sub.SID())
			}
			continue
		}

		result.SubscriptionsSwept++
		result.ConcessionsGranted += len(grants)
		for _, grant := range grants {
			uc.logger.Infow("concession granted for unresolved delivery",
				"subscription_sid", sub.SID(),
				"original_date", grant.OriginalDate.String(),
				"compensation_at", grant.CompensationAt.String(),
				"products", len(grant.ProductSIDs),
			)
			if uc.eventPublisher != nil {
				if err := uc.eventPublisher.Publish(ctx, subscription.NewConcessionGrantedEvent(sub, grant)); err != nil {
					uc.logger.Warnw("failed to publish concession event", "error", err, "subscription_sid", sub.SID())
				}
			}
		}
	}

	uc.logger.Infow("delivery sweep finished",
		"candidates", len(subs),
		"swept", result.SubscriptionsSwept,
		"concessions", result.ConcessionsGranted,
	)
	return result, nil
}
