package usecases

import (
	"context"

	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
	"github.com/milkrun-inc/milkrun/internal/shared/biztime"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

// ExpireSubscriptionsUseCase is a scheduled job that recomputes the status
// of subscriptions whose end date is near or past, flipping them to expiring
// or expired.
type ExpireSubscriptionsUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	eventPublisher   EventPublisher
	logger           logger.Interface
}

func NewExpireSubscriptionsUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	eventPublisher EventPublisher,
	logger logger.Interface,
) *ExpireSubscriptionsUseCase {
	return &ExpireSubscriptionsUseCase{
		subscriptionRepo: subscriptionRepo,
		eventPublisher:   eventPublisher,
		logger:           logger,
	}
}

func (uc *ExpireSubscriptionsUseCase) Execute(ctx context.Context, withinDays int) (int, error) {
	subs, err := uc.subscriptionRepo.FindExpiringSubscriptions(ctx, withinDays)
	if err != nil {
		return 0, err
	}

	now := biztime.NowUTC()
	changed := 0
	for _, sub := range subs {
		before := sub.Status()
		sub.RecomputeStatus(now)
		if sub.Status() == before {
			continue
		}

		if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
			uc.logger.Errorw("failed to persist status change", "error", err, "subscription_sid", sub.SID())
			continue
		}
		changed++

		uc.logger.Infow("subscription status recomputed",
			"subscription_sid", sub.SID(),
			"from", before.String(),
			"to", sub.Status().String(),
		)
		if sub.Status() == vo.StatusExpired && uc.eventPublisher != nil {
			if err := uc.eventPublisher.Publish(ctx, subscription.NewSubscriptionExpiredEvent(sub)); err != nil {
				uc.logger.Warnw("failed to publish subscription expired event", "error", err, "subscription_sid", sub.SID())
			}
		}
	}
	return changed, nil
}
