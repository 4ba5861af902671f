package usecases

import (
	"context"

	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	"github.com/milkrun-inc/milkrun/internal/shared/biztime"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

type CancelSubscriptionCommand struct {
	SubscriptionSID string
	CustomerSID     string // acting customer; empty for admin cancellation
	Reason          string
}

type CancelSubscriptionUseCase struct {
	subscriptionRepo  subscription.SubscriptionRepository
	eventPublisher    EventPublisher
	availabilityCache AvailabilityCache
	policy            subscription.SchedulingPolicy
	logger            logger.Interface
}

func NewCancelSubscriptionUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	eventPublisher EventPublisher,
	availabilityCache AvailabilityCache,
	policy subscription.SchedulingPolicy,
	logger logger.Interface,
) *CancelSubscriptionUseCase {
	return &CancelSubscriptionUseCase{
		subscriptionRepo:  subscriptionRepo,
		eventPublisher:    eventPublisher,
		availabilityCache: availabilityCache,
		policy:            policy,
		logger:            logger,
	}
}

func (uc *CancelSubscriptionUseCase) Execute(ctx context.Context, cmd CancelSubscriptionCommand) (*subscription.Subscription, error) {
	sub, err := loadSubscription(ctx, uc.subscriptionRepo, cmd.SubscriptionSID, uc.policy, uc.logger)
	if err != nil {
		return nil, err
	}
	if cmd.CustomerSID != "" && sub.CustomerSID() != cmd.CustomerSID {
		return nil, subscription.ErrNotOwner
	}

	now := biztime.NowUTC()
	if err := sub.Cancel(cmd.Reason, now, uc.policy.CancellationCutoffHours); err != nil {
		return nil, err
	}
	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	uc.logger.Infow("subscription cancelled",
		"subscription_sid", sub.SID(),
		"customer_sid", sub.CustomerSID(),
		"reason", cmd.Reason,
	)

	if uc.availabilityCache != nil {
		if err := uc.availabilityCache.Invalidate(ctx, sub.SID()); err != nil {
			uc.logger.Warnw("failed to invalidate availability cache", "error", err, "subscription_sid", sub.SID())
		}
	}
	if uc.eventPublisher != nil {
		if err := uc.eventPublisher.Publish(ctx, subscription.NewSubscriptionCancelledEvent(sub, cmd.Reason, now)); err != nil {
			uc.logger.Warnw("failed to publish subscription cancelled event", "error", err, "subscription_sid", sub.SID())
		}
	}

	return sub, nil
}
