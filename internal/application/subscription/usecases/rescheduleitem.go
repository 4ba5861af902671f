package usecases

import (
	"context"

	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
	"github.com/milkrun-inc/milkrun/internal/shared/biztime"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

type RescheduleItemCommand struct {
	SubscriptionSID       string
	CustomerSID           string
	SubscriptionProductID string
	CurrentDate           string // YYYY-MM-DD
	NewDate               string // YYYY-MM-DD
}

type RescheduleItemUseCase struct {
	subscriptionRepo  subscription.SubscriptionRepository
	eventPublisher    EventPublisher
	availabilityCache AvailabilityCache
	policy            subscription.SchedulingPolicy
	logger            logger.Interface
}

func NewRescheduleItemUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	eventPublisher EventPublisher,
	availabilityCache AvailabilityCache,
	policy subscription.SchedulingPolicy,
	logger logger.Interface,
) *RescheduleItemUseCase {
	return &RescheduleItemUseCase{
		subscriptionRepo:  subscriptionRepo,
		eventPublisher:    eventPublisher,
		availabilityCache: availabilityCache,
		policy:            policy,
		logger:            logger,
	}
}

func (uc *RescheduleItemUseCase) Execute(ctx context.Context, cmd RescheduleItemCommand) (*subscription.Subscription, error) {
	currentDate, err := vo.ParseDeliveryDate(cmd.CurrentDate)
	if err != nil {
		return nil, err
	}
	newDate, err := vo.ParseDeliveryDate(cmd.NewDate)
	if err != nil {
		return nil, err
	}

	sub, err := loadSubscription(ctx, uc.subscriptionRepo, cmd.SubscriptionSID, uc.policy, uc.logger)
	if err != nil {
		return nil, err
	}
	if cmd.CustomerSID != "" && sub.CustomerSID() != cmd.CustomerSID {
		return nil, subscription.ErrNotOwner
	}

	if err := sub.RescheduleItem(cmd.SubscriptionProductID, currentDate, newDate, biztime.NowUTC(), uc.policy); err != nil {
		return nil, err
	}
	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	uc.logger.Infow("delivery item rescheduled",
		"subscription_sid", sub.SID(),
		"subscription_product_id", cmd.SubscriptionProductID,
		"current_date", cmd.CurrentDate,
		"new_date", cmd.NewDate,
	)

	if uc.availabilityCache != nil {
		if err := uc.availabilityCache.Invalidate(ctx, sub.SID()); err != nil {
			uc.logger.Warnw("failed to invalidate availability cache", "error", err, "subscription_sid", sub.SID())
		}
	}
	if uc.eventPublisher != nil {
		if err := uc.eventPublisher.Publish(ctx, subscription.NewItemRescheduledEvent(sub, cmd.SubscriptionProductID, currentDate, newDate)); err != nil {
			uc.logger.Warnw("failed to publish item rescheduled event", "error", err, "subscription_sid", sub.SID())
		}
	}

	return sub, nil
}
