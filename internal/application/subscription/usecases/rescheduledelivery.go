package usecases

import (
	"context"

	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
	"github.com/milkrun-inc/milkrun/internal/shared/biztime"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

type RescheduleDeliveryCommand struct {
	SubscriptionSID string
	CustomerSID     string
	OldDate         string // YYYY-MM-DD
	NewDate         string // YYYY-MM-DD
	NewSlot         string // empty keeps the subscription slot
}

type RescheduleDeliveryUseCase struct {
	subscriptionRepo  subscription.SubscriptionRepository
	eventPublisher    EventPublisher
	availabilityCache AvailabilityCache
	policy            subscription.SchedulingPolicy
	logger            logger.Interface
}

func NewRescheduleDeliveryUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	eventPublisher EventPublisher,
	availabilityCache AvailabilityCache,
	policy subscription.SchedulingPolicy,
	logger logger.Interface,
) *RescheduleDeliveryUseCase {
	return &RescheduleDeliveryUseCase{
		subscriptionRepo:  subscriptionRepo,
		eventPublisher:    eventPublisher,
		availabilityCache: availabilityCache,
		policy:            policy,
		logger:            logger,
	}
}

func (uc *RescheduleDeliveryUseCase) Execute(ctx context.Context, cmd RescheduleDeliveryCommand) (*subscription.Subscription, error) {
	oldDate, err := vo.ParseDeliveryDate(cmd.OldDate)
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

	newSlot := sub.Slot()
	if cmd.NewSlot != "" {
		newSlot, err = vo.ParseSlot(cmd.NewSlot)
		if err != nil {
			return nil, err
		}
	}

	if err := sub.RescheduleDelivery(oldDate, newDate, newSlot, biztime.NowUTC(), uc.policy); err != nil {
		return nil, err
	}
	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	uc.logger.Infow("delivery rescheduled",
		"subscription_sid", sub.SID(),
		"old_date", cmd.OldDate,
		"new_date", cmd.NewDate,
		"new_slot", newSlot.String(),
	)

	if uc.availabilityCache != nil {
		if err := uc.availabilityCache.Invalidate(ctx, sub.SID()); err != nil {
			uc.logger.Warnw("failed to invalidate availability cache", "error", err, "subscription_sid", sub.SID())
		}
	}
	if uc.eventPublisher != nil {
		if err := uc.eventPublisher.Publish(ctx, subscription.NewDeliveryRescheduledEvent(sub, oldDate, newDate, newSlot)); err != nil {
			uc.logger.Warnw("failed to publish delivery rescheduled event", "error", err, "subscription_sid", sub.SID())
		}
	}

	return sub, nil
}
