package usecases

import (
	"context"
	"errors"

	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
	"github.com/milkrun-inc/milkrun/internal/shared/biztime"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

type ConfirmDeliveryCommand struct {
	SubscriptionSID string
	Date            string // YYYY-MM-DD
	CustomerSID     string
}

// ConfirmDeliveryUseCase lets the owning customer confirm receipt of a
// delivery the partner left in awaitingCustomer.
type ConfirmDeliveryUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	eventPublisher   EventPublisher
	policy           subscription.SchedulingPolicy
	logger           logger.Interface
}

func NewConfirmDeliveryUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	eventPublisher EventPublisher,
	policy subscription.SchedulingPolicy,
	logger logger.Interface,
) *ConfirmDeliveryUseCase {
	return &ConfirmDeliveryUseCase{
		subscriptionRepo: subscriptionRepo,
		eventPublisher:   eventPublisher,
		policy:           policy,
		logger:           logger,
	}
}

func (uc *ConfirmDeliveryUseCase) Execute(ctx context.Context, cmd ConfirmDeliveryCommand) (*subscription.Subscription, error) {
	date, err := vo.ParseDeliveryDate(cmd.Date)
	if err != nil {
		return nil, err
	}

	sub, result, err := uc.apply(ctx, cmd, date)
	if errors.Is(err, subscription.ErrVersionConflict) {
		// Another writer updated the aggregate between our read and write.
		// One reload-and-reapply is enough: the transition either still
		// holds on the fresh copy or fails with a domain error.
		uc.logger.Infow("retrying delivery confirmation after version conflict", "subscription_sid", cmd.SubscriptionSID)
		sub, result, err = uc.apply(ctx, cmd, date)
	}
	if err != nil {
		return nil, err
	}

	uc.logger.Infow("delivery confirmed by customer",
		"subscription_sid", sub.SID(),
		"date", cmd.Date,
		"resolved_products", len(result.Resolved),
	)

	if uc.eventPublisher != nil {
		entry := sub.Schedule().EntryOn(date)
		event := subscription.NewDeliveryStatusChangedEvent(sub, entry, vo.DeliveryAwaitingCustomer, vo.DeliveryDelivered)
		if err := uc.eventPublisher.Publish(ctx, event); err != nil {
			uc.logger.Warnw("failed to publish delivery status event", "error", err, "subscription_sid", sub.SID())
		}
	}

	return sub, nil
}

func (uc *ConfirmDeliveryUseCase) apply(ctx context.Context, cmd ConfirmDeliveryCommand, date vo.DeliveryDate) (*subscription.Subscription, subscription.TransitionResult, error) {
	sub, err := loadSubscription(ctx, uc.subscriptionRepo, cmd.SubscriptionSID, uc.policy, uc.logger)
	if err != nil {
		return nil, subscription.TransitionResult{}, err
	}
	result, err := sub.ConfirmByCustomer(date, cmd.CustomerSID, biztime.NowUTC())
	if err != nil {
		return nil, subscription.TransitionResult{}, err
	}
	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		return nil, subscription.TransitionResult{}, err
	}
	return sub, result, nil
}
