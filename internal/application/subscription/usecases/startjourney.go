package usecases

import (
	"context"
	"errors"

	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
	"github.com/milkrun-inc/milkrun/internal/shared/biztime"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

type StartJourneyCommand struct {
	SubscriptionSID string
	Date            string // YYYY-MM-DD
	PartnerSID      string
	Latitude        *float64
	Longitude       *float64
}

type StartJourneyUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	eventPublisher   EventPublisher
	policy           subscription.SchedulingPolicy
	logger           logger.Interface
}

func NewStartJourneyUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	eventPublisher EventPublisher,
	policy subscription.SchedulingPolicy,
	logger logger.Interface,
) *StartJourneyUseCase {
	return &StartJourneyUseCase{
		subscriptionRepo: subscriptionRepo,
		eventPublisher:   eventPublisher,
		policy:           policy,
		logger:           logger,
	}
}

func (uc *StartJourneyUseCase) Execute(ctx context.Context, cmd StartJourneyCommand) (*subscription.Subscription, error) {
	date, err := vo.ParseDeliveryDate(cmd.Date)
	if err != nil {
		return nil, err
	}

	var loc *subscription.GeoPoint
	if cmd.Latitude != nil && cmd.Longitude != nil {
		loc = &subscription.GeoPoint{Latitude: *cmd.Latitude, Longitude: *cmd.Longitude}
	}

	sub, err := uc.apply(ctx, cmd, date, loc)
	if errors.Is(err, subscription.ErrVersionConflict) {
		// Another writer updated the aggregate between our read and write.
		// One reload-and-reapply is enough: the transition either still
		// holds on the fresh copy or fails with a domain error.
		uc.logger.Infow("retrying journey start after version conflict", "subscription_sid", cmd.SubscriptionSID)
		sub, err = uc.apply(ctx, cmd, date, loc)
	}
	if err != nil {
		return nil, err
	}

	uc.logger.Infow("delivery journey started",
		"subscription_sid", sub.SID(),
		"date", cmd.Date,
		"partner_sid", cmd.PartnerSID,
	)

	if uc.eventPublisher != nil {
		entry := sub.Schedule().EntryOn(date)
		event := subscription.NewDeliveryStatusChangedEvent(sub, entry, vo.DeliveryScheduled, vo.DeliveryReaching)
		if err := uc.eventPublisher.Publish(ctx, event); err != nil {
			uc.logger.Warnw("failed to publish delivery status event", "error", err, "subscription_sid", sub.SID())
		}
	}

	return sub, nil
}

func (uc *StartJourneyUseCase) apply(ctx context.Context, cmd StartJourneyCommand, date vo.DeliveryDate, loc *subscription.GeoPoint) (*subscription.Subscription, error) {
	sub, err := loadSubscription(ctx, uc.subscriptionRepo, cmd.SubscriptionSID, uc.policy, uc.logger)
	if err != nil {
		return nil, err
	}
	if err := sub.StartJourney(date, cmd.PartnerSID, biztime.NowUTC(), loc); err != nil {
		return nil, err
	}
	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}
