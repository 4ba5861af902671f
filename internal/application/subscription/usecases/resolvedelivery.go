package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
	"github.com/milkrun-inc/milkrun/internal/shared/biztime"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

// Delivery outcomes a partner can report at the doorstep.
const (
	OutcomeDelivered        = "delivered"
	OutcomeNoResponse       = "noResponse"
	OutcomeAwaitingCustomer = "awaitingCustomer"
)

type ResolveDeliveryCommand struct {
	SubscriptionSID string
	Date            string // YYYY-MM-DD
	PartnerSID      string
	Outcome         string
}

type ResolveDeliveryResult struct {
	Subscription *subscription.Subscription
	Transition   subscription.TransitionResult
}

// ResolveDeliveryUseCase closes a reaching delivery with the partner's
// reported outcome: handed over, nobody answered, or parked for the customer
// to confirm.
type ResolveDeliveryUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	eventPublisher   EventPublisher
	policy           subscription.SchedulingPolicy
	logger           logger.Interface
}

func NewResolveDeliveryUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	eventPublisher EventPublisher,
	policy subscription.SchedulingPolicy,
	logger logger.Interface,
) *ResolveDeliveryUseCase {
	return &ResolveDeliveryUseCase{
		subscriptionRepo: subscriptionRepo,
		eventPublisher:   eventPublisher,
		policy:           policy,
		logger:           logger,
	}
}

func (uc *ResolveDeliveryUseCase) Execute(ctx context.Context, cmd ResolveDeliveryCommand) (*ResolveDeliveryResult, error) {
	date, err := vo.ParseDeliveryDate(cmd.Date)
	if err != nil {
		return nil, err
	}
	switch cmd.Outcome {
	case OutcomeDelivered, OutcomeNoResponse, OutcomeAwaitingCustomer:
	default:
		return nil, fmt.Errorf("%w: unknown outcome %q", subscription.ErrInvalidInput, cmd.Outcome)
	}

	result, toStatus, err := uc.apply(ctx, cmd, date)
	if errors.Is(err, subscription.ErrVersionConflict) {
		// Another writer updated the aggregate between our read and write.
		// One reload-and-reapply is enough: the transition either still
		// holds on the fresh copy or fails with a domain error.
		uc.logger.Infow("retrying delivery resolution after version conflict", "subscription_sid", cmd.SubscriptionSID)
		result, toStatus, err = uc.apply(ctx, cmd, date)
	}
	if err != nil {
		return nil, err
	}

	sub := result.Subscription
	uc.logger.Infow("delivery resolved",
		"subscription_sid", sub.SID(),
		"date", cmd.Date,
		"outcome", cmd.Outcome,
		"resolved_products", len(result.Transition.Resolved),
	)
	for _, spID := range result.Transition.Skipped {
		uc.logger.Warnw("product line skipped: no remaining deliveries",
			"subscription_sid", sub.SID(),
			"subscription_product_id", spID,
			"date", cmd.Date,
		)
	}

	if uc.eventPublisher != nil {
		entry := sub.Schedule().EntryOn(date)
		event := subscription.NewDeliveryStatusChangedEvent(sub, entry, vo.DeliveryReaching, toStatus)
		if err := uc.eventPublisher.Publish(ctx, event); err != nil {
			uc.logger.Warnw("failed to publish delivery status event", "error", err, "subscription_sid", sub.SID())
		}
	}

	return result, nil
}

func (uc *ResolveDeliveryUseCase) apply(ctx context.Context, cmd ResolveDeliveryCommand, date vo.DeliveryDate) (*ResolveDeliveryResult, vo.DeliveryStatus, error) {
	sub, err := loadSubscription(ctx, uc.subscriptionRepo, cmd.SubscriptionSID, uc.policy, uc.logger)
	if err != nil {
		return nil, "", err
	}
	if cmd.PartnerSID != "" && sub.PartnerSID() != cmd.PartnerSID {
		return nil, "", subscription.ErrNotAssignedPartner
	}

	now := biztime.NowUTC()
	var result subscription.TransitionResult
	var toStatus vo.DeliveryStatus

	switch cmd.Outcome {
	case OutcomeDelivered:
		result, err = sub.MarkDelivered(date, now)
		toStatus = vo.DeliveryDelivered
	case OutcomeNoResponse:
		result, err = sub.MarkNoResponse(date, now)
		toStatus = vo.DeliveryNoResponse
	case OutcomeAwaitingCustomer:
		err = sub.AwaitCustomer(date, now)
		toStatus = vo.DeliveryAwaitingCustomer
	}
	if err != nil {
		return nil, "", err
	}

	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		return nil, "", err
	}
	return &ResolveDeliveryResult{Subscription: sub, Transition: result}, toStatus, nil
}
