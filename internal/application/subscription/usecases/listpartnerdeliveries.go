package usecases

import (
	"context"

	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
	"github.com/milkrun-inc/milkrun/internal/shared/biztime"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

type ListPartnerDeliveriesQuery struct {
	PartnerSID string
	Date       string // YYYY-MM-DD, empty means today
}

// PartnerDelivery pairs a subscription with its entry for the requested day.
type PartnerDelivery struct {
	Subscription *subscription.Subscription
	Entry        *subscription.DeliveryEntry
}

// ListPartnerDeliveriesUseCase builds a partner's route sheet for one day.
type ListPartnerDeliveriesUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	policy           subscription.SchedulingPolicy
	logger           logger.Interface
}

func NewListPartnerDeliveriesUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	policy subscription.SchedulingPolicy,
	logger logger.Interface,
) *ListPartnerDeliveriesUseCase {
	return &ListPartnerDeliveriesUseCase{
		subscriptionRepo: subscriptionRepo,
		policy:           policy,
		logger:           logger,
	}
}

func (uc *ListPartnerDeliveriesUseCase) Execute(ctx context.Context, query ListPartnerDeliveriesQuery) ([]PartnerDelivery, error) {
	var date vo.DeliveryDate
	var err error
	if query.Date != "" {
		date, err = vo.ParseDeliveryDate(query.Date)
		if err != nil {
			return nil, err
		}
	} else {
		date = vo.DateOf(biztime.NowUTC())
	}

	subs, err := uc.subscriptionRepo.FindDueOn(ctx, date, query.PartnerSID)
	if err != nil {
		return nil, err
	}

	out := make([]PartnerDelivery, 0, len(subs))
	for _, sub := range subs {
		// Settle overdue days first so a day the concession already closed
		// never shows up on the route sheet. A failing aggregate is skipped
		// rather than breaking the whole sheet.
		settled, err := settleOverdueDays(ctx, uc.subscriptionRepo, sub, uc.policy, uc.logger)
		if err != nil {
			uc.logger.Warnw("failed to settle overdue days", "error", err, "subscription_sid", sub.SID())
			continue
		}
		if entry := settled.Schedule().EntryOn(date); entry != nil {
			out = append(out, PartnerDelivery{Subscription: settled, Entry: entry})
		}
	}
	return out, nil
}
