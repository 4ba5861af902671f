package usecases

import (
	"context"

	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

type ListCustomerSubscriptionsQuery struct {
	CustomerSID string
	Status      string
	Page        int
	PageSize    int
}

type ListCustomerSubscriptionsResult struct {
	Subscriptions []*subscription.Subscription
	Total         int64
}

type ListCustomerSubscriptionsUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	policy           subscription.SchedulingPolicy
	logger           logger.Interface
}

func NewListCustomerSubscriptionsUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	policy subscription.SchedulingPolicy,
	logger logger.Interface,
) *ListCustomerSubscriptionsUseCase {
	return &ListCustomerSubscriptionsUseCase{
		subscriptionRepo: subscriptionRepo,
		policy:           policy,
		logger:           logger,
	}
}

func (uc *ListCustomerSubscriptionsUseCase) Execute(ctx context.Context, query ListCustomerSubscriptionsQuery) (*ListCustomerSubscriptionsResult, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 || query.PageSize > 100 {
		query.PageSize = 20
	}

	filter := subscription.SubscriptionFilter{
		CustomerSID: &query.CustomerSID,
		Page:        query.Page,
		PageSize:    query.PageSize,
		SortBy:      "created_at",
		SortDesc:    true,
	}
	if query.Status != "" {
		filter.Status = &query.Status
	}

	subs, total, err := uc.subscriptionRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	// Settle each page entry so the customer never sees stale overdue days.
	// One failing aggregate does not break the listing.
	for i, sub := range subs {
		settled, err := settleOverdueDays(ctx, uc.subscriptionRepo, sub, uc.policy, uc.logger)
		if err != nil {
			uc.logger.Warnw("failed to settle overdue days", "error", err, "subscription_sid", sub.SID())
			continue
		}
		subs[i] = settled
	}

	return &ListCustomerSubscriptionsResult{Subscriptions: subs, Total: total}, nil
}
