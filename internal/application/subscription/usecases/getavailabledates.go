package usecases

import (
	"context"

	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
	"github.com/milkrun-inc/milkrun/internal/shared/biztime"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

type GetAvailableDatesQuery struct {
	SubscriptionSID       string
	CustomerSID           string
	SubscriptionProductID string
	CurrentDate           string // YYYY-MM-DD
	ConsecutiveDays       int    // block length, 1 for a single day
}

type GetAvailableDatesUseCase struct {
	subscriptionRepo  subscription.SubscriptionRepository
	availabilityCache AvailabilityCache
	policy            subscription.SchedulingPolicy
	logger            logger.Interface
}

func NewGetAvailableDatesUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	availabilityCache AvailabilityCache,
	policy subscription.SchedulingPolicy,
	logger logger.Interface,
) *GetAvailableDatesUseCase {
	return &GetAvailableDatesUseCase{
		subscriptionRepo:  subscriptionRepo,
		availabilityCache: availabilityCache,
		policy:            policy,
		logger:            logger,
	}
}

func (uc *GetAvailableDatesUseCase) Execute(ctx context.Context, query GetAvailableDatesQuery) ([]vo.DeliveryDate, error) {
	currentDate, err := vo.ParseDeliveryDate(query.CurrentDate)
	if err != nil {
		return nil, err
	}
	if query.ConsecutiveDays < 1 {
		query.ConsecutiveDays = 1
	}

	if uc.availabilityCache != nil {
		if dates, ok := uc.availabilityCache.Get(ctx, query.SubscriptionSID, query.SubscriptionProductID, query.CurrentDate, query.ConsecutiveDays); ok {
			return dates, nil
		}
	}

	sub, err := loadSubscription(ctx, uc.subscriptionRepo, query.SubscriptionSID, uc.policy, uc.logger)
	if err != nil {
		return nil, err
	}
	if query.CustomerSID != "" && sub.CustomerSID() != query.CustomerSID {
		return nil, subscription.ErrNotOwner
	}

	dates := sub.AvailableDates(query.SubscriptionProductID, currentDate, query.ConsecutiveDays, biztime.NowUTC(), uc.policy)

	if uc.availabilityCache != nil {
		if err := uc.availabilityCache.Set(ctx, query.SubscriptionSID, query.SubscriptionProductID, query.CurrentDate, query.ConsecutiveDays, dates); err != nil {
			uc.logger.Warnw("failed to cache available dates", "error", err, "subscription_sid", sub.SID())
		}
	}

	return dates, nil
}
