package usecases

import (
	"context"

	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

type GetSubscriptionQuery struct {
	SubscriptionSID string
	CustomerSID     string // empty for admin and partner access
}

type GetSubscriptionUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	policy           subscription.SchedulingPolicy
	logger           logger.Interface
}

func NewGetSubscriptionUseCase(subscriptionRepo subscription.SubscriptionRepository, policy subscription.SchedulingPolicy, logger logger.Interface) *GetSubscriptionUseCase {
	return &GetSubscriptionUseCase{
		subscriptionRepo: subscriptionRepo,
		policy:           policy,
		logger:           logger,
	}
}

func (uc *GetSubscriptionUseCase) Execute(ctx context.Context, query GetSubscriptionQuery) (*subscription.Subscription, error) {
	sub, err := loadSubscription(ctx, uc.subscriptionRepo, query.SubscriptionSID, uc.policy, uc.logger)
	if err != nil {
		return nil, err
	}
	if query.CustomerSID != "" && sub.CustomerSID() != query.CustomerSID {
		return nil, subscription.ErrNotOwner
	}
	return sub, nil
}
