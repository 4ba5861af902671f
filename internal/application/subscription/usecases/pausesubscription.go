package usecases

import (
	"context"

	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	"github.com/milkrun-inc/milkrun/internal/shared/biztime"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

type PauseSubscriptionCommand struct {
	SubscriptionSID string
	CustomerSID     string
	Resume          bool // false pauses, true resumes
}

type PauseSubscriptionUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	policy           subscription.SchedulingPolicy
	logger           logger.Interface
}

func NewPauseSubscriptionUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	policy subscription.SchedulingPolicy,
	logger logger.Interface,
) *PauseSubscriptionUseCase {
	return &PauseSubscriptionUseCase{subscriptionRepo: subscriptionRepo, policy: policy, logger: logger}
}

func (uc *PauseSubscriptionUseCase) Execute(ctx context.Context, cmd PauseSubscriptionCommand) (*subscription.Subscription, error) {
	sub, err := loadSubscription(ctx, uc.subscriptionRepo, cmd.SubscriptionSID, uc.policy, uc.logger)
	if err != nil {
		return nil, err
	}
	if cmd.CustomerSID != "" && sub.CustomerSID() != cmd.CustomerSID {
		return nil, subscription.ErrNotOwner
	}

	now := biztime.NowUTC()
	if cmd.Resume {
		err = sub.Resume(now)
	} else {
		err = sub.Pause(now)
	}
	if err != nil {
		return nil, err
	}
	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	uc.logger.Infow("subscription pause state changed",
		"subscription_sid", sub.SID(),
		"status", sub.Status().String(),
	)
	return sub, nil
}
