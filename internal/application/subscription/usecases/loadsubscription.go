package usecases

import (
	"context"
	"errors"

	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	"github.com/milkrun-inc/milkrun/internal/shared/biztime"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

// settleOverdueDays applies the end-of-day concession policy to a freshly
// loaded aggregate and persists whatever it changed, so the caller always
// works on settled state. When another writer settled the aggregate first,
// their copy wins and is reloaded.
func settleOverdueDays(ctx context.Context, repo subscription.SubscriptionRepository, sub *subscription.Subscription, policy subscription.SchedulingPolicy, log logger.Interface) (*subscription.Subscription, error) {
	grants, err := sub.ApplyCutoffPolicy(biztime.NowUTC(), policy)
	if err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		return sub, nil
	}

	for _, grant := range grants {
		log.Infow("concession granted for unresolved delivery",
			"subscription_sid", sub.SID(),
			"original_date", grant.OriginalDate.String(),
			"compensation_at", grant.CompensationAt.String(),
		)
	}

	if err := repo.Update(ctx, sub); err != nil {
		if !errors.Is(err, subscription.ErrVersionConflict) {
			return nil, err
		}
		fresh, err := repo.GetBySID(ctx, sub.SID())
		if err != nil {
			return nil, err
		}
		if fresh == nil {
			return nil, subscription.ErrSubscriptionNotFound
		}
		return fresh, nil
	}
	return sub, nil
}

// loadSubscription fetches an aggregate by SID and settles any overdue days
// before handing it to the use case.
func loadSubscription(ctx context.Context, repo subscription.SubscriptionRepository, sid string, policy subscription.SchedulingPolicy, log logger.Interface) (*subscription.Subscription, error) {
	sub, err := repo.GetBySID(ctx, sid)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, subscription.ErrSubscriptionNotFound
	}
	return settleOverdueDays(ctx, repo, sub, policy, log)
}
