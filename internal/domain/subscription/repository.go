package subscription

import (
	"context"

	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, subscription *Subscription) error
	GetByID(ctx context.Context, id uint) (*Subscription, error)
	GetBySID(ctx context.Context, sid string) (*Subscription, error)
	GetByCustomerSID(ctx context.Context, customerSID string) ([]*Subscription, error)
	// Update persists the aggregate with an optimistic version check and
	// returns ErrVersionConflict when another writer got there first.
	Update(ctx context.Context, subscription *Subscription) error
	Delete(ctx context.Context, id uint) error

	List(ctx context.Context, filter SubscriptionFilter) ([]*Subscription, int64, error)

	// FindWithUnresolvedDeliveriesBefore returns subscriptions that still
	// have a scheduled or awaiting-customer entry on or before the given
	// calendar date. The auto-cancellation sweep iterates these.
	FindWithUnresolvedDeliveriesBefore(ctx context.Context, date vo.DeliveryDate) ([]*Subscription, error)
	// FindExpiringSubscriptions returns active subscriptions whose end date
	// falls within the next N days.
	FindExpiringSubscriptions(ctx context.Context, days int) ([]*Subscription, error)
	// FindDueOn returns non-terminal subscriptions with an open entry on the
	// given date, for partner route listings.
	FindDueOn(ctx context.Context, date vo.DeliveryDate, partnerSID string) ([]*Subscription, error)

	CountByStatus(ctx context.Context, status string) (int64, error)
}

type SubscriptionFilter struct {
	CustomerSID *string
	BranchSID   *string
	PartnerSID  *string
	Status      *string
	Page        int
	PageSize    int
	SortBy      string
	SortDesc    bool
}
