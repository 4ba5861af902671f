package usecases

import (
	"context"
	"time"

	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
)

// DomainEvent is the shape every published domain event satisfies.
type DomainEvent interface {
	GetEventType() string
	GetTimestamp() time.Time
	GetAggregateID() uint
	GetSubscriptionSID() string
}

// EventPublisher fans domain events out to interested consumers. Publishing
// is best effort: use cases log failures and never roll back on them.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}

// CatalogProduct is the catalog's view of a sellable product, with the price
// already resolved for the customer's branch.
type CatalogProduct struct {
	SID       string
	Name      string
	Quantity  vo.Quantity
	UnitPrice int64
	Active    bool
}

// ProductCatalog resolves product references against the branch catalog.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productSID string) (*CatalogProduct, error)
}

// AvailabilityCache caches per-subscription available-date lists, which are
// recomputed on every schedule mutation.
type AvailabilityCache interface {
	Get(ctx context.Context, subscriptionSID, subscriptionProductID, currentDate string, consecutiveDays int) ([]vo.DeliveryDate, bool)
	Set(ctx context.Context, subscriptionSID, subscriptionProductID, currentDate string, consecutiveDays int, dates []vo.DeliveryDate) error
	Invalidate(ctx context.Context, subscriptionSID string) error
}
