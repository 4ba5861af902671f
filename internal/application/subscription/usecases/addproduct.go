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

type AddProductCommand struct {
	SubscriptionSID string
	CustomerSID     string // acting customer, must own the subscription
	ProductSID      string
	Frequency       string
	Count           int
}

type AddProductResult struct {
	Subscription  *subscription.Subscription
	DeliveryDates []vo.DeliveryDate
}

type AddProductUseCase struct {
	subscriptionRepo  subscription.SubscriptionRepository
	catalog           ProductCatalog
	eventPublisher    EventPublisher
	availabilityCache AvailabilityCache
	policy            subscription.SchedulingPolicy
	logger            logger.Interface
}

func NewAddProductUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	catalog ProductCatalog,
	eventPublisher EventPublisher,
	availabilityCache AvailabilityCache,
	policy subscription.SchedulingPolicy,
	logger logger.Interface,
) *AddProductUseCase {
	return &AddProductUseCase{
		subscriptionRepo:  subscriptionRepo,
		catalog:           catalog,
		eventPublisher:    eventPublisher,
		availabilityCache: availabilityCache,
		policy:            policy,
		logger:            logger,
	}
}

func (uc *AddProductUseCase) Execute(ctx context.Context, cmd AddProductCommand) (*AddProductResult, error) {
	freq, err := vo.ParseFrequency(cmd.Frequency)
	if err != nil {
		return nil, err
	}

	item, err := uc.catalog.GetProduct(ctx, cmd.ProductSID)
	if err != nil {
		uc.logger.Errorw("failed to resolve catalog product", "error", err, "product_sid", cmd.ProductSID)
		return nil, fmt.Errorf("failed to resolve product %s: %w", cmd.ProductSID, err)
	}
	if item == nil || !item.Active {
		return nil, fmt.Errorf("%w: %s", subscription.ErrProductNotFound, cmd.ProductSID)
	}

	spec := subscription.ProductSpec{
		ProductSID: item.SID,
		Name:       item.Name,
		Quantity:   item.Quantity,
		UnitPrice:  item.UnitPrice,
		Frequency:  freq,
		Count:      cmd.Count,
	}

	result, err := uc.apply(ctx, cmd, spec)
	if errors.Is(err, subscription.ErrVersionConflict) {
		// Another writer (a delivery transition, the sweep) updated the
		// aggregate between our read and write. One reload-and-reapply is
		// enough: adding a product does not conflict semantically with
		// anything that could have landed in between.
		uc.logger.Infow("retrying product add after version conflict", "subscription_sid", cmd.SubscriptionSID)
		result, err = uc.apply(ctx, cmd, spec)
	}
	if err != nil {
		return nil, err
	}

	sub := result.Subscription
	uc.logger.Infow("product added to subscription",
		"subscription_sid", sub.SID(),
		"product_sid", cmd.ProductSID,
		"delivery_count", len(result.DeliveryDates),
	)

	if uc.availabilityCache != nil {
		if err := uc.availabilityCache.Invalidate(ctx, sub.SID()); err != nil {
			uc.logger.Warnw("failed to invalidate availability cache", "error", err, "subscription_sid", sub.SID())
		}
	}
	if uc.eventPublisher != nil {
		added := sub.Products()[len(sub.Products())-1]
		if err := uc.eventPublisher.Publish(ctx, subscription.NewProductAddedEvent(sub, added, result.DeliveryDates)); err != nil {
			uc.logger.Warnw("failed to publish product added event", "error", err, "subscription_sid", sub.SID())
		}
	}

	return result, nil
}

func (uc *AddProductUseCase) apply(ctx context.Context, cmd AddProductCommand, spec subscription.ProductSpec) (*AddProductResult, error) {
	sub, err := loadSubscription(ctx, uc.subscriptionRepo, cmd.SubscriptionSID, uc.policy, uc.logger)
	if err != nil {
		return nil, err
	}
	if cmd.CustomerSID != "" && sub.CustomerSID() != cmd.CustomerSID {
		return nil, subscription.ErrNotOwner
	}

	dates, err := sub.AddProduct(spec, biztime.NowUTC())
	if err != nil {
		return nil, err
	}
	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		return nil, err
	}
	return &AddProductResult{Subscription: sub, DeliveryDates: dates}, nil
}
