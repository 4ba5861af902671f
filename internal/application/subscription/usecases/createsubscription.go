package usecases

import (
	"context"
	"fmt"

	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
	"github.com/milkrun-inc/milkrun/internal/shared/biztime"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

type CreateSubscriptionCommand struct {
	CustomerSID string
	BranchSID   string
	AddressSID  string
	PartnerSID  string
	Slot        string
	StartDate   string // YYYY-MM-DD, empty starts tomorrow
	Products    []CreateSubscriptionProduct
}

type CreateSubscriptionProduct struct {
	ProductSID string
	Frequency  string
	Count      int
}

type CreateSubscriptionResult struct {
	Subscription *subscription.Subscription
}

type CreateSubscriptionUseCase struct {
	subscriptionRepo subscription.SubscriptionRepository
	catalog          ProductCatalog
	eventPublisher   EventPublisher
	logger           logger.Interface
}

func NewCreateSubscriptionUseCase(
	subscriptionRepo subscription.SubscriptionRepository,
	catalog ProductCatalog,
	eventPublisher EventPublisher,
	logger logger.Interface,
) *CreateSubscriptionUseCase {
	return &CreateSubscriptionUseCase{
		subscriptionRepo: subscriptionRepo,
		catalog:          catalog,
		eventPublisher:   eventPublisher,
		logger:           logger,
	}
}

func (uc *CreateSubscriptionUseCase) Execute(ctx context.Context, cmd CreateSubscriptionCommand) (*CreateSubscriptionResult, error) {
	slot, err := vo.ParseSlot(cmd.Slot)
	if err != nil {
		return nil, err
	}

	var startDate vo.DeliveryDate
	if cmd.StartDate != "" {
		startDate, err = vo.ParseDeliveryDate(cmd.StartDate)
		if err != nil {
			return nil, err
		}
	}

	specs := make([]subscription.ProductSpec, 0, len(cmd.Products))
	for _, p := range cmd.Products {
		freq, err := vo.ParseFrequency(p.Frequency)
		if err != nil {
			return nil, err
		}
		item, err := uc.catalog.GetProduct(ctx, p.ProductSID)
		if err != nil {
			uc.logger.Errorw("failed to resolve catalog product", "error", err, "product_sid", p.ProductSID)
			return nil, fmt.Errorf("failed to resolve product %s: %w", p.ProductSID, err)
		}
		if item == nil || !item.Active {
			return nil, fmt.Errorf("%w: %s", subscription.ErrProductNotFound, p.ProductSID)
		}
		specs = append(specs, subscription.ProductSpec{
			ProductSID: item.SID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Frequency:  freq,
			Count:      p.Count,
		})
	}

	sub, err := subscription.NewSubscription(cmd.CustomerSID, cmd.BranchSID, cmd.AddressSID, cmd.PartnerSID, slot, startDate, specs, biztime.NowUTC())
	if err != nil {
		return nil, err
	}

	if err := uc.subscriptionRepo.Create(ctx, sub); err != nil {
		uc.logger.Errorw("failed to create subscription", "error", err, "customer_sid", cmd.CustomerSID)
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	uc.logger.Infow("subscription created",
		"subscription_sid", sub.SID(),
		"customer_sid", sub.CustomerSID(),
		"start_date", sub.StartDate().String(),
		"end_date", sub.EndDate().String(),
		"total_deliveries", sub.TotalDeliveries(),
	)

	if uc.eventPublisher != nil {
		if err := uc.eventPublisher.Publish(ctx, subscription.NewSubscriptionCreatedEvent(sub)); err != nil {
			uc.logger.Warnw("failed to publish subscription created event", "error", err, "subscription_sid", sub.SID())
		}
	}

	return &CreateSubscriptionResult{Subscription: sub}, nil
}
