package subscription

import (
	"fmt"

	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
	"github.com/milkrun-inc/milkrun/internal/shared/id"
)

// SubscriptionProduct is one product line inside a subscription. Its counters
// satisfy deliveredCount + remainingDeliveries == totalDeliveries at all
// times; deliveredCount only moves forward, through RecordDelivery.
type SubscriptionProduct struct {
	sid             string
	productSID      string
	name            string
	quantity        vo.Quantity
	unitPrice       int64
	monthlyPrice    int64
	frequency       vo.Frequency
	deliveryGapDays int
	totalDeliveries int
	deliveredCount  int
	remaining       int
	count           int
}

// NewSubscriptionProduct creates a product line with totalDeliveries planned
// deliveries. Prices are in the smallest currency unit, already resolved by
// the pricing service.
func NewSubscriptionProduct(productSID, name string, quantity vo.Quantity, unitPrice int64, freq vo.Frequency, totalDeliveries, count int) (*SubscriptionProduct, error) {
	if productSID == "" {
		return nil, fmt.Errorf("%w: product reference is required", ErrInvalidInput)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	if quantity.IsZero() {
		return nil, fmt.Errorf("%w: quantity is required", ErrInvalidInput)
	}
	if !vo.ValidFrequencies[freq] {
		return nil, fmt.Errorf("%w: %q", vo.ErrInvalidFrequency, freq)
	}
	if totalDeliveries <= 0 {
		return nil, fmt.Errorf("%w: total deliveries must be positive", ErrInvalidInput)
	}
	if unitPrice < 0 {
		return nil, fmt.Errorf("%w: unit price cannot be negative", ErrInvalidInput)
	}
	if count <= 0 {
		count = 1
	}

	return &SubscriptionProduct{
		sid:             id.MustGenerateWithPrefix(id.PrefixSubscriptionProduct, id.DefaultLength),
		productSID:      productSID,
		name:            name,
		quantity:        quantity,
		unitPrice:       unitPrice,
		monthlyPrice:    unitPrice * int64(totalDeliveries) * int64(count),
		frequency:       freq,
		deliveryGapDays: freq.GapDays(),
		totalDeliveries: totalDeliveries,
		deliveredCount:  0,
		remaining:       totalDeliveries,
		count:           count,
	}, nil
}

// ProductReconstructParams carries persisted state back into the entity.
type ProductReconstructParams struct {
	SID             string
	ProductSID      string
	Name            string
	Quantity        vo.Quantity
	UnitPrice       int64
	MonthlyPrice    int64
	Frequency       vo.Frequency
	DeliveryGapDays int
	TotalDeliveries int
	DeliveredCount  int
	Remaining       int
	Count           int
}

// ReconstructSubscriptionProduct rebuilds a product line from persistence.
func ReconstructSubscriptionProduct(p ProductReconstructParams) (*SubscriptionProduct, error) {
	if p.SID == "" {
		return nil, fmt.Errorf("%w: subscription product id is required", ErrInvalidInput)
	}
	if !vo.ValidFrequencies[p.Frequency] {
		return nil, fmt.Errorf("%w: %q", vo.ErrInvalidFrequency, p.Frequency)
	}
	if p.DeliveredCount+p.Remaining != p.TotalDeliveries {
		return nil, fmt.Errorf("delivery counters do not reconcile for %s: %d delivered + %d remaining != %d total",
			p.SID, p.DeliveredCount, p.Remaining, p.TotalDeliveries)
	}
	if p.Count <= 0 {
		p.Count = 1
	}

	return &SubscriptionProduct{
		sid:             p.SID,
		productSID:      p.ProductSID,
		name:            p.Name,
		quantity:        p.Quantity,
		unitPrice:       p.UnitPrice,
		monthlyPrice:    p.MonthlyPrice,
		frequency:       p.Frequency,
		deliveryGapDays: p.DeliveryGapDays,
		totalDeliveries: p.TotalDeliveries,
		deliveredCount:  p.DeliveredCount,
		remaining:       p.Remaining,
		count:           p.Count,
	}, nil
}

func (p *SubscriptionProduct) SID() string            { return p.sid }
func (p *SubscriptionProduct) ProductSID() string     { return p.productSID }
func (p *SubscriptionProduct) Name() string           { return p.name }
func (p *SubscriptionProduct) Quantity() vo.Quantity  { return p.quantity }
func (p *SubscriptionProduct) UnitPrice() int64       { return p.unitPrice }
func (p *SubscriptionProduct) MonthlyPrice() int64    { return p.monthlyPrice }
func (p *SubscriptionProduct) Frequency() vo.Frequency { return p.frequency }
func (p *SubscriptionProduct) DeliveryGapDays() int   { return p.deliveryGapDays }
func (p *SubscriptionProduct) TotalDeliveries() int   { return p.totalDeliveries }
func (p *SubscriptionProduct) DeliveredCount() int    { return p.deliveredCount }
func (p *SubscriptionProduct) RemainingDeliveries() int { return p.remaining }
func (p *SubscriptionProduct) Count() int             { return p.count }

// RecordDelivery advances the counters for one resolved delivery. When the
// line is already exhausted it reports false and changes nothing; callers
// log the reconciliation edge case instead of failing the transition.
func (p *SubscriptionProduct) RecordDelivery() bool {
	if p.remaining <= 0 {
		return false
	}
	p.deliveredCount++
	p.remaining--
	return true
}

// ExtendTotal grants n additional deliveries (concession compensation).
func (p *SubscriptionProduct) ExtendTotal(n int) {
	if n <= 0 {
		return
	}
	p.totalDeliveries += n
	p.remaining += n
}

// CheckCounters verifies the counter invariant.
func (p *SubscriptionProduct) CheckCounters() error {
	if p.deliveredCount+p.remaining != p.totalDeliveries {
		return fmt.Errorf("delivery counters do not reconcile for %s: %d delivered + %d remaining != %d total",
			p.sid, p.deliveredCount, p.remaining, p.totalDeliveries)
	}
	if p.remaining < 0 {
		return fmt.Errorf("remaining deliveries below zero for %s", p.sid)
	}
	return nil
}

// Line builds the delivery product line this product contributes to an entry.
func (p *SubscriptionProduct) Line() DeliveryProductLine {
	return DeliveryProductLine{
		SubscriptionProductID: p.sid,
		ProductSID:            p.productSID,
		Name:                  p.name,
		Quantity:              p.quantity,
		Status:                vo.LinePending,
	}
}
