package subscription

import (
	"time"

	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
)

// SubscriptionCreatedEvent represents subscription creation
type SubscriptionCreatedEvent struct {
	SubscriptionID  uint
	SubscriptionSID string
	CustomerSID     string
	BranchSID       string
	StartDate       string
	EndDate         string
	TotalDeliveries int
	Timestamp       time.Time
}

func NewSubscriptionCreatedEvent(s *Subscription) *SubscriptionCreatedEvent {
	return &SubscriptionCreatedEvent{
		SubscriptionID:  s.ID(),
		SubscriptionSID: s.SID(),
		CustomerSID:     s.CustomerSID(),
		BranchSID:       s.BranchSID(),
		StartDate:       s.StartDate().String(),
		EndDate:         s.EndDate().String(),
		TotalDeliveries: s.TotalDeliveries(),
		Timestamp:       time.Now(),
	}
}

func (e *SubscriptionCreatedEvent) GetEventType() string {
	return "subscription.created"
}

func (e *SubscriptionCreatedEvent) GetTimestamp() time.Time {
	return e.Timestamp
}

func (e *SubscriptionCreatedEvent) GetAggregateID() uint {
	return e.SubscriptionID
}

func (e *SubscriptionCreatedEvent) GetSubscriptionSID() string {
	return e.SubscriptionSID
}

// ProductAddedEvent represents a product scheduled onto a running subscription
type ProductAddedEvent struct {
	SubscriptionID        uint
	SubscriptionSID       string
	SubscriptionProductID string
	ProductSID            string
	DeliveryDates         []string
	Timestamp             time.Time
}

func NewProductAddedEvent(s *Subscription, product *SubscriptionProduct, dates []vo.DeliveryDate) *ProductAddedEvent {
	strs := make([]string, len(dates))
	for i, d := range dates {
		strs[i] = d.String()
	}
	return &ProductAddedEvent{
		SubscriptionID:        s.ID(),
		SubscriptionSID:       s.SID(),
		SubscriptionProductID: product.SID(),
		ProductSID:            product.ProductSID(),
		DeliveryDates:         strs,
		Timestamp:             time.Now(),
	}
}

func (e *ProductAddedEvent) GetEventType() string {
	return "subscription.product_added"
}

func (e *ProductAddedEvent) GetTimestamp() time.Time {
	return e.Timestamp
}

func (e *ProductAddedEvent) GetAggregateID() uint {
	return e.SubscriptionID
}

func (e *ProductAddedEvent) GetSubscriptionSID() string {
	return e.SubscriptionSID
}

// DeliveryStatusChangedEvent represents a delivery entry transition
type DeliveryStatusChangedEvent struct {
	SubscriptionID  uint
	SubscriptionSID string
	DeliverySID     string
	Date            string
	FromStatus      string
	ToStatus        string
	PartnerSID      string
	Timestamp       time.Time
}

func NewDeliveryStatusChangedEvent(s *Subscription, entry *DeliveryEntry, from, to vo.DeliveryStatus) *DeliveryStatusChangedEvent {
	return &DeliveryStatusChangedEvent{
		SubscriptionID:  s.ID(),
		SubscriptionSID: s.SID(),
		DeliverySID:     entry.SID(),
		Date:            entry.Date().String(),
		FromStatus:      from.String(),
		ToStatus:        to.String(),
		PartnerSID:      entry.PartnerSID(),
		Timestamp:       time.Now(),
	}
}

func (e *DeliveryStatusChangedEvent) GetEventType() string {
	return "subscription.delivery_status_changed"
}

func (e *DeliveryStatusChangedEvent) GetTimestamp() time.Time {
	return e.Timestamp
}

func (e *DeliveryStatusChangedEvent) GetAggregateID() uint {
	return e.SubscriptionID
}

func (e *DeliveryStatusChangedEvent) GetSubscriptionSID() string {
	return e.SubscriptionSID
}

// DeliveryRescheduledEvent represents a whole delivery day moved to a new date
type DeliveryRescheduledEvent struct {
	SubscriptionID  uint
	SubscriptionSID string
	OldDate         string
	NewDate         string
	NewSlot         string
	Timestamp       time.Time
}

func NewDeliveryRescheduledEvent(s *Subscription, oldDate, newDate vo.DeliveryDate, newSlot vo.Slot) *DeliveryRescheduledEvent {
	return &DeliveryRescheduledEvent{
		SubscriptionID:  s.ID(),
		SubscriptionSID: s.SID(),
		OldDate:         oldDate.String(),
		NewDate:         newDate.String(),
		NewSlot:         newSlot.String(),
		Timestamp:       time.Now(),
	}
}

func (e *DeliveryRescheduledEvent) GetEventType() string {
	return "subscription.delivery_rescheduled"
}

func (e *DeliveryRescheduledEvent) GetTimestamp() time.Time {
	return e.Timestamp
}

func (e *DeliveryRescheduledEvent) GetAggregateID() uint {
	return e.SubscriptionID
}

func (e *DeliveryRescheduledEvent) GetSubscriptionSID() string {
	return e.SubscriptionSID
}

// ItemRescheduledEvent represents a single product line moved between days
type ItemRescheduledEvent struct {
	SubscriptionID        uint
	SubscriptionSID       string
	SubscriptionProductID string
	OldDate               string
	NewDate               string
	Timestamp             time.Time
}

func NewItemRescheduledEvent(s *Subscription, subscriptionProductID string, oldDate, newDate vo.DeliveryDate) *ItemRescheduledEvent {
	return &ItemRescheduledEvent{
		SubscriptionID:        s.ID(),
		SubscriptionSID:       s.SID(),
		SubscriptionProductID: subscriptionProductID,
		OldDate:               oldDate.String(),
		NewDate:               newDate.String(),
		Timestamp:             time.Now(),
	}
}

func (e *ItemRescheduledEvent) GetEventType() string {
	return "subscription.item_rescheduled"
}

func (e *ItemRescheduledEvent) GetTimestamp() time.Time {
	return e.Timestamp
}

func (e *ItemRescheduledEvent) GetAggregateID() uint {
	return e.SubscriptionID
}

func (e *ItemRescheduledEvent) GetSubscriptionSID() string {
	return e.SubscriptionSID
}

// ConcessionGrantedEvent represents an auto-cancelled day compensated with a
// replacement delivery
type ConcessionGrantedEvent struct {
	SubscriptionID  uint
	SubscriptionSID string
	OriginalDate    string
	CompensationAt  string
	ProductSIDs     []string
	Timestamp       time.Time
}

func NewConcessionGrantedEvent(s *Subscription, grant ConcessionGrant) *ConcessionGrantedEvent {
	return &ConcessionGrantedEvent{
		SubscriptionID:  s.ID(),
		SubscriptionSID: s.SID(),
		OriginalDate:    grant.OriginalDate.String(),
		CompensationAt:  grant.CompensationAt.String(),
		ProductSIDs:     grant.ProductSIDs,
		Timestamp:       time.Now(),
	}
}

func (e *ConcessionGrantedEvent) GetEventType() string {
	return "subscription.concession_granted"
}

func (e *ConcessionGrantedEvent) GetTimestamp() time.Time {
	return e.Timestamp
}

func (e *ConcessionGrantedEvent) GetAggregateID() uint {
	return e.SubscriptionID
}

func (e *ConcessionGrantedEvent) GetSubscriptionSID() string {
	return e.SubscriptionSID
}

// SubscriptionCancelledEvent represents subscription cancellation
type SubscriptionCancelledEvent struct {
	SubscriptionID  uint
	SubscriptionSID string
	CustomerSID     string
	Reason          string
	CancelledAt     time.Time
	Timestamp       time.Time
}

func NewSubscriptionCancelledEvent(s *Subscription, reason string, cancelledAt time.Time) *SubscriptionCancelledEvent {
	return &SubscriptionCancelledEvent{
		SubscriptionID:  s.ID(),
		SubscriptionSID: s.SID(),
		CustomerSID:     s.CustomerSID(),
		Reason:          reason,
		CancelledAt:     cancelledAt,
		Timestamp:       time.Now(),
	}
}

func (e *SubscriptionCancelledEvent) GetEventType() string {
	return "subscription.cancelled"
}

func (e *SubscriptionCancelledEvent) GetTimestamp() time.Time {
	return e.Timestamp
}

func (e *SubscriptionCancelledEvent) GetAggregateID() uint {
	return e.SubscriptionID
}

func (e *SubscriptionCancelledEvent) GetSubscriptionSID() string {
	return e.SubscriptionSID
}

// SubscriptionExpiredEvent represents subscription expiration
type SubscriptionExpiredEvent struct {
	SubscriptionID  uint
	SubscriptionSID string
	CustomerSID     string
	EndDate         string
	Timestamp       time.Time
}

func NewSubscriptionExpiredEvent(s *Subscription) *SubscriptionExpiredEvent {
	return &SubscriptionExpiredEvent{
		SubscriptionID:  s.ID(),
		SubscriptionSID: s.SID(),
		CustomerSID:     s.CustomerSID(),
		EndDate:         s.EndDate().String(),
		Timestamp:       time.Now(),
	}
}

func (e *SubscriptionExpiredEvent) GetEventType() string {
	return "subscription.expired"
}

func (e *SubscriptionExpiredEvent) GetTimestamp() time.Time {
	return e.Timestamp
}

func (e *SubscriptionExpiredEvent) GetAggregateID() uint {
	return e.SubscriptionID
}

func (e *SubscriptionExpiredEvent) GetSubscriptionSID() string {
	return e.SubscriptionSID
}
