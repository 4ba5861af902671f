package dto

import (
	"time"

	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
)

type SubscriptionDTO struct {
	SID                 string                    `json:"sid"`
	CustomerSID         string                    `json:"customer_sid"`
	BranchSID           string                    `json:"branch_sid"`
	AddressSID          string                    `json:"address_sid"`
	PartnerSID          string                    `json:"partner_sid,omitempty"`
	Slot                string                    `json:"slot"`
	Status              string                    `json:"status"`
	StartDate           string                    `json:"start_date"`
	EndDate             string                    `json:"end_date"`
	TotalDeliveries     int                       `json:"total_deliveries"`
	DeliveredCount      int                       `json:"delivered_count"`
	RemainingDeliveries int                       `json:"remaining_deliveries"`
	Products            []*SubscriptionProductDTO `json:"products"`
	CancelReason        *string                   `json:"cancel_reason,omitempty"`
	CancelledAt         *time.Time                `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time                 `json:"created_at"`
	UpdatedAt           time.Time                 `json:"updated_at"`
}

type SubscriptionProductDTO struct {
	SID                 string  `json:"sid"`
	ProductSID          string  `json:"product_sid"`
	Name                string  `json:"name"`
	Quantity            float64 `json:"quantity"`
	QuantityUnit        string  `json:"quantity_unit"`
	UnitPrice           int64   `json:"unit_price"`
	MonthlyPrice        int64   `json:"monthly_price"`
	Frequency           string  `json:"frequency"`
	DeliveryGapDays     int     `json:"delivery_gap_days"`
	TotalDeliveries     int     `json:"total_deliveries"`
	DeliveredCount      int     `json:"delivered_count"`
	RemainingDeliveries int     `json:"remaining_deliveries"`
	Count               int     `json:"count"`
}

type DeliveryEntryDTO struct {
	SID               string                  `json:"sid"`
	Date              string                  `json:"date"`
	Slot              string                  `json:"slot"`
	Status            string                  `json:"status"`
	CutoffAt          time.Time               `json:"cutoff_at"`
	PartnerSID        string                  `json:"partner_sid,omitempty"`
	Lines             []*DeliveryLineDTO      `json:"lines"`
	StartedAt         *time.Time              `json:"started_at,omitempty"`
	DeliveredAt       *time.Time              `json:"delivered_at,omitempty"`
	ConfirmedAt       *time.Time              `json:"confirmed_at,omitempty"`
	CanceledAt        *time.Time              `json:"canceled_at,omitempty"`
	Concession        bool                    `json:"concession"`
	ConcessionDetails *ConcessionDetailsDTO   `json:"concession_details,omitempty"`
	Location          *GeoPointDTO            `json:"location,omitempty"`
}

type DeliveryLineDTO struct {
	SubscriptionProductID string  `json:"subscription_product_id"`
	ProductSID            string  `json:"product_sid"`
	Name                  string  `json:"name"`
	Quantity              float64 `json:"quantity"`
	QuantityUnit          string  `json:"quantity_unit"`
	Status                string  `json:"status"`
}

type ConcessionDetailsDTO struct {
	OriginalDate  string `json:"original_date"`
	RescheduledTo string `json:"rescheduled_to"`
	Reason        string `json:"reason"`
}

type GeoPointDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ToSubscriptionDTO converts the aggregate without its schedule; delivery
// entries are listed through ToDeliveryEntryDTOList when the caller asks
// for them.
func ToSubscriptionDTO(sub *subscription.Subscription) *SubscriptionDTO {
	if sub == nil {
		return nil
	}

	products := make([]*SubscriptionProductDTO, 0, len(sub.Products()))
	for _, p := range sub.Products() {
		products = append(products, ToSubscriptionProductDTO(p))
	}

	return &SubscriptionDTO{
		SID:                 sub.SID(),
		CustomerSID:         sub.CustomerSID(),
		BranchSID:           sub.BranchSID(),
		AddressSID:          sub.AddressSID(),
		PartnerSID:          sub.PartnerSID(),
		Slot:                sub.Slot().String(),
		Status:              sub.Status().String(),
		StartDate:           sub.StartDate().String(),
		EndDate:             sub.EndDate().String(),
		TotalDeliveries:     sub.TotalDeliveries(),
		DeliveredCount:      sub.DeliveredCount(),
		RemainingDeliveries: sub.RemainingDeliveries(),
		Products:            products,
		CancelReason:        sub.CancelReason(),
		CancelledAt:         sub.CancelledAt(),
		CreatedAt:           sub.CreatedAt(),
		UpdatedAt:           sub.UpdatedAt(),
	}
}

func ToSubscriptionProductDTO(p *subscription.SubscriptionProduct) *SubscriptionProductDTO {
	if p == nil {
		return nil
	}
	return &SubscriptionProductDTO{
		SID:                 p.SID(),
		ProductSID:          p.ProductSID(),
		Name:                p.Name(),
		Quantity:            p.Quantity().Value(),
		QuantityUnit:        string(p.Quantity().Unit()),
		UnitPrice:           p.UnitPrice(),
		MonthlyPrice:        p.MonthlyPrice(),
		Frequency:           p.Frequency().String(),
		DeliveryGapDays:     p.DeliveryGapDays(),
		TotalDeliveries:     p.TotalDeliveries(),
		DeliveredCount:      p.DeliveredCount(),
		RemainingDeliveries: p.RemainingDeliveries(),
		Count:               p.Count(),
	}
}

func ToDeliveryEntryDTO(e *subscription.DeliveryEntry) *DeliveryEntryDTO {
	if e == nil {
		return nil
	}

	lines := make([]*DeliveryLineDTO, 0, len(e.Lines()))
	for _, line := range e.Lines() {
		lines = append(lines, &DeliveryLineDTO{
			SubscriptionProductID: line.SubscriptionProductID,
			ProductSID:            line.ProductSID,
			Name:                  line.Name,
			Quantity:              line.Quantity.Value(),
			QuantityUnit:          string(line.Quantity.Unit()),
			Status:                line.Status.String(),
		})
	}

	out := &DeliveryEntryDTO{
		SID:         e.SID(),
		Date:        e.Date().String(),
		Slot:        e.Slot().String(),
		Status:      e.Status().String(),
		CutoffAt:    e.CutoffAt(),
		PartnerSID:  e.PartnerSID(),
		Lines:       lines,
		StartedAt:   e.StartedAt(),
		DeliveredAt: e.DeliveredAt(),
		ConfirmedAt: e.ConfirmedAt(),
		CanceledAt:  e.CanceledAt(),
		Concession:  e.Concession(),
	}
	if d := e.ConcessionDetails(); d != nil {
		out.ConcessionDetails = &ConcessionDetailsDTO{
			OriginalDate:  d.OriginalDate.String(),
			RescheduledTo: d.RescheduledTo.String(),
			Reason:        d.Reason,
		}
	}
	if loc := e.Location(); loc != nil {
		out.Location = &GeoPointDTO{Latitude: loc.Latitude, Longitude: loc.Longitude}
	}
	return out
}

func ToDeliveryEntryDTOList(entries []*subscription.DeliveryEntry) []*DeliveryEntryDTO {
	out := make([]*DeliveryEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToDeliveryEntryDTO(e))
	}
	return out
}
