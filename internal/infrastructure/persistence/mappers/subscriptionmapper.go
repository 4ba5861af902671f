package mappers

import (
	"encoding/json"
	"fmt"

	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
	"github.com/milkrun-inc/milkrun/internal/infrastructure/persistence/models"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

// lineRecord is the JSON shape of one product line inside a delivery entry.
// subscriptionProductId is the only matching key between a line and its
// product; a persisted line without it still loads, but is flagged for
// backfill and never advances product counters.
type lineRecord struct {
	SubscriptionProductID string  `json:"subscriptionProductId"`
	ProductSID            string  `json:"productSid"`
	Name                  string  `json:"name"`
	QuantityValue         float64 `json:"quantityValue"`
	QuantityUnit          string  `json:"quantityUnit"`
	Status                string  `json:"status"`
}

// concessionRecord is the JSON shape of an entry's concession details.
type concessionRecord struct {
	OriginalDate  string `json:"originalDate"`
	RescheduledTo string `json:"rescheduledTo"`
	Reason        string `json:"reason"`
}

type SubscriptionMapper interface {
	ToEntity(model *models.SubscriptionModel, productModels []*models.SubscriptionProductModel, entryModels []*models.DeliveryEntryModel) (*subscription.Subscription, error)
	ToModel(entity *subscription.Subscription) (*models.SubscriptionModel, error)
	ToProductModels(entity *subscription.Subscription) ([]*models.SubscriptionProductModel, error)
	ToEntryModels(entity *subscription.Subscription) ([]*models.DeliveryEntryModel, error)
}

type SubscriptionMapperImpl struct {
	logger logger.Interface
}

func NewSubscriptionMapper(logger logger.Interface) SubscriptionMapper {
	return &SubscriptionMapperImpl{logger: logger}
}

func (m *SubscriptionMapperImpl) ToEntity(model *models.SubscriptionModel, productModels []*models.SubscriptionProductModel, entryModels []*models.DeliveryEntryModel) (*subscription.Subscription, error) {
	if model == nil {
		return nil, nil
	}

	startDate, err := vo.ParseDeliveryDate(model.StartDate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse start date: %w", err)
	}
	endDate, err := vo.ParseDeliveryDate(model.EndDate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse end date: %w", err)
	}

	products := make([]*subscription.SubscriptionProduct, 0, len(productModels))
	for _, pm := range productModels {
		product, err := m.toProductEntity(pm)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	entries := make([]*subscription.DeliveryEntry, 0, len(entryModels))
	for _, em := range entryModels {
		entry, err := m.toEntryEntity(em)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	entity, err := subscription.ReconstructSubscription(subscription.SubscriptionReconstructParams{
		ID:           model.ID,
		SID:          model.SID,
		CustomerSID:  model.CustomerSID,
		BranchSID:    model.BranchSID,
		AddressSID:   model.AddressSID,
		PartnerSID:   model.PartnerSID,
		Slot:         vo.Slot(model.Slot),
		StartDate:    startDate,
		EndDate:      endDate,
		Products:     products,
		Entries:      entries,
		Status:       vo.SubscriptionStatus(model.Status),
		CancelReason: model.CancelReason,
		CancelledAt:  model.CancelledAt,
		Version:      model.Version,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct subscription entity: %w", err)
	}
	return entity, nil
}

func (m *SubscriptionMapperImpl) toProductEntity(pm *models.SubscriptionProductModel) (*subscription.SubscriptionProduct, error) {
	quantity, err := vo.NewQuantity(pm.QuantityValue, vo.QuantityUnit(pm.QuantityUnit))
	if err != nil {
		return nil, fmt.Errorf("failed to parse quantity for %s: %w", pm.SID, err)
	}

	product, err := subscription.ReconstructSubscriptionProduct(subscription.ProductReconstructParams{
		SID:             pm.SID,
		ProductSID:      pm.ProductSID,
		Name:            pm.Name,
		Quantity:        quantity,
		UnitPrice:       pm.UnitPrice,
		MonthlyPrice:    pm.MonthlyPrice,
		Frequency:       vo.Frequency(pm.Frequency),
		DeliveryGapDays: pm.DeliveryGapDays,
		TotalDeliveries: pm.TotalDeliveries,
		DeliveredCount:  pm.DeliveredCount,
		Remaining:       pm.Remaining,
		Count:           pm.Count,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct subscription product: %w", err)
	}
	return product, nil
}

func (m *SubscriptionMapperImpl) toEntryEntity(em *models.DeliveryEntryModel) (*subscription.DeliveryEntry, error) {
	date, err := vo.ParseDeliveryDate(em.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to parse delivery date for %s: %w", em.SID, err)
	}

	var records []lineRecord
	if em.Lines != nil {
		if err := json.Unmarshal(em.Lines, &records); err != nil {
			return nil, fmt.Errorf("failed to unmarshal delivery lines for %s: %w", em.SID, err)
		}
	}
	lines := make([]subscription.DeliveryProductLine, 0, len(records))
	for _, r := range records {
		quantity, err := vo.NewQuantity(r.QuantityValue, vo.QuantityUnit(r.QuantityUnit))
		if err != nil {
			return nil, fmt.Errorf("failed to parse line quantity for %s: %w", em.SID, err)
		}
		if r.SubscriptionProductID == "" {
			m.logger.Warnw("delivery line missing subscription product id",
				"entry_sid", em.SID,
				"product_sid", r.ProductSID,
				"needs_backfill", true,
			)
		}
		lines = append(lines, subscription.DeliveryProductLine{
			SubscriptionProductID: r.SubscriptionProductID,
			ProductSID:            r.ProductSID,
			Name:                  r.Name,
			Quantity:              quantity,
			Status:                vo.LineStatus(r.Status),
		})
	}

	var details *subscription.ConcessionDetails
	if em.ConcessionDetails != nil {
		var rec concessionRecord
		if err := json.Unmarshal(em.ConcessionDetails, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal concession details for %s: %w", em.SID, err)
		}
		originalDate, err := vo.ParseDeliveryDate(rec.OriginalDate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse concession original date for %s: %w", em.SID, err)
		}
		rescheduledTo, err := vo.ParseDeliveryDate(rec.RescheduledTo)
		if err != nil {
			return nil, fmt.Errorf("failed to parse concession rescheduled date for %s: %w", em.SID, err)
		}
		details = &subscription.ConcessionDetails{
			OriginalDate:  originalDate,
			RescheduledTo: rescheduledTo,
			Reason:        rec.Reason,
		}
	}

	var location *subscription.GeoPoint
	if em.Latitude != nil && em.Longitude != nil {
		location = &subscription.GeoPoint{Latitude: *em.Latitude, Longitude: *em.Longitude}
	}

	entry, err := subscription.ReconstructDeliveryEntry(subscription.EntryReconstructParams{
		SID:               em.SID,
		Date:              date,
		Slot:              vo.Slot(em.Slot),
		Status:            vo.DeliveryStatus(em.Status),
		CutoffAt:          em.CutoffAt,
		Lines:             lines,
		PartnerSID:        em.PartnerSID,
		Location:          location,
		StartedAt:         em.StartedAt,
		DeliveredAt:       em.DeliveredAt,
		ConfirmedAt:       em.ConfirmedAt,
		CanceledAt:        em.CanceledAt,
		Concession:        em.Concession,
		ConcessionDetails: details,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct delivery entry: %w", err)
	}
	return entry, nil
}

func (m *SubscriptionMapperImpl) ToModel(entity *subscription.Subscription) (*models.SubscriptionModel, error) {
	if entity == nil {
		return nil, nil
	}

	return &models.SubscriptionModel{
		ID:           entity.ID(),
		SID:          entity.SID(),
		CustomerSID:  entity.CustomerSID(),
		BranchSID:    entity.BranchSID(),
		AddressSID:   entity.AddressSID(),
		PartnerSID:   entity.PartnerSID(),
		Slot:         entity.Slot().String(),
		Status:       entity.Status().String(),
		StartDate:    entity.StartDate().String(),
		EndDate:      entity.EndDate().String(),
		CancelledAt:  entity.CancelledAt(),
		CancelReason: entity.CancelReason(),
		Version:      entity.Version(),
		CreatedAt:    entity.CreatedAt(),
		UpdatedAt:    entity.UpdatedAt(),
	}, nil
}

func (m *SubscriptionMapperImpl) ToProductModels(entity *subscription.Subscription) ([]*models.SubscriptionProductModel, error) {
	if entity == nil {
		return nil, nil
	}

	out := make([]*models.SubscriptionProductModel, 0, len(entity.Products()))
	for _, p := range entity.Products() {
		out = append(out, &models.SubscriptionProductModel{
			SID:             p.SID(),
			SubscriptionID:  entity.ID(),
			ProductSID:      p.ProductSID(),
			Name:            p.Name(),
			QuantityValue:   p.Quantity().Value(),
			QuantityUnit:    string(p.Quantity().Unit()),
			UnitPrice:       p.UnitPrice(),
			MonthlyPrice:    p.MonthlyPrice(),
			Frequency:       p.Frequency().String(),
			DeliveryGapDays: p.DeliveryGapDays(),
			TotalDeliveries: p.TotalDeliveries(),
			DeliveredCount:  p.DeliveredCount(),
			Remaining:       p.RemainingDeliveries(),
			Count:           p.Count(),
		})
	}
	return out, nil
}

func (m *SubscriptionMapperImpl) ToEntryModels(entity *subscription.Subscription) ([]*models.DeliveryEntryModel, error) {
	if entity == nil {
		return nil, nil
	}

	entries := entity.Schedule().Entries()
	out := make([]*models.DeliveryEntryModel, 0, len(entries))
	for _, e := range entries {
		records := make([]lineRecord, 0, len(e.Lines()))
		for _, line := range e.Lines() {
			records = append(records, lineRecord{
				SubscriptionProductID: line.SubscriptionProductID,
				ProductSID:            line.ProductSID,
				Name:                  line.Name,
				QuantityValue:         line.Quantity.Value(),
				QuantityUnit:          string(line.Quantity.Unit()),
				Status:                line.Status.String(),
			})
		}
		linesJSON, err := json.Marshal(records)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal delivery lines for %s: %w", e.SID(), err)
		}

		model := &models.DeliveryEntryModel{
			SID:            e.SID(),
			SubscriptionID: entity.ID(),
			Date:           e.Date().String(),
			Slot:           e.Slot().String(),
			Status:         e.Status().String(),
			CutoffAt:       e.CutoffAt(),
			PartnerSID:     e.PartnerSID(),
			Lines:          linesJSON,
			StartedAt:      e.StartedAt(),
			DeliveredAt:    e.DeliveredAt(),
			ConfirmedAt:    e.ConfirmedAt(),
			CanceledAt:     e.CanceledAt(),
			Concession:     e.Concession(),
		}
		if loc := e.Location(); loc != nil {
			lat, lng := loc.Latitude, loc.Longitude
			model.Latitude = &lat
			model.Longitude = &lng
		}
		if details := e.ConcessionDetails(); details != nil {
			detailsJSON, err := json.Marshal(concessionRecord{
				OriginalDate:  details.OriginalDate.String(),
				RescheduledTo: details.RescheduledTo.String(),
				Reason:        details.Reason,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to marshal concession details for %s: %w", e.SID(), err)
			}
			model.ConcessionDetails = detailsJSON
		}
		out = append(out, model)
	}
	return out, nil
}
