package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/milkrun-inc/milkrun/internal/domain/subscription"
	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
	"github.com/milkrun-inc/milkrun/internal/infrastructure/persistence/mappers"
	"github.com/milkrun-inc/milkrun/internal/infrastructure/persistence/models"
	"github.com/milkrun-inc/milkrun/internal/shared/biztime"
	"github.com/milkrun-inc/milkrun/internal/shared/db"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

// allowedSubscriptionSortByFields defines the whitelist of allowed ORDER BY fields
// to prevent SQL injection attacks.
var allowedSubscriptionSortByFields = map[string]bool{
	"id":         true,
	"sid":        true,
	"status":     true,
	"start_date": true,
	"end_date":   true,
	"created_at": true,
	"updated_at": true,
}

// unresolvedEntryStatuses are the entry statuses the auto-cancellation sweep
// still has to deal with.
var unresolvedEntryStatuses = []string{
	vo.DeliveryScheduled.String(),
	vo.DeliveryAwaitingCustomer.String(),
}

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.SubscriptionMapper
	logger logger.Interface
}

func NewSubscriptionRepository(
	db *gorm.DB,
	logger logger.Interface,
) subscription.SubscriptionRepository {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mappers.NewSubscriptionMapper(logger),
		logger: logger,
	}
}

func (r *SubscriptionRepositoryImpl) Create(ctx context.Context, entity *subscription.Subscription) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map subscription entity to model", "error", err)
		return fmt.Errorf("failed to map subscription entity: %w", err)
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}
		if err := entity.SetID(model.ID); err != nil {
			return fmt.Errorf("failed to set subscription ID: %w", err)
		}

		productModels, err := r.mapper.ToProductModels(entity)
		if err != nil {
			return fmt.Errorf("failed to map subscription products: %w", err)
		}
		if len(productModels) > 0 {
			if err := tx.Create(productModels).Error; err != nil {
				return fmt.Errorf("failed to create subscription products: %w", err)
			}
		}

		entryModels, err := r.mapper.ToEntryModels(entity)
		if err != nil {
			return fmt.Errorf("failed to map delivery entries: %w", err)
		}
		if len(entryModels) > 0 {
			if err := tx.Create(entryModels).Error; err != nil {
				return fmt.Errorf("failed to create delivery entries: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Errorw("failed to create subscription in database", "sid", model.SID, "error", err)
		return err
	}

	r.logger.Infow("subscription created successfully",
		"id", model.ID,
		"sid", model.SID,
		"customer_sid", model.CustomerSID,
		"deliveries", entity.TotalDeliveries(),
	)
	return nil
}

// loadAggregate loads the product and entry children for a subscription row
// and reconstructs the full aggregate.
func (r *SubscriptionRepositoryImpl) loadAggregate(ctx context.Context, model *models.SubscriptionModel) (*subscription.Subscription, error) {
	var productModels []*models.SubscriptionProductModel
	if err := r.db.WithContext(ctx).
		Where("subscription_id = ?", model.ID).
		Order("id ASC").
		Find(&productModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load subscription products: %w", err)
	}

	var entryModels []*models.DeliveryEntryModel
	if err := r.db.WithContext(ctx).
		Where("subscription_id = ?", model.ID).
		Order("date ASC").
		Find(&entryModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load delivery entries: %w", err)
	}

	entity, err := r.mapper.ToEntity(model, productModels, entryModels)
	if err != nil {
		return nil, fmt.Errorf("failed to map subscription: %w", err)
	}
	return entity, nil
}

func (r *SubscriptionRepositoryImpl) loadAggregates(ctx context.Context, subModels []*models.SubscriptionModel) ([]*subscription.Subscription, error) {
	entities := make([]*subscription.Subscription, 0, len(subModels))
	for _, model := range subModels {
		entity, err := r.loadAggregate(ctx, model)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

func (r *SubscriptionRepositoryImpl) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get subscription by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	entity, err := r.loadAggregate(ctx, &model)
	if err != nil {
		r.logger.Errorw("failed to load subscription aggregate", "id", id, "error", err)
		return nil, err
	}
	return entity, nil
}

func (r *SubscriptionRepositoryImpl) GetBySID(ctx context.Context, sid string) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	if err := r.db.WithContext(ctx).Where("sid = ?", sid).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get subscription by SID", "sid", sid, "error", err)
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	entity, err := r.loadAggregate(ctx, &model)
	if err != nil {
		r.logger.Errorw("failed to load subscription aggregate", "sid", sid, "error", err)
		return nil, err
	}
	return entity, nil
}

func (r *SubscriptionRepositoryImpl) GetByCustomerSID(ctx context.Context, customerSID string) ([]*subscription.Subscription, error) {
	var subModels []*models.SubscriptionModel

	if err := r.db.WithContext(ctx).
		Where("customer_sid = ?", customerSID).
		Order("created_at DESC").
		Find(&subModels).Error; err != nil {
		r.logger.Errorw("failed to get subscriptions by customer SID", "customer_sid", customerSID, "error", err)
		return nil, fmt.Errorf("failed to get subscriptions: %w", err)
	}

	entities, err := r.loadAggregates(ctx, subModels)
	if err != nil {
		r.logger.Errorw("failed to load subscription aggregates", "customer_sid", customerSID, "error", err)
		return nil, err
	}
	return entities, nil
}

// Update persists the whole aggregate. The subscription row carries the
// optimistic version: the UPDATE matches the version the aggregate was loaded
// with, and zero affected rows means another writer saved first.
func (r *SubscriptionRepositoryImpl) Update(ctx context.Context, entity *subscription.Subscription) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map subscription entity to model", "id", entity.ID(), "error", err)
		return fmt.Errorf("failed to map subscription entity: %w", err)
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Every aggregate mutation bumps the version exactly once, so the
		// previously persisted version is one behind the entity's.
		result := tx.Model(&models.SubscriptionModel{}).
			Where("id = ? AND version = ?", model.ID, model.Version-1).
			Updates(map[string]interface{}{
				"partner_sid":   model.PartnerSID,
				"address_sid":   model.AddressSID,
				"slot":          model.Slot,
				"status":        model.Status,
				"start_date":    model.StartDate,
				"end_date":      model.EndDate,
				"cancelled_at":  model.CancelledAt,
				"cancel_reason": model.CancelReason,
				"version":       model.Version,
				"updated_at":    model.UpdatedAt,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update subscription: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return subscription.ErrVersionConflict
		}

		productModels, err := r.mapper.ToProductModels(entity)
		if err != nil {
			return fmt.Errorf("failed to map subscription products: %w", err)
		}
		for _, pm := range productModels {
			if err := r.upsertProduct(tx, pm); err != nil {
				return err
			}
		}

		entryModels, err := r.mapper.ToEntryModels(entity)
		if err != nil {
			return fmt.Errorf("failed to map delivery entries: %w", err)
		}
		keptSIDs := make([]string, 0, len(entryModels))
		for _, em := range entryModels {
			keptSIDs = append(keptSIDs, em.SID)
			if err := r.upsertEntry(tx, em); err != nil {
				return err
			}
		}
		// Entries dropped from the schedule (an item move emptied its day)
		// are soft-deleted.
		prune := tx.Where("subscription_id = ?", model.ID)
		if len(keptSIDs) > 0 {
			prune = prune.Where("sid NOT IN ?", keptSIDs)
		}
		if err := prune.Delete(&models.DeliveryEntryModel{}).Error; err != nil {
			return fmt.Errorf("failed to prune delivery entries: %w", err)
		}
		return nil
	})
	if err != nil {
		if err == subscription.ErrVersionConflict {
			r.logger.Warnw("subscription update lost version race", "id", model.ID, "version", model.Version)
			return subscription.ErrVersionConflict
		}
		r.logger.Errorw("failed to update subscription", "id", model.ID, "error", err)
		return err
	}

	r.logger.Infow("subscription updated successfully", "id", model.ID, "sid", model.SID, "version", model.Version)
	return nil
}

func (r *SubscriptionRepositoryImpl) upsertProduct(tx *gorm.DB, pm *models.SubscriptionProductModel) error {
	result := tx.Model(&models.SubscriptionProductModel{}).
		Where("sid = ?", pm.SID).
		Updates(map[string]interface{}{
			"total_deliveries": pm.TotalDeliveries,
			"delivered_count":  pm.DeliveredCount,
			"remaining":        pm.Remaining,
			"monthly_price":    pm.MonthlyPrice,
			"count":            pm.Count,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update subscription product %s: %w", pm.SID, result.Error)
	}
	if result.RowsAffected == 0 {
		// New product line added mid-subscription.
		if err := tx.Create(pm).Error; err != nil {
			return fmt.Errorf("failed to create subscription product %s: %w", pm.SID, err)
		}
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) upsertEntry(tx *gorm.DB, em *models.DeliveryEntryModel) error {
	result := tx.Model(&models.DeliveryEntryModel{}).
		Where("sid = ?", em.SID).
		Updates(map[string]interface{}{
			"date":               em.Date,
			"slot":               em.Slot,
			"status":             em.Status,
			"cutoff_at":          em.CutoffAt,
			"partner_sid":        em.PartnerSID,
			"lines":              em.Lines,
			"latitude":           em.Latitude,
			"longitude":          em.Longitude,
			"started_at":         em.StartedAt,
			"delivered_at":       em.DeliveredAt,
			"confirmed_at":       em.ConfirmedAt,
			"canceled_at":        em.CanceledAt,
			"concession":         em.Concession,
			"concession_details": em.ConcessionDetails,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update delivery entry %s: %w", em.SID, result.Error)
	}
	if result.RowsAffected == 0 {
		if err := tx.Create(em).Error; err != nil {
			return fmt.Errorf("failed to create delivery entry %s: %w", em.SID, err)
		}
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) Delete(ctx context.Context, id uint) error {
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Delete(&models.SubscriptionModel{}, id).Error; err != nil {
		r.logger.Errorw("failed to delete subscription", "id", id, "error", err)
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	r.logger.Infow("subscription deleted successfully", "id", id)
	return nil
}

func (r *SubscriptionRepositoryImpl) List(ctx context.Context, filter subscription.SubscriptionFilter) ([]*subscription.Subscription, int64, error) {
	var subModels []*models.SubscriptionModel
	var total int64

	query := r.db.WithContext(ctx).Model(&models.SubscriptionModel{})

	if filter.CustomerSID != nil {
		query = query.Where("customer_sid = ?", *filter.CustomerSID)
	}
	if filter.BranchSID != nil {
		query = query.Where("branch_sid = ?", *filter.BranchSID)
	}
	if filter.PartnerSID != nil {
		query = query.Where("partner_sid = ?", *filter.PartnerSID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		r.logger.Errorw("failed to count subscriptions", "error", err)
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	sortBy := filter.SortBy
	if !allowedSubscriptionSortByFields[sortBy] {
		sortBy = "created_at"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	offset := (filter.Page - 1) * filter.PageSize
	if err := query.
		Order(fmt.Sprintf("%s %s", sortBy, direction)).
		Offset(offset).
		Limit(filter.PageSize).
		Find(&subModels).Error; err != nil {
		r.logger.Errorw("failed to list subscriptions", "error", err)
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	entities, err := r.loadAggregates(ctx, subModels)
	if err != nil {
		r.logger.Errorw("failed to load subscription aggregates", "error", err)
		return nil, 0, err
	}
	return entities, total, nil
}

func (r *SubscriptionRepositoryImpl) FindWithUnresolvedDeliveriesBefore(ctx context.Context, date vo.DeliveryDate) ([]*subscription.Subscription, error) {
	overdue := r.db.Model(&models.DeliveryEntryModel{}).
		Select("subscription_id").
		Where("status IN ? AND date <= ?", unresolvedEntryStatuses, date.String())

	var subModels []*models.SubscriptionModel
	if err := r.db.WithContext(ctx).
		Where("id IN (?)", overdue).
		Where("status NOT IN ?", []string{vo.StatusCancelled.String(), vo.StatusCompleted.String()}).
		Order("id ASC").
		Find(&subModels).Error; err != nil {
		r.logger.Errorw("failed to find subscriptions with unresolved deliveries", "date", date.String(), "error", err)
		return nil, fmt.Errorf("failed to find subscriptions with unresolved deliveries: %w", err)
	}

	entities, err := r.loadAggregates(ctx, subModels)
	if err != nil {
		r.logger.Errorw("failed to load subscription aggregates", "date", date.String(), "error", err)
		return nil, err
	}
	return entities, nil
}

func (r *SubscriptionRepositoryImpl) FindExpiringSubscriptions(ctx context.Context, days int) ([]*subscription.Subscription, error) {
	today := vo.DateOf(biztime.NowUTC())
	threshold := today.AddDays(days)

	var subModels []*models.SubscriptionModel
	if err := r.db.WithContext(ctx).
		Where("end_date BETWEEN ? AND ?", today.String(), threshold.String()).
		Where("status IN ?", []string{vo.StatusActive.String(), vo.StatusExpiring.String()}).
		Order("end_date ASC").
		Find(&subModels).Error; err != nil {
		r.logger.Errorw("failed to find expiring subscriptions", "days", days, "error", err)
		return nil, fmt.Errorf("failed to find expiring subscriptions: %w", err)
	}

	entities, err := r.loadAggregates(ctx, subModels)
	if err != nil {
		r.logger.Errorw("failed to load subscription aggregates", "days", days, "error", err)
		return nil, err
	}
	return entities, nil
}

func (r *SubscriptionRepositoryImpl) FindDueOn(ctx context.Context, date vo.DeliveryDate, partnerSID string) ([]*subscription.Subscription, error) {
	due := r.db.Model(&models.DeliveryEntryModel{}).
		Select("subscription_id").
		Where("date = ? AND status IN ?", date.String(), []string{
			vo.DeliveryScheduled.String(),
			vo.DeliveryReaching.String(),
			vo.DeliveryAwaitingCustomer.String(),
		})

	query := r.db.WithContext(ctx).
		Where("id IN (?)", due).
		Where("status NOT IN ?", []string{vo.StatusCancelled.String(), vo.StatusCompleted.String(), vo.StatusExpired.String()})
	if partnerSID != "" {
		query = query.Where("partner_sid = ?", partnerSID)
	}

	var subModels []*models.SubscriptionModel
	if err := query.Order("id ASC").Find(&subModels).Error; err != nil {
		r.logger.Errorw("failed to find subscriptions due on date", "date", date.String(), "partner_sid", partnerSID, "error", err)
		return nil, fmt.Errorf("failed to find subscriptions due on date: %w", err)
	}

	entities, err := r.loadAggregates(ctx, subModels)
	if err != nil {
		r.logger.Errorw("failed to load subscription aggregates", "date", date.String(), "error", err)
		return nil, err
	}
	return entities, nil
}

func (r *SubscriptionRepositoryImpl) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.SubscriptionModel{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		r.logger.Errorw("failed to count subscriptions by status", "status", status, "error", err)
		return 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return count, nil
}
