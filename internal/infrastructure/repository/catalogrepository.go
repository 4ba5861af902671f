package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/milkrun-inc/milkrun/internal/application/subscription/usecases"
	vo "github.com/milkrun-inc/milkrun/internal/domain/subscription/valueobjects"
	"github.com/milkrun-inc/milkrun/internal/infrastructure/persistence/models"
	"github.com/milkrun-inc/milkrun/internal/shared/logger"
)

// CatalogRepositoryImpl resolves product references against the catalog table.
type CatalogRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewCatalogRepository(db *gorm.DB, logger logger.Interface) usecases.ProductCatalog {
	return &CatalogRepositoryImpl{db: db, logger: logger}
}

func (r *CatalogRepositoryImpl) GetProduct(ctx context.Context, productSID string) (*usecases.CatalogProduct, error) {
	var model models.CatalogProductModel

	if err := r.db.WithContext(ctx).Where("sid = ?", productSID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.logger.Errorw("failed to get catalog product", "sid", productSID, "error", err)
		return nil, fmt.Errorf("failed to get catalog product: %w", err)
	}

	quantity, err := vo.NewQuantity(model.QuantityValue, vo.QuantityUnit(model.QuantityUnit))
	if err != nil {
		r.logger.Errorw("invalid quantity on catalog product", "sid", productSID, "error", err)
		return nil, fmt.Errorf("invalid quantity on catalog product %s: %w", productSID, err)
	}

	return &usecases.CatalogProduct{
		SID:       model.SID,
		Name:      model.Name,
		Quantity:  quantity,
		UnitPrice: model.UnitPrice,
		Active:    model.Active,
	}, nil
}
