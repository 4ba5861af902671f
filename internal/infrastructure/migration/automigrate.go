package migration

import (
	"github.com/milkrun-inc/milkrun/internal/infrastructure/persistence/models"
)

// AutoMigrateModels lists every persistence model the auto-migrate strategy
// manages.
func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.SubscriptionModel{},
		&models.SubscriptionProductModel{},
		&models.DeliveryEntryModel{},
		&models.CatalogProductModel{},
	}
}
