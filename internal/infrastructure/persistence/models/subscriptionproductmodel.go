package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/milkrun-inc/milkrun/internal/shared/constants"
)

// SubscriptionProductModel persists one product line of a subscription.
type SubscriptionProductModel struct {
	ID              uint    `gorm:"primarykey"`
	SID             string  `gorm:"uniqueIndex;not null;size:50;comment:Stripe-style ID: sp_xxx"`
	SubscriptionID  uint    `gorm:"not null;index:idx_subscription_product"`
	ProductSID      string  `gorm:"not null;size:50;index:idx_catalog_product"`
	Name            string  `gorm:"not null;size:200"`
	QuantityValue   float64 `gorm:"not null"`
	QuantityUnit    string  `gorm:"not null;size:10"`
	UnitPrice       int64   `gorm:"not null;comment:smallest currency unit"`
	MonthlyPrice    int64   `gorm:"not null"`
	Frequency       string  `gorm:"not null;size:20"`
	DeliveryGapDays int     `gorm:"not null"`
	TotalDeliveries int     `gorm:"not null"`
	DeliveredCount  int     `gorm:"not null;default:0"`
	Remaining       int     `gorm:"not null"`
	Count           int     `gorm:"not null;default:1"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (SubscriptionProductModel) TableName() string {
	return constants.TableSubscriptionProducts
}
