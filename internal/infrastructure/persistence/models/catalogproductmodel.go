package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/milkrun-inc/milkrun/internal/shared/constants"
)

// CatalogProductModel persists one sellable product with its branch price.
type CatalogProductModel struct {
	ID            uint    `gorm:"primarykey"`
	SID           string  `gorm:"uniqueIndex;not null;size:50;comment:Stripe-style ID: prd_xxx"`
	Name          string  `gorm:"not null;size:200"`
	QuantityValue float64 `gorm:"not null"`
	QuantityUnit  string  `gorm:"not null;size:10"`
	UnitPrice     int64   `gorm:"not null;comment:smallest currency unit"`
	Active        bool    `gorm:"not null;default:true;index:idx_catalog_active"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (CatalogProductModel) TableName() string {
	return constants.TableCatalogProducts
}
