package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/milkrun-inc/milkrun/internal/shared/constants"
)

// DeliveryEntryModel persists one calendar day's aggregated delivery.
// Product lines are embedded as JSON: they are only ever read and written
// through the owning subscription aggregate.
type DeliveryEntryModel struct {
	ID                uint   `gorm:"primarykey"`
	SID               string `gorm:"uniqueIndex;not null;size:50;comment:Stripe-style ID: del_xxx"`
	SubscriptionID    uint   `gorm:"not null;index:idx_subscription_delivery,priority:1"`
	Date              string `gorm:"not null;size:10;index:idx_subscription_delivery,priority:2;index:idx_delivery_date;comment:calendar date YYYY-MM-DD in business timezone"`
	Slot              string `gorm:"not null;size:10"`
	Status            string `gorm:"not null;size:20;index:idx_delivery_status"`
	CutoffAt          time.Time
	PartnerSID        string `gorm:"size:50;index:idx_partner_delivery"`
	Lines             datatypes.JSON
	Latitude          *float64
	Longitude         *float64
	StartedAt         *time.Time
	DeliveredAt       *time.Time
	ConfirmedAt       *time.Time
	CanceledAt        *time.Time
	Concession        bool `gorm:"not null;default:false"`
	ConcessionDetails datatypes.JSON
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (DeliveryEntryModel) TableName() string {
	return constants.TableDeliveryEntries
}
