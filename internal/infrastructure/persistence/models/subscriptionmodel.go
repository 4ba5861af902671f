package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/milkrun-inc/milkrun/internal/shared/constants"
)

// SubscriptionModel represents the database persistence model for subscriptions
// This is the anti-corruption layer between domain and database
type SubscriptionModel struct {
	ID           uint   `gorm:"primarykey"`
	SID          string `gorm:"uniqueIndex;not null;size:50;comment:Stripe-style ID: sub_xxx"`
	CustomerSID  string `gorm:"not null;size:50;index:idx_customer_subscription"`
	BranchSID    string `gorm:"not null;size:50;index:idx_branch_subscription"`
	AddressSID   string `gorm:"size:50"`
	PartnerSID   string `gorm:"size:50;index:idx_partner_subscription"`
	Slot         string `gorm:"not null;size:10"`
	Status       string `gorm:"not null;size:20;index:idx_status"`
	StartDate    string `gorm:"not null;size:10;comment:calendar date YYYY-MM-DD in business timezone"`
	EndDate      string `gorm:"not null;size:10;index:idx_end_date"`
	CancelledAt  *time.Time
	CancelReason *string `gorm:"size:500"`
	Version      int     `gorm:"not null;default:1"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (SubscriptionModel) TableName() string {
	return constants.TableSubscriptions
}

// BeforeCreate hook for GORM
func (s *SubscriptionModel) BeforeCreate(tx *gorm.DB) error {
	if s.Version == 0 {
		s.Version = 1
	}
	return nil
}
