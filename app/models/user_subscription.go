package models

import "time"

const (
	SubscriptionStatusActive        = "ACTIVE"
	SubscriptionStatusCancelled     = "CANCELLED"
	SubscriptionStatusPaymentFailed = "PAYMENT_FAILED"
	SubscriptionStatusPaused        = "PAUSED"
)

// UserSubscription links a user to a plan and mirrors the vendor subscription
// lifecycle. The vendor subscription id is unique so replayed webhook events
// update the same row instead of creating duplicates.
type UserSubscription struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	UserID            uint       `gorm:"not null;index" json:"user_id"`
	PlanID            uint       `gorm:"not null;index" json:"plan_id"`
	LicenseKeyID      *uint      `gorm:"index" json:"license_key_id,omitempty"`
	VendorSubID       *string    `gorm:"type:varchar(191);uniqueIndex" json:"vendor_sub_id,omitempty"`
	OrderID           string     `gorm:"type:varchar(191)" json:"order_id,omitempty"`
	CustomerID        string     `gorm:"type:varchar(191)" json:"customer_id,omitempty"`
	Status            string     `gorm:"type:varchar(32);not null;default:'ACTIVE';index" json:"status"`
	EndDate           *time.Time `gorm:"type:timestamp;default:null" json:"end_date,omitempty"`
	LastBillingDate   *time.Time `gorm:"type:timestamp;default:null" json:"last_billing_date,omitempty"`
	NextBillingDate   *time.Time `gorm:"type:timestamp;default:null" json:"next_billing_date,omitempty"`
	PaymentFailedDate *time.Time `gorm:"type:timestamp;default:null" json:"payment_failed_date,omitempty"`
	CancelledAt       *time.Time `gorm:"type:timestamp;default:null" json:"cancelled_at,omitempty"`
	PausedAt          *time.Time `gorm:"type:timestamp;default:null" json:"paused_at,omitempty"`
	ResumedAt         *time.Time `gorm:"type:timestamp;default:null" json:"resumed_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Plan *Plan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}
