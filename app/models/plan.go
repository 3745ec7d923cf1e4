package models

import "time"

const (
	PlanTierT1 = 1
	PlanTierT2 = 2
	PlanTierT3 = 3
	PlanTierT4 = 4
)

const (
	PlanDurationLifetime = "LIFETIME"
	PlanDurationMonthly  = "MONTHLY"
)

// Plan is a catalog entry keyed by (vendor, product id), populated on demand
// from the vendor product mapping when subscriptions or redemptions are
// processed.
type Plan struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Vendor    string    `gorm:"type:varchar(32);not null;index:ux_plans_vendor_product,unique,priority:1" json:"vendor"`
	ProductID string    `gorm:"type:varchar(191);not null;index:ux_plans_vendor_product,unique,priority:2" json:"product_id"`
	Tier      int       `gorm:"not null;default:1" json:"tier"`
	Duration  string    `gorm:"type:varchar(16);not null;default:'LIFETIME'" json:"duration"`
	Name      string    `gorm:"type:varchar(100)" json:"name"`
	MaxUsers  int       `gorm:"not null;default:1" json:"max_users"`
	IsActive  bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
