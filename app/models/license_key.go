package models

import "time"

const (
	VendorAppSumo      = "APPSUMO"
	VendorLemonSqueezy = "LEMON"
	VendorOllyRedeem   = "OLLY_REDEEM"
	VendorLocal        = "LOCAL"
)

// LicenseKey is a top-level purchased license. It may own sub-licenses (team
// seats) and is linked to users through UserLicenseKey. Keys are never
// physically deleted; deactivation is soft state only.
type LicenseKey struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Key             string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"key"`
	IsActive        bool       `gorm:"default:false;index" json:"is_active"`
	IsMainKey       bool       `gorm:"default:true" json:"is_main_key"`
	Vendor          string     `gorm:"type:varchar(32);index" json:"vendor"`
	Tier            int        `gorm:"default:1" json:"tier"`
	LemonProductID  *int64     `gorm:"index" json:"lemon_product_id,omitempty"`
	OrganizationID  *uint      `gorm:"index" json:"organization_id,omitempty"`
	ActivationCount int64      `gorm:"default:0" json:"activation_count"`
	UsageCount      int64      `gorm:"default:0" json:"usage_count"`
	ActivatedAt     *time.Time `gorm:"type:timestamp;default:null" json:"activated_at,omitempty"`
	DeactivatedAt   *time.Time `gorm:"type:timestamp;default:null" json:"deactivated_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	SubLicenses []SubLicense     `gorm:"foreignKey:MainLicenseKeyID" json:"sub_licenses,omitempty"`
	Users       []UserLicenseKey `gorm:"foreignKey:LicenseKeyID" json:"-"`
}

// UserLicenseKey links a user to a license key they own or activated.
// The (user, license) pair is unique.
type UserLicenseKey struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index:ux_user_license_keys_pair,unique,priority:1" json:"user_id"`
	LicenseKeyID uint      `gorm:"not null;index:ux_user_license_keys_pair,unique,priority:2" json:"license_key_id"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`

	LicenseKey *LicenseKey `gorm:"foreignKey:LicenseKeyID" json:"license_key,omitempty"`
}
