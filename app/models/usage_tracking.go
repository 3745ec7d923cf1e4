package models

import "time"

// UsageTracking records a single metered action (comment generated, post
// analyzed, ...) attributed to either a main license key or a sub-license,
// never both. Team analytics scope visibility by these attribution columns.
type UsageTracking struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       *uint     `gorm:"index" json:"user_id,omitempty"`
	LicenseKeyID *uint     `gorm:"index" json:"license_key_id,omitempty"`
	SubLicenseID *uint     `gorm:"index" json:"sub_license_id,omitempty"`
	Action       string    `gorm:"type:varchar(64);not null;index" json:"action"`
	Platform     string    `gorm:"type:varchar(32);index" json:"platform,omitempty"`
	Event        string    `gorm:"type:varchar(64)" json:"event,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`

	LicenseKey *LicenseKey `gorm:"foreignKey:LicenseKeyID" json:"-"`
	SubLicense *SubLicense `gorm:"foreignKey:SubLicenseID" json:"-"`
}
