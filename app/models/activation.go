package models

import "time"

// Activation records one device activation of a license or sub-license key.
// The token is handed to the client (browser extension) and presented on
// subsequent API calls.
type Activation struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	LicenseKeyID    uint      `gorm:"not null;index" json:"license_key_id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	ActivationToken string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"-"`
	DeviceType      string    `gorm:"type:varchar(64)" json:"device_type,omitempty"`
	DeviceModel     string    `gorm:"type:varchar(100)" json:"device_model,omitempty"`
	OSVersion       string    `gorm:"type:varchar(64)" json:"os_version,omitempty"`
	Browser         string    `gorm:"type:varchar(64)" json:"browser,omitempty"`
	BrowserVersion  string    `gorm:"type:varchar(64)" json:"browser_version,omitempty"`
	IPAddress       string    `gorm:"type:varchar(45)" json:"-"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}
