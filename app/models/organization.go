package models

import "time"

// Organization groups users under a shared (team-converted) main license.
type Organization struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Name             string    `gorm:"type:varchar(150);not null" json:"name"`
	IsPremium        bool      `gorm:"default:false" json:"is_premium"`
	MainLicenseKeyID *uint     `gorm:"index" json:"main_license_key_id,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
