package models

import "time"

const (
	SubLicenseStatusActive   = "ACTIVE"
	SubLicenseStatusInactive = "INACTIVE"
)

// SubLicense is a seat under a main license key, assignable to a user or an
// external email. Tier and vendor context are inherited from the main key.
type SubLicense struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Key                string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"key"`
	Status             string     `gorm:"type:varchar(16);not null;default:'INACTIVE';index" json:"status"`
	MainLicenseKeyID   uint       `gorm:"not null;index" json:"main_license_key_id"`
	AssignedUserID     *uint      `gorm:"index" json:"assigned_user_id,omitempty"`
	AssignedEmail      string     `gorm:"type:varchar(200);index" json:"assigned_email,omitempty"`
	OriginalLicenseKey string     `gorm:"type:varchar(191)" json:"original_license_key,omitempty"`
	ActivationCount    int64      `gorm:"default:0" json:"activation_count"`
	UsageCount         int64      `gorm:"default:0" json:"usage_count"`
	DeactivatedAt      *time.Time `gorm:"type:timestamp;default:null" json:"deactivated_at,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	MainLicenseKey *LicenseKey `gorm:"foreignKey:MainLicenseKeyID" json:"main_license_key,omitempty"`
	AssignedUser   *User       `gorm:"foreignKey:AssignedUserID" json:"assigned_user,omitempty"`
}

// IsUsable reports whether the seat itself is active.
func (s *SubLicense) IsUsable() bool {
	return s.Status == SubLicenseStatusActive
}
