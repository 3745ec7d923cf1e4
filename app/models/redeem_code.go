package models

import "time"

const (
	RedeemCodeStatusUnclaimed = "UNCLAIMED"
	RedeemCodeStatusClaimed   = "CLAIMED"
)

// RedeemCode is a single-use code that activates a license key. Once claimed
// it stays claimed forever, regardless of which user attempts a re-claim.
type RedeemCode struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Code         string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"code"`
	Status       string     `gorm:"type:varchar(16);not null;default:'UNCLAIMED';index" json:"status"`
	LicenseKeyID *uint      `gorm:"index" json:"license_key_id,omitempty"`
	ClaimedBy    *uint      `gorm:"index" json:"claimed_by,omitempty"`
	ClaimedAt    *time.Time `gorm:"type:timestamp;default:null" json:"claimed_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	LicenseKey *LicenseKey `gorm:"foreignKey:LicenseKeyID" json:"license_key,omitempty"`
}

// IsClaimed reports whether the code has already been used.
func (r *RedeemCode) IsClaimed() bool {
	return r.Status == RedeemCodeStatusClaimed
}
