package repository

import (
	"time"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"gorm.io/gorm"
)

// redeemCodeRepository implements the RedeemCodeRepository interface
type redeemCodeRepository struct {
	db *gorm.DB
}

// NewRedeemCodeRepository creates a new redeem code repository instance
func NewRedeemCodeRepository(db *gorm.DB) RedeemCodeRepository {
	return &redeemCodeRepository{db: db}
}

// Create stores a new redeem code
func (r *redeemCodeRepository) Create(code *models.RedeemCode) error {
	return r.db.Create(code).Error
}

// GetByCode retrieves a redeem code by its code string
func (r *redeemCodeRepository) GetByCode(code string) (*models.RedeemCode, error) {
	var rc models.RedeemCode
	err := r.db.Where("code = ?", code).First(&rc).Error
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

// Claim atomically claims an unclaimed code for the user. Returns false
// when the code was already claimed or someone else won the race; the
// conditional update makes the claim first-wins.
func (r *redeemCodeRepository) Claim(code string, userID uint, claimedAt time.Time) (bool, error) {
	tx := r.db.Model(&models.RedeemCode{}).
		Where("code = ? AND status = ?", code, models.RedeemCodeStatusUnclaimed).
		Updates(map[string]interface{}{
			"status":     models.RedeemCodeStatusClaimed,
			"claimed_by": userID,
			"claimed_at": &claimedAt,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// AttachLicenseKey records which license key a claimed code activated
func (r *redeemCodeRepository) AttachLicenseKey(code string, licenseKeyID uint) error {
	return r.db.Model(&models.RedeemCode{}).
		Where("code = ?", code).
		Update("license_key_id", licenseKeyID).Error
}

// List retrieves redeem codes with pagination, newest first
func (r *redeemCodeRepository) List(offset, limit int) ([]models.RedeemCode, error) {
	var codes []models.RedeemCode
	err := r.db.Offset(offset).Limit(limit).Order("created_at DESC").Find(&codes).Error
	return codes, err
}

// Count returns the total number of redeem codes
func (r *redeemCodeRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.RedeemCode{}).Count(&count).Error
	return count, err
}
