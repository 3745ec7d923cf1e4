package repository

import (
	"time"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// licenseRepository implements the LicenseRepository interface
type licenseRepository struct {
	db *gorm.DB
}

// NewLicenseRepository creates a new license repository instance
func NewLicenseRepository(db *gorm.DB) LicenseRepository {
	return &licenseRepository{db: db}
}

// GetByKey retrieves a license key by its key string
func (r *licenseRepository) GetByKey(key string) (*models.LicenseKey, error) {
	var license models.LicenseKey
	err := r.db.Where("`key` = ?", key).First(&license).Error
	if err != nil {
		return nil, err
	}
	return &license, nil
}

// GetByKeyWithSubLicenses retrieves a license key with its sub-licenses preloaded
func (r *licenseRepository) GetByKeyWithSubLicenses(key string) (*models.LicenseKey, error) {
	var license models.LicenseKey
	err := r.db.Preload("SubLicenses").Where("`key` = ?", key).First(&license).Error
	if err != nil {
		return nil, err
	}
	return &license, nil
}

// GetSubLicenseByKey retrieves a sub-license by its key string, with the main
// license preloaded so callers can check the parent's active state
func (r *licenseRepository) GetSubLicenseByKey(key string) (*models.SubLicense, error) {
	var sub models.SubLicense
	err := r.db.Preload("MainLicenseKey").Where("`key` = ?", key).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetByProductIDForUser finds an active license for the given vendor product
// that is linked to the given user
func (r *licenseRepository) GetByProductIDForUser(productID int64, userID uint) (*models.LicenseKey, error) {
	var license models.LicenseKey
	err := r.db.
		Joins("JOIN user_license_keys ulk ON ulk.license_key_id = license_keys.id").
		Where("ulk.user_id = ? AND license_keys.lemon_product_id = ? AND license_keys.is_active = ?", userID, productID, true).
		First(&license).Error
	if err != nil {
		return nil, err
	}
	return &license, nil
}

// UpsertActivate creates the license key if missing and marks it active. An
// existing row keeps its identity; replays update activation state only.
func (r *licenseRepository) UpsertActivate(key, vendor string, tier int, productID *int64) (*models.LicenseKey, error) {
	now := time.Now()
	license := models.LicenseKey{
		Key:            key,
		IsActive:       true,
		IsMainKey:      true,
		Vendor:         vendor,
		Tier:           tier,
		LemonProductID: productID,
		ActivatedAt:    &now,
	}
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "key"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_active",
			"vendor",
			"tier",
			"lemon_product_id",
			"activated_at",
			"updated_at",
		}),
	}).Create(&license).Error; err != nil {
		return nil, err
	}

	// Ensure ID is populated after upsert.
	var stored models.LicenseKey
	if err := r.db.Where("`key` = ?", key).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// Deactivate marks a license key inactive and stamps the deactivation time
func (r *licenseRepository) Deactivate(licenseKeyID uint) error {
	now := time.Now()
	return r.db.Model(&models.LicenseKey{}).Where("id = ?", licenseKeyID).Updates(map[string]interface{}{
		"is_active":      false,
		"deactivated_at": &now,
	}).Error
}

// DeactivateSubLicenses marks every sub-license of a main key inactive
func (r *licenseRepository) DeactivateSubLicenses(mainLicenseKeyID uint) error {
	now := time.Now()
	return r.db.Model(&models.SubLicense{}).
		Where("main_license_key_id = ? AND status = ?", mainLicenseKeyID, models.SubLicenseStatusActive).
		Updates(map[string]interface{}{
			"status":         models.SubLicenseStatusInactive,
			"deactivated_at": &now,
		}).Error
}

// EnsureUserLink links a user to a license key, ignoring an existing link
func (r *licenseRepository) EnsureUserLink(userID, licenseKeyID uint) error {
	link := models.UserLicenseKey{
		UserID:       userID,
		LicenseKeyID: licenseKeyID,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"},
			{Name: "license_key_id"},
		},
		DoNothing: true,
	}).Create(&link).Error
}

// UserOwnsLicense reports whether a user-license link exists
func (r *licenseRepository) UserOwnsLicense(userID, licenseKeyID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.UserLicenseKey{}).
		Where("user_id = ? AND license_key_id = ?", userID, licenseKeyID).
		Count(&count).Error
	return count > 0, err
}

// LinkedUserIDs returns every user linked to the license key, oldest first.
func (r *licenseRepository) LinkedUserIDs(licenseKeyID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.UserLicenseKey{}).
		Where("license_key_id = ?", licenseKeyID).
		Order("created_at ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

// CreateActivation stores a device activation record
func (r *licenseRepository) CreateActivation(activation *models.Activation) error {
	return r.db.Create(activation).Error
}

// IncrementActivationCount bumps the activation counter of a license key
func (r *licenseRepository) IncrementActivationCount(licenseKeyID uint) error {
	return r.db.Model(&models.LicenseKey{}).Where("id = ?", licenseKeyID).
		UpdateColumn("activation_count", gorm.Expr("activation_count + ?", 1)).Error
}

// IncrementUsageCount adds delta to the usage counter of a license key
func (r *licenseRepository) IncrementUsageCount(licenseKeyID uint, delta int64) error {
	if delta == 0 {
		return nil
	}
	return r.db.Model(&models.LicenseKey{}).Where("id = ?", licenseKeyID).
		UpdateColumn("usage_count", gorm.Expr("usage_count + ?", delta)).Error
}

// CreateSubLicense stores a new sub-license seat
func (r *licenseRepository) CreateSubLicense(sub *models.SubLicense) error {
	return r.db.Create(sub).Error
}

// CountSubLicenses returns the number of seats under a main key
func (r *licenseRepository) CountSubLicenses(mainLicenseKeyID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.SubLicense{}).Where("main_license_key_id = ?", mainLicenseKeyID).Count(&count).Error
	return count, err
}

// CountActiveSubLicenses returns the number of active seats under a main key
func (r *licenseRepository) CountActiveSubLicenses(mainLicenseKeyID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.SubLicense{}).
		Where("main_license_key_id = ? AND status = ?", mainLicenseKeyID, models.SubLicenseStatusActive).
		Count(&count).Error
	return count, err
}

// ListSubLicenses returns all seats under a main key
func (r *licenseRepository) ListSubLicenses(mainLicenseKeyID uint) ([]models.SubLicense, error) {
	var subs []models.SubLicense
	err := r.db.Where("main_license_key_id = ?", mainLicenseKeyID).Order("id ASC").Find(&subs).Error
	return subs, err
}

// UpdateSubLicense updates an existing sub-license
func (r *licenseRepository) UpdateSubLicense(sub *models.SubLicense) error {
	return r.db.Save(sub).Error
}

// AssignSubLicenseUser binds a seat to a user and activates it
func (r *licenseRepository) AssignSubLicenseUser(subLicenseID, userID uint) error {
	return r.db.Model(&models.SubLicense{}).Where("id = ?", subLicenseID).Updates(map[string]interface{}{
		"assigned_user_id": userID,
		"status":           models.SubLicenseStatusActive,
		"deactivated_at":   nil,
	}).Error
}

// IncrementSubLicenseActivation bumps the activation counter of a seat
func (r *licenseRepository) IncrementSubLicenseActivation(subLicenseID uint) error {
	return r.db.Model(&models.SubLicense{}).Where("id = ?", subLicenseID).
		UpdateColumn("activation_count", gorm.Expr("activation_count + ?", 1)).Error
}
