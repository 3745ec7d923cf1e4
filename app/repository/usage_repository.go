package repository

import (
	"time"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"gorm.io/gorm"
)

// usageRepository implements the UsageRepository interface
type usageRepository struct {
	db *gorm.DB
}

// NewUsageRepository creates a new usage repository instance
func NewUsageRepository(db *gorm.DB) UsageRepository {
	return &usageRepository{db: db}
}

// Create stores a usage tracking entry
func (r *usageRepository) Create(entry *models.UsageTracking) error {
	return r.db.Create(entry).Error
}

// ListForLicenseKeys returns usage entries attributed to any of the given
// main license keys or sub-licenses within the time window, newest first
func (r *usageRepository) ListForLicenseKeys(licenseKeyIDs []uint, subLicenseIDs []uint, from, to time.Time) ([]models.UsageTracking, error) {
	var entries []models.UsageTracking
	query := r.db.Where("created_at >= ? AND created_at < ?", from, to)
	switch {
	case len(licenseKeyIDs) > 0 && len(subLicenseIDs) > 0:
		query = query.Where("license_key_id IN ? OR sub_license_id IN ?", licenseKeyIDs, subLicenseIDs)
	case len(licenseKeyIDs) > 0:
		query = query.Where("license_key_id IN ?", licenseKeyIDs)
	case len(subLicenseIDs) > 0:
		query = query.Where("sub_license_id IN ?", subLicenseIDs)
	default:
		return []models.UsageTracking{}, nil
	}
	err := query.Order("created_at DESC").Find(&entries).Error
	return entries, err
}

// ListForSubLicense returns usage entries attributed to a single sub-license
// within the time window, newest first
func (r *usageRepository) ListForSubLicense(subLicenseID uint, from, to time.Time) ([]models.UsageTracking, error) {
	var entries []models.UsageTracking
	err := r.db.
		Where("sub_license_id = ? AND created_at >= ? AND created_at < ?", subLicenseID, from, to).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}
