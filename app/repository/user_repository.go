package repository

import (
	"strings"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by their email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertByEmail returns the user with the given email, creating a minimal
// active account when none exists yet. Vendor webhooks and redemptions may
// arrive before the user ever signed up.
func (r *userRepository) UpsertByEmail(email, name string) (*models.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return nil, gorm.ErrRecordNotFound
	}

	var user models.User
	err := r.db.Where("email = ?", normalized).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	if name == "" {
		name = normalized
	}
	user = models.User{
		Name:   name,
		Email:  normalized,
		Role:   models.ROLE_USER,
		Status: models.STATUS_ACTIVE,
	}
	if err := r.db.Create(&user).Error; err != nil {
		// Lost the race against a concurrent insert; read whoever won.
		var existing models.User
		if ferr := r.db.Where("email = ?", normalized).First(&existing).Error; ferr == nil {
			return &existing, nil
		}
		return nil, err
	}
	return &user, nil
}

// SetPaidStatus flags or unflags the user as having a paid entitlement
func (r *userRepository) SetPaidStatus(id uint, paid bool) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("is_paid_user", paid).Error
}

// Update updates an existing user
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// List retrieves users with pagination
func (r *userRepository) List(offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.Offset(offset).Limit(limit).Order("created_at DESC").Find(&users).Error
	return users, err
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

// GetByAPIKeyHash resolves an active API key hash to its user and user settings.
func (r *userRepository) GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error) {
	trimmed := strings.TrimSpace(hash)
	if trimmed == "" {
		return nil, nil, gorm.ErrRecordNotFound
	}
	var settings models.UserSettings
	query := r.db.Where("api_key_hash = ? AND api_key_hash <> '' AND api_key_revoked_at IS NULL", trimmed)
	if err := query.First(&settings).Error; err != nil {
		return nil, nil, err
	}
	var user models.User
	if err := r.db.First(&user, settings.UserID).Error; err != nil {
		return nil, nil, err
	}
	return &user, &settings, nil
}
