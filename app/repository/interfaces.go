package repository

import (
	"time"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	UpsertByEmail(email, name string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error)
	SetPaidStatus(id uint, paid bool) error
	Update(user *models.User) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// LicenseRepository defines the interface for license key and sub-license
// database operations
type LicenseRepository interface {
	GetByKey(key string) (*models.LicenseKey, error)
	GetByKeyWithSubLicenses(key string) (*models.LicenseKey, error)
	GetSubLicenseByKey(key string) (*models.SubLicense, error)
	GetByProductIDForUser(productID int64, userID uint) (*models.LicenseKey, error)
	UpsertActivate(key, vendor string, tier int, productID *int64) (*models.LicenseKey, error)
	Deactivate(licenseKeyID uint) error
	DeactivateSubLicenses(mainLicenseKeyID uint) error
	EnsureUserLink(userID, licenseKeyID uint) error
	UserOwnsLicense(userID, licenseKeyID uint) (bool, error)
	LinkedUserIDs(licenseKeyID uint) ([]uint, error)
	CreateActivation(activation *models.Activation) error
	IncrementActivationCount(licenseKeyID uint) error
	IncrementUsageCount(licenseKeyID uint, delta int64) error
	CreateSubLicense(sub *models.SubLicense) error
	CountSubLicenses(mainLicenseKeyID uint) (int64, error)
	CountActiveSubLicenses(mainLicenseKeyID uint) (int64, error)
	ListSubLicenses(mainLicenseKeyID uint) ([]models.SubLicense, error)
	UpdateSubLicense(sub *models.SubLicense) error
	AssignSubLicenseUser(subLicenseID, userID uint) error
	IncrementSubLicenseActivation(subLicenseID uint) error
}

// RedeemCodeRepository defines the interface for redeem code operations
type RedeemCodeRepository interface {
	Create(code *models.RedeemCode) error
	GetByCode(code string) (*models.RedeemCode, error)
	Claim(code string, userID uint, claimedAt time.Time) (bool, error)
	AttachLicenseKey(code string, licenseKeyID uint) error
	List(offset, limit int) ([]models.RedeemCode, error)
	Count() (int64, error)
}

// CreditRepository defines the interface for credit balance and transaction
// log operations. Balance mutation and log append happen inside a single
// database transaction in every implementation.
type CreditRepository interface {
	GetByUserID(userID uint) (*models.UserCredit, error)
	Grant(userID uint, amount int64, txType, description string) (*models.UserCredit, error)
	Spend(userID uint, amount int64, description string) (*models.UserCredit, error)
	Deduct(userID uint, amount int64, txType, description string) (*models.UserCredit, int64, error)
	ListTransactions(userID uint, offset, limit int) ([]models.CreditTransaction, error)
}

// SubscriptionRepository defines the interface for plan catalog and vendor
// subscription lifecycle operations
type SubscriptionRepository interface {
	UpsertPlan(plan *models.Plan) error
	GetPlanByID(id uint) (*models.Plan, error)
	GetSubscriptionByVendorSubID(vendorSubID string) (*models.UserSubscription, error)
	CreateSubscription(sub *models.UserSubscription) error
	SaveSubscription(sub *models.UserSubscription) error
	CancelActiveByUser(userID uint, endDate time.Time) error
	ListOverdue(now time.Time) ([]models.UserSubscription, error)
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

// WorkshopRepository defines the interface for workshop, group and
// participant operations
type WorkshopRepository interface {
	Create(workshop *models.Workshop) error
	GetActiveByID(id uint) (*models.Workshop, error)
	GetGroup(groupID uint) (*models.Group, error)
	CreateGroup(group *models.Group) error
	CountActiveParticipants(groupID uint) (int64, error)
	GroupParticipantCounts(workshopID uint) (map[uint]int64, error)
	FindActiveParticipantByName(workshopID uint, name string) (*models.Participant, error)
	CreateParticipant(participant *models.Participant) error
	DeactivateParticipant(participantID uint) error
}

// UsageRepository defines the interface for usage tracking operations
type UsageRepository interface {
	Create(entry *models.UsageTracking) error
	ListForLicenseKeys(licenseKeyIDs []uint, subLicenseIDs []uint, from, to time.Time) ([]models.UsageTracking, error)
	ListForSubLicense(subLicenseID uint, from, to time.Time) ([]models.UsageTracking, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User         UserRepository
	License      LicenseRepository
	RedeemCode   RedeemCodeRepository
	Credit       CreditRepository
	Subscription SubscriptionRepository
	Workshop     WorkshopRepository
	Usage        UsageRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		License:      NewLicenseRepository(db),
		RedeemCode:   NewRedeemCodeRepository(db),
		Credit:       NewCreditRepository(db),
		Subscription: NewSubscriptionRepository(db),
		Workshop:     NewWorkshopRepository(db),
		Usage:        NewUsageRepository(db),
	}
}
