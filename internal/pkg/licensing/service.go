package licensing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"github.com/SocialOwlHQ/SocialOwl/app/repository"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/entitlements"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/notify"
)

// nowFunc is swapped out in tests.
var nowFunc = time.Now

// Service resolves, activates and manages license keys and sub-licenses.
type Service struct {
	db       *gorm.DB
	repos    *repository.Repositories
	notifier *notify.DiscordNotifier

	// Seams for tests: runInTx wraps a redeem phase in a transaction,
	// bindRepos re-binds the repositories onto that transaction handle.
	runInTx   func(ctx context.Context, fn func(tx *gorm.DB) error) error
	bindRepos func(tx *gorm.DB) *repository.Repositories
}

// NewService creates a licensing service from injected repositories.
func NewService(db *gorm.DB, repos *repository.Repositories) *Service {
	s := &Service{db: db, repos: repos}
	s.runInTx = s.transactionWithTimeout
	s.bindRepos = repository.NewRepositories
	return s
}

// NewServiceFromDB creates a licensing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	s := NewService(db, repository.NewRepositories(db))
	s.notifier = notify.NewDiscordNotifier("TEAM_DISCORD_WEBHOOK")
	return s
}

// Entitlement is the resolved view of a license or sub-license key.
type Entitlement struct {
	Key            string `json:"key"`
	Vendor         string `json:"vendor"`
	Tier           int    `json:"tier"`
	IsMainKey      bool   `json:"is_main_key"`
	Active         bool   `json:"active"`
	LicenseKeyID   uint   `json:"license_key_id"`
	SubLicenseID   *uint  `json:"sub_license_id,omitempty"`
	MaxUsers       int    `json:"max_users"`
	MonthlyCredits int64  `json:"monthly_credits"`
}

// Resolve looks a key up in the main license table first, then in the
// sub-license table. A sub-license is only active when both the seat and its
// parent key are active.
func (s *Service) Resolve(ctx context.Context, key string) (*Entitlement, error) {
	_ = ctx
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return nil, ErrLicenseNotFound
	}

	license, err := s.repos.License.GetByKey(trimmed)
	if err == nil {
		if !license.IsActive {
			return nil, ErrLicenseInactive
		}
		return &Entitlement{
			Key:            license.Key,
			Vendor:         license.Vendor,
			Tier:           license.Tier,
			IsMainKey:      true,
			Active:         true,
			LicenseKeyID:   license.ID,
			MaxUsers:       entitlements.TierMaxUsers(license.Tier),
			MonthlyCredits: entitlements.TierCredits(license.Tier),
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub, err := s.repos.License.GetSubLicenseByKey(trimmed)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLicenseNotFound
		}
		return nil, err
	}
	if sub.MainLicenseKey == nil {
		return nil, ErrLicenseNotFound
	}
	if !sub.IsUsable() || !sub.MainLicenseKey.IsActive {
		return nil, ErrLicenseInactive
	}

	subID := sub.ID
	tier := sub.MainLicenseKey.Tier
	return &Entitlement{
		Key:            sub.Key,
		Vendor:         sub.MainLicenseKey.Vendor,
		Tier:           tier,
		IsMainKey:      false,
		Active:         true,
		LicenseKeyID:   sub.MainLicenseKeyID,
		SubLicenseID:   &subID,
		MaxUsers:       entitlements.TierMaxUsers(tier),
		MonthlyCredits: entitlements.TierCredits(tier),
	}, nil
}

// ActivateInput carries a device activation request.
type ActivateInput struct {
	Key            string `json:"key" validate:"required"`
	UserID         uint   `json:"-"`
	DeviceType     string `json:"device_type"`
	DeviceModel    string `json:"device_model"`
	OSVersion      string `json:"os_version"`
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browser_version"`
	IPAddress      string `json:"-"`
}

// ActivateResult is returned on a successful device activation.
type ActivateResult struct {
	Entitlement     *Entitlement `json:"entitlement"`
	ActivationToken string       `json:"activation_token"`
}

// Activate binds an active key to the user, records the device activation
// and hands out an activation token for subsequent extension API calls.
func (s *Service) Activate(ctx context.Context, in ActivateInput) (*ActivateResult, error) {
	ent, err := s.Resolve(ctx, in.Key)
	if err != nil {
		return nil, err
	}

	if err := s.repos.License.EnsureUserLink(in.UserID, ent.LicenseKeyID); err != nil {
		return nil, err
	}

	activation := &models.Activation{
		LicenseKeyID:    ent.LicenseKeyID,
		UserID:          in.UserID,
		ActivationToken: uuid.NewString(),
		DeviceType:      in.DeviceType,
		DeviceModel:     in.DeviceModel,
		OSVersion:       in.OSVersion,
		Browser:         in.Browser,
		BrowserVersion:  in.BrowserVersion,
		IPAddress:       in.IPAddress,
	}
	if err := s.repos.License.CreateActivation(activation); err != nil {
		return nil, err
	}

	if ent.SubLicenseID != nil {
		if err := s.repos.License.IncrementSubLicenseActivation(*ent.SubLicenseID); err != nil {
			return nil, err
		}
	} else {
		if err := s.repos.License.IncrementActivationCount(ent.LicenseKeyID); err != nil {
			return nil, err
		}
	}

	if err := s.repos.User.SetPaidStatus(in.UserID, true); err != nil {
		return nil, err
	}

	return &ActivateResult{
		Entitlement:     ent,
		ActivationToken: activation.ActivationToken,
	}, nil
}

// Deactivate marks a main license key inactive and cascades to every
// sub-license under it. Deactivating a sub-license key only touches the
// seat. A non-zero callerID must own the key (or, for a seat, hold it).
func (s *Service) Deactivate(ctx context.Context, key string, callerID uint) error {
	_ = ctx
	trimmed := strings.TrimSpace(key)

	license, err := s.repos.License.GetByKey(trimmed)
	if err == nil {
		if err := s.requireOwner(callerID, license.ID); err != nil {
			return err
		}
		if err := s.repos.License.Deactivate(license.ID); err != nil {
			return err
		}
		return s.repos.License.DeactivateSubLicenses(license.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	sub, err := s.repos.License.GetSubLicenseByKey(trimmed)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLicenseNotFound
		}
		return err
	}
	if callerID != 0 && (sub.AssignedUserID == nil || *sub.AssignedUserID != callerID) {
		// Not the seat holder; the main license owner may still manage it.
		if err := s.requireOwner(callerID, sub.MainLicenseKeyID); err != nil {
			return err
		}
	}
	return s.deactivateSeat(sub)
}

// requireOwner verifies the caller is linked to the license key. A zero
// caller id marks an internal or admin call and skips the check.
func (s *Service) requireOwner(callerID, licenseKeyID uint) error {
	if callerID == 0 {
		return nil
	}
	owns, err := s.repos.License.UserOwnsLicense(callerID, licenseKeyID)
	if err != nil {
		return err
	}
	if !owns {
		return ErrNotLicenseOwner
	}
	return nil
}

func (s *Service) deactivateSeat(sub *models.SubLicense) error {
	now := nowFunc()
	sub.Status = models.SubLicenseStatusInactive
	sub.DeactivatedAt = &now
	return s.repos.License.UpdateSubLicense(sub)
}
