package licensing

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/codes"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/entitlements"
)

// AppSumoActivation carries the form data of an AppSumo key activation.
// Password is optional; buyers activating from the marketplace form get an
// account created on the fly.
type AppSumoActivation struct {
	Name       string
	Email      string
	Password   string
	LicenseKey string
	Tier       int
}

// AppSumoResult is returned after a successful AppSumo activation.
type AppSumoResult struct {
	Entitlement    *Entitlement `json:"entitlement"`
	UserID         uint         `json:"user_id"`
	Email          string       `json:"email"`
	CreditsGranted int64        `json:"credits_granted"`
	SeatsCreated   int          `json:"seats_created"`
}

// ActivateAppSumo activates an AppSumo license key for the given email,
// creating the account when none exists yet. A key that is already active
// and linked to an account cannot be activated a second time. The flow
// mirrors Redeem: phase one activates the key and resolves the user, phase
// two wires up plan, subscription, credits and seats.
func (s *Service) ActivateAppSumo(ctx context.Context, req AppSumoActivation) (*AppSumoResult, error) {
	key := codes.Normalize(req.LicenseKey)
	if key == "" {
		return nil, ErrLicenseNotFound
	}

	tier := req.Tier
	if tier < models.PlanTierT1 || tier > models.PlanTierT4 {
		tier = entitlements.TierFromKeyName(key)
	}

	// Phase 1: activate the key and resolve the account.
	var license *models.LicenseKey
	var user *models.User
	err := s.runInTx(ctx, func(tx *gorm.DB) error {
		r := s.bindRepos(tx)

		existing, err := r.License.GetByKey(key)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing != nil && existing.IsActive {
			linked, err := r.License.LinkedUserIDs(existing.ID)
			if err != nil {
				return err
			}
			if len(linked) > 0 {
				return ErrKeyAlreadyActivated
			}
		}

		stored, err := r.License.UpsertActivate(key, models.VendorAppSumo, tier, nil)
		if err != nil {
			return err
		}
		license = stored

		resolved, err := r.User.UpsertByEmail(req.Email, req.Name)
		if err != nil {
			return err
		}
		if req.Password != "" {
			hash, err := models.HashPassword(req.Password)
			if err != nil {
				return err
			}
			resolved.Password = hash
			if err := r.User.Update(resolved); err != nil {
				return err
			}
		}
		user = resolved

		return r.License.EnsureUserLink(user.ID, license.ID)
	})
	if err != nil {
		return nil, err
	}

	// Phase 2: plan, subscription, credits and seats.
	var credits int64
	var seats int
	err = s.runInTx(ctx, func(tx *gorm.DB) error {
		r := s.bindRepos(tx)

		plan := &models.Plan{
			Vendor:    models.VendorAppSumo,
			ProductID: fmt.Sprintf("appsumo_tier%d", tier),
			Tier:      tier,
			Duration:  models.PlanDurationLifetime,
			Name:      entitlements.TierName(tier),
			MaxUsers:  entitlements.TierMaxUsers(tier),
			IsActive:  true,
		}
		if err := r.Subscription.UpsertPlan(plan); err != nil {
			return err
		}

		// A lifetime deal supersedes whatever the user was on.
		if err := r.Subscription.CancelActiveByUser(user.ID, nowFunc()); err != nil {
			return err
		}

		vendorSubID := fmt.Sprintf("appsumo_%s", key)
		sub := &models.UserSubscription{
			UserID:       user.ID,
			PlanID:       plan.ID,
			LicenseKeyID: &license.ID,
			VendorSubID:  &vendorSubID,
			Status:       models.SubscriptionStatusActive,
		}
		if err := r.Subscription.CreateSubscription(sub); err != nil {
			return err
		}

		if err := r.User.SetPaidStatus(user.ID, true); err != nil {
			return err
		}

		credits = entitlements.TierCredits(tier)
		if _, err := r.Credit.Grant(user.ID, credits, models.TransactionTypePlanCredits,
			fmt.Sprintf("AppSumo tier %d included credits: %d LLM credits", tier, credits)); err != nil {
			return err
		}

		svc := NewService(tx, r)
		created, err := svc.EnsureSeats(ctx, license)
		if err != nil {
			return err
		}
		seats = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Send(ctx, fmt.Sprintf("New sign up & license key activation from: %s (%s tier %d)",
		user.Email, entitlements.TierName(tier), tier))

	return &AppSumoResult{
		Entitlement: &Entitlement{
			Key:            license.Key,
			Vendor:         license.Vendor,
			Tier:           tier,
			IsMainKey:      true,
			Active:         true,
			LicenseKeyID:   license.ID,
			MaxUsers:       entitlements.TierMaxUsers(tier),
			MonthlyCredits: entitlements.TierCredits(tier),
		},
		UserID:         user.ID,
		Email:          user.Email,
		CreditsGranted: credits,
		SeatsCreated:   seats,
	}, nil
}
