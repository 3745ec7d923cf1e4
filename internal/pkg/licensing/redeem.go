package licensing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/codes"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/entitlements"
)

// Each redeem phase gets its own transaction and time budget so a stuck
// database never holds the HTTP handler hostage.
const redeemPhaseTimeout = 10 * time.Second

// RedeemResult is returned after a successful redemption.
type RedeemResult struct {
	Entitlement    *Entitlement `json:"entitlement"`
	CreditsGranted int64        `json:"credits_granted"`
	SeatsCreated   int          `json:"seats_created"`
}

// Redeem claims a redeem code for the user. The flow runs in two phases:
// phase one claims the code and activates its license key, phase two wires
// up plan, subscription, credits and seats. Each phase runs in its own
// transaction with a 10 second budget.
func (s *Service) Redeem(ctx context.Context, rawCode string, userID uint) (*RedeemResult, error) {
	code := codes.Normalize(rawCode)
	if code == "" {
		return nil, ErrCodeNotFound
	}

	tier := entitlements.TierFromKeyName(code)

	// Phase 1: claim the code and activate its license key.
	var license *models.LicenseKey
	err := s.runInTx(ctx, func(tx *gorm.DB) error {
		r := s.bindRepos(tx)

		claimed, err := r.RedeemCode.Claim(code, userID, nowFunc())
		if err != nil {
			return err
		}
		if !claimed {
			// Nothing claimed: distinguish unknown code from re-claim.
			if _, err := r.RedeemCode.GetByCode(code); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrCodeNotFound
				}
				return err
			}
			return ErrAlreadyClaimed
		}

		stored, err := r.License.UpsertActivate(code, models.VendorOllyRedeem, tier, nil)
		if err != nil {
			return err
		}
		license = stored

		return r.RedeemCode.AttachLicenseKey(code, stored.ID)
	})
	if err != nil {
		return nil, err
	}

	// Phase 2: plan, subscription, credits, seats and user linkage.
	var credits int64
	var seats int
	err = s.runInTx(ctx, func(tx *gorm.DB) error {
		r := s.bindRepos(tx)

		plan := &models.Plan{
			Vendor:    models.VendorOllyRedeem,
			ProductID: fmt.Sprintf("redeem_%s", code),
			Tier:      tier,
			Duration:  models.PlanDurationLifetime,
			Name:      entitlements.TierName(tier),
			MaxUsers:  entitlements.TierMaxUsers(tier),
			IsActive:  true,
		}
		if err := r.Subscription.UpsertPlan(plan); err != nil {
			return err
		}

		// The lifetime plan supersedes whatever the user was on.
		if err := r.Subscription.CancelActiveByUser(userID, nowFunc()); err != nil {
			return err
		}

		vendorSubID := plan.ProductID
		sub := &models.UserSubscription{
			UserID:       userID,
			PlanID:       plan.ID,
			LicenseKeyID: &license.ID,
			VendorSubID:  &vendorSubID,
			Status:       models.SubscriptionStatusActive,
		}
		if err := r.Subscription.CreateSubscription(sub); err != nil {
			return err
		}

		if err := r.License.EnsureUserLink(userID, license.ID); err != nil {
			return err
		}
		if err := r.User.SetPaidStatus(userID, true); err != nil {
			return err
		}

		credits = entitlements.TierCredits(tier)
		if _, err := r.Credit.Grant(userID, credits, models.TransactionTypePlanCredits,
			fmt.Sprintf("Plan credits for %s tier %d", models.VendorOllyRedeem, tier)); err != nil {
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

	s.notifier.Send(ctx, fmt.Sprintf("🎟️ Redeem code claimed: %s plan (tier %d), %d credits, %d seats",
		entitlements.TierName(tier), tier, credits, seats))

	return &RedeemResult{
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
		CreditsGranted: credits,
		SeatsCreated:   seats,
	}, nil
}

// transactionWithTimeout executes fn inside one transaction bounded by the
// phase timeout. A blown deadline is reported as ErrTransactionTimeout so
// callers can map it to a retryable status.
func (s *Service) transactionWithTimeout(ctx context.Context, fn func(tx *gorm.DB) error) error {
	phaseCtx, cancel := context.WithTimeout(ctx, redeemPhaseTimeout)
	defer cancel()

	err := s.db.WithContext(phaseCtx).Transaction(fn)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || phaseCtx.Err() != nil {
		return ErrTransactionTimeout
	}
	return err
}
