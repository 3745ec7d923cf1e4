package subscriptions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"github.com/SocialOwlHQ/SocialOwl/app/repository"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/credits"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/entitlements"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/licensing"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/notify"
)

// ErrSubscriptionNotFound means no subscription matches the vendor id.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// ErrUserNotFound means the webhook references an email without an account.
var ErrUserNotFound = errors.New("user not found for webhook email")

// nowFunc is swapped out in tests.
var nowFunc = time.Now

// Notifier delivers best-effort operational notifications. Failures must
// never fail the webhook.
type Notifier interface {
	Send(ctx context.Context, message string)
}

// Service processes vendor webhooks and drives the subscription lifecycle.
type Service struct {
	repos     *repository.Repositories
	credits   *credits.Service
	licensing *licensing.Service
	catalog   *Catalog
	notifier  Notifier
}

// NewService creates a subscription service from injected collaborators.
// notifier may be nil.
func NewService(repos *repository.Repositories, creditSvc *credits.Service, licenseSvc *licensing.Service, catalog *Catalog, notifier Notifier) *Service {
	return &Service{
		repos:     repos,
		credits:   creditSvc,
		licensing: licenseSvc,
		catalog:   catalog,
		notifier:  notifier,
	}
}

// NewServiceFromDB creates a subscription service with the env-based catalog
// from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	repos := repository.NewRepositories(db)
	return NewService(
		repos,
		credits.NewService(repos.Credit),
		licensing.NewService(db, repos),
		NewCatalogFromEnv(),
		notify.NewDiscordNotifier("TEAM_DISCORD_WEBHOOK"),
	)
}

// HandleWebhook stores the event idempotently and dispatches it to its
// handler. A replayed delivery that was already processed is acknowledged
// without running the handler again.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signatureValid bool) error {
	payload, err := ParseWebhookPayload(body)
	if err != nil {
		return err
	}

	eventID := strings.TrimSpace(payload.Meta.WebhookID)
	if eventID == "" {
		sum := sha256.Sum256(body)
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	created, stored, err := s.repos.Subscription.CreateWebhookEventIfNotExists(&models.WebhookEvent{
		Vendor:         models.VendorLemonSqueezy,
		VendorEventID:  eventID,
		EventType:      payload.Meta.EventName,
		PayloadJSON:    string(body),
		SignatureValid: signatureValid,
	})
	if err != nil {
		return err
	}
	if !created && stored.ProcessedAt != nil {
		return nil
	}

	procErr := s.dispatch(ctx, payload)

	errMsg := ""
	if procErr != nil {
		errMsg = procErr.Error()
	}
	if markErr := s.repos.Subscription.MarkWebhookProcessed(stored.ID, errMsg); markErr != nil && procErr == nil {
		return markErr
	}
	return procErr
}

func (s *Service) dispatch(ctx context.Context, payload *WebhookPayload) error {
	switch payload.Meta.EventName {
	case EventOrderCreated:
		return s.handleOrderCreated(ctx, payload)
	case EventLicenseKeyCreated, EventLicenseKeyUpdated:
		return s.handleLicenseKeyEvent(ctx, payload)
	case EventSubscriptionCreated:
		return s.handleSubscriptionCreated(ctx, payload)
	case EventSubscriptionCancelled:
		return s.handleSubscriptionCancelled(ctx, payload)
	case EventSubscriptionPaymentOK:
		return s.handlePaymentSuccess(ctx, payload)
	case EventSubscriptionPaymentFail:
		return s.handlePaymentFailed(ctx, payload)
	case EventSubscriptionPaymentBack:
		return s.handlePaymentRecovered(ctx, payload)
	case EventSubscriptionPaused:
		return s.handlePaused(ctx, payload)
	case EventSubscriptionResumed:
		return s.handleResumed(ctx, payload)
	default:
		// Unknown events are acknowledged so the vendor stops retrying.
		return nil
	}
}

// handleOrderCreated processes one-off orders. Credit purchases carry
// is_credit_purchase in the checkout custom data.
func (s *Service) handleOrderCreated(ctx context.Context, payload *WebhookPayload) error {
	attrs := payload.Data.Attributes

	if payload.Meta.CustomData["is_credit_purchase"] == "true" {
		amount, err := strconv.ParseInt(payload.Meta.CustomData["credits"], 10, 64)
		if err != nil || amount <= 0 {
			return fmt.Errorf("invalid credit purchase amount: %q", payload.Meta.CustomData["credits"])
		}

		user, err := s.repos.User.GetByEmail(strings.ToLower(strings.TrimSpace(attrs.UserEmail)))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if _, err := s.credits.Grant(ctx, user.ID, amount, models.TransactionTypePurchased,
			fmt.Sprintf("Purchased %d credits", amount)); err != nil {
			return err
		}
		s.notify(ctx, fmt.Sprintf("%s purchased %d credits", attrs.UserName, amount))
		return nil
	}

	s.notify(ctx, fmt.Sprintf("New sale to %s for %.2f %s", attrs.UserName, float64(attrs.Total)/100, attrs.Currency))
	return nil
}

// handleLicenseKeyEvent activates or updates a main license key, creates the
// user on the fly, wires up seats and grants the plan's included credits on
// first creation.
func (s *Service) handleLicenseKeyEvent(ctx context.Context, payload *WebhookPayload) error {
	attrs := payload.Data.Attributes
	productID := attrs.ProductIDInt()

	tier, err := s.catalog.TierForProduct(productID)
	if err != nil {
		return fmt.Errorf("%w: %d", ErrInvalidProductID, productID)
	}

	isCreated := payload.Meta.EventName == EventLicenseKeyCreated
	active := isCreated || mapVendorStatus(attrs.Status)

	user, err := s.repos.User.UpsertByEmail(attrs.UserEmail, attrs.UserName)
	if err != nil {
		return err
	}

	// Tier changes on update reconcile the credit balance before the new
	// tier is written.
	if !isCreated {
		if existing, err := s.repos.License.GetByKey(attrs.Key); err == nil && existing.Tier != tier {
			if err := s.credits.AdjustForTierChange(ctx, user.ID, existing.Tier, tier); err != nil {
				return err
			}
		}
	}

	var license *models.LicenseKey
	if active {
		license, err = s.repos.License.UpsertActivate(attrs.Key, models.VendorLemonSqueezy, tier, &productID)
		if err != nil {
			return err
		}
		if _, err := s.licensing.EnsureSeats(ctx, license); err != nil {
			return err
		}
	} else {
		license, err = s.repos.License.GetByKey(attrs.Key)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return licensing.ErrLicenseNotFound
			}
			return err
		}
		if err := s.repos.License.Deactivate(license.ID); err != nil {
			return err
		}
		if err := s.repos.License.DeactivateSubLicenses(license.ID); err != nil {
			return err
		}
	}

	if err := s.repos.License.EnsureUserLink(user.ID, license.ID); err != nil {
		return err
	}

	if isCreated {
		allowance := entitlements.TierCredits(tier)
		if _, err := s.credits.Grant(ctx, user.ID, allowance, models.TransactionTypePurchased,
			fmt.Sprintf("Plan included credits: %d credits", allowance)); err != nil {
			return err
		}
		s.notify(ctx, fmt.Sprintf("License key created for %s (%s plan)", attrs.UserName, entitlements.TierName(tier)))
	}

	if err := s.repos.User.SetPaidStatus(user.ID, active); err != nil {
		return err
	}

	// Supersede the previous plan and record the new one.
	if active {
		now := nowFunc()
		if err := s.repos.Subscription.CancelActiveByUser(user.ID, now); err != nil {
			return err
		}

		plan := &models.Plan{
			Vendor:    models.VendorLemonSqueezy,
			ProductID: strconv.FormatInt(productID, 10),
			Tier:      tier,
			Duration:  models.PlanDurationLifetime,
			Name:      entitlements.TierName(tier),
			MaxUsers:  entitlements.TierMaxUsers(tier),
			IsActive:  true,
		}
		if err := s.repos.Subscription.UpsertPlan(plan); err != nil {
			return err
		}
		sub := &models.UserSubscription{
			UserID:       user.ID,
			PlanID:       plan.ID,
			LicenseKeyID: &license.ID,
			Status:       models.SubscriptionStatusActive,
		}
		if err := s.repos.Subscription.CreateSubscription(sub); err != nil {
			return err
		}
	}
	return nil
}

// handleSubscriptionCreated records a vendor subscription for a user whose
// license key already exists.
func (s *Service) handleSubscriptionCreated(ctx context.Context, payload *WebhookPayload) error {
	_ = ctx
	attrs := payload.Data.Attributes

	// Replays of the same subscription are a no-op.
	if _, err := s.repos.Subscription.GetSubscriptionByVendorSubID(payload.Data.ID); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	productID := attrs.ProductIDInt()
	tier, err := s.catalog.TierForProduct(productID)
	if err != nil {
		return fmt.Errorf("%w: %d", ErrInvalidProductID, productID)
	}

	user, err := s.repos.User.GetByEmail(strings.ToLower(strings.TrimSpace(attrs.UserEmail)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	license, err := s.repos.License.GetByProductIDForUser(productID, user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return licensing.ErrLicenseNotFound
		}
		return err
	}

	plan := &models.Plan{
		Vendor:    models.VendorLemonSqueezy,
		ProductID: strconv.FormatInt(productID, 10),
		Tier:      tier,
		Duration:  models.PlanDurationMonthly,
		Name:      entitlements.TierName(tier),
		MaxUsers:  entitlements.TierMaxUsers(tier),
		IsActive:  true,
	}
	if err := s.repos.Subscription.UpsertPlan(plan); err != nil {
		return err
	}

	vendorSubID := payload.Data.ID
	sub := &models.UserSubscription{
		UserID:          user.ID,
		PlanID:          plan.ID,
		LicenseKeyID:    &license.ID,
		VendorSubID:     &vendorSubID,
		OrderID:         attrs.OrderID.String(),
		CustomerID:      attrs.CustomerID.String(),
		Status:          models.SubscriptionStatusActive,
		NextBillingDate: attrs.RenewsAt,
	}
	return s.repos.Subscription.CreateSubscription(sub)
}

// handleSubscriptionCancelled marks the subscription cancelled and claws
// back the plan allowance when the user bails during the trial.
func (s *Service) handleSubscriptionCancelled(ctx context.Context, payload *WebhookPayload) error {
	sub, err := s.findSubscription(payload.Data.ID)
	if err != nil {
		return err
	}

	if err := s.clawBackTrialCredits(ctx, sub.UserID, payload.Data.Attributes); err != nil {
		return err
	}

	now := nowFunc()
	sub.Status = models.SubscriptionStatusCancelled
	sub.CancelledAt = &now
	if payload.Data.Attributes.EndsAt != nil {
		sub.EndDate = payload.Data.Attributes.EndsAt
	}
	return s.repos.Subscription.SaveSubscription(sub)
}

func (s *Service) handlePaymentSuccess(ctx context.Context, payload *WebhookPayload) error {
	_ = ctx
	sub, err := s.findSubscription(payload.Data.ID)
	if err != nil {
		return err
	}
	now := nowFunc()
	sub.Status = models.SubscriptionStatusActive
	sub.LastBillingDate = &now
	sub.NextBillingDate = payload.Data.Attributes.RenewsAt
	sub.PaymentFailedDate = nil
	return s.repos.Subscription.SaveSubscription(sub)
}

func (s *Service) handlePaymentFailed(ctx context.Context, payload *WebhookPayload) error {
	_ = ctx
	sub, err := s.findSubscription(payload.Data.ID)
	if err != nil {
		return err
	}
	now := nowFunc()
	sub.Status = models.SubscriptionStatusPaymentFailed
	sub.PaymentFailedDate = &now
	return s.repos.Subscription.SaveSubscription(sub)
}

func (s *Service) handlePaymentRecovered(ctx context.Context, payload *WebhookPayload) error {
	_ = ctx
	sub, err := s.findSubscription(payload.Data.ID)
	if err != nil {
		return err
	}
	now := nowFunc()
	sub.Status = models.SubscriptionStatusActive
	sub.LastBillingDate = &now
	sub.PaymentFailedDate = nil
	return s.repos.Subscription.SaveSubscription(sub)
}

func (s *Service) handlePaused(ctx context.Context, payload *WebhookPayload) error {
	_ = ctx
	sub, err := s.findSubscription(payload.Data.ID)
	if err != nil {
		return err
	}
	now := nowFunc()
	sub.Status = models.SubscriptionStatusPaused
	sub.PausedAt = &now
	return s.repos.Subscription.SaveSubscription(sub)
}

func (s *Service) handleResumed(ctx context.Context, payload *WebhookPayload) error {
	_ = ctx
	sub, err := s.findSubscription(payload.Data.ID)
	if err != nil {
		return err
	}
	now := nowFunc()
	sub.Status = models.SubscriptionStatusActive
	sub.ResumedAt = &now
	sub.PausedAt = nil
	return s.repos.Subscription.SaveSubscription(sub)
}

func (s *Service) findSubscription(vendorSubID string) (*models.UserSubscription, error) {
	sub, err := s.repos.Subscription.GetSubscriptionByVendorSubID(vendorSubID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSubscriptionNotFound, vendorSubID)
		}
		return nil, err
	}
	return sub, nil
}

// clawBackTrialCredits deducts the plan allowance when a subscription is
// cancelled while the trial is still running. Deduction clamps at zero and
// users without a credit row are skipped silently.
func (s *Service) clawBackTrialCredits(ctx context.Context, userID uint, attrs EventAttributes) error {
	if attrs.TrialEndsAt == nil || !attrs.TrialEndsAt.After(nowFunc()) {
		return nil
	}

	tier, err := s.catalog.TierForProduct(attrs.ProductIDInt())
	if err != nil {
		return nil
	}
	allowance := entitlements.TierCredits(tier)

	deducted, err := s.credits.Deduct(ctx, userID, allowance, models.TransactionTypePurchased,
		fmt.Sprintf("%d credits deducted due to trial plan cancellation", allowance))
	if err != nil {
		return err
	}
	if deducted > 0 {
		s.notify(ctx, fmt.Sprintf("Trial cancellation: deducted %d credits from user %d", deducted, userID))
	}
	return nil
}

// ExpireOverdue sweeps active subscriptions whose end date has passed,
// cancelling them and dropping the users' paid flag. Returns the number of
// subscriptions expired. Invoked by the daily cron route.
func (s *Service) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	_ = ctx
	subs, err := s.repos.Subscription.ListOverdue(now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range subs {
		sub := &subs[i]
		sub.Status = models.SubscriptionStatusCancelled
		sub.CancelledAt = &now
		if err := s.repos.Subscription.SaveSubscription(sub); err != nil {
			return expired, err
		}
		if err := s.repos.User.SetPaidStatus(sub.UserID, false); err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

func (s *Service) notify(ctx context.Context, message string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Send(ctx, message)
}

func mapVendorStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active":
		return true
	default:
		return false
	}
}
