package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"github.com/SocialOwlHQ/SocialOwl/app/repository"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/credits"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/licensing"
)

type testEnv struct {
	svc        *Service
	users      *fakeUserRepo
	licenses   *fakeLicenseRepo
	subs       *fakeSubscriptionRepo
	creditRepo *fakeCreditRepo
	creditSvc  *credits.Service
}

func newTestEnv() *testEnv {
	users := newFakeUserRepo()
	licenses := newFakeLicenseRepo()
	subs := newFakeSubscriptionRepo()
	creditRepo := newFakeCreditRepo()

	repos := &repository.Repositories{
		User:         users,
		License:      licenses,
		Subscription: subs,
		Credit:       creditRepo,
	}
	creditSvc := credits.NewService(creditRepo)
	catalog := NewCatalog(
		[]int64{363041, 363064},
		[]int64{363063, 321751},
		[]int64{363062, 363040},
		[]int64{328561, 285937},
	)

	return &testEnv{
		svc:        NewService(repos, creditSvc, licensing.NewService(nil, repos), catalog, nil),
		users:      users,
		licenses:   licenses,
		subs:       subs,
		creditRepo: creditRepo,
		creditSvc:  creditSvc,
	}
}

func licenseKeyCreatedBody(webhookID, key string, productID int64) []byte {
	return []byte(fmt.Sprintf(`{
		"meta": {"event_name": "license_key_created", "webhook_id": %q},
		"data": {
			"id": "lk-1",
			"type": "license-keys",
			"attributes": {
				"user_name": "Jane Doe",
				"user_email": "jane@example.com",
				"key": %q,
				"status": "active",
				"product_id": %d
			}
		}
	}`, webhookID, key, productID))
}

func TestHandleWebhook_LicenseKeyCreated_IndividualPlan(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	err := env.svc.HandleWebhook(ctx, licenseKeyCreatedBody("wh-1", "LEMON-KEY-1", 328561), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, err := env.users.GetByEmail("jane@example.com")
	if err != nil {
		t.Fatalf("expected user to be created: %v", err)
	}
	if !user.IsPaidUser {
		t.Fatalf("expected user to be flagged paid")
	}

	license, err := env.licenses.GetByKey("LEMON-KEY-1")
	if err != nil {
		t.Fatalf("expected license key to exist: %v", err)
	}
	if !license.IsActive || license.Tier != models.PlanTierT1 {
		t.Fatalf("unexpected license state: active=%v tier=%d", license.IsActive, license.Tier)
	}

	// Individual plan: exactly 100 credits in exactly one transaction and
	// no sub-license seats.
	balance, _ := env.creditSvc.Balance(ctx, user.ID)
	if balance != 100 {
		t.Fatalf("expected balance 100, got %d", balance)
	}
	history, _ := env.creditSvc.History(ctx, user.ID, 0, 10)
	if len(history) != 1 {
		t.Fatalf("expected 1 credit transaction, got %d", len(history))
	}
	seats, _ := env.licenses.CountSubLicenses(license.ID)
	if seats != 0 {
		t.Fatalf("expected no seats for individual plan, got %d", seats)
	}

	// A lifetime plan and an active subscription were recorded.
	sub := env.singleSubscription(t)
	if sub.Status != models.SubscriptionStatusActive {
		t.Fatalf("expected active subscription, got %s", sub.Status)
	}
	plan, _ := env.subs.GetPlanByID(sub.PlanID)
	if plan.Duration != models.PlanDurationLifetime || plan.Tier != models.PlanTierT1 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
}

func TestHandleWebhook_LicenseKeyCreated_TeamPlanSeats(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	err := env.svc.HandleWebhook(ctx, licenseKeyCreatedBody("wh-1", "LEMON-TEAM-1", 363062), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	user, _ := env.users.GetByEmail("jane@example.com")
	balance, _ := env.creditSvc.Balance(ctx, user.ID)
	if balance != 500 {
		t.Fatalf("expected balance 500, got %d", balance)
	}

	license, _ := env.licenses.GetByKey("LEMON-TEAM-1")
	seats, _ := env.licenses.CountSubLicenses(license.ID)
	if seats != 5 {
		t.Fatalf("expected 5 seats for team plan, got %d", seats)
	}
}

func TestHandleWebhook_ReplayedDeliveryProcessesOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	body := licenseKeyCreatedBody("wh-1", "LEMON-KEY-1", 328561)

	if err := env.svc.HandleWebhook(ctx, body, true); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := env.svc.HandleWebhook(ctx, body, true); err != nil {
		t.Fatalf("replayed delivery: %v", err)
	}

	user, _ := env.users.GetByEmail("jane@example.com")
	balance, _ := env.creditSvc.Balance(ctx, user.ID)
	if balance != 100 {
		t.Fatalf("replay must not grant credits twice, balance %d", balance)
	}
}

func TestHandleWebhook_InvalidProductID(t *testing.T) {
	env := newTestEnv()

	err := env.svc.HandleWebhook(context.Background(), licenseKeyCreatedBody("wh-1", "LEMON-KEY-1", 999999), true)
	if !errors.Is(err, ErrInvalidProductID) {
		t.Fatalf("expected ErrInvalidProductID, got %v", err)
	}
}

func TestHandleWebhook_OrderCreated_CreditPurchase(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user, _ := env.users.UpsertByEmail("jane@example.com", "Jane")

	body := []byte(`{
		"meta": {
			"event_name": "order_created",
			"webhook_id": "wh-2",
			"custom_data": {"is_credit_purchase": "true", "credits": "250"}
		},
		"data": {
			"id": "order-1",
			"attributes": {"user_name": "Jane", "user_email": "jane@example.com", "total": 2500, "currency": "USD"}
		}
	}`)
	if err := env.svc.HandleWebhook(ctx, body, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	balance, _ := env.creditSvc.Balance(ctx, user.ID)
	if balance != 250 {
		t.Fatalf("expected balance 250, got %d", balance)
	}
	history, _ := env.creditSvc.History(ctx, user.ID, 0, 10)
	if len(history) != 1 || history[0].Type != models.TransactionTypePurchased {
		t.Fatalf("expected one PURCHASED transaction, got %+v", history)
	}
}

func subscriptionEventBody(event, webhookID, subID string, extraAttrs string) []byte {
	attrs := `"user_email": "jane@example.com", "product_id": 363062`
	if extraAttrs != "" {
		attrs += ", " + extraAttrs
	}
	return []byte(fmt.Sprintf(`{
		"meta": {"event_name": %q, "webhook_id": %q},
		"data": {"id": %q, "attributes": {%s}}
	}`, event, webhookID, subID, attrs))
}

// seedSubscription creates a user, an active team license linked to them and
// an active vendor subscription.
func (e *testEnv) seedSubscription(t *testing.T, vendorSubID string) (*models.User, *models.UserSubscription) {
	t.Helper()
	user, _ := e.users.UpsertByEmail("jane@example.com", "Jane")
	productID := int64(363062)
	license, _ := e.licenses.UpsertActivate("LEMON-TEAM-1", models.VendorLemonSqueezy, models.PlanTierT2, &productID)
	_ = e.licenses.EnsureUserLink(user.ID, license.ID)

	plan := &models.Plan{Vendor: models.VendorLemonSqueezy, ProductID: "363062", Tier: models.PlanTierT2, Duration: models.PlanDurationMonthly, MaxUsers: 5, IsActive: true}
	_ = e.subs.UpsertPlan(plan)
	sub := &models.UserSubscription{
		UserID: user.ID, PlanID: plan.ID, LicenseKeyID: &license.ID,
		VendorSubID: &vendorSubID, Status: models.SubscriptionStatusActive,
	}
	_ = e.subs.CreateSubscription(sub)
	return user, sub
}

func (e *testEnv) singleSubscription(t *testing.T) *models.UserSubscription {
	t.Helper()
	if len(e.subs.subs) != 1 {
		t.Fatalf("expected exactly one subscription, got %d", len(e.subs.subs))
	}
	for _, sub := range e.subs.subs {
		return sub
	}
	return nil
}

func TestHandleWebhook_SubscriptionCreated(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user, _ := env.users.UpsertByEmail("jane@example.com", "Jane")
	productID := int64(363062)
	license, _ := env.licenses.UpsertActivate("LEMON-TEAM-1", models.VendorLemonSqueezy, models.PlanTierT2, &productID)
	_ = env.licenses.EnsureUserLink(user.ID, license.ID)

	renews := time.Now().Add(30 * 24 * time.Hour).UTC().Format(time.RFC3339)
	body := subscriptionEventBody(EventSubscriptionCreated, "wh-3", "sub-1",
		fmt.Sprintf(`"order_id": 42, "customer_id": 7, "renews_at": %q`, renews))
	if err := env.svc.HandleWebhook(ctx, body, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sub, err := env.subs.GetSubscriptionByVendorSubID("sub-1")
	if err != nil {
		t.Fatalf("expected subscription: %v", err)
	}
	if sub.Status != models.SubscriptionStatusActive || sub.NextBillingDate == nil {
		t.Fatalf("unexpected subscription state: %+v", sub)
	}
	if sub.OrderID != "42" || sub.CustomerID != "7" {
		t.Fatalf("order/customer ids not recorded: %+v", sub)
	}
}

func TestHandleWebhook_SubscriptionCancelled_TrialClawback(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user, _ := env.seedSubscription(t, "sub-1")
	if _, err := env.creditSvc.Grant(ctx, user.ID, 500, models.TransactionTypePlanCredits, "plan"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	// Part of the allowance is already spent; clawback must clamp.
	if _, err := env.creditSvc.Spend(ctx, user.ID, 200, "spent"); err != nil {
		t.Fatalf("spend: %v", err)
	}

	trialEnds := time.Now().Add(7 * 24 * time.Hour).UTC().Format(time.RFC3339)
	body := subscriptionEventBody(EventSubscriptionCancelled, "wh-4", "sub-1",
		fmt.Sprintf(`"trial_ends_at": %q`, trialEnds))
	if err := env.svc.HandleWebhook(ctx, body, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	balance, _ := env.creditSvc.Balance(ctx, user.ID)
	if balance != 0 {
		t.Fatalf("expected clawback to clamp balance at 0, got %d", balance)
	}

	sub, _ := env.subs.GetSubscriptionByVendorSubID("sub-1")
	if sub.Status != models.SubscriptionStatusCancelled || sub.CancelledAt == nil {
		t.Fatalf("expected cancelled subscription, got %+v", sub)
	}
}

func TestHandleWebhook_SubscriptionCancelled_NoTrialNoClawback(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user, _ := env.seedSubscription(t, "sub-1")
	if _, err := env.creditSvc.Grant(ctx, user.ID, 500, models.TransactionTypePlanCredits, "plan"); err != nil {
		t.Fatalf("grant: %v", err)
	}

	body := subscriptionEventBody(EventSubscriptionCancelled, "wh-4", "sub-1", "")
	if err := env.svc.HandleWebhook(ctx, body, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	balance, _ := env.creditSvc.Balance(ctx, user.ID)
	if balance != 500 {
		t.Fatalf("expected balance untouched at 500, got %d", balance)
	}
}

func TestHandleWebhook_SubscriptionCancelled_NoCreditRowIsNoOp(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seedSubscription(t, "sub-1")

	trialEnds := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
	body := subscriptionEventBody(EventSubscriptionCancelled, "wh-4", "sub-1",
		fmt.Sprintf(`"trial_ends_at": %q`, trialEnds))
	if err := env.svc.HandleWebhook(ctx, body, true); err != nil {
		t.Fatalf("clawback without credit row must not fail: %v", err)
	}
}

func TestHandleWebhook_PaymentLifecycle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seedSubscription(t, "sub-1")

	failBody := subscriptionEventBody(EventSubscriptionPaymentFail, "wh-5", "sub-1", "")
	if err := env.svc.HandleWebhook(ctx, failBody, true); err != nil {
		t.Fatalf("payment failed event: %v", err)
	}
	sub, _ := env.subs.GetSubscriptionByVendorSubID("sub-1")
	if sub.Status != models.SubscriptionStatusPaymentFailed || sub.PaymentFailedDate == nil {
		t.Fatalf("expected PAYMENT_FAILED state, got %+v", sub)
	}

	renews := time.Now().Add(30 * 24 * time.Hour).UTC().Format(time.RFC3339)
	okBody := subscriptionEventBody(EventSubscriptionPaymentOK, "wh-6", "sub-1",
		fmt.Sprintf(`"renews_at": %q`, renews))
	if err := env.svc.HandleWebhook(ctx, okBody, true); err != nil {
		t.Fatalf("payment success event: %v", err)
	}
	sub, _ = env.subs.GetSubscriptionByVendorSubID("sub-1")
	if sub.Status != models.SubscriptionStatusActive {
		t.Fatalf("expected ACTIVE after payment success, got %s", sub.Status)
	}
	if sub.PaymentFailedDate != nil {
		t.Fatalf("expected payment failed date to be cleared")
	}
	if sub.LastBillingDate == nil || sub.NextBillingDate == nil {
		t.Fatalf("expected billing dates to be set")
	}
}

func TestHandleWebhook_PauseAndResume(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.seedSubscription(t, "sub-1")

	if err := env.svc.HandleWebhook(ctx, subscriptionEventBody(EventSubscriptionPaused, "wh-7", "sub-1", ""), true); err != nil {
		t.Fatalf("pause event: %v", err)
	}
	sub, _ := env.subs.GetSubscriptionByVendorSubID("sub-1")
	if sub.Status != models.SubscriptionStatusPaused || sub.PausedAt == nil {
		t.Fatalf("expected PAUSED state, got %+v", sub)
	}

	if err := env.svc.HandleWebhook(ctx, subscriptionEventBody(EventSubscriptionResumed, "wh-8", "sub-1", ""), true); err != nil {
		t.Fatalf("resume event: %v", err)
	}
	sub, _ = env.subs.GetSubscriptionByVendorSubID("sub-1")
	if sub.Status != models.SubscriptionStatusActive || sub.ResumedAt == nil || sub.PausedAt != nil {
		t.Fatalf("expected resumed ACTIVE state, got %+v", sub)
	}
}

func TestHandleWebhook_UnknownSubscription(t *testing.T) {
	env := newTestEnv()

	err := env.svc.HandleWebhook(context.Background(),
		subscriptionEventBody(EventSubscriptionPaymentOK, "wh-9", "missing", ""), true)
	if !errors.Is(err, ErrSubscriptionNotFound) {
		t.Fatalf("expected ErrSubscriptionNotFound, got %v", err)
	}
}

func TestHandleWebhook_FailedDeliveryIsReprocessedOnRetry(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// First delivery fails because the subscription is unknown yet.
	body := subscriptionEventBody(EventSubscriptionPaymentOK, "wh-retry", "sub-1", "")
	if err := env.svc.HandleWebhook(ctx, body, true); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Fatalf("expected ErrSubscriptionNotFound on first delivery, got %v", err)
	}

	env.seedSubscription(t, "sub-1")

	// The vendor retries with the same webhook id; the failed event must be
	// processed again, not swallowed by the dedup guard.
	if err := env.svc.HandleWebhook(ctx, body, true); err != nil {
		t.Fatalf("retried delivery: %v", err)
	}
	sub, _ := env.subs.GetSubscriptionByVendorSubID("sub-1")
	if sub.Status != models.SubscriptionStatusActive || sub.LastBillingDate == nil {
		t.Fatalf("expected retry to activate billing, got status=%s lastBilling=%v", sub.Status, sub.LastBillingDate)
	}
}

func TestExpireOverdue(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user, sub := env.seedSubscription(t, "sub-1")
	_ = env.users.SetPaidStatus(user.ID, true)

	past := time.Now().Add(-24 * time.Hour)
	sub.EndDate = &past
	_ = env.subs.SaveSubscription(sub)

	expired, err := env.svc.ExpireOverdue(ctx, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired subscription, got %d", expired)
	}

	updated, _ := env.users.GetByID(user.ID)
	if updated.IsPaidUser {
		t.Fatalf("expected user paid flag to be dropped")
	}
}

func TestExpireOverdue_LifetimeNeverExpires(t *testing.T) {
	env := newTestEnv()
	env.seedSubscription(t, "sub-1") // no end date

	expired, err := env.svc.ExpireOverdue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expired != 0 {
		t.Fatalf("expected no expirations, got %d", expired)
	}
}
