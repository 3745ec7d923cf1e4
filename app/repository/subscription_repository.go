package repository

import (
	"time"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// subscriptionRepository implements the SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// UpsertPlan creates or refreshes a plan catalog entry keyed by
// (vendor, product id)
func (r *subscriptionRepository) UpsertPlan(plan *models.Plan) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "vendor"},
			{Name: "product_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"tier",
			"duration",
			"name",
			"max_users",
			"is_active",
			"updated_at",
		}),
	}).Create(plan).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("vendor = ? AND product_id = ?", plan.Vendor, plan.ProductID).
		First(plan).Error
}

// GetPlanByID retrieves a plan by its ID
func (r *subscriptionRepository) GetPlanByID(id uint) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.First(&plan, id).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetSubscriptionByVendorSubID retrieves a subscription by the vendor's
// subscription id, with the plan preloaded
func (r *subscriptionRepository) GetSubscriptionByVendorSubID(vendorSubID string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := r.db.Preload("Plan").Where("vendor_sub_id = ?", vendorSubID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscription stores a new subscription
func (r *subscriptionRepository) CreateSubscription(sub *models.UserSubscription) error {
	return r.db.Create(sub).Error
}

// SaveSubscription persists changes to an existing subscription
func (r *subscriptionRepository) SaveSubscription(sub *models.UserSubscription) error {
	return r.db.Save(sub).Error
}

// CancelActiveByUser marks all active subscriptions of a user as cancelled
// with the given end date
func (r *subscriptionRepository) CancelActiveByUser(userID uint, endDate time.Time) error {
	now := time.Now()
	return r.db.Model(&models.UserSubscription{}).
		Where("user_id = ? AND status = ?", userID, models.SubscriptionStatusActive).
		Updates(map[string]interface{}{
			"status":       models.SubscriptionStatusCancelled,
			"end_date":     &endDate,
			"cancelled_at": &now,
		}).Error
}

// ListOverdue returns active subscriptions whose paid period has fully run
// out, with their plans preloaded. Lifetime subscriptions carry no end date
// and are never returned.
func (r *subscriptionRepository) ListOverdue(now time.Time) ([]models.UserSubscription, error) {
	var subs []models.UserSubscription
	err := r.db.Preload("Plan").
		Where("status = ? AND end_date IS NOT NULL AND end_date < ?", models.SubscriptionStatusActive, now).
		Find(&subs).Error
	return subs, err
}

// CreateWebhookEventIfNotExists stores a webhook event keyed by
// (vendor, vendor event id). Returns created=false when the event was seen
// before, plus the stored row either way.
func (r *subscriptionRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "vendor"},
			{Name: "vendor_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("vendor = ? AND vendor_event_id = ?", event.Vendor, event.VendorEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

// MarkWebhookProcessed stamps the event as processed. A failed event keeps
// processed_at nil so the vendor's retry delivery gets processed again;
// only the error message is recorded.
func (r *subscriptionRepository) MarkWebhookProcessed(id uint, processingError string) error {
	updates := map[string]interface{}{
		"processing_error": processingError,
	}
	if processingError == "" {
		now := time.Now()
		updates["processed_at"] = &now
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
