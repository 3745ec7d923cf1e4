package subscriptions

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Webhook event names sent by LemonSqueezy.
const (
	EventOrderCreated            = "order_created"
	EventLicenseKeyCreated       = "license_key_created"
	EventLicenseKeyUpdated       = "license_key_updated"
	EventSubscriptionCreated     = "subscription_created"
	EventSubscriptionCancelled   = "subscription_cancelled"
	EventSubscriptionPaymentOK   = "subscription_payment_success"
	EventSubscriptionPaymentFail = "subscription_payment_failed"
	EventSubscriptionPaymentBack = "subscription_payment_recovered"
	EventSubscriptionPaused      = "subscription_paused"
	EventSubscriptionResumed     = "subscription_resumed"
)

var validate = validator.New()

// WebhookPayload is the outer envelope of every LemonSqueezy webhook.
type WebhookPayload struct {
	Meta WebhookMeta `json:"meta" validate:"required"`
	Data WebhookData `json:"data" validate:"required"`
}

// WebhookMeta carries the event name, delivery id and checkout custom data.
type WebhookMeta struct {
	EventName  string            `json:"event_name" validate:"required"`
	WebhookID  string            `json:"webhook_id"`
	CustomData map[string]string `json:"custom_data"`
}

// WebhookData is the event object with its vendor id and attributes.
type WebhookData struct {
	ID         string          `json:"id" validate:"required"`
	Type       string          `json:"type"`
	Attributes EventAttributes `json:"attributes"`
}

// EventAttributes is the union of the attribute fields the handlers read.
// LemonSqueezy sends numbers and strings inconsistently across event types,
// so ids use json.Number.
type EventAttributes struct {
	UserName        string      `json:"user_name"`
	UserEmail       string      `json:"user_email"`
	Key             string      `json:"key"`
	Status          string      `json:"status"`
	ProductID       json.Number `json:"product_id"`
	OrderID         json.Number `json:"order_id"`
	CustomerID      json.Number `json:"customer_id"`
	ActivationLimit int         `json:"activation_limit"`
	InstancesCount  int         `json:"instances_count"`
	Total           int64       `json:"total"`
	Currency        string      `json:"currency"`
	RenewsAt        *time.Time  `json:"renews_at"`
	EndsAt          *time.Time  `json:"ends_at"`
	TrialEndsAt     *time.Time  `json:"trial_ends_at"`
	CreatedAt       *time.Time  `json:"created_at"`
}

// ParseWebhookPayload decodes and validates a raw webhook body.
func ParseWebhookPayload(body []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}
	if err := validate.Struct(&payload); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}
	return &payload, nil
}

// ProductIDInt returns the product id as an integer, 0 when absent.
func (a EventAttributes) ProductIDInt() int64 {
	id, err := a.ProductID.Int64()
	if err != nil {
		return 0
	}
	return id
}
