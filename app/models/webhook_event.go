package models

import "time"

// WebhookEvent stores vendor webhook payloads with deduplication metadata for
// idempotent processing. The (vendor, vendor event id) pair is unique; a
// replayed delivery is detected by the insert conflicting instead of creating
// a second row.
type WebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Vendor          string     `gorm:"type:varchar(32);not null;index:ux_webhook_events_vendor_event,unique,priority:1;index" json:"vendor"`
	VendorEventID   string     `gorm:"type:varchar(191);not null;default:'';index:ux_webhook_events_vendor_event,unique,priority:2" json:"vendor_event_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	SignatureValid  bool       `gorm:"default:false;index" json:"signature_valid"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
