package subscriptions

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"meta":{"event_name":"order_created"}}`)
	secret := "top-secret"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	validSig := hex.EncodeToString(mac.Sum(nil))

	if !VerifyWebhookSignature(payload, validSig, secret) {
		t.Fatalf("expected signature to validate")
	}
	if !VerifyWebhookSignature(payload, "sha256="+validSig, secret) {
		t.Fatalf("expected prefixed signature to validate")
	}
	if VerifyWebhookSignature(payload, "deadbeef", secret) {
		t.Fatalf("expected invalid signature to fail")
	}
	if VerifyWebhookSignature(payload, validSig, "wrong-secret") {
		t.Fatalf("expected wrong secret to fail")
	}
	if VerifyWebhookSignature(payload, "", secret) {
		t.Fatalf("expected empty signature to fail")
	}
	if VerifyWebhookSignature(payload, validSig, "") {
		t.Fatalf("expected empty secret to fail")
	}
}

func TestCatalog_TierForProduct(t *testing.T) {
	catalog := NewCatalog([]int64{1}, []int64{2}, []int64{3}, []int64{4})

	tests := []struct {
		productID int64
		wantTier  int
		wantErr   bool
	}{
		{1, 4, false},
		{2, 3, false},
		{3, 2, false},
		{4, 1, false},
		{99, 0, true},
	}
	for _, tt := range tests {
		tier, err := catalog.TierForProduct(tt.productID)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("TierForProduct(%d): expected error", tt.productID)
			}
			continue
		}
		if err != nil {
			t.Fatalf("TierForProduct(%d): %v", tt.productID, err)
		}
		if tier != tt.wantTier {
			t.Fatalf("TierForProduct(%d) = %d, want %d", tt.productID, tier, tt.wantTier)
		}
	}
}

func TestParseWebhookPayload(t *testing.T) {
	body := []byte(`{
		"meta": {"event_name": "subscription_created", "webhook_id": "wh-1"},
		"data": {"id": "sub-1", "attributes": {"product_id": 363062, "order_id": "42"}}
	}`)

	payload, err := ParseWebhookPayload(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Meta.EventName != EventSubscriptionCreated {
		t.Fatalf("unexpected event name %q", payload.Meta.EventName)
	}
	if payload.Data.Attributes.ProductIDInt() != 363062 {
		t.Fatalf("unexpected product id %d", payload.Data.Attributes.ProductIDInt())
	}
	// order_id arrives as string or number depending on the event type.
	if payload.Data.Attributes.OrderID.String() != "42" {
		t.Fatalf("unexpected order id %q", payload.Data.Attributes.OrderID.String())
	}
}

func TestParseWebhookPayload_MissingEventName(t *testing.T) {
	if _, err := ParseWebhookPayload([]byte(`{"meta": {}, "data": {"id": "x"}}`)); err == nil {
		t.Fatalf("expected validation error for missing event name")
	}
}

func TestParseWebhookPayload_Garbage(t *testing.T) {
	if _, err := ParseWebhookPayload([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}
