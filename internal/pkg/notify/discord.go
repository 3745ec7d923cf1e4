package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/env"
)

const webhookTimeout = 5 * time.Second

// DiscordNotifier posts plain-text messages to a Discord webhook. Delivery
// is best effort: failures are logged, never returned to the caller, so a
// Discord outage cannot fail webhook processing or redemption.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordNotifier reads the webhook URL from the given environment
// variable (DISCORD_WEBHOOK or TEAM_DISCORD_WEBHOOK). An empty URL yields a
// notifier that silently drops every message.
func NewDiscordNotifier(envKey string) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: env.GetEnv(envKey, ""),
		client:     &http.Client{Timeout: webhookTimeout},
	}
}

// Send posts the message as the webhook content payload.
func (n *DiscordNotifier) Send(ctx context.Context, message string) {
	if n == nil || n.webhookURL == "" || message == "" {
		return
	}

	payload, err := json.Marshal(map[string]string{"content": message})
	if err != nil {
		log.Printf("[Notify] failed to encode Discord payload: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		log.Printf("[Notify] failed to build Discord request: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		log.Printf("[Notify] Discord webhook request failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[Notify] Discord webhook returned status %d", resp.StatusCode)
	}
}
