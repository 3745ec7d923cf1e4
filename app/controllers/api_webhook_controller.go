package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/database"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/env"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/subscriptions"
)

const webhookProcessingTimeout = 15 * time.Second

// HandleLemonSqueezyWebhook verifies the X-Signature header and hands the
// raw payload to the subscription state machine. Invalid signatures are
// rejected before any processing happens.
func HandleLemonSqueezyWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("X-Signature"))
	secret := env.GetEnv("LEMON_SQUEEZY_WEBHOOK_SECRET", "")

	if !subscriptions.VerifyWebhookSignature(rawBody, signature, secret) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	svc := subscriptions.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), webhookProcessingTimeout)
	defer cancel()

	if err := svc.HandleWebhook(ctx, rawBody, true); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
