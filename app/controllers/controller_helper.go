package controllers

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/credits"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/env"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/licensing"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/subscriptions"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/usage"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/workshop"
)

// serviceError maps the service-layer sentinel errors to HTTP responses.
// Unexpected errors become a generic 500; the detail only leaks in dev.
func serviceError(c *fiber.Ctx, err error) error {
	type mapping struct {
		target error
		status int
		code   string
	}
	mappings := []mapping{
		{licensing.ErrLicenseNotFound, fiber.StatusNotFound, "license_not_found"},
		{licensing.ErrCodeNotFound, fiber.StatusNotFound, "code_not_found"},
		{licensing.ErrLicenseInactive, fiber.StatusForbidden, "license_inactive"},
		{licensing.ErrNotLicenseOwner, fiber.StatusForbidden, "not_license_owner"},
		{licensing.ErrAlreadyClaimed, fiber.StatusConflict, "already_claimed"},
		{licensing.ErrKeyAlreadyActivated, fiber.StatusConflict, "key_already_activated"},
		{licensing.ErrSeatLimitReached, fiber.StatusConflict, "seat_limit_reached"},
		{licensing.ErrTransactionTimeout, fiber.StatusServiceUnavailable, "transaction_timeout"},
		{credits.ErrInsufficientCredits, fiber.StatusPaymentRequired, "insufficient_credits"},
		{subscriptions.ErrInvalidProductID, fiber.StatusBadRequest, "invalid_product_id"},
		{subscriptions.ErrSubscriptionNotFound, fiber.StatusNotFound, "subscription_not_found"},
		{subscriptions.ErrUserNotFound, fiber.StatusNotFound, "user_not_found"},
		{workshop.ErrWorkshopNotFound, fiber.StatusNotFound, "workshop_not_found"},
		{workshop.ErrGroupNotFound, fiber.StatusNotFound, "group_not_found"},
		{workshop.ErrInvalidAccessCode, fiber.StatusForbidden, "invalid_access_code"},
		{workshop.ErrGroupFull, fiber.StatusBadRequest, "group_full"},
		{workshop.ErrAllGroupsFull, fiber.StatusBadRequest, "all_groups_full"},
		{workshop.ErrDuplicateName, fiber.StatusBadRequest, "duplicate_name"},
		{workshop.ErrAssignmentRequired, fiber.StatusForbidden, "assignment_required"},
		{usage.ErrLicenseNotFound, fiber.StatusNotFound, "license_not_found"},
		{usage.ErrSeatNotFound, fiber.StatusNotFound, "sub_license_not_found"},
		{usage.ErrInvalidRange, fiber.StatusBadRequest, "invalid_range"},
	}
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return c.Status(m.status).JSON(fiber.Map{"error": m.code, "message": m.target.Error()})
		}
	}

	log.Printf("unexpected service error on %s %s: %v", c.Method(), c.Path(), err)
	message := "Internal server error"
	if env.IsDev() {
		message = err.Error()
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": message})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": message})
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// GetClientIP determines the actual client IP address considering proxies.
func GetClientIP(c *fiber.Ctx) string {
	if cfIP := strings.TrimSpace(c.Get("CF-Connecting-IP")); cfIP != "" {
		return cfIP
	}
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	return c.IP()
}
