package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/env"
	icuser "github.com/SocialOwlHQ/SocialOwl/internal/pkg/usercontext"
)

// RequireAPISessionAuth ensures a logged-in session for API routes and returns JSON 401 instead of redirect.
func RequireAPISessionAuth(c *fiber.Ctx) error {
	if !isSessionLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}

// RequireAPIAdmin ensures a logged-in admin session for API routes.
func RequireAPIAdmin(c *fiber.Ctx) error {
	if !isSessionLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	if isAdmin, ok := c.Locals(icuser.KeyIsAdmin).(bool); !ok || !isAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "forbidden",
			"message": "admin access required",
		})
	}
	return c.Next()
}

// RequireCronSecret guards scheduled-maintenance routes with a bearer secret.
// With CRON_SECRET unset every request is rejected.
func RequireCronSecret(c *fiber.Ctx) error {
	secret := env.GetEnv("CRON_SECRET", "")
	auth := strings.TrimSpace(c.Get("Authorization"))
	token := ""
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		token = strings.TrimSpace(auth[7:])
	}
	if secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "invalid cron secret",
		})
	}
	return c.Next()
}

func isSessionLoggedIn(c *fiber.Ctx) bool {
	if b, ok := c.Locals(icuser.KeyFromProtected).(bool); ok {
		return b
	}
	return false
}
