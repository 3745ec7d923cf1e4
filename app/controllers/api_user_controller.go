package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"github.com/SocialOwlHQ/SocialOwl/app/repository"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/credits"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/database"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/usercontext"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/utils"
)

// HandleGetUserAccount returns account information for the authenticated user (API key or session).
func HandleGetUserAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	account, err := repo.GetByID(userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "User not found"})
		}
		return serviceError(c, err)
	}

	db := database.GetDB()
	if db == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Database unavailable"})
	}
	settings, err := models.GetOrCreateUserSettings(db, userCtx.UserID)
	if err != nil {
		return serviceError(c, err)
	}

	balance, err := credits.NewService(repository.GetGlobalRepositories().Credit).Balance(c.Context(), userCtx.UserID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"id":                   account.ID,
		"username":             account.Name,
		"email":                account.Email,
		"avatar_url":           utils.GetGravatarURL(account.Email, 200),
		"status":               account.Status,
		"plan":                 settings.Plan,
		"is_admin":             account.Role == models.ROLE_ADMIN,
		"is_paid_user":         account.IsPaidUser,
		"credit_balance":       balance,
		"created_at":           account.CreatedAt.UTC().Format(time.RFC3339),
		"last_login_at":        formatTimePtr(account.LastLoginAt),
		"api_key_prefix":       settings.APIKeyPrefix,
		"api_key_last_used_at": formatTimePtr(settings.APIKeyLastUsedAt),
	})
}

// HandleIssueAPIKey generates a fresh API key for the session user. The raw
// secret is returned exactly once; only its hash is stored.
func HandleIssueAPIKey(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	db := database.GetDB()

	settings, err := models.GetOrCreateUserSettings(db, userCtx.UserID)
	if err != nil {
		return serviceError(c, err)
	}

	rawKey, err := settings.IssueAPIKey()
	if err != nil {
		return serviceError(c, err)
	}
	if err := db.Save(settings).Error; err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"api_key":        rawKey,
		"api_key_prefix": settings.APIKeyPrefix,
		"created_at":     formatTimePtr(settings.APIKeyCreatedAt),
	})
}

// HandleRevokeAPIKey invalidates the current API key without deleting the
// settings row.
func HandleRevokeAPIKey(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	db := database.GetDB()

	settings, err := models.GetOrCreateUserSettings(db, userCtx.UserID)
	if err != nil {
		return serviceError(c, err)
	}
	if !settings.HasActiveAPIKey() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "No active API key"})
	}

	settings.RevokeAPIKey()
	if err := db.Save(settings).Error; err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}
