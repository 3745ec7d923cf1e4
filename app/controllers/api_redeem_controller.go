package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/database"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/licensing"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/usercontext"
)

type redeemRequest struct {
	RedeemCode string `json:"redeem_code"`
}

// HandleRedeemCode claims a redeem code for the logged-in user and returns
// the resulting entitlement.
func HandleRedeemCode(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "login required"})
	}

	var req redeemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.RedeemCode == "" {
		return badRequest(c, "redeem_code is required")
	}

	svc := licensing.NewServiceFromDB(database.GetDB())
	result, err := svc.Redeem(c.Context(), req.RedeemCode, userCtx.UserID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"entitlement":     result.Entitlement,
		"credits_granted": result.CreditsGranted,
		"seats_created":   result.SeatsCreated,
	})
}
