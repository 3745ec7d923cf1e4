package controllers

import (
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/database"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/licensing"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/mail"
)

type appSumoActivateRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	LicenseKey string `json:"license_key"`
	Tier       int    `json:"tier"`
}

// HandleAppSumoActivate activates an AppSumo license key from the marketplace
// redeem form. The endpoint is unauthenticated; buyers usually have no
// account yet, so one is created from the submitted email.
func HandleAppSumoActivate(c *fiber.Ctx) error {
	var req appSumoActivateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.LicenseKey) == "" {
		return badRequest(c, "license_key is required")
	}
	if strings.TrimSpace(req.Email) == "" || !strings.Contains(req.Email, "@") {
		return badRequest(c, "a valid email is required")
	}

	svc := licensing.NewServiceFromDB(database.GetDB())
	result, err := svc.ActivateAppSumo(c.Context(), licensing.AppSumoActivation{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		LicenseKey: req.LicenseKey,
		Tier:       req.Tier,
	})
	if err != nil {
		return serviceError(c, err)
	}

	// Welcome mail is best effort; the activation already succeeded.
	go sendAppSumoWelcomeMail(result.Email, result.Entitlement.Key)

	return c.JSON(fiber.Map{
		"entitlement":     result.Entitlement,
		"user_id":         result.UserID,
		"credits_granted": result.CreditsGranted,
		"seats_created":   result.SeatsCreated,
	})
}

func sendAppSumoWelcomeMail(to, licenseKey string) {
	subject := "Welcome to SocialOwl"
	body := fmt.Sprintf(
		"<p>Hello,</p>"+
			"<p>Your AppSumo license key has been activated.</p>"+
			"<p>License key: <strong>%s</strong></p>"+
			"<p>Log in with this address to get started.</p>",
		licenseKey,
	)
	if err := mail.SendMail(to, subject, body); err != nil {
		log.Printf("appsumo welcome mail to %s failed: %v", to, err)
	}
}
