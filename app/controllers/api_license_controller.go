package controllers

import (
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/database"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/licensing"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/mail"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/usercontext"
)

// HandleResolveLicense returns the entitlement for a key. Works for both
// main license keys and sub-license keys.
func HandleResolveLicense(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Params("key"))
	if key == "" {
		return badRequest(c, "license key is required")
	}

	svc := licensing.NewServiceFromDB(database.GetDB())
	ent, err := svc.Resolve(c.Context(), key)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(ent)
}

// HandleActivateLicense binds a key to the logged-in user and records the
// device activation.
func HandleActivateLicense(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "login required"})
	}

	var input licensing.ActivateInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(input.Key) == "" {
		return badRequest(c, "key is required")
	}
	input.UserID = userCtx.UserID
	input.IPAddress = GetClientIP(c)

	svc := licensing.NewServiceFromDB(database.GetDB())
	result, err := svc.Activate(c.Context(), input)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(result)
}

// HandleDeactivateLicense soft-deactivates a key. Deactivating a main key
// cascades to its sub-licenses. Only the key owner (or an admin) may do it.
func HandleDeactivateLicense(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Params("key"))
	if key == "" {
		return badRequest(c, "license key is required")
	}

	svc := licensing.NewServiceFromDB(database.GetDB())
	if err := svc.Deactivate(c.Context(), key, licenseCallerID(c)); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleListSeats returns the sub-license seats under a main key the caller
// owns.
func HandleListSeats(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Params("key"))
	if key == "" {
		return badRequest(c, "license key is required")
	}

	svc := licensing.NewServiceFromDB(database.GetDB())
	seats, err := svc.ListSeats(c.Context(), key, licenseCallerID(c))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"seats": seats})
}

// licenseCallerID returns the session user for the ownership check; admins
// manage any key.
func licenseCallerID(c *fiber.Ctx) uint {
	userCtx := usercontext.GetUserContext(c)
	if userCtx.IsAdmin {
		return 0
	}
	return userCtx.UserID
}

type assignSeatRequest struct {
	Email string `json:"email"`
}

// HandleAssignSeat assigns the next free seat under a main key to an email
// address, creating the account when needed.
func HandleAssignSeat(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Params("key"))
	if key == "" {
		return badRequest(c, "license key is required")
	}

	var req assignSeatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" {
		return badRequest(c, "email is required")
	}

	svc := licensing.NewServiceFromDB(database.GetDB())
	seat, err := svc.AssignSeat(c.Context(), key, req.Email, licenseCallerID(c))
	if err != nil {
		return serviceError(c, err)
	}

	// Invite mail is best effort; the seat assignment already succeeded.
	go sendSeatInviteMail(req.Email, seat.Key)

	return c.JSON(seat)
}

func sendSeatInviteMail(to, seatKey string) {
	subject := "You have been added to a SocialOwl team"
	body := fmt.Sprintf(
		"<p>Hello,</p>"+
			"<p>A team seat has been assigned to this email address.</p>"+
			"<p>Your seat license key: <strong>%s</strong></p>"+
			"<p>Log in with this address to start using it.</p>",
		seatKey,
	)
	if err := mail.SendMail(to, subject, body); err != nil {
		log.Printf("seat invite mail to %s failed: %v", to, err)
	}
}
