package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/database"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/usercontext"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/workshop"
)

func workshopService() *workshop.Service {
	return workshop.NewServiceFromDB(database.GetDB())
}

// HandleWorkshopJoinInfo returns the join view for a workshop: its join
// mode and, for CHOICE workshops, the groups with remaining capacity.
// Access-code gated workshops require the code as a query parameter.
func HandleWorkshopJoinInfo(c *fiber.Ctx) error {
	workshopID := c.QueryInt("workshop_id", 0)
	if workshopID <= 0 {
		return badRequest(c, "workshop_id is required")
	}

	info, err := workshopService().Info(c.Context(), uint(workshopID), c.Query("access_code"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(info)
}

// HandleWorkshopJoin places a participant into a group according to the
// workshop's join mode. Works for guests; a logged-in session attributes
// the participant to the user.
func HandleWorkshopJoin(c *fiber.Ctx) error {
	var input workshop.JoinInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "invalid request body")
	}
	if input.WorkshopID == 0 || strings.TrimSpace(input.Name) == "" {
		return badRequest(c, "workshop_id and name are required")
	}
	if userCtx := usercontext.GetUserContext(c); userCtx.IsLoggedIn {
		input.UserID = userCtx.UserID
	}

	result, err := workshopService().Join(c.Context(), input)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

type workshopAssignRequest struct {
	WorkshopID uint   `json:"workshop_id"`
	GroupID    uint   `json:"group_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}

// HandleWorkshopAssign is the organizer path: direct placement into a
// specific group regardless of the workshop's join mode. Admin only.
func HandleWorkshopAssign(c *fiber.Ctx) error {
	var req workshopAssignRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.WorkshopID == 0 || req.GroupID == 0 || strings.TrimSpace(req.Name) == "" {
		return badRequest(c, "workshop_id, group_id and name are required")
	}

	result, err := workshopService().Assign(c.Context(), req.WorkshopID, req.GroupID, req.Name, req.Email)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// HandleWorkshopCreate creates a workshop with its groups. Admin only.
func HandleWorkshopCreate(c *fiber.Ctx) error {
	var input workshop.CreateInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(input.Name) == "" {
		return badRequest(c, "name is required")
	}
	input.OwnerUserID = usercontext.GetUserID(c)

	created, err := workshopService().Create(c.Context(), input)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}
