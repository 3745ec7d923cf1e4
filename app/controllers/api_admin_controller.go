package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"github.com/SocialOwlHQ/SocialOwl/app/repository"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/codes"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/entitlements"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/statistics"
)

const maxRedeemCodeBatch = 500

type createRedeemCodesRequest struct {
	Count int    `json:"count"`
	Plan  string `json:"plan"`
}

// HandleAdminCreateRedeemCodes generates a batch of unclaimed redeem codes.
// The plan name is embedded in the code so redemption can recover the tier.
func HandleAdminCreateRedeemCodes(c *fiber.Ctx) error {
	var req createRedeemCodesRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Count <= 0 {
		req.Count = 1
	}
	if req.Count > maxRedeemCodeBatch {
		return badRequest(c, "count exceeds the batch limit")
	}

	plan := strings.ToLower(strings.TrimSpace(req.Plan))
	switch plan {
	case "", "enterprise", "agency", "team":
	default:
		return badRequest(c, "plan must be enterprise, agency, team or empty")
	}

	repo := repository.GetGlobalFactory().GetRedeemCodeRepository()
	generated := make([]string, 0, req.Count)
	attempts := 0
	for len(generated) < req.Count {
		if attempts++; attempts > req.Count*3 {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "redeem code generation kept failing"})
		}
		code, err := codes.GenerateTieredRedeemCode(plan)
		if err != nil {
			return serviceError(c, err)
		}
		if err := repo.Create(&models.RedeemCode{
			Code:   code,
			Status: models.RedeemCodeStatusUnclaimed,
		}); err != nil {
			// Collision on the unique code column; roll the dice again.
			continue
		}
		generated = append(generated, code)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"codes": generated,
		"tier":  entitlements.TierFromKeyName(plan),
	})
}

// HandleAdminListRedeemCodes returns redeem codes with pagination.
func HandleAdminListRedeemCodes(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	repo := repository.GetGlobalFactory().GetRedeemCodeRepository()
	list, err := repo.List(offset, limit)
	if err != nil {
		return serviceError(c, err)
	}
	total, err := repo.Count()
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"codes": list, "total": total})
}

// HandleAdminStats returns headline counts for the admin dashboard.
// The cached totals refresh at most every few minutes; redeem code counts
// come straight from the database because admins generate them in batches.
func HandleAdminStats(c *fiber.Ctx) error {
	stats := statistics.GetStatisticsData()

	redeemCodes, err := repository.GetGlobalRepositories().RedeemCode.Count()
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(fiber.Map{
		"users":           stats.TotalUsers,
		"active_licenses": stats.ActiveLicenses,
		"redeems_today":   stats.TodayRedeems,
		"redeem_codes":    redeemCodes,
	})
}
