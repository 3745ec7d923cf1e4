package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"github.com/SocialOwlHQ/SocialOwl/app/repository"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/credits"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/usercontext"
)

func creditService() *credits.Service {
	return credits.NewService(repository.GetGlobalRepositories().Credit)
}

// HandleGetCredits returns the caller's current balance.
func HandleGetCredits(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	balance, err := creditService().Balance(c.Context(), userCtx.UserID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"balance": balance})
}

// HandleListCreditTransactions returns the caller's transaction log, newest
// first.
func HandleListCreditTransactions(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 50)

	history, err := creditService().History(c.Context(), userCtx.UserID, offset, limit)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"transactions": history})
}

type spendRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// HandleSpendCredits debits the caller's balance. Insufficient balance is a
// 402 and leaves the balance untouched.
func HandleSpendCredits(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req spendRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Amount <= 0 {
		return badRequest(c, "amount must be positive")
	}
	if strings.TrimSpace(req.Description) == "" {
		req.Description = "Credits spent"
	}

	credit, err := creditService().Spend(c.Context(), userCtx.UserID, req.Amount, req.Description)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"balance": credit.Balance})
}

type adminCreditRequest struct {
	UserID      uint   `json:"user_id"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// HandleAdminGrantCredits credits any user's balance. Admin only.
func HandleAdminGrantCredits(c *fiber.Ctx) error {
	var req adminCreditRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.UserID == 0 || req.Amount <= 0 {
		return badRequest(c, "user_id and a positive amount are required")
	}
	if strings.TrimSpace(req.Description) == "" {
		req.Description = "Admin credit grant"
	}

	credit, err := creditService().Grant(c.Context(), req.UserID, req.Amount, models.TransactionTypeGifted, req.Description)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"balance": credit.Balance})
}

// HandleAdminDeductCredits debits any user's balance, clamped at zero.
// Admin only.
func HandleAdminDeductCredits(c *fiber.Ctx) error {
	var req adminCreditRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.UserID == 0 || req.Amount <= 0 {
		return badRequest(c, "user_id and a positive amount are required")
	}
	if strings.TrimSpace(req.Description) == "" {
		req.Description = "Admin credit deduction"
	}

	deducted, err := creditService().Deduct(c.Context(), req.UserID, req.Amount, models.TransactionTypeSpent, req.Description)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"deducted": deducted})
}
