package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/SocialOwlHQ/SocialOwl/app/controllers"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/constants"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute, limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// Auth
	api.Post("/auth/register", controllers.HandleAuthRegister)
	api.Post("/auth/login", controllers.HandleAuthLogin)
	api.Post("/auth/logout", controllers.HandleAuthLogout)

	// Vendor webhooks; signature-checked, no session
	api.Post("/webhooks/lemonsqueezy", controllers.HandleLemonSqueezyWebhook)

	// Licenses; key resolution is open (the key is the credential),
	// activation needs a session
	api.Get("/licenses/:key", controllers.HandleResolveLicense)
	api.Post("/licenses/activate", middleware.RequireAPISessionAuth, controllers.HandleActivateLicense)
	api.Post("/licenses/:key/deactivate", middleware.RequireAPISessionAuth, controllers.HandleDeactivateLicense)
	api.Get("/licenses/:key/seats", middleware.RequireAPISessionAuth, controllers.HandleListSeats)
	api.Post("/licenses/:key/seats/assign", middleware.RequireAPISessionAuth, controllers.HandleAssignSeat)

	// Redeem
	api.Post("/redeem", middleware.RequireAPISessionAuth, controllers.HandleRedeemCode)

	// AppSumo marketplace activation; open, email-based
	api.Post("/appsumo/activate", controllers.HandleAppSumoActivate)

	// Credits
	api.Get("/credits", middleware.RequireAPISessionAuth, controllers.HandleGetCredits)
	api.Get("/credits/transactions", middleware.RequireAPISessionAuth, controllers.HandleListCreditTransactions)
	api.Post("/credits/spend", middleware.RequireAPISessionAuth, controllers.HandleSpendCredits)

	// Account + API key management
	api.Get("/user/account", middleware.RequireAPISessionAuth, controllers.HandleGetUserAccount)
	api.Post("/user/api-key", middleware.RequireAPISessionAuth, controllers.HandleIssueAPIKey)
	api.Delete("/user/api-key", middleware.RequireAPISessionAuth, controllers.HandleRevokeAPIKey)

	// Workshops; join works for guests
	api.Get("/workshops/join", controllers.HandleWorkshopJoinInfo)
	api.Post("/workshops/join", controllers.HandleWorkshopJoin)

	// Usage tracking from the extension: API key or anonymous with a
	// license key in the body
	extension := api.Group(constants.ExtensionRoute, middleware.APIKeyAuthMiddleware())
	extension.Get("/account", controllers.HandleGetUserAccount)
	extension.Post("/usage", controllers.HandleTrackUsage)
	api.Post("/usage", controllers.HandleTrackUsage)
	api.Get("/analytics/team", controllers.HandleTeamAnalytics)

	// Admin
	admin := api.Group(constants.AdminRoute, middleware.RequireAPIAdmin)
	admin.Post("/redeem-codes", controllers.HandleAdminCreateRedeemCodes)
	admin.Get("/redeem-codes", controllers.HandleAdminListRedeemCodes)
	admin.Get("/stats", controllers.HandleAdminStats)
	admin.Post("/credits/grant", controllers.HandleAdminGrantCredits)
	admin.Post("/credits/deduct", controllers.HandleAdminDeductCredits)
	admin.Post("/workshops", controllers.HandleWorkshopCreate)
	admin.Post("/workshops/assign", controllers.HandleWorkshopAssign)

	// Scheduled maintenance
	api.Post("/cron/daily", middleware.RequireCronSecret, controllers.HandleDailyCron)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
