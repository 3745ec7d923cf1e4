package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/database"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/usage"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/usercontext"
)

// HandleTrackUsage records one metered action reported by the extension.
func HandleTrackUsage(c *fiber.Ctx) error {
	var input usage.TrackInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "invalid request body")
	}
	if strings.TrimSpace(input.Action) == "" || strings.TrimSpace(input.Platform) == "" {
		return badRequest(c, "action and platform are required")
	}
	if userCtx := usercontext.GetUserContext(c); userCtx.IsLoggedIn && input.UserID == nil {
		uid := userCtx.UserID
		input.UserID = &uid
	}

	svc := usage.NewServiceFromDB(database.GetDB())
	result, err := svc.Track(c.Context(), input)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(result)
}

// HandleTeamAnalytics aggregates usage for the license key in the query.
// A main license key sees its whole team, a sub-license key only itself.
func HandleTeamAnalytics(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Query("license_key"))
	if key == "" {
		return badRequest(c, "license_key is required")
	}

	from, err := parseDateParam(c.Query("start_date"))
	if err != nil {
		return badRequest(c, "start_date must be YYYY-MM-DD")
	}
	to, err := parseDateParam(c.Query("end_date"))
	if err != nil {
		return badRequest(c, "end_date must be YYYY-MM-DD")
	}

	input := usage.AnalyticsInput{
		LicenseKey: key,
		From:       from,
		To:         to.AddDate(0, 0, 1), // end date is inclusive
		Platform:   c.Query("platform"),
		Action:     c.Query("action"),
	}
	if subID := c.QueryInt("sub_license_id", 0); subID > 0 {
		id := uint(subID)
		input.SubLicenseID = &id
	}

	svc := usage.NewServiceFromDB(database.GetDB())
	report, err := svc.TeamAnalytics(c.Context(), input)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(report)
}

func parseDateParam(value string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(value), time.UTC)
}
