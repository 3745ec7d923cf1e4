package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/database"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/metrics/counter"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/statistics"
	"github.com/SocialOwlHQ/SocialOwl/internal/pkg/subscriptions"
)

// HandleDailyCron runs the scheduled maintenance: expire overdue
// subscriptions and flush the pending usage counters to the database.
// Guarded by the cron secret middleware.
func HandleDailyCron(c *fiber.Ctx) error {
	svc := subscriptions.NewServiceFromDB(database.GetDB())

	expired, err := svc.ExpireOverdue(c.Context(), time.Now())
	if err != nil {
		return serviceError(c, err)
	}

	flushErr := counter.FlushAll()

	// The dashboard numbers change after expiry, so recount eagerly.
	statistics.ResetCacheUpdateTimer()
	go statistics.UpdateCacheIfNeeded()


	response := fiber.Map{
		"expired_subscriptions": expired,
		"counters_flushed":      flushErr == nil,
	}
	if flushErr != nil {
		response["counter_error"] = flushErr.Error()
	}
	return c.JSON(response)
}
