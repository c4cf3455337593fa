// handlers/sweep.go
package handlers

import (
	"earn-marketplace-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupSweepRoutes exposes the cron trigger. POST only — fiber answers other
// verbs on the path with 405 rather than silently no-opping.
func SetupSweepRoutes(app *fiber.App, sweepService *services.SweepService) {
	app.Post("/internal/sweeps/bounty-deadlines", sweepService.TriggerSweep)
}
