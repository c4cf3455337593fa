// handlers/grant.go
package handlers

import (
	"earn-marketplace-system/middleware"
	"earn-marketplace-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupGrantRoutes(app *fiber.App, grantService *services.GrantService) {
	// 🔓 Public routes (published grants only; still behind Gateway auth)
	app.Get("/grants/:idOrSlug", grantService.GetGrant)

	// 🔐 Authenticated routes, user context attached per route
	userCtx := middleware.UserContextMiddleware()

	app.Post("/grants/:idOrSlug/applications", userCtx, grantService.CreateApplication)
	app.Get("/grants/:idOrSlug/applications/me", userCtx, grantService.GetMyApplication)

	// Reviewer views (owner/admin of the owning org)
	app.Get("/grants/:idOrSlug/applications", userCtx, grantService.ListApplications)
	app.Post("/applications/:id/review", userCtx, grantService.ReviewApplication)
}
