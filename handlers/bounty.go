// handlers/bounty.go
package handlers

import (
	"earn-marketplace-system/middleware"
	"earn-marketplace-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupBountyRoutes(app *fiber.App, bountyService *services.BountyService) {
	// 🔓 Public routes (published bounties only; still behind Gateway auth)
	app.Get("/bounties/:idOrSlug", bountyService.GetBounty)
	// Submission list is hidden until winners are announced
	app.Get("/bounties/:idOrSlug/submissions", bountyService.ListSubmissions)

	// 🔐 Authenticated routes. The user-context middleware is attached per
	// route — a group mounted at "/" would leak it onto the public and
	// internal routes registered after it.
	userCtx := middleware.UserContextMiddleware()

	app.Post("/bounties", userCtx, bountyService.CreateBounty)
	app.Delete("/bounties/:id", userCtx, bountyService.DeleteBounty)
	app.Patch("/bounties/:id/status", userCtx, bountyService.UpdateBountyStatus)
	app.Post("/bounties/:id/announce-winners", userCtx, bountyService.AnnounceWinners)

	// Submissions
	app.Post("/bounties/:idOrSlug/submissions", userCtx, bountyService.CreateSubmission)
	app.Get("/bounties/:idOrSlug/submissions/review", userCtx, bountyService.ListSubmissionsForReview)
	app.Post("/bounties/:id/submissions/:submission_id/select", userCtx, bountyService.SelectWinner)
	app.Post("/bounties/:id/submissions/:submission_id/reject", userCtx, bountyService.RejectSubmission)
}
