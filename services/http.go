// services/http.go — shared fiber helpers for the service handlers.
package services

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// requireUserID pulls the verified identity that UserContextMiddleware
// attached. Handlers resolve identity once here and pass it down — the core
// methods never read ambient request context.
func requireUserID(c *fiber.Ctx) (string, error) {
	if local := c.Locals("user_id"); local != nil {
		if userID, ok := local.(string); ok && userID != "" {
			return userID, nil
		}
	}
	return "", Unauthenticated("no verified user identity on request")
}

// respondError maps a typed service error onto an HTTP response. Unknown
// failures are logged with their original cause; everything else is the
// caller's problem and just gets reported.
func respondError(c *fiber.Ctx, err error) error {
	appErr := AsAppError(err)
	if appErr.Kind == KindUnknown {
		log.Printf("❌ [ERROR] %s %s: %v", c.Method(), c.Path(), appErr)
	}
	return c.Status(appErr.StatusCode()).JSON(fiber.Map{
		"error": appErr.Message,
		"kind":  appErr.Kind,
	})
}
