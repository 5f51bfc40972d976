package transport

import (
	"strings"

	"github.com/aix-dean/mailcourier/internal/observability"
	"github.com/gofiber/fiber/v2"
)

// CorrelationMiddleware copies the request id set by the requestid middleware
// into the user context, so every log line downstream of the handler carries
// the same correlationId.
func CorrelationMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID, _ := c.Locals("requestid").(string)
		if requestID == "" {
			requestID = strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
		}
		if requestID != "" {
			c.SetUserContext(observability.WithCorrelationID(c.UserContext(), requestID))
		}
		return c.Next()
	}
}
