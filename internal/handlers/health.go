package handlers

import "github.com/gofiber/fiber/v2"

// HealthCheck handles GET /health.
// Intentionally lightweight: no database queries, no authentication. Used by
// container probes and load balancers to decide whether this instance is up.
func HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
