package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/fairwayops/league/internal/assignment"
	"github.com/fairwayops/league/internal/roster"
	"github.com/fairwayops/league/internal/rsvp"
)

// errors.go — one place that maps service errors onto HTTP responses.
//
// Business-rule rejections (locked event, roster full, nothing to add) carry
// their message text verbatim into the JSON body: those strings are written
// for the operator, so no generic notice replaces them.

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, roster.ErrEventLocked), errors.Is(err, assignment.ErrEventLocked):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, roster.ErrCapacityReached):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, roster.ErrNoPreviousEvents), errors.Is(err, roster.ErrAllAlreadyAdded):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, rsvp.ErrNoValidContacts):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	default:
		// Store errors propagate with their original message text — the
		// user-facing layer shows them as-is rather than a generic notice.
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
