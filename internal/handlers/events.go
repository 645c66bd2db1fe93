// Package handlers contains HTTP route handler functions for the League Ops API.
// This file handles the /api/v1/events routes — the event lifecycle.
//
// Each exported function follows the "handler factory" pattern: it takes the
// service it fronts and returns a fiber.Handler (a function that handles a
// single HTTP request). This lets us inject dependencies without using global
// variables.
//
// The multi-step work (tee-group generation, roster import, cascade delete)
// lives in internal/events; handlers only parse requests, call the service,
// and shape responses.
package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/fairwayops/league/internal/events"
	"github.com/fairwayops/league/internal/models"
)

// EventResponse is what we send back to clients.
// We use a dedicated response struct (instead of the raw GORM model) so we control
// exactly what fields are serialised to JSON and can add computed fields like the
// confirmed-player count.
type EventResponse struct {
	ID                 string  `json:"id"`
	Date               string  `json:"date"` // "YYYY-MM-DD"
	CourseID           string  `json:"course_id"`
	CourseName         string  `json:"course_name"`
	FirstTeeTime       string  `json:"first_tee_time"`
	Holes              int     `json:"holes"`
	SlotsPerGroup      int     `json:"slots_per_group"`
	MaxPlayers         int     `json:"max_players"`
	TeeIntervalMinutes int     `json:"tee_interval_minutes"`
	Locked             bool    `json:"locked"`
	Notes              *string `json:"notes"`
	CreatedAt          string  `json:"created_at"` // ISO 8601 timestamp
}

func eventResponse(ev *models.Event) EventResponse {
	return EventResponse{
		ID:                 ev.ID.String(),
		Date:               ev.Date.UTC().Format("2006-01-02"),
		CourseID:           ev.CourseID.String(),
		CourseName:         ev.Course.Name,
		FirstTeeTime:       ev.FirstTeeTime,
		Holes:              ev.Holes,
		SlotsPerGroup:      ev.SlotsPerGroup,
		MaxPlayers:         ev.MaxPlayers,
		TeeIntervalMinutes: ev.TeeIntervalMinutes,
		Locked:             ev.Locked,
		Notes:              ev.Notes,
		CreatedAt:          ev.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// CreateEventRequest is the JSON body we expect on POST /api/v1/events.
type CreateEventRequest struct {
	Date               string  `json:"date"` // Required: "YYYY-MM-DD"
	CourseID           string  `json:"course_id"`
	FirstTeeTime       string  `json:"first_tee_time"` // Required: "HH:MM"
	Holes              int     `json:"holes"`
	SlotsPerGroup      int     `json:"slots_per_group"`
	MaxPlayers         int     `json:"max_players"`
	TeeIntervalMinutes int     `json:"tee_interval_minutes"`
	Notes              *string `json:"notes"`
}

// GetEvents returns a handler for GET /api/v1/events — all events, newest first.
func GetEvents(svc *events.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		evs, err := svc.List()
		if err != nil {
			return serviceError(c, err)
		}
		response := make([]EventResponse, 0, len(evs))
		for i := range evs {
			response = append(response, eventResponse(&evs[i]))
		}
		return c.JSON(response)
	}
}

// GetEvent returns a handler for GET /api/v1/events/:id.
func GetEvent(svc *events.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid event id")
		}
		ev, err := svc.Get(id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(eventResponse(ev))
	}
}

// CreateEvent returns a handler for POST /api/v1/events.
// Requires "admin" role (enforced by RequireRole middleware on the route).
// Creation runs the orchestrator's ordered step sequence: event row, then
// tee groups, then the bulk roster import. A step failure after the event row
// exists comes back as 500 with the failing step named — the partial state is
// real and the operator needs to know about it.
func CreateEvent(svc *events.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CreateEventRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}

		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return badRequest(c, "date must be in YYYY-MM-DD format")
		}
		courseID, err := uuid.Parse(req.CourseID)
		if err != nil {
			return badRequest(c, "invalid course id")
		}

		ev, err := svc.Create(events.CreateParams{
			Date:               date,
			CourseID:           courseID,
			FirstTeeTime:       req.FirstTeeTime,
			Holes:              req.Holes,
			SlotsPerGroup:      req.SlotsPerGroup,
			MaxPlayers:         req.MaxPlayers,
			TeeIntervalMinutes: req.TeeIntervalMinutes,
			Notes:              req.Notes,
		})
		if err != nil {
			if step, ok := events.IsStepError(err); ok {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": err.Error(),
					"step":  step,
				})
			}
			return badRequest(c, err.Error())
		}

		full, err := svc.Get(ev.ID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(eventResponse(full))
	}
}

// UpdateEventRequest is the JSON body for PATCH /api/v1/events/:id.
// All fields optional; only provided fields change. Capacity edits do NOT
// regenerate the tee sheet.
type UpdateEventRequest struct {
	Date         *string `json:"date"`
	CourseID     *string `json:"course_id"`
	FirstTeeTime *string `json:"first_tee_time"`
	Holes        *int    `json:"holes"`
	MaxPlayers   *int    `json:"max_players"`
	Notes        *string `json:"notes"`
}

// UpdateEvent returns a handler for PATCH /api/v1/events/:id. Admin only.
func UpdateEvent(svc *events.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid event id")
		}
		var req UpdateEventRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}

		params := events.EditParams{
			FirstTeeTime: req.FirstTeeTime,
			Holes:        req.Holes,
			MaxPlayers:   req.MaxPlayers,
			Notes:        req.Notes,
		}
		if req.Date != nil {
			date, err := time.Parse("2006-01-02", *req.Date)
			if err != nil {
				return badRequest(c, "date must be in YYYY-MM-DD format")
			}
			params.Date = &date
		}
		if req.CourseID != nil {
			courseID, err := uuid.Parse(*req.CourseID)
			if err != nil {
				return badRequest(c, "invalid course id")
			}
			params.CourseID = &courseID
		}

		if _, err := svc.Edit(id, params); err != nil {
			return serviceError(c, err)
		}
		full, err := svc.Get(id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(eventResponse(full))
	}
}

// DeleteEvent returns a handler for DELETE /api/v1/events/:id. Admin only.
// The cascade runs in dependency order; if a step fails the response names it
// and the event row is still there.
func DeleteEvent(svc *events.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid event id")
		}
		if err := svc.Delete(id); err != nil {
			if step, ok := events.IsStepError(err); ok {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": err.Error(),
					"step":  step,
				})
			}
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// LockEvent returns a handler for POST /api/v1/events/:id/lock (and, with
// locked=false, /unlock). Admin only. Once locked, roster and assignment
// mutations are refused by the services themselves.
func LockEvent(svc *events.Service, locked bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid event id")
		}
		if err := svc.SetLocked(id, locked); err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"locked": locked})
	}
}

// SetGroupTeeTime returns a handler for PATCH /api/v1/groups/:gid/tee-time.
// Tee time is the only group field editable after creation.
func SetGroupTeeTime(svc *events.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("gid"))
		if err != nil {
			return badRequest(c, "invalid group id")
		}
		var req struct {
			TeeTime string `json:"tee_time"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if err := svc.SetGroupTeeTime(id, req.TeeTime); err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"tee_time": req.TeeTime})
	}
}
