// This file handles the RSVP surfaces: template management, sending
// invitations, the delivery log, and the two public token-response routes
// (the browser GET link and the JSON POST). Both response routes funnel into
// rsvp.Respond so the idempotence rules can't diverge.
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fairwayops/league/internal/models"
	"github.com/fairwayops/league/internal/rsvp"
	"github.com/fairwayops/league/internal/websocket"
)

// GetRsvpTemplates returns a handler for GET /api/v1/templates.
func GetRsvpTemplates(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var templates []models.RsvpTemplate
		if err := db.Order("created_at ASC").Find(&templates).Error; err != nil {
			return serviceError(c, err)
		}
		return c.JSON(templates)
	}
}

// CreateRsvpTemplate returns a handler for POST /api/v1/templates. Admin only.
func CreateRsvpTemplate(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Name      string  `json:"name"`
			Channel   string  `json:"channel"`
			Subject   *string `json:"subject"`
			Body      string  `json:"body"`
			IsDefault bool    `json:"is_default"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if req.Name == "" || req.Body == "" {
			return badRequest(c, "name and body are required")
		}

		template := models.RsvpTemplate{
			Name:      req.Name,
			Channel:   models.RsvpChannel(req.Channel),
			Subject:   req.Subject,
			Body:      req.Body,
			IsDefault: req.IsDefault,
		}
		if err := rsvp.ValidateTemplate(&template); err != nil {
			return badRequest(c, err.Error())
		}

		// Only one default at a time; making this one default clears the rest.
		if template.IsDefault {
			if err := db.Model(&models.RsvpTemplate{}).
				Where("is_default = ?", true).
				Update("is_default", false).Error; err != nil {
				return serviceError(c, err)
			}
		}
		if err := db.Create(&template).Error; err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(template)
	}
}

// SendRsvpRequest selects who gets invited and how.
type SendRsvpRequest struct {
	EventPlayerIDs []string `json:"event_player_ids"`
	TemplateID     string   `json:"template_id"`
	Channel        string   `json:"channel"`
}

// SendRsvps returns a handler for POST /api/v1/events/:id/rsvp/send. Admin only.
// Queues a message batch and then dispatches it inline. Queue failures (bad
// template, nobody reachable) abort with nothing written; dispatch failures
// are per-message and reported in the response, not raised.
func SendRsvps(svc *rsvp.Service, hub *websocket.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		eventID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid event id")
		}
		var req SendRsvpRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		templateID, err := uuid.Parse(req.TemplateID)
		if err != nil {
			return badRequest(c, "invalid template id")
		}
		ids := make([]uuid.UUID, 0, len(req.EventPlayerIDs))
		for _, s := range req.EventPlayerIDs {
			id, err := uuid.Parse(s)
			if err != nil {
				return badRequest(c, "invalid roster entry id: "+s)
			}
			ids = append(ids, id)
		}

		queued, err := svc.Queue(eventID, ids, templateID, models.RsvpChannel(req.Channel))
		if err != nil {
			return serviceError(c, err)
		}
		report, err := svc.Dispatch(eventID)
		if err != nil {
			return serviceError(c, err)
		}
		if hub != nil {
			hub.BroadcastToEvent(eventID.String(), []byte(`{"type":"rsvp_sent"}`))
		}
		return c.JSON(fiber.Map{
			"queued":  queued,
			"sent":    report.Sent,
			"failed":  report.Failed,
			"skipped": report.Skipped,
		})
	}
}

// GetRsvpMessages returns a handler for GET /api/v1/events/:id/rsvp/messages:
// the delivery log for an event, newest first.
func GetRsvpMessages(svc *rsvp.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		eventID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid event id")
		}
		msgs, err := svc.Messages(eventID)
		if err != nil {
			return serviceError(c, err)
		}
		out := make([]fiber.Map, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, fiber.Map{
				"id":           m.ID.String(),
				"player_name":  m.EventPlayer.Player.Name,
				"channel":      string(m.Channel),
				"recipient":    m.Recipient,
				"status":       string(m.Status),
				"error_detail": m.ErrorDetail,
				"sent_at":      formatOptionalTime(m.SentAt),
				"responded_at": formatOptionalTime(m.RespondedAt),
			})
		}
		return c.JSON(out)
	}
}

// RespondToRsvp returns a handler for the public POST /api/v1/rsvp/respond.
// No auth: the token is the credential.
func RespondToRsvp(svc *rsvp.Service, hub *websocket.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Token  string `json:"token"`
			Answer string `json:"answer"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		outcome := svc.Respond(req.Token, models.EventPlayerStatus(req.Answer))
		switch outcome.Result {
		case rsvp.ResultInvalid:
			return c.Status(fiber.StatusNotFound).JSON(outcome)
		case rsvp.ResultError:
			return c.Status(fiber.StatusUnprocessableEntity).JSON(outcome)
		}
		if outcome.Result == rsvp.ResultSuccess && hub != nil {
			hub.BroadcastToEvent(outcome.EventID, []byte(`{"type":"roster_changed"}`))
		}
		return c.JSON(outcome)
	}
}

// RsvpLandingPage returns a handler for the public GET /rsvp/:token?answer=yes.
// This is the link embedded in invitations; it applies the answer and renders
// a plain confirmation page.
func RsvpLandingPage(svc *rsvp.Service, hub *websocket.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		answer := c.Query("answer", "yes")
		outcome := svc.Respond(c.Params("token"), models.EventPlayerStatus(answer))
		if outcome.Result == rsvp.ResultSuccess && hub != nil {
			hub.BroadcastToEvent(outcome.EventID, []byte(`{"type":"roster_changed"}`))
		}
		c.Set("Content-Type", "text/html; charset=utf-8")
		status := fiber.StatusOK
		if outcome.Result == rsvp.ResultInvalid {
			status = fiber.StatusNotFound
		}
		return c.Status(status).SendString(rsvp.ConfirmationHTML(outcome))
	}
}
