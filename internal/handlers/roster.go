// This file handles the roster routes: who is on an event, with what RSVP
// status. After every successful mutation a "roster_changed" notice goes out
// over the websocket hub so open roster views refresh live.
package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/fairwayops/league/internal/models"
	"github.com/fairwayops/league/internal/roster"
	"github.com/fairwayops/league/internal/websocket"
)

// RosterEntryResponse is one roster row with the player folded in.
type RosterEntryResponse struct {
	ID           string  `json:"id"`
	PlayerID     string  `json:"player_id"`
	PlayerName   string  `json:"player_name"`
	Status       string  `json:"status"`
	Note         *string `json:"note"`
	InviteSentAt *string `json:"invite_sent_at"`
	RespondedAt  *string `json:"responded_at"`
}

func rosterResponse(eps []models.EventPlayer) []RosterEntryResponse {
	out := make([]RosterEntryResponse, 0, len(eps))
	for _, ep := range eps {
		out = append(out, RosterEntryResponse{
			ID:           ep.ID.String(),
			PlayerID:     ep.PlayerID.String(),
			PlayerName:   ep.Player.Name,
			Status:       string(ep.Status),
			Note:         ep.Note,
			InviteSentAt: formatOptionalTime(ep.InviteSentAt),
			RespondedAt:  formatOptionalTime(ep.RespondedAt),
		})
	}
	return out
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

// notifyRoster broadcasts a roster-change notice for the event. The payload
// carries just the change type; watchers refetch rather than patch state.
func notifyRoster(hub *websocket.Hub, eventID uuid.UUID) {
	if hub != nil {
		hub.BroadcastToEvent(eventID.String(), []byte(`{"type":"roster_changed"}`))
	}
}

// GetRoster returns a handler for GET /api/v1/events/:id/players.
// Optional query param ?status=yes narrows to one status; default is all,
// ordered yes, invited, waitlist, no.
func GetRoster(svc *roster.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		eventID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid event id")
		}
		filter := models.EventPlayerStatus(c.Query("status"))
		if filter != "" && !models.ValidEventPlayerStatus(filter) {
			return badRequest(c, "unknown status filter")
		}
		eps, err := svc.List(eventID, filter)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(rosterResponse(eps))
	}
}

// AddRosterPlayer returns a handler for POST /api/v1/events/:id/players. Admin only.
func AddRosterPlayer(svc *roster.Service, hub *websocket.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		eventID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid event id")
		}
		var req struct {
			PlayerID string `json:"player_id"`
			Status   string `json:"status"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		playerID, err := uuid.Parse(req.PlayerID)
		if err != nil {
			return badRequest(c, "invalid player id")
		}
		status := models.EventPlayerStatus(req.Status)
		if req.Status == "" {
			status = models.EventPlayerStatusInvited
		}

		ep, err := svc.AddPlayer(eventID, playerID, status)
		if err != nil {
			return serviceError(c, err)
		}
		notifyRoster(hub, eventID)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": ep.ID.String()})
	}
}

// SetRosterStatus returns a handler for PATCH /api/v1/players/:epid/status.
// The single-row path enforces the yes-capacity cap; a full roster comes back
// as 409 with the capacity message.
func SetRosterStatus(svc *roster.Service, hub *websocket.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		epID, err := uuid.Parse(c.Params("epid"))
		if err != nil {
			return badRequest(c, "invalid roster entry id")
		}
		var req struct {
			Status  string `json:"status"`
			EventID string `json:"event_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		if err := svc.SetStatus(epID, models.EventPlayerStatus(req.Status)); err != nil {
			return serviceError(c, err)
		}
		if eventID, err := uuid.Parse(req.EventID); err == nil {
			notifyRoster(hub, eventID)
		}
		return c.JSON(fiber.Map{"status": req.Status})
	}
}

// BulkSetRosterStatus returns a handler for POST /api/v1/events/:id/players/bulk-status.
// Admin only. The bulk path applies one status uniformly and skips the
// capacity check (see roster.BulkSetStatus).
func BulkSetRosterStatus(svc *roster.Service, hub *websocket.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		eventID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid event id")
		}
		var req struct {
			IDs    []string `json:"ids"`
			Status string   `json:"status"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		ids := make([]uuid.UUID, 0, len(req.IDs))
		for _, s := range req.IDs {
			id, err := uuid.Parse(s)
			if err != nil {
				return badRequest(c, "invalid roster entry id: "+s)
			}
			ids = append(ids, id)
		}
		if err := svc.BulkSetStatus(eventID, ids, models.EventPlayerStatus(req.Status)); err != nil {
			return serviceError(c, err)
		}
		notifyRoster(hub, eventID)
		return c.JSON(fiber.Map{"updated": len(ids)})
	}
}

// RemoveRosterPlayer returns a handler for DELETE /api/v1/players/:epid. Admin only.
// Removal also clears any tee-sheet assignment the player held.
func RemoveRosterPlayer(svc *roster.Service, hub *websocket.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		epID, err := uuid.Parse(c.Params("epid"))
		if err != nil {
			return badRequest(c, "invalid roster entry id")
		}
		eventID := c.Query("event_id")
		if err := svc.RemovePlayer(epID); err != nil {
			return serviceError(c, err)
		}
		if id, err := uuid.Parse(eventID); err == nil {
			notifyRoster(hub, id)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// BulkAddFromPrevious returns a handler for POST /api/v1/events/:id/players/add-previous.
// Admin only. Copies confirmed players from the most recent other event.
// "no previous events" and "all players already added" come back as distinct
// 422 responses, not generic errors.
func BulkAddFromPrevious(svc *roster.Service, hub *websocket.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		eventID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid event id")
		}
		n, err := svc.AddFromPreviousEvent(eventID)
		if err != nil {
			return serviceError(c, err)
		}
		notifyRoster(hub, eventID)
		return c.JSON(fiber.Map{"added": n})
	}
}

// BulkAddActive returns a handler for POST /api/v1/events/:id/players/add-active.
// Admin only. Inserts every active player not already on the roster, as invited.
func BulkAddActive(svc *roster.Service, hub *websocket.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		eventID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid event id")
		}
		n, err := svc.AddActivePlayers(eventID)
		if err != nil {
			return serviceError(c, err)
		}
		notifyRoster(hub, eventID)
		return c.JSON(fiber.Map{"added": n})
	}
}
