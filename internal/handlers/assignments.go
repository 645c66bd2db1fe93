// This file handles the tee-sheet routes: auto-deal, manual moves, and the
// composed tee-sheet view that pairs each group with its score-to-beat.
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fairwayops/league/internal/assignment"
	"github.com/fairwayops/league/internal/models"
	"github.com/fairwayops/league/internal/scoring"
	"github.com/fairwayops/league/internal/websocket"
)

// AssignedPlayerResponse is one slot on the tee sheet.
type AssignedPlayerResponse struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Position   int    `json:"position"`
	Rounds     int    `json:"rounds"`
	Average    string `json:"average"` // Rounded average, or "New"
}

// TeeSheetGroupResponse is one tee group with its players and the group
// score-to-beat (null until every member has a full scoring history).
type TeeSheetGroupResponse struct {
	ID          string                   `json:"id"`
	GroupNumber int                      `json:"group_number"`
	TeeTime     string                   `json:"tee_time"`
	ScoreToBeat *int                     `json:"score_to_beat"`
	Players     []AssignedPlayerResponse `json:"players"`
}

func notifyAssignments(hub *websocket.Hub, eventID uuid.UUID) {
	if hub != nil {
		hub.BroadcastToEvent(eventID.String(), []byte(`{"type":"assignments_changed"}`))
	}
}

// AutoAssignGroups returns a handler for POST /api/v1/events/:id/assignments/auto.
// Admin only. Clears the sheet and re-deals confirmed players into groups.
func AutoAssignGroups(svc *assignment.Service, hub *websocket.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		eventID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid event id")
		}
		n, err := svc.AutoAssign(eventID)
		if err != nil {
			return serviceError(c, err)
		}
		notifyAssignments(hub, eventID)
		return c.JSON(fiber.Map{"assigned": n})
	}
}

// MoveAssignment returns a handler for PUT /api/v1/events/:id/assignments.
// Admin only. Places a player into a specific group slot, displacing their
// previous slot if any.
func MoveAssignment(svc *assignment.Service, hub *websocket.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		eventID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid event id")
		}
		var req struct {
			PlayerID string `json:"player_id"`
			GroupID  string `json:"group_id"`
			Position int    `json:"position"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		playerID, err := uuid.Parse(req.PlayerID)
		if err != nil {
			return badRequest(c, "invalid player id")
		}
		groupID, err := uuid.Parse(req.GroupID)
		if err != nil {
			return badRequest(c, "invalid group id")
		}
		if err := svc.Move(eventID, playerID, groupID, req.Position); err != nil {
			return serviceError(c, err)
		}
		notifyAssignments(hub, eventID)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// RemoveAssignment returns a handler for DELETE /api/v1/events/:id/assignments/:playerId.
// Admin only. Takes the player off the tee sheet without touching their roster row.
func RemoveAssignment(svc *assignment.Service, hub *websocket.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		eventID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid event id")
		}
		playerID, err := uuid.Parse(c.Params("playerId"))
		if err != nil {
			return badRequest(c, "invalid player id")
		}
		if err := svc.Remove(eventID, playerID); err != nil {
			return serviceError(c, err)
		}
		notifyAssignments(hub, eventID)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GetUnassigned returns a handler for GET /api/v1/events/:id/assignments/unassigned:
// confirmed players not yet placed on the tee sheet.
func GetUnassigned(svc *assignment.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		eventID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid event id")
		}
		eps, err := svc.Unassigned(eventID)
		if err != nil {
			return serviceError(c, err)
		}
		out := make([]fiber.Map, 0, len(eps))
		for _, ep := range eps {
			out = append(out, fiber.Map{
				"player_id":   ep.PlayerID.String(),
				"player_name": ep.Player.Name,
			})
		}
		return c.JSON(out)
	}
}

// GetTeeSheet returns a handler for GET /api/v1/events/:id/groups: every
// group with its assigned players and the group score-to-beat. Averages are
// computed per player against their full league history, not just this event.
func GetTeeSheet(db *gorm.DB, svc *assignment.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		eventID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid event id")
		}

		var groups []models.TeeGroup
		if err := db.Where("event_id = ?", eventID).
			Order("group_number ASC").
			Find(&groups).Error; err != nil {
			return serviceError(c, err)
		}

		assignments, err := svc.Assignments(eventID)
		if err != nil {
			return serviceError(c, err)
		}
		byGroup := make(map[uuid.UUID][]models.GroupAssignment)
		for _, a := range assignments {
			byGroup[a.GroupID] = append(byGroup[a.GroupID], a)
		}

		out := make([]TeeSheetGroupResponse, 0, len(groups))
		for _, g := range groups {
			resp := TeeSheetGroupResponse{
				ID:          g.ID.String(),
				GroupNumber: g.GroupNumber,
				TeeTime:     g.TeeTime,
				Players:     []AssignedPlayerResponse{},
			}
			members := make([]scoring.Average, 0, len(byGroup[g.ID]))
			for _, a := range byGroup[g.ID] {
				avg, err := scoring.PlayerAverage(db, a.PlayerID)
				if err != nil {
					return serviceError(c, err)
				}
				members = append(members, avg)
				resp.Players = append(resp.Players, AssignedPlayerResponse{
					PlayerID:   a.PlayerID.String(),
					PlayerName: a.Player.Name,
					Position:   a.Position,
					Rounds:     avg.Rounds,
					Average:    scoring.ScoreToBeat(avg),
				})
			}
			resp.ScoreToBeat = scoring.GroupScoreToBeat(members)
			out = append(out, resp)
		}
		return c.JSON(out)
	}
}
