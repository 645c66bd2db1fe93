// This file handles score entry and the rolling-average views.
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fairwayops/league/internal/models"
	"github.com/fairwayops/league/internal/scoring"
)

// SaveScoreRequest is one round result for one player at one event.
type SaveScoreRequest struct {
	PlayerID string  `json:"player_id"`
	Points   float64 `json:"points"`
	Notes    *string `json:"notes"`
}

// SaveScore returns a handler for POST /api/v1/events/:id/scores. Admin or
// scorer. One score per player per event: a repeat save overwrites the
// existing row rather than adding a second round.
func SaveScore(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		eventID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid event id")
		}
		var req SaveScoreRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		playerID, err := uuid.Parse(req.PlayerID)
		if err != nil {
			return badRequest(c, "invalid player id")
		}
		if req.Points < 0 {
			return badRequest(c, "points must not be negative")
		}

		var event models.Event
		if err := db.First(&event, "id = ?", eventID).Error; err != nil {
			return serviceError(c, err)
		}

		var score models.RoundScore
		err = db.Where("event_id = ? AND player_id = ?", eventID, playerID).First(&score).Error
		switch {
		case err == nil:
			score.Points = req.Points
			score.Notes = req.Notes
			if err := db.Save(&score).Error; err != nil {
				return serviceError(c, err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			score = models.RoundScore{
				EventID:  eventID,
				PlayerID: playerID,
				Points:   req.Points,
				Notes:    req.Notes,
			}
			if err := db.Create(&score).Error; err != nil {
				return serviceError(c, err)
			}
		default:
			return serviceError(c, err)
		}

		return c.JSON(fiber.Map{
			"id":     score.ID.String(),
			"points": score.Points,
		})
	}
}

// GetEventScores returns a handler for GET /api/v1/events/:id/scores.
func GetEventScores(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		eventID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid event id")
		}
		var scores []models.RoundScore
		if err := db.Preload("Player").
			Where("event_id = ?", eventID).
			Find(&scores).Error; err != nil {
			return serviceError(c, err)
		}
		out := make([]fiber.Map, 0, len(scores))
		for _, s := range scores {
			out = append(out, fiber.Map{
				"id":          s.ID.String(),
				"player_id":   s.PlayerID.String(),
				"player_name": s.Player.Name,
				"points":      s.Points,
				"notes":       s.Notes,
			})
		}
		return c.JSON(out)
	}
}

// GetLeaderboard returns a handler for GET /api/v1/leaderboard: every player
// with at least one recorded round, ordered by rolling average descending.
func GetLeaderboard(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := scoring.Leaderboard(db)
		if err != nil {
			return serviceError(c, err)
		}
		out := make([]fiber.Map, 0, len(rows))
		for _, r := range rows {
			out = append(out, fiber.Map{
				"player_id":     r.PlayerID.String(),
				"player_name":   r.PlayerName,
				"average":       r.Average,
				"rounds":        r.Rounds,
				"score_to_beat": scoring.ScoreToBeat(r),
			})
		}
		return c.JSON(out)
	}
}

// GetPlayerAverage returns a handler for GET /api/v1/players/:id/average.
func GetPlayerAverage(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		playerID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return badRequest(c, "invalid player id")
		}
		avg, err := scoring.PlayerAverage(db, playerID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{
			"player_id":     avg.PlayerID.String(),
			"average":       avg.Average,
			"rounds":        avg.Rounds,
			"score_to_beat": scoring.ScoreToBeat(avg),
		})
	}
}
