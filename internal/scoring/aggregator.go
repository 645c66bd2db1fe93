// Package scoring computes rolling point averages from players' score history.
//
// A player's "current" average is the mean of their 6 most recent round scores
// by creation time, across all events. Everything in this package reads the
// score history and derives values from it — nothing here writes.
package scoring

import (
	"sort"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/fairwayops/league/internal/models"
)

// RollingWindow is how many recent rounds feed a player's average.
const RollingWindow = 6

// Average is one player's rolling average snapshot.
// Rounds is how many scores actually backed the computation (0..RollingWindow);
// a zero-round Average is the "no data" sentinel (Average 0, Rounds 0).
type Average struct {
	PlayerID   uuid.UUID `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Average    float64   `json:"average"`
	Rounds     int       `json:"rounds"`
}

// PlayerAverage fetches up to the RollingWindow most recently created round
// scores for the player and returns their mean. Players with no scores get
// the zero-value sentinel rather than an error — "hasn't played yet" is a
// normal state, not a failure.
func PlayerAverage(db *gorm.DB, playerID uuid.UUID) (Average, error) {
	var scores []models.RoundScore
	err := db.Where("player_id = ?", playerID).
		Order("created_at DESC").
		Limit(RollingWindow).
		Find(&scores).Error
	if err != nil {
		return Average{}, err
	}

	avg := Average{PlayerID: playerID, Rounds: len(scores)}
	if len(scores) == 0 {
		return avg, nil
	}

	var sum float64
	for _, s := range scores {
		sum += s.Points
	}
	avg.Average = sum / float64(len(scores))
	return avg, nil
}

// ScoreToBeat renders an average for display. Players with fewer than
// RollingWindow rounds show as "New" — a thin history would make the number
// look more authoritative than it is. At a full window the average is
// rounded to the nearest integer.
func ScoreToBeat(a Average) string {
	if a.Rounds < RollingWindow {
		return "New"
	}
	return strconv.Itoa(int(roundHalfUp(a.Average)))
}

// GroupScoreToBeat computes a tee group's aggregate target: the rounded mean
// of the members' raw (unrounded) averages. If ANY member is still "New" the
// aggregate is undefined and nil is returned — the group fails closed rather
// than averaging a partial picture. That asymmetry is deliberate.
func GroupScoreToBeat(members []Average) *int {
	if len(members) == 0 {
		return nil
	}
	var sum float64
	for _, m := range members {
		if m.Rounds < RollingWindow {
			return nil
		}
		sum += m.Average
	}
	v := int(roundHalfUp(sum / float64(len(members))))
	return &v
}

// Leaderboard computes averages for every active player concurrently and
// returns them sorted by average, highest first.
//
// This is a scatter/gather: one sub-query per player, joined on completion.
// The failure policy is all-or-nothing — if any single player's fetch fails,
// the whole leaderboard fetch fails rather than silently omitting a player.
// errgroup gives us exactly that: the first error cancels the batch and is
// the one returned.
//
// Ties are not broken; the sort is stable over the underlying player fetch
// order, so equal averages keep that order. Accepted ambiguity.
func Leaderboard(db *gorm.DB) ([]Average, error) {
	var players []models.Player
	if err := db.Where("is_active = ?", true).Order("name").Find(&players).Error; err != nil {
		return nil, err
	}

	// Each goroutine writes only its own index, so the slice needs no mutex.
	results := make([]Average, len(players))
	var g errgroup.Group
	for i, p := range players {
		i, p := i, p
		g.Go(func() error {
			avg, err := PlayerAverage(db, p.ID)
			if err != nil {
				return err
			}
			avg.PlayerName = p.Name
			results[i] = avg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Average > results[b].Average
	})
	return results, nil
}

// roundHalfUp rounds to the nearest integer with .5 going up, matching how
// golfers read "round the average".
func roundHalfUp(f float64) float64 {
	if f < 0 {
		return float64(int(f - 0.5))
	}
	return float64(int(f + 0.5))
}
