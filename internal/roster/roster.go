// Package roster manages the player-to-event association lifecycle: who is on
// an event's roster, what their RSVP status is, and the bulk import paths that
// build a roster from the active player list or a prior event.
//
// Every mutation here checks the event's lock flag first. Locking an event is
// how an admin freezes the tee sheet on game day — the check lives at these
// call sites, not in the UI.
package roster

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fairwayops/league/internal/models"
)

// Business-rule errors surfaced to the user as-is.
var (
	// ErrEventLocked is returned by every mutation path once an event is locked.
	ErrEventLocked = errors.New("event is locked")

	// ErrCapacityReached rejects a transition to "yes" once the confirmed
	// count has reached the event's max players. Capital M because the text
	// is shown verbatim to the operator.
	ErrCapacityReached = errors.New("Max players reached — the event roster is full")

	// ErrNoPreviousEvents means a copy-from-prior-event was requested but no
	// other event exists to copy from.
	ErrNoPreviousEvents = errors.New("no previous events")

	// ErrAllAlreadyAdded means a bulk add found nobody new to insert.
	ErrAllAlreadyAdded = errors.New("all players already added")
)

// Service owns roster operations for events. It is stateless beyond the DB
// handle, so one instance serves the whole process.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// loadEvent fetches the event and enforces the lock flag when the caller is
// about to mutate.
func (s *Service) loadEvent(eventID uuid.UUID, mutating bool) (*models.Event, error) {
	var event models.Event
	if err := s.db.First(&event, "id = ?", eventID).Error; err != nil {
		return nil, err
	}
	if mutating && event.Locked {
		return nil, ErrEventLocked
	}
	return &event, nil
}

// ImportActiveRoster inserts every active player onto the event's roster with
// status "invited". The insert is a single multi-row INSERT, so it is
// all-or-nothing: either the whole roster lands or none of it does and the
// error is surfaced to the caller. Returns the number of players imported.
//
// Called by the event orchestrator at creation time; also usable directly to
// rebuild a roster that failed to import.
func (s *Service) ImportActiveRoster(eventID uuid.UUID) (int, error) {
	if _, err := s.loadEvent(eventID, true); err != nil {
		return 0, err
	}

	var players []models.Player
	if err := s.db.Where("is_active = ?", true).Order("name").Find(&players).Error; err != nil {
		return 0, err
	}
	if len(players) == 0 {
		return 0, nil
	}

	rows := make([]models.EventPlayer, 0, len(players))
	for _, p := range players {
		rows = append(rows, models.EventPlayer{
			EventID:  eventID,
			PlayerID: p.ID,
			Status:   models.EventPlayerStatusInvited,
		})
	}
	if err := s.db.Create(&rows).Error; err != nil {
		return 0, err
	}
	return len(rows), nil
}

// SetStatus transitions a single event-player to the given status.
//
// Transitioning to "yes" is capacity-checked: if the event already has
// max_players confirmed (not counting this row, in case it is already yes),
// the transition is rejected with ErrCapacityReached and nothing changes.
// No cap applies to any other status — a waitlist can grow without bound.
func (s *Service) SetStatus(eventPlayerID uuid.UUID, status models.EventPlayerStatus) error {
	if !models.ValidEventPlayerStatus(status) {
		return fmt.Errorf("unknown status %q", status)
	}

	var ep models.EventPlayer
	if err := s.db.First(&ep, "id = ?", eventPlayerID).Error; err != nil {
		return err
	}
	event, err := s.loadEvent(ep.EventID, true)
	if err != nil {
		return err
	}

	if status == models.EventPlayerStatusYes && ep.Status != models.EventPlayerStatusYes {
		var yesCount int64
		err := s.db.Model(&models.EventPlayer{}).
			Where("event_id = ? AND status = ?", ep.EventID, models.EventPlayerStatusYes).
			Count(&yesCount).Error
		if err != nil {
			return err
		}
		if yesCount >= int64(event.MaxPlayers) {
			return ErrCapacityReached
		}
	}

	return s.db.Model(&ep).Update("status", status).Error
}

// BulkSetStatus applies one status uniformly to a set of event-players.
//
// The bulk path performs NO capacity check — that asymmetry with SetStatus is
// deliberate: bulk transitions are an admin tool ("mark these 12 as playing")
// and the operator is trusted to have counted. Collapsing the asymmetry would
// change observed behavior for existing leagues.
func (s *Service) BulkSetStatus(eventID uuid.UUID, ids []uuid.UUID, status models.EventPlayerStatus) error {
	if !models.ValidEventPlayerStatus(status) {
		return fmt.Errorf("unknown status %q", status)
	}
	if _, err := s.loadEvent(eventID, true); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return s.db.Model(&models.EventPlayer{}).
		Where("event_id = ? AND id IN ?", eventID, ids).
		Update("status", status).Error
}

// AddPlayer puts a single player on the event's roster.
func (s *Service) AddPlayer(eventID, playerID uuid.UUID, status models.EventPlayerStatus) (*models.EventPlayer, error) {
	if !models.ValidEventPlayerStatus(status) {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	if _, err := s.loadEvent(eventID, true); err != nil {
		return nil, err
	}

	ep := models.EventPlayer{EventID: eventID, PlayerID: playerID, Status: status}
	if err := s.db.Create(&ep).Error; err != nil {
		// The (event_id, player_id) unique index turns a duplicate add into a
		// constraint violation; translate it into a readable message.
		if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "duplicate") {
			return nil, fmt.Errorf("player is already on this event's roster")
		}
		return nil, err
	}
	return &ep, nil
}

// RemovePlayer deletes an event-player row and any group assignment that
// references the player within this event. The store does not cascade
// event_player → group_assignment, so the referential cleanup is ours.
func (s *Service) RemovePlayer(eventPlayerID uuid.UUID) error {
	var ep models.EventPlayer
	if err := s.db.First(&ep, "id = ?", eventPlayerID).Error; err != nil {
		return err
	}
	if _, err := s.loadEvent(ep.EventID, true); err != nil {
		return err
	}

	// Assignments first: delete where the group belongs to this event and the
	// player matches. A subquery keeps it to one round trip.
	err := s.db.Where(
		"player_id = ? AND group_id IN (?)",
		ep.PlayerID,
		s.db.Model(&models.TeeGroup{}).Select("id").Where("event_id = ?", ep.EventID),
	).Delete(&models.GroupAssignment{}).Error
	if err != nil {
		return err
	}

	return s.db.Delete(&ep).Error
}

// AddFromPreviousEvent copies confirmed players from the most recent other
// event onto this one, with status "yes".
//
// "Most recent other event" means the other event with the latest date.
// The two empty outcomes are distinct, user-visible conditions:
//   - ErrNoPreviousEvents: there is no other event at all
//   - ErrAllAlreadyAdded: every confirmed player is already on this roster
//
// Returns the number of players copied.
func (s *Service) AddFromPreviousEvent(eventID uuid.UUID) (int, error) {
	if _, err := s.loadEvent(eventID, true); err != nil {
		return 0, err
	}

	var prev models.Event
	err := s.db.Where("id <> ?", eventID).Order("date DESC").First(&prev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNoPreviousEvents
		}
		return 0, err
	}

	// Confirmed players on the previous event who aren't on this one yet
	var candidates []models.EventPlayer
	err = s.db.Where("event_id = ? AND status = ?", prev.ID, models.EventPlayerStatusYes).
		Where("player_id NOT IN (?)",
			s.db.Model(&models.EventPlayer{}).Select("player_id").Where("event_id = ?", eventID)).
		Find(&candidates).Error
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, ErrAllAlreadyAdded
	}

	rows := make([]models.EventPlayer, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, models.EventPlayer{
			EventID:  eventID,
			PlayerID: c.PlayerID,
			Status:   models.EventPlayerStatusYes,
		})
	}
	if err := s.db.Create(&rows).Error; err != nil {
		return 0, err
	}
	return len(rows), nil
}

// AddActivePlayers inserts every active player not already on the roster,
// with status "invited". Same skip-existing pattern as AddFromPreviousEvent
// but sourced from the full active-player list.
func (s *Service) AddActivePlayers(eventID uuid.UUID) (int, error) {
	if _, err := s.loadEvent(eventID, true); err != nil {
		return 0, err
	}

	var missing []models.Player
	err := s.db.Where("is_active = ?", true).
		Where("id NOT IN (?)",
			s.db.Model(&models.EventPlayer{}).Select("player_id").Where("event_id = ?", eventID)).
		Order("name").
		Find(&missing).Error
	if err != nil {
		return 0, err
	}
	if len(missing) == 0 {
		return 0, ErrAllAlreadyAdded
	}

	rows := make([]models.EventPlayer, 0, len(missing))
	for _, p := range missing {
		rows = append(rows, models.EventPlayer{
			EventID:  eventID,
			PlayerID: p.ID,
			Status:   models.EventPlayerStatusInvited,
		})
	}
	if err := s.db.Create(&rows).Error; err != nil {
		return 0, err
	}
	return len(rows), nil
}

// List returns the event's roster with players preloaded. statusFilter narrows
// to one status; empty means all. With no explicit sort requested, the default
// display order is by status rank — yes, invited, waitlist, no, then anything
// else — and by player name within a rank.
func (s *Service) List(eventID uuid.UUID, statusFilter models.EventPlayerStatus) ([]models.EventPlayer, error) {
	query := s.db.Preload("Player").Where("event_id = ?", eventID)
	if statusFilter != "" {
		query = query.Where("status = ?", statusFilter)
	}

	var eps []models.EventPlayer
	if err := query.Find(&eps).Error; err != nil {
		return nil, err
	}

	// Rank ordering lives in Go (models.StatusRank), not SQL, so the sort
	// happens here. Rosters are league-sized; in-memory sort is fine.
	sort.SliceStable(eps, func(a, b int) bool {
		ra, rb := models.StatusRank(eps[a].Status), models.StatusRank(eps[b].Status)
		if ra != rb {
			return ra < rb
		}
		return eps[a].Player.Name < eps[b].Player.Name
	})
	return eps, nil
}
