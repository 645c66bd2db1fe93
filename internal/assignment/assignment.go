// Package assignment places playing players into tee-group slots.
//
// The invariants it owns:
//   - at most one assignment per (group, position) — backed by a unique index
//   - at most one assignment per player per event — enforced here by always
//     deleting a player's existing assignment before inserting a new one
//
// Concurrent operators moving players at the same time are not mutually
// excluded: last write wins. That is the accepted conflict policy for a tool
// where two admins dragging the same tee sheet is rare and self-correcting.
package assignment

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fairwayops/league/internal/models"
)

// ErrEventLocked is returned by every mutation once the event is locked.
var ErrEventLocked = errors.New("event is locked")

// Service owns slot assignment for events.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

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

// eventGroupIDs is the subquery "ids of this event's groups", used to scope
// assignment deletes and lookups to one event.
func (s *Service) eventGroupIDs(eventID uuid.UUID) *gorm.DB {
	return s.db.Model(&models.TeeGroup{}).Select("id").Where("event_id = ?", eventID)
}

// AutoAssign wipes the event's current assignments and refills the tee sheet:
// groups in group-number order, positions 1..slots_per_group within each
// group, consuming players with status "playing" in their natural fetch
// order. When players run out the remaining slots stay empty; when slots run
// out the remaining players stay unassigned. Returns how many players were
// seated.
func (s *Service) AutoAssign(eventID uuid.UUID) (int, error) {
	event, err := s.loadEvent(eventID, true)
	if err != nil {
		return 0, err
	}

	// Clear the sheet first — auto-assign is a full re-deal, not a patch
	err = s.db.Where("group_id IN (?)", s.eventGroupIDs(eventID)).
		Delete(&models.GroupAssignment{}).Error
	if err != nil {
		return 0, err
	}

	var groups []models.TeeGroup
	if err := s.db.Where("event_id = ?", eventID).Order("group_number").Find(&groups).Error; err != nil {
		return 0, err
	}

	var playing []models.EventPlayer
	err = s.db.Where("event_id = ? AND status = ?", eventID, models.EventPlayerStatusPlaying).
		Find(&playing).Error
	if err != nil {
		return 0, err
	}

	assigned := 0
	next := 0
	for _, group := range groups {
		for pos := 1; pos <= event.SlotsPerGroup; pos++ {
			if next >= len(playing) {
				return assigned, nil
			}
			a := models.GroupAssignment{
				GroupID:  group.ID,
				PlayerID: playing[next].PlayerID,
				Position: pos,
			}
			if err := s.db.Create(&a).Error; err != nil {
				return assigned, err
			}
			next++
			assigned++
		}
	}
	return assigned, nil
}

// Move places a player into a specific slot. Any existing assignment for the
// player within this event is deleted first, so a player can never hold two
// slots — moving from slot A to slot B leaves exactly one row, at B.
// No optimistic locking: if two operators race, the later write stands.
func (s *Service) Move(eventID, playerID, groupID uuid.UUID, position int) error {
	event, err := s.loadEvent(eventID, true)
	if err != nil {
		return err
	}
	if position < 1 || position > event.SlotsPerGroup {
		return fmt.Errorf("position must be between 1 and %d, got %d", event.SlotsPerGroup, position)
	}

	// The target group must belong to this event
	var group models.TeeGroup
	if err := s.db.First(&group, "id = ? AND event_id = ?", groupID, eventID).Error; err != nil {
		return fmt.Errorf("group not found in event: %w", err)
	}

	// Single-slot-per-player invariant: drop the old seat before taking the new one
	err = s.db.Where("player_id = ? AND group_id IN (?)", playerID, s.eventGroupIDs(eventID)).
		Delete(&models.GroupAssignment{}).Error
	if err != nil {
		return err
	}

	a := models.GroupAssignment{GroupID: groupID, PlayerID: playerID, Position: position}
	return s.db.Create(&a).Error
}

// Remove takes a player off the tee sheet entirely.
func (s *Service) Remove(eventID, playerID uuid.UUID) error {
	if _, err := s.loadEvent(eventID, true); err != nil {
		return err
	}
	return s.db.Where("player_id = ? AND group_id IN (?)", playerID, s.eventGroupIDs(eventID)).
		Delete(&models.GroupAssignment{}).Error
}

// Unassigned returns the players with status "playing" who hold no slot in
// the event. It is recomputed from the store on every call — there is no
// cache to go stale after a mutation.
func (s *Service) Unassigned(eventID uuid.UUID) ([]models.EventPlayer, error) {
	if _, err := s.loadEvent(eventID, false); err != nil {
		return nil, err
	}

	var eps []models.EventPlayer
	err := s.db.Preload("Player").
		Where("event_id = ? AND status = ?", eventID, models.EventPlayerStatusPlaying).
		Where("player_id NOT IN (?)",
			s.db.Model(&models.GroupAssignment{}).Select("player_id").
				Where("group_id IN (?)", s.eventGroupIDs(eventID))).
		Find(&eps).Error
	if err != nil {
		return nil, err
	}
	return eps, nil
}

// Assignments returns the event's assignments with players preloaded, ordered
// for tee-sheet display.
func (s *Service) Assignments(eventID uuid.UUID) ([]models.GroupAssignment, error) {
	var as []models.GroupAssignment
	err := s.db.Preload("Player").Preload("Group").
		Where("group_id IN (?)", s.eventGroupIDs(eventID)).
		Find(&as).Error
	if err != nil {
		return nil, err
	}
	return as, nil
}
