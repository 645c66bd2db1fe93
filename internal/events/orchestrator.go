// Package events is the top-level coordinator for the event lifecycle.
//
// Event creation and deletion are multi-step client-driven write sequences,
// not database transactions. Each sequence is an ordered step list with an
// explicit partial-failure policy: a failing step aborts the remaining steps
// and reports which step failed; steps that already completed stay in place.
// No automatic rollback is performed — that partial-failure possibility is a
// documented property of the system, preserved deliberately rather than
// papered over with atomicity the original workflow never had.
package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fairwayops/league/internal/models"
	"github.com/fairwayops/league/internal/roster"
	"github.com/fairwayops/league/internal/teesheet"
)

// StepError reports which step of a multi-step sequence failed. The wrapped
// store error keeps its original message — callers surface it verbatim.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// CreateParams are the inputs to event creation. FirstTeeTime is "HH:MM".
type CreateParams struct {
	Date               time.Time
	CourseID           uuid.UUID
	FirstTeeTime       string
	Holes              int // 9 or 18
	SlotsPerGroup      int // 2–4
	MaxPlayers         int
	TeeIntervalMinutes int
	Notes              *string
}

// Service orchestrates event create/edit/delete/lock. It owns no state beyond
// the DB handle and the roster service it delegates imports to.
type Service struct {
	db     *gorm.DB
	roster *roster.Service
}

func NewService(db *gorm.DB, rosterSvc *roster.Service) *Service {
	return &Service{db: db, roster: rosterSvc}
}

// Create runs the event-creation sequence:
//
//	1. "event"  — insert the Event row
//	2. "groups" — generate the tee groups and insert them in one batch
//	3. "roster" — bulk-import every active player as invited
//
// Step 2's generation is validated up front (before any write), so a bad
// parameter set fails with no state change. After step 1 succeeds, a failure
// in step 2 or 3 leaves the earlier rows in place and returns a StepError
// naming the failed step — the operator sees exactly what exists and what
// doesn't.
func (s *Service) Create(p CreateParams) (*models.Event, error) {
	// Validate everything before writing anything. Group generation doubles
	// as parameter validation: it checks the clock format, slot range,
	// interval, and max players.
	slots, err := teesheet.Generate(p.FirstTeeTime, p.TeeIntervalMinutes, p.SlotsPerGroup, p.MaxPlayers)
	if err != nil {
		return nil, err
	}
	if p.Holes != 9 && p.Holes != 18 {
		return nil, fmt.Errorf("holes must be 9 or 18, got %d", p.Holes)
	}
	var course models.Course
	if err := s.db.First(&course, "id = ?", p.CourseID).Error; err != nil {
		return nil, fmt.Errorf("course not found: %w", err)
	}

	// Step 1: the event row
	event := models.Event{
		Date:               p.Date,
		CourseID:           p.CourseID,
		FirstTeeTime:       p.FirstTeeTime,
		Holes:              p.Holes,
		SlotsPerGroup:      p.SlotsPerGroup,
		MaxPlayers:         p.MaxPlayers,
		TeeIntervalMinutes: p.TeeIntervalMinutes,
		Notes:              p.Notes,
	}
	if err := s.db.Create(&event).Error; err != nil {
		return nil, &StepError{Step: "event", Err: err}
	}

	// Step 2: the tee groups, one multi-row insert
	groups := make([]models.TeeGroup, 0, len(slots))
	for _, slot := range slots {
		groups = append(groups, models.TeeGroup{
			EventID:     event.ID,
			GroupNumber: slot.GroupNumber,
			TeeTime:     slot.TeeTime,
		})
	}
	if err := s.db.Create(&groups).Error; err != nil {
		return &event, &StepError{Step: "groups", Err: err}
	}

	// Step 3: the roster import. The insert inside is a single multi-row
	// INSERT, so this step is itself all-or-nothing.
	if _, err := s.roster.ImportActiveRoster(event.ID); err != nil {
		return &event, &StepError{Step: "roster", Err: err}
	}

	return &event, nil
}

// EditParams are the editable event fields. Nil means "leave unchanged".
type EditParams struct {
	Date         *time.Time
	CourseID     *uuid.UUID
	FirstTeeTime *string
	Holes        *int
	MaxPlayers   *int
	Notes        *string
}

// Edit updates event fields only. Groups and roster are untouched: editing
// max_players after creation does NOT regenerate the tee sheet. That is a
// documented limitation of the system, not an oversight — regeneration would
// silently destroy manual tee-time edits and assignments.
func (s *Service) Edit(eventID uuid.UUID, p EditParams) (*models.Event, error) {
	var event models.Event
	if err := s.db.First(&event, "id = ?", eventID).Error; err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if p.Date != nil {
		updates["date"] = *p.Date
	}
	if p.CourseID != nil {
		var course models.Course
		if err := s.db.First(&course, "id = ?", *p.CourseID).Error; err != nil {
			return nil, fmt.Errorf("course not found: %w", err)
		}
		updates["course_id"] = *p.CourseID
	}
	if p.FirstTeeTime != nil {
		if _, err := teesheet.ParseClock(*p.FirstTeeTime); err != nil {
			return nil, err
		}
		updates["first_tee_time"] = *p.FirstTeeTime
	}
	if p.Holes != nil {
		if *p.Holes != 9 && *p.Holes != 18 {
			return nil, fmt.Errorf("holes must be 9 or 18, got %d", *p.Holes)
		}
		updates["holes"] = *p.Holes
	}
	if p.MaxPlayers != nil {
		if *p.MaxPlayers < 1 {
			return nil, fmt.Errorf("max players must be at least 1, got %d", *p.MaxPlayers)
		}
		updates["max_players"] = *p.MaxPlayers
	}
	if p.Notes != nil {
		updates["notes"] = *p.Notes
	}
	if len(updates) == 0 {
		return &event, nil
	}

	if err := s.db.Model(&event).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// Delete removes an event and everything hanging off it, in dependency order:
//
//	1. "assignments"   — group assignments (reference groups)
//	2. "groups"        — tee groups (reference the event)
//	3. "event_players" — roster rows
//	4. "scores"        — round scores
//	5. "event"         — the event row itself
//
// Each step is checked before the next runs. A failure aborts the remaining
// steps and returns a StepError naming the failed one; rows already deleted
// stay deleted (abort-and-report, no retry, no rollback). The event row goes
// last, so a partially failed delete always leaves the event visible.
func (s *Service) Delete(eventID uuid.UUID) error {
	var event models.Event
	if err := s.db.First(&event, "id = ?", eventID).Error; err != nil {
		return err
	}

	groupIDs := s.db.Model(&models.TeeGroup{}).Select("id").Where("event_id = ?", eventID)

	if err := s.db.Where("group_id IN (?)", groupIDs).Delete(&models.GroupAssignment{}).Error; err != nil {
		return &StepError{Step: "assignments", Err: err}
	}
	if err := s.db.Where("event_id = ?", eventID).Delete(&models.TeeGroup{}).Error; err != nil {
		return &StepError{Step: "groups", Err: err}
	}
	// Message records reference event_players; they go before the roster rows
	if err := s.db.Where(
		"event_player_id IN (?)",
		s.db.Model(&models.EventPlayer{}).Select("id").Where("event_id = ?", eventID),
	).Delete(&models.RsvpMessage{}).Error; err != nil {
		return &StepError{Step: "messages", Err: err}
	}
	if err := s.db.Where("event_id = ?", eventID).Delete(&models.EventPlayer{}).Error; err != nil {
		return &StepError{Step: "event_players", Err: err}
	}
	if err := s.db.Where("event_id = ?", eventID).Delete(&models.RoundScore{}).Error; err != nil {
		return &StepError{Step: "scores", Err: err}
	}
	if err := s.db.Delete(&event).Error; err != nil {
		return &StepError{Step: "event", Err: err}
	}
	return nil
}

// SetLocked flips the event's lock flag. Once locked, every roster and
// assignment mutation path refuses to write — the check lives at those call
// sites (internal/roster, internal/assignment), not here and not in the UI.
func (s *Service) SetLocked(eventID uuid.UUID, locked bool) error {
	result := s.db.Model(&models.Event{}).Where("id = ?", eventID).Update("locked", locked)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetGroupTeeTime edits a single group's tee time — the only group field
// editable after creation.
func (s *Service) SetGroupTeeTime(groupID uuid.UUID, teeTime string) error {
	if _, err := teesheet.ParseClock(teeTime); err != nil {
		return err
	}
	result := s.db.Model(&models.TeeGroup{}).Where("id = ?", groupID).Update("tee_time", teeTime)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Get fetches one event with its course preloaded.
func (s *Service) Get(eventID uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := s.db.Preload("Course").First(&event, "id = ?", eventID).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// List returns all events, newest first.
func (s *Service) List() ([]models.Event, error) {
	var evs []models.Event
	if err := s.db.Preload("Course").Order("date DESC").Find(&evs).Error; err != nil {
		return nil, err
	}
	return evs, nil
}

// Groups returns an event's tee groups in tee-off order.
func (s *Service) Groups(eventID uuid.UUID) ([]models.TeeGroup, error) {
	var groups []models.TeeGroup
	if err := s.db.Where("event_id = ?", eventID).Order("group_number").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// IsStepError reports whether err is a StepError and, if so, which step.
func IsStepError(err error) (string, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step, true
	}
	return "", false
}
