package rsvp

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/fairwayops/league/internal/models"
)

// respond.go — inbound token resolution.
//
// A response token arrives over two surfaces: the browser link in an
// invitation (GET, rendered HTML) and the JSON API (POST). Both call
// Respond() here, so lookup and idempotence semantics cannot drift apart.

// Result classifies the outcome of a token response.
type Result string

const (
	ResultSuccess          Result = "success"           // status updated, responded_at stamped
	ResultAlreadyResponded Result = "already_responded" // token already used; current state returned, nothing mutated
	ResultInvalid          Result = "invalid"           // no event-player owns this token
	ResultError            Result = "error"             // the update itself failed
)

// Outcome is the structured answer to a token response. PlayerName and the
// event details are populated for success and already_responded so both
// surfaces can confirm to the respondent what they answered about.
type Outcome struct {
	Result       Result                   `json:"result"`
	Status       models.EventPlayerStatus `json:"status,omitempty"`
	EventID      string                   `json:"event_id,omitempty"`
	PlayerName   string                   `json:"player_name,omitempty"`
	EventDate    string                   `json:"event_date,omitempty"`
	CourseName   string                   `json:"course_name,omitempty"`
	FirstTeeTime string                   `json:"first_tee_time,omitempty"`
}

// Respond resolves a token and applies the answer ("yes" or "no").
//
// Idempotence: the first response wins. If responded_at is already set, the
// call is a read — it reports already_responded with the CURRENT status and
// mutates nothing, so clicking the link twice (or a mail scanner prefetching
// it after the player answered) can never flip an answer.
//
// An unknown token yields ResultInvalid with no detail beyond that — the
// token is the only credential, so we don't confirm or deny anything else.
func (s *Service) Respond(token string, answer models.EventPlayerStatus) Outcome {
	if answer != models.EventPlayerStatusYes && answer != models.EventPlayerStatusNo {
		return Outcome{Result: ResultError}
	}

	var ep models.EventPlayer
	err := s.db.Preload("Player").Preload("Event").Preload("Event.Course").
		First(&ep, "rsvp_token = ?", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Outcome{Result: ResultInvalid}
		}
		return Outcome{Result: ResultError}
	}

	out := Outcome{
		EventID:      ep.EventID.String(),
		PlayerName:   ep.Player.Name,
		EventDate:    ep.Event.Date.Format("Monday, January 2"),
		CourseName:   ep.Event.Course.Name,
		FirstTeeTime: ep.Event.FirstTeeTime,
	}

	if ep.RespondedAt != nil {
		out.Result = ResultAlreadyResponded
		out.Status = ep.Status
		return out
	}

	now := time.Now()
	err = s.db.Model(&ep).Updates(map[string]interface{}{
		"status":       answer,
		"responded_at": now,
	}).Error
	if err != nil {
		return Outcome{Result: ResultError}
	}

	// Best-effort: mirror the response time onto the message records carrying
	// this token so the delivery screen shows who answered. Failure here
	// doesn't undo the response.
	s.db.Model(&models.RsvpMessage{}).
		Where("response_token = ?", token).
		Update("responded_at", now)

	out.Result = ResultSuccess
	out.Status = answer
	return out
}

// ConfirmationHTML renders the small confirmation page the browser surface
// shows. It is deliberately plain: one sentence and the event details.
func ConfirmationHTML(o Outcome) string {
	switch o.Result {
	case ResultSuccess:
		verb := "You're in"
		if o.Status == models.EventPlayerStatusNo {
			verb = "Sorry you can't make it"
		}
		return fmt.Sprintf(
			"<html><body><h1>Thanks, %s!</h1><p>%s for %s at %s, first tee %s.</p></body></html>",
			o.PlayerName, verb, o.EventDate, o.CourseName, o.FirstTeeTime)
	case ResultAlreadyResponded:
		return fmt.Sprintf(
			"<html><body><h1>Already answered</h1><p>%s, you already responded %q for %s at %s. Contact the league admin to change it.</p></body></html>",
			o.PlayerName, string(o.Status), o.EventDate, o.CourseName)
	case ResultInvalid:
		return "<html><body><h1>Invalid or expired link</h1><p>This RSVP link isn't valid. Contact the league admin for a new one.</p></body></html>"
	default:
		return "<html><body><h1>Something went wrong</h1><p>Your response wasn't recorded. Please try again.</p></body></html>"
	}
}
