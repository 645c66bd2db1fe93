// Package rsvp implements the RSVP messaging pipeline: composing and queuing
// per-recipient messages from templates, dispatching them through the email
// and SMS transports at a provider-friendly pace, and resolving inbound
// token responses idempotently.
package rsvp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fairwayops/league/internal/models"
)

// Vars holds the substitution values available to a template body/subject.
// Rendering is literal {{name}} replacement — no escaping, no recursion.
// A placeholder with no matching variable is left as-is in the output.
type Vars struct {
	PlayerName   string
	EventDate    string
	CourseName   string
	FirstTeeTime string
	Holes        int
	RsvpLink     string
}

// Render substitutes the template variables into text.
func Render(text string, v Vars) string {
	r := strings.NewReplacer(
		"{{player_name}}", v.PlayerName,
		"{{event_date}}", v.EventDate,
		"{{course_name}}", v.CourseName,
		"{{first_tee_time}}", v.FirstTeeTime,
		"{{holes}}", strconv.Itoa(v.Holes),
		"{{rsvp_link}}", v.RsvpLink,
	)
	return r.Replace(text)
}

// ValidateTemplate checks a template's channel/subject rules:
// email and both-channel templates need a subject line, sms-only templates
// must not have one (SMS has no subject field to put it in).
func ValidateTemplate(t *models.RsvpTemplate) error {
	switch t.Channel {
	case models.RsvpChannelEmail, models.RsvpChannelBoth:
		if t.Subject == nil || *t.Subject == "" {
			return fmt.Errorf("a subject is required for %s templates", t.Channel)
		}
	case models.RsvpChannelSms:
		if t.Subject != nil && *t.Subject != "" {
			return fmt.Errorf("sms templates must not have a subject")
		}
	default:
		return fmt.Errorf("channel must be 'email', 'sms', or 'both', got %q", t.Channel)
	}
	if t.Name == "" {
		return fmt.Errorf("template name is required")
	}
	if t.Body == "" {
		return fmt.Errorf("template body is required")
	}
	return nil
}
