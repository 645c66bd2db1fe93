package rsvp

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fairwayops/league/internal/models"
)

// ErrNoValidContacts is returned when a queue request would produce zero
// messages — every selected player is missing the contact field the chosen
// channel needs. Text shown verbatim to the operator.
var ErrNoValidContacts = errors.New("No valid contact information for selected players")

// Service is the messaging pipeline. Email/sms may be nil (transport
// unavailable); queuing still works and dispatch degrades to leaving
// messages pending.
type Service struct {
	db      *gorm.DB
	email   EmailSender
	sms     SMSSender
	baseURL string        // public base for {{rsvp_link}}
	delay   time.Duration // fixed pause between consecutive sends
}

func NewService(db *gorm.DB, email EmailSender, sms SMSSender, baseURL string, delay time.Duration) *Service {
	return &Service{db: db, email: email, sms: sms, baseURL: baseURL, delay: delay}
}

// expandChannels turns the requested channel into the concrete channels a
// message row can carry: "both" becomes email + sms.
func expandChannels(c models.RsvpChannel) ([]models.RsvpChannel, error) {
	switch c {
	case models.RsvpChannelEmail:
		return []models.RsvpChannel{models.RsvpChannelEmail}, nil
	case models.RsvpChannelSms:
		return []models.RsvpChannel{models.RsvpChannelSms}, nil
	case models.RsvpChannelBoth:
		return []models.RsvpChannel{models.RsvpChannelEmail, models.RsvpChannelSms}, nil
	}
	return nil, fmt.Errorf("channel must be 'email', 'sms', or 'both', got %q", c)
}

// contactFor returns the player's address for a concrete channel, or "" when
// the field is missing.
func contactFor(p *models.Player, c models.RsvpChannel) string {
	switch c {
	case models.RsvpChannelEmail:
		if p.Email != nil {
			return *p.Email
		}
	case models.RsvpChannelSms:
		if p.Phone != nil {
			return *p.Phone
		}
	}
	return ""
}

// Queue builds one pending RsvpMessage per (selected player, concrete
// channel) combination where the player has the needed contact field.
// Players missing it are silently skipped — the operator learns the real
// reach only from the returned count. Zero queueable messages fails the
// whole operation with ErrNoValidContacts and writes nothing.
//
// Queuing also stamps invite_sent_at on each player that got at least one
// message. Dispatch is a separate step: if the transports are down, the
// queue operation still succeeds and the messages wait as pending.
func (s *Service) Queue(eventID uuid.UUID, eventPlayerIDs []uuid.UUID, templateID uuid.UUID, channel models.RsvpChannel) (int, error) {
	channels, err := expandChannels(channel)
	if err != nil {
		return 0, err
	}

	var template models.RsvpTemplate
	if err := s.db.First(&template, "id = ?", templateID).Error; err != nil {
		return 0, fmt.Errorf("template not found: %w", err)
	}

	var eps []models.EventPlayer
	err = s.db.Preload("Player").
		Where("event_id = ? AND id IN ?", eventID, eventPlayerIDs).
		Find(&eps).Error
	if err != nil {
		return 0, err
	}

	// Build the whole batch in memory first so a zero-message request can
	// fail before any write happens (validation errors leave no partial state).
	var messages []models.RsvpMessage
	reached := make(map[uuid.UUID]bool)
	for _, ep := range eps {
		for _, ch := range channels {
			recipient := contactFor(&ep.Player, ch)
			if recipient == "" {
				continue // silently skipped per policy
			}
			messages = append(messages, models.RsvpMessage{
				EventPlayerID: ep.ID,
				TemplateID:    template.ID,
				Channel:       ch,
				Recipient:     recipient,
				Status:        models.RsvpMessageStatusPending,
				ResponseToken: ep.RsvpToken,
			})
			reached[ep.ID] = true
		}
	}
	if len(messages) == 0 {
		return 0, ErrNoValidContacts
	}

	if err := s.db.Create(&messages).Error; err != nil {
		return 0, err
	}

	now := time.Now()
	reachedIDs := make([]uuid.UUID, 0, len(reached))
	for id := range reached {
		reachedIDs = append(reachedIDs, id)
	}
	err = s.db.Model(&models.EventPlayer{}).
		Where("id IN ?", reachedIDs).
		Update("invite_sent_at", now).Error
	if err != nil {
		return 0, err
	}

	return len(messages), nil
}

// DispatchReport summarizes one dispatch pass.
type DispatchReport struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"` // transport unavailable; message stays pending
}

// Dispatch renders and sends every pending message for the event, one at a
// time with a fixed pause between them.
//
// The loop is deliberately serialized and paced — the downstream providers
// rate-limit per sender, so throughput is bounded by design. Do not
// parallelize this.
//
// Per-message outcomes are terminal: sent (with timestamp + provider id) or
// failed (with error text); a failed message is not retried here — retry is
// a manual re-trigger by an operator, and re-triggering only touches rows
// still pending. A transport failure never aborts the batch; the loop moves
// on to the next recipient.
func (s *Service) Dispatch(eventID uuid.UUID) (DispatchReport, error) {
	var report DispatchReport

	var event models.Event
	if err := s.db.Preload("Course").First(&event, "id = ?", eventID).Error; err != nil {
		return report, err
	}

	var pending []models.RsvpMessage
	err := s.db.Preload("EventPlayer").Preload("EventPlayer.Player").Preload("Template").
		Where("status = ?", models.RsvpMessageStatusPending).
		Where("event_player_id IN (?)",
			s.db.Model(&models.EventPlayer{}).Select("id").Where("event_id = ?", eventID)).
		Order("created_at").
		Find(&pending).Error
	if err != nil {
		return report, err
	}

	for i, msg := range pending {
		if i > 0 && s.delay > 0 {
			time.Sleep(s.delay)
		}

		vars := Vars{
			PlayerName:   msg.EventPlayer.Player.Name,
			EventDate:    event.Date.Format("Monday, January 2"),
			CourseName:   event.Course.Name,
			FirstTeeTime: event.FirstTeeTime,
			Holes:        event.Holes,
			RsvpLink:     fmt.Sprintf("%s/rsvp/%s", s.baseURL, msg.ResponseToken),
		}
		body := Render(msg.Template.Body, vars)

		var externalID string
		var sendErr error
		switch msg.Channel {
		case models.RsvpChannelEmail:
			if s.email == nil {
				report.Skipped++
				continue // stays pending; "queued, not sent"
			}
			subject := ""
			if msg.Template.Subject != nil {
				subject = Render(*msg.Template.Subject, vars)
			}
			externalID, sendErr = s.email.SendEmail(msg.Recipient, subject, body)
		case models.RsvpChannelSms:
			if s.sms == nil {
				report.Skipped++
				continue
			}
			externalID, sendErr = s.sms.SendSms(msg.Recipient, body)
		default:
			// Unreachable for rows written by Queue; recorded as failed so a
			// bad row can't wedge the queue forever.
			sendErr = fmt.Errorf("unknown channel %q", msg.Channel)
		}

		now := time.Now()
		if sendErr != nil {
			detail := sendErr.Error()
			updateErr := s.db.Model(&models.RsvpMessage{}).Where("id = ?", msg.ID).Updates(map[string]interface{}{
				"status":       models.RsvpMessageStatusFailed,
				"error_detail": detail,
			}).Error
			if updateErr != nil {
				return report, updateErr
			}
			report.Failed++
			continue
		}

		updateErr := s.db.Model(&models.RsvpMessage{}).Where("id = ?", msg.ID).Updates(map[string]interface{}{
			"status":              models.RsvpMessageStatusSent,
			"sent_at":             now,
			"provider_message_id": externalID,
		}).Error
		if updateErr != nil {
			return report, updateErr
		}
		report.Sent++
	}

	return report, nil
}

// Messages lists an event's message records, newest first, for the delivery
// status screen.
func (s *Service) Messages(eventID uuid.UUID) ([]models.RsvpMessage, error) {
	var msgs []models.RsvpMessage
	err := s.db.Preload("EventPlayer").Preload("EventPlayer.Player").
		Where("event_player_id IN (?)",
			s.db.Model(&models.EventPlayer{}).Select("id").Where("event_id = ?", eventID)).
		Order("created_at DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
