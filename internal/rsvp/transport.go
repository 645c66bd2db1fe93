package rsvp

import (
	"fmt"
	"log"

	"github.com/google/uuid"
)

// transport.go — the outbound messaging boundary.
//
// The pipeline doesn't know or care which provider delivers a message; it
// calls one of these two interfaces and records the outcome. A nil transport
// means "unavailable": queued messages simply stay pending until an operator
// re-triggers dispatch with a transport configured. Unavailability is never
// an error at queue time.

// EmailSender delivers one email and returns the provider's external message
// id on success.
type EmailSender interface {
	SendEmail(to, subject, body string) (externalID string, err error)
}

// SMSSender delivers one SMS and returns the provider's external message id
// on success.
type SMSSender interface {
	SendSms(to, body string) (externalID string, err error)
}

// LogEmailSender is the development transport: it logs the message instead of
// delivering it and fabricates an external id. Swap in a real provider
// implementation in production.
type LogEmailSender struct {
	From string
}

func (l *LogEmailSender) SendEmail(to, subject, body string) (string, error) {
	id := fmt.Sprintf("dev-email-%s", uuid.NewString()[:8])
	log.Printf("[email %s] from=%s to=%s subject=%q (%d bytes)", id, l.From, to, subject, len(body))
	return id, nil
}

// LogSmsSender is the development SMS transport, mirroring LogEmailSender.
type LogSmsSender struct {
	From string
}

func (l *LogSmsSender) SendSms(to, body string) (string, error) {
	id := fmt.Sprintf("dev-sms-%s", uuid.NewString()[:8])
	log.Printf("[sms %s] from=%s to=%s (%d bytes)", id, l.From, to, len(body))
	return id, nil
}
