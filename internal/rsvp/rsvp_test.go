package rsvp

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fairwayops/league/internal/models"
)

// fakeEmail records sends and can be told to fail specific recipients.
type fakeEmail struct {
	sent []string // recipients in send order
	fail map[string]bool
}

func (f *fakeEmail) SendEmail(to, subject, body string) (string, error) {
	if f.fail[to] {
		return "", fmt.Errorf("mailbox unavailable for %s", to)
	}
	f.sent = append(f.sent, to)
	return "ext-" + to, nil
}

type fakeSms struct {
	sent []string
}

func (f *fakeSms) SendSms(to, body string) (string, error) {
	f.sent = append(f.sent, to)
	return "sms-" + to, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.AutoMigrate(db))
	return db
}

func strptr(s string) *string { return &s }

func createEvent(t *testing.T, db *gorm.DB) models.Event {
	course := models.Course{Name: "Pine Hollow"}
	require.NoError(t, db.Create(&course).Error)
	ev := models.Event{
		Date:               time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
		CourseID:           course.ID,
		FirstTeeTime:       "08:30",
		Holes:              18,
		SlotsPerGroup:      4,
		MaxPlayers:         40,
		TeeIntervalMinutes: 10,
	}
	require.NoError(t, db.Create(&ev).Error)
	return ev
}

func addRosterPlayer(t *testing.T, db *gorm.DB, eventID uuid.UUID, name string, email, phone *string) models.EventPlayer {
	p := models.Player{Name: name, Email: email, Phone: phone, IsActive: true}
	require.NoError(t, db.Create(&p).Error)
	ep := models.EventPlayer{EventID: eventID, PlayerID: p.ID, Status: models.EventPlayerStatusInvited}
	require.NoError(t, db.Create(&ep).Error)
	return ep
}

func createTemplate(t *testing.T, db *gorm.DB, channel models.RsvpChannel, subject *string) models.RsvpTemplate {
	tpl := models.RsvpTemplate{
		Name:    "Weekly invite",
		Channel: channel,
		Subject: subject,
		Body:    "Hi {{player_name}}, join us {{event_date}} at {{course_name}}, first tee {{first_tee_time}} ({{holes}} holes). Reply: {{rsvp_link}}",
	}
	require.NoError(t, db.Create(&tpl).Error)
	return tpl
}

func TestRenderSubstitution(t *testing.T) {
	out := Render("Hi {{player_name}}, {{holes}} holes at {{course_name}}. {{unknown}} stays.",
		Vars{PlayerName: "Alice", Holes: 9, CourseName: "Pine Hollow"})
	assert.Equal(t, "Hi Alice, 9 holes at Pine Hollow. {{unknown}} stays.", out)
}

func TestValidateTemplate(t *testing.T) {
	assert.NoError(t, ValidateTemplate(&models.RsvpTemplate{
		Name: "a", Channel: models.RsvpChannelEmail, Subject: strptr("s"), Body: "b"}))
	assert.NoError(t, ValidateTemplate(&models.RsvpTemplate{
		Name: "a", Channel: models.RsvpChannelSms, Body: "b"}))

	// Subject is forbidden for sms-only templates
	assert.Error(t, ValidateTemplate(&models.RsvpTemplate{
		Name: "a", Channel: models.RsvpChannelSms, Subject: strptr("s"), Body: "b"}))
	// ...and required for email
	assert.Error(t, ValidateTemplate(&models.RsvpTemplate{
		Name: "a", Channel: models.RsvpChannelEmail, Body: "b"}))
	assert.Error(t, ValidateTemplate(&models.RsvpTemplate{
		Name: "a", Channel: models.RsvpChannel("fax"), Subject: strptr("s"), Body: "b"}))
}

func TestQueueZeroValidContactsFails(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, &fakeEmail{}, &fakeSms{}, "http://test", 0)
	ev := createEvent(t, db)
	tpl := createTemplate(t, db, models.RsvpChannelSms, nil)

	// Three players, two with email only, none with a phone — sms send
	ep1 := addRosterPlayer(t, db, ev.ID, "A", strptr("a@x.com"), nil)
	ep2 := addRosterPlayer(t, db, ev.ID, "B", strptr("b@x.com"), nil)
	ep3 := addRosterPlayer(t, db, ev.ID, "C", nil, nil)

	n, err := svc.Queue(ev.ID, []uuid.UUID{ep1.ID, ep2.ID, ep3.ID}, tpl.ID, models.RsvpChannelSms)
	assert.ErrorIs(t, err, ErrNoValidContacts)
	assert.Equal(t, 0, n)

	// Validation failure leaves no partial state
	var count int64
	db.Model(&models.RsvpMessage{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestQueueSkipsMissingContacts(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, &fakeEmail{}, &fakeSms{}, "http://test", 0)
	ev := createEvent(t, db)
	tpl := createTemplate(t, db, models.RsvpChannelBoth, strptr("Tee time!"))

	epBoth := addRosterPlayer(t, db, ev.ID, "Both", strptr("b@x.com"), strptr("+15551234"))
	epEmail := addRosterPlayer(t, db, ev.ID, "EmailOnly", strptr("e@x.com"), nil)
	epNone := addRosterPlayer(t, db, ev.ID, "NoContact", nil, nil)

	// channel "both" → 2 messages for Both, 1 for EmailOnly, 0 for NoContact
	n, err := svc.Queue(ev.ID, []uuid.UUID{epBoth.ID, epEmail.ID, epNone.ID}, tpl.ID, models.RsvpChannelBoth)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var msgs []models.RsvpMessage
	require.NoError(t, db.Find(&msgs).Error)
	require.Len(t, msgs, 3)
	for _, m := range msgs {
		assert.Equal(t, models.RsvpMessageStatusPending, m.Status)
		assert.NotEmpty(t, m.ResponseToken)
	}

	// invite_sent_at stamped only on players who got a message
	var reloaded models.EventPlayer
	require.NoError(t, db.First(&reloaded, "id = ?", epBoth.ID).Error)
	assert.NotNil(t, reloaded.InviteSentAt)
	require.NoError(t, db.First(&reloaded, "id = ?", epNone.ID).Error)
	assert.Nil(t, reloaded.InviteSentAt)
}

func TestDispatchTransitionsAndContinuesPastFailures(t *testing.T) {
	db := setupTestDB(t)
	email := &fakeEmail{fail: map[string]bool{"bad@x.com": true}}
	svc := NewService(db, email, &fakeSms{}, "http://test", 0)
	ev := createEvent(t, db)
	tpl := createTemplate(t, db, models.RsvpChannelEmail, strptr("Tee time {{event_date}}"))

	epGood := addRosterPlayer(t, db, ev.ID, "Good", strptr("good@x.com"), nil)
	epBad := addRosterPlayer(t, db, ev.ID, "Bad", strptr("bad@x.com"), nil)
	epAlso := addRosterPlayer(t, db, ev.ID, "Also", strptr("also@x.com"), nil)

	_, err := svc.Queue(ev.ID, []uuid.UUID{epGood.ID, epBad.ID, epAlso.ID}, tpl.ID, models.RsvpChannelEmail)
	require.NoError(t, err)

	report, err := svc.Dispatch(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Failed)

	// The failure in the middle didn't stop the batch
	assert.Contains(t, email.sent, "good@x.com")
	assert.Contains(t, email.sent, "also@x.com")

	var failed models.RsvpMessage
	require.NoError(t, db.First(&failed, "event_player_id = ?", epBad.ID).Error)
	assert.Equal(t, models.RsvpMessageStatusFailed, failed.Status)
	require.NotNil(t, failed.ErrorDetail)
	assert.Contains(t, *failed.ErrorDetail, "mailbox unavailable")
	assert.Nil(t, failed.SentAt)

	var sent models.RsvpMessage
	require.NoError(t, db.First(&sent, "event_player_id = ?", epGood.ID).Error)
	assert.Equal(t, models.RsvpMessageStatusSent, sent.Status)
	assert.NotNil(t, sent.SentAt)
	require.NotNil(t, sent.ProviderMessageID)
	assert.Equal(t, "ext-good@x.com", *sent.ProviderMessageID)

	// A second pass finds nothing pending: failed is terminal, no auto-retry
	report, err = svc.Dispatch(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Sent+report.Failed+report.Skipped)
}

func TestDispatchWithoutTransportLeavesPending(t *testing.T) {
	db := setupTestDB(t)
	// nil transports: provider unavailable
	svc := NewService(db, nil, nil, "http://test", 0)
	ev := createEvent(t, db)
	tpl := createTemplate(t, db, models.RsvpChannelEmail, strptr("Tee time"))
	ep := addRosterPlayer(t, db, ev.ID, "A", strptr("a@x.com"), nil)

	// Queuing still succeeds — unavailability is non-fatal
	n, err := svc.Queue(ev.ID, []uuid.UUID{ep.ID}, tpl.ID, models.RsvpChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	report, err := svc.Dispatch(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)

	var msg models.RsvpMessage
	require.NoError(t, db.First(&msg, "event_player_id = ?", ep.ID).Error)
	assert.Equal(t, models.RsvpMessageStatusPending, msg.Status)
}

func TestDispatchRendersVariables(t *testing.T) {
	db := setupTestDB(t)
	var gotBody, gotSubject string
	email := &captureEmail{body: &gotBody, subject: &gotSubject}
	svc := NewService(db, email, nil, "https://league.example.com", 0)
	ev := createEvent(t, db)
	tpl := createTemplate(t, db, models.RsvpChannelEmail, strptr("{{course_name}} on {{event_date}}"))
	ep := addRosterPlayer(t, db, ev.ID, "Alice", strptr("alice@x.com"), nil)

	_, err := svc.Queue(ev.ID, []uuid.UUID{ep.ID}, tpl.ID, models.RsvpChannelEmail)
	require.NoError(t, err)
	_, err = svc.Dispatch(ev.ID)
	require.NoError(t, err)

	assert.Equal(t, "Pine Hollow on Monday, May 4", gotSubject)
	assert.Contains(t, gotBody, "Hi Alice")
	assert.Contains(t, gotBody, "first tee 08:30 (18 holes)")
	assert.Contains(t, gotBody, "https://league.example.com/rsvp/"+ep.RsvpToken)
}

type captureEmail struct {
	body, subject *string
}

func (c *captureEmail) SendEmail(to, subject, body string) (string, error) {
	*c.subject = subject
	*c.body = body
	return "cap-1", nil
}

func TestRespondIdempotence(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil, nil, "http://test", 0)
	ev := createEvent(t, db)
	ep := addRosterPlayer(t, db, ev.ID, "Alice", strptr("alice@x.com"), nil)

	// First response wins
	out := svc.Respond(ep.RsvpToken, models.EventPlayerStatusYes)
	assert.Equal(t, ResultSuccess, out.Result)
	assert.Equal(t, models.EventPlayerStatusYes, out.Status)
	assert.Equal(t, "Alice", out.PlayerName)
	assert.Equal(t, "Pine Hollow", out.CourseName)

	// Second response — even with a different answer — is a read
	out = svc.Respond(ep.RsvpToken, models.EventPlayerStatusNo)
	assert.Equal(t, ResultAlreadyResponded, out.Result)
	assert.Equal(t, models.EventPlayerStatusYes, out.Status)

	var reloaded models.EventPlayer
	require.NoError(t, db.First(&reloaded, "id = ?", ep.ID).Error)
	assert.Equal(t, models.EventPlayerStatusYes, reloaded.Status)
	assert.NotNil(t, reloaded.RespondedAt)
}

func TestRespondInvalidToken(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil, nil, "http://test", 0)

	out := svc.Respond("not-a-token", models.EventPlayerStatusYes)
	assert.Equal(t, ResultInvalid, out.Result)
	assert.Empty(t, out.PlayerName)
}

func TestRespondRejectsBadAnswer(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, nil, nil, "http://test", 0)
	ev := createEvent(t, db)
	ep := addRosterPlayer(t, db, ev.ID, "Alice", strptr("alice@x.com"), nil)

	out := svc.Respond(ep.RsvpToken, models.EventPlayerStatusWaitlist)
	assert.Equal(t, ResultError, out.Result)

	// Nothing changed
	var reloaded models.EventPlayer
	require.NoError(t, db.First(&reloaded, "id = ?", ep.ID).Error)
	assert.Equal(t, models.EventPlayerStatusInvited, reloaded.Status)
	assert.Nil(t, reloaded.RespondedAt)
}

func TestConfirmationHTML(t *testing.T) {
	html := ConfirmationHTML(Outcome{
		Result: ResultSuccess, Status: models.EventPlayerStatusYes,
		PlayerName: "Alice", EventDate: "Monday, May 4", CourseName: "Pine Hollow", FirstTeeTime: "08:30",
	})
	assert.Contains(t, html, "Thanks, Alice!")
	assert.Contains(t, html, "Pine Hollow")

	assert.Contains(t, ConfirmationHTML(Outcome{Result: ResultInvalid}), "Invalid or expired")
	assert.Contains(t, ConfirmationHTML(Outcome{
		Result: ResultAlreadyResponded, Status: models.EventPlayerStatusNo,
		PlayerName: "Bob", EventDate: "d", CourseName: "c",
	}), "Already answered")
}
