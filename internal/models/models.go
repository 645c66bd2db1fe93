// Package models defines the data structures (models) that map to database tables.
// GORM uses these structs to generate SQL queries and map database rows back to Go values.
// The struct field tags (the backtick strings like `gorm:"..."`) tell GORM how to handle
// each field: its column type, constraints, default values, and relationships.
//
// The data model represents a golf-league operations tool where:
//   - Players belong to the league roster and carry contact info + a role
//   - Events are single league days at a Course: a tee sheet plus a roster
//   - TeeGroups are the tee-time units generated when the event is created
//   - EventPlayers track each player's RSVP status for one event
//   - GroupAssignments place playing players into group slots
//   - RoundScores accumulate per player across events and feed the rolling average
//   - RsvpTemplates/RsvpMessages drive the email/SMS invitation pipeline
//
// Event is the root aggregate: deleting an event removes its groups, assignments,
// event-players, and round scores. That cascade is performed by the orchestrator
// (internal/events) in dependency order — the database is not asked to do it.
package models

import (
	"time"

	// uuid provides universally unique identifiers for primary keys.
	// Using UUIDs instead of auto-incrementing integers makes IDs safe to generate
	// client-side and avoids leaking record counts to end users.
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- Enums ---
// Go doesn't have a built-in enum keyword, so we simulate them using a named string type
// plus constants. This gives us type safety — you can't accidentally pass a PlayerRole
// where an RsvpChannel is expected — while keeping the values human-readable in the database.

// PlayerRole represents a player's permission level across the whole league.
type PlayerRole string

const (
	PlayerRoleAdmin  PlayerRole = "admin"  // Full access: events, roster, messaging, everything
	PlayerRoleScorer PlayerRole = "scorer" // Can enter and edit round scores
	PlayerRoleUser   PlayerRole = "user"   // Regular player: can view and respond to RSVPs
)

// EventPlayerStatus tracks one player's participation state in one event.
// It is the single source of truth for roster membership and scoring eligibility.
type EventPlayerStatus string

const (
	EventPlayerStatusInvited  EventPlayerStatus = "invited"  // On the roster, hasn't responded yet
	EventPlayerStatusYes      EventPlayerStatus = "yes"      // Confirmed attendance
	EventPlayerStatusNo       EventPlayerStatus = "no"       // Declined
	EventPlayerStatusWaitlist EventPlayerStatus = "waitlist" // Wants in but the event is full
	EventPlayerStatusPlaying  EventPlayerStatus = "playing"  // Confirmed and eligible for a tee-sheet slot
)

// ValidEventPlayerStatus reports whether s is one of the five known statuses.
// Writes go through this check at the input boundary so an unknown status can
// never silently sort last or render blank.
func ValidEventPlayerStatus(s EventPlayerStatus) bool {
	switch s {
	case EventPlayerStatusInvited, EventPlayerStatusYes, EventPlayerStatusNo,
		EventPlayerStatusWaitlist, EventPlayerStatusPlaying:
		return true
	}
	return false
}

// StatusRank returns the default roster display ordering for a status:
// yes(1) < invited(2) < waitlist(3) < no(4). Anything unrecognised sorts
// last (5); that branch is unreachable for rows written through this package
// because ValidEventPlayerStatus gates every write, but the rank is total anyway.
func StatusRank(s EventPlayerStatus) int {
	switch s {
	case EventPlayerStatusYes:
		return 1
	case EventPlayerStatusInvited:
		return 2
	case EventPlayerStatusWaitlist:
		return 3
	case EventPlayerStatusNo:
		return 4
	default:
		return 5
	}
}

// RsvpChannel describes which medium a template targets or a message was sent on.
// A template may target "both"; an individual message is always a concrete channel.
type RsvpChannel string

const (
	RsvpChannelEmail RsvpChannel = "email"
	RsvpChannelSms   RsvpChannel = "sms"
	RsvpChannelBoth  RsvpChannel = "both" // Templates only — expands to email + sms per recipient
)

// RsvpMessageStatus tracks the delivery lifecycle of one outbound message.
// Transitions are append-only: a message never returns to pending after it
// has been sent or failed, and sent/failed are terminal for this component
// (delivered/bounced come from provider callbacks, out of band).
type RsvpMessageStatus string

const (
	RsvpMessageStatusPending   RsvpMessageStatus = "pending"
	RsvpMessageStatusSent      RsvpMessageStatus = "sent"
	RsvpMessageStatusDelivered RsvpMessageStatus = "delivered"
	RsvpMessageStatusFailed    RsvpMessageStatus = "failed"
	RsvpMessageStatusBounced   RsvpMessageStatus = "bounced"
)

// --- Models ---
// Each struct below maps to a database table. GORM uses the struct name (snake_cased and
// pluralized) as the table name by default: Player -> players, Event -> events, etc.
//
// Primary keys are assigned in BeforeCreate hooks rather than by a Postgres column
// default so the exact same models run against the sqlite driver in tests.

// Player is a member of the league roster.
// Email and Phone are pointers because either may be missing — the RSVP pipeline
// checks for the contact field its channel needs and skips players without it.
type Player struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name        string     `gorm:"not null"`
	Email       *string    `gorm:"uniqueIndex"` // Nullable; unique when present
	Phone       *string    // Nullable; E.164 expected but not enforced here
	AuthSubject *string    `gorm:"uniqueIndex"` // JWT "sub" from the identity provider; nil until first sign-in
	Role        PlayerRole `gorm:"type:varchar(16);not null;default:'user'"`
	IsActive    bool       `gorm:"not null;default:true"` // Active players are bulk-imported onto new event rosters
	Notes       *string    // Free-form admin notes (handicap info, preferred cart partner, ...)
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *Player) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Course is a golf course the league plays at.
type Course struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null"`
	City      string    `gorm:"not null;default:''"`
	State     string    `gorm:"not null;default:''"`
	HoleCount int       `gorm:"not null;default:18"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Event is one league day: a date, a course, and the parameters the tee sheet
// is generated from. It is the root aggregate — TeeGroups, EventPlayers,
// GroupAssignments, and RoundScores all hang off it.
//
// FirstTeeTime and the derived group tee times are stored as "HH:MM" strings.
// Tee times are clock-of-day values, not instants; minute-of-day arithmetic on
// a string avoids timezone surprises entirely.
//
// Once Locked is true, every roster and assignment mutation path refuses to
// write (checked in internal/roster and internal/assignment, not just the UI).
type Event struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	Date               time.Time `gorm:"not null"`
	CourseID           uuid.UUID `gorm:"type:uuid;not null"`
	Course             Course    `gorm:"foreignKey:CourseID"`
	FirstTeeTime       string    `gorm:"type:varchar(5);not null"` // "HH:MM", 24-hour
	Holes              int       `gorm:"not null;default:18"`      // 9 or 18
	SlotsPerGroup      int       `gorm:"not null;default:4"`       // 2–4 players per tee group
	MaxPlayers         int       `gorm:"not null"`
	TeeIntervalMinutes int       `gorm:"not null;default:10"`
	Locked             bool      `gorm:"not null;default:false"`
	Notes              *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// TeeGroup is one tee-time unit on an event's tee sheet.
// Groups are created in a single batch when the event is created and are never
// created individually afterwards; only TeeTime is editable post-creation.
// Group 1 tees off at the event's FirstTeeTime, group N at
// FirstTeeTime + (N-1) × TeeIntervalMinutes.
type TeeGroup struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_event_group_number"`
	Event       Event     `gorm:"foreignKey:EventID"`
	GroupNumber int       `gorm:"not null;uniqueIndex:idx_event_group_number"` // 1-based display order
	TeeTime     string    `gorm:"type:varchar(5);not null"`                    // "HH:MM"; derived at creation, editable after
	CreatedAt   time.Time
}

func (g *TeeGroup) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// GroupAssignment places one player into one slot of one tee group.
// The unique index on (group_id, position) guarantees slot exclusivity.
// "At most one assignment per player per event" is enforced by the assignment
// engine (it always deletes a player's existing assignment before inserting),
// because the event id isn't a column here.
type GroupAssignment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	GroupID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_group_position"`
	Group     TeeGroup  `gorm:"foreignKey:GroupID"`
	PlayerID  uuid.UUID `gorm:"type:uuid;not null"`
	Player    Player    `gorm:"foreignKey:PlayerID"`
	Position  int       `gorm:"not null;uniqueIndex:idx_group_position"` // 1..slots_per_group
	CreatedAt time.Time
}

func (a *GroupAssignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// EventPlayer links a Player to an Event and carries their RSVP state.
// The unique index (idx_event_player) ensures one row per player per event.
//
// RsvpToken is the opaque identifier embedded in invitation links; anyone
// holding the token can respond once (idempotently) without signing in.
type EventPlayer struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey"`
	EventID      uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_event_player"`
	Event        Event             `gorm:"foreignKey:EventID"`
	PlayerID     uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_event_player"`
	Player       Player            `gorm:"foreignKey:PlayerID"`
	Status       EventPlayerStatus `gorm:"type:varchar(16);not null;default:'invited'"`
	Note         *string
	RsvpToken    string     `gorm:"type:varchar(64);not null;uniqueIndex"`
	InviteSentAt *time.Time // Stamped when an RSVP message is queued for this player
	RespondedAt  *time.Time // Stamped on first token response; presence makes later responses no-ops
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BeforeCreate assigns the primary key and, if the caller didn't provide one,
// a fresh RSVP token. Tokens are UUIDs: 122 bits of randomness is plenty for
// an unguessable single-purpose link.
func (ep *EventPlayer) BeforeCreate(tx *gorm.DB) error {
	if ep.ID == uuid.Nil {
		ep.ID = uuid.New()
	}
	if ep.RsvpToken == "" {
		ep.RsvpToken = uuid.NewString()
	}
	return nil
}

// RoundScore is one player's points result for one event.
// Scores accumulate across events; a player's "current" average is always the
// mean of their 6 most recent scores by CreatedAt, regardless of event.
type RoundScore struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_event_player_score"`
	Event     Event     `gorm:"foreignKey:EventID"`
	PlayerID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_event_player_score"`
	Player    Player    `gorm:"foreignKey:PlayerID"`
	Points    float64   `gorm:"type:decimal(5,2);not null"`
	Notes     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *RoundScore) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// RsvpTemplate is a reusable message template for invitations.
// Body contains literal {{variable}} placeholders (see internal/rsvp for the
// variable list). Subject must be empty for sms-only templates — SMS has no
// subject line. IsDefault is advisory: the UI preselects it, but nothing
// enforces a single default per channel.
type RsvpTemplate struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey"`
	Name      string      `gorm:"not null"`
	Channel   RsvpChannel `gorm:"type:varchar(8);not null"`
	Subject   *string     // Required for email, forbidden for sms
	Body      string      `gorm:"type:text;not null"`
	IsDefault bool        `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *RsvpTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// RsvpMessage is one queued/sent message to one recipient on one concrete channel.
// A "both"-channel send produces up to two rows per player (one email, one sms).
// ResponseToken duplicates the EventPlayer's token at queue time so the rendered
// link stays valid even if the roster row is later re-tokened.
type RsvpMessage struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey"`
	EventPlayerID     uuid.UUID         `gorm:"type:uuid;not null;index"`
	EventPlayer       EventPlayer       `gorm:"foreignKey:EventPlayerID"`
	TemplateID        uuid.UUID         `gorm:"type:uuid;not null"`
	Template          RsvpTemplate      `gorm:"foreignKey:TemplateID"`
	Channel           RsvpChannel       `gorm:"type:varchar(8);not null"` // Always email or sms, never both
	Recipient         string            `gorm:"not null"`                 // Email address or phone number
	Status            RsvpMessageStatus `gorm:"type:varchar(12);not null;default:'pending'"`
	ResponseToken     string            `gorm:"type:varchar(64);not null"`
	ProviderMessageID *string           // The transport's external id, set on successful send
	ErrorDetail       *string           // Transport error text, set when Status becomes failed
	SentAt            *time.Time
	RespondedAt       *time.Time
	CreatedAt         time.Time
}

func (m *RsvpMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// AllModels returns every model for migration, in dependency order
// (referenced tables before referencing tables).
func AllModels() []interface{} {
	return []interface{}{
		&Player{},
		&Course{},
		&Event{},
		&TeeGroup{},
		&GroupAssignment{},
		&EventPlayer{},
		&RoundScore{},
		&RsvpTemplate{},
		&RsvpMessage{},
	}
}

// AutoMigrate runs GORM auto-migration for all models.
// Production uses the versioned SQL migrations in migrations/; this exists for
// the sqlite-backed tests, which need a schema without a migrations directory.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
