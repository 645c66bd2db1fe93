package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fairwayops/league/internal/models"
	"github.com/fairwayops/league/internal/roster"
)

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

func newService(db *gorm.DB) *Service {
	return NewService(db, roster.NewService(db))
}

func createCourse(t *testing.T, db *gorm.DB) models.Course {
	c := models.Course{Name: "Pine Hollow", City: "Ridgefield", State: "CT"}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func activePlayers(t *testing.T, db *gorm.DB, n int) []models.Player {
	out := make([]models.Player, 0, n)
	for i := 0; i < n; i++ {
		p := models.Player{Name: string(rune('A'+i)) + " Player", IsActive: true}
		require.NoError(t, db.Create(&p).Error)
		out = append(out, p)
	}
	return out
}

func params(courseID uuid.UUID) CreateParams {
	return CreateParams{
		Date:               time.Now().Add(7 * 24 * time.Hour),
		CourseID:           courseID,
		FirstTeeTime:       "08:00",
		Holes:              18,
		SlotsPerGroup:      4,
		MaxPlayers:         10,
		TeeIntervalMinutes: 10,
	}
}

func TestCreateGeneratesGroupsAndRoster(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)
	course := createCourse(t, db)
	activePlayers(t, db, 5)

	ev, err := svc.Create(params(course.ID))
	require.NoError(t, err)
	require.NotNil(t, ev)

	// max_players=10, slots=4 → ceil(10/4) = 3 groups
	groups, err := svc.Groups(ev.ID)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, "08:00", groups[0].TeeTime)
	assert.Equal(t, "08:10", groups[1].TeeTime)
	assert.Equal(t, "08:20", groups[2].TeeTime)

	// All five active players imported as invited
	var eps []models.EventPlayer
	require.NoError(t, db.Where("event_id = ?", ev.ID).Find(&eps).Error)
	require.Len(t, eps, 5)
	for _, ep := range eps {
		assert.Equal(t, models.EventPlayerStatusInvited, ep.Status)
	}
}

func TestCreateValidatesBeforeWriting(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)
	course := createCourse(t, db)

	bad := params(course.ID)
	bad.SlotsPerGroup = 7
	_, err := svc.Create(bad)
	assert.Error(t, err)

	bad = params(course.ID)
	bad.Holes = 12
	_, err = svc.Create(bad)
	assert.Error(t, err)

	bad = params(course.ID)
	bad.CourseID = uuid.New()
	_, err = svc.Create(bad)
	assert.ErrorContains(t, err, "course not found")

	// No partial state from any validation failure
	var n int64
	db.Model(&models.Event{}).Count(&n)
	assert.Equal(t, int64(0), n)
}

func TestEditDoesNotRegenerateGroups(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)
	course := createCourse(t, db)

	ev, err := svc.Create(params(course.ID))
	require.NoError(t, err)

	// Doubling capacity would mean 5 groups if regenerated — it must stay 3
	newMax := 20
	_, err = svc.Edit(ev.ID, EditParams{MaxPlayers: &newMax})
	require.NoError(t, err)

	groups, err := svc.Groups(ev.ID)
	require.NoError(t, err)
	assert.Len(t, groups, 3)

	reloaded, err := svc.Get(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, reloaded.MaxPlayers)
}

func TestEditValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)
	course := createCourse(t, db)
	ev, err := svc.Create(params(course.ID))
	require.NoError(t, err)

	badTee := "25:99"
	_, err = svc.Edit(ev.ID, EditParams{FirstTeeTime: &badTee})
	assert.Error(t, err)

	badHoles := 12
	_, err = svc.Edit(ev.ID, EditParams{Holes: &badHoles})
	assert.Error(t, err)
}

func TestDeleteCascadesInDependencyOrder(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)
	course := createCourse(t, db)
	players := activePlayers(t, db, 4)

	ev, err := svc.Create(params(course.ID))
	require.NoError(t, err)

	// Hang an assignment, a score, and a message off the event
	groups, err := svc.Groups(ev.ID)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.GroupAssignment{
		GroupID: groups[0].ID, PlayerID: players[0].ID, Position: 1,
	}).Error)
	require.NoError(t, db.Create(&models.RoundScore{
		EventID: ev.ID, PlayerID: players[0].ID, Points: 18,
	}).Error)
	tpl := models.RsvpTemplate{Name: "t", Channel: models.RsvpChannelSms, Body: "b"}
	require.NoError(t, db.Create(&tpl).Error)
	var ep models.EventPlayer
	require.NoError(t, db.First(&ep, "event_id = ? AND player_id = ?", ev.ID, players[0].ID).Error)
	require.NoError(t, db.Create(&models.RsvpMessage{
		EventPlayerID: ep.ID, TemplateID: tpl.ID, Channel: models.RsvpChannelSms,
		Recipient: "+15551234", Status: models.RsvpMessageStatusPending, ResponseToken: ep.RsvpToken,
	}).Error)

	require.NoError(t, svc.Delete(ev.ID))

	for table, model := range map[string]interface{}{
		"events":        &models.Event{},
		"groups":        &models.TeeGroup{},
		"assignments":   &models.GroupAssignment{},
		"event_players": &models.EventPlayer{},
		"scores":        &models.RoundScore{},
		"messages":      &models.RsvpMessage{},
	} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Equal(t, int64(0), n, table)
	}

	// Players and courses survive — they're league data, not event data
	var playerCount int64
	db.Model(&models.Player{}).Count(&playerCount)
	assert.Equal(t, int64(4), playerCount)
}

func TestDeleteMissingEvent(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)
	assert.Error(t, svc.Delete(uuid.New()))
}

func TestSetLockedAndGroupTeeTime(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db)
	course := createCourse(t, db)
	ev, err := svc.Create(params(course.ID))
	require.NoError(t, err)

	require.NoError(t, svc.SetLocked(ev.ID, true))
	reloaded, err := svc.Get(ev.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Locked)

	require.NoError(t, svc.SetLocked(ev.ID, false))
	assert.Error(t, svc.SetLocked(uuid.New(), true))

	groups, err := svc.Groups(ev.ID)
	require.NoError(t, err)
	require.NoError(t, svc.SetGroupTeeTime(groups[0].ID, "07:45"))
	groups, err = svc.Groups(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "07:45", groups[0].TeeTime)

	assert.Error(t, svc.SetGroupTeeTime(groups[0].ID, "7:99"))
	assert.Error(t, svc.SetGroupTeeTime(uuid.New(), "07:45"))
}

func TestStepErrorReporting(t *testing.T) {
	err := &StepError{Step: "groups", Err: assert.AnError}
	step, ok := IsStepError(err)
	assert.True(t, ok)
	assert.Equal(t, "groups", step)
	assert.ErrorIs(t, err, assert.AnError)

	_, ok = IsStepError(assert.AnError)
	assert.False(t, ok)
}
