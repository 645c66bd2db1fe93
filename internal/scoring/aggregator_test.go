package scoring

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

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	// One connection only: a fresh :memory: database exists per connection,
	// and the leaderboard fan-out queries from multiple goroutines.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func createPlayer(t *testing.T, db *gorm.DB, name string) models.Player {
	p := models.Player{Name: name, IsActive: true}
	require.NoError(t, db.Create(&p).Error)
	return p
}

// addScores inserts one score per points value with strictly increasing
// creation times, so "most recent" ordering is unambiguous.
func addScores(t *testing.T, db *gorm.DB, playerID uuid.UUID, points ...float64) {
	base := time.Now().Add(-time.Duration(len(points)) * time.Hour)
	for i, p := range points {
		course := models.Course{Name: fmt.Sprintf("Course %s %d", playerID, i)}
		require.NoError(t, db.Create(&course).Error)
		ev := models.Event{
			Date:               base.Add(time.Duration(i) * time.Hour),
			CourseID:           course.ID,
			FirstTeeTime:       "08:00",
			Holes:              18,
			SlotsPerGroup:      4,
			MaxPlayers:         40,
			TeeIntervalMinutes: 10,
		}
		require.NoError(t, db.Create(&ev).Error)
		score := models.RoundScore{
			EventID:   ev.ID,
			PlayerID:  playerID,
			Points:    p,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, db.Create(&score).Error)
	}
}

func TestPlayerAverageNoData(t *testing.T) {
	db := setupTestDB(t)
	p := createPlayer(t, db, "Alice")

	avg, err := PlayerAverage(db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, avg.Rounds)
	assert.Equal(t, 0.0, avg.Average)
}

func TestPlayerAverageUsesSixMostRecent(t *testing.T) {
	db := setupTestDB(t)
	p := createPlayer(t, db, "Alice")

	// Nine scores total; only the last six (15..20) should count.
	addScores(t, db, p.ID, 5, 5, 5, 15, 16, 17, 18, 19, 20)

	avg, err := PlayerAverage(db, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, avg.Rounds)
	assert.InDelta(t, (15.0+16+17+18+19+20)/6, avg.Average, 1e-9)
}

func TestScoreToBeatRendering(t *testing.T) {
	assert.Equal(t, "New", ScoreToBeat(Average{Rounds: 0}))
	assert.Equal(t, "New", ScoreToBeat(Average{Rounds: 5, Average: 18.5}))
	assert.Equal(t, "18", ScoreToBeat(Average{Rounds: 6, Average: 17.9}))
	assert.Equal(t, "19", ScoreToBeat(Average{Rounds: 6, Average: 18.5}))
}

func TestGroupScoreToBeatFailsClosedOnNewMember(t *testing.T) {
	veteran := Average{Rounds: 6, Average: 18.0}
	rookie := Average{Rounds: 2, Average: 30.0}

	// Any "New" member makes the group aggregate undefined
	assert.Nil(t, GroupScoreToBeat([]Average{veteran, rookie}))
	assert.Nil(t, GroupScoreToBeat(nil))

	got := GroupScoreToBeat([]Average{
		{Rounds: 6, Average: 18.0},
		{Rounds: 6, Average: 21.5},
	})
	require.NotNil(t, got)
	// Mean of raw averages (19.75) rounded to nearest
	assert.Equal(t, 20, *got)
}

func TestLeaderboardSortsDescending(t *testing.T) {
	db := setupTestDB(t)
	low := createPlayer(t, db, "Low")
	high := createPlayer(t, db, "High")
	createPlayer(t, db, "Newbie") // no scores — still listed

	addScores(t, db, low.ID, 10, 10, 10, 10, 10, 10)
	addScores(t, db, high.ID, 20, 20, 20, 20, 20, 20)

	board, err := Leaderboard(db)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, "High", board[0].PlayerName)
	assert.Equal(t, "Low", board[1].PlayerName)
	assert.Equal(t, "Newbie", board[2].PlayerName)
	assert.Equal(t, 0, board[2].Rounds)
}

func TestLeaderboardSkipsInactivePlayers(t *testing.T) {
	db := setupTestDB(t)
	createPlayer(t, db, "Active")
	inactive := models.Player{Name: "Retired", IsActive: false}
	require.NoError(t, db.Create(&inactive).Error)

	board, err := Leaderboard(db)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, "Active", board[0].PlayerName)
}
