package services

import (
	"fmt"
	"testing"

	"elevation-league-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Named shared-cache DSN: every pool connection sees the same database,
	// which matters for tests that activate concurrently.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.League{},
		&models.Participant{},
		&models.RoundTotal{},
		&models.BonusStock{},
		&models.BonusUsage{},
	))
	return db
}

func newTestBonusService(t *testing.T) *BonusService {
	t.Helper()
	return NewBonusService(newTestDB(t), DefaultBonusCatalog())
}

func seedLeague(t *testing.T, db *gorm.DB, totalRounds, currentRound, currentDay int) models.League {
	t.Helper()
	league := models.League{
		ID:           uuid.NewString(),
		Name:         "Test League",
		JoinCode:     "test-league-" + uuid.NewString()[:8],
		TotalRounds:  totalRounds,
		CurrentRound: currentRound,
		CurrentDay:   currentDay,
		Status:       "active",
	}
	require.NoError(t, db.Create(&league).Error)
	return league
}

func seedParticipant(t *testing.T, db *gorm.DB, leagueID, name string) models.Participant {
	t.Helper()
	p := models.Participant{
		ID:                uuid.NewString(),
		ExternalAthleteID: uuid.NewString(),
		DisplayName:       name,
		LeagueID:          leagueID,
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
