package database_test

import (
	"testing"

	"pm-bot/backend/internal/database"
	"pm-bot/backend/internal/database/dbtest"
	"pm-bot/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_CreatesTables(t *testing.T) {
	db := dbtest.Open(t, nil)

	for _, table := range []string{"users", "projects", "tasks", "events"} {
		assert.True(t, db.Migrator().HasTable(table), "table %s", table)
	}
}

func TestSeed_IsIdempotent(t *testing.T) {
	db := dbtest.Open(t, nil)

	require.NoError(t, database.Seed(db))
	require.NoError(t, database.Seed(db))

	var projects []models.Project
	require.NoError(t, db.Find(&projects).Error)
	require.Len(t, projects, 1)
	assert.Equal(t, uint(database.DefaultProjectID), projects[0].ID)
	assert.Equal(t, "Demo Project", projects[0].Name)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Equal(t, int64(1), users)
}

func TestTransactions_Rollback(t *testing.T) {
	db := dbtest.Open(t, nil)

	tx := db.Begin()
	require.NoError(t, tx.Create(&models.Project{Name: "rolled back"}).Error)
	tx.Rollback()

	var count int64
	require.NoError(t, db.Model(&models.Project{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	tx = db.Begin()
	require.NoError(t, tx.Create(&models.Project{Name: "committed"}).Error)
	require.NoError(t, tx.Commit().Error)

	require.NoError(t, db.Model(&models.Project{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
