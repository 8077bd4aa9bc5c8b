// Package dbtest opens migrated in-memory sqlite databases for tests.
package dbtest

import (
	"testing"
	"time"

	"pm-bot/backend/internal/database"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a fresh migrated database that is closed when the test ends.
// now, when non-nil, drives gorm's CreatedAt/UpdatedAt stamps.
func Open(t testing.TB, now func() time.Time) *gorm.DB {
	t.Helper()

	config := database.DefaultPoolConfig()
	config.URL = ":memory:"
	config.LogLevel = logger.Silent
	config.NowFunc = now

	pool, err := database.NewDatabasePool(config)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := database.Migrate(pool.DB); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return pool.DB
}
