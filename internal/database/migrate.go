package database

import (
	"fmt"

	"pm-bot/backend/internal/models"

	"gorm.io/gorm"
)

const (
	DefaultProjectID = 1
	DemoUserID       = 1
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Seed creates the demo project #1 (the chat default project) and user #1
// when they do not exist yet.
func Seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		description := "First run demo"
		project := models.Project{ID: DefaultProjectID, Name: "Demo Project", Description: &description}
		if err := tx.Where(models.Project{ID: DefaultProjectID}).FirstOrCreate(&project).Error; err != nil {
			return fmt.Errorf("failed to seed project: %w", err)
		}

		ref := "alice@example.com"
		user := models.User{ID: DemoUserID, Name: "Alice", ExternalRef: &ref}
		if err := tx.Where(models.User{ID: DemoUserID}).FirstOrCreate(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		return syncSequences(tx, "projects", "users")
	})
}

// Rows inserted with explicit ids leave postgres serial sequences behind.
func syncSequences(tx *gorm.DB, tables ...string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	for _, table := range tables {
		sql := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 1))",
			table, table)
		if err := tx.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to sync %s sequence: %w", table, err)
		}
	}
	return nil
}
