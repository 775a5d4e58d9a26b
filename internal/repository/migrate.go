package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/onboardhub/engine/internal/models"
)

// Migrate runs AutoMigrate for every model, then the dialect-specific steps
// AutoMigrate cannot express.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	return runCustomMigrations(db)
}

func runCustomMigrations(db *gorm.DB) error {
	migrations := []struct {
		name string
		fn   func(*gorm.DB) error
	}{
		{"pgcrypto", enableUUIDExtension},
		{"reminder index", addReminderIndex},
		{"order indexes", addOrderIndexes},
	}
	for _, m := range migrations {
		if err := m.fn(db); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
	}
	return nil
}

func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error
}

// addReminderIndex backs the due-window scan over open external tasks.
func addReminderIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_tasks_reminder_scan
		ON tasks(project_id, due_date)
		WHERE visibility = 'external' AND status <> 'completed' AND due_date IS NOT NULL
	`).Error
}

func addOrderIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_stages_template_order ON stages(template_id, order_index) WHERE template_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_stages_project_order ON stages(project_id, order_index) WHERE project_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_template_tasks_order ON template_tasks(template_id, order_index)`,
	}
	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			return err
		}
	}
	return nil
}
