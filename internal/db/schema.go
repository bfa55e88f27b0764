package db

import (
	"fmt"

	"github.com/tus-lockers/locker-backend/internal/store"
	"gorm.io/gorm"
)

// Migrate creates every table plus the partial unique indexes gorm tags
// cannot express.
func Migrate(d *gorm.DB) error {
	if err := d.AutoMigrate(store.Models()...); err != nil {
		return fmt.Errorf("auto-migrate tables: %w", err)
	}

	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS assignment_record_pair_year_active
		ON assignment_record (pair_id, year) WHERE deleted_at IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS assignment_record_locker_year_active
		ON assignment_record (locker_id, year) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS student_name_prefix
		ON student (family_name text_pattern_ops, given_name text_pattern_ops)`,
	}
	for _, stmt := range indexes {
		if err := d.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
