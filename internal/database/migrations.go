package database

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// runMigrations runs data migrations after schema changes.
func runMigrations(db *gorm.DB) error {
	return migrateFinishField(db)
}

// migrateFinishField backfills blank finish values left by snapshots written
// before finish normalization existed. Safe to run repeatedly.
func migrateFinishField(db *gorm.DB) error {
	if !db.Migrator().HasColumn("state_records", "finish") {
		return nil
	}

	result := db.Exec(`UPDATE state_records SET finish = 'normal' WHERE finish IS NULL OR finish = ''`)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		logrus.Infof("Normalized finish on %d legacy state rows", result.RowsAffected)
	}
	return nil
}
