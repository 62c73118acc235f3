package database

import (
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cardledger/mtg-tracker/internal/models"
)

// Open connects to the SQLite database at dbPath and migrates the state
// schema. Used by the sqlite state backend.
func Open(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.StateRecord{}, &models.RunRecord{}); err != nil {
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	logrus.Debugf("SQLite state database ready at %s", dbPath)
	return db, nil
}
