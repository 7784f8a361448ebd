package database

import (
	"log"

	"gorm.io/gorm"
)

// MigrateDB auto-migrates the given models. Called on startup by the API
// and by `policyctl migrate`.
func MigrateDB(db *gorm.DB, models ...interface{}) error {
	if err := db.AutoMigrate(models...); err != nil {
		return err
	}
	log.Printf("database migrated successfully with %d models", len(models))
	return nil
}
