package datastore

import (
	"fmt"

	"gorm.io/gorm"
)

// performAutoMigration runs GORM auto-migration for all store models and
// logs the outcome.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&ClientGroup{}, &MigratedUser{}, &RunSummary{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}

	if debug {
		getLogger().Debug("Database schema migrated", "type", dbType, "connection", connectionInfo)
	}
	return nil
}
