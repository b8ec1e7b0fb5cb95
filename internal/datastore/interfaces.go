// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"github.com/tphakala/dirmigrate/internal/conf"
	"gorm.io/gorm"
)

// Interface abstracts the underlying database implementation and defines the
// store operations consumed by the migration orchestrator and the history
// command. Both upserts are safe to call repeatedly with identical input.
type Interface interface {
	Open() error
	Close() error
	UpsertClientGroup(name, displayName string) (*ClientGroup, error)
	UpsertUser(user *MigratedUser) (*MigratedUser, error)
	SaveRunSummary(summary *RunSummary) error
	RunHistory(limit int) ([]RunSummary, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new store instance based on the provided settings. Returns
// nil when no output database is enabled.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}
