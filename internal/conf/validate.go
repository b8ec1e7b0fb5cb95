// conf/validate.go settings validation
package conf

import (
	"github.com/tphakala/dirmigrate/internal/errors"
)

// ValidateSettings checks the loaded settings for configuration mistakes that
// would otherwise only surface mid-run.
func ValidateSettings(settings *Settings) error {
	if settings.Migration.BatchSize < 1 {
		return errors.Newf("migration.batchsize must be at least 1, got %d", settings.Migration.BatchSize).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings.Migration.Concurrency < 1 {
		return errors.Newf("migration.concurrency must be at least 1, got %d", settings.Migration.Concurrency).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings.Output.SQLite.Enabled && settings.Output.MySQL.Enabled {
		return errors.Newf("only one output database may be enabled at a time").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings.Output.SQLite.Enabled && settings.Output.SQLite.Path == "" {
		return errors.Newf("output.sqlite.path must be set when the SQLite output is enabled").
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings.Output.MySQL.Enabled {
		if settings.Output.MySQL.Host == "" || settings.Output.MySQL.Database == "" {
			return errors.Newf("output.mysql.host and output.mysql.database must be set when the MySQL output is enabled").
				Component("conf").
				Category(errors.CategoryConfiguration).
				Build()
		}
	}
	return nil
}
