// config.go: configuration for the dirmigrate tool. It defines the settings
// struct and functions to load, sync and save the settings.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var configFiles embed.FS

// LogConfig defines the configuration for log files
type LogConfig struct {
	Enabled  bool         // true to enable this log
	Path     string       // path to log file
	Rotation RotationType // rotation type
	MaxSize  int64        // max size in bytes for RotationSize
}

// RotationType defines different types of log rotations.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// MainSettings contains general application settings.
type MainSettings struct {
	Name string    // name of the node, used in log messages
	Log  LogConfig // log file settings
}

// DirectorySettings contains connection and schema settings for the source
// LDAP directory.
type DirectorySettings struct {
	Host           string // directory server hostname
	Port           int    // directory server port
	TLS            bool   // true to connect with ldaps://
	SkipTLSVerify  bool   // true to skip TLS certificate verification
	BindDN         string // DN used to bind for reading
	BindPassword   string // password for the bind DN
	BaseDN         string // base DN under which client OUs live
	GroupFilter    string // LDAP filter matching client group entries
	UserFilter     string // LDAP filter matching user entries
	GroupNameAttr  string // attribute holding the group natural key
	GroupDescAttr  string // attribute holding the group display name
	UsernameAttr   string // attribute holding the username
	GivenNameAttr  string // attribute holding the given name
	FamilyNameAttr string // attribute holding the family name
	EmailAttr      string // attribute holding the email address
	CredentialAttr string // attribute holding the source credential hash
}

// SQLiteSettings contains settings for the SQLite output database.
type SQLiteSettings struct {
	Enabled bool   // true to enable the SQLite output
	Path    string // path to the database file
}

// MySQLSettings contains settings for the MySQL output database.
type MySQLSettings struct {
	Enabled  bool   // true to enable the MySQL output
	Username string // MySQL username
	Password string // MySQL password
	Database string // MySQL database name
	Host     string // MySQL server hostname
	Port     string // MySQL server port
}

// OutputSettings contains the output database settings.
type OutputSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// MigrationSettings contains knobs for the migration run itself.
type MigrationSettings struct {
	BatchSize   int  // number of users processed per batch
	Concurrency int  // max in-flight user upserts within a batch
	DryRun      bool // true to run without writing client/user rows
}

// Settings is the root of the configuration.
type Settings struct {
	Debug     bool // true to enable debug logging
	Main      MainSettings
	Directory DirectorySettings
	Output    OutputSettings
	Migration MigrationSettings
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a Settings
// struct and stores it as the active instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	// Initialize viper and read config
	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	// Unmarshal the config into settings
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	// Validate settings
	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Set default values for each configuration parameter
	// function defined in defaults.go
	setDefaultConfig()

	// Read configuration file
	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, run with defaults. The config command
			// writes the annotated default file on demand.
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// CreateDefaultConfig writes the embedded default config file to the first
// default config path and returns the path it was written to.
func CreateDefaultConfig() (string, error) {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return "", fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0o644); err != nil {
		return "", fmt.Errorf("error writing default config file: %w", err)
	}
	return configPath, nil
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading embedded config file: %v", err)
	}
	return string(data)
}

// GetDefaultConfigPaths returns the config file search paths: the user config
// directory first, then the current working directory.
func GetDefaultConfigPaths() ([]string, error) {
	var paths []string
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "dirmigrate"))
	}
	paths = append(paths, ".")
	return paths, nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SyncViper syncs the given settings struct with viper's current values so
// that bound command line flags take precedence over the config file.
func SyncViper(settings *Settings) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings.Debug = viper.GetBool("debug")
	settings.Migration.BatchSize = viper.GetInt("migration.batchsize")
	settings.Migration.Concurrency = viper.GetInt("migration.concurrency")
	settings.Migration.DryRun = viper.GetBool("migration.dryrun")

	settingsInstance = settings
}
