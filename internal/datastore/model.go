package datastore

import (
	"time"
)

// ClientGroup is a migrated client, keyed by the natural group name taken
// from the directory's organizational unit. Rows are only ever upserted by
// natural key, never deleted by this tool.
type ClientGroup struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:255;not null;uniqueIndex"`
	DisplayName string `gorm:"size:255"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MigratedUser is a migrated user record. The (client_group_id, username)
// pair is the composite natural key. PasswordHash is nil when the source
// credential could not be converted, absence is never stored as an empty
// string. Deleting a client group cascades to its users.
type MigratedUser struct {
	ID            uint   `gorm:"primaryKey"`
	ClientGroupID uint   `gorm:"not null;uniqueIndex:idx_group_username"`
	Username      string `gorm:"size:255;not null;uniqueIndex:idx_group_username"`
	GivenName     string `gorm:"size:255"`
	FamilyName    string `gorm:"size:255"`
	Email         string `gorm:"size:255"`
	SourceHash    string `gorm:"size:512"`
	SourceDN      string `gorm:"size:512;not null"`
	PasswordHash  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	ClientGroup ClientGroup `gorm:"constraint:OnDelete:CASCADE"`
}

// RunSummary is the append-only audit record persisted once per migration
// run, dry runs included. It is never read back by later runs' logic, only
// listed by the history command.
type RunSummary struct {
	ID               uint   `gorm:"primaryKey"`
	RunID            string `gorm:"size:36;not null"`
	TotalClients     int
	SucceededClients int
	FailedClients    int
	TotalUsers       int
	SucceededUsers   int
	FailedUsers      int
	Errors           []string `gorm:"serializer:json"`
	DryRun           bool
	Duration         time.Duration
	CreatedAt        time.Time
}
