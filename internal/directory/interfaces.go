// Package directory reads client groups and their users from the source
// LDAP directory.
package directory

import "context"

// ClientEntry is a client group as found in the directory. Name is the
// natural key, DN the full path of the entry.
type ClientEntry struct {
	Name        string
	DisplayName string
	DN          string
}

// UserEntry is a user record as found in the directory. Username and DN are
// always present, all other attributes may be empty.
type UserEntry struct {
	Username      string
	GivenName     string
	FamilyName    string
	Email         string
	RawCredential string
	DN            string
}

// Reader is the read-only directory capability consumed by the migration
// orchestrator. Implementations must filter out structural entries with no
// usable identity and return empty strings for absent optional attributes.
type Reader interface {
	Connect(ctx context.Context) error
	Close() error
	ListClientGroups(ctx context.Context) ([]ClientEntry, error)
	ListUsers(ctx context.Context, groupName string) ([]UserEntry, error)
}
