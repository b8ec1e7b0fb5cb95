package directory

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-ldap/ldap/v3"
	"github.com/tphakala/dirmigrate/internal/conf"
	"github.com/tphakala/dirmigrate/internal/errors"
	"github.com/tphakala/dirmigrate/internal/logging"
)

// LDAPReader implements Reader against an LDAP directory where client groups
// are organizational units directly under the base DN and users are entries
// under each unit.
type LDAPReader struct {
	settings *conf.DirectorySettings
	log      *slog.Logger

	mu       sync.Mutex
	conn     *ldap.Conn
	groupDNs map[string]string // natural key -> entry DN, filled by ListClientGroups
}

// NewLDAPReader creates a reader for the configured directory. Connect must
// be called before any listing.
func NewLDAPReader(settings *conf.DirectorySettings) *LDAPReader {
	return &LDAPReader{
		settings: settings,
		log:      logging.ForService("directory"),
		groupDNs: make(map[string]string),
	}
}

// Connect dials and binds the directory connection.
func (r *LDAPReader) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	scheme := "ldap"
	var opts []ldap.DialOpt
	if r.settings.TLS {
		scheme = "ldaps"
		opts = append(opts, ldap.DialWithTLSConfig(&tls.Config{
			InsecureSkipVerify: r.settings.SkipTLSVerify, //nolint:gosec // operator opt-in for lab directories
			ServerName:         r.settings.Host,
		}))
	}
	addr := fmt.Sprintf("%s://%s:%d", scheme, r.settings.Host, r.settings.Port)

	conn, err := ldap.DialURL(addr, opts...)
	if err != nil {
		return errors.New(err).
			Component("directory").
			Category(errors.CategoryConnection).
			Context("address", addr).
			Build()
	}

	if r.settings.BindDN != "" {
		if err := conn.Bind(r.settings.BindDN, r.settings.BindPassword); err != nil {
			conn.Close()
			return errors.New(err).
				Component("directory").
				Category(errors.CategoryConnection).
				Context("bind_dn", r.settings.BindDN).
				Build()
		}
	}

	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()
	r.log.Info("connected to directory", "address", addr)
	return nil
}

// Close releases the directory connection. Safe to call when not connected.
func (r *LDAPReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	return err
}

// ListClientGroups returns all client groups under the base DN, in directory
// order. Entries without a usable name are filtered out.
func (r *LDAPReader) ListClientGroups(ctx context.Context) ([]ClientEntry, error) {
	conn, err := r.connection(ctx)
	if err != nil {
		return nil, err
	}

	req := ldap.NewSearchRequest(
		r.settings.BaseDN,
		ldap.ScopeSingleLevel, ldap.NeverDerefAliases, 0, 0, false,
		r.settings.GroupFilter,
		[]string{r.settings.GroupNameAttr, r.settings.GroupDescAttr},
		nil,
	)

	res, err := conn.Search(req)
	if err != nil {
		return nil, errors.New(err).
			Component("directory").
			Category(errors.CategoryDirectory).
			Context("operation", "list_client_groups").
			Context("base_dn", r.settings.BaseDN).
			Build()
	}

	groups := make([]ClientEntry, 0, len(res.Entries))
	r.mu.Lock()
	for _, entry := range res.Entries {
		client, ok := clientFromEntry(entry, r.settings)
		if !ok {
			r.log.Debug("skipping directory entry without a usable group name", "dn", entry.DN)
			continue
		}
		r.groupDNs[client.Name] = client.DN
		groups = append(groups, client)
	}
	r.mu.Unlock()

	r.log.Info("enumerated client groups", "count", len(groups))
	return groups, nil
}

// ListUsers returns all users of the named client group, in directory order.
// The group must have been seen by a prior ListClientGroups call.
func (r *LDAPReader) ListUsers(ctx context.Context, groupName string) ([]UserEntry, error) {
	conn, err := r.connection(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	groupDN, ok := r.groupDNs[groupName]
	r.mu.Unlock()
	if !ok {
		return nil, errors.Newf("unknown client group: %s", groupName).
			Component("directory").
			Category(errors.CategoryDirectory).
			Build()
	}

	req := ldap.NewSearchRequest(
		groupDN,
		ldap.ScopeSingleLevel, ldap.NeverDerefAliases, 0, 0, false,
		r.settings.UserFilter,
		[]string{
			r.settings.UsernameAttr,
			r.settings.GivenNameAttr,
			r.settings.FamilyNameAttr,
			r.settings.EmailAttr,
			r.settings.CredentialAttr,
		},
		nil,
	)

	res, err := conn.Search(req)
	if err != nil {
		return nil, errors.New(err).
			Component("directory").
			Category(errors.CategoryDirectory).
			Context("operation", "list_users").
			Context("group", groupName).
			Build()
	}

	users := make([]UserEntry, 0, len(res.Entries))
	for _, entry := range res.Entries {
		user, ok := userFromEntry(entry, r.settings)
		if !ok {
			r.log.Debug("skipping directory entry without a username", "dn", entry.DN)
			continue
		}
		users = append(users, user)
	}

	return users, nil
}

// connection returns the bound connection or a connection-category error.
func (r *LDAPReader) connection(ctx context.Context) (*ldap.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil, errors.Newf("directory connection is not established").
			Component("directory").
			Category(errors.CategoryConnection).
			Build()
	}
	return r.conn, nil
}

// clientFromEntry maps a directory entry to a ClientEntry. ok is false when
// the entry has no usable natural key.
func clientFromEntry(entry *ldap.Entry, settings *conf.DirectorySettings) (ClientEntry, bool) {
	name := entry.GetAttributeValue(settings.GroupNameAttr)
	if name == "" {
		return ClientEntry{}, false
	}
	return ClientEntry{
		Name:        name,
		DisplayName: entry.GetAttributeValue(settings.GroupDescAttr),
		DN:          entry.DN,
	}, true
}

// userFromEntry maps a directory entry to a UserEntry. ok is false when the
// entry has no username. Absent optional attributes come back as empty
// strings, never as an error.
func userFromEntry(entry *ldap.Entry, settings *conf.DirectorySettings) (UserEntry, bool) {
	username := entry.GetAttributeValue(settings.UsernameAttr)
	if username == "" {
		return UserEntry{}, false
	}
	return UserEntry{
		Username:      username,
		GivenName:     entry.GetAttributeValue(settings.GivenNameAttr),
		FamilyName:    entry.GetAttributeValue(settings.FamilyNameAttr),
		Email:         entry.GetAttributeValue(settings.EmailAttr),
		RawCredential: entry.GetAttributeValue(settings.CredentialAttr),
		DN:            entry.DN,
	}, true
}
