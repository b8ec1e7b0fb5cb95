package datastore

import (
	"github.com/tphakala/dirmigrate/internal/errors"
	"gorm.io/gorm"
)

// UpsertUser inserts or updates a user keyed by the (client group, username)
// composite key. On update, empty incoming source attributes never overwrite
// previously stored non-empty values, while present attributes always
// overwrite. A nil incoming password hash never clears a stored one.
func (ds *DataStore) UpsertUser(user *MigratedUser) (*MigratedUser, error) {
	if user.Username == "" || user.SourceDN == "" {
		return nil, errors.Newf("username and source DN are required").
			Component("datastore").
			Category(errors.CategoryValidation).
			Context("group_id", user.ClientGroupID).
			Build()
	}
	if user.ClientGroupID == 0 {
		return nil, errors.Newf("user %s has no client group", user.Username).
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}

	var out *MigratedUser
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		var existing MigratedUser
		err := tx.Where("client_group_id = ? AND username = ?", user.ClientGroupID, user.Username).
			First(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Omit("ClientGroup").Create(user).Error; err != nil {
				return err
			}
			out = user
			return nil
		case err != nil:
			return err
		}

		mergeUser(&existing, user)
		if err := tx.Omit("ClientGroup").Save(&existing).Error; err != nil {
			return err
		}
		out = &existing
		return nil
	})
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "upsert_user").
			Context("username", user.Username).
			Context("group_id", user.ClientGroupID).
			Build()
	}

	return out, nil
}

// mergeUser applies the merge-preserve-existing policy: present incoming
// attributes overwrite, absent ones keep the stored value. SourceDN is
// always present and always overwrites.
func mergeUser(existing, incoming *MigratedUser) {
	if incoming.GivenName != "" {
		existing.GivenName = incoming.GivenName
	}
	if incoming.FamilyName != "" {
		existing.FamilyName = incoming.FamilyName
	}
	if incoming.Email != "" {
		existing.Email = incoming.Email
	}
	if incoming.SourceHash != "" {
		existing.SourceHash = incoming.SourceHash
	}
	if incoming.PasswordHash != nil {
		existing.PasswordHash = incoming.PasswordHash
	}
	existing.SourceDN = incoming.SourceDN
}
