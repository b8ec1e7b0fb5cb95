package datastore

import (
	"github.com/tphakala/dirmigrate/internal/errors"
	"gorm.io/gorm/clause"
)

// UpsertClientGroup inserts or updates a client group keyed by its natural
// name. An empty incoming display name never overwrites a stored one,
// a present display name always does.
func (ds *DataStore) UpsertClientGroup(name, displayName string) (*ClientGroup, error) {
	if name == "" {
		return nil, errors.Newf("client group name cannot be empty").
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}

	group := &ClientGroup{Name: name, DisplayName: displayName}

	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}
	if displayName != "" {
		onConflict = clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "updated_at"}),
		}
	}

	if err := ds.DB.Clauses(onConflict).Create(group).Error; err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "upsert_client_group").
			Context("group", name).
			Build()
	}

	// Re-read by natural key, on conflict the returned struct does not carry
	// the canonical row ID on every backend.
	var out ClientGroup
	if err := ds.DB.Where("name = ?", name).First(&out).Error; err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "reload_client_group").
			Context("group", name).
			Build()
	}

	return &out, nil
}
