package datastore

import (
	"github.com/tphakala/dirmigrate/internal/errors"
)

// SaveRunSummary appends a run summary record. Summaries are append-only and
// never mutated after creation.
func (ds *DataStore) SaveRunSummary(summary *RunSummary) error {
	if err := ds.DB.Create(summary).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "save_run_summary").
			Context("run_id", summary.RunID).
			Build()
	}
	return nil
}

// RunHistory returns up to limit prior run summaries, newest first. A limit
// of zero or less returns all runs.
func (ds *DataStore) RunHistory(limit int) ([]RunSummary, error) {
	var runs []RunSummary
	query := ds.DB.Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&runs).Error; err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "run_history").
			Build()
	}
	return runs, nil
}
