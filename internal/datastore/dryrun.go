package datastore

import (
	"sync/atomic"
)

// DryRunStore wraps a real store and turns client and user writes into
// no-ops that report synthetic success. Run summaries still go to the real
// store: they are audit metadata about the run, not migrated data, so a dry
// run performs the same reads and derivations but changes no rows.
type DryRunStore struct {
	real   Interface
	nextID atomic.Uint64
}

// NewDryRun wraps the given store for a dry run. The wrapped store is
// expected to be open already.
func NewDryRun(real Interface) *DryRunStore {
	return &DryRunStore{real: real}
}

// Open delegates to the real store.
func (d *DryRunStore) Open() error { return d.real.Open() }

// Close delegates to the real store.
func (d *DryRunStore) Close() error { return d.real.Close() }

// UpsertClientGroup reports a would-have-succeeded upsert without touching
// the store. The returned group carries a synthetic identifier so user
// processing can proceed normally.
func (d *DryRunStore) UpsertClientGroup(name, displayName string) (*ClientGroup, error) {
	return &ClientGroup{
		ID:          uint(d.nextID.Add(1)),
		Name:        name,
		DisplayName: displayName,
	}, nil
}

// UpsertUser reports a would-have-succeeded upsert without touching the store.
func (d *DryRunStore) UpsertUser(user *MigratedUser) (*MigratedUser, error) {
	out := *user
	out.ID = uint(d.nextID.Add(1))
	return &out, nil
}

// SaveRunSummary persists the summary through the real store, the summary
// itself records dry_run = true.
func (d *DryRunStore) SaveRunSummary(summary *RunSummary) error {
	return d.real.SaveRunSummary(summary)
}

// RunHistory delegates to the real store.
func (d *DryRunStore) RunHistory(limit int) ([]RunSummary, error) {
	return d.real.RunHistory(limit)
}
