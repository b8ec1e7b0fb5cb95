// Package migration drives a full directory-to-store migration run: client
// enumeration, batched concurrent user processing, partial-failure
// accounting and run summary persistence.
package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tphakala/dirmigrate/internal/datastore"
	"github.com/tphakala/dirmigrate/internal/directory"
	"github.com/tphakala/dirmigrate/internal/errors"
	"github.com/tphakala/dirmigrate/internal/hashconv"
	"github.com/tphakala/dirmigrate/internal/logging"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchSize   = 100
	defaultConcurrency = 10
)

// Config collects the collaborators and knobs for an Orchestrator.
type Config struct {
	Directory   directory.Reader
	Store       datastore.Interface
	Converter   *hashconv.Converter
	Reporter    Reporter
	BatchSize   int  // users per batch, default 100
	Concurrency int  // max in-flight upserts within a batch, default 10
	DryRun      bool // report would-be outcomes without writing rows
	Log         *slog.Logger
}

// Orchestrator owns one directory connection and one store connection for
// the lifetime of a run. It is not safe for concurrent runs.
type Orchestrator struct {
	dir         directory.Reader
	store       datastore.Interface
	conv        *hashconv.Converter
	reporter    Reporter
	batchSize   int
	concurrency int
	dryRun      bool
	log         *slog.Logger
}

// New creates an Orchestrator from the given configuration, applying
// defaults for unset knobs.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		dir:         cfg.Directory,
		store:       cfg.Store,
		conv:        cfg.Converter,
		reporter:    cfg.Reporter,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		dryRun:      cfg.DryRun,
		log:         cfg.Log,
	}
	if o.batchSize < 1 {
		o.batchSize = defaultBatchSize
	}
	if o.concurrency < 1 {
		o.concurrency = defaultConcurrency
	}
	if o.reporter == nil {
		o.reporter = NopReporter{}
	}
	if o.conv == nil {
		o.conv = hashconv.New(nil)
	}
	if o.log == nil {
		o.log = logging.ForService("migration")
	}
	return o
}

// Run executes the full migration. Every enumerated client is attempted
// exactly once, every enumerated user of every successfully written client
// is attempted exactly once, and a run summary is persisted regardless of
// per-entity outcomes. Only connection-level failures return an error, in
// which case nothing has been written and no summary exists. Connections
// are released on every exit path.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	o.log.Info("starting migration run", "run_id", runID, "dry_run", o.dryRun, "batch_size", o.batchSize)

	// Connecting: a failure here aborts the run before any data is touched.
	if err := o.dir.Connect(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := o.dir.Close(); err != nil {
			o.log.Warn("failed to close directory connection", "error", err)
		}
	}()

	if err := o.store.Open(); err != nil {
		return nil, errors.New(err).
			Component("migration").
			Category(errors.CategoryConnection).
			Context("operation", "open_store").
			Build()
	}
	defer func() {
		if err := o.store.Close(); err != nil {
			o.log.Warn("failed to close store connection", "error", err)
		}
	}()

	// In a dry run all client and user writes become no-ops at the store
	// boundary, reads and derivations run unchanged.
	writer := o.store
	if o.dryRun {
		writer = datastore.NewDryRun(o.store)
	}

	// Enumerating clients is still part of establishing the run, a failure
	// here aborts before any processing and no summary is written.
	clients, err := o.dir.ListClientGroups(ctx)
	if err != nil {
		return nil, err
	}

	stats := Stats{}
	for i, client := range clients {
		o.processClient(ctx, writer, client, &stats)
		o.reporter.Progress(i+1, len(clients), "clients")
	}

	// Finalizing: the summary is persisted for every completed run, dry
	// runs included. A summary write failure does not fail the run, it is
	// reflected in the returned errors instead.
	summary := &datastore.RunSummary{
		RunID:            runID,
		TotalClients:     stats.TotalClients,
		SucceededClients: stats.SucceededClients,
		FailedClients:    stats.FailedClients,
		TotalUsers:       stats.TotalUsers,
		SucceededUsers:   stats.SucceededUsers,
		FailedUsers:      stats.FailedUsers,
		Errors:           stats.Errors,
		DryRun:           o.dryRun,
		Duration:         time.Since(start),
	}
	if err := writer.SaveRunSummary(summary); err != nil {
		o.log.Error("failed to persist run summary", "run_id", runID, "error", err)
		stats.fail(fmt.Sprintf("run summary: %v", err))
	}

	result := &Result{
		RunID:    runID,
		Success:  stats.FailedClients == 0 && stats.FailedUsers == 0,
		DryRun:   o.dryRun,
		Duration: time.Since(start),
		Stats:    stats,
	}
	o.log.Info("migration run finished",
		"run_id", runID,
		"success", result.Success,
		"clients", stats.TotalClients,
		"users", stats.TotalUsers,
		"failed_clients", stats.FailedClients,
		"failed_users", stats.FailedUsers,
		"duration", result.Duration)
	return result, nil
}

// processClient upserts one client and migrates its users. A failure of the
// client's own upsert or user enumeration counts the client as failed and
// skips its users entirely, it never aborts subsequent clients.
func (o *Orchestrator) processClient(ctx context.Context, writer datastore.Interface, client directory.ClientEntry, stats *Stats) {
	stats.TotalClients++

	group, err := writer.UpsertClientGroup(client.Name, client.DisplayName)
	if err != nil {
		o.log.Error("client upsert failed, skipping its users", "client", client.Name, "error", err)
		stats.FailedClients++
		stats.fail(fmt.Sprintf("client %s: %v", client.Name, err))
		return
	}

	users, err := o.dir.ListUsers(ctx, client.Name)
	if err != nil {
		o.log.Error("user enumeration failed, skipping client", "client", client.Name, "error", err)
		stats.FailedClients++
		stats.fail(fmt.Sprintf("client %s: listing users: %v", client.Name, err))
		return
	}

	stats.SucceededClients++
	o.migrateUsers(ctx, writer, group, users, stats)
}

// migrateUsers processes users in contiguous fixed-size batches. Within a
// batch all users run concurrently and all outcomes are settled before the
// stats are merged, one user's failure never affects a sibling. Batches run
// sequentially to bound in-flight work and keep progress monotonic.
func (o *Orchestrator) migrateUsers(ctx context.Context, writer datastore.Interface, group *datastore.ClientGroup, users []directory.UserEntry, stats *Stats) {
	for begin := 0; begin < len(users); begin += o.batchSize {
		batch := users[begin:min(begin+o.batchSize, len(users))]
		outcomes := make([]error, len(batch))

		var g errgroup.Group
		g.SetLimit(o.concurrency)
		for i := range batch {
			i := i
			g.Go(func() error {
				// Workers always return nil so a failure never cancels
				// siblings, per-user outcomes land in their own slot.
				outcomes[i] = o.migrateUser(ctx, writer, group, &batch[i])
				return nil
			})
		}
		_ = g.Wait()

		// Fan-in: merge outcomes into the run stats on the orchestrator
		// goroutine only.
		for i, err := range outcomes {
			stats.TotalUsers++
			if err != nil {
				stats.FailedUsers++
				stats.fail(fmt.Sprintf("user %s/%s: %v", group.Name, batch[i].Username, err))
			} else {
				stats.SucceededUsers++
			}
		}

		o.reporter.Progress(begin+len(batch), len(users), "users:"+group.Name)
	}
}

// migrateUser converts one user's credential and upserts the record. A
// credential that cannot be converted is stored without a password, only the
// upsert itself can fail the user.
func (o *Orchestrator) migrateUser(ctx context.Context, writer datastore.Interface, group *datastore.ClientGroup, user *directory.UserEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	record := &datastore.MigratedUser{
		ClientGroupID: group.ID,
		Username:      user.Username,
		GivenName:     user.GivenName,
		FamilyName:    user.FamilyName,
		Email:         user.Email,
		SourceHash:    user.RawCredential,
		SourceDN:      user.DN,
	}
	if hash, ok := o.conv.Convert(user.RawCredential); ok {
		record.PasswordHash = &hash
	}

	_, err := writer.UpsertUser(record)
	return err
}
