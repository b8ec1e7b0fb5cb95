package migration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/dirmigrate/internal/conf"
	"github.com/tphakala/dirmigrate/internal/datastore"
	"github.com/tphakala/dirmigrate/internal/directory"
	"github.com/tphakala/dirmigrate/internal/hashconv"
)

// fakeReader serves a canned directory tree.
type fakeReader struct {
	groups     []directory.ClientEntry
	users      map[string][]directory.UserEntry
	connectErr error
	usersErr   map[string]error

	connected bool
	closed    bool
}

func (f *fakeReader) Connect(ctx context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func (f *fakeReader) ListClientGroups(ctx context.Context) ([]directory.ClientEntry, error) {
	return f.groups, nil
}

func (f *fakeReader) ListUsers(ctx context.Context, groupName string) ([]directory.UserEntry, error) {
	if err := f.usersErr[groupName]; err != nil {
		return nil, err
	}
	return f.users[groupName], nil
}

// flakyStore wraps a real store, injecting failures and counting user
// upserts per group name.
type flakyStore struct {
	datastore.Interface

	mu              sync.Mutex
	failClients     map[string]error
	failUsers       map[string]error
	userUpsertCalls map[uint]int
	groupNames      map[uint]string
}

func newFlakyStore(real datastore.Interface) *flakyStore {
	return &flakyStore{
		Interface:       real,
		failClients:     map[string]error{},
		failUsers:       map[string]error{},
		userUpsertCalls: map[uint]int{},
		groupNames:      map[uint]string{},
	}
}

func (f *flakyStore) UpsertClientGroup(name, displayName string) (*datastore.ClientGroup, error) {
	if err := f.failClients[name]; err != nil {
		return nil, err
	}
	group, err := f.Interface.UpsertClientGroup(name, displayName)
	if err == nil {
		f.mu.Lock()
		f.groupNames[group.ID] = name
		f.mu.Unlock()
	}
	return group, err
}

func (f *flakyStore) UpsertUser(user *datastore.MigratedUser) (*datastore.MigratedUser, error) {
	f.mu.Lock()
	f.userUpsertCalls[user.ClientGroupID]++
	failErr := f.failUsers[user.Username]
	f.mu.Unlock()
	if failErr != nil {
		return nil, failErr
	}
	return f.Interface.UpsertUser(user)
}

func (f *flakyStore) upsertsForGroup(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, n := range f.groupNames {
		if n == name {
			return f.userUpsertCalls[id]
		}
	}
	return 0
}

// recordingReporter captures progress observations.
type recordingReporter struct {
	mu      sync.Mutex
	entries []string
	percent map[string]int
	mono    bool
}

func newRecordingReporter() *recordingReporter {
	return &recordingReporter{percent: map[string]int{}, mono: true}
}

func (r *recordingReporter) Progress(current, total int, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := percent(current, total)
	if p < r.percent[label] {
		r.mono = false
	}
	r.percent[label] = p
	r.entries = append(r.entries, fmt.Sprintf("%s:%d/%d", label, current, total))
}

func newSQLiteStore(t *testing.T) datastore.Interface {
	t.Helper()
	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = t.TempDir() + "/test.db"
	store := datastore.New(settings)
	require.NotNil(t, store)
	return store
}

func exampleDirectory() *fakeReader {
	return &fakeReader{
		groups: []directory.ClientEntry{
			{Name: "clientA", DisplayName: "Client A", DN: "ou=clientA,dc=example,dc=org"},
			{Name: "clientB", DN: "ou=clientB,dc=example,dc=org"},
		},
		users: map[string][]directory.UserEntry{
			"clientA": {
				{Username: "user1", Email: "a@x.com", RawCredential: "{SSHA}abc", DN: "uid=user1,ou=clientA,dc=example,dc=org"},
				{Username: "user2", DN: "uid=user2,ou=clientA,dc=example,dc=org"},
			},
			"clientB": {
				{Username: "user3", Email: "b@x.com", RawCredential: "{MD5}def", DN: "uid=user3,ou=clientB,dc=example,dc=org"},
			},
		},
	}
}

func newOrchestrator(t *testing.T, reader directory.Reader, store datastore.Interface, dryRun bool) *Orchestrator {
	t.Helper()
	return New(Config{
		Directory: reader,
		Store:     store,
		Converter: hashconv.New(nil),
		DryRun:    dryRun,
	})
}

func countRows(t *testing.T, store datastore.Interface) (groups, users int64) {
	t.Helper()
	ds := store.(*datastore.SQLiteStore)
	require.NoError(t, ds.DB.Model(&datastore.ClientGroup{}).Count(&groups).Error)
	require.NoError(t, ds.DB.Model(&datastore.MigratedUser{}).Count(&users).Error)
	return groups, users
}

func TestRunExampleScenario(t *testing.T) {
	reader := exampleDirectory()
	store := newSQLiteStore(t)

	result, err := newOrchestrator(t, reader, store, false).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, Stats{
		TotalClients:     2,
		SucceededClients: 2,
		TotalUsers:       3,
		SucceededUsers:   3,
	}, result.Stats)
	assert.True(t, reader.closed, "directory connection must be released")

	// Inspect the stored users: user1 and user3 carry a generated bcrypt
	// credential, user2 has none because its source credential was empty.
	require.NoError(t, store.Open())
	defer store.Close()
	ds := store.(*datastore.SQLiteStore)

	var users []datastore.MigratedUser
	require.NoError(t, ds.DB.Order("username").Find(&users).Error)
	require.Len(t, users, 3)

	require.NotNil(t, users[0].PasswordHash)
	assert.True(t, strings.HasPrefix(*users[0].PasswordHash, "$2"), "user1 must have a bcrypt hash")
	assert.Nil(t, users[1].PasswordHash, "user2 must have no credential, not an empty string")
	require.NotNil(t, users[2].PasswordHash)
	assert.True(t, strings.HasPrefix(*users[2].PasswordHash, "$2"))

	// The run summary was persisted.
	runs, err := store.RunHistory(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, result.RunID, runs[0].RunID)
	assert.Equal(t, 3, runs[0].SucceededUsers)
	assert.False(t, runs[0].DryRun)
}

func TestRunIdempotent(t *testing.T) {
	reader := exampleDirectory()
	store := newSQLiteStore(t)

	first, err := newOrchestrator(t, reader, store, false).Run(context.Background())
	require.NoError(t, err)
	second, err := newOrchestrator(t, reader, store, false).Run(context.Background())
	require.NoError(t, err)

	for _, result := range []*Result{first, second} {
		assert.True(t, result.Success)
		assert.Equal(t, result.Stats.TotalClients, result.Stats.SucceededClients)
		assert.Equal(t, result.Stats.TotalUsers, result.Stats.SucceededUsers)
		assert.Zero(t, result.Stats.FailedClients)
		assert.Zero(t, result.Stats.FailedUsers)
	}

	require.NoError(t, store.Open())
	defer store.Close()
	groups, users := countRows(t, store)
	assert.EqualValues(t, 2, groups, "second run must not create new client rows")
	assert.EqualValues(t, 3, users, "second run must not create new user rows")
}

func TestPartialFailureIsolation(t *testing.T) {
	reader := exampleDirectory()
	store := newFlakyStore(newSQLiteStore(t))
	store.failUsers["user2"] = fmt.Errorf("forced duplicate-key violation")

	result, err := newOrchestrator(t, reader, store, false).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Stats.TotalUsers)
	assert.Equal(t, 2, result.Stats.SucceededUsers, "siblings of a failed user must still succeed")
	assert.Equal(t, 1, result.Stats.FailedUsers)
	assert.Equal(t, 2, result.Stats.SucceededClients, "a single user failure must not fail its client")
	require.Len(t, result.Stats.Errors, 1)
	assert.Contains(t, result.Stats.Errors[0], "user2")
}

func TestClientFailureShortCircuit(t *testing.T) {
	reader := exampleDirectory()
	store := newFlakyStore(newSQLiteStore(t))
	store.failClients["clientA"] = fmt.Errorf("forced client upsert failure")

	result, err := newOrchestrator(t, reader, store, false).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Stats.FailedClients)
	assert.Equal(t, 1, result.Stats.SucceededClients, "other clients must still be processed")
	assert.Equal(t, 1, result.Stats.TotalUsers, "only clientB's user is attempted")
	assert.Zero(t, store.upsertsForGroup("clientA"), "no user upserts for a failed client")
	assert.Equal(t, 1, store.upsertsForGroup("clientB"))
}

func TestUserEnumerationFailureCountsClientFailed(t *testing.T) {
	reader := exampleDirectory()
	reader.usersErr = map[string]error{"clientA": fmt.Errorf("forced search failure")}
	store := newFlakyStore(newSQLiteStore(t))

	result, err := newOrchestrator(t, reader, store, false).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Stats.FailedClients)
	assert.Zero(t, store.upsertsForGroup("clientA"))
}

func TestDryRunNonMutation(t *testing.T) {
	reader := exampleDirectory()
	store := newSQLiteStore(t)

	result, err := newOrchestrator(t, reader, store, true).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.DryRun)
	assert.Equal(t, 2, result.Stats.SucceededClients, "dry run still reports would-be successes")
	assert.Equal(t, 3, result.Stats.SucceededUsers)

	require.NoError(t, store.Open())
	defer store.Close()
	groups, users := countRows(t, store)
	assert.Zero(t, groups, "dry run must not write client rows")
	assert.Zero(t, users, "dry run must not write user rows")

	// The summary is still persisted and flagged as a dry run.
	runs, err := store.RunHistory(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].DryRun)
	assert.Equal(t, 3, runs[0].SucceededUsers)
}

func TestConnectionFailureAbortsRun(t *testing.T) {
	reader := exampleDirectory()
	reader.connectErr = fmt.Errorf("directory unreachable")
	store := newSQLiteStore(t)

	result, err := newOrchestrator(t, reader, store, false).Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, result)

	// No summary is written when the connection step fails.
	require.NoError(t, store.Open())
	defer store.Close()
	runs, err := store.RunHistory(0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStoreOpenFailureReleasesDirectory(t *testing.T) {
	reader := exampleDirectory()
	store := &failingOpenStore{}

	result, err := New(Config{
		Directory: reader,
		Store:     store,
		Converter: hashconv.New(nil),
	}).Run(context.Background())

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, reader.closed, "directory connection must be released when the store cannot be opened")
}

func TestBatchingIsSequentialAndProgressMonotonic(t *testing.T) {
	users := make([]directory.UserEntry, 7)
	for i := range users {
		users[i] = directory.UserEntry{
			Username: fmt.Sprintf("user%02d", i),
			DN:       fmt.Sprintf("uid=user%02d,ou=clientA,dc=example,dc=org", i),
		}
	}
	reader := &fakeReader{
		groups: []directory.ClientEntry{{Name: "clientA", DN: "ou=clientA,dc=example,dc=org"}},
		users:  map[string][]directory.UserEntry{"clientA": users},
	}
	store := newSQLiteStore(t)
	reporter := newRecordingReporter()

	result, err := New(Config{
		Directory: reader,
		Store:     store,
		Converter: hashconv.New(nil),
		Reporter:  reporter,
		BatchSize: 3,
	}).Run(context.Background())
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 7, result.Stats.SucceededUsers)

	// One observation per settled batch, in order: 3, 6, 7 of 7.
	assert.Equal(t, []string{
		"users:clientA:3/7",
		"users:clientA:6/7",
		"users:clientA:7/7",
		"clients:1/1",
	}, reporter.entries)
	assert.True(t, reporter.mono, "reported progress must be monotonically non-decreasing")
}

// failingOpenStore fails Open and counts nothing else.
type failingOpenStore struct{}

func (f *failingOpenStore) Open() error  { return fmt.Errorf("store unreachable") }
func (f *failingOpenStore) Close() error { return nil }
func (f *failingOpenStore) UpsertClientGroup(name, displayName string) (*datastore.ClientGroup, error) {
	return nil, fmt.Errorf("not open")
}
func (f *failingOpenStore) UpsertUser(user *datastore.MigratedUser) (*datastore.MigratedUser, error) {
	return nil, fmt.Errorf("not open")
}
func (f *failingOpenStore) SaveRunSummary(summary *datastore.RunSummary) error {
	return fmt.Errorf("not open")
}
func (f *failingOpenStore) RunHistory(limit int) ([]datastore.RunSummary, error) {
	return nil, fmt.Errorf("not open")
}
