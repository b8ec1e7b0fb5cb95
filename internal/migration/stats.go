package migration

import "time"

// Stats accumulates per-run outcome counts. It is only ever mutated by the
// orchestrator goroutine, batch workers report outcomes through their own
// result slots which are merged after the batch settles.
type Stats struct {
	TotalClients     int
	SucceededClients int
	FailedClients    int
	TotalUsers       int
	SucceededUsers   int
	FailedUsers      int
	Errors           []string
}

// Result is the aggregate outcome returned to the caller of a run.
type Result struct {
	RunID    string
	Success  bool
	DryRun   bool
	Duration time.Duration
	Stats    Stats
}

// fail records an entity failure message.
func (s *Stats) fail(msg string) {
	s.Errors = append(s.Errors, msg)
}
