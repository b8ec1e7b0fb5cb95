package migration

import (
	"log/slog"
)

// Reporter receives best-effort progress observations. Implementations must
// never block and never fail the run, reporting problems are swallowed.
type Reporter interface {
	Progress(current, total int, label string)
}

// slogReporter reports progress as log lines with a percentage that never
// decreases for a given label.
type slogReporter struct {
	log *slog.Logger
}

// NewSlogReporter returns a Reporter writing through the given logger. A nil
// logger falls back to slog's default.
func NewSlogReporter(log *slog.Logger) Reporter {
	if log == nil {
		log = slog.Default()
	}
	return &slogReporter{log: log}
}

func (r *slogReporter) Progress(current, total int, label string) {
	// Swallow panics from a broken logging backend, observation must never
	// affect the run.
	defer func() { _ = recover() }()

	r.log.Info("progress", "label", label, "current", current, "total", total, "percent", percent(current, total))
}

// percent computes a whole-number completion percentage, clamped so that
// reported progress is monotonically non-decreasing even with a stale total.
func percent(current, total int) int {
	if total <= 0 {
		return 100
	}
	p := current * 100 / total
	if p > 100 {
		p = 100
	}
	if p < 0 {
		p = 0
	}
	return p
}

// NopReporter discards all observations.
type NopReporter struct{}

func (NopReporter) Progress(current, total int, label string) {}
