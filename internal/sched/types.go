package sched

import (
	"context"
	"strings"
	"time"
)

// OutcomeKind classifies the result of one dispatch attempt.
type OutcomeKind int

const (
	NeverRun OutcomeKind = iota
	Success
	Failure
	TimedOut
	SkippedOverlap
)

func (k OutcomeKind) String() string {
	switch k {
	case NeverRun:
		return "never_run"
	case Success:
		return "success"
	case Failure:
		return "failure"
	case TimedOut:
		return "timed_out"
	case SkippedOverlap:
		return "skipped_overlap"
	default:
		return "unknown"
	}
}

// ParseOutcomeKind maps a stored string back to its kind.
// Unknown values come back as NeverRun so a stale checkpoint cannot
// poison a restored job.
func ParseOutcomeKind(s string) OutcomeKind {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "success":
		return Success
	case "failure":
		return Failure
	case "timed_out":
		return TimedOut
	case "skipped_overlap":
		return SkippedOverlap
	default:
		return NeverRun
	}
}

// Params are the free-form key/value arguments a job passes to its action.
type Params map[string]string

func (p Params) Get(key, def string) string {
	if p == nil {
		return def
	}
	v, ok := p[key]
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Outcome is the immutable record of one dispatch attempt.
// Exactly one Outcome is produced per attempt; it is consumed by the sink
// router and kept in the scheduler's bounded history.
type Outcome struct {
	RunID   string        `json:"run_id"`
	Job     string        `json:"job"`
	Time    time.Time     `json:"time"`
	Kind    OutcomeKind   `json:"kind"`
	Message string        `json:"message,omitempty"`
	Took    time.Duration `json:"took,omitempty"`
}

// ActionUnit is a named unit of work with a declared timeout.
//
// Jobs reference units by name (back-reference, not ownership), so units can
// be swapped in the registry without touching job definitions.
//
// ConcurrentSafe units may run concurrently with other jobs' dispatches;
// a single job is still never concurrent with itself.
type ActionUnit struct {
	Name           string
	Timeout        time.Duration
	ConcurrentSafe bool
	Run            func(ctx context.Context, p Params) (string, error)
}

// Job pairs a trigger with an action, plus execution history.
// Trigger and Action are immutable after registration; replace the job to
// change them. LastRun zero means the job has never run.
type Job struct {
	Name    string
	Trigger TriggerSpec
	Action  string
	Params  Params
	Enabled bool

	LastRun     time.Time
	LastOutcome OutcomeKind
	RunCount    int
}

// JobState is the checkpointable slice of a job's history.
type JobState struct {
	LastRun     time.Time
	LastOutcome OutcomeKind
	RunCount    int
}

// JobSummary is the read-only view handed to status surfaces (CLI, report).
type JobSummary struct {
	Name        string
	Action      string
	Enabled     bool
	Dispatching bool
	LastRun     time.Time
	LastOutcome OutcomeKind
	RunCount    int
	Next        time.Time
}
