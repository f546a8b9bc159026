// Package report summarizes the scheduler's own activity: per-job status
// plus a tally of recent outcomes.
package report

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"autokit/internal/sched"
)

// Source exposes the scheduler state the report reads. The app satisfies
// this so the action stays decoupled from the concrete wiring.
type Source interface {
	Summaries() []sched.JobSummary
	History() []sched.Outcome
}

const recentShown = 10

// Params:
//
//	out_file  also write the report to this path (optional)
func Unit(src Source) sched.ActionUnit {
	return sched.ActionUnit{
		Name:           "report",
		Timeout:        15 * time.Second,
		ConcurrentSafe: true,
		Run: func(ctx context.Context, p sched.Params) (string, error) {
			return run(ctx, p, src)
		},
	}
}

func run(ctx context.Context, p sched.Params, src Source) (string, error) {
	if src == nil {
		return "", fmt.Errorf("report: no scheduler source wired")
	}
	text := Render(src.Summaries(), src.History(), time.Now())

	if out := p.Get("out_file", ""); out != "" {
		if err := writeFile(out, text); err != nil {
			return "", fmt.Errorf("report: %w", err)
		}
	}
	return text, nil
}

func writeFile(path, text string) error {
	return os.WriteFile(path, []byte(text), 0o644)
}

// Render builds the report text. Split out so tests can feed fixed inputs.
func Render(jobs []sched.JobSummary, history []sched.Outcome, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "job report at %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "jobs: %d\n", len(jobs))

	for _, j := range jobs {
		state := "enabled"
		if !j.Enabled {
			state = "disabled"
		}
		last := "never"
		if !j.LastRun.IsZero() {
			last = j.LastRun.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(&b, "  %-20s %-8s runs=%-4d last=%s (%s)\n",
			j.Name, state, j.RunCount, last, j.LastOutcome)
	}

	counts := map[sched.OutcomeKind]int{}
	for _, o := range history {
		counts[o.Kind]++
	}
	fmt.Fprintf(&b, "recent outcomes: %d total, %d ok, %d failed, %d timed out, %d skipped\n",
		len(history), counts[sched.Success], counts[sched.Failure],
		counts[sched.TimedOut], counts[sched.SkippedOverlap])

	start := len(history) - recentShown
	if start < 0 {
		start = 0
	}
	for _, o := range history[start:] {
		fmt.Fprintf(&b, "  %s %-20s %-15s %s\n",
			o.Time.Format("15:04:05"), o.Job, o.Kind, o.Message)
	}
	return b.String()
}
