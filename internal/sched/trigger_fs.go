package sched

import (
	"os"
	"path/filepath"
	"time"

	"autokit/pkg/logx"
)

// fsTrigger detects filesystem changes by diffing directory snapshots
// (existence set + modification times) between polls. Detection is inherently
// racy at poll granularity: events are deduplicated per poll, not exact.
type fsTrigger struct {
	path    string
	pattern string
	poll    time.Duration
	log     logx.Logger

	// snap maps entry name -> mtime (unix nanos). Updated on every
	// evaluation, whether or not the job is dispatched.
	snap   map[string]int64
	primed bool

	// degraded throttles the missing-path warning to once per outage.
	degraded bool
}

func newFSTrigger(spec TriggerSpec, log logx.Logger) *fsTrigger {
	poll := spec.PollEvery
	if poll <= 0 {
		poll = defaultFSPoll
	}
	return &fsTrigger{path: spec.Path, pattern: spec.Pattern, poll: poll, log: log}
}

func (t *fsTrigger) isDue(now, lastRun time.Time) bool {
	_ = now
	_ = lastRun

	cur, err := t.scan()
	if err != nil {
		if !t.degraded {
			t.log.Warn("watched path unavailable; trigger degraded",
				logx.String("path", t.path), logx.Err(err))
			t.degraded = true
		}
		return false
	}
	if t.degraded {
		t.log.Info("watched path available again", logx.String("path", t.path))
		t.degraded = false
	}

	if !t.primed {
		// First evaluation establishes the baseline; nothing "changed" yet.
		t.snap = cur
		t.primed = true
		return false
	}

	changed := !sameSnapshot(t.snap, cur)
	t.snap = cur
	return changed
}

func (t *fsTrigger) nextEstimate(now time.Time) time.Time {
	return now.Add(t.poll)
}

func (t *fsTrigger) scan() (map[string]int64, error) {
	entries, err := os.ReadDir(t.path)
	if err != nil {
		return nil, err
	}
	snap := make(map[string]int64, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if t.pattern != "" {
			ok, err := filepath.Match(t.pattern, name)
			if err != nil || !ok {
				continue
			}
		}
		info, err := e.Info()
		if err != nil {
			// Entry vanished between ReadDir and Info; its absence will
			// show up as a diff on the next poll.
			continue
		}
		snap[name] = info.ModTime().UnixNano()
	}
	return snap, nil
}

func sameSnapshot(a, b map[string]int64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}
