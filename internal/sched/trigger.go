package sched

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"autokit/pkg/logx"
)

// TriggerKind enumerates the closed set of trigger variants.
type TriggerKind int

const (
	TriggerInterval TriggerKind = iota
	TriggerFixedTime
	TriggerFilesystemChange
)

func (k TriggerKind) String() string {
	switch k {
	case TriggerInterval:
		return "interval"
	case TriggerFixedTime:
		return "fixed_time"
	case TriggerFilesystemChange:
		return "fs_change"
	default:
		return "unknown"
	}
}

// TriggerSpec is pure, immutable configuration. Which fields matter depends
// on Kind; Validate rejects specs whose relevant fields are unusable.
type TriggerSpec struct {
	Kind TriggerKind

	// Interval: fire when at least Every has elapsed since the last run.
	Every time.Duration

	// FixedTime: fire once per allowed day after the wall clock crosses At.
	At   string // "HH:MM"
	Days []time.Weekday

	// FilesystemChange: fire when matching entries under Path change.
	Path      string
	Pattern   string
	PollEvery time.Duration
}

const defaultFSPoll = 5 * time.Second

func (s TriggerSpec) Validate() error {
	switch s.Kind {
	case TriggerInterval:
		if s.Every <= 0 {
			return errors.New("interval trigger: every must be > 0")
		}
	case TriggerFixedTime:
		if _, _, err := parseHHMM(s.At); err != nil {
			return fmt.Errorf("fixed-time trigger: %w", err)
		}
		for _, d := range s.Days {
			if d < time.Sunday || d > time.Saturday {
				return fmt.Errorf("fixed-time trigger: invalid weekday %d", int(d))
			}
		}
	case TriggerFilesystemChange:
		if strings.TrimSpace(s.Path) == "" {
			return errors.New("fs-change trigger: path is required")
		}
		if s.Pattern != "" {
			if _, err := filepath.Match(s.Pattern, "probe"); err != nil {
				return fmt.Errorf("fs-change trigger: bad pattern %q: %w", s.Pattern, err)
			}
		}
	default:
		return fmt.Errorf("unknown trigger kind %d", int(s.Kind))
	}
	return nil
}

func (s TriggerSpec) describe() string {
	switch s.Kind {
	case TriggerInterval:
		return "every " + s.Every.String()
	case TriggerFixedTime:
		if len(s.Days) == 0 {
			return "daily at " + s.At
		}
		names := make([]string, 0, len(s.Days))
		for _, d := range s.Days {
			names = append(names, d.String()[:3])
		}
		return "at " + s.At + " on " + strings.Join(names, ",")
	case TriggerFilesystemChange:
		if s.Pattern == "" {
			return "on change in " + s.Path
		}
		return "on change of " + filepath.Join(s.Path, s.Pattern)
	default:
		return "unknown"
	}
}

// trigger is the runtime condition evaluator built from a TriggerSpec.
//
// Triggers may keep internal state (last fired date, fs snapshots); that
// state is owned by exactly one job entry and only touched under the store
// mutex, so implementations don't lock.
type trigger interface {
	// isDue decides "fire now?". lastRun is zero when the job never ran.
	isDue(now, lastRun time.Time) bool
	// nextEstimate is a best-effort next fire time used for poll tuning.
	nextEstimate(now time.Time) time.Time
}

func newTrigger(spec TriggerSpec, log logx.Logger) (trigger, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	switch spec.Kind {
	case TriggerInterval:
		return &intervalTrigger{every: spec.Every}, nil
	case TriggerFixedTime:
		return newFixedTimeTrigger(spec)
	case TriggerFilesystemChange:
		return newFSTrigger(spec, log), nil
	default:
		return nil, fmt.Errorf("unknown trigger kind %d", int(spec.Kind))
	}
}

// ---- interval ----

type intervalTrigger struct {
	every time.Duration
}

func (t *intervalTrigger) isDue(now, lastRun time.Time) bool {
	if lastRun.IsZero() {
		return true
	}
	// Equality counts as due: fire exactly at the boundary.
	return now.Sub(lastRun) >= t.every
}

func (t *intervalTrigger) nextEstimate(now time.Time) time.Time {
	return now.Add(t.every)
}

// ---- fixed time ----

type fixedTimeTrigger struct {
	hour, minute int
	days         map[time.Weekday]bool // empty = all days

	// sched computes the next wall-clock occurrence; the cron parser
	// already handles day-of-week wraparound for us.
	sched cron.Schedule

	// lastFired dedupes within a day independently of lastRun, so a coarse
	// poll granularity cannot fire the job twice on one matching day.
	lastFired string // "2006-01-02"
}

func newFixedTimeTrigger(spec TriggerSpec) (*fixedTimeTrigger, error) {
	h, m, err := parseHHMM(spec.At)
	if err != nil {
		return nil, err
	}

	days := make(map[time.Weekday]bool, len(spec.Days))
	for _, d := range spec.Days {
		days[d] = true
	}

	dow := "*"
	if len(days) > 0 {
		nums := make([]int, 0, len(days))
		for d := range days {
			nums = append(nums, int(d))
		}
		sort.Ints(nums)
		parts := make([]string, len(nums))
		for i, n := range nums {
			parts[i] = strconv.Itoa(n)
		}
		dow = strings.Join(parts, ",")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(fmt.Sprintf("%d %d * * %s", m, h, dow))
	if err != nil {
		return nil, fmt.Errorf("fixed-time trigger: %w", err)
	}

	return &fixedTimeTrigger{hour: h, minute: m, days: days, sched: sched}, nil
}

func (t *fixedTimeTrigger) isDue(now, lastRun time.Time) bool {
	if len(t.days) > 0 && !t.days[now.Weekday()] {
		return false
	}
	fireAt := time.Date(now.Year(), now.Month(), now.Day(), t.hour, t.minute, 0, 0, now.Location())
	if now.Before(fireAt) {
		return false
	}
	day := now.Format("2006-01-02")
	if t.lastFired == day {
		return false
	}
	// A restart after today's fire time must not refire: the restored
	// lastRun stands in for the lost in-memory lastFired marker.
	if !lastRun.IsZero() && !lastRun.Before(fireAt) {
		t.lastFired = day
		return false
	}
	// Mark on the due decision, not on dispatch, so an overlapping or
	// failing dispatch still consumes today's slot.
	t.lastFired = day
	return true
}

func (t *fixedTimeTrigger) nextEstimate(now time.Time) time.Time {
	return t.sched.Next(now)
}

func parseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
