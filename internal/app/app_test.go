package app

import (
	"strings"
	"testing"
	"time"

	"autokit/internal/config"
	"autokit/internal/sched"
	"autokit/internal/storage"
)

func TestTriggerSpecMapping(t *testing.T) {
	spec, err := TriggerSpec(config.TriggerConfig{Kind: "interval", Every: "10m"})
	if err != nil {
		t.Fatalf("interval: %v", err)
	}
	if spec.Kind != sched.TriggerInterval || spec.Every != 10*time.Minute {
		t.Fatalf("interval spec = %+v", spec)
	}

	spec, err = TriggerSpec(config.TriggerConfig{
		Kind: "fixed_time",
		At:   "09:00",
		Days: []string{"mon", "Friday"},
	})
	if err != nil {
		t.Fatalf("fixed_time: %v", err)
	}
	if spec.Kind != sched.TriggerFixedTime || spec.At != "09:00" {
		t.Fatalf("fixed_time spec = %+v", spec)
	}
	if len(spec.Days) != 2 || spec.Days[0] != time.Monday || spec.Days[1] != time.Friday {
		t.Fatalf("days = %v", spec.Days)
	}

	spec, err = TriggerSpec(config.TriggerConfig{
		Kind:      "fs_change",
		Path:      "/tmp/watched",
		Pattern:   "*.pdf",
		PollEvery: "2s",
	})
	if err != nil {
		t.Fatalf("fs_change: %v", err)
	}
	if spec.Kind != sched.TriggerFilesystemChange || spec.PollEvery != 2*time.Second {
		t.Fatalf("fs_change spec = %+v", spec)
	}
}

func TestTriggerSpecMappingErrors(t *testing.T) {
	cases := []config.TriggerConfig{
		{Kind: "cron", Every: "1s"},                      // unknown kind
		{Kind: "interval"},                               // missing every
		{Kind: "interval", Every: "soon"},                // bad duration
		{Kind: "fixed_time", At: "25:00"},                // bad time
		{Kind: "fixed_time", At: "09:00", Days: []string{"moonday"}}, // bad day
		{Kind: "fs_change"},                              // missing path
	}
	for i, tc := range cases {
		if _, err := TriggerSpec(tc); err == nil {
			t.Errorf("case %d (%+v): expected error", i, tc)
		}
	}
}

func TestParseWeekday(t *testing.T) {
	cases := map[string]time.Weekday{
		"mon":      time.Monday,
		"Monday":   time.Monday,
		"tue":      time.Tuesday,
		"WED":      time.Wednesday,
		"thursday": time.Thursday,
		"fri":      time.Friday,
		"sat":      time.Saturday,
		"sun":      time.Sunday,
	}
	for in, want := range cases {
		got, err := parseWeekday(in)
		if err != nil || got != want {
			t.Errorf("parseWeekday(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := parseWeekday("someday"); err == nil {
		t.Fatalf("bogus weekday accepted")
	}
}

func TestValidateConfig(t *testing.T) {
	good := &config.Config{
		Jobs: []config.JobConfig{
			{Name: "a", Action: "noop", Trigger: config.TriggerConfig{Kind: "interval", Every: "1m"}},
			{Name: "b", Action: "noop", Trigger: config.TriggerConfig{Kind: "fixed_time", At: "09:00"}},
		},
	}
	if err := validate(good); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	dup := &config.Config{
		Jobs: []config.JobConfig{
			{Name: "a", Trigger: config.TriggerConfig{Kind: "interval", Every: "1m"}},
			{Name: "a", Trigger: config.TriggerConfig{Kind: "interval", Every: "1m"}},
		},
	}
	if err := validate(dup); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("duplicate job names accepted: %v", err)
	}

	bad := &config.Config{
		Scheduler: config.SchedulerConfig{MinPoll: "fast"},
	}
	if err := validate(bad); err == nil {
		t.Fatalf("bad scheduler duration accepted")
	}
}

func TestStorageStateMapping(t *testing.T) {
	ran := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	in := map[string]sched.JobState{
		"j": {LastRun: ran, LastOutcome: sched.TimedOut, RunCount: 4},
	}

	persisted := toStorage(in)
	if persisted["j"].LastOutcome != "timed_out" {
		t.Fatalf("persisted outcome = %q", persisted["j"].LastOutcome)
	}

	back := fromStorage(persisted)
	if got := back["j"]; got.LastOutcome != sched.TimedOut || got.RunCount != 4 || !got.LastRun.Equal(ran) {
		t.Fatalf("round trip = %+v", got)
	}

	// Unknown stored strings degrade to NeverRun, never poisoning a job.
	weird := fromStorage(map[string]storage.JobState{"j": {LastOutcome: "exploded"}})
	if weird["j"].LastOutcome != sched.NeverRun {
		t.Fatalf("unknown outcome mapped to %v", weird["j"].LastOutcome)
	}
}

func TestLoggingConfigDefaults(t *testing.T) {
	lc := loggingConfig(config.LoggingConfig{Level: "debug"})
	if !lc.Console {
		t.Fatalf("console should default to on")
	}

	off := false
	lc = loggingConfig(config.LoggingConfig{Console: &off})
	if lc.Console {
		t.Fatalf("explicit console:false ignored")
	}
}
