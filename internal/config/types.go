package config

type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`

	// Storage controls the optional job-history checkpoint.
	Storage *StorageConfig `json:"storage,omitempty"`

	Sinks SinksConfig `json:"sinks"`

	// Jobs are registered at startup, in order. Registration order is also
	// dispatch order for simultaneously due jobs.
	Jobs []JobConfig `json:"jobs"`
}

type LoggingConfig struct {
	Level string `json:"level,omitempty"`

	// Console is a pointer so "omitted" (default true) differs from an
	// explicit false.
	Console *bool         `json:"console,omitempty"`
	File    LogFileConfig `json:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// SchedulerConfig controls the polling loop.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
//
// Defaults (when fields are omitted/zero):
//   - min_poll: "1s"
//   - max_poll: "30s"
//   - default_timeout: "1m"
//   - history_size: 200
type SchedulerConfig struct {
	MinPoll        string `json:"min_poll,omitempty"`
	MaxPoll        string `json:"max_poll,omitempty"`
	DefaultTimeout string `json:"default_timeout,omitempty"`
	HistorySize    int    `json:"history_size,omitempty"`
}

// StorageConfig controls the checkpoint backend.
//
// Example:
//
//	storage: { driver: file, path: ./autokit_checkpoint.json, save_every: 5m }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
	SaveEvery   string `json:"save_every,omitempty"`   // checkpoint cadence, default 5m
}

type SinksConfig struct {
	// Log is on unless explicitly disabled; every outcome lands somewhere.
	Log *LogSinkConfig `json:"log,omitempty"`

	Email    *EmailSinkConfig    `json:"email,omitempty"`
	Telegram *TelegramSinkConfig `json:"telegram,omitempty"`
}

type LogSinkConfig struct {
	Enabled bool `json:"enabled"`
}

type EmailSinkConfig struct {
	Host     string   `json:"host"`
	Port     int      `json:"port,omitempty"`
	From     string   `json:"from"`
	To       []string `json:"to"`
	Username string   `json:"username,omitempty"`
	Password string   `json:"password,omitempty"`

	FailuresOnly  bool   `json:"failures_only,omitempty"`
	RatePerMin    int    `json:"rate_per_min,omitempty"`
	SubjectPrefix string `json:"subject_prefix,omitempty"`
}

type TelegramSinkConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`

	FailuresOnly bool `json:"failures_only,omitempty"`
	RatePerMin   int  `json:"rate_per_min,omitempty"`
}

type JobConfig struct {
	Name   string `json:"name"`
	Action string `json:"action"`

	// Enabled is a pointer so omitted defaults to true.
	Enabled *bool `json:"enabled,omitempty"`

	Trigger TriggerConfig     `json:"trigger"`
	Params  map[string]string `json:"params,omitempty"`
}

// TriggerConfig is the on-disk form of a trigger spec.
//
// kind: "interval" | "fixed_time" | "fs_change"
//
//	interval:   every: "10m"
//	fixed_time: at: "09:00", days: [mon, wed, fri]   (days omitted = every day)
//	fs_change:  path: "~/Downloads", pattern: "*.pdf", poll_every: "5s"
type TriggerConfig struct {
	Kind string `json:"kind"`

	Every string `json:"every,omitempty"`

	At   string   `json:"at,omitempty"`
	Days []string `json:"days,omitempty"`

	Path      string `json:"path,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	PollEvery string `json:"poll_every,omitempty"`
}
