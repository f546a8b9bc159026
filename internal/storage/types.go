package storage

import (
	"errors"
	"time"
)

// ErrDisabled is returned by backends whose operations are invoked after the
// store has been closed or was never opened.
var ErrDisabled = errors.New("storage disabled")

// Config selects and configures the checkpoint backend. Recognized drivers
// are "file" (a JSON snapshot on disk) and "sqlite" (requires the sqlite
// build tag). An empty Driver, or "none", turns checkpointing off.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means the driver default
}

// JobState is the per-job record written to the checkpoint. The fields map
// one-to-one onto the scheduler's durable state, so changing them invalidates
// existing checkpoints.
type JobState struct {
	LastRun     time.Time `json:"last_run"`
	LastOutcome string    `json:"last_outcome"`
	RunCount    int       `json:"run_count"`
}
